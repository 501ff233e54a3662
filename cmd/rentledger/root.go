package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/store/memory"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	v      *viper.Viper
	logger *slog.Logger
	store  *memory.Store
	ledger *rentledger.Ledger
	today  time.Time

	// dirty is set by commands that change the ledger.
	dirty bool
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "rentledger",
		Short: "Rental receivables and payables ledger",
		Long: `rentledger loads a JSON ledger snapshot (categories, entities, invoices,
payments and recurring templates) and answers questions about it: invoice
status, aging, grouped reports. It can also run the recurring invoice check
and allocate collections; pass --write to save those changes back.

Every flag can also be set through a RENTLEDGER_* environment variable
(e.g. RENTLEDGER_SNAPSHOT) or a config file passed with --config.`,
		Example: `  # Aging of all receivables as of the end of March
  rentledger aging --snapshot ledger.json --today 2026-03-31

  # Collect a rent payment and save it
  rentledger allocate split INV-2K9F --rent 1200 --write`,
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}

	f := root.PersistentFlags()
	f.String("config", "", "config file (yaml, json or toml)")
	f.String("snapshot", "rentledger.json", "ledger snapshot file")
	f.String("today", "", "evaluate as of this date (YYYY-MM-DD, default: now)")
	f.String("tolerance", "0.01", "balance tolerance in major currency units")
	f.Int("max-catch-up", rentledger.DefaultMaxCatchUp, "missed periods one template may generate per run")
	f.String("log-level", "warn", "log level (debug, info, warn, error)")
	f.Bool("write", false, "save changes back to the snapshot")
	_ = c.v.BindPFlags(f) //nolint:errcheck // flags are defined above

	c.v.SetEnvPrefix("RENTLEDGER")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		newStatusCmd(c),
		newAgingCmd(c),
		newReportCmd(c),
		newRecurringCmd(c),
		newAllocateCmd(c),
	)
	return root
}

// setup reads configuration and loads the snapshot into a started ledger.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if path := c.v.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c.logger = newLogger(cmd.ErrOrStderr(), c.v.GetString("log-level"))

	c.today = time.Now()
	if s := c.v.GetString("today"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return fmt.Errorf("invalid --today %q, use YYYY-MM-DD: %w", s, err)
		}
		c.today = t
	}

	eps, err := decimal.NewFromString(c.v.GetString("tolerance"))
	if err != nil {
		return fmt.Errorf("invalid --tolerance: %w", err)
	}

	path := c.v.GetString("snapshot")
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}
	c.store = memory.New()
	if err := snap.load(cmd.Context(), c.store); err != nil {
		return fmt.Errorf("load snapshot %s: %w", path, err)
	}

	today := c.today
	c.ledger = rentledger.New(c.store,
		rentledger.WithLogger(c.logger),
		rentledger.WithClock(func() time.Time { return today }),
		rentledger.WithTolerance(eps),
		rentledger.WithMaxCatchUp(c.v.GetInt("max-catch-up")),
	)
	if err := c.ledger.Start(cmd.Context()); err != nil {
		return err
	}

	c.logger.Debug("snapshot loaded",
		"path", path,
		"invoices", len(snap.Invoices),
		"payments", len(snap.Payments),
		"templates", len(snap.Templates),
	)
	return nil
}

// teardown saves the ledger when a command changed it and --write is set.
func (c *cli) teardown(cmd *cobra.Command, _ []string) error {
	if c.ledger == nil {
		return nil
	}
	defer c.ledger.Stop() //nolint:errcheck // memory store close cannot fail

	if !c.dirty {
		return nil
	}
	if !c.v.GetBool("write") {
		fmt.Fprintln(cmd.ErrOrStderr(), "dry run: pass --write to save changes")
		return nil
	}

	snap, err := dump(cmd.Context(), c.store)
	if err != nil {
		return err
	}
	path := c.v.GetString("snapshot")
	if err := writeSnapshot(path, snap); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	c.logger.Info("snapshot saved", "path", path)
	return nil
}

// findInvoice accepts an invoice ID or number.
func (c *cli) findInvoice(ctx context.Context, ref string) (*invoice.Invoice, error) {
	if invID, err := id.ParseInvoiceID(ref); err == nil {
		return c.ledger.GetInvoice(ctx, invID)
	}
	list, err := c.store.ListInvoices(ctx, invoice.ListOpts{})
	if err != nil {
		return nil, err
	}
	for _, inv := range list {
		if strings.EqualFold(inv.Number, ref) {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", rentledger.ErrInvoiceNotFound, ref)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
