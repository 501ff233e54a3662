// Command rentledger inspects and reconciles a ledger snapshot from the
// command line: invoice status, aging, hierarchy reports, recurring runs and
// payment allocation.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load() //nolint:errcheck // missing .env is fine

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
