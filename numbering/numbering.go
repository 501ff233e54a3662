// Package numbering issues human-readable invoice numbers such as
// "INV-1A2B3C4D5E". Numbers are snowflake IDs rendered in base 36, so they
// are unique per node and sort roughly by creation time.
package numbering

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/xraph/rentledger/invoice"
)

// Default prefixes by direction.
const (
	InvoicePrefix = "INV"
	BillPrefix    = "BILL"
)

// Generator issues invoice numbers. It is safe for concurrent use.
type Generator struct {
	node *snowflake.Node
}

// New returns a Generator for node (0-1023). Run one node per process that
// creates invoices against the same store.
func New(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("numbering: node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// MustNew is like New but panics on an invalid node.
func MustNew(node int64) *Generator {
	g, err := New(node)
	if err != nil {
		panic(err)
	}
	return g
}

// Next returns a new number with prefix. An empty prefix yields a bare number.
func (g *Generator) Next(prefix string) string {
	n := strings.ToUpper(g.node.Generate().Base36())
	if prefix == "" {
		return n
	}
	return prefix + "-" + n
}

// PrefixFor returns the default prefix for invoices of direction d.
func PrefixFor(d invoice.Direction) string {
	if d == invoice.Payable {
		return BillPrefix
	}
	return InvoicePrefix
}
