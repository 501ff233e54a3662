// Package aggregate groups resolved invoices into a multi-level tree
// (for example building → property → tenant) and rolls up outstanding and
// overdue totals at every level.
//
// Grouping is a partition: every record lands in exactly one child per level,
// with missing or dangling keys collected under "Unassigned". Node totals are
// summed over the records placed at or below the node, never re-derived from
// children, so the root total always equals the sum over the input.
package aggregate

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/rentledger/aging"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

// Record is an invoice annotated with its resolved balance and aging.
type Record struct {
	Invoice *invoice.Invoice `json:"invoice"`
	Balance balance.Balance  `json:"balance"`
	Aging   aging.Result     `json:"aging"`
}

// Key identifies a group. An empty ID means unassigned.
type Key struct {
	ID   string
	Name string
}

// KeyFunc extracts the grouping key of a record for one level.
type KeyFunc func(r *Record) Key

// Level is one grouping step of the tree.
type Level struct {
	Name string
	Key  KeyFunc
}

// Node is a tree node. Leaf nodes carry Records instead of Children.
type Node struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Level       string      `json:"level"`
	Outstanding types.Money `json:"outstanding"`
	Overdue     types.Money `json:"overdue"`
	Count       int         `json:"count"`
	Children    []*Node     `json:"children,omitempty"`
	Records     []*Record   `json:"records,omitempty"`
}

// Unassigned reports whether the node collects records without a key.
func (n *Node) Unassigned() bool { return n.ID == directory.UnassignedID && n.Level != "" }

// IsLeaf reports whether the node is at the last grouping level.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

type options struct {
	parallel bool
	currency string
	rootName string
}

// Option configures Build.
type Option func(*options)

// WithParallel builds independent top-level subtrees concurrently. The
// resulting tree is identical to a sequential build.
func WithParallel() Option {
	return func(o *options) { o.parallel = true }
}

// WithCurrency sets the currency of zero totals on empty trees.
func WithCurrency(currency string) Option {
	return func(o *options) { o.currency = currency }
}

// WithRootName sets the root node name (default "All").
func WithRootName(name string) Option {
	return func(o *options) { o.rootName = name }
}

// Build groups records by levels. Each level is one linear pass over the
// records of its parent group, so the total cost is O(n·d).
func Build(records []*Record, levels []Level, opts ...Option) *Node {
	o := options{rootName: "All"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.currency == "" && len(records) > 0 {
		o.currency = records[0].Invoice.Currency()
	}

	root := &Node{Name: o.rootName}
	summarize(root, records, o.currency)
	if len(levels) == 0 {
		root.Records = records
		return root
	}

	root.Children = partition(records, levels[0], o.currency)
	if !o.parallel || len(root.Children) < 2 {
		for _, child := range root.Children {
			expand(child, levels[1:], o.currency)
		}
		return root
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, child := range root.Children {
		g.Go(func() error {
			expand(child, levels[1:], o.currency)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // expand never fails
	return root
}

// expand recursively groups the records held by n.
func expand(n *Node, levels []Level, currency string) {
	if len(levels) == 0 {
		return
	}
	n.Children = partition(n.Records, levels[0], currency)
	n.Records = nil
	for _, child := range n.Children {
		expand(child, levels[1:], currency)
	}
}

// partition splits records into one node per key, in first-seen order.
// Nodes temporarily hold their records until expanded.
func partition(records []*Record, level Level, currency string) []*Node {
	index := make(map[string]*Node)
	var nodes []*Node
	var unassigned *Node

	for _, r := range records {
		k := level.Key(r)
		var n *Node
		if k.ID == directory.UnassignedID {
			if unassigned == nil {
				unassigned = &Node{ID: directory.UnassignedID, Name: directory.UnassignedName, Level: level.Name}
			}
			n = unassigned
		} else if n = index[k.ID]; n == nil {
			n = &Node{ID: k.ID, Name: k.Name, Level: level.Name}
			index[k.ID] = n
			nodes = append(nodes, n)
		}
		n.Records = append(n.Records, r)
	}
	if unassigned != nil {
		nodes = append(nodes, unassigned)
	}
	for _, n := range nodes {
		summarize(n, n.Records, currency)
	}
	return nodes
}

func summarize(n *Node, records []*Record, currency string) {
	n.Outstanding = types.Zero(currency)
	n.Overdue = types.Zero(currency)
	n.Count = len(records)
	for _, r := range records {
		n.Outstanding = n.Outstanding.Add(r.Balance.Remaining)
		if r.Aging.Overdue {
			n.Overdue = n.Overdue.Add(r.Balance.Remaining)
		}
	}
}

// Flatten returns the leaf records in tree order.
func Flatten(n *Node) []*Record {
	if len(n.Children) == 0 {
		return append([]*Record(nil), n.Records...)
	}
	var out []*Record
	for _, c := range n.Children {
		out = append(out, Flatten(c)...)
	}
	return out
}

// Walk visits n and its descendants depth-first with their depth (root = 0).
func Walk(n *Node, fn func(n *Node, depth int)) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int)) {
	fn(n, depth)
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}
