package aggregate

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField selects the value compared when ordering sibling nodes.
type SortField string

const (
	SortByName        SortField = "name"
	SortByOutstanding SortField = "outstanding"
)

// SortSpec orders the children of one tree level.
type SortSpec struct {
	Field      SortField `json:"field"`
	Descending bool      `json:"descending"`
}

// Sorter orders tree levels. Names compare with locale-aware, case-insensitive
// collation. A Sorter is not safe for concurrent use.
type Sorter struct {
	collator *collate.Collator
}

// NewSorter returns a Sorter collating names for tag.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{collator: collate.New(tag, collate.IgnoreCase, collate.Numeric)}
}

// Sort reorders n's descendants in place. specs[i] applies to the nodes at
// depth i+1; levels without a spec keep their build order. Unassigned nodes
// always sort last, and ties break on ID so the order is deterministic.
func (s *Sorter) Sort(n *Node, specs []SortSpec) {
	s.sortLevel(n, specs, 0)
}

func (s *Sorter) sortLevel(n *Node, specs []SortSpec, depth int) {
	if depth >= len(specs) || len(n.Children) == 0 {
		return
	}
	spec := specs[depth]
	sort.SliceStable(n.Children, func(i, j int) bool {
		return s.less(n.Children[i], n.Children[j], spec)
	})
	for _, c := range n.Children {
		s.sortLevel(c, specs, depth+1)
	}
}

func (s *Sorter) less(a, b *Node, spec SortSpec) bool {
	if ua, ub := a.Unassigned(), b.Unassigned(); ua != ub {
		return ub
	}

	var cmp int
	switch spec.Field {
	case SortByOutstanding:
		switch {
		case a.Outstanding.Amount < b.Outstanding.Amount:
			cmp = -1
		case a.Outstanding.Amount > b.Outstanding.Amount:
			cmp = 1
		}
	default:
		cmp = s.collator.CompareString(a.Name, b.Name)
	}
	if spec.Descending {
		cmp = -cmp
	}
	if cmp == 0 {
		return a.ID < b.ID
	}
	return cmp < 0
}

// ParseSortSpec parses "name", "outstanding", "-name" or "-outstanding"
// ("-" means descending).
func ParseSortSpec(s string) (SortSpec, bool) {
	var spec SortSpec
	if len(s) > 0 && s[0] == '-' {
		spec.Descending = true
		s = s[1:]
	}
	switch SortField(s) {
	case SortByName, SortByOutstanding:
		spec.Field = SortField(s)
		return spec, true
	}
	return SortSpec{}, false
}
