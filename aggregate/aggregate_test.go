package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/xraph/rentledger/aging"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

func testIndex() *directory.Index {
	return directory.NewIndex([]*directory.Entity{
		{Kind: directory.KindBuilding, ID: "b1", Name: "Tower"},
		{Kind: directory.KindBuilding, ID: "b2", Name: "annex"},
		{Kind: directory.KindProperty, ID: "p1", Name: "Flat 1", BuildingID: "b1", OwnerID: "o1"},
		{Kind: directory.KindProperty, ID: "p2", Name: "Flat 2", BuildingID: "b1"},
		{Kind: directory.KindProperty, ID: "p3", Name: "Flat 3", BuildingID: "b2"},
		{Kind: directory.KindContact, ID: "t1", Name: "Alice", Role: directory.RoleTenant},
		{Kind: directory.KindContact, ID: "t2", Name: "bob", Role: directory.RoleTenant},
		{Kind: directory.KindContact, ID: "o1", Name: "Olga", Role: directory.RoleOwner},
	})
}

func record(propertyID, contactID string, remaining int64, overdue bool) *Record {
	return &Record{
		Invoice: &invoice.Invoice{
			ID:         id.NewInvoiceID(),
			Type:       invoice.TypeRental,
			Amount:     types.USD(remaining),
			PropertyID: propertyID,
			ContactID:  contactID,
		},
		Balance: balance.Balance{Remaining: types.USD(remaining), Status: invoice.StatusUnpaid},
		Aging:   aging.Result{Overdue: overdue},
	}
}

func TestBuildPreservesSums(t *testing.T) {
	ix := testIndex()
	records := []*Record{
		record("p1", "t1", 1000, true),
		record("p1", "t2", 2000, false),
		record("p2", "t1", 4000, true),
		record("p3", "t2", 8000, false),
		record("", "t1", 16000, true),
		record("ghost", "t2", 32000, false),
	}

	root := Build(records, []Level{ByBuilding(ix), ByProperty(ix), ByContact(ix)})

	assert.Equal(t, int64(63000), root.Outstanding.Amount)
	assert.Equal(t, int64(21000), root.Overdue.Amount)
	assert.Equal(t, 6, root.Count)

	Walk(root, func(n *Node, _ int) {
		if n.IsLeaf() {
			return
		}
		var sum int64
		var count int
		for _, c := range n.Children {
			sum += c.Outstanding.Amount
			count += c.Count
		}
		assert.Equal(t, n.Outstanding.Amount, sum, "node %q", n.Name)
		assert.Equal(t, n.Count, count, "node %q", n.Name)
	})
	assert.Len(t, Flatten(root), len(records))
}

func TestBuildUnassigned(t *testing.T) {
	ix := testIndex()
	records := []*Record{
		record("p1", "t1", 100, false),
		record("", "t1", 200, false),
		record("ghost", "t1", 400, false),
	}

	root := Build(records, []Level{ByProperty(ix)})
	require.Len(t, root.Children, 2)

	last := root.Children[1]
	assert.True(t, last.Unassigned())
	assert.Equal(t, directory.UnassignedName, last.Name)
	assert.Equal(t, int64(600), last.Outstanding.Amount)
	assert.Len(t, last.Records, 2)
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	ix := testIndex()
	var records []*Record
	for i := range 50 {
		props := []string{"p1", "p2", "p3", ""}
		contacts := []string{"t1", "t2", "x"}
		records = append(records, record(props[i%4], contacts[i%3], int64(100+i), i%2 == 0))
	}
	levels := []Level{ByBuilding(ix), ByProperty(ix), ByContact(ix)}

	seq := Build(records, levels)
	par := Build(records, levels, WithParallel())

	var a, b []string
	Walk(seq, func(n *Node, d int) { a = append(a, n.Name+"/"+n.Outstanding.String()) })
	Walk(par, func(n *Node, d int) { b = append(b, n.Name+"/"+n.Outstanding.String()) })
	assert.Equal(t, a, b)
}

func TestBuildEmpty(t *testing.T) {
	root := Build(nil, []Level{ByType()}, WithCurrency("kes"))
	assert.Equal(t, 0, root.Count)
	assert.Equal(t, "kes", root.Outstanding.Currency)
	assert.Empty(t, root.Children)
}

func TestByOwner(t *testing.T) {
	ix := testIndex()
	root := Build([]*Record{record("p1", "t1", 100, false), record("p2", "t1", 100, false)},
		[]Level{ByOwner(ix)})
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Olga", root.Children[0].Name)
	assert.True(t, root.Children[1].Unassigned())
}

func TestSortByName(t *testing.T) {
	ix := testIndex()
	records := []*Record{
		record("", "t1", 1, false),
		record("p1", "t2", 1, false),
		record("p1", "t1", 1, false),
		record("p3", "t1", 1, false),
	}
	root := Build(records, []Level{ByBuilding(ix), ByContact(ix)})

	NewSorter(language.English).Sort(root, []SortSpec{{Field: SortByName}, {Field: SortByName}})

	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	// Collation ignores case, so "annex" sorts before "Tower".
	assert.Equal(t, []string{"annex", "Tower", directory.UnassignedName}, names)

	tower := root.Children[1]
	require.Len(t, tower.Children, 2)
	assert.Equal(t, "Alice", tower.Children[0].Name)
	assert.Equal(t, "bob", tower.Children[1].Name)
}

func TestSortByOutstandingDescending(t *testing.T) {
	ix := testIndex()
	records := []*Record{
		record("p1", "t1", 100, false),
		record("p2", "t1", 500, false),
		record("p3", "t1", 300, false),
		record("", "t1", 900, false),
	}
	root := Build(records, []Level{ByProperty(ix)})
	NewSorter(language.Und).Sort(root, []SortSpec{{Field: SortByOutstanding, Descending: true}})

	var got []int64
	for _, c := range root.Children {
		got = append(got, c.Outstanding.Amount)
	}
	assert.Equal(t, []int64{500, 300, 100, 900}, got)
}

func TestParseSortSpec(t *testing.T) {
	s, ok := ParseSortSpec("-outstanding")
	require.True(t, ok)
	assert.Equal(t, SortSpec{Field: SortByOutstanding, Descending: true}, s)

	_, ok = ParseSortSpec("colour")
	assert.False(t, ok)
}

func TestLevelByName(t *testing.T) {
	ix := testIndex()
	for _, name := range []string{"building", "property", "tenant", "owner", "project", "unit", "type", "status", "aging"} {
		l, ok := LevelByName(ix, name)
		assert.True(t, ok, name)
		assert.Equal(t, name, l.Name)
	}
	_, ok := LevelByName(ix, "galaxy")
	assert.False(t, ok)
}

func TestByTypeLabel(t *testing.T) {
	r := record("p1", "t1", 1, false)
	r.Invoice.Type = invoice.TypeSecurityDeposit
	assert.Equal(t, Key{ID: "security_deposit", Name: "Security Deposit"}, ByType().Key(r))
}
