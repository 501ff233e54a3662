package numbering

import (
	"strings"
	"sync"
	"testing"

	"github.com/xraph/rentledger/invoice"
)

func TestNextIsUnique(t *testing.T) {
	g := MustNew(1)
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				n := g.Next(InvoicePrefix)
				mu.Lock()
				if seen[n] {
					t.Errorf("duplicate number %s", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 2000 {
		t.Errorf("got %d numbers, want 2000", len(seen))
	}
}

func TestNextFormat(t *testing.T) {
	g := MustNew(7)
	n := g.Next("RENT")
	if !strings.HasPrefix(n, "RENT-") {
		t.Errorf("Next: got %q, want RENT- prefix", n)
	}
	if strings.ToUpper(n) != n {
		t.Errorf("Next: got %q, want upper case", n)
	}
	if bare := g.Next(""); strings.Contains(bare, "-") {
		t.Errorf("Next(\"\"): got %q, want no separator", bare)
	}
}

func TestInvalidNode(t *testing.T) {
	if _, err := New(5000); err == nil {
		t.Error("New(5000): want error")
	}
}

func TestPrefixFor(t *testing.T) {
	if got := PrefixFor(invoice.Payable); got != BillPrefix {
		t.Errorf("PrefixFor(payable): got %s", got)
	}
	if got := PrefixFor(invoice.Receivable); got != InvoicePrefix {
		t.Errorf("PrefixFor(receivable): got %s", got)
	}
}
