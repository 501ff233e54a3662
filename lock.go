package rentledger

import (
	"slices"
	"sync"

	"github.com/xraph/rentledger/id"
)

// keyedMutex serialises work per key. Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires every key and returns the function that releases them.
// Keys are taken in sorted order so two callers locking overlapping sets
// cannot deadlock.
func (k *keyedMutex) Lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyedLock, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &keyedLock{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}

// lockInvoices locks the given invoice IDs.
func (l *Ledger) lockInvoices(ids ...id.InvoiceID) func() {
	keys := make([]string, 0, len(ids))
	for _, invID := range ids {
		keys = append(keys, invID.String())
	}
	return l.locks.Lock(keys...)
}
