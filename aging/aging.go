// Package aging buckets outstanding balances by days past due.
package aging

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

// DefaultBounds yields the buckets 0-30, 31-60, 61-90 and 90+.
var DefaultBounds = []int{30, 60, 90}

// Bucket is a day-range label such as "31-60" or "90+".
type Bucket string

// Result is the aging classification of one record.
type Result struct {
	DaysOverdue int    `json:"days_overdue"`
	Bucket      Bucket `json:"bucket,omitempty"`
	Overdue     bool   `json:"overdue"`
	// Excluded is set for paid records and drafts, which belong to no bucket.
	Excluded bool `json:"excluded"`
}

// Classifier assigns buckets from a sorted list of inclusive upper bounds.
type Classifier struct {
	bounds  []int
	buckets []Bucket
}

// NewClassifier validates bounds and precomputes bucket labels. Nil or empty
// bounds select DefaultBounds.
func NewClassifier(bounds []int) (*Classifier, error) {
	if len(bounds) == 0 {
		bounds = DefaultBounds
	}
	prev := -1
	for _, b := range bounds {
		if b <= prev {
			return nil, types.Invalid("aging_bounds", "bounds must be strictly increasing and non-negative, got %v", bounds)
		}
		prev = b
	}

	c := &Classifier{bounds: append([]int(nil), bounds...)}
	lower := 0
	for _, b := range c.bounds {
		c.buckets = append(c.buckets, Bucket(fmt.Sprintf("%d-%d", lower, b)))
		lower = b + 1
	}
	c.buckets = append(c.buckets, Bucket(strconv.Itoa(c.bounds[len(c.bounds)-1])+"+"))
	return c, nil
}

// MustClassifier is like NewClassifier but panics on invalid bounds.
func MustClassifier(bounds []int) *Classifier {
	c, err := NewClassifier(bounds)
	if err != nil {
		panic(err)
	}
	return c
}

// Buckets returns the bucket labels in ascending order.
func (c *Classifier) Buckets() []Bucket {
	return append([]Bucket(nil), c.buckets...)
}

// Classify ages a record. Paid records and unissued drafts are excluded; a
// record due today is in the first bucket and not overdue.
func (c *Classifier) Classify(remaining types.Money, status invoice.Status, dueDate, today time.Time) Result {
	if status == invoice.StatusPaid || status == invoice.StatusDraft || !remaining.IsPositive() {
		return Result{Excluded: true}
	}
	days := types.DaysBetween(dueDate, today)
	if days < 0 {
		days = 0
	}
	return Result{
		DaysOverdue: days,
		Bucket:      c.bucketFor(days),
		Overdue:     days > 0,
	}
}

func (c *Classifier) bucketFor(days int) Bucket {
	for i, b := range c.bounds {
		if days <= b {
			return c.buckets[i]
		}
	}
	return c.buckets[len(c.buckets)-1]
}

// Row is one line of an aging summary.
type Row struct {
	Bucket Bucket      `json:"bucket"`
	Total  types.Money `json:"total"`
	Count  int         `json:"count"`
}

// Summary totals outstanding balances per bucket.
type Summary struct {
	Rows    []Row       `json:"rows"`
	Total   types.Money `json:"total"`
	Overdue types.Money `json:"overdue"`
	Count   int         `json:"count"`
}

// Entry is the input to Summarize.
type Entry struct {
	Remaining types.Money
	Result    Result
}

// Summarize groups entries by bucket. Every bucket appears in the output,
// in ascending order, even when empty.
func (c *Classifier) Summarize(currency string, entries []Entry) Summary {
	idx := make(map[Bucket]int, len(c.buckets))
	s := Summary{Total: types.Zero(currency), Overdue: types.Zero(currency)}
	for i, b := range c.buckets {
		idx[b] = i
		s.Rows = append(s.Rows, Row{Bucket: b, Total: types.Zero(currency)})
	}
	for _, e := range entries {
		if e.Result.Excluded {
			continue
		}
		row := &s.Rows[idx[e.Result.Bucket]]
		row.Total = row.Total.Add(e.Remaining)
		row.Count++
		s.Total = s.Total.Add(e.Remaining)
		s.Count++
		if e.Result.Overdue {
			s.Overdue = s.Overdue.Add(e.Remaining)
		}
	}
	return s
}
