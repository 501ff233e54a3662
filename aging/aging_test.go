package aging

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

var today = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	c := MustClassifier(nil)

	tests := []struct {
		name     string
		status   invoice.Status
		dueDays  int // days before today
		bucket   Bucket
		days     int
		overdue  bool
		excluded bool
	}{
		{"due today", invoice.StatusUnpaid, 0, "0-30", 0, false, false},
		{"not yet due", invoice.StatusUnpaid, -5, "0-30", 0, false, false},
		{"ten days", invoice.StatusOverdue, 10, "0-30", 10, true, false},
		{"thirty days", invoice.StatusOverdue, 30, "0-30", 30, true, false},
		{"thirty one days", invoice.StatusOverdue, 31, "31-60", 31, true, false},
		{"sixty one days", invoice.StatusPartiallyPaid, 61, "61-90", 61, true, false},
		{"ninety days", invoice.StatusOverdue, 90, "61-90", 90, true, false},
		{"ninety one days", invoice.StatusOverdue, 91, "90+", 91, true, false},
		{"paid", invoice.StatusPaid, 45, "", 0, false, true},
		{"draft", invoice.StatusDraft, 45, "", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := types.Date(today).AddDate(0, 0, -tt.dueDays)
			got := c.Classify(types.USD(100000), tt.status, due, today)
			if got.Bucket != tt.bucket {
				t.Errorf("Bucket: got %q, want %q", got.Bucket, tt.bucket)
			}
			if got.DaysOverdue != tt.days {
				t.Errorf("DaysOverdue: got %d, want %d", got.DaysOverdue, tt.days)
			}
			if got.Overdue != tt.overdue {
				t.Errorf("Overdue: got %v, want %v", got.Overdue, tt.overdue)
			}
			if got.Excluded != tt.excluded {
				t.Errorf("Excluded: got %v, want %v", got.Excluded, tt.excluded)
			}
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	c := MustClassifier(nil)
	due := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	morning := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)

	got := c.Classify(types.USD(100), invoice.StatusOverdue, due, morning)
	if got.DaysOverdue != 1 {
		t.Errorf("DaysOverdue: got %d, want 1", got.DaysOverdue)
	}
}

func TestCustomBounds(t *testing.T) {
	c, err := NewClassifier([]int{7, 14})
	if err != nil {
		t.Fatal(err)
	}
	want := []Bucket{"0-7", "8-14", "14+"}
	got := c.Buckets()
	if len(got) != len(want) {
		t.Fatalf("Buckets: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Buckets[%d]: got %q, want %q", i, got[i], want[i])
		}
	}

	due := types.Date(today).AddDate(0, 0, -10)
	if b := c.Classify(types.USD(1), invoice.StatusOverdue, due, today).Bucket; b != "8-14" {
		t.Errorf("Bucket: got %q, want 8-14", b)
	}
}

func TestInvalidBounds(t *testing.T) {
	for _, bounds := range [][]int{{30, 30}, {60, 30}, {-1, 10}} {
		_, err := NewClassifier(bounds)
		var ve types.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("NewClassifier(%v): got %v, want ValidationError", bounds, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	c := MustClassifier(nil)
	at := func(days int) time.Time { return types.Date(today).AddDate(0, 0, -days) }

	entries := []Entry{
		{types.USD(1000), c.Classify(types.USD(1000), invoice.StatusUnpaid, at(0), today)},
		{types.USD(2000), c.Classify(types.USD(2000), invoice.StatusOverdue, at(10), today)},
		{types.USD(4000), c.Classify(types.USD(4000), invoice.StatusOverdue, at(100), today)},
		{types.USD(8000), c.Classify(types.USD(8000), invoice.StatusPaid, at(45), today)},
	}
	s := c.Summarize("usd", entries)

	if len(s.Rows) != 4 {
		t.Fatalf("Rows: got %d, want 4", len(s.Rows))
	}
	wantTotals := []int64{3000, 0, 0, 4000}
	for i, w := range wantTotals {
		if s.Rows[i].Total.Amount != w {
			t.Errorf("Rows[%d] (%s): got %d, want %d", i, s.Rows[i].Bucket, s.Rows[i].Total.Amount, w)
		}
	}
	if s.Total.Amount != 7000 {
		t.Errorf("Total: got %d, want 7000", s.Total.Amount)
	}
	if s.Overdue.Amount != 6000 {
		t.Errorf("Overdue: got %d, want 6000", s.Overdue.Amount)
	}
	if s.Count != 3 {
		t.Errorf("Count: got %d, want 3", s.Count)
	}
}
