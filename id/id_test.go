package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/rentledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"InvoiceID", id.NewInvoiceID, "inv_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"BatchID", id.NewBatchID, "bat_"},
		{"TemplateID", id.NewTemplateID, "rtpl_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"InvoiceID", id.NewInvoiceID, id.ParseInvoiceID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
		{"BatchID", id.NewBatchID, id.ParseBatchID},
		{"TemplateID", id.NewTemplateID, id.ParseTemplateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseInvoiceID rejects pay_", id.NewPaymentID().String(), id.ParseInvoiceID},
		{"ParsePaymentID rejects bat_", id.NewBatchID().String(), id.ParsePaymentID},
		{"ParseBatchID rejects rtpl_", id.NewTemplateID().String(), id.ParseBatchID},
		{"ParseTemplateID rejects inv_", id.NewInvoiceID().String(), id.ParseTemplateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixBatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsNil() {
		t.Error("expected Nil for empty input")
	}

	b := id.NewBatchID()
	got, err = id.ParseOptional(b.String(), id.PrefixBatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != b {
		t.Errorf("mismatch: %q != %q", got, b)
	}

	if _, err := id.ParseOptional(b.String(), id.PrefixInvoice); err == nil {
		t.Error("expected prefix error")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewInvoiceID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, _ = nilID.MarshalText()
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewPaymentID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	if val, _ := nilID.Value(); val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewBatchID()
	b := id.NewBatchID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewBatchID() calls returned the same ID: %q", a.String())
	}
}
