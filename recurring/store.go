package recurring

import (
	"context"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
)

type Store interface {
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, tplID id.TemplateID) (*Template, error)
	ListTemplates(ctx context.Context, opts ListOpts) ([]*Template, error)
	UpdateTemplate(ctx context.Context, t *Template) error
	DeleteTemplate(ctx context.Context, tplID id.TemplateID) error

	// AdvanceTemplate stores inv (when non-nil) and t in one step. It fails
	// with a conflict when the stored template's NextDueDate no longer equals
	// expectedNextDue, and leaves both records untouched on any failure.
	AdvanceTemplate(ctx context.Context, inv *invoice.Invoice, t *Template, expectedNextDue time.Time) error
}

type ListOpts struct {
	ActiveOnly bool
	DueBefore  time.Time
	Limit      int
	Offset     int
}
