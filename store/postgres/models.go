package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:rentledger_invoices"`

	ID                  string            `grove:"id,pk"`
	Number              string            `grove:"number"`
	Direction           string            `grove:"direction"`
	Type                string            `grove:"type"`
	Draft               bool              `grove:"draft"`
	Currency            string            `grove:"currency"`
	AmountCents         int64             `grove:"amount_cents"`
	PaidAmountCents     int64             `grove:"paid_amount_cents"`
	DepositChargeCents  int64             `grove:"deposit_charge_cents"`
	ServiceChargesCents int64             `grove:"service_charges_cents"`
	IssueDate           time.Time         `grove:"issue_date"`
	DueDate             time.Time         `grove:"due_date"`
	Description         string            `grove:"description"`
	ContactID           string            `grove:"contact_id"`
	PropertyID          string            `grove:"property_id"`
	BuildingID          string            `grove:"building_id"`
	ProjectID           string            `grove:"project_id"`
	UnitID              string            `grove:"unit_id"`
	AgreementID         string            `grove:"agreement_id"`
	CategoryID          string            `grove:"category_id"`
	TemplateID          string            `grove:"template_id"`
	Period              string            `grove:"period"`
	Metadata            map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt           time.Time         `grove:"created_at"`
	UpdatedAt           time.Time         `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	return &invoiceModel{
		ID:                  inv.ID.String(),
		Number:              inv.Number,
		Direction:           string(inv.Direction),
		Type:                string(inv.Type),
		Draft:               inv.Draft,
		Currency:            inv.Currency(),
		AmountCents:         inv.Amount.Amount,
		PaidAmountCents:     inv.PaidAmount.Amount,
		DepositChargeCents:  inv.SecurityDepositCharge.Amount,
		ServiceChargesCents: inv.ServiceCharges.Amount,
		IssueDate:           inv.IssueDate,
		DueDate:             inv.DueDate,
		Description:         inv.Description,
		ContactID:           inv.ContactID,
		PropertyID:          inv.PropertyID,
		BuildingID:          inv.BuildingID,
		ProjectID:           inv.ProjectID,
		UnitID:              inv.UnitID,
		AgreementID:         inv.AgreementID,
		CategoryID:          inv.CategoryID,
		TemplateID:          inv.TemplateID.String(),
		Period:              inv.Period,
		Metadata:            inv.Metadata,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	tplID, err := id.ParseOptional(m.TemplateID, id.PrefixTemplate)
	if err != nil {
		return nil, err
	}

	return &invoice.Invoice{
		Timestamps: types.Timestamps{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                    invID,
		Number:                m.Number,
		Direction:             invoice.Direction(m.Direction),
		Type:                  invoice.Type(m.Type),
		Draft:                 m.Draft,
		Amount:                types.Money{Amount: m.AmountCents, Currency: m.Currency},
		PaidAmount:            types.Money{Amount: m.PaidAmountCents, Currency: m.Currency},
		SecurityDepositCharge: types.Money{Amount: m.DepositChargeCents, Currency: m.Currency},
		ServiceCharges:        types.Money{Amount: m.ServiceChargesCents, Currency: m.Currency},
		IssueDate:             m.IssueDate,
		DueDate:               m.DueDate,
		Description:           m.Description,
		ContactID:             m.ContactID,
		PropertyID:            m.PropertyID,
		BuildingID:            m.BuildingID,
		ProjectID:             m.ProjectID,
		UnitID:                m.UnitID,
		AgreementID:           m.AgreementID,
		CategoryID:            m.CategoryID,
		TemplateID:            tplID,
		Period:                m.Period,
		Metadata:              m.Metadata,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:rentledger_payments"`

	ID           string     `grove:"id,pk"`
	Type         string     `grove:"type"`
	AmountCents  int64      `grove:"amount_cents"`
	Currency     string     `grove:"currency"`
	Date         time.Time  `grove:"date"`
	AccountID    string     `grove:"account_id"`
	InvoiceID    string     `grove:"invoice_id"`
	BillID       string     `grove:"bill_id"`
	BatchID      string     `grove:"batch_id"`
	CategoryID   string     `grove:"category_id"`
	CategoryKind string     `grove:"category_kind"`
	Reference    string     `grove:"reference"`
	Description  string     `grove:"description"`
	ReversedAt   *time.Time `grove:"reversed_at"`
	CreatedAt    time.Time  `grove:"created_at"`
	UpdatedAt    time.Time  `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:           p.ID.String(),
		Type:         string(p.Type),
		AmountCents:  p.Amount.Amount,
		Currency:     p.Amount.Currency,
		Date:         p.Date,
		AccountID:    p.AccountID,
		InvoiceID:    p.InvoiceID.String(),
		BillID:       p.BillID.String(),
		BatchID:      p.BatchID.String(),
		CategoryID:   p.CategoryID,
		CategoryKind: string(p.CategoryKind),
		Reference:    p.Reference,
		Description:  p.Description,
		ReversedAt:   p.ReversedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseOptional(m.InvoiceID, id.PrefixInvoice)
	if err != nil {
		return nil, err
	}
	billID, err := id.ParseOptional(m.BillID, id.PrefixInvoice)
	if err != nil {
		return nil, err
	}
	batchID, err := id.ParseOptional(m.BatchID, id.PrefixBatch)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		Timestamps: types.Timestamps{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           payID,
		Type:         payment.Type(m.Type),
		Amount:       types.Money{Amount: m.AmountCents, Currency: m.Currency},
		Date:         m.Date,
		AccountID:    m.AccountID,
		InvoiceID:    invID,
		BillID:       billID,
		BatchID:      batchID,
		CategoryID:   m.CategoryID,
		CategoryKind: category.Kind(m.CategoryKind),
		Reference:    m.Reference,
		Description:  m.Description,
		ReversedAt:   m.ReversedAt,
	}, nil
}

// ==================== Recurring template models ====================

type templateModel struct {
	grove.BaseModel `grove:"table:rentledger_templates"`

	ID                  string     `grove:"id,pk"`
	Direction           string     `grove:"direction"`
	Type                string     `grove:"type"`
	Currency            string     `grove:"currency"`
	AmountCents         int64      `grove:"amount_cents"`
	DepositChargeCents  int64      `grove:"deposit_charge_cents"`
	ServiceChargesCents int64      `grove:"service_charges_cents"`
	AgreementID         string     `grove:"agreement_id"`
	PropertyID          string     `grove:"property_id"`
	ContactID           string     `grove:"contact_id"`
	BuildingID          string     `grove:"building_id"`
	ProjectID           string     `grove:"project_id"`
	UnitID              string     `grove:"unit_id"`
	CategoryID          string     `grove:"category_id"`
	DayOfMonth          int        `grove:"day_of_month"`
	NextDueDate         time.Time  `grove:"next_due_date"`
	Frequency           string     `grove:"frequency"`
	DueAfterDays        int        `grove:"due_after_days"`
	EndDate             *time.Time `grove:"end_date"`
	Active              bool       `grove:"active"`
	DescriptionTemplate string     `grove:"description_template"`
	NumberPrefix        string     `grove:"number_prefix"`
	GeneratedCount      int        `grove:"generated_count"`
	LastRunAt           *time.Time `grove:"last_run_at"`
	CreatedAt           time.Time  `grove:"created_at"`
	UpdatedAt           time.Time  `grove:"updated_at"`
}

func toTemplateModel(t *recurring.Template) *templateModel {
	return &templateModel{
		ID:                  t.ID.String(),
		Direction:           string(t.Direction),
		Type:                string(t.Type),
		Currency:            t.Amount.Currency,
		AmountCents:         t.Amount.Amount,
		DepositChargeCents:  t.SecurityDepositCharge.Amount,
		ServiceChargesCents: t.ServiceCharges.Amount,
		AgreementID:         t.AgreementID,
		PropertyID:          t.PropertyID,
		ContactID:           t.ContactID,
		BuildingID:          t.BuildingID,
		ProjectID:           t.ProjectID,
		UnitID:              t.UnitID,
		CategoryID:          t.CategoryID,
		DayOfMonth:          t.DayOfMonth,
		NextDueDate:         t.NextDueDate,
		Frequency:           string(t.Frequency),
		DueAfterDays:        t.DueAfterDays,
		EndDate:             t.EndDate,
		Active:              t.Active,
		DescriptionTemplate: t.DescriptionTemplate,
		NumberPrefix:        t.NumberPrefix,
		GeneratedCount:      t.GeneratedCount,
		LastRunAt:           t.LastRunAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func fromTemplateModel(m *templateModel) (*recurring.Template, error) {
	tplID, err := id.ParseTemplateID(m.ID)
	if err != nil {
		return nil, err
	}

	return &recurring.Template{
		Timestamps: types.Timestamps{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                    tplID,
		Direction:             invoice.Direction(m.Direction),
		Type:                  invoice.Type(m.Type),
		Amount:                types.Money{Amount: m.AmountCents, Currency: m.Currency},
		AgreementID:           m.AgreementID,
		PropertyID:            m.PropertyID,
		ContactID:             m.ContactID,
		BuildingID:            m.BuildingID,
		ProjectID:             m.ProjectID,
		UnitID:                m.UnitID,
		CategoryID:            m.CategoryID,
		SecurityDepositCharge: types.Money{Amount: m.DepositChargeCents, Currency: m.Currency},
		ServiceCharges:        types.Money{Amount: m.ServiceChargesCents, Currency: m.Currency},
		DayOfMonth:            m.DayOfMonth,
		NextDueDate:           m.NextDueDate,
		Frequency:             recurring.Frequency(m.Frequency),
		DueAfterDays:          m.DueAfterDays,
		EndDate:               m.EndDate,
		Active:                m.Active,
		DescriptionTemplate:   m.DescriptionTemplate,
		NumberPrefix:          m.NumberPrefix,
		GeneratedCount:        m.GeneratedCount,
		LastRunAt:             m.LastRunAt,
	}, nil
}

// ==================== Directory models ====================

type entityModel struct {
	grove.BaseModel `grove:"table:rentledger_entities"`

	Kind       string `grove:"kind,pk"`
	ID         string `grove:"id,pk"`
	Name       string `grove:"name"`
	Role       string `grove:"role"`
	BuildingID string `grove:"building_id"`
	OwnerID    string `grove:"owner_id"`
	ProjectID  string `grove:"project_id"`
}

func toEntityModel(e *directory.Entity) *entityModel {
	return &entityModel{
		Kind:       string(e.Kind),
		ID:         e.ID,
		Name:       e.Name,
		Role:       string(e.Role),
		BuildingID: e.BuildingID,
		OwnerID:    e.OwnerID,
		ProjectID:  e.ProjectID,
	}
}

func fromEntityModel(m *entityModel) *directory.Entity {
	return &directory.Entity{
		Kind:       directory.Kind(m.Kind),
		ID:         m.ID,
		Name:       m.Name,
		Role:       directory.Role(m.Role),
		BuildingID: m.BuildingID,
		OwnerID:    m.OwnerID,
		ProjectID:  m.ProjectID,
	}
}

// ==================== Category models ====================

type categoryModel struct {
	grove.BaseModel `grove:"table:rentledger_categories"`

	ID   string `grove:"id,pk"`
	Name string `grove:"name"`
	Kind string `grove:"kind"`
}

func toCategoryModel(c *category.Category) *categoryModel {
	return &categoryModel{ID: c.ID, Name: c.Name, Kind: string(c.Kind)}
}

func fromCategoryModel(m *categoryModel) *category.Category {
	return &category.Category{ID: m.ID, Name: m.Name, Kind: category.Kind(m.Kind)}
}
