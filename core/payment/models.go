package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
)

// Payment statuses. Pending is the initial state; the other three are
// terminal. Only Pending payments may transition.
const (
	StatusPending   = "Pending"
	StatusPaid      = "Paid"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
)

// Well-known payment methods; PaymentMethod is free-form otherwise.
const (
	MethodStripe       = "stripe"
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodGCash        = "gcash"
	MethodPayMaya      = "paymaya"
)

type Payment struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	RoomID             string          `json:"room_id"`
	Amount             decimal.Decimal `json:"amount"`
	ElectricityReading decimal.Decimal `json:"electricity_reading"` // kWh
	ElectricityCost    decimal.Decimal `json:"electricity_cost"`
	SurchargeAmount    decimal.Decimal `json:"surcharge_amount"`
	Status             string          `json:"payment_status"`
	PaymentDate        time.Time       `json:"payment_date"` // set only when Status becomes Paid
	DueDate            time.Time       `json:"due_date"`
	PaymentMethod      string          `json:"payment_method"`
	ReferenceNo        string          `json:"reference_no"`
	Notes              string          `json:"notes"` // display text only, never computed input
	CreatedAt          time.Time       `json:"created_at"` // UTC
	UpdatedAt          time.Time       `json:"updated_at"` // UTC

	// DaysOverdue is derived on read by the service, never stored.
	DaysOverdue int `json:"days_overdue"`
}

func (p Payment) IsPending() bool { return p.Status == StatusPending }
func (p Payment) IsPaid() bool    { return p.Status == StatusPaid }

// IsOverdue reports whether the payment is past due. Overdue is derived on
// every read, never stored: a payment is overdue iff it is still Pending
// and its due date has passed.
func (p Payment) IsOverdue(now time.Time) bool {
	if p.Status != StatusPending || p.DueDate.IsZero() {
		return false
	}
	return p.DueDate.Before(core.Date(now))
}

// OverdueDays returns the number of whole days the payment is past due.
// Settled payments are never overdue, whatever their due date; only a
// Pending payment past its due date reports a positive count.
func (p Payment) OverdueDays(now time.Time) int {
	if !p.IsOverdue(now) {
		return 0
	}
	today := core.Date(now)
	due := core.Date(p.DueDate)
	return int(today.Sub(due).Hours() / 24)
}

// IsUpcoming reports whether the payment is Pending with a due date within
// the next 7 days inclusive.
func (p Payment) IsUpcoming(now time.Time) bool {
	if p.Status != StatusPending {
		return false
	}
	today := core.Date(now)
	due := core.Date(p.DueDate)
	return !due.Before(today) && !due.After(today.AddDate(0, 0, 7))
}

// Views over the payment set consumed by the admin dashboard. All are
// derived filters; no extra state is kept.
type View string

const (
	ViewHistory  View = "History"
	ViewOverdue  View = "Overdue"
	ViewUpcoming View = "Upcoming"
	ViewPaid     View = "Paid"
	ViewPending  View = "Pending"
)

var Views = []View{ViewHistory, ViewOverdue, ViewUpcoming, ViewPaid, ViewPending}

func (v View) IsValid() bool {
	for _, view := range Views {
		if v == view {
			return true
		}
	}
	return false
}

// Matches applies the view's filter to a payment at a given time.
func (v View) Matches(p Payment, now time.Time) bool {
	switch v {
	case ViewOverdue:
		return p.IsOverdue(now)
	case ViewUpcoming:
		return p.IsUpcoming(now)
	case ViewPaid:
		return p.Status == StatusPaid
	case ViewPending:
		return p.Status == StatusPending
	default: // History
		return true
	}
}

type QueryFilter struct {
	View     View   `query:"view"`
	TenantID string `query:"tenant_id"`
	RoomID   string `query:"room_id"`
}

func (qf *QueryFilter) Clean() {
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.RoomID = core.CleanString(qf.RoomID)
	if qf.View == "" {
		qf.View = ViewHistory
	}
}

// Stats summarizes a payment set for the admin dashboard.
type Stats struct {
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidCount    int             `json:"paid_count"`
	PendingCount int             `json:"pending_count"`
	OverdueCount int             `json:"overdue_count"`
	TotalCount   int             `json:"total_count"`
}

// ComputeStats derives summary statistics over the given payments.
func ComputeStats(payments []Payment, now time.Time) Stats {
	stats := Stats{
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
		TotalAmount:  decimal.Zero,
		TotalCount:   len(payments),
	}
	for _, p := range payments {
		switch p.Status {
		case StatusPaid:
			stats.TotalPaid = stats.TotalPaid.Add(p.Amount)
			stats.PaidCount++
		case StatusPending:
			stats.TotalPending = stats.TotalPending.Add(p.Amount)
			stats.PendingCount++
			if p.IsOverdue(now) {
				stats.OverdueCount++
			}
		}
		stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
	}
	return stats
}

// Tenancy carries the tenant-side inputs of a billing operation. It is a
// read model handed over by the tenant service; the payment service never
// reaches into tenant storage directly.
type Tenancy struct {
	TenantID     string
	RoomID       string
	TenantName   string
	RentDue      time.Time
	HasSurcharge bool
	Rate         billing.RoomRate
}

// NewPayment contains information needed for an admin to record a payment
// obligation manually.
type NewPayment struct {
	TenantID           string          `json:"tenant_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"due_date" validate:"required"`
	ElectricityReading decimal.Decimal `json:"electricity_reading"`
	ElectricityCost    decimal.Decimal `json:"electricity_cost"`
	Notes              string          `json:"notes"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.TenantID = core.CleanString(np.TenantID)
	np.Notes = core.CleanString(np.Notes)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be greater than 0"})
	}
	return nil
}

// UpdatePayment defines what an admin may modify on an existing payment.
// Fields left nil are untouched, so an amount or a reading can be zeroed
// out and notes can be cleared. A Status change goes through the same
// lifecycle rules as the dedicated transitions.
type UpdatePayment struct {
	Amount             *decimal.Decimal `json:"amount"`
	DueDate            *time.Time       `json:"due_date"`
	ElectricityReading *decimal.Decimal `json:"electricity_reading"`
	ElectricityCost    *decimal.Decimal `json:"electricity_cost"`
	Status             string           `json:"payment_status" validate:"omitempty,oneof=Pending Paid Failed Cancelled"`
	Notes              *string          `json:"notes"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	if up.Notes != nil {
		*up.Notes = core.CleanString(*up.Notes)
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Amount != nil && up.Amount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount cannot be negative"})
	}
	return nil
}
