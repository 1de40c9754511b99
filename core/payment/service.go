package payment

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
)

var (
	// errors
	ErrNotFound       = errors.New("payment not found")
	ErrPaymentPending = errors.New("tenant already has a pending payment")
	ErrNotPending     = errors.New("payment is no longer pending")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		// CreateAdvancePayment inserts the payment and advances the tenant's
		// rent due date in a single transaction.
		CreateAdvancePayment(ctx context.Context, pmt Payment, nextRentDue time.Time) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields.
		// View filtering happens in the service; repositories only filter on
		// TenantID and RoomID.
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		// MarkPaymentPaid transitions a Pending payment to Paid. It errors
		// with ErrNotPending when the payment is in any other state; callers
		// decide whether that is a conflict.
		MarkPaymentPaid(ctx context.Context, id string, paidOn time.Time, referenceNo, method string) (Payment, error)
		// SetPaymentStatus transitions a Pending payment to the given terminal
		// status. Errors with ErrNotPending when the payment is not Pending.
		SetPaymentStatus(ctx context.Context, id, status string) (Payment, error)
		UpdatePayment(ctx context.Context, pmt Payment) (Payment, error)
		TenantHasPendingPayment(ctx context.Context, tenantID string) (bool, error)
		DeletePaymentByID(ctx context.Context, id string) error
	}

	// CheckoutIntent is the client-facing handle of a gateway payment.
	CheckoutIntent struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}

	// Gateway abstracts the online payment provider.
	Gateway interface {
		CreateIntent(ctx context.Context, pmt Payment) (CheckoutIntent, error)
		// ReferenceNo derives the reference number recorded on the payment
		// from a gateway intent ID.
		ReferenceNo(intentID string) string
	}

	Service struct {
		repo    Repository
		calc    billing.Calculator
		gateway Gateway
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

// NowFunc is overridable for tests.
var NowFunc = time.Now

func NewService(repo Repository, calc billing.Calculator, gw Gateway, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		calc:    calc,
		gateway: gw,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// Charge computes the tenancy's per-head monthly charge at full precision.
func (svc *Service) Charge(t Tenancy) billing.Charge {
	return svc.calc.MonthlyCharge(t.Rate, t.HasSurcharge)
}

// Create records a payment obligation entered manually by an admin.
func (svc *Service) Create(ctx context.Context, np NewPayment, roomID string) (Payment, error) {
	now := NowFunc().UTC()
	pmt := Payment{
		TenantID:           np.TenantID,
		RoomID:             roomID,
		Amount:             np.Amount,
		ElectricityReading: np.ElectricityReading,
		ElectricityCost:    np.ElectricityCost,
		Status:             StatusPending,
		DueDate:            core.Date(np.DueDate),
		Notes:              np.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return svc.repo.CreatePayment(ctx, pmt)
}

// CreateInitial records the first payment of a tenancy: the full per-head
// monthly charge, due on the tenant's rent due date.
func (svc *Service) CreateInitial(ctx context.Context, t Tenancy) (Payment, error) {
	charge := svc.calc.MonthlyCharge(t.Rate, t.HasSurcharge)

	now := NowFunc().UTC()
	pmt := Payment{
		TenantID:        t.TenantID,
		RoomID:          t.RoomID,
		Amount:          charge.Total,
		ElectricityCost: charge.ElectricPerHead,
		SurchargeAmount: charge.Surcharge,
		Status:          StatusPending,
		DueDate:         core.Date(t.RentDue),
		Notes:           "Initial payment",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreatePayment(ctx, pmt)
}

// CreateAdvance records an advance payment for the tenant's next billing
// period and rolls the tenant's rent due date forward one month. At most
// one Pending payment may exist per tenant; the insert and the due date
// update are atomic.
func (svc *Service) CreateAdvance(ctx context.Context, t Tenancy) (Payment, error) {
	hasPending, err := svc.repo.TenantHasPendingPayment(ctx, t.TenantID)
	if err != nil {
		return Payment{}, err
	}
	if hasPending {
		return Payment{}, ErrPaymentPending
	}

	charge := svc.calc.MonthlyCharge(t.Rate, t.HasSurcharge)
	nextDue := billing.NextDueDate(core.Date(t.RentDue))

	now := NowFunc().UTC()
	pmt := Payment{
		TenantID:        t.TenantID,
		RoomID:          t.RoomID,
		Amount:          charge.Total,
		ElectricityCost: charge.ElectricPerHead,
		SurchargeAmount: charge.Surcharge,
		Status:          StatusPending,
		DueDate:         nextDue,
		Notes:           "Advance payment",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateAdvancePayment(ctx, pmt, nextDue)
}

// Query returns payments matching the filter, most recently due first.
// View filtering is evaluated here so that time-relative views (Overdue,
// Upcoming) share one clock.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Payment, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	if !filter.View.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "view", Error: "invalid view"})
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_date", Ascending: false}}
	}

	payments, err := svc.repo.QueryPayments(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	matched := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if !filter.View.Matches(p, now) {
			continue
		}
		p.DaysOverdue = p.OverdueDays(now)
		matched = append(matched, p)
	}
	return matched, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	pmt.DaysOverdue = pmt.OverdueDays(NowFunc().UTC())
	return pmt, nil
}

// Stats summarizes the payments matching the filter.
func (svc *Service) Stats(ctx context.Context, filter *QueryFilter) (Stats, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.View = ViewHistory
	payments, err := svc.Query(ctx, filter)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(payments, NowFunc().UTC()), nil
}

// MarkPaid transitions a Pending payment to Paid, recording the payment
// date, method and reference number. Marking an already-Paid payment is a
// no-op success; a Failed or Cancelled payment cannot be paid.
func (svc *Service) MarkPaid(ctx context.Context, id, referenceNo, method string) (Payment, error) {
	pmt, err := svc.repo.MarkPaymentPaid(ctx, id, core.Date(NowFunc().UTC()), referenceNo, method)
	if err == nil {
		return pmt, nil
	}
	if err != ErrNotPending {
		return Payment{}, err
	}

	// lost the race or a retry; re-read to tell apart
	pmt, err = svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if pmt.Status == StatusPaid {
		return pmt, nil
	}
	return Payment{}, ErrNotPending
}

// MarkFailed transitions a Pending payment to Failed.
func (svc *Service) MarkFailed(ctx context.Context, id string) (Payment, error) {
	return svc.repo.SetPaymentStatus(ctx, id, StatusFailed)
}

// Cancel transitions a Pending payment to Cancelled.
func (svc *Service) Cancel(ctx context.Context, id string) (Payment, error) {
	return svc.repo.SetPaymentStatus(ctx, id, StatusCancelled)
}

// Update modifies an existing payment. A status change rides the same
// lifecycle rules as the dedicated transitions.
func (svc *Service) Update(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	orig, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}

	if up.Status != "" && up.Status != orig.Status {
		switch up.Status {
		case StatusPaid:
			if _, err = svc.MarkPaid(ctx, id, orig.ReferenceNo, orig.PaymentMethod); err != nil {
				return Payment{}, err
			}
		case StatusFailed, StatusCancelled:
			if _, err = svc.repo.SetPaymentStatus(ctx, id, up.Status); err != nil {
				return Payment{}, err
			}
		default:
			return Payment{}, ErrNotPending // terminal states never revert to Pending
		}
		if orig, err = svc.repo.GetPaymentByID(ctx, id); err != nil {
			return Payment{}, err
		}
	}

	// only save set fields
	pmt := orig
	if up.Amount != nil {
		pmt.Amount = *up.Amount
	}
	if up.DueDate != nil && !up.DueDate.IsZero() {
		pmt.DueDate = core.Date(*up.DueDate)
	}
	if up.ElectricityReading != nil {
		pmt.ElectricityReading = *up.ElectricityReading
	}
	if up.ElectricityCost != nil {
		pmt.ElectricityCost = *up.ElectricityCost
	}
	if up.Notes != nil {
		pmt.Notes = *up.Notes
	}
	pmt.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdatePayment(ctx, pmt)
}

// Delete removes a payment record.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetPaymentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeletePaymentByID(ctx, id)
}

// Checkout starts an online payment for a Pending payment and returns the
// gateway handle the client completes the charge with.
func (svc *Service) Checkout(ctx context.Context, id string) (CheckoutIntent, error) {
	if svc.gateway == nil {
		return CheckoutIntent{}, errors.New("no payment gateway configured")
	}
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if !pmt.IsPending() {
		return CheckoutIntent{}, ErrNotPending
	}
	return svc.gateway.CreateIntent(ctx, pmt)
}

// GatewayResult is the client's report of a completed gateway charge.
type GatewayResult struct {
	ReferenceID string `json:"reference_id" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=succeeded failed"`
}

// ConfirmGateway settles a payment from a gateway charge outcome.
func (svc *Service) ConfirmGateway(ctx context.Context, id string, res GatewayResult) (Payment, error) {
	if svc.gateway == nil {
		return Payment{}, errors.New("no payment gateway configured")
	}
	if res.Status == "succeeded" {
		return svc.MarkPaid(ctx, id, svc.gateway.ReferenceNo(res.ReferenceID), MethodStripe)
	}
	return svc.MarkFailed(ctx, id)
}

// SendReceipt emails a payment receipt to the given address.
func (svc *Service) SendReceipt(pmt Payment, to mail.Address, tenantName string) {
	if svc.mailSvc == nil || to.Address == "" {
		return
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      svc.conf.AppName + " - Payment Receipt",
			TemplateName: "payment_receipt",
			TemplateData: struct {
				TenantName  string
				Amount      string
				Electricity string
				Surcharge   string
				PaidOn      string
				ReferenceNo string
			}{
				TenantName:  tenantName,
				Amount:      pmt.Amount.StringFixed(2),
				Electricity: pmt.ElectricityCost.StringFixed(2),
				Surcharge:   pmt.SurchargeAmount.StringFixed(2),
				PaidOn:      pmt.PaymentDate.Format("Jan 02, 2006"),
				ReferenceNo: pmt.ReferenceNo,
			},
		},
	)
}
