package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/room"
)

var (
	// errors
	ErrNotFound  = errors.New("tenant not found")
	ErrNotActive = errors.New("tenant is not active")
)

type (
	Repository interface {
		CreateTenant(ctx context.Context, t Tenant) (Tenant, error)
		// QueryTenants applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Tenant.TenantName.
		QueryTenants(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Tenant, error)
		GetTenantByID(ctx context.Context, id string) (Tenant, error)
		// GetActiveTenantByProfileID resolves the portal user's active tenancy.
		GetActiveTenantByProfileID(ctx context.Context, profileID string) (Tenant, error)
		UpdateTenant(ctx context.Context, t Tenant) (Tenant, error)
	}

	Service struct {
		repo       Repository
		roomSvc    *room.Service
		paymentSvc *payment.Service
	}
)

// NowFunc is overridable for tests.
var NowFunc = time.Now

func NewService(repo Repository, roomSvc *room.Service, paymentSvc *payment.Service) *Service {
	return &Service{
		repo:       repo,
		roomSvc:    roomSvc,
		paymentSvc: paymentSvc,
	}
}

// MoveIn assigns a tenant to a room, re-derives the room status and records
// the tenancy's initial Pending payment. Full rooms reject the move.
func (svc *Service) MoveIn(ctx context.Context, nt NewTenant) (Tenant, error) {
	rm, err := svc.roomSvc.GetByID(ctx, nt.RoomID)
	if err != nil {
		return Tenant{}, err
	}
	count, err := svc.roomSvc.Occupancy(ctx, nt.RoomID)
	if err != nil {
		return Tenant{}, err
	}
	status, err := room.StatusAfterTenantAdded(rm, count)
	if err != nil {
		return Tenant{}, core.NewValidationError(err, core.FieldError{Field: "room_id", Error: err.Error()})
	}

	now := NowFunc().UTC()
	rentStart := core.Date(nt.RentStart)
	if nt.RentStart.IsZero() {
		rentStart = core.Date(now)
	}
	rentDue := core.Date(nt.RentDue)
	if nt.RentDue.IsZero() {
		rentDue = billing.NextDueDate(rentStart)
	}

	t := Tenant{
		RoomID:        nt.RoomID,
		ProfileID:     nt.ProfileID,
		TenantName:    nt.TenantName,
		Email:         nt.Email,
		ContactNumber: nt.ContactNumber,
		HasSurcharge:  nt.HasSurcharge,
		RentStart:     rentStart,
		RentDue:       rentDue,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if t, err = svc.repo.CreateTenant(ctx, t); err != nil {
		return Tenant{}, err
	}

	if err = svc.roomSvc.SetStatus(ctx, rm.ID, status); err != nil {
		return Tenant{}, err
	}
	if _, err = svc.paymentSvc.CreateInitial(ctx, t.Tenancy(rm.Rate())); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

// MoveOut marks an active tenant Inactive and re-derives the room status.
// The tenant record and its payments are kept.
func (svc *Service) MoveOut(ctx context.Context, id string) (Tenant, error) {
	t, err := svc.repo.GetTenantByID(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if !t.IsActive() {
		return Tenant{}, ErrNotActive
	}
	rm, err := svc.roomSvc.GetByID(ctx, t.RoomID)
	if err != nil {
		return Tenant{}, err
	}
	count, err := svc.roomSvc.Occupancy(ctx, t.RoomID)
	if err != nil {
		return Tenant{}, err
	}

	t.Status = StatusInactive
	t.UpdatedAt = NowFunc().UTC()
	if t, err = svc.repo.UpdateTenant(ctx, t); err != nil {
		return Tenant{}, err
	}

	status := room.StatusAfterTenantRemoved(rm, count)
	if err = svc.roomSvc.SetStatus(ctx, rm.ID, status); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Tenant, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "tenant_name", Ascending: true}}
	}
	return svc.repo.QueryTenants(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenantByID(ctx, id)
}

// GetByProfileID resolves a portal user's active tenancy.
func (svc *Service) GetByProfileID(ctx context.Context, profileID string) (Tenant, error) {
	return svc.repo.GetActiveTenantByProfileID(ctx, profileID)
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTenant) (Tenant, error) {
	t, err := svc.repo.GetTenantByID(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	t.TenantName = ut.TenantName
	t.Email = ut.Email
	t.ContactNumber = ut.ContactNumber
	if ut.HasSurcharge != nil {
		t.HasSurcharge = *ut.HasSurcharge
	}
	if ut.RentDue != nil {
		t.RentDue = core.Date(*ut.RentDue)
	}
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTenant(ctx, t)
}

// Billing returns the tenant's current per-head charge breakdown together
// with the tenancy read model.
func (svc *Service) Billing(ctx context.Context, id string) (payment.Tenancy, billing.Charge, error) {
	t, err := svc.repo.GetTenantByID(ctx, id)
	if err != nil {
		return payment.Tenancy{}, billing.Charge{}, err
	}
	rm, err := svc.roomSvc.GetByID(ctx, t.RoomID)
	if err != nil {
		return payment.Tenancy{}, billing.Charge{}, err
	}
	tenancy := t.Tenancy(rm.Rate())
	return tenancy, svc.paymentSvc.Charge(tenancy), nil
}

// CreateAdvance records an advance payment for the tenant and rolls the
// rent due date forward one month.
func (svc *Service) CreateAdvance(ctx context.Context, id string) (payment.Payment, error) {
	t, err := svc.repo.GetTenantByID(ctx, id)
	if err != nil {
		return payment.Payment{}, err
	}
	if !t.IsActive() {
		return payment.Payment{}, ErrNotActive
	}
	rm, err := svc.roomSvc.GetByID(ctx, t.RoomID)
	if err != nil {
		return payment.Payment{}, err
	}
	return svc.paymentSvc.CreateAdvance(ctx, t.Tenancy(rm.Rate()))
}
