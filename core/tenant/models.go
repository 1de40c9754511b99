package tenant

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
)

// Tenant statuses. Moving out flips a tenant to Inactive; records are
// never hard-deleted so payment history stays intact.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

type Tenant struct {
	ID            string `json:"id"`
	RoomID        string `json:"room_id"`
	ProfileID     string `json:"profile_id"` // linked portal account, empty when none
	TenantName    string `json:"tenant_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	// HasSurcharge marks tenants with additional registered appliances,
	// billed the flat monthly surcharge.
	HasSurcharge bool      `json:"has_surcharge"`
	RentStart    time.Time `json:"rent_start"`
	RentDue      time.Time `json:"rent_due"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (t Tenant) IsActive() bool { return t.Status == StatusActive }

// Tenancy bundles the tenant's billing inputs with the room's rate for
// handover to the payment service.
func (t Tenant) Tenancy(rate billing.RoomRate) payment.Tenancy {
	return payment.Tenancy{
		TenantID:     t.ID,
		RoomID:       t.RoomID,
		TenantName:   t.TenantName,
		RentDue:      t.RentDue,
		HasSurcharge: t.HasSurcharge,
		Rate:         rate,
	}
}

// NewTenant contains information needed to move a tenant into a room.
type NewTenant struct {
	RoomID        string    `json:"room_id" validate:"required"`
	ProfileID     string    `json:"profile_id"`
	TenantName    string    `json:"tenant_name" validate:"required"`
	Email         string    `json:"email" validate:"omitempty,email"`
	ContactNumber string    `json:"contact_number"`
	HasSurcharge  bool      `json:"has_surcharge"`
	RentStart     time.Time `json:"rent_start"`
	RentDue       time.Time `json:"rent_due"`
}

func (nt *NewTenant) Validate(validate *validator.Validate) error {
	nt.RoomID = core.CleanString(nt.RoomID)
	nt.ProfileID = core.CleanString(nt.ProfileID)
	nt.TenantName = core.CleanString(nt.TenantName)
	nt.Email = core.CleanString(nt.Email, true)
	nt.ContactNumber = core.CleanString(nt.ContactNumber)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	if !nt.RentDue.IsZero() && !nt.RentStart.IsZero() && nt.RentDue.Before(nt.RentStart) {
		return core.NewValidationError(nil, core.FieldError{Field: "rent_due", Error: "rent due cannot precede rent start"})
	}
	return nil
}

// UpdateTenant defines what information may be provided to modify an
// existing Tenant. Room transfers go through move-out then move-in, not
// through an update.
type UpdateTenant struct {
	TenantName    string     `json:"tenant_name"`
	Email         string     `json:"email" validate:"omitempty,email"`
	ContactNumber string     `json:"contact_number"`
	HasSurcharge  *bool      `json:"has_surcharge"`
	RentDue       *time.Time `json:"rent_due"`
}

func (ut *UpdateTenant) Validate(validate *validator.Validate, origTenant Tenant) error {
	if name := core.CleanString(ut.TenantName); name != "" {
		ut.TenantName = name
	} else {
		ut.TenantName = origTenant.TenantName
	}
	if email := core.CleanString(ut.Email, true); email != "" {
		ut.Email = email
	} else {
		ut.Email = origTenant.Email
	}
	if contact := core.CleanString(ut.ContactNumber); contact != "" {
		ut.ContactNumber = contact
	} else {
		ut.ContactNumber = origTenant.ContactNumber
	}

	return validate.Struct(ut)
}

type QueryFilter struct {
	Search string `query:"search"`
	RoomID string `query:"room_id"`
	Status string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.RoomID == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.RoomID = core.CleanString(qf.RoomID)
	qf.Status = core.CleanString(qf.Status)
}
