package room

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
)

// Room statuses
const (
	StatusAvailable = "Available"
	StatusOccupied  = "Occupied"
)

// Bed types
const (
	BedTypeSingle = "Single Bed"
	BedTypeDouble = "Double Deck"
	BedTypeBunk   = "Bunk Bed"
)

var BedTypes = []string{BedTypeSingle, BedTypeDouble, BedTypeBunk}

type Room struct {
	ID               string          `json:"id"`
	RoomNumber       string          `json:"room_number"`
	BedType          string          `json:"bed_type"`
	Capacity         int             `json:"capacity"`
	PriceMonthly     decimal.Decimal `json:"price_monthly"`
	BaseElectricRate decimal.Decimal `json:"base_electric_rate"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"` // UTC
	UpdatedAt        time.Time       `json:"updated_at"` // UTC
}

// Rate returns the billing inputs of this room.
func (r Room) Rate() billing.RoomRate {
	return billing.RoomRate{
		PriceMonthly:     r.PriceMonthly,
		BaseElectricRate: r.BaseElectricRate,
		Capacity:         r.Capacity,
	}
}

// PricePerHead is the display-rounded per-head rent share.
func (r Room) PricePerHead() decimal.Decimal {
	if r.Capacity < 1 {
		return decimal.Zero
	}
	return r.PriceMonthly.Div(decimal.NewFromInt(int64(r.Capacity))).Round(2)
}

// NewRoom contains information needed to create a new Room.
type NewRoom struct {
	RoomNumber       string          `json:"room_number" validate:"required"`
	BedType          string          `json:"bed_type" validate:"omitempty,bedtype"`
	Capacity         int             `json:"capacity" validate:"required,min=1"`
	PriceMonthly     decimal.Decimal `json:"price_monthly"`
	BaseElectricRate decimal.Decimal `json:"base_electric_rate"`
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.RoomNumber = core.CleanString(nr.RoomNumber)
	if nr.BedType == "" {
		nr.BedType = BedTypeSingle
	}

	if err := validate.Struct(nr); err != nil {
		return err
	}
	return validateRates(nr.PriceMonthly, nr.BaseElectricRate)
}

// UpdateRoom defines what information may be provided to modify an existing Room.
type UpdateRoom struct {
	RoomNumber       string          `json:"room_number"`
	BedType          string          `json:"bed_type" validate:"omitempty,bedtype"`
	Capacity         int             `json:"capacity" validate:"omitempty,min=1"`
	PriceMonthly     decimal.Decimal `json:"price_monthly"`
	BaseElectricRate decimal.Decimal `json:"base_electric_rate"`
}

func (ur *UpdateRoom) Validate(validate *validator.Validate, origRoom Room) error {
	roomNumber := core.CleanString(ur.RoomNumber)
	if roomNumber != "" {
		ur.RoomNumber = roomNumber
	} else {
		ur.RoomNumber = origRoom.RoomNumber
	}
	if ur.BedType == "" {
		ur.BedType = origRoom.BedType
	}
	if ur.Capacity == 0 {
		ur.Capacity = origRoom.Capacity
	}
	if ur.PriceMonthly.IsZero() {
		ur.PriceMonthly = origRoom.PriceMonthly
	}
	if ur.BaseElectricRate.IsZero() {
		ur.BaseElectricRate = origRoom.BaseElectricRate
	}

	if err := validate.Struct(ur); err != nil {
		return err
	}
	return validateRates(ur.PriceMonthly, ur.BaseElectricRate)
}

func validateRates(priceMonthly, baseElectricRate decimal.Decimal) error {
	var flds []core.FieldError
	if !priceMonthly.IsPositive() {
		flds = append(flds, core.FieldError{Field: "price_monthly", Error: "monthly price must be greater than 0"})
	}
	if baseElectricRate.IsNegative() {
		flds = append(flds, core.FieldError{Field: "base_electric_rate", Error: "electric rate cannot be negative"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}

// Validators

var (
	bedTypeTag  = "bedtype"
	bedTypeText = "invalid bed type"
)

// InitValidators registers the room-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(bedTypeTag, bedTypeValidation)
	core.RegisterCustomTranslation(validate, translator, bedTypeTag, bedTypeText)
}

// bedTypeValidation checks that the provided bed type is a known one.
func bedTypeValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, bt := range BedTypes {
		if val == bt {
			return true
		}
	}
	return false
}
