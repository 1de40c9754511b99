// Package billing computes what a tenant owes for one billing period.
//
// A room's monthly price and base electric rate are flat costs for the whole
// room, split evenly across its occupant capacity ("per-head"). Tenants with
// additional registered appliances pay a flat monthly surcharge on top.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultApplianceSurcharge is the flat surcharge in PHP applied when a
// tenant has additional registered appliances. Overridable via config.
var DefaultApplianceSurcharge = decimal.NewFromInt(150)

type (
	// RoomRate carries the room pricing inputs of a charge computation.
	// Capacity must be >= 1; that minimum is enforced at room creation,
	// not here.
	RoomRate struct {
		PriceMonthly     decimal.Decimal
		BaseElectricRate decimal.Decimal
		Capacity         int
	}

	// Charge is the per-head breakdown of one monthly billing period.
	// Values are kept at full precision; rounding happens only at
	// display/serialization boundaries via Rounded.
	Charge struct {
		RentPerHead     decimal.Decimal `json:"rent_per_head"`
		ElectricPerHead decimal.Decimal `json:"electric_per_head"`
		Surcharge       decimal.Decimal `json:"surcharge"`
		Total           decimal.Decimal `json:"total"`
	}

	Calculator struct {
		surcharge decimal.Decimal
	}
)

func NewCalculator(applianceSurcharge decimal.Decimal) Calculator {
	return Calculator{surcharge: applianceSurcharge}
}

// MonthlyCharge computes the per-head rent and electricity split plus the
// optional appliance surcharge for one billing period.
func (c Calculator) MonthlyCharge(rate RoomRate, hasSurcharge bool) Charge {
	capacity := decimal.NewFromInt(int64(rate.Capacity))

	rentPerHead := rate.PriceMonthly.Div(capacity)
	electricPerHead := rate.BaseElectricRate.Div(capacity)

	surcharge := decimal.Zero
	if hasSurcharge {
		surcharge = c.surcharge
	}

	return Charge{
		RentPerHead:     rentPerHead,
		ElectricPerHead: electricPerHead,
		Surcharge:       surcharge,
		Total:           rentPerHead.Add(electricPerHead).Add(surcharge),
	}
}

// Rounded returns the charge with every component rounded half-up to
// 2 decimal places, for display.
func (c Charge) Rounded() Charge {
	return Charge{
		RentPerHead:     c.RentPerHead.Round(2),
		ElectricPerHead: c.ElectricPerHead.Round(2),
		Surcharge:       c.Surcharge.Round(2),
		Total:           c.Total.Round(2),
	}
}

// NextDueDate returns d plus one calendar month, preserving the day of
// month where the target month has enough days and clamping to that
// month's last day otherwise (Jan 31 -> Feb 28/29).
func NextDueDate(d time.Time) time.Time {
	year, month, day := d.Date()

	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, d.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, d.Location())
}
