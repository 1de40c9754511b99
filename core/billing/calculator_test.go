package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var calc = NewCalculator(DefaultApplianceSurcharge)

func rate(price, electric string, capacity int) RoomRate {
	return RoomRate{
		PriceMonthly:     decimal.RequireFromString(price),
		BaseElectricRate: decimal.RequireFromString(electric),
		Capacity:         capacity,
	}
}

func TestMonthlyCharge(t *testing.T) {
	tests := []struct {
		name         string
		rate         RoomRate
		hasSurcharge bool
		wantRent     string
		wantElectric string
		wantTotal    string
	}{
		{"two heads no surcharge", rate("6000", "400", 2), false, "3000", "200", "3200"},
		{"two heads with surcharge", rate("6000", "400", 2), true, "3000", "200", "3350"},
		{"single occupancy", rate("4500", "0", 1), false, "4500", "0", "4500"},
		{"uneven split keeps precision", rate("5000", "100", 3), false,
			"1666.6666666666666667", "33.3333333333333333", "1700"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.MonthlyCharge(tt.rate, tt.hasSurcharge)
			assert.True(t, got.RentPerHead.Equal(decimal.RequireFromString(tt.wantRent)),
				"rentPerHead = %s", got.RentPerHead)
			assert.True(t, got.ElectricPerHead.Equal(decimal.RequireFromString(tt.wantElectric)),
				"electricPerHead = %s", got.ElectricPerHead)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total = %s", got.Total)
		})
	}
}

func TestMonthlyChargeSurchargeDelta(t *testing.T) {
	// the surcharge is a flat 150 regardless of the room
	rates := []RoomRate{
		rate("6000", "400", 2),
		rate("4500", "0", 1),
		rate("9000", "750", 4),
	}
	for _, r := range rates {
		with := calc.MonthlyCharge(r, true)
		without := calc.MonthlyCharge(r, false)
		assert.True(t, with.Total.Sub(without.Total).Equal(decimal.NewFromInt(150)))
	}
}

func TestChargeRounded(t *testing.T) {
	got := calc.MonthlyCharge(rate("5000", "100", 3), false).Rounded()
	assert.Equal(t, "1666.67", got.RentPerHead.String())
	assert.Equal(t, "33.33", got.ElectricPerHead.String())
	assert.Equal(t, "1700", got.Total.String())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", date(2024, time.January, 15), date(2024, time.February, 15)},
		{"clamps to leap February", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"clamps to non-leap February", date(2023, time.January, 31), date(2023, time.February, 28)},
		{"clamps 31st to 30-day month", date(2024, time.March, 31), date(2024, time.April, 30)},
		{"year rollover", date(2024, time.December, 15), date(2025, time.January, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDueDate(tt.in))
		})
	}
}

// Once clamped into February the day of month sticks; twelve applications
// starting from Jan 31 2024 land on Jan 29 2025 (Feb 2024 has 29 days).
func TestNextDueDateTwelveApplications(t *testing.T) {
	want := []time.Time{
		date(2024, time.February, 29),
		date(2024, time.March, 29),
		date(2024, time.April, 29),
		date(2024, time.May, 29),
		date(2024, time.June, 29),
		date(2024, time.July, 29),
		date(2024, time.August, 29),
		date(2024, time.September, 29),
		date(2024, time.October, 29),
		date(2024, time.November, 29),
		date(2024, time.December, 29),
		date(2025, time.January, 29),
	}

	d := date(2024, time.January, 31)
	for i, w := range want {
		d = NextDueDate(d)
		assert.Equal(t, w, d, "application %d", i+1)
	}
}
