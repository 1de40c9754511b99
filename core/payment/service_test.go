package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/tenant"
	dummydb "github.com/tahanan-ph/tahanan/storage/database/dummy"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*payment.Service, tenant.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	calc := billing.NewCalculator(billing.DefaultApplianceSurcharge)
	svc := payment.NewService(dummydb.NewPaymentRepository(db), calc, nil, nil, nil, nil)
	return svc, dummydb.NewTenantRepository(db)
}

// seedTenancy stores a tenant record and returns the matching read model.
func seedTenancy(t *testing.T, repo tenant.Repository, rentDue time.Time, hasSurcharge bool) payment.Tenancy {
	t.Helper()
	seeded, err := repo.CreateTenant(context.Background(), tenant.Tenant{
		RoomID:       "room-1",
		TenantName:   "Juan Dela Cruz",
		HasSurcharge: hasSurcharge,
		RentDue:      rentDue,
		Status:       tenant.StatusActive,
	})
	require.NoError(t, err)
	return payment.Tenancy{
		TenantID:     seeded.ID,
		RoomID:       seeded.RoomID,
		TenantName:   seeded.TenantName,
		RentDue:      seeded.RentDue,
		HasSurcharge: seeded.HasSurcharge,
		Rate: billing.RoomRate{
			PriceMonthly:     decimal.NewFromInt(6000),
			BaseElectricRate: decimal.NewFromInt(400),
			Capacity:         2,
		},
	}
}

func TestCreateInitial(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.February, 15), true)

	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)

	// 6000/2 + 400/2 + 150
	assert.True(t, pmt.Amount.Equal(decimal.NewFromInt(3350)), "amount = %s", pmt.Amount)
	assert.True(t, pmt.SurchargeAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, payment.StatusPending, pmt.Status)
	assert.Equal(t, date(2024, time.February, 15), pmt.DueDate)
	assert.Equal(t, "Initial payment", pmt.Notes)
}

func TestCreateAdvance(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.January, 31), false)

	pmt, err := svc.CreateAdvance(ctx, tenancy)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, pmt.Status)
	assert.Equal(t, "Advance payment", pmt.Notes)

	// due date rolled one calendar month, clamped into leap February
	assert.Equal(t, date(2024, time.February, 29), pmt.DueDate)

	// the stored rent due date moved with it, atomically
	stored, err := tenantRepo.GetTenantByID(ctx, tenancy.TenantID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), stored.RentDue)
}

func TestCreateAdvanceRejectsDuplicatePending(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.March, 5), false)

	_, err := svc.CreateAdvance(ctx, tenancy)
	require.NoError(t, err)

	_, err = svc.CreateAdvance(ctx, tenancy)
	assert.Equal(t, payment.ErrPaymentPending, err)

	// settle it; the next advance goes through
	payments, err := svc.Query(ctx, &payment.QueryFilter{TenantID: tenancy.TenantID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	_, err = svc.MarkPaid(ctx, payments[0].ID, "OR-0001", payment.MethodCash)
	require.NoError(t, err)

	stored, err := tenantRepo.GetTenantByID(ctx, tenancy.TenantID)
	require.NoError(t, err)
	tenancy.RentDue = stored.RentDue
	_, err = svc.CreateAdvance(ctx, tenancy)
	assert.NoError(t, err)
}

func TestCreateInitialKeepsFullPrecision(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()

	tenancy := seedTenancy(t, tenantRepo, date(2024, time.May, 1), false)
	tenancy.Rate = billing.RoomRate{
		PriceMonthly:     decimal.NewFromInt(5000),
		BaseElectricRate: decimal.Zero,
		Capacity:         3,
	}

	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)

	// a three-way split of 5000 does not terminate; the stored amount keeps
	// the full quotient and is rounded to centavos only for display
	want := decimal.NewFromInt(5000).Div(decimal.NewFromInt(3))
	assert.True(t, pmt.Amount.Equal(want), "amount = %s", pmt.Amount)
	assert.False(t, pmt.Amount.Equal(pmt.Amount.Round(2)))

	stored, err := svc.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(want), "stored amount = %s", stored.Amount)
}

func TestOverdueDays(t *testing.T) {
	now := date(2024, time.January, 10)
	payment.NowFunc = func() time.Time { return now }
	defer func() { payment.NowFunc = time.Now }()

	tests := []struct {
		name string
		pmt  payment.Payment
		want int
	}{
		{"pending past due", payment.Payment{Status: payment.StatusPending, DueDate: date(2024, time.January, 1)}, 9},
		{"pending due today", payment.Payment{Status: payment.StatusPending, DueDate: date(2024, time.January, 10)}, 0},
		{"paid past due", payment.Payment{Status: payment.StatusPaid, DueDate: date(2024, time.January, 1)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pmt.OverdueDays(now))
		})
	}

	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.January, 1), false)
	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)

	// reads surface the count
	payments, err := svc.Query(ctx, &payment.QueryFilter{View: payment.ViewOverdue})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 9, payments[0].DaysOverdue)

	stored, err := svc.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.DaysOverdue)

	// settling zeroes it, past due date or not
	_, err = svc.MarkPaid(ctx, pmt.ID, "OR-0001", payment.MethodCash)
	require.NoError(t, err)
	stored, err = svc.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.DaysOverdue)
}

func TestMarkPaid(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.April, 10), false)

	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, pmt.ID, "OR-0001", payment.MethodGCash)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, paid.Status)
	assert.Equal(t, "OR-0001", paid.ReferenceNo)
	assert.Equal(t, payment.MethodGCash, paid.PaymentMethod)
	assert.False(t, paid.PaymentDate.IsZero())

	// marking a Paid payment again is a no-op success
	again, err := svc.MarkPaid(ctx, pmt.ID, "OR-0002", payment.MethodCash)
	require.NoError(t, err)
	assert.Equal(t, "OR-0001", again.ReferenceNo, "repeat call must not overwrite")
}

func TestMarkPaidTerminalStates(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.April, 10), false)

	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, pmt.ID)
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, pmt.ID, "OR-0001", payment.MethodCash)
	assert.Equal(t, payment.ErrNotPending, err)

	_, err = svc.MarkFailed(ctx, pmt.ID)
	assert.Equal(t, payment.ErrNotPending, err)

	_, err = svc.MarkPaid(ctx, "nope", "OR-0001", payment.MethodCash)
	assert.Equal(t, payment.ErrNotFound, err)
}

func TestQueryViews(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()

	now := date(2024, time.June, 15)
	payment.NowFunc = func() time.Time { return now }
	defer func() { payment.NowFunc = time.Now }()

	overdueT := seedTenancy(t, tenantRepo, date(2024, time.June, 1), false)
	upcomingT := seedTenancy(t, tenantRepo, date(2024, time.June, 20), false)
	laterT := seedTenancy(t, tenantRepo, date(2024, time.July, 30), false)
	paidT := seedTenancy(t, tenantRepo, date(2024, time.June, 10), false)

	for _, tenancy := range []payment.Tenancy{overdueT, upcomingT, laterT} {
		_, err := svc.CreateInitial(ctx, tenancy)
		require.NoError(t, err)
	}
	paidPmt, err := svc.CreateInitial(ctx, paidT)
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paidPmt.ID, "OR-0001", payment.MethodCash)
	require.NoError(t, err)

	tests := []struct {
		view      payment.View
		wantCount int
	}{
		{payment.ViewHistory, 4},
		{payment.ViewOverdue, 1},
		{payment.ViewUpcoming, 1}, // due within 7 days; July 30 is out
		{payment.ViewPending, 3},
		{payment.ViewPaid, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			payments, err := svc.Query(ctx, &payment.QueryFilter{View: tt.view})
			require.NoError(t, err)
			assert.Len(t, payments, tt.wantCount)
		})
	}

	// an unknown view is a validation error
	_, err = svc.Query(ctx, &payment.QueryFilter{View: "Bogus"})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "want a validation error, got %v", err)
}

func TestStats(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()

	now := date(2024, time.June, 15)
	payment.NowFunc = func() time.Time { return now }
	defer func() { payment.NowFunc = time.Now }()

	overdueT := seedTenancy(t, tenantRepo, date(2024, time.June, 1), false) // 3200
	paidT := seedTenancy(t, tenantRepo, date(2024, time.June, 10), true)    // 3350

	_, err := svc.CreateInitial(ctx, overdueT)
	require.NoError(t, err)
	paidPmt, err := svc.CreateInitial(ctx, paidT)
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paidPmt.ID, "OR-0001", payment.MethodCash)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.PaidCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(3350)), "totalPaid = %s", stats.TotalPaid)
	assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(3200)), "totalPending = %s", stats.TotalPending)
	assert.True(t, stats.TotalAmount.Equal(decimal.NewFromInt(6550)), "totalAmount = %s", stats.TotalAmount)
}

func TestUpdateLifecycle(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.April, 10), false)

	pmt, err := svc.CreateInitial(ctx, tenancy)
	require.NoError(t, err)

	// a status change through Update rides the lifecycle
	updated, err := svc.Update(ctx, pmt.ID, payment.UpdatePayment{Status: payment.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, updated.Status)

	// terminal states never revert to Pending
	_, err = svc.Update(ctx, pmt.ID, payment.UpdatePayment{Status: payment.StatusPending})
	assert.Equal(t, payment.ErrNotPending, err)
}

func TestUpdateClearsFields(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, tenantRepo, date(2024, time.April, 10), false)

	pmt, err := svc.Create(ctx, payment.NewPayment{
		TenantID:           tenancy.TenantID,
		Amount:             decimal.NewFromInt(500),
		DueDate:            date(2024, time.April, 10),
		ElectricityReading: decimal.NewFromInt(42),
		Notes:              "meter read",
	}, tenancy.RoomID)
	require.NoError(t, err)

	// nil fields stay untouched
	newDue := date(2024, time.April, 20)
	updated, err := svc.Update(ctx, pmt.ID, payment.UpdatePayment{DueDate: &newDue})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "meter read", updated.Notes)
	assert.Equal(t, newDue, updated.DueDate)

	// set fields may be zeroed out
	zero := decimal.Zero
	empty := ""
	updated, err = svc.Update(ctx, pmt.ID, payment.UpdatePayment{
		Amount:             &zero,
		ElectricityReading: &zero,
		Notes:              &empty,
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.IsZero())
	assert.True(t, updated.ElectricityReading.IsZero())
	assert.Empty(t, updated.Notes)
}
