package tenant_test

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
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
	dummydb "github.com/tahanan-ph/tahanan/storage/database/dummy"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	svc        *tenant.Service
	roomSvc    *room.Service
	paymentSvc *payment.Service
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	calc := billing.NewCalculator(billing.DefaultApplianceSurcharge)
	roomSvc := room.NewService(dummydb.NewRoomRepository(db))
	paymentSvc := payment.NewService(dummydb.NewPaymentRepository(db), calc, nil, nil, nil, nil)
	svc := tenant.NewService(dummydb.NewTenantRepository(db), roomSvc, paymentSvc)
	return testEnv{svc: svc, roomSvc: roomSvc, paymentSvc: paymentSvc}
}

func (env testEnv) createRoom(t *testing.T, number string, capacity int) room.Room {
	t.Helper()
	rm, err := env.roomSvc.Create(context.Background(), room.NewRoom{
		RoomNumber:       number,
		BedType:          room.BedTypeDouble,
		Capacity:         capacity,
		PriceMonthly:     decimal.NewFromInt(6000),
		BaseElectricRate: decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	return rm
}

func TestMoveIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rm := env.createRoom(t, "101", 2)

	now := date(2024, time.January, 31)
	tenant.NowFunc = func() time.Time { return now }
	payment.NowFunc = tenant.NowFunc
	defer func() {
		tenant.NowFunc = time.Now
		payment.NowFunc = time.Now
	}()

	tnt, err := env.svc.MoveIn(ctx, tenant.NewTenant{
		RoomID:     rm.ID,
		TenantName: "Juan Dela Cruz",
		Email:      "juan@test.test",
	})
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, tnt.Status)

	// defaults: rent starts today, due one calendar month later (clamped)
	assert.Equal(t, date(2024, time.January, 31), tnt.RentStart)
	assert.Equal(t, date(2024, time.February, 29), tnt.RentDue)

	// one bed of two taken; still Available
	stored, err := env.roomSvc.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusAvailable, stored.Status)

	// the initial Pending payment was recorded
	payments, err := env.paymentSvc.Query(ctx, &payment.QueryFilter{TenantID: tnt.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusPending, payments[0].Status)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(3200)), "amount = %s", payments[0].Amount)
	assert.Equal(t, tnt.RentDue, payments[0].DueDate)

	// the second move-in fills the room
	_, err = env.svc.MoveIn(ctx, tenant.NewTenant{RoomID: rm.ID, TenantName: "Maria Clara"})
	require.NoError(t, err)
	stored, err = env.roomSvc.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, stored.Status)

	// a full room rejects further move-ins
	_, err = env.svc.MoveIn(ctx, tenant.NewTenant{RoomID: rm.ID, TenantName: "Jose Rizal"})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	assert.Equal(t, "room_id", vErr.Fields[0].Field)
}

func TestMoveOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rm := env.createRoom(t, "201", 1)

	tnt, err := env.svc.MoveIn(ctx, tenant.NewTenant{RoomID: rm.ID, TenantName: "Juan Dela Cruz"})
	require.NoError(t, err)

	stored, err := env.roomSvc.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, stored.Status)

	out, err := env.svc.MoveOut(ctx, tnt.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusInactive, out.Status)

	stored, err = env.roomSvc.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusAvailable, stored.Status)

	// the record and its payments survive the move-out
	payments, err := env.paymentSvc.Query(ctx, &payment.QueryFilter{TenantID: tnt.ID})
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	// moving out twice is a conflict
	_, err = env.svc.MoveOut(ctx, tnt.ID)
	assert.Equal(t, tenant.ErrNotActive, err)
}

func TestCreateAdvance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rm := env.createRoom(t, "301", 2)

	tnt, err := env.svc.MoveIn(ctx, tenant.NewTenant{
		RoomID:     rm.ID,
		TenantName: "Juan Dela Cruz",
		RentDue:    date(2024, time.March, 15),
	})
	require.NoError(t, err)

	// the initial payment is still Pending
	_, err = env.svc.CreateAdvance(ctx, tnt.ID)
	assert.Equal(t, payment.ErrPaymentPending, err)

	payments, err := env.paymentSvc.Query(ctx, &payment.QueryFilter{TenantID: tnt.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	_, err = env.paymentSvc.MarkPaid(ctx, payments[0].ID, "OR-0001", payment.MethodCash)
	require.NoError(t, err)

	pmt, err := env.svc.CreateAdvance(ctx, tnt.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 15), pmt.DueDate)

	stored, err := env.svc.GetByID(ctx, tnt.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 15), stored.RentDue)

	// inactive tenants cannot pay in advance
	_, err = env.svc.MoveOut(ctx, tnt.ID)
	require.NoError(t, err)
	_, err = env.svc.CreateAdvance(ctx, tnt.ID)
	assert.Equal(t, tenant.ErrNotActive, err)
}

func TestBilling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rm := env.createRoom(t, "401", 2)

	tnt, err := env.svc.MoveIn(ctx, tenant.NewTenant{
		RoomID:       rm.ID,
		TenantName:   "Juan Dela Cruz",
		HasSurcharge: true,
	})
	require.NoError(t, err)

	tenancy, charge, err := env.svc.Billing(ctx, tnt.ID)
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, tenancy.TenantID)
	assert.True(t, charge.RentPerHead.Equal(decimal.NewFromInt(3000)))
	assert.True(t, charge.ElectricPerHead.Equal(decimal.NewFromInt(200)))
	assert.True(t, charge.Surcharge.Equal(decimal.NewFromInt(150)))
	assert.True(t, charge.Total.Equal(decimal.NewFromInt(3350)))
}

func TestGetByProfileID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rm := env.createRoom(t, "501", 2)

	tnt, err := env.svc.MoveIn(ctx, tenant.NewTenant{
		RoomID:     rm.ID,
		TenantName: "Juan Dela Cruz",
		ProfileID:  "profile-1",
	})
	require.NoError(t, err)

	found, err := env.svc.GetByProfileID(ctx, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, found.ID)

	// only active tenancies resolve
	_, err = env.svc.MoveOut(ctx, tnt.ID)
	require.NoError(t, err)
	_, err = env.svc.GetByProfileID(ctx, "profile-1")
	assert.Equal(t, tenant.ErrNotFound, err)
}
