package room_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
	dummydb "github.com/tahanan-ph/tahanan/storage/database/dummy"
)

func newTestService(t *testing.T) (*room.Service, tenant.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return room.NewService(dummydb.NewRoomRepository(db)), dummydb.NewTenantRepository(db)
}

func newRoom(number string, capacity int) room.NewRoom {
	return room.NewRoom{
		RoomNumber:       number,
		BedType:          room.BedTypeDouble,
		Capacity:         capacity,
		PriceMonthly:     decimal.NewFromInt(6000),
		BaseElectricRate: decimal.NewFromInt(400),
	}
}

func activeTenant(roomID string) tenant.Tenant {
	return tenant.Tenant{
		RoomID:     roomID,
		TenantName: "Juan Dela Cruz",
		Status:     tenant.StatusActive,
	}
}

func TestServiceCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, newRoom("101", 2))
	require.NoError(t, err)
	assert.NotEmpty(t, rm.ID)
	assert.Equal(t, room.StatusAvailable, rm.Status)

	// duplicate room number is a field error
	_, err = svc.Create(ctx, newRoom("101", 4))
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	assert.Equal(t, "room_number", vErr.Fields[0].Field)
}

func TestServiceUpdateCapacityGuard(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, newRoom("201", 2))
	require.NoError(t, err)

	_, err = tenantRepo.CreateTenant(ctx, activeTenant(rm.ID))
	require.NoError(t, err)
	_, err = tenantRepo.CreateTenant(ctx, activeTenant(rm.ID))
	require.NoError(t, err)

	// capacity cannot drop below the two active tenants
	_, err = svc.Update(ctx, rm.ID, room.UpdateRoom{
		RoomNumber:       rm.RoomNumber,
		BedType:          rm.BedType,
		Capacity:         1,
		PriceMonthly:     rm.PriceMonthly,
		BaseElectricRate: rm.BaseElectricRate,
	})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	assert.Equal(t, "capacity", vErr.Fields[0].Field)

	// growing it is fine
	updated, err := svc.Update(ctx, rm.ID, room.UpdateRoom{
		RoomNumber:       rm.RoomNumber,
		BedType:          rm.BedType,
		Capacity:         4,
		PriceMonthly:     rm.PriceMonthly,
		BaseElectricRate: rm.BaseElectricRate,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Capacity)
}

func TestServiceDeleteGuard(t *testing.T) {
	svc, tenantRepo := newTestService(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, newRoom("301", 2))
	require.NoError(t, err)

	seeded, err := tenantRepo.CreateTenant(ctx, activeTenant(rm.ID))
	require.NoError(t, err)

	assert.Equal(t, room.ErrHasActiveTenants, svc.Delete(ctx, rm.ID))

	// an inactive tenant no longer blocks deletion
	seeded.Status = tenant.StatusInactive
	_, err = tenantRepo.UpdateTenant(ctx, seeded)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, rm.ID))
	_, err = svc.GetByID(ctx, rm.ID)
	assert.Equal(t, room.ErrNotFound, err)
}

func TestServiceQueryDefaultOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, number := range []string{"103", "101", "102"} {
		_, err := svc.Create(ctx, newRoom(number, 2))
		require.NoError(t, err)
	}

	rooms, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "101", rooms[0].RoomNumber)
	assert.Equal(t, "102", rooms[1].RoomNumber)
	assert.Equal(t, "103", rooms[2].RoomNumber)
}
