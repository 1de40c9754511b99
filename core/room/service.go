package room

import (
	"context"
	"errors"
	"time"

	"github.com/tahanan-ph/tahanan/core"
)

var (
	// errors
	ErrNotFound         = errors.New("room not found")
	ErrRoomNumberExists = errors.New("a room with this number already exists")
)

type (
	Repository interface {
		CheckRoomNumberUniqueness(ctx context.Context, roomNumber string, excludedRooms ...Room) error
		CreateRoom(ctx context.Context, rm Room) (Room, error)
		// QueryRooms applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Room.RoomNumber.
		QueryRooms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Room, error)
		GetRoomByID(ctx context.Context, id string) (Room, error)
		UpdateRoom(ctx context.Context, rm Room) (Room, error)
		SetRoomStatus(ctx context.Context, id, status string) error
		CountActiveTenants(ctx context.Context, roomID string) (int, error)
		DeleteRoomByID(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkRoomNumberUniqueness(ctx context.Context, roomNumber string, exclRooms ...Room) error {
	if err := svc.repo.CheckRoomNumberUniqueness(ctx, roomNumber, exclRooms...); err != nil {
		if err == ErrRoomNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "room_number", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nr NewRoom) (Room, error) {
	if err := svc.checkRoomNumberUniqueness(ctx, nr.RoomNumber); err != nil {
		return Room{}, err
	}

	now := time.Now().UTC()
	rm := Room{
		RoomNumber:       nr.RoomNumber,
		BedType:          nr.BedType,
		Capacity:         nr.Capacity,
		PriceMonthly:     nr.PriceMonthly,
		BaseElectricRate: nr.BaseElectricRate,
		Status:           StatusAvailable,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateRoom(ctx, rm)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Room, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "room_number", Ascending: true}}
	}
	return svc.repo.QueryRooms(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoomByID(ctx, id)
}

// Occupancy returns the number of active tenants assigned to the room.
func (svc *Service) Occupancy(ctx context.Context, id string) (int, error) {
	return svc.repo.CountActiveTenants(ctx, id)
}

// SetStatus overrides the stored room status. Only tenancy moves should
// call this; the status is otherwise derived, never edited directly.
func (svc *Service) SetStatus(ctx context.Context, id, status string) error {
	return svc.repo.SetRoomStatus(ctx, id, status)
}

// Update modifies a room. Reducing capacity below the current active
// occupancy is rejected.
func (svc *Service) Update(ctx context.Context, id string, ur UpdateRoom) (Room, error) {
	orig, err := svc.repo.GetRoomByID(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if err = svc.checkRoomNumberUniqueness(ctx, ur.RoomNumber, orig); err != nil {
		return Room{}, err
	}

	if ur.Capacity != orig.Capacity {
		count, err := svc.repo.CountActiveTenants(ctx, id)
		if err != nil {
			return Room{}, err
		}
		if err = CheckCapacity(ur.Capacity, count); err != nil {
			return Room{}, core.NewValidationError(err, core.FieldError{Field: "capacity", Error: err.Error()})
		}
	}

	rm := Room{
		ID:               id,
		RoomNumber:       ur.RoomNumber,
		BedType:          ur.BedType,
		Capacity:         ur.Capacity,
		PriceMonthly:     ur.PriceMonthly,
		BaseElectricRate: ur.BaseElectricRate,
		Status:           orig.Status,
		UpdatedAt:        time.Now().UTC(),
	}
	return svc.repo.UpdateRoom(ctx, rm)
}

// Delete removes a room. Rooms with active tenants cannot be deleted.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetRoomByID(ctx, id); err != nil {
		return err
	}
	count, err := svc.repo.CountActiveTenants(ctx, id)
	if err != nil {
		return err
	}
	if err = CheckDelete(count); err != nil {
		return err
	}
	return svc.repo.DeleteRoomByID(ctx, id)
}
