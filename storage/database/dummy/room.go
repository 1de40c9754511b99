package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type roomRepository struct {
	db       *roomTable
	tenantDB *tenantTable
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *DB) room.Repository {
	return &roomRepository{db: db.room, tenantDB: db.tenant}
}

func (repo *roomRepository) query() []room.Room {
	rooms := make([]room.Room, 0, len(repo.db.table))
	for _, rm := range repo.db.table {
		rooms = append(rooms, *rm)
	}
	return rooms
}

func (repo *roomRepository) CheckRoomNumberUniqueness(_ context.Context, roomNumber string, excludedRooms ...room.Room) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rm := range repo.query() {
		if rm.RoomNumber != roomNumber {
			continue
		}
		excluded := false
		for _, excl := range excludedRooms {
			if excl.ID == rm.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return room.ErrRoomNumberExists
		}
	}
	return nil
}

func (repo *roomRepository) CreateRoom(_ context.Context, rm room.Room) (room.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rm.ID = uuid.New().String()
	repo.db.table[rm.ID] = &rm
	return rm, nil
}

func (repo *roomRepository) QueryRooms(_ context.Context, filter *room.QueryFilter, ordering []core.DBOrdering) ([]room.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := repo.query()
	if filter != nil {
		if filter.Search != "" {
			var filtered []room.Room
			for _, rm := range rooms {
				if strings.Contains(strings.ToLower(rm.RoomNumber), strings.ToLower(filter.Search)) {
					filtered = append(filtered, rm)
				}
			}
			rooms = filtered
		}
		if rooms != nil && filter.Status != "" {
			var filtered []room.Room
			for _, rm := range rooms {
				if rm.Status == filter.Status {
					filtered = append(filtered, rm)
				}
			}
			rooms = filtered
		}
	}

	for _, ord := range ordering {
		if ord.Field == "room_number" {
			sort.SliceStable(rooms, func(i, j int) bool {
				if ord.Ascending {
					return rooms[i].RoomNumber < rooms[j].RoomNumber
				}
				return rooms[i].RoomNumber > rooms[j].RoomNumber
			})
		}
	}
	return rooms, nil
}

func (repo *roomRepository) GetRoomByID(_ context.Context, id string) (room.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rm, ok := repo.db.table[id]; ok {
		return *rm, nil
	}
	return room.Room{}, room.ErrNotFound
}

func (repo *roomRepository) UpdateRoom(_ context.Context, rm room.Room) (room.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origRm, ok := repo.db.table[rm.ID]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	origRm.RoomNumber = rm.RoomNumber
	origRm.BedType = rm.BedType
	origRm.Capacity = rm.Capacity
	origRm.PriceMonthly = rm.PriceMonthly
	origRm.BaseElectricRate = rm.BaseElectricRate
	origRm.Status = rm.Status
	origRm.UpdatedAt = rm.UpdatedAt

	repo.db.table[rm.ID] = origRm
	return *origRm, nil
}

func (repo *roomRepository) SetRoomStatus(_ context.Context, id, status string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rm, ok := repo.db.table[id]
	if !ok {
		return room.ErrNotFound
	}
	rm.Status = status
	return nil
}

func (repo *roomRepository) CountActiveTenants(_ context.Context, roomID string) (int, error) {
	repo.tenantDB.RLock()
	defer repo.tenantDB.RUnlock()

	var count int
	for _, t := range repo.tenantDB.table {
		if t.RoomID == roomID && t.Status == tenant.StatusActive {
			count++
		}
	}
	return count, nil
}

func (repo *roomRepository) DeleteRoomByID(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
