package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type roomRepository struct {
	db *sqlx.DB
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *sqlx.DB) room.Repository {
	return &roomRepository{db: db}
}

type roomRow struct {
	ID               string          `db:"id"`
	RoomNumber       string          `db:"room_number"`
	BedType          string          `db:"bed_type"`
	Capacity         int             `db:"capacity"`
	PriceMonthly     decimal.Decimal `db:"price_monthly"`
	BaseElectricRate decimal.Decimal `db:"base_electric_rate"`
	Status           string          `db:"status"`
	CreatedAt        null.Time       `db:"created_at"`
	UpdatedAt        null.Time       `db:"updated_at"`
}

func (r roomRow) toRoom() room.Room {
	return room.Room{
		ID:               r.ID,
		RoomNumber:       r.RoomNumber,
		BedType:          r.BedType,
		Capacity:         r.Capacity,
		PriceMonthly:     r.PriceMonthly,
		BaseElectricRate: r.BaseElectricRate,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
}

func toRoomRow(rm room.Room) roomRow {
	return roomRow{
		ID:               rm.ID,
		RoomNumber:       rm.RoomNumber,
		BedType:          rm.BedType,
		Capacity:         rm.Capacity,
		PriceMonthly:     rm.PriceMonthly,
		BaseElectricRate: rm.BaseElectricRate,
		Status:           rm.Status,
		CreatedAt:        null.NewTime(rm.CreatedAt, !rm.CreatedAt.IsZero()),
		UpdatedAt:        null.NewTime(rm.UpdatedAt, !rm.UpdatedAt.IsZero()),
	}
}

const selectRoom = `SELECT id, room_number, bed_type, capacity, price_monthly, base_electric_rate, status, created_at, updated_at FROM rooms`

func (repo *roomRepository) CheckRoomNumberUniqueness(ctx context.Context, roomNumber string, excludedRooms ...room.Room) error {
	exclIDs := make([]string, 0, len(excludedRooms))
	for _, rm := range excludedRooms {
		exclIDs = append(exclIDs, rm.ID)
	}

	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT true FROM rooms WHERE room_number = $1 AND NOT (id = ANY($2)) LIMIT 1`,
		roomNumber, pq.StringArray(exclIDs),
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking room number uniqueness")
	}
	return room.ErrRoomNumberExists
}

func (repo *roomRepository) CreateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	rm.ID = uuid.New().String()
	row := toRoomRow(rm)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO rooms (id, room_number, bed_type, capacity, price_monthly, base_electric_rate, status, created_at, updated_at)
		 VALUES (:id, :room_number, :bed_type, :capacity, :price_monthly, :base_electric_rate, :status, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return room.Room{}, errors.Wrap(err, "creating room")
	}
	return rm, nil
}

func (repo *roomRepository) QueryRooms(ctx context.Context, filter *room.QueryFilter, ordering []core.DBOrdering) ([]room.Room, error) {
	query := selectRoom + ` WHERE 1=1`
	args := make([]interface{}, 0, 2)

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			query += ` AND room_number ILIKE ` + placeholder(len(args))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += ` AND status = ` + placeholder(len(args))
		}
	}
	query += orderBy(ordering)

	var rows []roomRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	rooms := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toRoom())
	}
	return rooms, nil
}

func (repo *roomRepository) GetRoomByID(ctx context.Context, id string) (room.Room, error) {
	var row roomRow
	err := repo.db.GetContext(ctx, &row, selectRoom+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return room.Room{}, room.ErrNotFound
	}
	if err != nil {
		return room.Room{}, errors.Wrap(err, "getting room")
	}
	return row.toRoom(), nil
}

func (repo *roomRepository) UpdateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	row := toRoomRow(rm)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE rooms SET room_number = :room_number, bed_type = :bed_type, capacity = :capacity,
		        price_monthly = :price_monthly, base_electric_rate = :base_electric_rate,
		        status = :status, updated_at = :updated_at
		 WHERE id = :id`,
		row,
	)
	if err != nil {
		return room.Room{}, errors.Wrap(err, "updating room")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return room.Room{}, room.ErrNotFound
	}
	return repo.GetRoomByID(ctx, rm.ID)
}

func (repo *roomRepository) SetRoomStatus(ctx context.Context, id, status string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE rooms SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return errors.Wrap(err, "setting room status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return room.ErrNotFound
	}
	return nil
}

func (repo *roomRepository) CountActiveTenants(ctx context.Context, roomID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM tenants WHERE room_id = $1 AND status = $2`,
		roomID, tenant.StatusActive,
	)
	if err != nil {
		return 0, errors.Wrap(err, "counting active tenants")
	}
	return count, nil
}

func (repo *roomRepository) DeleteRoomByID(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	return errors.Wrap(err, "deleting room")
}
