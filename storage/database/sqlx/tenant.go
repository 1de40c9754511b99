package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type tenantRepository struct {
	db *sqlx.DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *sqlx.DB) tenant.Repository {
	return &tenantRepository{db: db}
}

type tenantRow struct {
	ID            string      `db:"id"`
	RoomID        string      `db:"room_id"`
	ProfileID     null.String `db:"profile_id"`
	TenantName    string      `db:"tenant_name"`
	Email         string      `db:"email"`
	ContactNumber string      `db:"contact_number"`
	HasSurcharge  bool        `db:"has_surcharge"`
	RentStart     null.Time   `db:"rent_start"`
	RentDue       null.Time   `db:"rent_due"`
	Status        string      `db:"status"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

func (r tenantRow) toTenant() tenant.Tenant {
	return tenant.Tenant{
		ID:            r.ID,
		RoomID:        r.RoomID,
		ProfileID:     r.ProfileID.String,
		TenantName:    r.TenantName,
		Email:         r.Email,
		ContactNumber: r.ContactNumber,
		HasSurcharge:  r.HasSurcharge,
		RentStart:     r.RentStart.Time,
		RentDue:       r.RentDue.Time,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}
}

func toTenantRow(t tenant.Tenant) tenantRow {
	return tenantRow{
		ID:            t.ID,
		RoomID:        t.RoomID,
		ProfileID:     null.NewString(t.ProfileID, t.ProfileID != ""),
		TenantName:    t.TenantName,
		Email:         t.Email,
		ContactNumber: t.ContactNumber,
		HasSurcharge:  t.HasSurcharge,
		RentStart:     null.NewTime(t.RentStart, !t.RentStart.IsZero()),
		RentDue:       null.NewTime(t.RentDue, !t.RentDue.IsZero()),
		Status:        t.Status,
		CreatedAt:     null.NewTime(t.CreatedAt, !t.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(t.UpdatedAt, !t.UpdatedAt.IsZero()),
	}
}

const selectTenant = `SELECT id, room_id, profile_id, tenant_name, email, contact_number, has_surcharge, rent_start, rent_due, status, created_at, updated_at FROM tenants`

func (repo *tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	t.ID = uuid.New().String()
	row := toTenantRow(t)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO tenants (id, room_id, profile_id, tenant_name, email, contact_number, has_surcharge, rent_start, rent_due, status, created_at, updated_at)
		 VALUES (:id, :room_id, :profile_id, :tenant_name, :email, :contact_number, :has_surcharge, :rent_start, :rent_due, :status, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "creating tenant")
	}
	return t, nil
}

func (repo *tenantRepository) QueryTenants(ctx context.Context, filter *tenant.QueryFilter, ordering []core.DBOrdering) ([]tenant.Tenant, error) {
	query := selectTenant + ` WHERE 1=1`
	args := make([]interface{}, 0, 3)

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			query += ` AND tenant_name ILIKE ` + placeholder(len(args))
		}
		if filter.RoomID != "" {
			args = append(args, filter.RoomID)
			query += ` AND room_id = ` + placeholder(len(args))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += ` AND status = ` + placeholder(len(args))
		}
	}
	query += orderBy(ordering)

	var rows []tenantRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tenants")
	}
	tenants := make([]tenant.Tenant, 0, len(rows))
	for _, row := range rows {
		tenants = append(tenants, row.toTenant())
	}
	return tenants, nil
}

func (repo *tenantRepository) getTenant(ctx context.Context, where string, args ...interface{}) (tenant.Tenant, error) {
	var row tenantRow
	err := repo.db.GetContext(ctx, &row, selectTenant+` WHERE `+where, args...)
	if err == sql.ErrNoRows {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "getting tenant")
	}
	return row.toTenant(), nil
}

func (repo *tenantRepository) GetTenantByID(ctx context.Context, id string) (tenant.Tenant, error) {
	return repo.getTenant(ctx, "id = $1", id)
}

func (repo *tenantRepository) GetActiveTenantByProfileID(ctx context.Context, profileID string) (tenant.Tenant, error) {
	return repo.getTenant(ctx, "profile_id = $1 AND status = $2", profileID, tenant.StatusActive)
}

func (repo *tenantRepository) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	row := toTenantRow(t)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE tenants SET tenant_name = :tenant_name, email = :email, contact_number = :contact_number,
		        has_surcharge = :has_surcharge, rent_due = :rent_due, status = :status, updated_at = :updated_at
		 WHERE id = :id`,
		row,
	)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "updating tenant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return repo.GetTenantByID(ctx, t.ID)
}
