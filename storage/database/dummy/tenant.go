package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type tenantRepository struct {
	db *tenantTable
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db.tenant}
}

func (repo *tenantRepository) query() []tenant.Tenant {
	tenants := make([]tenant.Tenant, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tenants = append(tenants, *t)
	}
	return tenants
}

func (repo *tenantRepository) CreateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *tenantRepository) QueryTenants(_ context.Context, filter *tenant.QueryFilter, ordering []core.DBOrdering) ([]tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tenants := repo.query()
	if filter != nil {
		if filter.Search != "" {
			var filtered []tenant.Tenant
			for _, t := range tenants {
				if strings.Contains(strings.ToLower(t.TenantName), strings.ToLower(filter.Search)) {
					filtered = append(filtered, t)
				}
			}
			tenants = filtered
		}
		if tenants != nil && filter.RoomID != "" {
			var filtered []tenant.Tenant
			for _, t := range tenants {
				if t.RoomID == filter.RoomID {
					filtered = append(filtered, t)
				}
			}
			tenants = filtered
		}
		if tenants != nil && filter.Status != "" {
			var filtered []tenant.Tenant
			for _, t := range tenants {
				if t.Status == filter.Status {
					filtered = append(filtered, t)
				}
			}
			tenants = filtered
		}
	}

	for _, ord := range ordering {
		if ord.Field == "tenant_name" {
			sort.SliceStable(tenants, func(i, j int) bool {
				if ord.Ascending {
					return tenants[i].TenantName < tenants[j].TenantName
				}
				return tenants[i].TenantName > tenants[j].TenantName
			})
		}
	}
	return tenants, nil
}

func (repo *tenantRepository) GetTenantByID(_ context.Context, id string) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) GetActiveTenantByProfileID(_ context.Context, profileID string) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if profileID != "" {
		for _, t := range repo.query() {
			if t.ProfileID == profileID && t.Status == tenant.StatusActive {
				return t, nil
			}
		}
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) UpdateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origT, ok := repo.db.table[t.ID]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	origT.TenantName = t.TenantName
	origT.Email = t.Email
	origT.ContactNumber = t.ContactNumber
	origT.HasSurcharge = t.HasSurcharge
	origT.RentDue = t.RentDue
	origT.Status = t.Status
	origT.UpdatedAt = t.UpdatedAt

	repo.db.table[t.ID] = origT
	return *origT, nil
}
