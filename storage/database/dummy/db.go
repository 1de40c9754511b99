// Package dummydb provides in-memory repositories for tests and local dev.
package dummydb

import (
	"sync"

	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
	"github.com/tahanan-ph/tahanan/core/user"
)

type (
	DB struct {
		user    *userTable
		room    *roomTable
		tenant  *tenantTable
		payment *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	roomTable struct {
		sync.RWMutex
		table map[string]*room.Room
	}

	tenantTable struct {
		sync.RWMutex
		table map[string]*tenant.Tenant
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		room:    &roomTable{table: make(map[string]*room.Room)},
		tenant:  &tenantTable{table: make(map[string]*tenant.Tenant)},
		payment: &paymentTable{table: make(map[string]*payment.Payment)},
	}
	return db, nil
}
