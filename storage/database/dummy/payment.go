package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type paymentRepository struct {
	db       *paymentTable
	tenantDB *tenantTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment, tenantDB: db.tenant}
}

func (repo *paymentRepository) query() []payment.Payment {
	payments := make([]payment.Payment, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		payments = append(payments, *p)
	}
	return payments
}

func (repo *paymentRepository) CreatePayment(_ context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) CreateAdvancePayment(_ context.Context, pmt payment.Payment, nextRentDue time.Time) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.tenantDB.Lock()
	defer repo.tenantDB.Unlock()

	t, ok := repo.tenantDB.table[pmt.TenantID]
	if !ok {
		return payment.Payment{}, tenant.ErrNotFound
	}

	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	t.RentDue = nextRentDue
	t.UpdatedAt = pmt.UpdatedAt
	return pmt, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := repo.query()
	if filter != nil {
		if filter.TenantID != "" {
			var filtered []payment.Payment
			for _, p := range payments {
				if p.TenantID == filter.TenantID {
					filtered = append(filtered, p)
				}
			}
			payments = filtered
		}
		if payments != nil && filter.RoomID != "" {
			var filtered []payment.Payment
			for _, p := range payments {
				if p.RoomID == filter.RoomID {
					filtered = append(filtered, p)
				}
			}
			payments = filtered
		}
	}

	for _, ord := range ordering {
		if ord.Field == "due_date" {
			sort.SliceStable(payments, func(i, j int) bool {
				if ord.Ascending {
					return payments[i].DueDate.Before(payments[j].DueDate)
				}
				return payments[i].DueDate.After(payments[j].DueDate)
			})
		}
	}
	return payments, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) MarkPaymentPaid(_ context.Context, id string, paidOn time.Time, referenceNo, method string) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.table[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if pmt.Status != payment.StatusPending {
		return payment.Payment{}, payment.ErrNotPending
	}
	pmt.Status = payment.StatusPaid
	pmt.PaymentDate = paidOn
	pmt.ReferenceNo = referenceNo
	pmt.PaymentMethod = method
	pmt.UpdatedAt = time.Now().UTC()
	return *pmt, nil
}

func (repo *paymentRepository) SetPaymentStatus(_ context.Context, id, status string) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.table[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if pmt.Status != payment.StatusPending {
		return payment.Payment{}, payment.ErrNotPending
	}
	pmt.Status = status
	pmt.UpdatedAt = time.Now().UTC()
	return *pmt, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origPmt, ok := repo.db.table[pmt.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	origPmt.Amount = pmt.Amount
	origPmt.ElectricityReading = pmt.ElectricityReading
	origPmt.ElectricityCost = pmt.ElectricityCost
	origPmt.DueDate = pmt.DueDate
	origPmt.Notes = pmt.Notes
	origPmt.UpdatedAt = pmt.UpdatedAt

	repo.db.table[pmt.ID] = origPmt
	return *origPmt, nil
}

func (repo *paymentRepository) TenantHasPendingPayment(_ context.Context, tenantID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pmt := range repo.db.table {
		if pmt.TenantID == tenantID && pmt.Status == payment.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (repo *paymentRepository) DeletePaymentByID(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
