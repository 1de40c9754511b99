package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/payment"
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

type paymentRow struct {
	ID                 string              `db:"id"`
	TenantID           string              `db:"tenant_id"`
	RoomID             string              `db:"room_id"`
	Amount             decimal.Decimal     `db:"amount"`
	ElectricityReading decimal.NullDecimal `db:"electricity_reading"`
	ElectricityCost    decimal.NullDecimal `db:"electricity_cost"`
	SurchargeAmount    decimal.Decimal     `db:"surcharge_amount"`
	Status             string              `db:"payment_status"`
	PaymentDate        null.Time           `db:"payment_date"`
	DueDate            null.Time           `db:"due_date"`
	PaymentMethod      string              `db:"payment_method"`
	ReferenceNo        string              `db:"reference_no"`
	Notes              string              `db:"notes"`
	CreatedAt          null.Time           `db:"created_at"`
	UpdatedAt          null.Time           `db:"updated_at"`
}

func (r paymentRow) toPayment() payment.Payment {
	return payment.Payment{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		RoomID:             r.RoomID,
		Amount:             r.Amount,
		ElectricityReading: r.ElectricityReading.Decimal,
		ElectricityCost:    r.ElectricityCost.Decimal,
		SurchargeAmount:    r.SurchargeAmount,
		Status:             r.Status,
		PaymentDate:        r.PaymentDate.Time,
		DueDate:            r.DueDate.Time,
		PaymentMethod:      r.PaymentMethod,
		ReferenceNo:        r.ReferenceNo,
		Notes:              r.Notes,
		CreatedAt:          r.CreatedAt.Time,
		UpdatedAt:          r.UpdatedAt.Time,
	}
}

func toPaymentRow(pmt payment.Payment) paymentRow {
	return paymentRow{
		ID:                 pmt.ID,
		TenantID:           pmt.TenantID,
		RoomID:             pmt.RoomID,
		Amount:             pmt.Amount,
		ElectricityReading: decimal.NullDecimal{Decimal: pmt.ElectricityReading, Valid: !pmt.ElectricityReading.IsZero()},
		ElectricityCost:    decimal.NullDecimal{Decimal: pmt.ElectricityCost, Valid: !pmt.ElectricityCost.IsZero()},
		SurchargeAmount:    pmt.SurchargeAmount,
		Status:             pmt.Status,
		PaymentDate:        null.NewTime(pmt.PaymentDate, !pmt.PaymentDate.IsZero()),
		DueDate:            null.NewTime(pmt.DueDate, !pmt.DueDate.IsZero()),
		PaymentMethod:      pmt.PaymentMethod,
		ReferenceNo:        pmt.ReferenceNo,
		Notes:              pmt.Notes,
		CreatedAt:          null.NewTime(pmt.CreatedAt, !pmt.CreatedAt.IsZero()),
		UpdatedAt:          null.NewTime(pmt.UpdatedAt, !pmt.UpdatedAt.IsZero()),
	}
}

const selectPayment = `SELECT id, tenant_id, room_id, amount, electricity_reading, electricity_cost, surcharge_amount,
       payment_status, payment_date, due_date, payment_method, reference_no, notes, created_at, updated_at FROM payments`

const insertPayment = `INSERT INTO payments (id, tenant_id, room_id, amount, electricity_reading, electricity_cost,
        surcharge_amount, payment_status, payment_date, due_date, payment_method, reference_no, notes, created_at, updated_at)
 VALUES (:id, :tenant_id, :room_id, :amount, :electricity_reading, :electricity_cost,
        :surcharge_amount, :payment_status, :payment_date, :due_date, :payment_method, :reference_no, :notes, :created_at, :updated_at)`

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertPayment, toPaymentRow(pmt)); err != nil {
		return payment.Payment{}, errors.Wrap(err, "creating payment")
	}
	return pmt, nil
}

// CreateAdvancePayment inserts the payment and rolls the tenant's rent due
// date forward in one transaction. Either both land or neither does.
func (repo *paymentRepository) CreateAdvancePayment(ctx context.Context, pmt payment.Payment, nextRentDue time.Time) (payment.Payment, error) {
	pmt.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, insertPayment, toPaymentRow(pmt)); err != nil {
		return payment.Payment{}, errors.Wrap(err, "creating advance payment")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE tenants SET rent_due = $1, updated_at = $2 WHERE id = $3`,
		nextRentDue, pmt.UpdatedAt, pmt.TenantID,
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "advancing tenant rent due")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Payment{}, errors.New("advancing tenant rent due: tenant not found")
	}
	if err = tx.Commit(); err != nil {
		return payment.Payment{}, errors.Wrap(err, "committing transaction")
	}
	return pmt, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	query := selectPayment + ` WHERE 1=1`
	args := make([]interface{}, 0, 2)

	if filter != nil {
		if filter.TenantID != "" {
			args = append(args, filter.TenantID)
			query += ` AND tenant_id = ` + placeholder(len(args))
		}
		if filter.RoomID != "" {
			args = append(args, filter.RoomID)
			query += ` AND room_id = ` + placeholder(len(args))
		}
	}
	query += orderBy(ordering)

	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toPayment())
	}
	return payments, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	var row paymentRow
	err := repo.db.GetContext(ctx, &row, selectPayment+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return payment.Payment{}, payment.ErrNotFound
	}
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "getting payment")
	}
	return row.toPayment(), nil
}

// MarkPaymentPaid relies on a conditional UPDATE so that concurrent calls
// cannot double-apply the transition.
func (repo *paymentRepository) MarkPaymentPaid(ctx context.Context, id string, paidOn time.Time, referenceNo, method string) (payment.Payment, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE payments SET payment_status = $1, payment_date = $2, reference_no = $3, payment_method = $4, updated_at = $5
		 WHERE id = $6 AND payment_status = $7`,
		payment.StatusPaid, paidOn, referenceNo, method, time.Now().UTC(), id, payment.StatusPending,
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "marking payment paid")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err = repo.GetPaymentByID(ctx, id); err != nil {
			return payment.Payment{}, err
		}
		return payment.Payment{}, payment.ErrNotPending
	}
	return repo.GetPaymentByID(ctx, id)
}

func (repo *paymentRepository) SetPaymentStatus(ctx context.Context, id, status string) (payment.Payment, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE payments SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status = $4`,
		status, time.Now().UTC(), id, payment.StatusPending,
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "setting payment status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err = repo.GetPaymentByID(ctx, id); err != nil {
			return payment.Payment{}, err
		}
		return payment.Payment{}, payment.ErrNotPending
	}
	return repo.GetPaymentByID(ctx, id)
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	row := toPaymentRow(pmt)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE payments SET amount = :amount, electricity_reading = :electricity_reading,
		        electricity_cost = :electricity_cost, due_date = :due_date, notes = :notes, updated_at = :updated_at
		 WHERE id = :id`,
		row,
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return repo.GetPaymentByID(ctx, pmt.ID)
}

func (repo *paymentRepository) TenantHasPendingPayment(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT true FROM payments WHERE tenant_id = $1 AND payment_status = $2 LIMIT 1`,
		tenantID, payment.StatusPending,
	)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "checking pending payment")
	}
	return exists, nil
}

func (repo *paymentRepository) DeletePaymentByID(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return errors.Wrap(err, "deleting payment")
}
