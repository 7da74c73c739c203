package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

const paymentColumns = `id, order_id, payment_number, amount_cents, method, status, transaction_id, notes,
	paid_at, created_at, updated_at`

type paymentRow struct {
	ID            uuid.UUID    `db:"id"`
	OrderID       uuid.UUID    `db:"order_id"`
	PaymentNumber string       `db:"payment_number"`
	AmountCents   int64        `db:"amount_cents"`
	Method        string       `db:"method"`
	Status        string       `db:"status"`
	TransactionID string       `db:"transaction_id"`
	Notes         string       `db:"notes"`
	PaidAt        sql.NullTime `db:"paid_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func newPaymentRow(p *model.Payment) paymentRow {
	row := paymentRow{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentNumber: p.PaymentNumber,
		AmountCents:   p.AmountCents,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.PaidAt != nil {
		row.PaidAt = sql.NullTime{Time: *p.PaidAt, Valid: true}
	}
	return row
}

func (r paymentRow) toModel() model.Payment {
	p := model.Payment{
		ID:            r.ID,
		OrderID:       r.OrderID,
		PaymentNumber: r.PaymentNumber,
		AmountCents:   r.AmountCents,
		Method:        model.PaymentMethod(r.Method),
		Status:        model.PaymentStatus(r.Status),
		TransactionID: r.TransactionID,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.PaidAt.Valid {
		paid := r.PaidAt.Time.UTC()
		p.PaidAt = &paid
	}
	return p
}

type paymentRepository struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (r *paymentRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *paymentRepository) Create(payment *model.Payment) error {
	_, err := r.tx.NamedExecContext(r.ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (
		:id, :order_id, :payment_number, :amount_cents, :method, :status, :transaction_id, :notes,
		:paid_at, :created_at, :updated_at)`, newPaymentRow(payment))
	if isDuplicateKey(err) {
		return errors.Wrapf(model.ErrDuplicatePaymentOrder, "order %s", payment.OrderID)
	}
	return errors.Wrap(err, "insert payment")
}

func (r *paymentRepository) Update(payment *model.Payment) error {
	result, err := r.tx.NamedExecContext(r.ctx, `UPDATE payments SET
		method = :method, status = :status, transaction_id = :transaction_id, notes = :notes,
		paid_at = :paid_at, updated_at = :updated_at
		WHERE id = :id`, newPaymentRow(payment))
	if err != nil {
		return errors.Wrap(err, "update payment")
	}
	return expectAffected(result, model.ErrPaymentNotFound)
}

func (r *paymentRepository) Find(id uuid.UUID) (*model.Payment, error) {
	return r.find(`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *paymentRepository) FindByOrder(orderID uuid.UUID) (*model.Payment, error) {
	return r.find(`SELECT `+paymentColumns+` FROM payments WHERE order_id = ?`, orderID)
}

func (r *paymentRepository) find(query string, arg uuid.UUID) (*model.Payment, error) {
	var row paymentRow
	err := r.tx.GetContext(r.ctx, &row, r.tx.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPaymentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select payment")
	}
	payment := row.toModel()
	return &payment, nil
}

func (r *paymentRepository) FindByFilter(filter model.PaymentFilter) ([]model.Payment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.RestaurantID != nil {
		conditions = append(conditions, "order_id IN (SELECT id FROM orders WHERE restaurant_id = ?)")
		args = append(args, *filter.RestaurantID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	var rows []paymentRow
	if err := r.tx.SelectContext(r.ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select payments")
	}
	payments := make([]model.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toModel())
	}
	return payments, nil
}
