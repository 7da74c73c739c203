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

const orderColumns = `id, restaurant_id, order_number, table_id, waiter_id, customer_id, party_size, order_type,
	status, subtotal_cents, discount_cents, total_cents, notes, completed_at, payment_id, created_at, updated_at`

type orderRow struct {
	ID            uuid.UUID     `db:"id"`
	RestaurantID  uuid.UUID     `db:"restaurant_id"`
	OrderNumber   string        `db:"order_number"`
	TableID       uuid.NullUUID `db:"table_id"`
	WaiterID      uuid.UUID     `db:"waiter_id"`
	CustomerID    uuid.NullUUID `db:"customer_id"`
	PartySize     int           `db:"party_size"`
	Type          string        `db:"order_type"`
	Status        string        `db:"status"`
	SubtotalCents int64         `db:"subtotal_cents"`
	DiscountCents int64         `db:"discount_cents"`
	TotalCents    int64         `db:"total_cents"`
	Notes         string        `db:"notes"`
	CompletedAt   sql.NullTime  `db:"completed_at"`
	PaymentID     uuid.NullUUID `db:"payment_id"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func newOrderRow(o *model.Order) orderRow {
	row := orderRow{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		OrderNumber:   o.OrderNumber,
		TableID:       nullUUID(o.TableID),
		WaiterID:      o.WaiterID,
		CustomerID:    nullUUID(o.CustomerID),
		PartySize:     o.PartySize,
		Type:          string(o.Type),
		Status:        string(o.Status),
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		Notes:         o.Notes,
		PaymentID:     nullUUID(o.PaymentID),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *o.CompletedAt, Valid: true}
	}
	return row
}

func (r orderRow) toModel() model.Order {
	o := model.Order{
		ID:            r.ID,
		RestaurantID:  r.RestaurantID,
		OrderNumber:   r.OrderNumber,
		TableID:       uuidPtr(r.TableID),
		WaiterID:      r.WaiterID,
		CustomerID:    uuidPtr(r.CustomerID),
		PartySize:     r.PartySize,
		Type:          model.OrderType(r.Type),
		Status:        model.OrderStatus(r.Status),
		SubtotalCents: r.SubtotalCents,
		DiscountCents: r.DiscountCents,
		TotalCents:    r.TotalCents,
		Notes:         r.Notes,
		PaymentID:     uuidPtr(r.PaymentID),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time.UTC()
		o.CompletedAt = &completed
	}
	return o
}

type orderRepository struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(order *model.Order) error {
	_, err := r.tx.NamedExecContext(r.ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (
		:id, :restaurant_id, :order_number, :table_id, :waiter_id, :customer_id, :party_size, :order_type,
		:status, :subtotal_cents, :discount_cents, :total_cents, :notes, :completed_at, :payment_id, :created_at, :updated_at)`,
		newOrderRow(order))
	if isDuplicateKey(err) {
		return errors.Wrap(model.ErrDuplicateOrderNumber, order.OrderNumber)
	}
	return errors.Wrap(err, "insert order")
}

func (r *orderRepository) Update(order *model.Order) error {
	result, err := r.tx.NamedExecContext(r.ctx, `UPDATE orders SET
		table_id = :table_id, customer_id = :customer_id, party_size = :party_size, status = :status,
		subtotal_cents = :subtotal_cents, discount_cents = :discount_cents, total_cents = :total_cents,
		notes = :notes, completed_at = :completed_at, payment_id = :payment_id, updated_at = :updated_at
		WHERE id = :id`, newOrderRow(order))
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	return expectAffected(result, model.ErrOrderNotFound)
}

func (r *orderRepository) Delete(id uuid.UUID) error {
	result, err := r.tx.ExecContext(r.ctx, r.tx.Rebind(`DELETE FROM orders WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	return expectAffected(result, model.ErrOrderNotFound)
}

func (r *orderRepository) Find(id uuid.UUID) (*model.Order, error) {
	return r.find(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *orderRepository) FindForUpdate(id uuid.UUID) (*model.Order, error) {
	return r.find(`SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *orderRepository) find(query string, id uuid.UUID) (*model.Order, error) {
	var row orderRow
	err := r.tx.GetContext(r.ctx, &row, r.tx.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	order := row.toModel()
	return &order, nil
}

func (r *orderRepository) FindByFilter(filter model.OrderFilter) ([]model.Order, error) {
	where, args, err := orderWhere(filter)
	if err != nil {
		return nil, err
	}
	var rows []orderRow
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, order_number DESC`
	if err := r.tx.SelectContext(r.ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toModel())
	}
	return orders, nil
}

func (r *orderRepository) Count(filter model.OrderFilter) (int, error) {
	where, args, err := orderWhere(filter)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.tx.GetContext(r.ctx, &count, r.tx.Rebind(`SELECT COUNT(*) FROM orders`+where), args...); err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return count, nil
}

func (r *orderRepository) HighestOrderNumber(restaurantID uuid.UUID, prefix string) (string, error) {
	var number string
	err := r.tx.GetContext(r.ctx, &number, r.tx.Rebind(`SELECT order_number FROM orders
		WHERE restaurant_id = ? AND order_number LIKE ?
		ORDER BY LENGTH(order_number) DESC, order_number DESC LIMIT 1`), restaurantID, prefix+"%")
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return number, errors.Wrap(err, "select highest order number")
}

// orderWhere renders the filter with '?' placeholders; callers rebind.
func orderWhere(filter model.OrderFilter) (string, []interface{}, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.RestaurantID != nil {
		conditions = append(conditions, "restaurant_id = ?")
		args = append(args, *filter.RestaurantID)
	}
	if filter.Type != nil {
		conditions = append(conditions, "order_type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.TableID != nil {
		conditions = append(conditions, "table_id = ?")
		args = append(args, *filter.TableID)
	}
	if filter.WaiterID != nil {
		conditions = append(conditions, "waiter_id = ?")
		args = append(args, *filter.WaiterID)
	}
	if filter.ExcludeID != nil {
		conditions = append(conditions, "id <> ?")
		args = append(args, *filter.ExcludeID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, "status IN (?)")
		args = append(args, statuses)
	}
	if len(conditions) == 0 {
		return "", nil, nil
	}

	query, expanded, err := sqlx.In(" WHERE "+strings.Join(conditions, " AND "), args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "build order filter")
	}
	return query, expanded, nil
}

type orderItemRow struct {
	ID                  uuid.UUID `db:"id"`
	OrderID             uuid.UUID `db:"order_id"`
	MenuItemID          uuid.UUID `db:"menu_item_id"`
	Quantity            int       `db:"quantity"`
	UnitPriceCents      int64     `db:"unit_price_cents"`
	TotalPriceCents     int64     `db:"total_price_cents"`
	SpecialInstructions string    `db:"special_instructions"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

const orderItemColumns = `id, order_id, menu_item_id, quantity, unit_price_cents, total_price_cents,
	special_instructions, created_at, updated_at`

func (r orderItemRow) toModel() model.OrderItem {
	return model.OrderItem{
		ID:                  r.ID,
		OrderID:             r.OrderID,
		MenuItemID:          r.MenuItemID,
		Quantity:            r.Quantity,
		UnitPriceCents:      r.UnitPriceCents,
		TotalPriceCents:     r.TotalPriceCents,
		SpecialInstructions: r.SpecialInstructions,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

func newOrderItemRow(i *model.OrderItem) orderItemRow {
	return orderItemRow{
		ID:                  i.ID,
		OrderID:             i.OrderID,
		MenuItemID:          i.MenuItemID,
		Quantity:            i.Quantity,
		UnitPriceCents:      i.UnitPriceCents,
		TotalPriceCents:     i.TotalPriceCents,
		SpecialInstructions: i.SpecialInstructions,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}

type orderItemRepository struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (r *orderItemRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderItemRepository) Create(item *model.OrderItem) error {
	_, err := r.tx.NamedExecContext(r.ctx, `INSERT INTO order_items (`+orderItemColumns+`) VALUES (
		:id, :order_id, :menu_item_id, :quantity, :unit_price_cents, :total_price_cents,
		:special_instructions, :created_at, :updated_at)`, newOrderItemRow(item))
	return errors.Wrap(err, "insert order item")
}

func (r *orderItemRepository) Update(item *model.OrderItem) error {
	result, err := r.tx.NamedExecContext(r.ctx, `UPDATE order_items SET
		quantity = :quantity, total_price_cents = :total_price_cents,
		special_instructions = :special_instructions, updated_at = :updated_at
		WHERE id = :id`, newOrderItemRow(item))
	if err != nil {
		return errors.Wrap(err, "update order item")
	}
	return expectAffected(result, model.ErrOrderItemNotFound)
}

func (r *orderItemRepository) Delete(id uuid.UUID) error {
	result, err := r.tx.ExecContext(r.ctx, r.tx.Rebind(`DELETE FROM order_items WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete order item")
	}
	return expectAffected(result, model.ErrOrderItemNotFound)
}

func (r *orderItemRepository) DeleteByOrder(orderID uuid.UUID) error {
	_, err := r.tx.ExecContext(r.ctx, r.tx.Rebind(`DELETE FROM order_items WHERE order_id = ?`), orderID)
	return errors.Wrap(err, "delete order items")
}

func (r *orderItemRepository) Find(id uuid.UUID) (*model.OrderItem, error) {
	var row orderItemRow
	err := r.tx.GetContext(r.ctx, &row, r.tx.Rebind(`SELECT `+orderItemColumns+` FROM order_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderItemNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order item")
	}
	item := row.toModel()
	return &item, nil
}

func (r *orderItemRepository) FindByOrder(orderID uuid.UUID) ([]model.OrderItem, error) {
	var rows []orderItemRow
	err := r.tx.SelectContext(r.ctx, &rows, r.tx.Rebind(`SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = ? ORDER BY created_at, id`), orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	items := make([]model.OrderItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (r *orderItemRepository) CountByOrder(orderID uuid.UUID) (int, error) {
	var count int
	err := r.tx.GetContext(r.ctx, &count, r.tx.Rebind(`SELECT COUNT(*) FROM order_items WHERE order_id = ?`), orderID)
	return count, errors.Wrap(err, "count order items")
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}
