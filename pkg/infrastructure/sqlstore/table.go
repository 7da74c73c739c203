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

const tableColumns = `id, restaurant_id, table_number, capacity, status, active, created_at, updated_at`

type tableRow struct {
	ID           uuid.UUID `db:"id"`
	RestaurantID uuid.UUID `db:"restaurant_id"`
	TableNumber  int       `db:"table_number"`
	Capacity     int       `db:"capacity"`
	Status       string    `db:"status"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func newTableRow(t *model.Table) tableRow {
	return tableRow{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		TableNumber:  t.TableNumber,
		Capacity:     t.Capacity,
		Status:       string(t.Status),
		Active:       t.Active,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (r tableRow) toModel() model.Table {
	return model.Table{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		TableNumber:  r.TableNumber,
		Capacity:     r.Capacity,
		Status:       model.TableStatus(r.Status),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type tableRepository struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (r *tableRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *tableRepository) Create(table *model.Table) error {
	_, err := r.tx.NamedExecContext(r.ctx, `INSERT INTO restaurant_tables (`+tableColumns+`) VALUES (
		:id, :restaurant_id, :table_number, :capacity, :status, :active, :created_at, :updated_at)`, newTableRow(table))
	return errors.Wrap(err, "insert table")
}

func (r *tableRepository) Update(table *model.Table) error {
	result, err := r.tx.NamedExecContext(r.ctx, `UPDATE restaurant_tables SET
		table_number = :table_number, capacity = :capacity, status = :status, active = :active, updated_at = :updated_at
		WHERE id = :id`, newTableRow(table))
	if err != nil {
		return errors.Wrap(err, "update table")
	}
	return expectAffected(result, model.ErrTableNotFound)
}

func (r *tableRepository) Delete(id uuid.UUID) error {
	result, err := r.tx.ExecContext(r.ctx, r.tx.Rebind(`DELETE FROM restaurant_tables WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete table")
	}
	return expectAffected(result, model.ErrTableNotFound)
}

func (r *tableRepository) Find(id uuid.UUID) (*model.Table, error) {
	return r.find(`SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ?`, id)
}

func (r *tableRepository) FindForUpdate(id uuid.UUID) (*model.Table, error) {
	return r.find(`SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ? FOR UPDATE`, id)
}

func (r *tableRepository) find(query string, id uuid.UUID) (*model.Table, error) {
	var row tableRow
	err := r.tx.GetContext(r.ctx, &row, r.tx.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTableNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select table")
	}
	table := row.toModel()
	return &table, nil
}

func (r *tableRepository) FindByFilter(filter model.TableFilter) ([]model.Table, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.RestaurantID != uuid.Nil {
		conditions = append(conditions, "restaurant_id = ?")
		args = append(args, filter.RestaurantID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = ?")
		args = append(args, true)
	}

	query := `SELECT ` + tableColumns + ` FROM restaurant_tables`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY capacity, table_number`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []tableRow
	if err := r.tx.SelectContext(r.ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select tables")
	}
	tables := make([]model.Table, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, row.toModel())
	}
	return tables, nil
}
