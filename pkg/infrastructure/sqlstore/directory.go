package sqlstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

// Catalog reads the menu owned by the menu service from the shared schema.
type Catalog struct {
	db *sqlx.DB
}

func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) FindMenuItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	var row struct {
		ID         uuid.UUID `db:"id"`
		Name       string    `db:"name"`
		PriceCents int64     `db:"price_cents"`
		Available  bool      `db:"available"`
	}
	err := c.db.GetContext(ctx, &row, c.db.Rebind(`SELECT id, name, price_cents, available FROM menu_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMenuItemNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select menu item")
	}
	return &model.MenuItem{ID: row.ID, Name: row.Name, PriceCents: row.PriceCents, Available: row.Available}, nil
}

type customerRow struct {
	ID           uuid.UUID `db:"id"`
	RestaurantID uuid.UUID `db:"restaurant_id"`
	Name         string    `db:"name"`
	Phone        string    `db:"phone"`
}

type CustomerDirectory struct {
	db *sqlx.DB
}

func NewCustomerDirectory(db *sqlx.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) FindOrCreate(ctx context.Context, restaurantID uuid.UUID, phone, name string) (uuid.UUID, error) {
	id, err := d.findByPhone(ctx, restaurantID, phone)
	if err == nil || !errors.Is(err, model.ErrCustomerNotFound) {
		return id, err
	}

	id, err = uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	_, err = d.db.ExecContext(ctx, d.db.Rebind(`INSERT INTO customers (id, restaurant_id, name, phone) VALUES (?, ?, ?, ?)`),
		id, restaurantID, name, phone)
	if isDuplicateKey(err) {
		// Another request registered the same phone first.
		return d.findByPhone(ctx, restaurantID, phone)
	}
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "insert customer")
	}
	return id, nil
}

func (d *CustomerDirectory) findByPhone(ctx context.Context, restaurantID uuid.UUID, phone string) (uuid.UUID, error) {
	var id uuid.UUID
	err := d.db.GetContext(ctx, &id, d.db.Rebind(`SELECT id FROM customers WHERE restaurant_id = ? AND phone = ?`), restaurantID, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, model.ErrCustomerNotFound
	}
	return id, errors.Wrap(err, "select customer")
}

func (d *CustomerDirectory) FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var row customerRow
	err := d.db.GetContext(ctx, &row, d.db.Rebind(`SELECT id, restaurant_id, name, phone FROM customers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select customer")
	}
	return &model.Customer{ID: row.ID, RestaurantID: row.RestaurantID, Name: row.Name, Phone: row.Phone}, nil
}

type StaffDirectory struct {
	db *sqlx.DB
}

func NewStaffDirectory(db *sqlx.DB) *StaffDirectory {
	return &StaffDirectory{db: db}
}

func (d *StaffDirectory) FindStaff(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	var row struct {
		ID           uuid.UUID `db:"id"`
		RestaurantID uuid.UUID `db:"restaurant_id"`
		Name         string    `db:"name"`
		Role         string    `db:"role"`
	}
	err := d.db.GetContext(ctx, &row, d.db.Rebind(`SELECT id, restaurant_id, name, role FROM staff WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStaffNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select staff member")
	}
	return &model.Staff{ID: row.ID, RestaurantID: row.RestaurantID, Name: row.Name, Role: row.Role}, nil
}
