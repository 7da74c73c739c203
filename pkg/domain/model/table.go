package model

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
)

// Seatable reports whether a new order may take the table.
func (s TableStatus) Seatable() bool {
	return s == TableAvailable || s == TableReserved
}

type Table struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	TableNumber  int
	Capacity     int
	Status       TableStatus
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TableFilter struct {
	RestaurantID uuid.UUID
	Status       *TableStatus
	MinCapacity  int
	ActiveOnly   bool
	Limit        int
}

type TableRepository interface {
	NextID() (uuid.UUID, error)
	Create(table *Table) error
	Update(table *Table) error
	Delete(id uuid.UUID) error
	Find(id uuid.UUID) (*Table, error)
	// FindForUpdate reads the current row and holds it until the unit of
	// work finishes.
	FindForUpdate(id uuid.UUID) (*Table, error)
	// FindByFilter orders results by capacity, then table number.
	FindByFilter(filter TableFilter) ([]Table, error)
}
