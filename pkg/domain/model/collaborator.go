package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MenuItem struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
	Available  bool
}

type Customer struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Phone        string
}

type Staff struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Role         string
}

type MenuCatalog interface {
	FindMenuItem(ctx context.Context, id uuid.UUID) (*MenuItem, error)
}

type CustomerDirectory interface {
	// FindOrCreate is idempotent on restaurant and phone.
	FindOrCreate(ctx context.Context, restaurantID uuid.UUID, phone, name string) (uuid.UUID, error)
	FindCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
}

type StaffDirectory interface {
	FindStaff(ctx context.Context, id uuid.UUID) (*Staff, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
