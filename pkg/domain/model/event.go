package model

import "github.com/google/uuid"

type OrderCreated struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	OrderNumber  string
	OrderType    OrderType
	TotalCents   int64
}

func (e OrderCreated) Type() string { return "OrderCreated" }

type OrderStatusChanged struct {
	OrderID   uuid.UUID
	OldStatus OrderStatus
	NewStatus OrderStatus
}

func (e OrderStatusChanged) Type() string { return "OrderStatusChanged" }

type OrderItemAdded struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int
}

func (e OrderItemAdded) Type() string { return "OrderItemAdded" }

type OrderItemUpdated struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity int
}

func (e OrderItemUpdated) Type() string { return "OrderItemUpdated" }

type OrderItemRemoved struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
}

func (e OrderItemRemoved) Type() string { return "OrderItemRemoved" }

type OrderDeleted struct {
	OrderID uuid.UUID
}

func (e OrderDeleted) Type() string { return "OrderDeleted" }

type TableSeated struct {
	TableID uuid.UUID
	OrderID uuid.UUID
}

func (e TableSeated) Type() string { return "TableSeated" }

type TableReleased struct {
	TableID uuid.UUID
	OrderID uuid.UUID
}

func (e TableReleased) Type() string { return "TableReleased" }

type PaymentSettled struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
	Method      PaymentMethod
}

func (e PaymentSettled) Type() string { return "PaymentSettled" }

type PaymentReversed struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
}

func (e PaymentReversed) Type() string { return "PaymentReversed" }
