package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	DineIn   OrderType = "DINE_IN"
	Takeaway OrderType = "TAKEAWAY"
	Delivery OrderType = "DELIVERY"
)

func (t OrderType) Valid() bool {
	switch t {
	case DineIn, Takeaway, Delivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	Pending    OrderStatus = "PENDING"
	Confirmed  OrderStatus = "CONFIRMED"
	InProgress OrderStatus = "IN_PROGRESS"
	Completed  OrderStatus = "COMPLETED"
	Served     OrderStatus = "SERVED"
	Paid       OrderStatus = "PAID"
	Cancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	Pending:    {Confirmed, Cancelled},
	Confirmed:  {InProgress, Cancelled},
	InProgress: {Completed, Cancelled},
	Completed:  {Served, Paid, Cancelled},
	Served:     {Paid, Cancelled},
	Paid:       {},
	Cancelled:  {},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderTransitions[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// AllowedTransitions returns a copy of the statuses reachable in one step.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[s]...)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == Paid || s == Cancelled
}

// AcceptsItemChanges reports whether line items and discount may still be
// modified. Only COMPLETED and the terminal statuses are frozen.
func (s OrderStatus) AcceptsItemChanges() bool {
	return s != Completed && !s.Terminal()
}

// ReleasesTable reports whether entering s frees the order's table.
func (s OrderStatus) ReleasesTable() bool {
	return s == Completed || s == Cancelled || s == Paid
}

type Order struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	OrderNumber   string
	TableID       *uuid.UUID
	WaiterID      uuid.UUID
	CustomerID    *uuid.UUID
	PartySize     int
	Type          OrderType
	Status        OrderStatus
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
	Notes         string
	CompletedAt   *time.Time
	PaymentID     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MaxAmountCents bounds every price, line total and order subtotal.
const MaxAmountCents int64 = 100_000_000_000_00

// LineTotal returns quantity * unitPriceCents, failing when the product
// would exceed MaxAmountCents.
func LineTotal(quantity int, unitPriceCents int64) (int64, error) {
	if quantity < 1 {
		return 0, ErrInvalidQuantity
	}
	if unitPriceCents < 0 || unitPriceCents > MaxAmountCents {
		return 0, fmt.Errorf("unit price %s out of range: %w", FormatCents(unitPriceCents), ErrMissingField)
	}
	if unitPriceCents > 0 && int64(quantity) > MaxAmountCents/unitPriceCents {
		return 0, fmt.Errorf("%d x %s exceeds %s: %w", quantity, FormatCents(unitPriceCents), FormatCents(MaxAmountCents), ErrInvalidQuantity)
	}
	return int64(quantity) * unitPriceCents, nil
}

// SumLineTotals adds up line totals, failing when the sum would exceed
// MaxAmountCents.
func SumLineTotals(items []OrderItem) (int64, error) {
	var subtotal int64
	for _, item := range items {
		if item.TotalPriceCents < 0 || item.TotalPriceCents > MaxAmountCents-subtotal {
			return 0, fmt.Errorf("order subtotal exceeds %s: %w", FormatCents(MaxAmountCents), ErrInvalidQuantity)
		}
		subtotal += item.TotalPriceCents
	}
	return subtotal, nil
}

// ApplyItems re-sums the subtotal from the given items. The discount is
// clamped so that it never exceeds the new subtotal.
func (o *Order) ApplyItems(items []OrderItem) error {
	subtotal, err := SumLineTotals(items)
	if err != nil {
		return err
	}
	o.SubtotalCents = subtotal
	if o.DiscountCents > subtotal {
		o.DiscountCents = subtotal
	}
	o.TotalCents = o.SubtotalCents - o.DiscountCents
	return nil
}

func (o *Order) SetDiscount(discountCents int64) error {
	if discountCents < 0 || discountCents > o.SubtotalCents {
		return ErrInvalidDiscount
	}
	o.DiscountCents = discountCents
	o.TotalCents = o.SubtotalCents - discountCents
	return nil
}

type OrderItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	Quantity            int
	UnitPriceCents      int64
	TotalPriceCents     int64
	SpecialInstructions string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (i *OrderItem) SetQuantity(quantity int) error {
	total, err := LineTotal(quantity, i.UnitPriceCents)
	if err != nil {
		return err
	}
	i.Quantity = quantity
	i.TotalPriceCents = total
	return nil
}

type OrderFilter struct {
	RestaurantID *uuid.UUID
	Statuses     []OrderStatus
	Type         *OrderType
	TableID      *uuid.UUID
	WaiterID     *uuid.UUID
	ExcludeID    *uuid.UUID
}

// ActiveStatuses are all statuses that still hold a table.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{Pending, Confirmed, InProgress, Completed, Served}
}

// OrderView is an order composed with everything it references, as returned
// to callers.
type OrderView struct {
	Order
	Items    []OrderItem
	Table    *Table
	Payment  *Payment
	Customer *Customer
	Waiter   *Staff
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(order *Order) error
	Update(order *Order) error
	Delete(id uuid.UUID) error
	Find(id uuid.UUID) (*Order, error)
	FindForUpdate(id uuid.UUID) (*Order, error)
	FindByFilter(filter OrderFilter) ([]Order, error)
	Count(filter OrderFilter) (int, error)
	// HighestOrderNumber returns the greatest order number of the restaurant
	// starting with prefix, or an empty string when there is none.
	HighestOrderNumber(restaurantID uuid.UUID, prefix string) (string, error)
}

type OrderItemRepository interface {
	NextID() (uuid.UUID, error)
	Create(item *OrderItem) error
	Update(item *OrderItem) error
	Delete(id uuid.UUID) error
	DeleteByOrder(orderID uuid.UUID) error
	Find(id uuid.UUID) (*OrderItem, error)
	FindByOrder(orderID uuid.UUID) ([]OrderItem, error)
	CountByOrder(orderID uuid.UUID) (int, error)
}
