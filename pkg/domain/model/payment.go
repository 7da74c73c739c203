package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	Cash         PaymentMethod = "CASH"
	Card         PaymentMethod = "CARD"
	MobileMoney  PaymentMethod = "MOBILE_MONEY"
	BankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, Card, MobileMoney, BankTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	PaymentNumber string
	AmountCents   int64
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	Notes         string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Payment) Complete(at time.Time) {
	p.Status = PaymentCompleted
	p.PaidAt = &at
	p.UpdatedAt = at
}

type PaymentFilter struct {
	RestaurantID *uuid.UUID
	Status       *PaymentStatus
}

type PaymentRepository interface {
	NextID() (uuid.UUID, error)
	Create(payment *Payment) error
	Update(payment *Payment) error
	Find(id uuid.UUID) (*Payment, error)
	// FindByOrder returns ErrPaymentNotFound when the order has no payment.
	FindByOrder(orderID uuid.UUID) (*Payment, error)
	FindByFilter(filter PaymentFilter) ([]Payment, error)
}
