package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingField         = errors.New("required field is missing")
	ErrInvalidOrderType     = errors.New("order type does not match table assignment")
	ErrTableUnavailable     = errors.New("table is not available")
	ErrItemUnavailable      = errors.New("menu item is not available")
	ErrOrderClosed          = errors.New("order is closed for this operation")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrLastItemProtected    = errors.New("cannot remove the last item from an order")
	ErrAmountMismatch       = errors.New("payment amount does not match order total")
	ErrPaymentExists        = errors.New("payment already exists for this order")
	ErrInvalidState         = errors.New("payment is not in a valid state for this operation")
	ErrOrderNumberExhausted = errors.New("failed to generate a unique order number")
	ErrRecalculationFailed  = errors.New("order totals recalculation failed")

	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrStaffNotFound     = errors.New("staff member not found")

	ErrInvalidStatus         = errors.New("unknown status value")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidDiscount       = errors.New("discount must be between zero and the order subtotal")
	ErrOrderNotDeletable     = errors.New("order cannot be deleted")
	ErrTableNotOccupied      = errors.New("only occupied tables can be released")
	ErrTableHasActiveOrders  = errors.New("table has active orders")
	ErrDuplicateOrderNumber  = errors.New("order number already taken")
	ErrDuplicatePaymentOrder = errors.New("payment for order already stored")
)

// TransitionError reports a rejected status change together with the edges
// that were allowed from the current status.
type TransitionError struct {
	From    OrderStatus
	To      OrderStatus
	Allowed []OrderStatus
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		names := make([]string, 0, len(e.Allowed))
		for _, s := range e.Allowed {
			names = append(names, string(s))
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("cannot transition order from %s to %s, valid transitions: %s", e.From, e.To, allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type AmountMismatchError struct {
	AmountCents int64
	TotalCents  int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount (%s) must match order total (%s)", FormatCents(e.AmountCents), FormatCents(e.TotalCents))
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrAmountMismatch
}

func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// RecalculationError reports that a line item write succeeded inside the unit
// of work but the owning order's totals could not be recomputed.
type RecalculationError struct {
	OrderID uuid.UUID
	Err     error
}

func (e *RecalculationError) Error() string {
	return fmt.Sprintf("recalculate totals of order %s: %v", e.OrderID, e.Err)
}

func (e *RecalculationError) Is(target error) bool {
	return target == ErrRecalculationFailed
}

func (e *RecalculationError) Unwrap() error {
	return e.Err
}
