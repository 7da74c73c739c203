package memory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

type paymentRepository struct {
	data *snapshot
}

func (r *paymentRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *paymentRepository) Create(payment *model.Payment) error {
	if _, exists := r.data.payments[payment.ID]; exists {
		return errors.Errorf("payment %s already exists", payment.ID)
	}
	for _, p := range r.data.payments {
		if p.OrderID == payment.OrderID {
			return errors.Wrapf(model.ErrDuplicatePaymentOrder, "order %s", payment.OrderID)
		}
	}
	r.data.paymentsForWrite()[payment.ID] = *payment
	return nil
}

func (r *paymentRepository) Update(payment *model.Payment) error {
	if _, ok := r.data.payments[payment.ID]; !ok {
		return model.ErrPaymentNotFound
	}
	r.data.paymentsForWrite()[payment.ID] = *payment
	return nil
}

func (r *paymentRepository) Find(id uuid.UUID) (*model.Payment, error) {
	payment, ok := r.data.payments[id]
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	return &payment, nil
}

func (r *paymentRepository) FindByOrder(orderID uuid.UUID) (*model.Payment, error) {
	for _, p := range r.data.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, model.ErrPaymentNotFound
}

func (r *paymentRepository) FindByFilter(filter model.PaymentFilter) ([]model.Payment, error) {
	var payments []model.Payment
	for _, p := range r.data.payments {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.RestaurantID != nil {
			order, ok := r.data.orders[p.OrderID]
			if !ok || order.RestaurantID != *filter.RestaurantID {
				continue
			}
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}
