package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
)

type ProcessPaymentParams struct {
	Method        model.PaymentMethod
	TransactionID string
	Notes         string
}

type CreatePaymentParams struct {
	OrderID       uuid.UUID
	AmountCents   int64
	Method        model.PaymentMethod
	TransactionID string
	Notes         string
	// Status defaults to PENDING.
	Status model.PaymentStatus
}

type UpdatePaymentParams struct {
	Method        *model.PaymentMethod
	TransactionID *string
	Notes         *string
	Status        *model.PaymentStatus
}

type PaymentService interface {
	PaymentProcessor

	CreatePayment(ctx context.Context, params CreatePaymentParams) (*model.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, params UpdatePaymentParams) (*model.Payment, error)
	Refund(ctx context.Context, paymentID uuid.UUID, notes string) (*model.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error)
	PaymentForOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
}

func NewPaymentService(uow model.UnitOfWork, orders OrderStatusUpdater, dispatcher EventDispatcher, clock model.Clock, logger logrus.FieldLogger) PaymentService {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &paymentService{uow: uow, orders: orders, dispatcher: dispatcher, clock: clock, logger: logger}
}

type paymentService struct {
	uow        model.UnitOfWork
	orders     OrderStatusUpdater
	dispatcher EventDispatcher
	clock      model.Clock
	logger     logrus.FieldLogger
}

func (s *paymentService) CreatePayment(ctx context.Context, params CreatePaymentParams) (*model.Payment, error) {
	if params.OrderID == uuid.Nil {
		return nil, errors.Wrap(model.ErrMissingField, "orderId is required")
	}
	if !params.Method.Valid() {
		return nil, errors.Wrapf(model.ErrMissingField, "payment method %q", params.Method)
	}
	status := params.Status
	if status == "" {
		status = model.PaymentPending
	}
	if !status.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidStatus, "payment status %q", status)
	}

	var payment *model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		orderRepo := provider.OrderRepository()
		paymentRepo := provider.PaymentRepository()

		order, err := orderRepo.FindForUpdate(params.OrderID)
		if err != nil {
			return err
		}
		if existing, err := paymentRepo.FindByOrder(order.ID); err == nil {
			return errors.Wrapf(model.ErrPaymentExists, "order %s already has payment %s", order.OrderNumber, existing.PaymentNumber)
		} else if !errors.Is(err, model.ErrPaymentNotFound) {
			return err
		}
		if params.AmountCents != order.TotalCents {
			return &model.AmountMismatchError{AmountCents: params.AmountCents, TotalCents: order.TotalCents}
		}

		id, err := paymentRepo.NextID()
		if err != nil {
			return err
		}
		now := s.clock.Now()
		payment = &model.Payment{
			ID:            id,
			OrderID:       order.ID,
			PaymentNumber: paymentNumber(s.clock, id),
			AmountCents:   params.AmountCents,
			Method:        params.Method,
			Status:        status,
			TransactionID: params.TransactionID,
			Notes:         params.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if status == model.PaymentCompleted {
			payment.Complete(now)
		}
		if err := createPayment(paymentRepo, payment); err != nil {
			return err
		}
		order.PaymentID = &payment.ID
		order.UpdatedAt = now
		return orderRepo.Update(order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"payment_id": payment.ID, "order_id": payment.OrderID}).Info("payment created")
	if payment.Status == model.PaymentCompleted {
		s.dispatchCompleted(payment)
	}
	return payment, nil
}

// ProcessPayment creates the order's payment as COMPLETED or completes the
// existing one, then makes sure the order is PAID. Calling it again is safe.
func (s *paymentService) ProcessPayment(ctx context.Context, orderID uuid.UUID, params ProcessPaymentParams) (*model.Payment, error) {
	if !params.Method.Valid() {
		return nil, errors.Wrapf(model.ErrMissingField, "payment method %q", params.Method)
	}

	var (
		payment   *model.Payment
		orderPaid bool
		err       error
	)
	for attempt := 1; ; attempt++ {
		payment, orderPaid, err = s.settle(ctx, orderID, params)
		if err == nil || !errors.Is(err, model.ErrPaymentExists) || attempt == settleAttempts {
			break
		}
		// A concurrent call stored the payment first, the next attempt completes it.
		s.logger.WithField("order_id", orderID).Warn("payment for order created concurrently, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"payment_id": payment.ID, "order_id": orderID}).Info("payment processed")
	s.dispatchCompleted(payment)

	if !orderPaid {
		if err := s.orders.ForceStatus(ctx, orderID, model.Paid); err != nil {
			return payment, errors.Wrapf(err, "payment %s completed but order status was not updated", payment.PaymentNumber)
		}
	}
	return payment, nil
}

const settleAttempts = 2

// settle stores the order's payment as COMPLETED in one unit of work and
// reports whether the order was already PAID.
func (s *paymentService) settle(ctx context.Context, orderID uuid.UUID, params ProcessPaymentParams) (*model.Payment, bool, error) {
	var (
		payment   *model.Payment
		orderPaid bool
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		orderRepo := provider.OrderRepository()
		paymentRepo := provider.PaymentRepository()

		order, err := orderRepo.FindForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.Status == model.Cancelled {
			return errors.Wrapf(model.ErrOrderClosed, "cannot pay cancelled order %s", order.OrderNumber)
		}
		orderPaid = order.Status == model.Paid

		now := s.clock.Now()
		payment, err = paymentRepo.FindByOrder(orderID)
		switch {
		case errors.Is(err, model.ErrPaymentNotFound):
			id, err := paymentRepo.NextID()
			if err != nil {
				return err
			}
			payment = &model.Payment{
				ID:            id,
				OrderID:       orderID,
				PaymentNumber: paymentNumber(s.clock, id),
				AmountCents:   order.TotalCents,
				Method:        params.Method,
				TransactionID: params.TransactionID,
				Notes:         params.Notes,
				CreatedAt:     now,
			}
			payment.Complete(now)
			if err := createPayment(paymentRepo, payment); err != nil {
				return err
			}
			order.PaymentID = &payment.ID
			order.UpdatedAt = now
			return orderRepo.Update(order)
		case err != nil:
			return err
		}
		if payment.Status == model.PaymentRefunded {
			return errors.Wrapf(model.ErrInvalidState, "payment %s was refunded", payment.PaymentNumber)
		}

		payment.Method = params.Method
		if params.TransactionID != "" {
			payment.TransactionID = params.TransactionID
		}
		if params.Notes != "" {
			payment.Notes = params.Notes
		}
		payment.Complete(now)
		return paymentRepo.Update(payment)
	})
	if err != nil {
		return nil, false, err
	}
	return payment, orderPaid, nil
}

func (s *paymentService) CompletePendingPayment(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.PaymentRepository()
		var err error
		payment, err = repo.FindByOrder(orderID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentPending {
			return errors.Wrapf(model.ErrInvalidState, "payment %s is %s", payment.PaymentNumber, payment.Status)
		}
		payment.Complete(s.clock.Now())
		return repo.Update(payment)
	})
	if err != nil {
		return nil, err
	}
	s.dispatchCompleted(payment)
	return payment, nil
}

func (s *paymentService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, params UpdatePaymentParams) (*model.Payment, error) {
	var payment *model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.PaymentRepository()
		var err error
		payment, err = repo.Find(paymentID)
		if err != nil {
			return err
		}
		if payment.Status == model.PaymentCompleted {
			return errors.Wrapf(model.ErrInvalidState, "cannot update completed payment %s", payment.PaymentNumber)
		}

		if params.Method != nil {
			if !params.Method.Valid() {
				return errors.Wrapf(model.ErrMissingField, "payment method %q", *params.Method)
			}
			payment.Method = *params.Method
		}
		if params.TransactionID != nil {
			payment.TransactionID = *params.TransactionID
		}
		if params.Notes != nil {
			payment.Notes = *params.Notes
		}
		now := s.clock.Now()
		payment.UpdatedAt = now
		if params.Status != nil {
			if !params.Status.Valid() {
				return errors.Wrapf(model.ErrInvalidStatus, "payment status %q", *params.Status)
			}
			payment.Status = *params.Status
			if payment.Status == model.PaymentCompleted {
				payment.Complete(now)
			}
		}
		return repo.Update(payment)
	})
	if err != nil {
		return nil, err
	}
	if payment.Status == model.PaymentCompleted {
		s.dispatchCompleted(payment)
	}
	return payment, nil
}

// Refund cancels the order before marking the payment REFUNDED, so a retry
// after a partial failure finds the payment still COMPLETED.
func (s *paymentService) Refund(ctx context.Context, paymentID uuid.UUID, notes string) (*model.Payment, error) {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentCompleted {
		return nil, errors.Wrapf(model.ErrInvalidState, "only completed payments can be refunded, payment %s is %s", payment.PaymentNumber, payment.Status)
	}

	if err := s.orders.ForceStatus(ctx, payment.OrderID, model.Cancelled); err != nil {
		return nil, errors.Wrapf(err, "cancel order of payment %s", payment.PaymentNumber)
	}

	err = s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.PaymentRepository()
		var err error
		payment, err = repo.Find(paymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentCompleted {
			return errors.Wrapf(model.ErrInvalidState, "payment %s changed to %s during refund", payment.PaymentNumber, payment.Status)
		}
		payment.Status = model.PaymentRefunded
		if notes != "" {
			payment.Notes = notes
		}
		payment.UpdatedAt = s.clock.Now()
		return repo.Update(payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"payment_id": paymentID, "order_id": payment.OrderID}).Info("payment refunded")
	dispatchEvents(s.dispatcher, s.logger, model.PaymentReversed{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		AmountCents: payment.AmountCents,
	})
	return payment, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		payment, err = provider.PaymentRepository().Find(paymentID)
		return err
	})
	return payment, err
}

func (s *paymentService) PaymentForOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		payment, err = provider.PaymentRepository().FindByOrder(orderID)
		return err
	})
	return payment, err
}

func (s *paymentService) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	var payments []model.Payment
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		payments, err = provider.PaymentRepository().FindByFilter(filter)
		return err
	})
	return payments, err
}

func (s *paymentService) dispatchCompleted(payment *model.Payment) {
	dispatchEvents(s.dispatcher, s.logger, model.PaymentSettled{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		AmountCents: payment.AmountCents,
		Method:      payment.Method,
	})
}

// createPayment turns a lost race on the one-payment-per-order constraint
// into ErrPaymentExists.
func createPayment(repo model.PaymentRepository, payment *model.Payment) error {
	err := repo.Create(payment)
	if errors.Is(err, model.ErrDuplicatePaymentOrder) {
		return errors.Wrapf(model.ErrPaymentExists, "order %s", payment.OrderID)
	}
	return err
}
