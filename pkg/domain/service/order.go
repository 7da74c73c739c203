package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
)

// TableOccupancy is the part of the table registry the order coordinator
// depends on.
type TableOccupancy interface {
	ValidateTableForOrder(ctx context.Context, tableID uuid.UUID, orderType model.OrderType) (*model.Table, error)
	AutoOccupyTable(ctx context.Context, tableID, orderID uuid.UUID) (*model.Table, error)
	AutoReleaseTable(ctx context.Context, tableID, orderID uuid.UUID) (ReleaseResult, error)
}

// PaymentProcessor is the part of the payment ledger the order coordinator
// depends on.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, orderID uuid.UUID, params ProcessPaymentParams) (*model.Payment, error)
	CompletePendingPayment(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
}

// OrderStatusUpdater lets other services write an order status without going
// through the transition table.
type OrderStatusUpdater interface {
	ForceStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error
}

type OrderStatusUpdaterFunc func(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error

func (f OrderStatusUpdaterFunc) ForceStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error {
	return f(ctx, orderID, status)
}

type CreateOrderItemParams struct {
	MenuItemID     uuid.UUID
	Quantity       int
	UnitPriceCents int64
	Instructions   string
}

type CreateOrderParams struct {
	RestaurantID  uuid.UUID
	WaiterID      uuid.UUID
	Type          model.OrderType
	TableID       *uuid.UUID
	CustomerPhone string
	CustomerName  string
	PartySize     int
	Notes         string
	// DeclaredTotalCents is the total the client computed, if any. The sum of
	// the line items always wins.
	DeclaredTotalCents *int64
	Items              []CreateOrderItemParams
}

type OrderService interface {
	OrderStatusUpdater

	CreateOrder(ctx context.Context, params CreateOrderParams) (*model.OrderView, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.OrderView, error)
	ApplyDiscount(ctx context.Context, orderID uuid.UUID, discountCents int64) (*model.OrderView, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error

	AddLineItem(ctx context.Context, orderID uuid.UUID, params AddLineItemParams) (*model.OrderView, error)
	UpdateLineItem(ctx context.Context, orderID, itemID uuid.UUID, params UpdateLineItemParams) (*model.OrderView, error)
	RemoveLineItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.OrderView, error)
	Recalculate(ctx context.Context, orderID uuid.UUID) (*model.OrderView, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderView, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	ActiveOrdersForTable(ctx context.Context, tableID uuid.UUID) ([]model.Order, error)
}

type OrderServiceDependencies struct {
	UnitOfWork model.UnitOfWork
	Catalog    model.MenuCatalog
	Customers  model.CustomerDirectory
	Staff      model.StaffDirectory
	Tables     TableOccupancy
	Payments   PaymentProcessor
	Dispatcher EventDispatcher
	Clock      model.Clock
	Logger     logrus.FieldLogger
	// DefaultPaymentMethod is used when an order is marked PAID without an
	// explicit payment. Defaults to CASH.
	DefaultPaymentMethod model.PaymentMethod
}

func NewOrderService(deps OrderServiceDependencies) OrderService {
	if deps.Clock == nil {
		deps.Clock = model.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.DefaultPaymentMethod == "" {
		deps.DefaultPaymentMethod = model.Cash
	}
	return &orderService{
		uow:           deps.UnitOfWork,
		catalog:       deps.Catalog,
		customers:     deps.Customers,
		staff:         deps.Staff,
		tables:        deps.Tables,
		payments:      deps.Payments,
		dispatcher:    deps.Dispatcher,
		clock:         deps.Clock,
		logger:        deps.Logger,
		defaultMethod: deps.DefaultPaymentMethod,
	}
}

type orderService struct {
	uow           model.UnitOfWork
	catalog       model.MenuCatalog
	customers     model.CustomerDirectory
	staff         model.StaffDirectory
	tables        TableOccupancy
	payments      PaymentProcessor
	dispatcher    EventDispatcher
	clock         model.Clock
	logger        logrus.FieldLogger
	defaultMethod model.PaymentMethod
}

func (s *orderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*model.OrderView, error) {
	if err := validateCreateOrder(params); err != nil {
		return nil, err
	}

	if params.Type == model.DineIn {
		if _, err := s.tables.ValidateTableForOrder(ctx, *params.TableID, params.Type); err != nil {
			return nil, err
		}
	}

	var customerID *uuid.UUID
	if params.CustomerPhone != "" && s.customers != nil {
		id, err := s.customers.FindOrCreate(ctx, params.RestaurantID, params.CustomerPhone, params.CustomerName)
		if err != nil {
			return nil, errors.Wrap(err, "resolve customer")
		}
		customerID = &id
	}

	for _, item := range params.Items {
		if _, err := s.availableMenuItem(ctx, item.MenuItemID); err != nil {
			return nil, err
		}
	}

	var (
		order *model.Order
		err   error
	)
	for attempt := 1; ; attempt++ {
		order, err = s.persistNewOrder(ctx, params, customerID)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrDuplicateOrderNumber) {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"restaurant_id": params.RestaurantID,
			"attempt":       attempt,
		}).Warn("duplicate order number, regenerating")
		if attempt == orderNumberAttempts {
			return nil, errors.Wrapf(model.ErrOrderNumberExhausted, "restaurant %s after %d attempts", params.RestaurantID, attempt)
		}
	}

	log := s.logger.WithFields(logrus.Fields{"order_id": order.ID, "order_number": order.OrderNumber})
	log.Info("order created")

	if order.Type == model.DineIn {
		if _, err := s.tables.AutoOccupyTable(ctx, *order.TableID, order.ID); err != nil {
			log.WithError(err).WithField("table_id", *order.TableID).Error("failed to occupy table for new order")
		}
	}

	dispatchEvents(s.dispatcher, s.logger, model.OrderCreated{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		OrderNumber:  order.OrderNumber,
		OrderType:    order.Type,
		TotalCents:   order.TotalCents,
	})

	return s.GetOrder(ctx, order.ID)
}

func validateCreateOrder(params CreateOrderParams) error {
	if params.RestaurantID == uuid.Nil {
		return errors.Wrap(model.ErrMissingField, "restaurantId is required")
	}
	if params.WaiterID == uuid.Nil {
		return errors.Wrap(model.ErrMissingField, "waiterId is required")
	}
	if !params.Type.Valid() {
		return errors.Wrapf(model.ErrInvalidOrderType, "unknown order type %q", params.Type)
	}
	if params.Type == model.DineIn && params.TableID == nil {
		return errors.Wrap(model.ErrInvalidOrderType, "dine-in orders require a table assignment")
	}
	if params.Type != model.DineIn && params.TableID != nil {
		return errors.Wrapf(model.ErrInvalidOrderType, "%s orders must not have a table assignment", params.Type)
	}
	if len(params.Items) == 0 {
		return errors.Wrap(model.ErrMissingField, "at least one item is required")
	}
	var subtotal int64
	for i, item := range params.Items {
		if item.MenuItemID == uuid.Nil {
			return errors.Wrapf(model.ErrMissingField, "items[%d].menuItemId is required", i)
		}
		if item.Quantity < 1 {
			return errors.Wrapf(model.ErrInvalidQuantity, "items[%d] has quantity %d", i, item.Quantity)
		}
		if item.UnitPriceCents < 0 {
			return errors.Wrapf(model.ErrMissingField, "items[%d] has negative price", i)
		}
		total, err := model.LineTotal(item.Quantity, item.UnitPriceCents)
		if err != nil {
			return errors.Wrapf(err, "items[%d]", i)
		}
		subtotal += total
		if subtotal > model.MaxAmountCents {
			return errors.Wrapf(model.ErrInvalidQuantity, "order subtotal exceeds %s", model.FormatCents(model.MaxAmountCents))
		}
	}
	return nil
}

func (s *orderService) persistNewOrder(ctx context.Context, params CreateOrderParams, customerID *uuid.UUID) (*model.Order, error) {
	var order *model.Order
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		orderRepo := provider.OrderRepository()
		itemRepo := provider.OrderItemRepository()

		number, err := nextOrderNumber(orderRepo, s.clock, params.RestaurantID)
		if err != nil {
			return err
		}
		orderID, err := orderRepo.NextID()
		if err != nil {
			return err
		}

		now := s.clock.Now()
		partySize := params.PartySize
		if partySize < 1 {
			partySize = 1
		}
		order = &model.Order{
			ID:           orderID,
			RestaurantID: params.RestaurantID,
			OrderNumber:  number,
			TableID:      params.TableID,
			WaiterID:     params.WaiterID,
			CustomerID:   customerID,
			PartySize:    partySize,
			Type:         params.Type,
			Status:       model.Pending,
			Notes:        params.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		items := make([]model.OrderItem, 0, len(params.Items))
		for _, p := range params.Items {
			itemID, err := itemRepo.NextID()
			if err != nil {
				return err
			}
			total, err := model.LineTotal(p.Quantity, p.UnitPriceCents)
			if err != nil {
				return err
			}
			items = append(items, model.OrderItem{
				ID:                  itemID,
				OrderID:             orderID,
				MenuItemID:          p.MenuItemID,
				Quantity:            p.Quantity,
				UnitPriceCents:      p.UnitPriceCents,
				TotalPriceCents:     total,
				SpecialInstructions: p.Instructions,
				CreatedAt:           now,
				UpdatedAt:           now,
			})
		}
		if err := order.ApplyItems(items); err != nil {
			return err
		}

		if declared := params.DeclaredTotalCents; declared != nil {
			if diff := *declared - order.SubtotalCents; diff > 1 || diff < -1 {
				s.logger.WithFields(logrus.Fields{
					"declared_total": model.FormatCents(*declared),
					"computed_total": model.FormatCents(order.SubtotalCents),
				}).Warn("declared order total disagrees with line items, using computed total")
			}
		}

		if err := orderRepo.Create(order); err != nil {
			return err
		}
		for i := range items {
			if err := itemRepo.Create(&items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.OrderView, error) {
	if _, err := model.ParseOrderStatus(string(status)); err != nil {
		return nil, errors.Wrapf(err, "order status %q", status)
	}

	var (
		order    *model.Order
		previous model.OrderStatus
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.OrderRepository()
		o, err := repo.FindForUpdate(orderID)
		if err != nil {
			return err
		}
		if o.Status == model.Cancelled {
			return errors.Wrapf(model.ErrOrderClosed, "cannot update cancelled order %s", o.OrderNumber)
		}
		if !o.Status.CanTransitionTo(status) {
			return &model.TransitionError{From: o.Status, To: status, Allowed: o.Status.AllowedTransitions()}
		}

		now := s.clock.Now()
		previous = o.Status
		o.Status = status
		o.UpdatedAt = now
		if status == model.Completed {
			o.CompletedAt = &now
		}
		order = o
		return repo.Update(o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     previous,
		"to":       status,
	}).Info("order status changed")

	if status == model.Paid {
		s.syncPayment(ctx, order)
	}
	s.releaseTable(ctx, order)

	dispatchEvents(s.dispatcher, s.logger, model.OrderStatusChanged{OrderID: orderID, OldStatus: previous, NewStatus: status})

	return s.GetOrder(ctx, orderID)
}

// syncPayment is best-effort: the order is already PAID when it runs.
func (s *orderService) syncPayment(ctx context.Context, order *model.Order) {
	log := s.logger.WithField("order_id", order.ID)

	_, err := s.payments.ProcessPayment(ctx, order.ID, ProcessPaymentParams{
		Method:        s.defaultMethod,
		TransactionID: fmt.Sprintf("AUTO-%d", s.clock.Now().Unix()),
		Notes:         "Payment processed when order marked as PAID",
	})
	if err == nil {
		return
	}
	log.WithError(err).Warn("failed to process payment for paid order, completing pending payment instead")

	if _, fallbackErr := s.payments.CompletePendingPayment(ctx, order.ID); fallbackErr != nil {
		log.WithError(fallbackErr).WithField("process_error", err.Error()).Error("payment reconciliation failed for paid order")
	}
}

func (s *orderService) releaseTable(ctx context.Context, order *model.Order) {
	if order.Type != model.DineIn || order.TableID == nil || !order.Status.ReleasesTable() {
		return
	}
	result, err := s.tables.AutoReleaseTable(ctx, *order.TableID, order.ID)
	log := s.logger.WithFields(logrus.Fields{"order_id": order.ID, "table_id": *order.TableID})
	if err != nil {
		log.WithError(err).Error("failed to release table")
		return
	}
	if !result.Released {
		log.WithField("remaining_orders", result.RemainingOrders).Info("table kept occupied by other orders")
	}
}

func (s *orderService) ForceStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error {
	if _, err := model.ParseOrderStatus(string(status)); err != nil {
		return errors.Wrapf(err, "order status %q", status)
	}

	var (
		order    *model.Order
		previous model.OrderStatus
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.OrderRepository()
		o, err := repo.FindForUpdate(orderID)
		if err != nil {
			return err
		}
		previous = o.Status
		order = o
		if o.Status == status {
			return nil
		}

		now := s.clock.Now()
		o.Status = status
		o.UpdatedAt = now
		if status == model.Paid && o.CompletedAt == nil {
			o.CompletedAt = &now
		}
		return repo.Update(o)
	})
	if err != nil {
		return err
	}
	if previous == status {
		return nil
	}

	s.logger.WithFields(logrus.Fields{"order_id": orderID, "from": previous, "to": status}).Info("order status synchronized")
	s.releaseTable(ctx, order)
	dispatchEvents(s.dispatcher, s.logger, model.OrderStatusChanged{OrderID: orderID, OldStatus: previous, NewStatus: status})
	return nil
}

func (s *orderService) ApplyDiscount(ctx context.Context, orderID uuid.UUID, discountCents int64) (*model.OrderView, error) {
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.OrderRepository()
		order, err := repo.FindForUpdate(orderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsItemChanges() {
			return errors.Wrapf(model.ErrOrderClosed, "cannot discount %s order", order.Status)
		}
		if err := order.SetDiscount(discountCents); err != nil {
			return errors.Wrapf(err, "discount %s, subtotal %s", model.FormatCents(discountCents), model.FormatCents(order.SubtotalCents))
		}
		order.UpdatedAt = s.clock.Now()
		return repo.Update(order)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	var order *model.Order
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		o, err := provider.OrderRepository().FindForUpdate(orderID)
		if err != nil {
			return err
		}
		if o.Status == model.Completed {
			return errors.Wrap(model.ErrOrderNotDeletable, "completed orders cannot be deleted")
		}
		_, err = provider.PaymentRepository().FindByOrder(orderID)
		if err == nil {
			return errors.Wrap(model.ErrOrderNotDeletable, "order has a payment record")
		}
		if !errors.Is(err, model.ErrPaymentNotFound) {
			return err
		}

		if err := provider.OrderItemRepository().DeleteByOrder(orderID); err != nil {
			return err
		}
		order = o
		return provider.OrderRepository().Delete(orderID)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("order_id", orderID).Info("order deleted")
	if order.Type == model.DineIn && order.TableID != nil {
		if _, err := s.tables.AutoReleaseTable(ctx, *order.TableID, orderID); err != nil {
			s.logger.WithError(err).WithField("table_id", *order.TableID).Error("failed to release table on order deletion")
		}
	}
	dispatchEvents(s.dispatcher, s.logger, model.OrderDeleted{OrderID: orderID})
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderView, error) {
	var view *model.OrderView
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		order, err := provider.OrderRepository().Find(orderID)
		if err != nil {
			return err
		}
		items, err := provider.OrderItemRepository().FindByOrder(orderID)
		if err != nil {
			return err
		}
		view = &model.OrderView{Order: *order, Items: items}

		if order.TableID != nil {
			table, err := provider.TableRepository().Find(*order.TableID)
			if err != nil && !errors.Is(err, model.ErrTableNotFound) {
				return err
			}
			view.Table = table
		}

		payment, err := provider.PaymentRepository().FindByOrder(orderID)
		if err != nil && !errors.Is(err, model.ErrPaymentNotFound) {
			return err
		}
		view.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithField("order_id", orderID)
	if view.CustomerID != nil && s.customers != nil {
		customer, err := s.customers.FindCustomer(ctx, *view.CustomerID)
		if err != nil {
			log.WithError(err).Warn("failed to load order customer")
		}
		view.Customer = customer
	}
	if s.staff != nil {
		waiter, err := s.staff.FindStaff(ctx, view.WaiterID)
		if err != nil {
			log.WithError(err).Warn("failed to load order waiter")
		}
		view.Waiter = waiter
	}
	return view, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		orders, err = provider.OrderRepository().FindByFilter(filter)
		return err
	})
	return orders, err
}

func (s *orderService) ActiveOrdersForTable(ctx context.Context, tableID uuid.UUID) ([]model.Order, error) {
	return s.ListOrders(ctx, model.OrderFilter{TableID: &tableID, Statuses: model.ActiveStatuses()})
}

func (s *orderService) availableMenuItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	item, err := s.catalog.FindMenuItem(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "menu item %s", id)
	}
	if !item.Available {
		return nil, errors.Wrapf(model.ErrItemUnavailable, "menu item %q is not available", item.Name)
	}
	return item, nil
}
