package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
)

type Services struct {
	Orders   OrderService
	Tables   TableService
	Payments PaymentService
}

type Dependencies struct {
	UnitOfWork           model.UnitOfWork
	Catalog              model.MenuCatalog
	Customers            model.CustomerDirectory
	Staff                model.StaffDirectory
	Dispatcher           EventDispatcher
	Clock                model.Clock
	Logger               logrus.FieldLogger
	DefaultPaymentMethod model.PaymentMethod
}

// NewServices builds the three services. The payment ledger reaches the
// order coordinator only through OrderStatusUpdater.
func NewServices(deps Dependencies) *Services {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	tables := NewTableService(deps.UnitOfWork, deps.Dispatcher, deps.Clock, deps.Logger.WithField("component", "tables"))

	var orders OrderService
	updater := OrderStatusUpdaterFunc(func(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error {
		return orders.ForceStatus(ctx, orderID, status)
	})
	payments := NewPaymentService(deps.UnitOfWork, updater, deps.Dispatcher, deps.Clock, deps.Logger.WithField("component", "payments"))

	orders = NewOrderService(OrderServiceDependencies{
		UnitOfWork:           deps.UnitOfWork,
		Catalog:              deps.Catalog,
		Customers:            deps.Customers,
		Staff:                deps.Staff,
		Tables:               tables,
		Payments:             payments,
		Dispatcher:           deps.Dispatcher,
		Clock:                deps.Clock,
		Logger:               deps.Logger.WithField("component", "orders"),
		DefaultPaymentMethod: deps.DefaultPaymentMethod,
	})

	return &Services{Orders: orders, Tables: tables, Payments: payments}
}
