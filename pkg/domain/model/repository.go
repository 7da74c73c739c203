package model

import "context"

type RepositoryProvider interface {
	OrderRepository() OrderRepository
	OrderItemRepository() OrderItemRepository
	TableRepository() TableRepository
	PaymentRepository() PaymentRepository
}

// UnitOfWork runs f atomically: either every write made through the provider
// is committed or none is. Returning an error from f rolls the unit back.
type UnitOfWork interface {
	Execute(ctx context.Context, f func(provider RepositoryProvider) error) error
}
