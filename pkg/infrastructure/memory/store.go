package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"pos/pkg/domain/model"
)

// Store keeps every aggregate in process memory. A unit of work runs against
// a copy of the data which replaces the current state only when the unit
// succeeds, so a failed unit leaves no trace. Units are serialized.
// Collections are copied on their first write, so read-only units copy nothing.
type Store struct {
	mu   sync.Mutex
	data *snapshot
}

func NewStore() *Store {
	return &Store{data: newSnapshot()}
}

var _ model.UnitOfWork = &Store{}

func (s *Store) Execute(ctx context.Context, f func(provider model.RepositoryProvider) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := f(&provider{data: tx}); err != nil {
		return err
	}
	s.data = tx
	return nil
}

// snapshot maps are shared with the committed state until the unit writes
// to them. Writers go through the *ForWrite accessors.
type snapshot struct {
	orders   map[uuid.UUID]model.Order
	items    map[uuid.UUID]model.OrderItem
	tables   map[uuid.UUID]model.Table
	payments map[uuid.UUID]model.Payment

	ownsOrders, ownsItems, ownsTables, ownsPayments bool
}

func newSnapshot() *snapshot {
	return &snapshot{
		orders:       make(map[uuid.UUID]model.Order),
		items:        make(map[uuid.UUID]model.OrderItem),
		tables:       make(map[uuid.UUID]model.Table),
		payments:     make(map[uuid.UUID]model.Payment),
		ownsOrders:   true,
		ownsItems:    true,
		ownsTables:   true,
		ownsPayments: true,
	}
}

func (s *snapshot) clone() *snapshot {
	return &snapshot{
		orders:   s.orders,
		items:    s.items,
		tables:   s.tables,
		payments: s.payments,
	}
}

func (s *snapshot) ordersForWrite() map[uuid.UUID]model.Order {
	if !s.ownsOrders {
		s.orders = maps.Clone(s.orders)
		s.ownsOrders = true
	}
	return s.orders
}

func (s *snapshot) itemsForWrite() map[uuid.UUID]model.OrderItem {
	if !s.ownsItems {
		s.items = maps.Clone(s.items)
		s.ownsItems = true
	}
	return s.items
}

func (s *snapshot) tablesForWrite() map[uuid.UUID]model.Table {
	if !s.ownsTables {
		s.tables = maps.Clone(s.tables)
		s.ownsTables = true
	}
	return s.tables
}

func (s *snapshot) paymentsForWrite() map[uuid.UUID]model.Payment {
	if !s.ownsPayments {
		s.payments = maps.Clone(s.payments)
		s.ownsPayments = true
	}
	return s.payments
}

type provider struct {
	data *snapshot
}

func (p *provider) OrderRepository() model.OrderRepository {
	return &orderRepository{data: p.data}
}

func (p *provider) OrderItemRepository() model.OrderItemRepository {
	return &orderItemRepository{data: p.data}
}

func (p *provider) TableRepository() model.TableRepository {
	return &tableRepository{data: p.data}
}

func (p *provider) PaymentRepository() model.PaymentRepository {
	return &paymentRepository{data: p.data}
}
