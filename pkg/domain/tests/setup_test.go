package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
	"pos/pkg/infrastructure/memory"
)

type fixture struct {
	store      *memory.Store
	uow        *faultyUnitOfWork
	catalog    *memory.Catalog
	customers  *memory.CustomerDirectory
	dispatcher *mockEventDispatcher
	logs       *test.Hook
	clock      *fixedClock

	orders   service.OrderService
	tables   service.TableService
	payments service.PaymentService

	restaurantID uuid.UUID
	waiter       model.Staff
	steak        model.MenuItem // 50.00
	wine         model.MenuItem // 30.00
	soup         model.MenuItem // 12.50
	seasonal     model.MenuItem // unavailable
}

type option func(*service.OrderServiceDependencies)

func withPayments(p service.PaymentProcessor) option {
	return func(deps *service.OrderServiceDependencies) { deps.Payments = p }
}

func withTables(t service.TableOccupancy) option {
	return func(deps *service.OrderServiceDependencies) { deps.Tables = t }
}

func setup(t *testing.T, opts ...option) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		store:        memory.NewStore(),
		customers:    memory.NewCustomerDirectory(),
		dispatcher:   &mockEventDispatcher{},
		logs:         hook,
		clock:        &fixedClock{now: time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)},
		restaurantID: uuid.New(),
		steak:        model.MenuItem{ID: uuid.New(), Name: "Ribeye", PriceCents: 5000, Available: true},
		wine:         model.MenuItem{ID: uuid.New(), Name: "House red", PriceCents: 3000, Available: true},
		soup:         model.MenuItem{ID: uuid.New(), Name: "Pumpkin soup", PriceCents: 1250, Available: true},
		seasonal:     model.MenuItem{ID: uuid.New(), Name: "Truffle risotto", PriceCents: 4200, Available: false},
	}
	f.uow = &faultyUnitOfWork{inner: f.store}
	f.catalog = memory.NewCatalog(f.steak, f.wine, f.soup, f.seasonal)
	f.waiter = model.Staff{ID: uuid.New(), RestaurantID: f.restaurantID, Name: "Joseph", Role: "WAITER"}

	f.tables = service.NewTableService(f.uow, f.dispatcher, f.clock, logger)

	var orders service.OrderService
	statusUpdater := service.OrderStatusUpdaterFunc(func(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error {
		return orders.ForceStatus(ctx, orderID, status)
	})
	f.payments = service.NewPaymentService(f.uow, statusUpdater, f.dispatcher, f.clock, logger)

	deps := service.OrderServiceDependencies{
		UnitOfWork: f.uow,
		Catalog:    f.catalog,
		Customers:  f.customers,
		Staff:      memory.NewStaffDirectory(f.waiter),
		Tables:     f.tables,
		Payments:   f.payments,
		Dispatcher: f.dispatcher,
		Clock:      f.clock,
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	orders = service.NewOrderService(deps)
	f.orders = orders
	return f
}

func (f *fixture) addTable(t *testing.T, number, capacity int, status model.TableStatus) model.Table {
	t.Helper()
	table := model.Table{
		ID:           uuid.New(),
		RestaurantID: f.restaurantID,
		TableNumber:  number,
		Capacity:     capacity,
		Status:       status,
		Active:       true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		return provider.TableRepository().Create(&table)
	}))
	return table
}

func (f *fixture) table(t *testing.T, id uuid.UUID) model.Table {
	t.Helper()
	table, err := f.tables.GetTable(context.Background(), id)
	require.NoError(t, err)
	return *table
}

func (f *fixture) order(t *testing.T, id uuid.UUID) *model.OrderView {
	t.Helper()
	view, err := f.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return view
}

// dineInParams is the table five scenario: 2 x 50.00 and 1 x 30.00.
func (f *fixture) dineInParams(tableID uuid.UUID) service.CreateOrderParams {
	return service.CreateOrderParams{
		RestaurantID: f.restaurantID,
		WaiterID:     f.waiter.ID,
		Type:         model.DineIn,
		TableID:      &tableID,
		PartySize:    4,
		Items: []service.CreateOrderItemParams{
			{MenuItemID: f.steak.ID, Quantity: 2, UnitPriceCents: f.steak.PriceCents},
			{MenuItemID: f.wine.ID, Quantity: 1, UnitPriceCents: f.wine.PriceCents},
		},
	}
}

func (f *fixture) takeawayParams(items ...service.CreateOrderItemParams) service.CreateOrderParams {
	if len(items) == 0 {
		items = []service.CreateOrderItemParams{{MenuItemID: f.soup.ID, Quantity: 1, UnitPriceCents: f.soup.PriceCents}}
	}
	return service.CreateOrderParams{
		RestaurantID: f.restaurantID,
		WaiterID:     f.waiter.ID,
		Type:         model.Takeaway,
		Items:        items,
	}
}

func (f *fixture) advance(t *testing.T, orderID uuid.UUID, statuses ...model.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := f.orders.UpdateOrderStatus(context.Background(), orderID, status)
		require.NoError(t, err, "transition to %s", status)
	}
}

func (f *fixture) entries(level logrus.Level) []logrus.Entry {
	var entries []logrus.Entry
	for _, entry := range f.logs.AllEntries() {
		if entry.Level == level {
			entries = append(entries, *entry)
		}
	}
	return entries
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

var _ service.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type())
	}
	return types
}

// faultyUnitOfWork lets a test replace repositories handed to the services,
// e.g. to make a write fail in the middle of a unit.
type faultyUnitOfWork struct {
	inner model.UnitOfWork
	mu    sync.Mutex
	wrap  func(model.RepositoryProvider) model.RepositoryProvider
}

func (u *faultyUnitOfWork) Execute(ctx context.Context, f func(provider model.RepositoryProvider) error) error {
	u.mu.Lock()
	wrap := u.wrap
	u.mu.Unlock()
	return u.inner.Execute(ctx, func(provider model.RepositoryProvider) error {
		if wrap != nil {
			provider = wrap(provider)
		}
		return f(provider)
	})
}

func (u *faultyUnitOfWork) Inject(wrap func(model.RepositoryProvider) model.RepositoryProvider) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.wrap = wrap
}

type faultyProvider struct {
	model.RepositoryProvider
	orders   func(model.OrderRepository) model.OrderRepository
	payments func(model.PaymentRepository) model.PaymentRepository
}

func (p faultyProvider) OrderRepository() model.OrderRepository {
	if p.orders == nil {
		return p.RepositoryProvider.OrderRepository()
	}
	return p.orders(p.RepositoryProvider.OrderRepository())
}

func (p faultyProvider) PaymentRepository() model.PaymentRepository {
	if p.payments == nil {
		return p.RepositoryProvider.PaymentRepository()
	}
	return p.payments(p.RepositoryProvider.PaymentRepository())
}

// staleLookupRepository misses the order's payment on the first n lookups,
// as if a concurrent writer inserted it after the read.
type staleLookupRepository struct {
	model.PaymentRepository
	remaining *int
}

func (r staleLookupRepository) FindByOrder(orderID uuid.UUID) (*model.Payment, error) {
	if *r.remaining > 0 {
		*r.remaining--
		return nil, model.ErrPaymentNotFound
	}
	return r.PaymentRepository.FindByOrder(orderID)
}

// duplicateNumberRepository reports the first n order inserts as order number
// collisions.
type duplicateNumberRepository struct {
	model.OrderRepository
	remaining *int
	attempted *[]string
}

func (r duplicateNumberRepository) Create(order *model.Order) error {
	*r.attempted = append(*r.attempted, order.OrderNumber)
	if *r.remaining > 0 {
		*r.remaining--
		return model.ErrDuplicateOrderNumber
	}
	return r.OrderRepository.Create(order)
}

// failingUpdateRepository fails every order update.
type failingUpdateRepository struct {
	model.OrderRepository
	err error
}

func (r failingUpdateRepository) Update(*model.Order) error {
	return r.err
}

type mockPaymentProcessor struct {
	processErr  error
	completeErr error
	processed   []uuid.UUID
	completed   []uuid.UUID
}

func (m *mockPaymentProcessor) ProcessPayment(_ context.Context, orderID uuid.UUID, _ service.ProcessPaymentParams) (*model.Payment, error) {
	m.processed = append(m.processed, orderID)
	if m.processErr != nil {
		return nil, m.processErr
	}
	return &model.Payment{OrderID: orderID, Status: model.PaymentCompleted}, nil
}

func (m *mockPaymentProcessor) CompletePendingPayment(_ context.Context, orderID uuid.UUID) (*model.Payment, error) {
	m.completed = append(m.completed, orderID)
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &model.Payment{OrderID: orderID, Status: model.PaymentCompleted}, nil
}

type mockTableOccupancy struct {
	service.TableOccupancy
	occupyErr  error
	releaseErr error
	occupied   []uuid.UUID
	released   []uuid.UUID
}

func (m *mockTableOccupancy) AutoOccupyTable(ctx context.Context, tableID, orderID uuid.UUID) (*model.Table, error) {
	m.occupied = append(m.occupied, tableID)
	if m.occupyErr != nil {
		return nil, m.occupyErr
	}
	return m.TableOccupancy.AutoOccupyTable(ctx, tableID, orderID)
}

func (m *mockTableOccupancy) AutoReleaseTable(ctx context.Context, tableID, orderID uuid.UUID) (service.ReleaseResult, error) {
	m.released = append(m.released, tableID)
	if m.releaseErr != nil {
		return service.ReleaseResult{}, m.releaseErr
	}
	return m.TableOccupancy.AutoReleaseTable(ctx, tableID, orderID)
}
