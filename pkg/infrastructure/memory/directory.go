package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pos/pkg/domain/model"
)

type Catalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.MenuItem
}

func NewCatalog(items ...model.MenuItem) *Catalog {
	c := &Catalog{items: make(map[uuid.UUID]model.MenuItem)}
	for _, item := range items {
		c.Put(item)
	}
	return c
}

func (c *Catalog) Put(item model.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

func (c *Catalog) FindMenuItem(_ context.Context, id uuid.UUID) (*model.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return nil, model.ErrMenuItemNotFound
	}
	return &item, nil
}

type customerKey struct {
	restaurantID uuid.UUID
	phone        string
}

type CustomerDirectory struct {
	mu        sync.Mutex
	customers map[uuid.UUID]model.Customer
	byPhone   map[customerKey]uuid.UUID
}

func NewCustomerDirectory() *CustomerDirectory {
	return &CustomerDirectory{
		customers: make(map[uuid.UUID]model.Customer),
		byPhone:   make(map[customerKey]uuid.UUID),
	}
}

func (d *CustomerDirectory) FindOrCreate(_ context.Context, restaurantID uuid.UUID, phone, name string) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := customerKey{restaurantID: restaurantID, phone: phone}
	if id, ok := d.byPhone[key]; ok {
		return id, nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	d.customers[id] = model.Customer{ID: id, RestaurantID: restaurantID, Name: name, Phone: phone}
	d.byPhone[key] = id
	return id, nil
}

func (d *CustomerDirectory) FindCustomer(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	customer, ok := d.customers[id]
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	return &customer, nil
}

type StaffDirectory struct {
	mu    sync.RWMutex
	staff map[uuid.UUID]model.Staff
}

func NewStaffDirectory(staff ...model.Staff) *StaffDirectory {
	d := &StaffDirectory{staff: make(map[uuid.UUID]model.Staff)}
	for _, s := range staff {
		d.Put(s)
	}
	return d
}

func (d *StaffDirectory) Put(s model.Staff) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff[s.ID] = s
}

func (d *StaffDirectory) FindStaff(_ context.Context, id uuid.UUID) (*model.Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.staff[id]
	if !ok {
		return nil, model.ErrStaffNotFound
	}
	return &s, nil
}
