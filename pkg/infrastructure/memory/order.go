package memory

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

type orderRepository struct {
	data *snapshot
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(order *model.Order) error {
	if _, exists := r.data.orders[order.ID]; exists {
		return errors.Errorf("order %s already exists", order.ID)
	}
	for _, o := range r.data.orders {
		if o.RestaurantID == order.RestaurantID && o.OrderNumber == order.OrderNumber {
			return errors.Wrap(model.ErrDuplicateOrderNumber, order.OrderNumber)
		}
	}
	r.data.ordersForWrite()[order.ID] = *order
	return nil
}

func (r *orderRepository) Update(order *model.Order) error {
	if _, ok := r.data.orders[order.ID]; !ok {
		return model.ErrOrderNotFound
	}
	r.data.ordersForWrite()[order.ID] = *order
	return nil
}

func (r *orderRepository) Delete(id uuid.UUID) error {
	if _, ok := r.data.orders[id]; !ok {
		return model.ErrOrderNotFound
	}
	delete(r.data.ordersForWrite(), id)
	return nil
}

func (r *orderRepository) Find(id uuid.UUID) (*model.Order, error) {
	order, ok := r.data.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return &order, nil
}

// FindForUpdate needs no locking here, units of work never overlap.
func (r *orderRepository) FindForUpdate(id uuid.UUID) (*model.Order, error) {
	return r.Find(id)
}

func (r *orderRepository) FindByFilter(filter model.OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range r.data.orders {
		if matchOrder(o, filter) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderNumber > orders[j].OrderNumber
	})
	return orders, nil
}

func (r *orderRepository) Count(filter model.OrderFilter) (int, error) {
	count := 0
	for _, o := range r.data.orders {
		if matchOrder(o, filter) {
			count++
		}
	}
	return count, nil
}

func (r *orderRepository) HighestOrderNumber(restaurantID uuid.UUID, prefix string) (string, error) {
	highest := ""
	for _, o := range r.data.orders {
		if o.RestaurantID != restaurantID || !strings.HasPrefix(o.OrderNumber, prefix) {
			continue
		}
		// A longer suffix is a bigger sequence once it outgrows the padding.
		if len(o.OrderNumber) > len(highest) || (len(o.OrderNumber) == len(highest) && o.OrderNumber > highest) {
			highest = o.OrderNumber
		}
	}
	return highest, nil
}

func matchOrder(o model.Order, filter model.OrderFilter) bool {
	if filter.RestaurantID != nil && o.RestaurantID != *filter.RestaurantID {
		return false
	}
	if filter.Type != nil && o.Type != *filter.Type {
		return false
	}
	if filter.TableID != nil && (o.TableID == nil || *o.TableID != *filter.TableID) {
		return false
	}
	if filter.WaiterID != nil && o.WaiterID != *filter.WaiterID {
		return false
	}
	if filter.ExcludeID != nil && o.ID == *filter.ExcludeID {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if o.Status == status {
			return true
		}
	}
	return false
}

type orderItemRepository struct {
	data *snapshot
}

func (r *orderItemRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderItemRepository) Create(item *model.OrderItem) error {
	if _, ok := r.data.orders[item.OrderID]; !ok {
		return errors.Wrapf(model.ErrOrderNotFound, "item %s", item.ID)
	}
	if _, exists := r.data.items[item.ID]; exists {
		return errors.Errorf("order item %s already exists", item.ID)
	}
	r.data.itemsForWrite()[item.ID] = *item
	return nil
}

func (r *orderItemRepository) Update(item *model.OrderItem) error {
	if _, ok := r.data.items[item.ID]; !ok {
		return model.ErrOrderItemNotFound
	}
	r.data.itemsForWrite()[item.ID] = *item
	return nil
}

func (r *orderItemRepository) Delete(id uuid.UUID) error {
	if _, ok := r.data.items[id]; !ok {
		return model.ErrOrderItemNotFound
	}
	delete(r.data.itemsForWrite(), id)
	return nil
}

func (r *orderItemRepository) DeleteByOrder(orderID uuid.UUID) error {
	items := r.data.itemsForWrite()
	for id, item := range items {
		if item.OrderID == orderID {
			delete(items, id)
		}
	}
	return nil
}

func (r *orderItemRepository) Find(id uuid.UUID) (*model.OrderItem, error) {
	item, ok := r.data.items[id]
	if !ok {
		return nil, model.ErrOrderItemNotFound
	}
	return &item, nil
}

func (r *orderItemRepository) FindByOrder(orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	for _, item := range r.data.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items, nil
}

func (r *orderItemRepository) CountByOrder(orderID uuid.UUID) (int, error) {
	count := 0
	for _, item := range r.data.items {
		if item.OrderID == orderID {
			count++
		}
	}
	return count, nil
}
