package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
)

type AddLineItemParams struct {
	MenuItemID   uuid.UUID
	Quantity     int
	Instructions string
}

type UpdateLineItemParams struct {
	Quantity     *int
	Instructions *string
}

func (s *orderService) AddLineItem(ctx context.Context, orderID uuid.UUID, params AddLineItemParams) (*model.OrderView, error) {
	if params.MenuItemID == uuid.Nil {
		return nil, errors.Wrap(model.ErrMissingField, "menuItemId is required")
	}
	if params.Quantity < 1 {
		return nil, errors.Wrapf(model.ErrInvalidQuantity, "quantity %d", params.Quantity)
	}

	var item model.OrderItem
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := s.mutableOrder(provider, orderID); err != nil {
			return err
		}
		menuItem, err := s.availableMenuItem(ctx, params.MenuItemID)
		if err != nil {
			return err
		}

		total, err := model.LineTotal(params.Quantity, menuItem.PriceCents)
		if err != nil {
			return errors.Wrapf(err, "menu item %q", menuItem.Name)
		}

		itemRepo := provider.OrderItemRepository()
		itemID, err := itemRepo.NextID()
		if err != nil {
			return err
		}
		now := s.clock.Now()
		item = model.OrderItem{
			ID:                  itemID,
			OrderID:             orderID,
			MenuItemID:          menuItem.ID,
			Quantity:            params.Quantity,
			UnitPriceCents:      menuItem.PriceCents,
			TotalPriceCents:     total,
			SpecialInstructions: params.Instructions,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := itemRepo.Create(&item); err != nil {
			return err
		}
		return recalculateWithin(provider, orderID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"order_id": orderID, "item_id": item.ID}).Info("order item added")
	dispatchEvents(s.dispatcher, s.logger, model.OrderItemAdded{
		OrderID:    orderID,
		ItemID:     item.ID,
		MenuItemID: item.MenuItemID,
		Quantity:   item.Quantity,
	})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) UpdateLineItem(ctx context.Context, orderID, itemID uuid.UUID, params UpdateLineItemParams) (*model.OrderView, error) {
	var item *model.OrderItem
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := s.mutableOrder(provider, orderID); err != nil {
			return err
		}
		itemRepo := provider.OrderItemRepository()
		var err error
		item, err = findOrderItem(itemRepo, orderID, itemID)
		if err != nil {
			return err
		}

		if params.Quantity != nil {
			if err := item.SetQuantity(*params.Quantity); err != nil {
				return errors.Wrapf(err, "quantity %d", *params.Quantity)
			}
		}
		if params.Instructions != nil {
			item.SpecialInstructions = *params.Instructions
		}
		now := s.clock.Now()
		item.UpdatedAt = now
		if err := itemRepo.Update(item); err != nil {
			return err
		}
		return recalculateWithin(provider, orderID, now)
	})
	if err != nil {
		return nil, err
	}

	dispatchEvents(s.dispatcher, s.logger, model.OrderItemUpdated{OrderID: orderID, ItemID: itemID, Quantity: item.Quantity})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) RemoveLineItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.OrderView, error) {
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if _, err := s.mutableOrder(provider, orderID); err != nil {
			return err
		}
		itemRepo := provider.OrderItemRepository()
		if _, err := findOrderItem(itemRepo, orderID, itemID); err != nil {
			return err
		}

		count, err := itemRepo.CountByOrder(orderID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return errors.Wrapf(model.ErrLastItemProtected, "order %s has %d item(s)", orderID, count)
		}

		if err := itemRepo.Delete(itemID); err != nil {
			return err
		}
		return recalculateWithin(provider, orderID, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"order_id": orderID, "item_id": itemID}).Info("order item removed")
	dispatchEvents(s.dispatcher, s.logger, model.OrderItemRemoved{OrderID: orderID, ItemID: itemID})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) Recalculate(ctx context.Context, orderID uuid.UUID) (*model.OrderView, error) {
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		_, err := recalculate(provider, orderID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) mutableOrder(provider model.RepositoryProvider, orderID uuid.UUID) (*model.Order, error) {
	order, err := provider.OrderRepository().FindForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.AcceptsItemChanges() {
		return nil, errors.Wrapf(model.ErrOrderClosed, "cannot change items of %s order %s", order.Status, order.OrderNumber)
	}
	return order, nil
}

func findOrderItem(repo model.OrderItemRepository, orderID, itemID uuid.UUID) (*model.OrderItem, error) {
	item, err := repo.Find(itemID)
	if err != nil {
		return nil, err
	}
	if item.OrderID != orderID {
		return nil, errors.Wrapf(model.ErrOrderItemNotFound, "item %s does not belong to order %s", itemID, orderID)
	}
	return item, nil
}

// recalculateWithin marks failures so callers can tell a failed item write
// from a failed totals update. A subtotal out of range is the caller's input
// error and is returned as is.
func recalculateWithin(provider model.RepositoryProvider, orderID uuid.UUID, now time.Time) error {
	if _, err := recalculate(provider, orderID, now); err != nil {
		if errors.Is(err, model.ErrInvalidQuantity) {
			return err
		}
		return &model.RecalculationError{OrderID: orderID, Err: err}
	}
	return nil
}

// recalculate always re-sums every line item of the order.
func recalculate(provider model.RepositoryProvider, orderID uuid.UUID, now time.Time) (*model.Order, error) {
	orderRepo := provider.OrderRepository()
	order, err := orderRepo.FindForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	items, err := provider.OrderItemRepository().FindByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if err := order.ApplyItems(items); err != nil {
		return nil, errors.Wrapf(err, "order %s", order.OrderNumber)
	}
	order.UpdatedAt = now
	if err := orderRepo.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}
