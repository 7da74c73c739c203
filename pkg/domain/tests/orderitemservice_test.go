package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
)

func assertTotalsConsistent(t *testing.T, view *model.OrderView) {
	t.Helper()
	var sum int64
	for _, item := range view.Items {
		assert.Equal(t, int64(item.Quantity)*item.UnitPriceCents, item.TotalPriceCents)
		sum += item.TotalPriceCents
	}
	assert.Equal(t, sum, view.SubtotalCents, "subtotal must equal the sum of line items")
	assert.Equal(t, view.SubtotalCents-view.DiscountCents, view.TotalCents, "total must equal subtotal minus discount")
}

func itemFor(view *model.OrderView, menuItemID uuid.UUID) model.OrderItem {
	for _, item := range view.Items {
		if item.MenuItemID == menuItemID {
			return item
		}
	}
	return model.OrderItem{}
}

func TestAddLineItem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t5 := f.addTable(t, 5, 4, model.TableAvailable)
	order, err := f.orders.CreateOrder(ctx, f.dineInParams(t5.ID))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		f.dispatcher.Reset()
		view, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 2, Instructions: "no cream"})

		require.NoError(t, err)
		require.Len(t, view.Items, 3)
		soup := itemFor(view, f.soup.ID)
		assert.Equal(t, int64(1250), soup.UnitPriceCents)
		assert.Equal(t, int64(2500), soup.TotalPriceCents)
		assert.Equal(t, "no cream", soup.SpecialInstructions)
		assert.Equal(t, int64(15500), view.SubtotalCents)
		assertTotalsConsistent(t, view)
		assert.Equal(t, []string{"OrderItemAdded"}, f.dispatcher.Types())
	})

	t.Run("Price is taken from the catalog", func(t *testing.T) {
		f.catalog.Put(model.MenuItem{ID: f.wine.ID, Name: f.wine.Name, PriceCents: 3500, Available: true})
		view, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.wine.ID, Quantity: 1})

		require.NoError(t, err)
		require.Len(t, view.Items, 4)
		assert.Equal(t, int64(19000), view.SubtotalCents)
		assertTotalsConsistent(t, view)
	})

	t.Run("Fail on unavailable item", func(t *testing.T) {
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.seasonal.ID, Quantity: 1})
		assert.ErrorIs(t, err, model.ErrItemUnavailable)
	})

	t.Run("Fail on zero quantity", func(t *testing.T) {
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID})
		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	})

	t.Run("Fail on unknown order", func(t *testing.T) {
		_, err := f.orders.AddLineItem(ctx, uuid.New(), service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 1})
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("Fail on completed order", func(t *testing.T) {
		f.advance(t, order.ID, model.Confirmed, model.InProgress, model.Completed)
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 1})
		assert.ErrorIs(t, err, model.ErrOrderClosed)
		assert.Len(t, f.order(t, order.ID).Items, 4)
	})
}

func TestAddLineItemToServedOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, f.takeawayParams())
	require.NoError(t, err)
	f.advance(t, order.ID, model.Confirmed, model.InProgress, model.Completed, model.Served)

	view, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, model.Served, view.Status)
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(2500), view.SubtotalCents)
	assertTotalsConsistent(t, view)

	t.Run("Fail on paid order", func(t *testing.T) {
		f.advance(t, order.ID, model.Paid)
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 1})
		assert.ErrorIs(t, err, model.ErrOrderClosed)
	})
}

func TestLineItemTotalsStayInRange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, f.takeawayParams())
	require.NoError(t, err)
	banquet := model.MenuItem{ID: uuid.New(), Name: "Banquet", PriceCents: model.MaxAmountCents / 2, Available: true}
	f.catalog.Put(banquet)

	t.Run("Fail on line total", func(t *testing.T) {
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: banquet.ID, Quantity: 3})
		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
		assert.NotErrorIs(t, err, model.ErrRecalculationFailed)
	})

	t.Run("Fail on subtotal", func(t *testing.T) {
		_, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: banquet.ID, Quantity: 2})
		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
		assert.NotErrorIs(t, err, model.ErrRecalculationFailed)
	})

	view := f.order(t, order.ID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1250), view.SubtotalCents)
	assertTotalsConsistent(t, view)
}

func TestUpdateLineItem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t5 := f.addTable(t, 5, 4, model.TableAvailable)
	order, err := f.orders.CreateOrder(ctx, f.dineInParams(t5.ID))
	require.NoError(t, err)
	wine := itemFor(order, f.wine.ID)

	t.Run("Quantity", func(t *testing.T) {
		quantity := 3
		view, err := f.orders.UpdateLineItem(ctx, order.ID, wine.ID, service.UpdateLineItemParams{Quantity: &quantity})

		require.NoError(t, err)
		assert.Equal(t, int64(9000), itemFor(view, f.wine.ID).TotalPriceCents)
		assert.Equal(t, int64(19000), view.SubtotalCents)
		assertTotalsConsistent(t, view)
	})

	t.Run("Instructions only", func(t *testing.T) {
		instructions := "decant first"
		view, err := f.orders.UpdateLineItem(ctx, order.ID, wine.ID, service.UpdateLineItemParams{Instructions: &instructions})

		require.NoError(t, err)
		assert.Equal(t, "decant first", itemFor(view, f.wine.ID).SpecialInstructions)
		assert.Equal(t, 3, itemFor(view, f.wine.ID).Quantity)
		assertTotalsConsistent(t, view)
	})

	t.Run("Fail on zero quantity", func(t *testing.T) {
		quantity := 0
		_, err := f.orders.UpdateLineItem(ctx, order.ID, wine.ID, service.UpdateLineItemParams{Quantity: &quantity})
		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	})

	t.Run("Fail on item of another order", func(t *testing.T) {
		other, err := f.orders.CreateOrder(ctx, f.takeawayParams())
		require.NoError(t, err)
		quantity := 2
		_, err = f.orders.UpdateLineItem(ctx, order.ID, other.Items[0].ID, service.UpdateLineItemParams{Quantity: &quantity})
		assert.ErrorIs(t, err, model.ErrOrderItemNotFound)
	})
}

func TestRemoveLineItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := setup(t)
		t5 := f.addTable(t, 5, 4, model.TableAvailable)
		order, err := f.orders.CreateOrder(ctx, f.dineInParams(t5.ID))
		require.NoError(t, err)

		view, err := f.orders.RemoveLineItem(ctx, order.ID, itemFor(order, f.wine.ID).ID)

		require.NoError(t, err)
		require.Len(t, view.Items, 1)
		assert.Equal(t, int64(10000), view.SubtotalCents)
		assertTotalsConsistent(t, view)
	})

	t.Run("Last item is protected", func(t *testing.T) {
		f := setup(t)
		order, err := f.orders.CreateOrder(ctx, f.takeawayParams())
		require.NoError(t, err)

		_, err = f.orders.RemoveLineItem(ctx, order.ID, order.Items[0].ID)

		require.ErrorIs(t, err, model.ErrLastItemProtected)
		view := f.order(t, order.ID)
		require.Len(t, view.Items, 1)
		assert.Equal(t, order.Items[0].ID, view.Items[0].ID)
		assert.Equal(t, order.TotalCents, view.TotalCents)
	})

	t.Run("Discount is clamped to the new subtotal", func(t *testing.T) {
		f := setup(t)
		t5 := f.addTable(t, 5, 4, model.TableAvailable)
		order, err := f.orders.CreateOrder(ctx, f.dineInParams(t5.ID))
		require.NoError(t, err)
		_, err = f.orders.ApplyDiscount(ctx, order.ID, 5000)
		require.NoError(t, err)

		view, err := f.orders.RemoveLineItem(ctx, order.ID, itemFor(order, f.steak.ID).ID)

		require.NoError(t, err)
		assert.Equal(t, int64(3000), view.SubtotalCents)
		assert.Equal(t, int64(3000), view.DiscountCents)
		assert.Equal(t, int64(0), view.TotalCents)
	})
}

func TestLineItemsKeepTotalsConsistent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, f.takeawayParams())
	require.NoError(t, err)

	view, err := f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.steak.ID, Quantity: 3})
	require.NoError(t, err)
	assertTotalsConsistent(t, view)

	view, err = f.orders.ApplyDiscount(ctx, order.ID, 777)
	require.NoError(t, err)
	assertTotalsConsistent(t, view)

	quantity := 7
	view, err = f.orders.UpdateLineItem(ctx, order.ID, itemFor(view, f.steak.ID).ID, service.UpdateLineItemParams{Quantity: &quantity})
	require.NoError(t, err)
	assertTotalsConsistent(t, view)

	view, err = f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.wine.ID, Quantity: 2})
	require.NoError(t, err)
	assertTotalsConsistent(t, view)

	view, err = f.orders.RemoveLineItem(ctx, order.ID, itemFor(view, f.soup.ID).ID)
	require.NoError(t, err)
	assertTotalsConsistent(t, view)
	assert.Equal(t, int64(7*5000+2*3000), view.SubtotalCents)
	assert.Equal(t, int64(777), view.DiscountCents)
}

func TestRecalculationFailureRollsBackItemWrite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t5 := f.addTable(t, 5, 4, model.TableAvailable)
	order, err := f.orders.CreateOrder(ctx, f.dineInParams(t5.ID))
	require.NoError(t, err)

	storageErr := errors.New("deadlock detected")
	f.uow.Inject(func(p model.RepositoryProvider) model.RepositoryProvider {
		return faultyProvider{RepositoryProvider: p, orders: func(r model.OrderRepository) model.OrderRepository {
			return failingUpdateRepository{OrderRepository: r, err: storageErr}
		}}
	})

	_, err = f.orders.AddLineItem(ctx, order.ID, service.AddLineItemParams{MenuItemID: f.soup.ID, Quantity: 1})

	require.ErrorIs(t, err, model.ErrRecalculationFailed)
	require.ErrorIs(t, err, storageErr)
	var recalcErr *model.RecalculationError
	require.True(t, errors.As(err, &recalcErr))
	assert.Equal(t, order.ID, recalcErr.OrderID)

	f.uow.Inject(nil)
	view := f.order(t, order.ID)
	assert.Len(t, view.Items, 2)
	assertTotalsConsistent(t, view)
}

func TestRecalculateRepairsTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, f.takeawayParams())
	require.NoError(t, err)

	require.NoError(t, f.store.Execute(ctx, func(provider model.RepositoryProvider) error {
		o, err := provider.OrderRepository().Find(order.ID)
		if err != nil {
			return err
		}
		o.SubtotalCents = 99
		o.TotalCents = 99
		return provider.OrderRepository().Update(o)
	}))

	view, err := f.orders.Recalculate(ctx, order.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1250), view.SubtotalCents)
	assertTotalsConsistent(t, view)
}
