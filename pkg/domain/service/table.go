package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
)

const maxTableSuggestions = 5

// ReleaseResult describes the outcome of an automatic release. A table that
// still serves other orders is not released; that is not an error.
type ReleaseResult struct {
	Table           *model.Table
	Released        bool
	RemainingOrders int
}

type TableService interface {
	TableOccupancy

	GetTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error)
	OccupyTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error)
	ReleaseTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error)
	SuggestTables(ctx context.Context, restaurantID uuid.UUID, partySize int) ([]model.Table, error)
	DeactivateTable(ctx context.Context, tableID uuid.UUID) error
}

func NewTableService(uow model.UnitOfWork, dispatcher EventDispatcher, clock model.Clock, logger logrus.FieldLogger) TableService {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &tableService{uow: uow, dispatcher: dispatcher, clock: clock, logger: logger}
}

type tableService struct {
	uow        model.UnitOfWork
	dispatcher EventDispatcher
	clock      model.Clock
	logger     logrus.FieldLogger
}

func (s *tableService) ValidateTableForOrder(ctx context.Context, tableID uuid.UUID, orderType model.OrderType) (*model.Table, error) {
	if orderType != model.DineIn {
		return nil, nil
	}
	table, err := s.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if !table.Active {
		return nil, errors.Wrapf(model.ErrTableUnavailable, "table #%d is not active", table.TableNumber)
	}
	if !table.Status.Seatable() {
		return nil, errors.Wrapf(model.ErrTableUnavailable, "table #%d is currently %s", table.TableNumber, table.Status)
	}
	return table, nil
}

func (s *tableService) AutoOccupyTable(ctx context.Context, tableID, orderID uuid.UUID) (*model.Table, error) {
	var (
		table    *model.Table
		occupied bool
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		var err error
		table, err = repo.FindForUpdate(tableID)
		if err != nil {
			return err
		}

		switch {
		case table.Status.Seatable():
			table.Status = model.TableOccupied
			table.UpdatedAt = s.clock.Now()
			occupied = true
			return repo.Update(table)
		case table.Status == model.TableOccupied:
			// Several orders may share a table, e.g. split bills.
			return nil
		default:
			return errors.Wrapf(model.ErrTableUnavailable, "cannot occupy table #%d, current status %s", table.TableNumber, table.Status)
		}
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"table_id": tableID, "order_id": orderID})
	if occupied {
		log.Info("table occupied")
		dispatchEvents(s.dispatcher, s.logger, model.TableSeated{TableID: tableID, OrderID: orderID})
	} else {
		log.Info("table already occupied, order shares it")
	}
	return table, nil
}

func (s *tableService) AutoReleaseTable(ctx context.Context, tableID, orderID uuid.UUID) (ReleaseResult, error) {
	var (
		result  ReleaseResult
		changed bool
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		table, err := repo.FindForUpdate(tableID)
		if err != nil {
			return err
		}
		result.Table = table

		others, err := provider.OrderRepository().Count(model.OrderFilter{
			TableID:   &tableID,
			Statuses:  model.ActiveStatuses(),
			ExcludeID: &orderID,
		})
		if err != nil {
			return err
		}
		if others > 0 {
			result.RemainingOrders = others
			return nil
		}

		result.Released = true
		if table.Status == model.TableAvailable {
			return nil
		}
		table.Status = model.TableAvailable
		table.UpdatedAt = s.clock.Now()
		changed = true
		return repo.Update(table)
	})
	if err != nil {
		return ReleaseResult{}, err
	}

	log := s.logger.WithFields(logrus.Fields{"table_id": tableID, "order_id": orderID})
	switch {
	case changed:
		log.Info("table released")
		dispatchEvents(s.dispatcher, s.logger, model.TableReleased{TableID: tableID, OrderID: orderID})
	case !result.Released:
		log.WithField("remaining_orders", result.RemainingOrders).Info("table still has active orders")
	}
	return result, nil
}

func (s *tableService) GetTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error) {
	var table *model.Table
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		table, err = provider.TableRepository().Find(tableID)
		return err
	})
	return table, err
}

func (s *tableService) OccupyTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error) {
	var table *model.Table
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		var err error
		table, err = repo.FindForUpdate(tableID)
		if err != nil {
			return err
		}
		if !table.Status.Seatable() {
			return errors.Wrapf(model.ErrTableUnavailable, "table #%d is currently %s, only available or reserved tables can be occupied", table.TableNumber, table.Status)
		}
		table.Status = model.TableOccupied
		table.UpdatedAt = s.clock.Now()
		return repo.Update(table)
	})
	if err != nil {
		return nil, err
	}
	dispatchEvents(s.dispatcher, s.logger, model.TableSeated{TableID: tableID})
	return table, nil
}

func (s *tableService) ReleaseTable(ctx context.Context, tableID uuid.UUID) (*model.Table, error) {
	var table *model.Table
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		var err error
		table, err = repo.FindForUpdate(tableID)
		if err != nil {
			return err
		}
		if table.Status != model.TableOccupied {
			return errors.Wrapf(model.ErrTableNotOccupied, "table #%d is %s", table.TableNumber, table.Status)
		}

		active, err := provider.OrderRepository().Count(model.OrderFilter{TableID: &tableID, Statuses: model.ActiveStatuses()})
		if err != nil {
			return err
		}
		if active > 0 {
			return errors.Wrapf(model.ErrTableHasActiveOrders, "table #%d has %d active order(s), complete or cancel them first", table.TableNumber, active)
		}

		table.Status = model.TableAvailable
		table.UpdatedAt = s.clock.Now()
		return repo.Update(table)
	})
	if err != nil {
		return nil, err
	}
	dispatchEvents(s.dispatcher, s.logger, model.TableReleased{TableID: tableID})
	return table, nil
}

func (s *tableService) SuggestTables(ctx context.Context, restaurantID uuid.UUID, partySize int) ([]model.Table, error) {
	if partySize < 1 {
		return nil, errors.Wrapf(model.ErrMissingField, "party size %d", partySize)
	}
	available := model.TableAvailable
	var tables []model.Table
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		tables, err = provider.TableRepository().FindByFilter(model.TableFilter{
			RestaurantID: restaurantID,
			Status:       &available,
			MinCapacity:  partySize,
			ActiveOnly:   true,
			Limit:        maxTableSuggestions,
		})
		return err
	})
	return tables, err
}

// DeactivateTable keeps tables that appear in order history and deletes the
// rest.
func (s *tableService) DeactivateTable(ctx context.Context, tableID uuid.UUID) error {
	return s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		table, err := repo.FindForUpdate(tableID)
		if err != nil {
			return err
		}
		if table.Status != model.TableAvailable {
			return errors.Wrapf(model.ErrTableUnavailable, "cannot delete a %s table", table.Status)
		}

		history, err := provider.OrderRepository().Count(model.OrderFilter{TableID: &tableID})
		if err != nil {
			return err
		}
		if history == 0 {
			return repo.Delete(tableID)
		}
		table.Active = false
		table.UpdatedAt = s.clock.Now()
		return repo.Update(table)
	})
}
