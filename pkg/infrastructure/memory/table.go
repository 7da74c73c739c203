package memory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

type tableRepository struct {
	data *snapshot
}

func (r *tableRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *tableRepository) Create(table *model.Table) error {
	if _, exists := r.data.tables[table.ID]; exists {
		return errors.Errorf("table %s already exists", table.ID)
	}
	r.data.tablesForWrite()[table.ID] = *table
	return nil
}

func (r *tableRepository) Update(table *model.Table) error {
	if _, ok := r.data.tables[table.ID]; !ok {
		return model.ErrTableNotFound
	}
	r.data.tablesForWrite()[table.ID] = *table
	return nil
}

func (r *tableRepository) Delete(id uuid.UUID) error {
	if _, ok := r.data.tables[id]; !ok {
		return model.ErrTableNotFound
	}
	delete(r.data.tablesForWrite(), id)
	return nil
}

func (r *tableRepository) Find(id uuid.UUID) (*model.Table, error) {
	table, ok := r.data.tables[id]
	if !ok {
		return nil, model.ErrTableNotFound
	}
	return &table, nil
}

func (r *tableRepository) FindForUpdate(id uuid.UUID) (*model.Table, error) {
	return r.Find(id)
}

func (r *tableRepository) FindByFilter(filter model.TableFilter) ([]model.Table, error) {
	var tables []model.Table
	for _, t := range r.data.tables {
		if filter.RestaurantID != uuid.Nil && t.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if t.Capacity < filter.MinCapacity || (filter.ActiveOnly && !t.Active) {
			continue
		}
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Capacity != tables[j].Capacity {
			return tables[i].Capacity < tables[j].Capacity
		}
		return tables[i].TableNumber < tables[j].TableNumber
	})
	if filter.Limit > 0 && len(tables) > filter.Limit {
		tables = tables[:filter.Limit]
	}
	return tables, nil
}
