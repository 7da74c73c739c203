package memory

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"pos/pkg/domain/model"
)

// Seed is the reference data of one restaurant used when running without a
// database.
type Seed struct {
	RestaurantID string `yaml:"restaurant_id"`
	Menu         []struct {
		ID         string `yaml:"id"`
		Name       string `yaml:"name"`
		PriceCents int64  `yaml:"price_cents"`
		Available  *bool  `yaml:"available"`
	} `yaml:"menu"`
	Staff []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Role string `yaml:"role"`
	} `yaml:"staff"`
	Tables []struct {
		ID       string `yaml:"id"`
		Number   int    `yaml:"number"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"tables"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return &seed, nil
}

// Apply loads the seed into the catalog, the staff directory and the table
// registry of the store.
func (s *Seed) Apply(ctx context.Context, store *Store, catalog *Catalog, staff *StaffDirectory) error {
	restaurantID, err := uuid.Parse(s.RestaurantID)
	if err != nil {
		return errors.Wrap(err, "restaurant_id")
	}

	for i, m := range s.Menu {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return errors.Wrapf(err, "menu[%d].id", i)
		}
		available := m.Available == nil || *m.Available
		catalog.Put(model.MenuItem{ID: id, Name: m.Name, PriceCents: m.PriceCents, Available: available})
	}

	for i, m := range s.Staff {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return errors.Wrapf(err, "staff[%d].id", i)
		}
		staff.Put(model.Staff{ID: id, RestaurantID: restaurantID, Name: m.Name, Role: m.Role})
	}

	tables := make([]model.Table, 0, len(s.Tables))
	for i, t := range s.Tables {
		id, err := uuid.Parse(t.ID)
		if err != nil {
			return errors.Wrapf(err, "tables[%d].id", i)
		}
		tables = append(tables, model.Table{
			ID:           id,
			RestaurantID: restaurantID,
			TableNumber:  t.Number,
			Capacity:     t.Capacity,
			Status:       model.TableAvailable,
			Active:       true,
		})
	}
	return store.Execute(ctx, func(provider model.RepositoryProvider) error {
		repo := provider.TableRepository()
		for i := range tables {
			if err := repo.Create(&tables[i]); err != nil {
				return errors.Wrapf(err, "table #%d", tables[i].TableNumber)
			}
		}
		return nil
	})
}
