package seed

import (
	"context"
	"fmt"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/logger"
)

// Store is the persistence surface seeding writes to.
type Store interface {
	CountLists(ctx context.Context) (int, error)
	CreateList(ctx context.Context, list *domain.List) error
	InsertEntry(ctx context.Context, e *domain.UrlEntry) error
}

// Seeder loads initial lists from a yaml file into an empty store.
type Seeder struct {
	filePath string
	store    Store
	logger   logger.Logger
}

// NewSeeder creates a seeder for a file path.
func NewSeeder(filePath string, store Store, logging logger.Logger) *Seeder {
	return &Seeder{filePath: filePath, store: store, logger: logging}
}

// Apply seeds the store from the file. A non-empty store is left
// untouched: seeding only bootstraps fresh deployments.
func (s *Seeder) Apply(ctx context.Context) error {
	count, err := s.store.CountLists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing lists: %w", err)
	}
	if count > 0 {
		s.logger.Debug("store already populated, skipping seed",
			logger.Int("lists", count))
		return nil
	}

	file, err := NewLoader(s.filePath).Load()
	if err != nil {
		return err
	}
	seeded, err := NewMapper().MapLists(file)
	if err != nil {
		return err
	}

	entries := 0
	for _, sl := range seeded {
		if err := s.store.CreateList(ctx, sl.List); err != nil {
			return fmt.Errorf("failed to seed list %q: %w", sl.List.Slug, err)
		}
		for _, e := range sl.Entries {
			if err := s.store.InsertEntry(ctx, e); err != nil {
				return fmt.Errorf("failed to seed entry %q: %w", e.Address, err)
			}
			entries++
		}
	}

	s.logger.Info("seeded initial lists",
		logger.Int("lists", len(seeded)),
		logger.Int("urls", entries))
	return nil
}
