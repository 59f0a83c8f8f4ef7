package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
	"textmacro-go/domain/regionset"
)

// persistTimeout bounds a single repository save.
const persistTimeout = 5 * time.Second

// StoreConfig holds configuration for OpenStore.
type StoreConfig struct {
	Repository regionset.Repository
	Cap        int
	EventBus   eventbus.EventBus
	Logger     *slog.Logger
}

// OpenStore creates a region store that persists every mutation through the
// repository and restores the previously saved state. Unreadable or partly
// invalid saved state is logged and the valid remainder is used; only a
// failing repository read is returned as an error.
func OpenStore(ctx context.Context, cfg StoreConfig) (*regionset.Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	opts := []regionset.Option{regionset.WithCap(cfg.Cap)}
	if cfg.Repository != nil {
		repo := cfg.Repository
		opts = append(opts, regionset.WithPersist(func(snap regionset.Snapshot) error {
			saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return repo.Save(saveCtx, &snap)
		}))
	}
	if cfg.EventBus != nil {
		bus := cfg.EventBus
		opts = append(opts, regionset.WithChangeHook(func(setName, op string) {
			bus.Publish(event.NewRegionSetChanged(setName, op))
		}))
	}
	store := regionset.NewStore(opts...)

	if cfg.Repository == nil {
		return store, nil
	}

	snap, err := cfg.Repository.Load(ctx)
	if err != nil {
		if snap == nil {
			return nil, fmt.Errorf("failed to load region sets: %w", err)
		}
		logger.Error("Region sets partly unreadable", "error", err)
	}
	if snap == nil {
		logger.Info("No saved region sets, starting with the default set")
		return store, nil
	}

	if err := store.Restore(*snap); err != nil {
		logger.Warn("Some region sets were dropped on restore", "error", err)
	}
	logger.Info("Region sets restored", "sets", store.Count(), "active", store.ActiveName())
	return store, nil
}
