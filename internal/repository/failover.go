package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"canary/internal/domain"
	"canary/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// fallbackVersion tags versions issued by the fallback so that SetItems never
// applies one backend's version to the other.
const fallbackVersion = uint64(1) << 63

// FailoverItemCache serves from primary and switches to fallback after the
// primary fails, probing the primary again once per recoveryInterval.
type FailoverItemCache struct {
	primary   domain.ItemCache
	fallback  domain.ItemCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverItemCache(primary, fallback domain.ItemCache, logger *zerolog.Logger) *FailoverItemCache {
	return &FailoverItemCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the call should go to the primary.
func (r *FailoverItemCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

func (r *FailoverItemCache) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("primary item cache failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = r.now()
	r.mu.Unlock()
}

func (r *FailoverItemCache) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("primary item cache recovered")
		// Writes that happened while down only reached the fallback.
		_ = r.fallback.Invalidate(context.Background())
	}
}

func (r *FailoverItemCache) GetItems(ctx context.Context) ([]models.Item, bool, error) {
	if r.usePrimary() {
		wasDown := r.isDown.Load()
		items, ok, err := r.primary.GetItems(ctx)
		if err == nil {
			r.markUp()
			if wasDown {
				// Primary may hold an entry written before the outage.
				_ = r.primary.Invalidate(ctx)
				return nil, false, nil
			}
			return items, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetItems(ctx)
}

func (r *FailoverItemCache) Version(ctx context.Context) (uint64, error) {
	if r.usePrimary() {
		v, err := r.primaryVersion(ctx)
		if err == nil {
			return v, nil
		}
		r.markDown(err)
	}
	v, err := r.fallback.Version(ctx)
	if err != nil {
		return 0, err
	}
	return v | fallbackVersion, nil
}

func (r *FailoverItemCache) primaryVersion(ctx context.Context) (uint64, error) {
	if r.isDown.Load() {
		// Primary may hold an entry written before the outage.
		if err := r.primary.Invalidate(ctx); err != nil {
			return 0, err
		}
	}
	v, err := r.primary.Version(ctx)
	if err != nil {
		return 0, err
	}
	r.markUp()
	return v &^ fallbackVersion, nil
}

// SetItems drops the write when the backend that issued version is no longer
// the one in use.
func (r *FailoverItemCache) SetItems(ctx context.Context, items []models.Item, version uint64) error {
	if version&fallbackVersion == 0 {
		if r.isDown.Load() {
			return nil
		}
		if err := r.primary.SetItems(ctx, items, version); err != nil {
			r.markDown(err)
		}
		return nil
	}

	if !r.isDown.Load() {
		return nil
	}
	return r.fallback.SetItems(ctx, items, version&^fallbackVersion)
}

func (r *FailoverItemCache) Invalidate(ctx context.Context) error {
	// Always clear the fallback so a later switch never serves stale data.
	_ = r.fallback.Invalidate(ctx)
	if r.usePrimary() {
		err := r.primary.Invalidate(ctx)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

// IsDown reports whether calls are currently routed to the fallback.
func (r *FailoverItemCache) IsDown() bool {
	return r.isDown.Load()
}
