package service

import (
	"context"
	"errors"
	"fmt"

	"canary/internal/domain"
	"canary/internal/events"
	"canary/internal/metrics"
	"canary/internal/models"

	"github.com/rs/zerolog"
)

// ItemService validates item requests and applies them to the store. cache and
// publisher may be nil.
type ItemService struct {
	repo      domain.ItemRepository
	cache     domain.ItemCache
	publisher domain.EventPublisher
	logger    *zerolog.Logger
}

func NewItemService(repo domain.ItemRepository, cache domain.ItemCache, publisher domain.EventPublisher, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *ItemService) List(ctx context.Context) ([]models.Item, error) {
	if s.cache != nil {
		items, ok, err := s.cache.GetItems(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("item cache read failed")
		} else if ok {
			return items, nil
		}
	}

	// The version is read before the store so that a mutation committed
	// after this point voids the write below.
	var (
		version   uint64
		cacheable bool
	)
	if s.cache != nil {
		v, err := s.cache.Version(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("item cache version read failed")
		} else {
			version, cacheable = v, true
		}
	}

	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetItems(ctx, items, version); err != nil {
			s.logger.Warn().Err(err).Msg("item cache write failed")
		}
	}
	return items, nil
}

func (s *ItemService) Create(ctx context.Context, in models.ItemInput) (models.Item, error) {
	if in.Name == nil {
		metrics.IncItemMutation("create", "invalid")
		return models.Item{}, ErrMissingName
	}

	item := in.ToItem(0)
	if err := s.repo.CreateItem(ctx, &item); err != nil {
		metrics.IncItemMutation("create", "error")
		return models.Item{}, err
	}

	metrics.IncItemMutation("create", "ok")
	s.afterMutation(ctx, events.EventItemCreated, item)
	return item, nil
}

// Update replaces name and description of item id. A missing description
// resets it to "".
func (s *ItemService) Update(ctx context.Context, id int64, in models.ItemInput) (models.Item, error) {
	if in.Name == nil {
		metrics.IncItemMutation("update", "invalid")
		return models.Item{}, ErrMissingName
	}

	item := in.ToItem(id)
	if err := s.repo.UpdateItem(ctx, &item); err != nil {
		metrics.IncItemMutation("update", resultLabel(err))
		return models.Item{}, err
	}

	metrics.IncItemMutation("update", "ok")
	s.afterMutation(ctx, events.EventItemUpdated, item)
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		metrics.IncItemMutation("delete", resultLabel(err))
		return err
	}

	metrics.IncItemMutation("delete", "ok")
	s.afterMutation(ctx, events.EventItemDeleted, models.Item{ID: id})
	return nil
}

// Ready reports whether the store answers.
func (s *ItemService) Ready(ctx context.Context) error {
	if err := s.repo.PingContext(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return nil
}

func (s *ItemService) afterMutation(ctx context.Context, eventType string, item models.Item) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("item cache invalidate failed")
		}
	}

	if s.publisher == nil {
		return
	}
	payload := events.ItemEventPayload{ItemID: item.ID, Name: item.Name, Description: item.Description}
	if err := s.publisher.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func resultLabel(err error) string {
	if errors.Is(err, ErrItemNotFound) {
		return "not_found"
	}
	return "error"
}
