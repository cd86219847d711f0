package domain

import (
	"context"
	"errors"

	"canary/internal/models"
)

// ErrItemNotFound reports that no item has the requested id.
var ErrItemNotFound = errors.New("item not found")

// ItemRepository is the persistent item store.
type ItemRepository interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	PingContext(ctx context.Context) error
}

// ItemCache holds a copy of the full item list. GetItems reports a miss with
// ok=false and a nil error.
//
// Version returns a counter that every Invalidate advances. SetItems stores
// items only while the counter still equals version, so a list read from the
// store before a mutation cannot overwrite that mutation's invalidation.
type ItemCache interface {
	GetItems(ctx context.Context) (items []models.Item, ok bool, err error)
	Version(ctx context.Context) (uint64, error)
	SetItems(ctx context.Context, items []models.Item, version uint64) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ItemService is what the HTTP layer needs from the item use cases.
type ItemService interface {
	List(ctx context.Context) ([]models.Item, error)
	Create(ctx context.Context, in models.ItemInput) (models.Item, error)
	Update(ctx context.Context, id int64, in models.ItemInput) (models.Item, error)
	Delete(ctx context.Context, id int64) error
	Ready(ctx context.Context) error
}
