package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EventItemCreated = "item_created"
	EventItemUpdated = "item_updated"
	EventItemDeleted = "item_deleted"
)

// ItemEvents lists every item lifecycle event type.
var ItemEvents = []string{EventItemCreated, EventItemUpdated, EventItemDeleted}

// ItemEventPayload is the item snapshot carried by item events.
type ItemEventPayload struct {
	ItemID      int64  `json:"item_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Event is one published occurrence. Seq increases per bus.
type Event struct {
	Seq       uint64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

type EventHandler func(event *Event) error

// EventBus delivers events synchronously to in-process subscribers.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	any      []EventHandler
	onError  func(event *Event, err error)
	seq      atomic.Uint64
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]EventHandler)}
}

// OnError sets the callback for handler failures. Failures never reach the publisher.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	b.onError = fn
	b.mu.Unlock()
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// SubscribeAll registers handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	b.any = append(b.any, handler)
	b.mu.Unlock()
}

func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	targets := make([]EventHandler, 0, len(b.handlers[event.Type])+len(b.any))
	targets = append(targets, b.handlers[event.Type]...)
	targets = append(targets, b.any...)
	onError := b.onError
	b.mu.RUnlock()

	event.Seq = b.seq.Add(1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, h := range targets {
		if err := h(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON marshals payload and publishes it. A nil bus drops the event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(&Event{Type: eventType, Payload: raw})
	return nil
}
