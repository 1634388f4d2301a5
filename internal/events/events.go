// Package events provides the in-process event bus feeding the SSE stream
// and the scheduler's progress reporting.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	StockUpdated    EventType = "STOCK_UPDATED"
	StockDeleted    EventType = "STOCK_DELETED"
	ImportProgress  EventType = "IMPORT_PROGRESS"
	ImportComplete  EventType = "IMPORT_COMPLETE"
	RefreshStarted  EventType = "REFRESH_STARTED"
	RefreshProgress EventType = "REFRESH_PROGRESS"
	RefreshComplete EventType = "REFRESH_COMPLETE"
	IndexFetched    EventType = "INDEX_FETCHED"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Types lists every event type the stream can carry.
func Types() []EventType {
	return []EventType{
		StockUpdated,
		StockDeleted,
		ImportProgress,
		ImportComplete,
		RefreshStarted,
		RefreshProgress,
		RefreshComplete,
		IndexFetched,
		BackupCompleted,
		ErrorOccurred,
	}
}

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives published events.
type Handler func(event *Event)

// subscription identifies one registered handler so it can be removed.
type subscription struct {
	fn Handler
}

// Bus is a synchronous in-process publish/subscribe hub. Handlers run on
// the publisher's goroutine, so they must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]*subscription
	all      []*subscription
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]*subscription),
		log:      log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a handler for one event type. The returned function
// removes the handler again; long-lived subscribers may ignore it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	sub := &subscription{fn: handler}
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.handlers[eventType] = removeSubscription(b.handlers[eventType], sub)
		b.mu.Unlock()
	}
}

// SubscribeAll registers a handler for every event type. The returned
// function removes the handler again.
func (b *Bus) SubscribeAll(handler Handler) func() {
	sub := &subscription{fn: handler}
	b.mu.Lock()
	b.all = append(b.all, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.all = removeSubscription(b.all, sub)
		b.mu.Unlock()
	}
}

func removeSubscription(subs []*subscription, target *subscription) []*subscription {
	for i, s := range subs {
		if s == target {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Publish emits an event to every matching subscriber.
func (b *Bus) Publish(eventType EventType, module string, data map[string]interface{}) *Event {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	subs := append([]*subscription(nil), b.handlers[eventType]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(event)
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("subscribers", len(subs)).
		Msg("Event published")
	return event
}

// PublishError emits an error event.
func (b *Bus) PublishError(module string, err error) {
	b.Publish(ErrorOccurred, module, map[string]interface{}{
		"error": err.Error(),
	})
}
