package broadcast

import (
	"context"

	"reservation-service/internal/domain"
	"reservation-service/internal/events"
)

// Sink receives every changed snapshot, besides the sessions.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap AvailabilitySnapshot) error
}

// AvailabilityStore is a mirror of the latest ATP per item.
type AvailabilityStore interface {
	StoreAvailability(ctx context.Context, items domain.AvailabilityMap, full bool) error
}

// CacheSink mirrors snapshots into an AvailabilityStore.
type CacheSink struct {
	store AvailabilityStore
}

func NewCacheSink(store AvailabilityStore) *CacheSink {
	return &CacheSink{store: store}
}

func (s *CacheSink) Name() string { return "cache" }

func (s *CacheSink) Publish(ctx context.Context, snap AvailabilitySnapshot) error {
	return s.store.StoreAvailability(ctx, snap.Items, snap.Full)
}

// EventSink publishes snapshots as AvailabilityChanged events.
type EventSink struct {
	publisher events.EventPublisher
}

func NewEventSink(publisher events.EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Publish(ctx context.Context, snap AvailabilitySnapshot) error {
	return s.publisher.Publish(ctx, events.AvailabilityChangedEvent{
		Sequence:   snap.Sequence,
		Full:       snap.Full,
		Items:      snap.Items,
		OccurredAt: snap.GeneratedAt,
	})
}
