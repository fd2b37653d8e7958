package events

import (
	"context"
	"sync"
	"time"

	"reservation-service/internal/domain"

	"go.uber.org/zap"
)

// Event type names, also sent in the event-type header.
const (
	TypeStockReserved       = "StockReserved"
	TypeStockReleased       = "StockReleased"
	TypeHoldsExpired        = "HoldsExpired"
	TypeAvailabilityChanged = "AvailabilityChanged"
	TypeCatalogItemUpserted = "CatalogItemUpserted"
	TypeCatalogItemDeleted  = "CatalogItemDeleted"
)

// Release reasons carried by StockReleasedEvent.
const (
	ReasonRelease    = "release"
	ReasonDisconnect = "disconnect"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
	Close() error
}

type StockReservedEvent struct {
	SessionID  string                `json:"session_id"`
	RequestID  string                `json:"request_id,omitempty"`
	Items      []domain.ItemQuantity `json:"items"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type StockReleasedEvent struct {
	SessionID  string                `json:"session_id"`
	RequestID  string                `json:"request_id,omitempty"`
	Reason     string                `json:"reason"`
	Items      []domain.ItemQuantity `json:"items"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type HoldsExpiredEvent struct {
	Holds      []domain.Hold `json:"holds"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type AvailabilityChangedEvent struct {
	Sequence   uint64                 `json:"sequence"`
	Full       bool                   `json:"full"`
	Items      domain.AvailabilityMap `json:"items"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// CatalogItemUpsertedEvent and CatalogItemDeletedEvent arrive from the
// catalog owner on the catalog topic.
type CatalogItemUpsertedEvent struct {
	ItemID            domain.ItemID  `json:"item_id"`
	Name              string         `json:"name"`
	StockEnabled      bool           `json:"stock_enabled"`
	CommittedQuantity int            `json:"committed_quantity"`
	ParentID          *domain.ItemID `json:"parent_id,omitempty"`
	StockSyncEnabled  bool           `json:"stock_sync_enabled"`
	OccurredAt        time.Time      `json:"occurred_at"`
}

// Item converts the payload into a catalog item.
func (e CatalogItemUpsertedEvent) Item() domain.Item {
	return domain.Item{
		ID:                e.ItemID,
		Name:              e.Name,
		StockEnabled:      e.StockEnabled,
		CommittedQuantity: e.CommittedQuantity,
		ParentID:          e.ParentID,
		StockSyncEnabled:  e.StockSyncEnabled,
		UpdatedAt:         e.OccurredAt,
	}
}

type CatalogItemDeletedEvent struct {
	ItemID     domain.ItemID `json:"item_id"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// HoldLines flattens holds into request-shaped lines.
func HoldLines(holds []domain.Hold) []domain.ItemQuantity {
	out := make([]domain.ItemQuantity, 0, len(holds))
	for _, h := range holds {
		out = append(out, domain.ItemQuantity{ItemID: h.ItemID, Quantity: h.Quantity})
	}
	return out
}

// InMemoryEventPublisher keeps events in memory. It stands in for Kafka when
// USE_KAFKA is off and in tests.
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	logger *zap.Logger
	events []interface{}
}

func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		logger: logger,
		events: make([]interface{}, 0),
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.logger.Debug("Event published (in-memory)", zap.String("event-type", EventType(event)))
	return nil
}

func (p *InMemoryEventPublisher) Close() error {
	return nil
}

// Events returns a copy of everything published so far.
func (p *InMemoryEventPublisher) Events() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interface{}(nil), p.events...)
}

// EventType names an event for headers and logs.
func EventType(event interface{}) string {
	switch event.(type) {
	case StockReservedEvent:
		return TypeStockReserved
	case StockReleasedEvent:
		return TypeStockReleased
	case HoldsExpiredEvent:
		return TypeHoldsExpired
	case AvailabilityChangedEvent:
		return TypeAvailabilityChanged
	case CatalogItemUpsertedEvent:
		return TypeCatalogItemUpserted
	case CatalogItemDeletedEvent:
		return TypeCatalogItemDeleted
	default:
		return "Unknown"
	}
}
