package commands

import (
	"context"
	"errors"
	"fmt"

	"reservation-service/internal/broadcast"
	"reservation-service/internal/clock"
	"reservation-service/internal/domain"
	"reservation-service/internal/events"
	"reservation-service/internal/ledger"
	"reservation-service/internal/repository"

	"go.uber.org/zap"
)

const (
	// ReasonItemDeleted marks holds dropped because their item left the catalog.
	ReasonItemDeleted = "item_deleted"
	// ReasonNotSellable marks holds dropped because an edit turned their item
	// into a container-only item.
	ReasonNotSellable = "item_not_sellable"
)

// Acknowledger pushes a reservation result to the session that asked.
type Acknowledger interface {
	Acknowledge(sessionID string, result broadcast.ReservationResult) bool
}

// Service runs write commands against the ledger and fans the outcome out to
// the requesting session, the catalog store and the event stream. The ledger
// is the authority: a failed publish is logged, never undone.
type Service struct {
	ledger    *ledger.Ledger
	acks      Acknowledger
	store     repository.CatalogStore
	publisher events.EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewService wires the command side.
func NewService(l *ledger.Ledger, acks Acknowledger, store repository.CatalogStore, publisher events.EventPublisher, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		ledger:    l,
		acks:      acks,
		store:     store,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Reserve places holds and answers the session over its stream as well as
// through the returned result. Insufficient stock is returned as an error
// next to a fully populated result.
func (s *Service) Reserve(ctx context.Context, cmd ReserveStockCommand) (broadcast.ReservationResult, error) {
	holds, err := s.ledger.Reserve(cmd.SessionID, cmd.Items)
	result := broadcast.NewReservationResult(cmd.RequestID, holds, err)

	if cmd.SessionID != "" && s.acks != nil {
		s.acks.Acknowledge(cmd.SessionID, result)
	}

	if err != nil {
		var stock *domain.InsufficientStockError
		if errors.As(err, &stock) {
			s.logger.Info("Reservation rejected",
				zap.String("session_id", cmd.SessionID),
				zap.String("request_id", cmd.RequestID),
				zap.Int64("item_id", int64(stock.ItemID)),
				zap.Int("requested", stock.Requested),
				zap.String("available", stock.Available.String()),
			)
		}
		return result, err
	}

	s.logger.Info("Stock reserved",
		zap.String("session_id", cmd.SessionID),
		zap.String("request_id", cmd.RequestID),
		zap.Int("lines", len(cmd.Items)),
	)
	s.publish(ctx, events.StockReservedEvent{
		SessionID:  cmd.SessionID,
		RequestID:  cmd.RequestID,
		Items:      cmd.Items,
		OccurredAt: s.clock.Now(),
	})
	return result, nil
}

// Release gives back quantities and returns the session's remaining holds on
// the released items.
func (s *Service) Release(ctx context.Context, cmd ReleaseStockCommand) ([]domain.Hold, error) {
	holds, err := s.ledger.Release(cmd.SessionID, cmd.Items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock released",
		zap.String("session_id", cmd.SessionID),
		zap.String("request_id", cmd.RequestID),
		zap.Int("lines", len(cmd.Items)),
	)
	s.publish(ctx, events.StockReleasedEvent{
		SessionID:  cmd.SessionID,
		RequestID:  cmd.RequestID,
		Reason:     events.ReasonRelease,
		Items:      cmd.Items,
		OccurredAt: s.clock.Now(),
	})
	return holds, nil
}

// UpsertItem applies the edit to the ledger, then persists it. Holds the
// edit made unsellable are published as releases.
func (s *Service) UpsertItem(ctx context.Context, cmd UpsertItemCommand) (ledger.CatalogUpdate, error) {
	item := cmd.Item()
	item.UpdatedAt = s.clock.Now()

	update, err := s.ledger.UpsertItem(item)
	if err != nil {
		return ledger.CatalogUpdate{}, err
	}
	s.publishDropped(ctx, update.DroppedHolds, ReasonNotSellable)

	if s.store != nil {
		if err := s.store.SaveItem(ctx, item); err != nil {
			s.logger.Error("Failed to persist catalog item; in-memory catalog is ahead of the store",
				zap.Int64("item_id", int64(item.ID)),
				zap.Error(err),
			)
			return update, fmt.Errorf("persist item %d: %w", item.ID, err)
		}
	}
	return update, nil
}

// DeleteItem removes the item from the ledger and the store. Holds dropped
// with it are published as releases. An item the ledger no longer knows is
// still deleted from the store, so a retry after a failed store write
// finishes the job; the unknown-item error is returned once it has.
func (s *Service) DeleteItem(ctx context.Context, cmd DeleteItemCommand) (ledger.CatalogUpdate, error) {
	update, err := s.ledger.DeleteItem(cmd.ID)
	if errors.Is(err, domain.ErrUnknownItem) {
		if storeErr := s.deleteStored(ctx, cmd.ID); storeErr != nil {
			return ledger.CatalogUpdate{}, storeErr
		}
		return ledger.CatalogUpdate{}, err
	}
	if err != nil {
		return ledger.CatalogUpdate{}, err
	}

	s.publishDropped(ctx, update.DroppedHolds, ReasonItemDeleted)

	if err := s.deleteStored(ctx, cmd.ID); err != nil {
		return update, err
	}
	return update, nil
}

func (s *Service) deleteStored(ctx context.Context, id domain.ItemID) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		s.logger.Error("Failed to delete catalog item from store",
			zap.Int64("item_id", int64(id)),
			zap.Error(err),
		)
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// publishDropped sends one release per session that lost holds.
func (s *Service) publishDropped(ctx context.Context, dropped []domain.Hold, reason string) {
	bySession := make(map[string][]domain.Hold)
	for _, h := range dropped {
		bySession[h.SessionID] = append(bySession[h.SessionID], h)
	}
	now := s.clock.Now()
	for sessionID, holds := range bySession {
		s.publish(ctx, events.StockReleasedEvent{
			SessionID:  sessionID,
			Reason:     reason,
			Items:      events.HoldLines(holds),
			OccurredAt: now,
		})
	}
}

func (s *Service) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event-type", events.EventType(event)),
			zap.Error(err),
		)
	}
}
