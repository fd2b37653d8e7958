package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reservation-service/internal/commands"
	"reservation-service/internal/domain"
	"reservation-service/internal/events"
	"reservation-service/internal/ledger"

	"go.uber.org/zap"
)

// CatalogCommands is the part of the command service the catalog feed drives.
type CatalogCommands interface {
	UpsertItem(ctx context.Context, cmd commands.UpsertItemCommand) (ledger.CatalogUpdate, error)
	DeleteItem(ctx context.Context, cmd commands.DeleteItemCommand) (ledger.CatalogUpdate, error)
}

// permanentError marks a message that will fail the same way however often it
// is retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// IsPermanent reports whether retrying err is pointless.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// CatalogProcessor applies catalog events to the ledger.
type CatalogProcessor struct {
	commands CatalogCommands
	logger   *zap.Logger
}

// NewCatalogProcessor creates a processor for the catalog topic.
func NewCatalogProcessor(cmds CatalogCommands, logger *zap.Logger) *CatalogProcessor {
	return &CatalogProcessor{
		commands: cmds,
		logger:   logger,
	}
}

// ProcessEvent decodes and applies a single catalog event.
func (p *CatalogProcessor) ProcessEvent(ctx context.Context, eventType string, eventData []byte) error {
	switch eventType {
	case events.TypeCatalogItemUpserted:
		return p.processItemUpserted(ctx, eventData)
	case events.TypeCatalogItemDeleted:
		return p.processItemDeleted(ctx, eventData)
	default:
		return permanent(fmt.Errorf("unknown event type: %s", eventType))
	}
}

func (p *CatalogProcessor) processItemUpserted(ctx context.Context, eventData []byte) error {
	var event events.CatalogItemUpsertedEvent
	if err := json.Unmarshal(eventData, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal %s: %w", events.TypeCatalogItemUpserted, err))
	}

	update, err := p.commands.UpsertItem(ctx, commands.UpsertItemCommand{
		ID:                event.ItemID,
		Name:              event.Name,
		StockEnabled:      event.StockEnabled,
		CommittedQuantity: event.CommittedQuantity,
		ParentID:          event.ParentID,
		StockSyncEnabled:  event.StockSyncEnabled,
	})
	if err != nil {
		if isDomainError(err) {
			return permanent(err)
		}
		return err
	}

	p.logger.Info("Catalog item applied",
		zap.Int64("item_id", int64(event.ItemID)),
		zap.Bool("created", update.Created),
		zap.Bool("structural", update.Structural),
		zap.Int("affected", len(update.Affected)),
	)
	return nil
}

func (p *CatalogProcessor) processItemDeleted(ctx context.Context, eventData []byte) error {
	var event events.CatalogItemDeletedEvent
	if err := json.Unmarshal(eventData, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal %s: %w", events.TypeCatalogItemDeleted, err))
	}

	update, err := p.commands.DeleteItem(ctx, commands.DeleteItemCommand{ID: event.ItemID})
	if errors.Is(err, domain.ErrUnknownItem) {
		// Redelivery of a delete that already went through.
		p.logger.Debug("Catalog item already deleted", zap.Int64("item_id", int64(event.ItemID)))
		return nil
	}
	if err != nil {
		if isDomainError(err) {
			return permanent(err)
		}
		return err
	}

	p.logger.Info("Catalog item deleted",
		zap.Int64("item_id", int64(event.ItemID)),
		zap.Int("dropped_holds", len(update.DroppedHolds)),
		zap.Int("detached", len(update.Detached)),
	)
	return nil
}

func isDomainError(err error) bool {
	var de *domain.DomainError
	var unknown *domain.UnknownItemError
	return errors.As(err, &de) || errors.As(err, &unknown)
}
