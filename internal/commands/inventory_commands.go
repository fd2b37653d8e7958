package commands

import (
	"reservation-service/internal/domain"
)

// ReserveStockCommand asks for holds on every line or none.
type ReserveStockCommand struct {
	SessionID string
	RequestID string
	Items     []domain.ItemQuantity
}

// ReleaseStockCommand gives back quantities held by a session.
type ReleaseStockCommand struct {
	SessionID string
	RequestID string
	Items     []domain.ItemQuantity
}

// UpsertItemCommand creates or replaces a catalog item.
type UpsertItemCommand struct {
	ID                domain.ItemID
	Name              string
	StockEnabled      bool
	CommittedQuantity int
	ParentID          *domain.ItemID
	StockSyncEnabled  bool
}

// Item builds the catalog item the command describes.
func (c UpsertItemCommand) Item() domain.Item {
	return domain.Item{
		ID:                c.ID,
		Name:              c.Name,
		StockEnabled:      c.StockEnabled,
		CommittedQuantity: c.CommittedQuantity,
		ParentID:          c.ParentID,
		StockSyncEnabled:  c.StockSyncEnabled,
	}
}

// DeleteItemCommand removes a catalog item.
type DeleteItemCommand struct {
	ID domain.ItemID
}
