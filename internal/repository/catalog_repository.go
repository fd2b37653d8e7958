package repository

import (
	"context"

	"reservation-service/internal/domain"
)

// CatalogStore persists the catalog the ledger is loaded from. Holds are
// never persisted.
type CatalogStore interface {
	LoadItems(ctx context.Context) ([]domain.Item, error)
	// SaveItem inserts or replaces the item.
	SaveItem(ctx context.Context, item domain.Item) error
	// DeleteItem removes the item and clears the parent of its children.
	// Deleting a missing item is not an error.
	DeleteItem(ctx context.Context, id domain.ItemID) error
	Ping(ctx context.Context) error
	Close() error
}
