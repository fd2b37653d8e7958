package repository

import (
	"context"
	"fmt"
	"time"

	"reservation-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresCatalogStore keeps the catalog in Postgres.
type PostgresCatalogStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresCatalogStore connects to dsn and makes sure the table exists.
func NewPostgresCatalogStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresCatalogStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := NewPostgresCatalogStoreWithPool(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Postgres catalog store ready")
	return store, nil
}

func NewPostgresCatalogStoreWithPool(pool *pgxpool.Pool, logger *zap.Logger) *PostgresCatalogStore {
	return &PostgresCatalogStore{pool: pool, logger: logger}
}

// Migrate creates the catalog table when missing.
func (s *PostgresCatalogStore) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	stock_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	committed_quantity INTEGER NOT NULL DEFAULT 0 CHECK (committed_quantity >= 0),
	parent_id BIGINT CHECK (parent_id IS NULL OR parent_id <> id),
	stock_sync_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_catalog_items_parent_id ON catalog_items (parent_id);`
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

func (s *PostgresCatalogStore) LoadItems(ctx context.Context) ([]domain.Item, error) {
	const query = `
SELECT id, name, stock_enabled, committed_quantity, parent_id, stock_sync_enabled, updated_at
FROM catalog_items
ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item     domain.Item
			id       int64
			parentID *int64
		)
		if err := rows.Scan(&id, &item.Name, &item.StockEnabled, &item.CommittedQuantity,
			&parentID, &item.StockSyncEnabled, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.ID = domain.ItemID(id)
		if parentID != nil {
			item.ParentID = domain.ParentRef(domain.ItemID(*parentID))
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate items: %w", rows.Err())
	}
	return items, nil
}

func (s *PostgresCatalogStore) SaveItem(ctx context.Context, item domain.Item) error {
	const stmt = `
INSERT INTO catalog_items (id, name, stock_enabled, committed_quantity, parent_id, stock_sync_enabled, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	stock_enabled = EXCLUDED.stock_enabled,
	committed_quantity = EXCLUDED.committed_quantity,
	parent_id = EXCLUDED.parent_id,
	stock_sync_enabled = EXCLUDED.stock_sync_enabled,
	updated_at = EXCLUDED.updated_at`

	var parentID *int64
	if item.ParentID != nil {
		p := int64(*item.ParentID)
		parentID = &p
	}
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, stmt, int64(item.ID), item.Name, item.StockEnabled,
		item.CommittedQuantity, parentID, item.StockSyncEnabled, updatedAt)
	if err != nil {
		return fmt.Errorf("save item %d: %w", item.ID, err)
	}
	return nil
}

func (s *PostgresCatalogStore) DeleteItem(ctx context.Context, id domain.ItemID) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE catalog_items SET parent_id = NULL, updated_at = now() WHERE parent_id = $1`, int64(id)); err != nil {
			return fmt.Errorf("detach children of item %d: %w", id, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, int64(id)); err != nil {
			return fmt.Errorf("delete item %d: %w", id, err)
		}
		return nil
	})
}

func (s *PostgresCatalogStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresCatalogStore) Close() error {
	s.pool.Close()
	return nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
