package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"reservation-service/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCatalogStore keeps the catalog in SQLite. Writes go through one mutex
// and one connection, so there is a single writer at a time.
type SQLiteCatalogStore struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// NewSQLiteCatalogStore opens (or creates) the database at path.
func NewSQLiteCatalogStore(path string, logger *zap.Logger) (*SQLiteCatalogStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteCatalogStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite catalog store ready", zap.String("path", path))
	return store, nil
}

func (s *SQLiteCatalogStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_items (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		stock_enabled INTEGER NOT NULL DEFAULT 1,
		committed_quantity INTEGER NOT NULL DEFAULT 0,
		parent_id INTEGER,
		stock_sync_enabled INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		CHECK(committed_quantity >= 0),
		CHECK(stock_enabled IN (0, 1)),
		CHECK(stock_sync_enabled IN (0, 1)),
		CHECK(parent_id IS NULL OR parent_id <> id)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_items_parent_id ON catalog_items(parent_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteCatalogStore) LoadItems(ctx context.Context) ([]domain.Item, error) {
	query := `
		SELECT id, name, stock_enabled, committed_quantity, parent_id, stock_sync_enabled, updated_at
		FROM catalog_items
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item      domain.Item
			parentID  sql.NullInt64
			updatedAt string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.StockEnabled, &item.CommittedQuantity,
			&parentID, &item.StockSyncEnabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if parentID.Valid {
			item.ParentID = domain.ParentRef(domain.ItemID(parentID.Int64))
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			item.UpdatedAt = t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func (s *SQLiteCatalogStore) SaveItem(ctx context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO catalog_items (id, name, stock_enabled, committed_quantity, parent_id, stock_sync_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			stock_enabled = excluded.stock_enabled,
			committed_quantity = excluded.committed_quantity,
			parent_id = excluded.parent_id,
			stock_sync_enabled = excluded.stock_sync_enabled,
			updated_at = excluded.updated_at
	`

	var parentID interface{}
	if item.ParentID != nil {
		parentID = int64(*item.ParentID)
	}
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		int64(item.ID), item.Name, item.StockEnabled, item.CommittedQuantity,
		parentID, item.StockSyncEnabled, updatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save item %d: %w", item.ID, err)
	}
	return nil
}

func (s *SQLiteCatalogStore) DeleteItem(ctx context.Context, id domain.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE catalog_items SET parent_id = NULL, updated_at = ? WHERE parent_id = ?`,
		time.Now().UTC().Format(time.RFC3339), int64(id)); err != nil {
		return fmt.Errorf("failed to detach children of item %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, int64(id)); err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of item %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteCatalogStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteCatalogStore) Close() error {
	return s.db.Close()
}
