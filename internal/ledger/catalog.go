package ledger

import (
	"reservation-service/internal/domain"
	"reservation-service/internal/resolver"

	"go.uber.org/zap"
)

// CatalogUpdate describes the effect of one operator mutation.
type CatalogUpdate struct {
	ItemID          domain.ItemID
	Created         bool
	Deleted         bool
	Structural      bool
	Affected        []domain.ItemID
	Detached        []domain.ItemID
	DroppedHolds    []domain.Hold
	Inconsistencies []domain.CatalogInconsistency
}

// LoadCatalog replaces the catalog snapshot, typically at startup. Holds on
// items that no longer exist are dropped.
func (l *Ledger) LoadCatalog(items []domain.Item) error {
	l.mu.Lock()
	if err := l.catalog.Load(items); err != nil {
		l.mu.Unlock()
		return err
	}
	var dropped []domain.Hold
	for id := range l.items {
		if !l.catalog.Has(id) {
			dropped = append(dropped, l.dropItemHoldsLocked(id)...)
		}
	}
	dropped = append(dropped, l.dropContainerHoldsLocked()...)
	inconsistencies := l.inconsistenciesLocked(l.catalog.IDs())
	notifier := l.notifier
	count := l.catalog.Len()
	l.mu.Unlock()

	l.logger.Info("Catalog loaded",
		zap.Int("items", count),
		zap.Int("dropped_holds", len(dropped)),
	)
	l.reportInconsistencies(inconsistencies)
	notifier.MarkFull()
	return nil
}

// UpsertItem applies an operator edit. An edit that drives committed stock
// below what is already held goes through: holds are honored and the pool
// shows zero until they drain. Such pools are reported in the result.
// Holds on an item the edit turns container-only are released, since nothing
// would count them; they are returned in DroppedHolds.
func (l *Ledger) UpsertItem(item domain.Item) (CatalogUpdate, error) {
	l.mu.Lock()
	before := resolver.Affected(l.catalog, item.ID)
	prev, err := l.catalog.Upsert(item)
	if err != nil {
		l.mu.Unlock()
		return CatalogUpdate{}, err
	}
	dropped := l.dropContainerHoldsLocked()
	affected := resolver.AffectedSet(l.catalog, append(before, item.ID)...)
	update := CatalogUpdate{
		ItemID:          item.ID,
		Created:         prev == nil,
		Structural:      prev == nil || !prev.SameStructure(item),
		Affected:        affected,
		DroppedHolds:    dropped,
		Inconsistencies: l.inconsistenciesLocked(affected),
	}
	notifier := l.notifier
	l.mu.Unlock()

	l.logger.Info("Catalog item upserted",
		zap.Int64("item_id", int64(item.ID)),
		zap.Bool("created", update.Created),
		zap.Bool("structural", update.Structural),
		zap.Int("committed_quantity", item.CommittedQuantity),
		zap.Bool("stock_enabled", item.StockEnabled),
		zap.Int("dropped_holds", len(dropped)),
	)
	l.reportInconsistencies(update.Inconsistencies)
	notifier.MarkFull()
	return update, nil
}

// DeleteItem removes an item, drops its holds and detaches its children.
func (l *Ledger) DeleteItem(id domain.ItemID) (CatalogUpdate, error) {
	l.mu.Lock()
	before := resolver.Affected(l.catalog, id)
	_, detached, err := l.catalog.Delete(id)
	if err != nil {
		l.mu.Unlock()
		return CatalogUpdate{}, err
	}
	dropped := l.dropItemHoldsLocked(id)
	affected := resolver.AffectedSet(l.catalog, append(before, detached...)...)
	update := CatalogUpdate{
		ItemID:          id,
		Deleted:         true,
		Structural:      true,
		Affected:        affected,
		Detached:        detached,
		DroppedHolds:    dropped,
		Inconsistencies: l.inconsistenciesLocked(affected),
	}
	notifier := l.notifier
	l.mu.Unlock()

	l.logger.Info("Catalog item deleted",
		zap.Int64("item_id", int64(id)),
		zap.Int("detached_children", len(detached)),
		zap.Int("dropped_holds", len(dropped)),
	)
	l.reportInconsistencies(update.Inconsistencies)
	notifier.MarkFull()
	return update, nil
}

// Inconsistencies lists every pool whose holds exceed its committed stock.
func (l *Ledger) Inconsistencies() []domain.CatalogInconsistency {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.inconsistenciesLocked(l.catalog.IDs())
}

func (l *Ledger) inconsistenciesLocked(ids []domain.ItemID) []domain.CatalogInconsistency {
	seen := make(map[domain.ItemID]struct{})
	var out []domain.CatalogInconsistency
	for _, id := range ids {
		if !l.catalog.Has(id) {
			continue
		}
		root := l.catalog.PoolRoot(id)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		item, _ := l.catalog.Get(root)
		if !item.StockEnabled {
			continue
		}
		if held := l.heldLocked(root); held > item.CommittedQuantity {
			out = append(out, domain.CatalogInconsistency{
				PoolID:    root,
				Committed: item.CommittedQuantity,
				Held:      held,
			})
		}
	}
	return out
}

func (l *Ledger) dropItemHoldsLocked(id domain.ItemID) []domain.Hold {
	var dropped []domain.Hold
	for sessionID, hold := range l.items[id] {
		dropped = append(dropped, *hold)
		l.removeLocked(sessionID, id)
	}
	return dropped
}

// dropContainerHoldsLocked releases holds on items that are now
// container-only.
func (l *Ledger) dropContainerHoldsLocked() []domain.Hold {
	var dropped []domain.Hold
	for _, id := range domain.SortIDs(l.heldItemsLocked()) {
		if l.catalog.IsContainerOnly(id) {
			dropped = append(dropped, l.dropItemHoldsLocked(id)...)
		}
	}
	return dropped
}

func (l *Ledger) heldItemsLocked() []domain.ItemID {
	ids := make([]domain.ItemID, 0, len(l.items))
	for id := range l.items {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) reportInconsistencies(list []domain.CatalogInconsistency) {
	for _, c := range list {
		l.logger.Warn("Catalog inconsistency: committed stock below held quantity",
			zap.Int64("pool_id", int64(c.PoolID)),
			zap.Int("committed", c.Committed),
			zap.Int("held", c.Held),
		)
	}
}
