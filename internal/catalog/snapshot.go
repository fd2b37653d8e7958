package catalog

import (
	"fmt"

	"reservation-service/internal/domain"
)

// Snapshot is the in-memory catalog: an arena of items keyed by id with parent
// links stored as ids. Trees are at most one level deep and never cyclic.
//
// Snapshot does no locking of its own; the ledger guards it together with the
// holds so catalog mutations and reservations never interleave.
type Snapshot struct {
	items    map[domain.ItemID]domain.Item
	children map[domain.ItemID][]domain.ItemID
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		items:    make(map[domain.ItemID]domain.Item),
		children: make(map[domain.ItemID][]domain.ItemID),
	}
}

// Load replaces the whole snapshot. Items may arrive in any order; links are
// checked once everything is in place. On error the snapshot is unchanged.
func (s *Snapshot) Load(items []domain.Item) error {
	next := New()
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
		if _, dup := next.items[item.ID]; dup {
			return fmt.Errorf("item %d: duplicate id: %w", item.ID, domain.ErrInvalidItem)
		}
		next.items[item.ID] = item.Clone()
	}
	for _, item := range next.items {
		if item.ParentID == nil {
			continue
		}
		parent, ok := next.items[*item.ParentID]
		if !ok || parent.HasParent() {
			return fmt.Errorf("item %d: parent %d: %w", item.ID, *item.ParentID, domain.ErrInvalidParent)
		}
		next.link(item.ID, *item.ParentID)
	}
	s.items = next.items
	s.children = next.children
	return nil
}

// Get returns a copy of the item.
func (s *Snapshot) Get(id domain.ItemID) (domain.Item, bool) {
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, false
	}
	return item.Clone(), true
}

// Has reports whether the id is in the catalog.
func (s *Snapshot) Has(id domain.ItemID) bool {
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// IDs returns all item ids in ascending order.
func (s *Snapshot) IDs() []domain.ItemID {
	ids := make([]domain.ItemID, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return domain.SortIDs(ids)
}

// Children returns the ids of id's children in ascending order.
func (s *Snapshot) Children(id domain.ItemID) []domain.ItemID {
	kids := s.children[id]
	out := make([]domain.ItemID, len(kids))
	copy(out, kids)
	return out
}

// HasChildren reports whether any item points at id.
func (s *Snapshot) HasChildren(id domain.ItemID) bool {
	return len(s.children[id]) > 0
}

// ParentOf returns the parent of id, if any.
func (s *Snapshot) ParentOf(id domain.ItemID) (domain.Item, bool) {
	item, ok := s.items[id]
	if !ok || item.ParentID == nil {
		return domain.Item{}, false
	}
	return s.Get(*item.ParentID)
}

// IsSyncParent reports whether id shares its stock with its children.
func (s *Snapshot) IsSyncParent(id domain.ItemID) bool {
	item, ok := s.items[id]
	return ok && item.StockSyncEnabled && s.HasChildren(id)
}

// IsContainerOnly reports whether id is a parent whose own stock is irrelevant:
// it has children and does not share a pool with them.
func (s *Snapshot) IsContainerOnly(id domain.ItemID) bool {
	item, ok := s.items[id]
	return ok && s.HasChildren(id) && !item.StockSyncEnabled
}

// PoolRoot returns the item whose committed quantity backs id's stock.
func (s *Snapshot) PoolRoot(id domain.ItemID) domain.ItemID {
	item, ok := s.items[id]
	if !ok || item.ParentID == nil {
		return id
	}
	if parent, ok := s.items[*item.ParentID]; ok && parent.StockSyncEnabled {
		return parent.ID
	}
	return id
}

// PoolMembers returns every item drawing from root's pool, root first.
func (s *Snapshot) PoolMembers(root domain.ItemID) []domain.ItemID {
	members := []domain.ItemID{root}
	if s.IsSyncParent(root) {
		members = append(members, s.children[root]...)
	}
	return members
}

// Upsert inserts or replaces an item after checking its links. It returns the
// previous version when the item already existed.
func (s *Snapshot) Upsert(item domain.Item) (*domain.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.ParentID != nil {
		parent, ok := s.items[*item.ParentID]
		if !ok || parent.HasParent() {
			return nil, domain.ErrInvalidParent
		}
		if s.HasChildren(item.ID) {
			return nil, domain.ErrInvalidParent
		}
	}

	var prev *domain.Item
	if old, ok := s.items[item.ID]; ok {
		old = old.Clone()
		prev = &old
		if old.ParentID != nil {
			s.unlink(item.ID, *old.ParentID)
		}
	}
	s.items[item.ID] = item.Clone()
	if item.ParentID != nil {
		s.link(item.ID, *item.ParentID)
	}
	return prev, nil
}

// Delete removes id. Its children are detached and become top-level items;
// their ids are returned.
func (s *Snapshot) Delete(id domain.ItemID) (domain.Item, []domain.ItemID, error) {
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, nil, &domain.UnknownItemError{ItemID: id}
	}
	if item.ParentID != nil {
		s.unlink(id, *item.ParentID)
	}
	detached := s.Children(id)
	for _, child := range detached {
		c := s.items[child]
		c.ParentID = nil
		s.items[child] = c
	}
	delete(s.children, id)
	delete(s.items, id)
	return item, detached, nil
}

// Items returns copies of every item in ascending id order.
func (s *Snapshot) Items() []domain.Item {
	out := make([]domain.Item, 0, len(s.items))
	for _, id := range s.IDs() {
		out = append(out, s.items[id].Clone())
	}
	return out
}

func (s *Snapshot) link(child, parent domain.ItemID) {
	kids := append(s.children[parent], child)
	s.children[parent] = domain.SortIDs(kids)
}

func (s *Snapshot) unlink(child, parent domain.ItemID) {
	kids := s.children[parent]
	for i, k := range kids {
		if k == child {
			kids = append(kids[:i], kids[i+1:]...)
			break
		}
	}
	if len(kids) == 0 {
		delete(s.children, parent)
		return
	}
	s.children[parent] = kids
}
