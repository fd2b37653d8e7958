package domain

import (
	"sort"
	"time"
)

// ItemID identifies a sellable or complement unit in the catalog.
type ItemID int64

// Item is the catalog view of a product as far as stock is concerned.
type Item struct {
	ID                ItemID
	Name              string
	StockEnabled      bool
	CommittedQuantity int
	ParentID          *ItemID
	StockSyncEnabled  bool
	UpdatedAt         time.Time
}

// NewItem creates a stock-tracked top-level item.
func NewItem(id ItemID, name string, committed int) Item {
	return Item{
		ID:                id,
		Name:              name,
		StockEnabled:      true,
		CommittedQuantity: committed,
		UpdatedAt:         time.Now().UTC(),
	}
}

// HasParent reports whether the item hangs under another item.
func (i Item) HasParent() bool {
	return i.ParentID != nil
}

// Validate checks the item's own fields. Relationship checks live in the catalog.
func (i Item) Validate() error {
	if i.ID <= 0 {
		return ErrInvalidItem
	}
	if i.CommittedQuantity < 0 {
		return ErrInvalidQuantity
	}
	if i.ParentID != nil && *i.ParentID == i.ID {
		return ErrInvalidParent
	}
	return nil
}

// Clone returns a copy that does not share the parent pointer.
func (i Item) Clone() Item {
	out := i
	if i.ParentID != nil {
		p := *i.ParentID
		out.ParentID = &p
	}
	return out
}

// SameStructure reports whether parent and sync metadata are unchanged.
func (i Item) SameStructure(other Item) bool {
	if i.StockSyncEnabled != other.StockSyncEnabled {
		return false
	}
	switch {
	case i.ParentID == nil && other.ParentID == nil:
		return true
	case i.ParentID == nil || other.ParentID == nil:
		return false
	default:
		return *i.ParentID == *other.ParentID
	}
}

// ItemQuantity is one line of a reserve or release request.
type ItemQuantity struct {
	ItemID   ItemID `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// ParentRef is a convenience for building items in code and tests.
func ParentRef(id ItemID) *ItemID {
	return &id
}

// SortIDs sorts ids ascending in place and returns them.
func SortIDs(ids []ItemID) []ItemID {
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
