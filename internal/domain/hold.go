package domain

import "time"

// Hold is a session's uncommitted claim on stock for one item.
// A stored hold always has Quantity > 0.
type Hold struct {
	SessionID     string    `json:"session_id"`
	ItemID        ItemID    `json:"item_id"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
	LastTouchedAt time.Time `json:"last_touched_at"`
}

// HoldKey identifies a hold; there is at most one hold per key.
type HoldKey struct {
	SessionID string
	ItemID    ItemID
}

// Key returns the hold's identity.
func (h Hold) Key() HoldKey {
	return HoldKey{SessionID: h.SessionID, ItemID: h.ItemID}
}

// Idle reports whether the hold has not been touched for longer than ttl.
func (h Hold) Idle(now time.Time, ttl time.Duration) bool {
	return now.Sub(h.LastTouchedAt) > ttl
}
