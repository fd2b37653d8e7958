package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	item := NewItem(7, "Pamonha doce", 12)

	assert.Equal(t, ItemID(7), item.ID)
	assert.True(t, item.StockEnabled)
	assert.Equal(t, 12, item.CommittedQuantity)
	assert.False(t, item.HasParent())
	assert.False(t, item.UpdatedAt.IsZero())
}

func TestItemValidate(t *testing.T) {
	testCases := []struct {
		name string
		item Item
		err  error
	}{
		{"valid", NewItem(1, "a", 0), nil},
		{"zero id", Item{ID: 0}, ErrInvalidItem},
		{"negative quantity", Item{ID: 1, CommittedQuantity: -1}, ErrInvalidQuantity},
		{"self parent", Item{ID: 3, ParentID: ParentRef(3)}, ErrInvalidParent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.err, tc.item.Validate())
		})
	}
}

func TestItemCloneDoesNotShareParent(t *testing.T) {
	item := Item{ID: 2, ParentID: ParentRef(1)}
	clone := item.Clone()
	*clone.ParentID = 9

	assert.Equal(t, ItemID(1), *item.ParentID)
}

func TestItemSameStructure(t *testing.T) {
	base := Item{ID: 2, ParentID: ParentRef(1)}

	assert.True(t, base.SameStructure(Item{ID: 2, ParentID: ParentRef(1), CommittedQuantity: 5}))
	assert.False(t, base.SameStructure(Item{ID: 2}))
	assert.False(t, base.SameStructure(Item{ID: 2, ParentID: ParentRef(4)}))
	assert.False(t, base.SameStructure(Item{ID: 2, ParentID: ParentRef(1), StockSyncEnabled: true}))
	assert.True(t, Item{ID: 1}.SameStructure(Item{ID: 1}))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, 0, Limited(-3).Quantity)
	assert.True(t, Unbounded().InStock())
	assert.False(t, Limited(0).InStock())
	assert.True(t, Limited(2).Covers(2))
	assert.False(t, Limited(2).Covers(3))
	assert.True(t, Unbounded().Covers(1000))
	assert.Equal(t, Limited(5), Limited(2).Plus(Limited(3)))
	assert.Equal(t, Unbounded(), Limited(2).Plus(Unbounded()))
}

func TestAvailabilityJSON(t *testing.T) {
	payload, err := json.Marshal(AvailabilityMap{1: Limited(3), 2: Unbounded()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":3,"2":"unbounded"}`, string(payload))

	var decoded AvailabilityMap
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, Limited(3), decoded[1])
	assert.Equal(t, Unbounded(), decoded[2])

	var bad Availability
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &bad))
}

func TestInsufficientStockErrorMatchesSentinel(t *testing.T) {
	var err error = &InsufficientStockError{ItemID: 4, Requested: 2, Available: Limited(1)}

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), "item 4")

	var typed *InsufficientStockError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 1, typed.Available.Quantity)
}

func TestUnknownItemErrorMatchesSentinel(t *testing.T) {
	var err error = &UnknownItemError{ItemID: 99}

	assert.True(t, errors.Is(err, ErrUnknownItem))
	assert.False(t, errors.Is(err, ErrInsufficientStock))
}

func TestHoldIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	hold := Hold{SessionID: "s", ItemID: 1, Quantity: 1, LastTouchedAt: now.Add(-10 * time.Minute)}

	assert.True(t, hold.Idle(now, 5*time.Minute))
	assert.False(t, hold.Idle(now, 15*time.Minute))
	assert.Equal(t, HoldKey{SessionID: "s", ItemID: 1}, hold.Key())
}
