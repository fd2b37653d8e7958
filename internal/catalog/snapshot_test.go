package catalog

import (
	"errors"
	"testing"

	"reservation-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncFamily(t *testing.T) *Snapshot {
	t.Helper()
	s := New()
	parent := domain.NewItem(1, "Pamonha", 5)
	parent.StockSyncEnabled = true
	c1 := domain.NewItem(2, "Pamonha doce", 0)
	c1.ParentID = domain.ParentRef(1)
	c2 := domain.NewItem(3, "Pamonha salgada", 0)
	c2.ParentID = domain.ParentRef(1)
	require.NoError(t, s.Load([]domain.Item{c2, parent, c1}))
	return s
}

func TestLoad_OutOfOrderItems(t *testing.T) {
	s := syncFamily(t)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []domain.ItemID{1, 2, 3}, s.IDs())
	assert.Equal(t, []domain.ItemID{2, 3}, s.Children(1))
	assert.True(t, s.IsSyncParent(1))
	assert.False(t, s.IsContainerOnly(1))
}

func TestLoad_RejectsMissingParent(t *testing.T) {
	s := syncFamily(t)
	orphan := domain.NewItem(9, "orphan", 1)
	orphan.ParentID = domain.ParentRef(42)

	err := s.Load([]domain.Item{orphan})

	assert.True(t, errors.Is(err, domain.ErrInvalidParent))
	assert.Equal(t, 3, s.Len(), "failed load must leave the snapshot untouched")
}

func TestLoad_RejectsGrandchildren(t *testing.T) {
	a := domain.NewItem(1, "a", 1)
	b := domain.NewItem(2, "b", 1)
	b.ParentID = domain.ParentRef(1)
	c := domain.NewItem(3, "c", 1)
	c.ParentID = domain.ParentRef(2)

	err := New().Load([]domain.Item{a, b, c})

	assert.True(t, errors.Is(err, domain.ErrInvalidParent))
}

func TestLoad_RejectsDuplicates(t *testing.T) {
	err := New().Load([]domain.Item{domain.NewItem(1, "a", 1), domain.NewItem(1, "b", 2)})

	assert.True(t, errors.Is(err, domain.ErrInvalidItem))
}

func TestPoolRootAndMembers(t *testing.T) {
	s := syncFamily(t)
	require.NoError(t, s.Load(append(s.Items(), domain.NewItem(10, "solo", 4))))

	assert.Equal(t, domain.ItemID(1), s.PoolRoot(2))
	assert.Equal(t, domain.ItemID(1), s.PoolRoot(1))
	assert.Equal(t, domain.ItemID(10), s.PoolRoot(10))
	assert.Equal(t, []domain.ItemID{1, 2, 3}, s.PoolMembers(1))
	assert.Equal(t, []domain.ItemID{10}, s.PoolMembers(10))
}

func TestPoolRoot_ChildOfContainerHasOwnPool(t *testing.T) {
	s := New()
	container := domain.NewItem(1, "Combo", 0)
	child := domain.NewItem(2, "Combo A", 3)
	child.ParentID = domain.ParentRef(1)
	require.NoError(t, s.Load([]domain.Item{container, child}))

	assert.True(t, s.IsContainerOnly(1))
	assert.Equal(t, domain.ItemID(2), s.PoolRoot(2))
	assert.Equal(t, []domain.ItemID{1}, s.PoolMembers(1))
}

func TestUpsert_InsertAndReplace(t *testing.T) {
	s := New()

	prev, err := s.Upsert(domain.NewItem(1, "a", 3))
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = s.Upsert(domain.NewItem(1, "a", 8))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 3, prev.CommittedQuantity)

	item, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, 8, item.CommittedQuantity)
}

func TestUpsert_Relinking(t *testing.T) {
	s := syncFamily(t)
	require.NoError(t, s.Load(append(s.Items(), domain.NewItem(10, "other", 4))))

	moved, _ := s.Get(3)
	moved.ParentID = domain.ParentRef(10)
	_, err := s.Upsert(moved)
	require.NoError(t, err)

	assert.Equal(t, []domain.ItemID{2}, s.Children(1))
	assert.Equal(t, []domain.ItemID{3}, s.Children(10))
}

func TestUpsert_RejectsInvalidLinks(t *testing.T) {
	s := syncFamily(t)

	testCases := []struct {
		name string
		item domain.Item
	}{
		{"missing parent", domain.Item{ID: 20, ParentID: domain.ParentRef(99), StockEnabled: true}},
		{"parent is a child", domain.Item{ID: 20, ParentID: domain.ParentRef(2), StockEnabled: true}},
		{"parent gets a parent", domain.Item{ID: 1, ParentID: domain.ParentRef(3), StockEnabled: true}},
		{"self parent", domain.Item{ID: 20, ParentID: domain.ParentRef(20), StockEnabled: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Upsert(tc.item)
			assert.True(t, errors.Is(err, domain.ErrInvalidParent))
		})
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []domain.ItemID{2, 3}, s.Children(1))
}

func TestDelete_DetachesChildren(t *testing.T) {
	s := syncFamily(t)

	removed, detached, err := s.Delete(1)
	require.NoError(t, err)

	assert.Equal(t, domain.ItemID(1), removed.ID)
	assert.Equal(t, []domain.ItemID{2, 3}, detached)
	child, _ := s.Get(2)
	assert.False(t, child.HasParent())
	assert.False(t, s.HasChildren(1))
	assert.Equal(t, domain.ItemID(2), s.PoolRoot(2))
}

func TestDelete_Unknown(t *testing.T) {
	_, _, err := New().Delete(5)

	assert.True(t, errors.Is(err, domain.ErrUnknownItem))
}

func TestGetReturnsCopy(t *testing.T) {
	s := syncFamily(t)
	item, _ := s.Get(2)
	*item.ParentID = 77

	again, _ := s.Get(2)
	assert.Equal(t, domain.ItemID(1), *again.ParentID)
}
