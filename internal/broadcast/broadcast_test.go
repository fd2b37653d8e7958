package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservation-service/internal/domain"
	"reservation-service/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string { return "mock" }

func (m *MockSink) Publish(ctx context.Context, snap AvailabilitySnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func syncPoolLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	parent := domain.NewItem(10, "parent", 5)
	parent.StockSyncEnabled = true
	c1 := domain.NewItem(11, "c1", 0)
	c1.ParentID = domain.ParentRef(10)
	c2 := domain.NewItem(12, "c2", 0)
	c2.ParentID = domain.ParentRef(10)

	l := ledger.New(zap.NewNop())
	require.NoError(t, l.LoadCatalog([]domain.Item{parent, c1, c2, domain.NewItem(1, "A", 3)}))
	return l
}

func newTestGateway(t *testing.T, buffer int, opts ...GatewayOption) (*Gateway, *ledger.Ledger) {
	t.Helper()
	l := syncPoolLedger(t)
	g := NewGateway(l, NewHub(buffer, zap.NewNop()), zap.NewNop(), append([]GatewayOption{WithDelay(0)}, opts...)...)
	l.SetNotifier(g)
	return g, l
}

func next(t *testing.T, sub *Subscriber) Message {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		return msg
	default:
		t.Fatal("expected a queued message")
		return Message{}
	}
}

func snapshotOf(t *testing.T, msg Message) AvailabilitySnapshot {
	t.Helper()
	require.Equal(t, EventAvailabilitySnapshot, msg.Event)
	snap, ok := msg.Data.(AvailabilitySnapshot)
	require.True(t, ok)
	return snap
}

func assertEmpty(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message %s", msg.Event)
	default:
	}
}

func TestConnect_FirstEventIsFullSnapshot(t *testing.T) {
	g, _ := newTestGateway(t, 8)

	sub := g.Connect("s1")
	g.Flush(context.Background())

	snap := snapshotOf(t, next(t, sub))
	assert.True(t, snap.Full)
	assert.Len(t, snap.Items, 4)
	assert.Equal(t, domain.Limited(5), snap.Items[11])
	assertEmpty(t, sub)
}

func TestFlush_CoalescesAndExpandsSyncPool(t *testing.T) {
	g, l := newTestGateway(t, 8)
	sub := g.Connect("s1")
	g.Flush(context.Background())
	next(t, sub)

	_, err := l.Reserve("buyer", []domain.ItemQuantity{{ItemID: 11, Quantity: 1}})
	require.NoError(t, err)
	_, err = l.Reserve("buyer", []domain.ItemQuantity{{ItemID: 11, Quantity: 2}})
	require.NoError(t, err)
	g.Flush(context.Background())

	snap := snapshotOf(t, next(t, sub))
	assert.False(t, snap.Full)
	assert.Equal(t, domain.AvailabilityMap{
		10: domain.Limited(2),
		11: domain.Limited(2),
		12: domain.Limited(2),
	}, snap.Items)
	assertEmpty(t, sub)
}

func TestFlush_NothingPending(t *testing.T) {
	g, _ := newTestGateway(t, 8)
	sub := g.Connect("s1")
	g.Flush(context.Background())
	next(t, sub)

	g.Flush(context.Background())

	assertEmpty(t, sub)
}

func TestMarkFull_ReachesEverySession(t *testing.T) {
	g, l := newTestGateway(t, 8)
	a := g.Connect("a")
	b := g.Connect("b")
	g.Flush(context.Background())
	next(t, a)
	next(t, b)

	_, err := l.UpsertItem(domain.NewItem(1, "A", 9))
	require.NoError(t, err)
	g.Flush(context.Background())

	for _, sub := range []*Subscriber{a, b} {
		snap := snapshotOf(t, next(t, sub))
		assert.True(t, snap.Full)
		assert.Equal(t, domain.Limited(9), snap.Items[1])
	}
}

func TestSequenceIncreases(t *testing.T) {
	g, l := newTestGateway(t, 8)
	sub := g.Connect("s1")
	g.Flush(context.Background())
	first := snapshotOf(t, next(t, sub))

	_, err := l.Reserve("buyer", []domain.ItemQuantity{{ItemID: 1, Quantity: 1}})
	require.NoError(t, err)
	g.Flush(context.Background())
	second := snapshotOf(t, next(t, sub))

	assert.Greater(t, second.Sequence, first.Sequence)
}

func TestSlowSessionIsResyncedWithFullSnapshot(t *testing.T) {
	g, l := newTestGateway(t, 1)
	sub := g.Connect("slow")
	g.Flush(context.Background())

	// outbox holds the initial snapshot; this one is dropped
	_, err := l.Reserve("buyer", []domain.ItemQuantity{{ItemID: 1, Quantity: 1}})
	require.NoError(t, err)
	g.Flush(context.Background())

	assert.True(t, snapshotOf(t, next(t, sub)).Full)
	assertEmpty(t, sub)
	assert.True(t, g.resyncPending())

	g.Flush(context.Background())

	snap := snapshotOf(t, next(t, sub))
	assert.True(t, snap.Full)
	assert.Equal(t, domain.Limited(2), snap.Items[1])
	assert.False(t, g.resyncPending())
}

func TestHub_DeliverWithoutFullKeepsResyncPending(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	late := hub.Register("late")
	partial := &AvailabilitySnapshot{Sequence: 7, Items: domain.AvailabilityMap{1: domain.Limited(1)}}

	assert.True(t, hub.ResyncPending())
	assert.True(t, hub.Deliver(partial, nil))
	assertEmpty(t, late)

	full := &AvailabilitySnapshot{Sequence: 8, Full: true, Items: domain.AvailabilityMap{1: domain.Limited(1)}}
	assert.False(t, hub.Deliver(nil, full))
	assert.Equal(t, uint64(8), snapshotOf(t, next(t, late)).Sequence)
	assert.False(t, hub.ResyncPending())
}

func TestAcknowledge(t *testing.T) {
	g, _ := newTestGateway(t, 8)
	sub := g.Connect("s1")

	ok := g.Acknowledge("s1", ReservationResult{RequestID: "r1", Success: true})
	assert.True(t, ok)
	msg := next(t, sub)
	assert.Equal(t, EventReservationResult, msg.Event)
	assert.Equal(t, "r1", msg.Data.(ReservationResult).RequestID)

	assert.False(t, g.Acknowledge("nobody", ReservationResult{RequestID: "r2"}))
}

func TestHub_ReplacedConnection(t *testing.T) {
	hub := NewHub(4, zap.NewNop())

	first := hub.Register("s1")
	second := hub.Register("s1")

	select {
	case <-first.Done():
	default:
		t.Fatal("replaced subscriber should be closed")
	}
	assert.False(t, hub.Unregister(first))
	assert.True(t, hub.IsConnected("s1"))
	assert.True(t, hub.Unregister(second))
	assert.False(t, hub.IsConnected("s1"))
	assert.Equal(t, 0, hub.Count())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Register("s1")

	hub.Close()

	<-sub.Done()
	assert.False(t, hub.IsConnected("s1"))
}

func TestSinksReceiveChangedSnapshots(t *testing.T) {
	good := new(MockSink)
	good.On("Publish", mock.Anything, mock.MatchedBy(func(s AvailabilitySnapshot) bool {
		return !s.Full && s.Items[1] == domain.Limited(2)
	})).Return(nil).Once()
	bad := new(MockSink)
	bad.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	g, l := newTestGateway(t, 8, WithSinks(good, bad))

	_, err := l.Reserve("buyer", []domain.ItemQuantity{{ItemID: 1, Quantity: 1}})
	require.NoError(t, err)
	g.Flush(context.Background())

	good.AssertExpectations(t)
	bad.AssertExpectations(t)
}

func TestSinksSkipResyncOnlyRounds(t *testing.T) {
	sink := new(MockSink)
	g, _ := newTestGateway(t, 8, WithSinks(sink))

	g.Connect("s1")
	g.Flush(context.Background())

	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRun_FlushesAfterDelay(t *testing.T) {
	l := syncPoolLedger(t)
	g := NewGateway(l, NewHub(8, zap.NewNop()), zap.NewNop(), WithDelay(10*time.Millisecond))
	l.SetNotifier(g)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	sub := g.Connect("s1")
	select {
	case msg := <-sub.Messages():
		assert.True(t, snapshotOf(t, msg).Full)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestNewReservationResult(t *testing.T) {
	ok := NewReservationResult("r1", []domain.Hold{{ItemID: 1, Quantity: 2}}, nil)
	assert.True(t, ok.Success)
	assert.Nil(t, ok.FailingItemID)

	failed := NewReservationResult("r2", nil, &domain.InsufficientStockError{ItemID: 3, Requested: 4, Available: domain.Limited(1)})
	assert.False(t, failed.Success)
	require.NotNil(t, failed.FailingItemID)
	assert.Equal(t, domain.ItemID(3), *failed.FailingItemID)
	assert.Equal(t, domain.Limited(1), *failed.Available)
	assert.Equal(t, 4, failed.Requested)

	other := NewReservationResult("r3", nil, domain.ErrNotSellable)
	assert.False(t, other.Success)
	assert.Nil(t, other.FailingItemID)
	assert.NotEmpty(t, other.Error)
}
