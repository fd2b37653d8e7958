package broadcast

import (
	"context"
	"sync"
	"time"

	"reservation-service/internal/clock"
	"reservation-service/internal/domain"

	"go.uber.org/zap"
)

// Source is the read side of the ledger the gateway needs.
type Source interface {
	Affected(ids []domain.ItemID) []domain.ItemID
	Availability(ids []domain.ItemID) domain.AvailabilityMap
	FullAvailability() domain.AvailabilityMap
}

// Gateway coalesces ledger change notifications and pushes availability to
// connected sessions and sinks. Notifications only touch a dirty set; the
// snapshot is read from the ledger when the window closes, so a burst of
// changes costs one broadcast.
type Gateway struct {
	source Source
	hub    *Hub
	sinks  []Sink
	delay  time.Duration
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.Mutex
	dirty  map[domain.ItemID]struct{}
	full   bool
	resync bool
	wake   chan struct{}

	flushMu  sync.Mutex
	sequence uint64
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithDelay sets the coalescing window.
func WithDelay(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithSinks adds snapshot sinks.
func WithSinks(sinks ...Sink) GatewayOption {
	return func(g *Gateway) {
		for _, s := range sinks {
			if s != nil {
				g.sinks = append(g.sinks, s)
			}
		}
	}
}

// WithGatewayClock overrides the clock stamping snapshots.
func WithGatewayClock(c clock.Clock) GatewayOption {
	return func(g *Gateway) {
		if c != nil {
			g.clock = c
		}
	}
}

// NewGateway creates a gateway reading from source and delivering to hub.
func NewGateway(source Source, hub *Hub, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		source: source,
		hub:    hub,
		delay:  100 * time.Millisecond,
		clock:  clock.NewSystem(),
		logger: logger,
		dirty:  make(map[domain.ItemID]struct{}),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MarkDirty records changed items. It never blocks.
func (g *Gateway) MarkDirty(ids []domain.ItemID) {
	g.mu.Lock()
	for _, id := range ids {
		g.dirty[id] = struct{}{}
	}
	g.mu.Unlock()
	g.signal()
}

// MarkFull schedules a whole-catalog snapshot for everyone.
func (g *Gateway) MarkFull() {
	g.mu.Lock()
	g.full = true
	g.mu.Unlock()
	g.signal()
}

// Connect registers a session. Its first availability event is a full
// snapshot, sent with the next flush.
func (g *Gateway) Connect(sessionID string) *Subscriber {
	sub := g.hub.Register(sessionID)
	g.mu.Lock()
	g.resync = true
	g.mu.Unlock()
	g.signal()
	g.logger.Info("Session connected", zap.String("session_id", sessionID))
	return sub
}

// Disconnect drops sub from the hub. It reports whether sub was the
// session's live connection; a replaced connection reports false.
func (g *Gateway) Disconnect(sub *Subscriber) bool {
	current := g.hub.Unregister(sub)
	if current {
		g.logger.Info("Session disconnected", zap.String("session_id", sub.SessionID))
	}
	return current
}

// Acknowledge sends a reservation result to the session that asked.
func (g *Gateway) Acknowledge(sessionID string, result ReservationResult) bool {
	return g.hub.Send(sessionID, Message{Event: EventReservationResult, Data: result})
}

// IsConnected reports whether the session has a live connection.
func (g *Gateway) IsConnected(sessionID string) bool {
	return g.hub.IsConnected(sessionID)
}

// Connected returns the number of live session connections.
func (g *Gateway) Connected() int {
	return g.hub.Count()
}

// Run flushes after each coalescing window until ctx is done. Pending
// resyncs of lagging sessions are retried every second.
func (g *Gateway) Run(ctx context.Context) error {
	retry := time.NewTicker(time.Second)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.wake:
		case <-retry.C:
			if !g.resyncPending() {
				continue
			}
		}

		if g.delay > 0 {
			timer := time.NewTimer(g.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
		g.Flush(ctx)
	}
}

// Flush delivers whatever is pending now.
func (g *Gateway) Flush(ctx context.Context) {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	g.mu.Lock()
	dirty := g.dirty
	full := g.full
	resync := g.resync
	g.dirty = make(map[domain.ItemID]struct{})
	g.full = false
	g.resync = false
	g.mu.Unlock()

	if len(dirty) == 0 && !full && !resync {
		return
	}

	// Ledger reads happen here, before the hub lock is taken in Deliver.
	var fullSnap, changed *AvailabilitySnapshot
	if full || resync || g.hub.ResyncPending() {
		s := g.snapshot(g.source.FullAvailability(), true)
		fullSnap = &s
	}
	switch {
	case full:
		changed = fullSnap
	case len(dirty) > 0:
		ids := make([]domain.ItemID, 0, len(dirty))
		for id := range dirty {
			ids = append(ids, id)
		}
		s := g.snapshot(g.source.Availability(g.source.Affected(ids)), false)
		changed = &s
	}

	if pending := g.hub.Deliver(changed, fullSnap); pending {
		g.mu.Lock()
		g.resync = true
		g.mu.Unlock()
	}

	if changed != nil {
		g.publish(ctx, *changed)
	}
}

func (g *Gateway) snapshot(items domain.AvailabilityMap, full bool) AvailabilitySnapshot {
	g.sequence++
	return AvailabilitySnapshot{
		Sequence:    g.sequence,
		Full:        full,
		Items:       items,
		GeneratedAt: g.clock.Now(),
	}
}

func (g *Gateway) publish(ctx context.Context, snap AvailabilitySnapshot) {
	for _, sink := range g.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			g.logger.Warn("Availability sink failed",
				zap.String("sink", sink.Name()),
				zap.Uint64("sequence", snap.Sequence),
				zap.Error(err),
			)
		}
	}
}

func (g *Gateway) resyncPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resync
}

func (g *Gateway) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}
