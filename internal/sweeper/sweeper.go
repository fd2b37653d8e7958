package sweeper

import (
	"context"
	"time"

	"reservation-service/internal/clock"
	"reservation-service/internal/domain"
	"reservation-service/internal/events"
	"reservation-service/internal/ledger"

	"go.uber.org/zap"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// ConnectedFunc reports whether a session currently has a live stream.
type ConnectedFunc func(sessionID string) bool

// Sweeper returns idle stock from sessions that went away without releasing it.
type Sweeper struct {
	ledger    *ledger.Ledger
	connected ConnectedFunc
	publisher events.EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
	ttl       time.Duration
	interval  time.Duration
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the clock stamped on published events.
func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

// New creates a sweeper. Holds idle for longer than ttl whose session is not
// connected are released every interval.
func New(l *ledger.Ledger, connected ConnectedFunc, publisher events.EventPublisher, ttl, interval time.Duration, logger *zap.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		ledger:    l,
		connected: connected,
		publisher: publisher,
		clock:     clock.NewSystem(),
		logger:    logger,
		ttl:       ttl,
		interval:  interval,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Expiry sweeper starting",
		zap.Duration("interval", s.interval),
		zap.Duration("hold_ttl", s.ttl),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper shutting down")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass and returns the holds it released.
func (s *Sweeper) Sweep(ctx context.Context) []domain.Hold {
	expired := s.ledger.ExpireIdle(s.ttl, s.connected)
	if len(expired) == 0 {
		return nil
	}

	s.logger.Info("Expired idle holds",
		zap.Int("holds", len(expired)),
	)
	s.publish(ctx, events.HoldsExpiredEvent{
		Holds:      expired,
		OccurredAt: s.clock.Now(),
	})
	return expired
}

// Disconnect releases everything the session holds. It is called when a
// session ends explicitly or its stream closes for good.
func (s *Sweeper) Disconnect(ctx context.Context, sessionID string) []domain.Hold {
	released := s.ledger.ReleaseAll(sessionID)
	if len(released) == 0 {
		return nil
	}

	s.logger.Info("Released session holds",
		zap.String("session_id", sessionID),
		zap.Int("holds", len(released)),
	)
	s.publish(ctx, events.StockReleasedEvent{
		SessionID:  sessionID,
		Reason:     events.ReasonDisconnect,
		Items:      events.HoldLines(released),
		OccurredAt: s.clock.Now(),
	})
	return released
}

func (s *Sweeper) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event-type", events.EventType(event)),
			zap.Error(err),
		)
	}
}
