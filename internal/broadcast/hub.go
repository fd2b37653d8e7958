package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber is one connected session's outbox.
type Subscriber struct {
	SessionID string
	out       chan Message
	done      chan struct{}
	closeOnce sync.Once
	// resync asks for a full snapshot on the next delivery, after connecting
	// or after a dropped message.
	resync bool
}

// Messages is drained by the transport.
func (s *Subscriber) Messages() <-chan Message {
	return s.out
}

// Done is closed when the subscriber is replaced or the hub shuts down.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub tracks connected sessions. Sends never block: a full outbox drops the
// message and the session is resynced with a full snapshot later.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Subscriber
	buffer   int
	logger   *zap.Logger
}

// NewHub creates a hub whose outboxes hold buffer messages.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		sessions: make(map[string]*Subscriber),
		buffer:   buffer,
		logger:   logger,
	}
}

// Register connects a session. A second connection for the same session
// replaces the first, whose Done channel is closed.
func (h *Hub) Register(sessionID string) *Subscriber {
	sub := &Subscriber{
		SessionID: sessionID,
		out:       make(chan Message, h.buffer),
		done:      make(chan struct{}),
		resync:    true,
	}

	h.mu.Lock()
	prev := h.sessions[sessionID]
	h.sessions[sessionID] = sub
	h.mu.Unlock()

	if prev != nil {
		prev.close()
		h.logger.Info("Session connection replaced", zap.String("session_id", sessionID))
	}
	return sub
}

// Unregister removes sub if it is still the session's connection and
// reports whether it was.
func (h *Hub) Unregister(sub *Subscriber) bool {
	h.mu.Lock()
	current, ok := h.sessions[sub.SessionID]
	if ok && current == sub {
		delete(h.sessions, sub.SessionID)
	}
	h.mu.Unlock()

	sub.close()
	return ok && current == sub
}

// IsConnected reports whether the session has a live connection.
func (h *Hub) IsConnected(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[sessionID]
	return ok
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Send queues msg for one session. It reports false when the session is not
// connected or its outbox is full.
func (h *Hub) Send(sessionID string, msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.sessions[sessionID]
	if !ok {
		return false
	}
	return h.offerLocked(sub, msg)
}

// ResyncPending reports whether any subscriber is waiting for a full
// snapshot.
func (h *Hub) ResyncPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.sessions {
		if sub.resync {
			return true
		}
	}
	return false
}

// Deliver pushes a snapshot round. Subscribers waiting for a resync get full
// when there is one; everyone else gets partial, when there is one. Both
// snapshots are built by the caller, so nothing outside the hub is read under
// its lock. It reports whether any subscriber still needs a resync.
func (h *Hub) Deliver(partial, full *AvailabilitySnapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := false
	for _, sub := range h.sessions {
		var snap *AvailabilitySnapshot
		switch {
		case sub.resync && full != nil:
			snap = full
		case sub.resync:
			// registered after the caller built its round
			pending = true
			continue
		case partial != nil:
			snap = partial
		default:
			continue
		}
		if h.offerLocked(sub, Message{Event: EventAvailabilitySnapshot, Data: *snap}) {
			if snap.Full {
				sub.resync = false
			}
		}
		pending = pending || sub.resync
	}
	return pending
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.sessions
	h.sessions = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (h *Hub) offerLocked(sub *Subscriber, msg Message) bool {
	select {
	case sub.out <- msg:
		return true
	default:
		sub.resync = true
		h.logger.Warn("Session outbox full, message dropped",
			zap.String("session_id", sub.SessionID),
			zap.String("event", msg.Event),
		)
		return false
	}
}
