package ledger

import (
	"sync"
	"time"

	"reservation-service/internal/catalog"
	"reservation-service/internal/clock"
	"reservation-service/internal/domain"
	"reservation-service/internal/resolver"

	"go.uber.org/zap"
)

// Notifier is told about committed changes so availability can be pushed
// out. Implementations must not block and must not call back into the ledger.
type Notifier interface {
	MarkDirty(ids []domain.ItemID)
	MarkFull()
}

type nopNotifier struct{}

func (nopNotifier) MarkDirty([]domain.ItemID) {}
func (nopNotifier) MarkFull()                 {}

// Ledger is the single authority over in-flight holds and the catalog snapshot
// they are checked against. One lock covers both, so no two reservations can
// spend the same last unit and catalog edits never interleave with a batch.
type Ledger struct {
	mu      sync.RWMutex
	catalog *catalog.Snapshot
	// holds by session, then item
	sessions map[string]map[domain.ItemID]*domain.Hold
	// holds by item, then session
	items map[domain.ItemID]map[string]*domain.Hold

	clock    clock.Clock
	notifier Notifier
	logger   *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithNotifier sets who hears about committed changes.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithClock overrides the system clock.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// New creates an empty ledger.
func New(logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		catalog:  catalog.New(),
		sessions: make(map[string]map[domain.ItemID]*domain.Hold),
		items:    make(map[domain.ItemID]map[string]*domain.Hold),
		clock:    clock.NewSystem(),
		notifier: nopNotifier{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetNotifier replaces the notifier. It exists for wiring order at startup,
// where the gateway needs the ledger before the ledger can point at it.
func (l *Ledger) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n == nil {
		n = nopNotifier{}
	}
	l.notifier = n
}

// Reserve places holds for every line or for none. Lines are checked against
// one consistent view of the holds, and lines sharing a sync pool are summed
// before they are compared with the pool's availability.
func (l *Ledger) Reserve(sessionID string, lines []domain.ItemQuantity) ([]domain.Hold, error) {
	if err := validateLines(sessionID, lines); err != nil {
		return nil, err
	}

	l.mu.Lock()
	for _, line := range lines {
		if !l.catalog.Has(line.ItemID) {
			l.mu.Unlock()
			return nil, &domain.UnknownItemError{ItemID: line.ItemID}
		}
		if l.catalog.IsContainerOnly(line.ItemID) {
			l.mu.Unlock()
			return nil, domain.ErrNotSellable
		}
	}

	if err := l.checkLocked(lines); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	now := l.clock.Now()
	changed := make([]domain.ItemID, 0, len(lines))
	for _, line := range lines {
		l.addLocked(sessionID, line.ItemID, line.Quantity, now)
		changed = append(changed, line.ItemID)
	}
	result := l.sessionHoldsLocked(sessionID, changed)
	notifier := l.notifier
	l.mu.Unlock()

	notifier.MarkDirty(changed)
	return result, nil
}

// checkLocked finds the first line that cannot be covered: the lowest item id,
// ties going to the earlier line.
func (l *Ledger) checkLocked(lines []domain.ItemQuantity) error {
	demand := make(map[domain.ItemID]int)
	perItem := make(map[domain.ItemID]int)
	for _, line := range lines {
		demand[l.catalog.PoolRoot(line.ItemID)] += line.Quantity
		perItem[line.ItemID] += line.Quantity
	}

	var failing *domain.InsufficientStockError
	for _, line := range lines {
		root := l.catalog.PoolRoot(line.ItemID)
		available := l.poolAvailableLocked(root)
		if available.Covers(demand[root]) {
			continue
		}
		if failing == nil || line.ItemID < failing.ItemID {
			failing = &domain.InsufficientStockError{
				ItemID:    line.ItemID,
				Requested: perItem[line.ItemID],
				Available: available,
			}
		}
	}
	if failing != nil {
		return failing
	}
	return nil
}

// Release gives back up to the given quantities. Releasing more than is held
// drops the hold; it is not an error.
func (l *Ledger) Release(sessionID string, lines []domain.ItemQuantity) ([]domain.Hold, error) {
	if err := validateLines(sessionID, lines); err != nil {
		return nil, err
	}

	l.mu.Lock()
	for _, line := range lines {
		if !l.catalog.Has(line.ItemID) {
			l.mu.Unlock()
			return nil, &domain.UnknownItemError{ItemID: line.ItemID}
		}
	}

	now := l.clock.Now()
	changed := make([]domain.ItemID, 0, len(lines))
	for _, line := range lines {
		if l.subtractLocked(sessionID, line.ItemID, line.Quantity, now) {
			changed = append(changed, line.ItemID)
		}
	}
	result := l.sessionHoldsLocked(sessionID, changed)
	notifier := l.notifier
	l.mu.Unlock()

	if len(changed) > 0 {
		notifier.MarkDirty(changed)
	}
	return result, nil
}

// ReleaseAll drops every hold owned by the session and returns the released holds.
func (l *Ledger) ReleaseAll(sessionID string) []domain.Hold {
	l.mu.Lock()
	owned := l.sessions[sessionID]
	released := make([]domain.Hold, 0, len(owned))
	changed := make([]domain.ItemID, 0, len(owned))
	for id, hold := range owned {
		released = append(released, *hold)
		changed = append(changed, id)
		l.removeLocked(sessionID, id)
	}
	notifier := l.notifier
	l.mu.Unlock()

	if len(changed) > 0 {
		notifier.MarkDirty(domain.SortIDs(changed))
	}
	return released
}

// ExpireIdle releases every hold untouched for longer than ttl whose session
// is not connected. connected is called without the ledger lock held, so it
// may take locks of its own.
func (l *Ledger) ExpireIdle(ttl time.Duration, connected func(sessionID string) bool) []domain.Hold {
	if connected == nil {
		connected = func(string) bool { return false }
	}

	l.mu.RLock()
	now := l.clock.Now()
	var candidates []string
	for sessionID, owned := range l.sessions {
		for _, hold := range owned {
			if hold.Idle(now, ttl) {
				candidates = append(candidates, sessionID)
				break
			}
		}
	}
	l.mu.RUnlock()

	idle := candidates[:0]
	for _, sessionID := range candidates {
		if !connected(sessionID) {
			idle = append(idle, sessionID)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	l.mu.Lock()
	// holds touched since the scan are no longer idle
	now = l.clock.Now()
	var expired []domain.Hold
	for _, sessionID := range idle {
		for id, hold := range l.sessions[sessionID] {
			if hold.Idle(now, ttl) {
				expired = append(expired, *hold)
				l.removeLocked(sessionID, id)
			}
		}
	}
	notifier := l.notifier
	l.mu.Unlock()

	if len(expired) > 0 {
		changed := make([]domain.ItemID, 0, len(expired))
		for _, h := range expired {
			changed = append(changed, h.ItemID)
		}
		notifier.MarkDirty(changed)
	}
	return expired
}

// AvailableQuantity returns the item's available-to-promise quantity. For a
// container it is the sum over its children.
func (l *Ledger) AvailableQuantity(id domain.ItemID) (domain.Availability, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.catalog.Has(id) {
		return domain.Availability{}, &domain.UnknownItemError{ItemID: id}
	}
	return l.availableLocked(id), nil
}

// IsAvailable reports whether at least one unit of the item can be promised.
// A container is available when any child is.
func (l *Ledger) IsAvailable(id domain.ItemID) (bool, error) {
	a, err := l.AvailableQuantity(id)
	if err != nil {
		return false, err
	}
	return a.InStock(), nil
}

// Availability returns availability for the known ids among ids.
func (l *Ledger) Availability(ids []domain.ItemID) domain.AvailabilityMap {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(domain.AvailabilityMap, len(ids))
	for _, id := range ids {
		if l.catalog.Has(id) {
			out[id] = l.availableLocked(id)
		}
	}
	return out
}

// FullAvailability returns availability for every catalog item.
func (l *Ledger) FullAvailability() domain.AvailabilityMap {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(domain.AvailabilityMap, l.catalog.Len())
	for _, id := range l.catalog.IDs() {
		out[id] = l.availableLocked(id)
	}
	return out
}

// Affected expands ids through the synchronization resolver against the
// current catalog metadata.
func (l *Ledger) Affected(ids []domain.ItemID) []domain.ItemID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return resolver.AffectedSet(l.catalog, ids...)
}

// Holds returns a copy of the session's holds ordered by item id.
func (l *Ledger) Holds(sessionID string) []domain.Hold {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]domain.ItemID, 0, len(l.sessions[sessionID]))
	for id := range l.sessions[sessionID] {
		ids = append(ids, id)
	}
	return l.sessionHoldsLocked(sessionID, ids)
}

// Sessions returns the ids of sessions that currently own holds.
func (l *Ledger) Sessions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.sessions))
	for id := range l.sessions {
		out = append(out, id)
	}
	return out
}

// Item returns the catalog entry for id.
func (l *Ledger) Item(id domain.ItemID) (domain.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog.Get(id)
}

// Items returns the whole catalog in id order.
func (l *Ledger) Items() []domain.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog.Items()
}

func (l *Ledger) availableLocked(id domain.ItemID) domain.Availability {
	if l.catalog.IsContainerOnly(id) {
		total := domain.Limited(0)
		for _, child := range l.catalog.Children(id) {
			total = total.Plus(l.poolAvailableLocked(l.catalog.PoolRoot(child)))
		}
		return total
	}
	return l.poolAvailableLocked(l.catalog.PoolRoot(id))
}

func (l *Ledger) poolAvailableLocked(root domain.ItemID) domain.Availability {
	item, ok := l.catalog.Get(root)
	if !ok || !item.StockEnabled {
		return domain.Unbounded()
	}
	// committed below held clamps to zero; existing holds stay
	return domain.Limited(item.CommittedQuantity - l.heldLocked(root))
}

func (l *Ledger) heldLocked(root domain.ItemID) int {
	total := 0
	for _, member := range l.catalog.PoolMembers(root) {
		for _, hold := range l.items[member] {
			total += hold.Quantity
		}
	}
	return total
}

func (l *Ledger) addLocked(sessionID string, id domain.ItemID, qty int, now time.Time) {
	if hold, ok := l.sessions[sessionID][id]; ok {
		hold.Quantity += qty
		hold.LastTouchedAt = now
		return
	}
	hold := &domain.Hold{
		SessionID:     sessionID,
		ItemID:        id,
		Quantity:      qty,
		CreatedAt:     now,
		LastTouchedAt: now,
	}
	if l.sessions[sessionID] == nil {
		l.sessions[sessionID] = make(map[domain.ItemID]*domain.Hold)
	}
	if l.items[id] == nil {
		l.items[id] = make(map[string]*domain.Hold)
	}
	l.sessions[sessionID][id] = hold
	l.items[id][sessionID] = hold
}

// subtractLocked reports whether a hold was changed.
func (l *Ledger) subtractLocked(sessionID string, id domain.ItemID, qty int, now time.Time) bool {
	hold, ok := l.sessions[sessionID][id]
	if !ok {
		return false
	}
	if qty >= hold.Quantity {
		l.removeLocked(sessionID, id)
		return true
	}
	hold.Quantity -= qty
	hold.LastTouchedAt = now
	return true
}

func (l *Ledger) removeLocked(sessionID string, id domain.ItemID) {
	if owned, ok := l.sessions[sessionID]; ok {
		delete(owned, id)
		if len(owned) == 0 {
			delete(l.sessions, sessionID)
		}
	}
	if holders, ok := l.items[id]; ok {
		delete(holders, sessionID)
		if len(holders) == 0 {
			delete(l.items, id)
		}
	}
}

func (l *Ledger) sessionHoldsLocked(sessionID string, ids []domain.ItemID) []domain.Hold {
	seen := make(map[domain.ItemID]struct{}, len(ids))
	out := make([]domain.Hold, 0, len(ids))
	for _, id := range domain.SortIDs(append([]domain.ItemID(nil), ids...)) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if hold, ok := l.sessions[sessionID][id]; ok {
			out = append(out, *hold)
		}
	}
	return out
}

func validateLines(sessionID string, lines []domain.ItemQuantity) error {
	if sessionID == "" {
		return domain.ErrInvalidSession
	}
	if len(lines) == 0 {
		return domain.ErrEmptyRequest
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}
