package broadcast

import (
	"errors"
	"time"

	"reservation-service/internal/domain"
)

// Stream event names.
const (
	EventAvailabilitySnapshot = "availability_snapshot"
	EventReservationResult    = "reservation_result"
)

// Message is one event queued for a session.
type Message struct {
	Event string
	Data  interface{}
}

// AvailabilitySnapshot carries ATP for a set of items. Full is set when the
// snapshot covers the whole catalog and replaces the client's view.
type AvailabilitySnapshot struct {
	Sequence    uint64                 `json:"sequence"`
	Full        bool                   `json:"full"`
	Items       domain.AvailabilityMap `json:"items"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// ReservationResult answers one reservation request.
type ReservationResult struct {
	RequestID     string               `json:"request_id"`
	Success       bool                 `json:"success"`
	FailingItemID *domain.ItemID       `json:"failing_item_id,omitempty"`
	Available     *domain.Availability `json:"available,omitempty"`
	Requested     int                  `json:"requested,omitempty"`
	Holds         []domain.Hold        `json:"holds,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// NewReservationResult builds the result for a reserve call's outcome.
func NewReservationResult(requestID string, holds []domain.Hold, err error) ReservationResult {
	if err == nil {
		return ReservationResult{RequestID: requestID, Success: true, Holds: holds}
	}
	result := ReservationResult{RequestID: requestID, Error: err.Error()}
	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		id := stock.ItemID
		available := stock.Available
		result.FailingItemID = &id
		result.Available = &available
		result.Requested = stock.Requested
	}
	return result
}
