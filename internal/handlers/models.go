package handlers

import (
	"time"

	"reservation-service/internal/domain"
)

// ErrorResponse represents an error response
// @Description Error body rendered by the error middleware
type ErrorResponse struct {
	// Error code
	// @Example "InsufficientStock"
	Error string `json:"error" example:"UnknownItem"`

	// Human-readable message
	Message string `json:"message" example:"unknown item"`

	// Item id, field name or quantities involved
	Details string `json:"details" example:"Item ID: 42"`
}

// LineRequest is one item and quantity of a reserve or release request.
type LineRequest struct {
	// Catalog item id
	ItemID int64 `json:"item_id" binding:"required,gt=0" example:"101"`

	// Units to reserve or release (must be > 0)
	Quantity int `json:"quantity" binding:"required,gt=0" example:"2"`
}

// ReserveRequest represents the request body for reserving stock
// @Description All lines succeed together or none does
type ReserveRequest struct {
	Items []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// ReleaseRequest represents the request body for releasing stock
type ReleaseRequest struct {
	Items []LineRequest `json:"items" binding:"required,min=1,dive"`
}

func toLines(items []LineRequest) []domain.ItemQuantity {
	lines := make([]domain.ItemQuantity, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.ItemQuantity{ItemID: domain.ItemID(it.ItemID), Quantity: it.Quantity})
	}
	return lines
}

// SessionResponse is returned when a session is opened
type SessionResponse struct {
	// Session identifier (UUID)
	SessionID string `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`

	// Server-sent events endpoint for this session
	StreamURL string `json:"stream_url" example:"/api/v1/sessions/550e8400-e29b-41d4-a716-446655440000/stream"`
}

// HoldsResponse lists a session's holds
type HoldsResponse struct {
	SessionID string        `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Holds     []domain.Hold `json:"holds"`
}

// ItemAvailabilityResponse is the availability of one item
type ItemAvailabilityResponse struct {
	ItemID domain.ItemID `json:"item_id" example:"101"`

	// At least one unit can be promised
	Available bool `json:"available" example:"true"`

	// Units left to promise, or "unbounded" for items without stock control
	Quantity domain.Availability `json:"quantity" swaggertype:"string" example:"7"`
}

// AvailabilityResponse is the availability of the whole catalog
type AvailabilityResponse struct {
	Items       domain.AvailabilityMap `json:"items" swaggertype:"object"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// UpsertItemRequest represents the request body for creating or replacing a catalog item
// @Description The item id comes from the path
type UpsertItemRequest struct {
	// Product name
	Name string `json:"name" example:"Classic Burger"`

	// Stock is tracked for this item; false makes it unlimited
	StockEnabled bool `json:"stock_enabled" example:"true"`

	// Units on hand (must be >= 0)
	CommittedQuantity int `json:"committed_quantity" binding:"min=0" example:"20"`

	// Parent item id; parents cannot have parents
	ParentID *int64 `json:"parent_id,omitempty" example:"100"`

	// Children of this item draw from its stock
	StockSyncEnabled bool `json:"stock_sync_enabled" example:"false"`
}

// CatalogItemResponse is a catalog item as stored
type CatalogItemResponse struct {
	ID                domain.ItemID  `json:"id" example:"101"`
	Name              string         `json:"name" example:"Classic Burger"`
	StockEnabled      bool           `json:"stock_enabled" example:"true"`
	CommittedQuantity int            `json:"committed_quantity" example:"20"`
	ParentID          *domain.ItemID `json:"parent_id,omitempty" example:"100"`
	StockSyncEnabled  bool           `json:"stock_sync_enabled" example:"false"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func toCatalogItemResponse(item domain.Item) CatalogItemResponse {
	return CatalogItemResponse{
		ID:                item.ID,
		Name:              item.Name,
		StockEnabled:      item.StockEnabled,
		CommittedQuantity: item.CommittedQuantity,
		ParentID:          item.ParentID,
		StockSyncEnabled:  item.StockSyncEnabled,
		UpdatedAt:         item.UpdatedAt,
	}
}

// UpsertItemResponse is returned after a catalog upsert
type UpsertItemResponse struct {
	Item    CatalogItemResponse `json:"item"`
	Created bool                `json:"created" example:"false"`

	// Items whose availability may have changed
	Affected []domain.ItemID `json:"affected"`

	// Pools now holding more than they have
	Inconsistencies []domain.CatalogInconsistency `json:"inconsistencies,omitempty"`

	// Holds released because the edit made their item container-only
	DroppedHolds int `json:"dropped_holds,omitempty" example:"0"`
}

// DeleteItemResponse is returned after a catalog delete
type DeleteItemResponse struct {
	ItemID       domain.ItemID   `json:"item_id" example:"101"`
	DroppedHolds int             `json:"dropped_holds" example:"2"`
	Detached     []domain.ItemID `json:"detached"`
}

// CatalogItemsResponse lists the catalog
type CatalogItemsResponse struct {
	Items []CatalogItemResponse `json:"items"`
}

// InconsistenciesResponse lists pools whose holds exceed committed stock
type InconsistenciesResponse struct {
	Inconsistencies []domain.CatalogInconsistency `json:"inconsistencies"`
}

// ReleaseResponse is returned after a release or session end
type ReleaseResponse struct {
	SessionID string        `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Holds     []domain.Hold `json:"holds"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status            string `json:"status" example:"ok"`
	CatalogItems      int    `json:"catalog_items" example:"42"`
	ConnectedSessions int    `json:"connected_sessions" example:"3"`
	Store             string `json:"store" example:"ok"`
}
