package domain

import "fmt"

// Domain errors
var (
	ErrInsufficientStock = &DomainError{Code: "InsufficientStock", Message: "insufficient stock available"}
	ErrUnknownItem       = &DomainError{Code: "UnknownItem", Message: "unknown item"}
	ErrNotSellable       = &DomainError{Code: "NotSellable", Message: "item is a container and cannot be reserved directly"}
	ErrInvalidParent     = &DomainError{Code: "InvalidParent", Message: "invalid parent reference"}
	ErrInvalidQuantity   = &DomainError{Code: "InvalidQuantity", Message: "invalid quantity"}
	ErrInvalidItem       = &DomainError{Code: "InvalidItem", Message: "invalid item"}
	ErrEmptyRequest      = &DomainError{Code: "EmptyRequest", Message: "request has no items"}
	ErrInvalidSession    = &DomainError{Code: "InvalidSession", Message: "session id is required"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// InsufficientStockError is the expected failure of a reservation. It names the
// first item that could not be covered and what is really left of it.
type InsufficientStockError struct {
	ItemID    ItemID
	Requested int
	Available Availability
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %s", e.ItemID, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// UnknownItemError names the item id that is not in the catalog.
type UnknownItemError struct {
	ItemID ItemID
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item %d", e.ItemID)
}

func (e *UnknownItemError) Is(target error) bool {
	return target == ErrUnknownItem
}

// CatalogInconsistency records a pool whose committed quantity dropped below what
// sessions already hold. Holds are honored; new reservations see zero.
type CatalogInconsistency struct {
	PoolID    ItemID `json:"pool_id"`
	Committed int    `json:"committed"`
	Held      int    `json:"held"`
}

func (c CatalogInconsistency) String() string {
	return fmt.Sprintf("pool %d committed %d below held %d", c.PoolID, c.Committed, c.Held)
}
