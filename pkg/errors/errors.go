package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"reservation-service/internal/domain"
)

// StandardError is the JSON error body of every failed request.
type StandardError struct {
	Code    string `json:"error"`   // e.g. "InvalidRequest", "InsufficientStock"
	Message string `json:"message"` // human-readable
	Details string `json:"details"` // field name, item id, quantities
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus maps the code to a status.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "ItemNotFound", "UnknownItem", "SessionNotFound":
		return http.StatusNotFound
	case "InsufficientStock", "NotSellable", "Conflict":
		return http.StatusConflict
	case "InvalidParent":
		return http.StatusUnprocessableEntity
	case "BrokerConnectionError", "ServiceUnavailable":
		return http.StatusServiceUnavailable
	case "SerializationError", "DatabaseError", "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError("ValidationError", message, fmt.Sprintf("Field: %s", field))
}

func NewUnauthorized(message, details string) *StandardError {
	return NewStandardError("Unauthorized", message, details)
}

func NewItemNotFound(itemID domain.ItemID) *StandardError {
	return NewStandardError("ItemNotFound", "item not found", fmt.Sprintf("Item ID: %d", itemID))
}

func NewSessionNotFound(sessionID string) *StandardError {
	return NewStandardError("SessionNotFound", "session not connected", fmt.Sprintf("Session ID: %s", sessionID))
}

func NewInsufficientStock(itemID domain.ItemID, available domain.Availability, requested int) *StandardError {
	return NewStandardError("InsufficientStock", "insufficient stock available",
		fmt.Sprintf("Item ID: %d, Available: %s, Requested: %d", itemID, available, requested))
}

func NewSerializationError(err error) *StandardError {
	return NewStandardError("SerializationError", "failed to serialize data", err.Error())
}

func NewDatabaseError(operation string, err error) *StandardError {
	return NewStandardError("DatabaseError", fmt.Sprintf("database operation failed: %s", operation), err.Error())
}

func NewBrokerConnectionError(err error) *StandardError {
	return NewStandardError("BrokerConnectionError", "failed to connect to event broker", err.Error())
}

func NewServiceUnavailable(message string) *StandardError {
	return NewStandardError("ServiceUnavailable", message, "")
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}

// FromDomain translates ledger and catalog errors into their HTTP shape.
// Unrecognized errors become InternalError.
func FromDomain(err error) *StandardError {
	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}

	var stock *domain.InsufficientStockError
	if stderrors.As(err, &stock) {
		return NewInsufficientStock(stock.ItemID, stock.Available, stock.Requested)
	}
	var unknown *domain.UnknownItemError
	if stderrors.As(err, &unknown) {
		return NewStandardError("UnknownItem", "unknown item", fmt.Sprintf("Item ID: %d", unknown.ItemID))
	}

	switch {
	case stderrors.Is(err, domain.ErrNotSellable):
		return NewStandardError("NotSellable", err.Error(), "")
	case stderrors.Is(err, domain.ErrInvalidParent):
		return NewStandardError("InvalidParent", err.Error(), "")
	case stderrors.Is(err, domain.ErrInvalidQuantity):
		return NewValidationError(err.Error(), "quantity")
	case stderrors.Is(err, domain.ErrInvalidItem):
		return NewValidationError(err.Error(), "id")
	case stderrors.Is(err, domain.ErrEmptyRequest):
		return NewValidationError(err.Error(), "items")
	case stderrors.Is(err, domain.ErrInvalidSession):
		return NewInvalidRequest(err.Error(), "Param: id")
	case stderrors.Is(err, domain.ErrUnknownItem):
		return NewStandardError("UnknownItem", err.Error(), "")
	case stderrors.Is(err, domain.ErrInsufficientStock):
		return NewStandardError("InsufficientStock", err.Error(), "")
	}
	return NewInternalError("internal server error", err)
}
