package api

import (
	"errors"
	"net/http"

	"github.com/tradesim/orderexec/internal/engine"
	"github.com/tradesim/orderexec/internal/ledger"
	"github.com/tradesim/orderexec/internal/orders"
	"github.com/tradesim/orderexec/internal/store"
)

// ErrorCode identifies an API error category
type ErrorCode string

const (
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrorCodeAccountNotActive  ErrorCode = "ACCOUNT_NOT_ACTIVE"
	ErrorCodeMissingLimitPrice ErrorCode = "MISSING_LIMIT_PRICE"
	ErrorCodeInvalidQuantity   ErrorCode = "INVALID_QUANTITY"
	ErrorCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrorCodeAlreadyExecuted   ErrorCode = "ALREADY_EXECUTED"
	ErrorCodeAlreadyCancelled  ErrorCode = "ALREADY_CANCELLED"
	ErrorCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// MapError maps service errors to an HTTP status and error body. Lookup
// misses become 404s, business rule violations 400s, anything else a 500.
func MapError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Code: string(ErrorCodeNotFound), Message: err.Error()}

	case errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeValidation), Message: err.Error()}

	case errors.Is(err, engine.ErrAccountNotActive):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeAccountNotActive), Message: err.Error()}

	case errors.Is(err, engine.ErrMissingLimitPrice):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeMissingLimitPrice), Message: err.Error()}

	case errors.Is(err, engine.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeInvalidQuantity), Message: err.Error()}

	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeInsufficientFunds), Message: err.Error()}

	case errors.Is(err, orders.ErrAlreadyExecuted):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeAlreadyExecuted), Message: err.Error()}

	case errors.Is(err, orders.ErrAlreadyCancelled):
		return http.StatusBadRequest, ErrorResponse{Code: string(ErrorCodeAlreadyCancelled), Message: err.Error()}

	default:
		return http.StatusInternalServerError, ErrorResponse{Code: string(ErrorCodeInternal), Message: err.Error()}
	}
}
