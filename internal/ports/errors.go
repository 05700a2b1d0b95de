package ports

import (
	"errors"

	"cryptoScalper/internal/domain"
)

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with one of the category errors
// below plus, where known, a more specific error.
var (
	// Categories
	ErrInvalidInput       = errors.New("invalid sizing or pricing input")
	ErrTransportFailure   = errors.New("exchange transport failure")
	ErrPartialBracket     = errors.New("entry filled but bracket orders incomplete")
	ErrPersistenceFailure = errors.New("ledger or audit write failed")
	ErrModelFailure       = errors.New("model training or inference failed")

	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrInsufficientData   = errors.New("not enough data points")

	// Exchange Specific Errors
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found on the exchange")
	ErrPositionNotFound     = errors.New("position not found on the exchange")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")

	// Database Specific Errors
	ErrTradeClosed = domain.ErrTradeClosed
	ErrQueryFailed = errors.New("database query failed")
)
