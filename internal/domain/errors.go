package domain

import (
	"math"
	"strconv"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "invalid input provided")
	ErrCounterNotFound     = NewDomainError("COUNTER_NOT_FOUND", "counter does not exist")
	ErrStoreUnavailable    = NewDomainError("STORE_UNAVAILABLE", "persistence store unavailable")
	ErrTransactionConflict = NewDomainError("TRANSACTION_CONFLICT", "transaction conflicted with a concurrent writer")
	ErrNumberUnavailable   = NewDomainError("NUMBER_UNAVAILABLE", "could not generate number, try again")
)

// SafeNumber coerces loosely typed values from imported or legacy records to a
// non-negative finite float. Anything unusable becomes 0.
func SafeNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, ",", "")), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
