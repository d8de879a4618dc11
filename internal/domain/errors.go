package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("not authorized")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidMutation        = errors.New("immutable field cannot change")
	ErrInvalidSignature       = errors.New("invalid payment signature")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrDuplicateVendorProfile = errors.New("user already has a vendor profile")
)

// ValidationError carries field-level messages for 400 responses.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
