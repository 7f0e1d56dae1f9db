package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport indicates a network, timeout or HTTP status failure talking to a provider.
	ErrTransport = errors.New("transport error")

	// ErrSchema indicates that a provider response did not have the expected shape.
	ErrSchema = errors.New("schema error")

	// ErrGenerative indicates that a generative completion call failed.
	ErrGenerative = errors.New("generative error")

	// ErrPrecondition indicates that an operation was invoked with insufficient input.
	ErrPrecondition = errors.New("precondition failed")

	// ErrDistill indicates that a search phrase could not be distilled from user input.
	ErrDistill = errors.New("distillation failed")

	// ErrDiscovery indicates that paper discovery failed.
	ErrDiscovery = errors.New("discovery failed")

	// ErrStaleDiscovery indicates that a discovery finished after a newer one was accepted.
	ErrStaleDiscovery = errors.New("stale discovery")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// TransportError wraps a network or status failure.
type TransportError struct {
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("transport error: %v", e.Cause)
}

// Unwrap returns both the sentinel and the cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Cause}
}

// SchemaError describes an unexpected response shape.
type SchemaError struct {
	Field  string
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error: %s: %s", e.Field, e.Detail)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns both the sentinel and the cause.
func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchema, e.Cause}
}

// ProviderError is returned by every external provider call. It carries the
// provider name, the attempted URL and the underlying transport or schema error.
type ProviderError struct {
	Provider string
	URL      string
	Cause    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request to %s failed: %v", e.Provider, e.URL, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsSchema reports whether the provider answered with an unexpected shape.
func (e *ProviderError) IsSchema() bool {
	return errors.Is(e.Cause, ErrSchema)
}

// GenerativeError wraps a failed completion call.
type GenerativeError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *GenerativeError) Error() string {
	return fmt.Sprintf("generative call to %s failed: %v", e.Provider, e.Cause)
}

// Unwrap returns both the sentinel and the cause.
func (e *GenerativeError) Unwrap() []error {
	return []error{ErrGenerative, e.Cause}
}

// PreconditionError is returned before any external call when an operation
// cannot run with the given input.
type PreconditionError struct {
	Operation string
	Reason    string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// DistillError wraps a failure to produce a search phrase. It is fatal to discovery.
type DistillError struct {
	Cause error
}

// Error implements the error interface.
func (e *DistillError) Error() string {
	return fmt.Sprintf("keyword distillation failed: %v", e.Cause)
}

// Unwrap returns both the sentinel and the cause.
func (e *DistillError) Unwrap() []error {
	return []error{ErrDistill, e.Cause}
}

// DiscoveryError wraps a paper-search failure. Callers use IsSchema to tell a
// changed response shape apart from an unreachable provider.
type DiscoveryError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("paper discovery via %s failed: %v", e.Provider, e.Cause)
}

// Unwrap returns both the sentinel and the cause.
func (e *DiscoveryError) Unwrap() []error {
	return []error{ErrDiscovery, e.Cause}
}

// IsSchema reports whether the failure was a response shape violation.
func (e *DiscoveryError) IsSchema() bool {
	return errors.Is(e.Cause, ErrSchema)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewTransportError creates a ProviderError caused by a transport failure.
func NewTransportError(provider, url string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		URL:      url,
		Cause:    &TransportError{StatusCode: statusCode, Cause: cause},
	}
}

// NewSchemaError creates a ProviderError caused by an unexpected response shape.
func NewSchemaError(provider, url, field, detail string, cause error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		URL:      url,
		Cause:    &SchemaError{Field: field, Detail: detail, Cause: cause},
	}
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(operation, reason string) *PreconditionError {
	return &PreconditionError{
		Operation: operation,
		Reason:    reason,
	}
}
