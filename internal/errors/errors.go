package errors

import (
	"errors"
	"fmt"
)

// Category classifies every failure the pipeline can surface. No failure
// in the pipeline is process-fatal; each public operation returns either
// a success value or an error carrying one of these categories.
type Category string

const (
	// CategoryData covers cache or collaborator fetch failures. The
	// caller may retry next cycle; no state was mutated.
	CategoryData Category = "DATA_UNAVAILABLE"

	// CategorySignal covers malformed strategy output. The signal is
	// dropped and logged; no side effect.
	CategorySignal Category = "INVALID_SIGNAL"

	// CategoryRisk covers signals rejected by the risk gate. No order
	// was sent; the reason is surfaced to the caller.
	CategoryRisk Category = "RISK_REJECTED"

	// CategoryExecution covers orders the broker refused or errored on.
	// Nothing was recorded; the signal may be re-evaluated next cycle.
	CategoryExecution Category = "EXECUTION_FAILED"

	// CategoryClose covers failed close attempts. The record remains
	// OPEN and the close may be retried.
	CategoryClose Category = "CLOSE_FAILED"

	// CategoryConfig covers invalid configuration detected at startup.
	CategoryConfig Category = "CONFIG"
)

// PipelineError is a categorized error with component and operation
// context, in the shape the rest of the bot pattern-matches on.
type PipelineError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *PipelineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the failed operation may be retried
// without operator intervention.
func (e *PipelineError) IsRetryable() bool {
	return e.Retryable
}

// New creates a categorized error without an underlying cause.
func New(category Category, component, operation, message string) *PipelineError {
	return &PipelineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: retryableCategory(category),
	}
}

// Wrap attaches pipeline context to an existing error.
func Wrap(err error, category Category, component, operation, message string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    message,
		Underlying: err,
		Retryable:  retryableCategory(category),
	}
}

func retryableCategory(category Category) bool {
	switch category {
	case CategoryData, CategoryExecution, CategoryClose:
		return true
	default:
		return false
	}
}

// DataUnavailable wraps a market-data fetch failure.
func DataUnavailable(component, operation string, err error) *PipelineError {
	return Wrap(err, CategoryData, component, operation, "market data unavailable")
}

// InvalidSignal flags malformed strategy output.
func InvalidSignal(component, message string) *PipelineError {
	return New(CategorySignal, component, "validate", message)
}

// ExecutionFailed wraps an order placement failure.
func ExecutionFailed(operation string, err error) *PipelineError {
	return Wrap(err, CategoryExecution, "ledger", operation, "order execution failed")
}

// CloseFailed reports a failed close attempt; the trade stays OPEN.
func CloseFailed(operation, message string, err error) *PipelineError {
	if err != nil {
		return Wrap(err, CategoryClose, "ledger", operation, message)
	}
	return New(CategoryClose, "ledger", operation, message)
}

// CategoryOf extracts the pipeline category from err, or "" when err is
// not a pipeline error.
func CategoryOf(err error) Category {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// Is reports whether err carries the given category anywhere in its chain.
func Is(err error, category Category) bool {
	return CategoryOf(err) == category
}
