package errors

import "fmt"

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Critical errors that should stop the run
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Recoverable errors
	ErrorCategoryData       ErrorCategory = "DATA"
	ErrorCategoryStatistics ErrorCategory = "STATS"
	ErrorCategoryRisk       ErrorCategory = "RISK"
	ErrorCategoryOrder      ErrorCategory = "ORDER"
	ErrorCategoryStrategy   ErrorCategory = "STRATEGY"
	ErrorCategoryBroker     ErrorCategory = "BROKER"
)

// TradeError represents a categorized error with context
type TradeError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *TradeError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *TradeError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *TradeError) IsRetryable() bool {
	return e.Retryable
}

// New creates a new categorized trade error
func New(category ErrorCategory, component, operation, message string) *TradeError {
	return &TradeError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// Wrap wraps an existing error with trade error context
func Wrap(err error, category ErrorCategory, component, operation string) *TradeError {
	if err == nil {
		return nil
	}

	return &TradeError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *TradeError) WithContext(key string, value interface{}) *TradeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryFatal, ErrorCategoryConfiguration, ErrorCategoryRisk, ErrorCategoryStatistics:
		return false
	case ErrorCategoryBroker, ErrorCategoryOrder:
		return true
	default:
		return false
	}
}

// Common error constructors

func NewConfigurationError(component, operation, message string) *TradeError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

func NewDataError(component, operation string, err error) *TradeError {
	return Wrap(err, ErrorCategoryData, component, operation)
}

func NewStatisticsError(component, operation string, err error) *TradeError {
	return Wrap(err, ErrorCategoryStatistics, component, operation)
}

func NewBrokerError(component, operation string, err error) *TradeError {
	return Wrap(err, ErrorCategoryBroker, component, operation)
}

func NewFatalError(component, operation, message string) *TradeError {
	return New(ErrorCategoryFatal, component, operation, message)
}
