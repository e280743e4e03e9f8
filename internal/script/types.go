// Package script compiles Tengo expressions into value filters.
//
// A filter expression sees three variables: value (the published value),
// subscriber (the subscriber's name) and path (the dotted key path). The
// expression's result replaces the value:
//
//	value * 2
//	is_string(value) ? value : string(value)
//	{name: value.name, by: subscriber}
package script

import (
	"time"
)

// ErrorType categorizes different types of script errors
type ErrorType string

const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeConversion  ErrorType = "conversion"
)

// ScriptError represents script-related errors with context
type ScriptError struct {
	Type       ErrorType
	Expression string
	Message    string
	Cause      error
}

func (e *ScriptError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// NewScriptError creates a new ScriptError
func NewScriptError(errorType ErrorType, expr, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:       errorType,
		Expression: expr,
		Message:    message,
		Cause:      cause,
	}
}

// SecurityLimits defines resource constraints for filter execution
type SecurityLimits struct {
	MaxExecutionTime time.Duration
	MaxAllocs        int64
	AllowedModules   []string
}

// DefaultSecurityLimits returns safe default constraints for filter execution
func DefaultSecurityLimits() SecurityLimits {
	return SecurityLimits{
		MaxExecutionTime: time.Second,
		MaxAllocs:        10000,
		AllowedModules:   []string{"math", "text", "times"},
	}
}
