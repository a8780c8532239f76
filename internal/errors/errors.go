package errors

import (
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context.
// Remote API failures surface through this type so the operator sees the
// underlying detail plus a suggestion, without a stack of wrapped prefixes.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid or missing invocation parameter
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ValidationError represents a parameter that parsed but failed semantic
// validation (for example a non-empty date string no layout accepts).
// It is always raised before any remote write is attempted.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	msg := "Validation error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	return msg + ": " + e.Message
}

// StrategyFailure records why one credential strategy in the fallback chain
// did not produce a usable credential.
type StrategyFailure struct {
	Strategy string
	Reason   string
}

// AuthError indicates that no credential strategy succeeded. Attempts holds
// one entry per strategy tried, in chain order.
type AuthError struct {
	Message  string
	Attempts []StrategyFailure
}

func (e AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "authentication failed"
	}
	for _, a := range e.Attempts {
		msg += fmt.Sprintf("\n  %s: %s", a.Strategy, a.Reason)
	}
	return msg
}
