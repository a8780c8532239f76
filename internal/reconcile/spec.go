package reconcile

import (
	"time"

	kverrors "github.com/systmms/kvensure/internal/errors"
)

// State asserts whether a secret should exist.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// SecretSpec is the desired state for one secret. It is built once from
// caller-supplied parameters and never mutated.
type SecretSpec struct {
	Name        string
	Value       string
	ValidFrom   string
	Expiry      string
	ContentType string
	Tags        map[string]string
	State       State
	VaultURI    string
}

// Validate checks the spec before any remote call is made.
func (s SecretSpec) Validate() error {
	if s.Name == "" {
		return kverrors.ConfigError{
			Field:      "secret_name",
			Message:    "secret_name is required",
			Suggestion: "Provide the secret name with --name",
		}
	}
	if s.VaultURI == "" {
		return kverrors.ConfigError{
			Field:      "keyvault_uri",
			Message:    "keyvault_uri is required",
			Suggestion: "Provide the vault endpoint with --vault-uri",
		}
	}
	switch s.State {
	case StatePresent:
		if s.Value == "" {
			return kverrors.ValidationError{
				Field:   "secret_value",
				Message: "secret_value is required when state is present",
			}
		}
	case StateAbsent:
		// Deleting needs no value.
	default:
		return kverrors.ConfigError{
			Field:      "state",
			Value:      string(s.State),
			Message:    "state must be 'present' or 'absent'",
			Suggestion: "Use --state present to create or update, --state absent to delete",
		}
	}
	return nil
}

// SecretRecord is the observed or resulting state of a secret. The value is
// never carried here; only the identifier and status label leave the
// reconciler.
type SecretRecord struct {
	// ID is the full secret identifier URI encoding vault, name and the
	// server-assigned version.
	ID string `json:"secret_id,omitempty"`

	// Status is "Created" or "Deleted" after a change (or the prospective
	// label in check mode), empty for a no-op.
	Status string `json:"status,omitempty"`
}

// Result is the structured outcome reported to the invoking host.
type Result struct {
	Changed bool         `json:"changed"`
	State   SecretRecord `json:"state"`
}

// dateLayouts are tried in order when parsing validity window strings.
// The accepted forms mirror common ISO-8601-ish inputs.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseWhen parses an optional timestamp parameter. An empty string means
// the attribute is unset; a non-empty string that matches no layout is a
// hard validation failure rather than being silently ignored.
func parseWhen(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, kverrors.ValidationError{
		Field:   field,
		Value:   value,
		Message: "unparsable date string, expected an ISO-8601 timestamp such as 2026-01-02T15:04:05Z",
	}
}
