// Package specfile loads a declarative secret spec from a YAML file. The
// document is validated against a JSON schema before it is turned into a
// reconcile.SecretSpec, so schema violations surface as configuration errors
// instead of zero-valued fields.
package specfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/reconcile"
)

// schema describes one secret spec document. additionalProperties is off so
// a typoed key fails loudly rather than being silently dropped.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["secret_name", "keyvault_uri"],
  "additionalProperties": false,
  "properties": {
    "secret_name":       {"type": "string", "minLength": 1},
    "secret_value":      {"type": "string"},
    "secret_value_file": {"type": "string"},
    "secret_valid_from": {"type": "string"},
    "secret_expiry":     {"type": "string"},
    "keyvault_uri":      {"type": "string", "minLength": 1},
    "content_type":      {"type": "string"},
    "state":             {"type": "string", "enum": ["present", "absent"]},
    "tags": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`

// document mirrors the YAML spec file layout.
type document struct {
	SecretName      string            `yaml:"secret_name"`
	SecretValue     string            `yaml:"secret_value"`
	SecretValueFile string            `yaml:"secret_value_file"`
	SecretValidFrom string            `yaml:"secret_valid_from"`
	SecretExpiry    string            `yaml:"secret_expiry"`
	KeyvaultURI     string            `yaml:"keyvault_uri"`
	ContentType     string            `yaml:"content_type"`
	State           string            `yaml:"state"`
	Tags            map[string]string `yaml:"tags"`
}

// Load reads, validates, and converts a spec file.
func Load(path string) (reconcile.SecretSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reconcile.SecretSpec{}, kverrors.ConfigError{
				Field:      "spec",
				Value:      path,
				Message:    "spec file not found",
				Suggestion: "Check the path passed to --spec",
			}
		}
		return reconcile.SecretSpec{}, kverrors.UserError{
			Message:    "Failed to read spec file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validate(data); err != nil {
		return reconcile.SecretSpec{}, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return reconcile.SecretSpec{}, kverrors.ConfigError{
			Field:      "spec",
			Value:      path,
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	return toSpec(doc)
}

// validate checks the raw YAML document against the embedded schema. The
// document is decoded generically and round-tripped through JSON so unknown
// keys are still visible to the schema.
func validate(data []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return kverrors.ConfigError{
			Field:      "spec",
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal spec for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return kverrors.ConfigError{
			Field:   "spec",
			Message: "spec validation failed:\n  - " + strings.Join(messages, "\n  - "),
		}
	}

	return nil
}

func toSpec(doc document) (reconcile.SecretSpec, error) {
	value := doc.SecretValue
	if doc.SecretValueFile != "" {
		if doc.SecretValue != "" {
			return reconcile.SecretSpec{}, kverrors.ConfigError{
				Field:      "secret_value_file",
				Message:    "secret_value and secret_value_file are mutually exclusive",
				Suggestion: "Keep the inline value or the file reference, not both",
			}
		}
		data, err := os.ReadFile(doc.SecretValueFile)
		if err != nil {
			return reconcile.SecretSpec{}, kverrors.UserError{
				Message:    "Failed to read secret value file",
				Details:    err.Error(),
				Suggestion: "Check the secret_value_file path and permissions",
				Err:        err,
			}
		}
		value = strings.TrimRight(string(data), "\r\n")
	}

	state := reconcile.State(doc.State)
	if doc.State == "" {
		state = reconcile.StatePresent
	}

	return reconcile.SecretSpec{
		Name:        doc.SecretName,
		Value:       value,
		ValidFrom:   doc.SecretValidFrom,
		Expiry:      doc.SecretExpiry,
		ContentType: doc.ContentType,
		Tags:        doc.Tags,
		State:       state,
		VaultURI:    doc.KeyvaultURI,
	}, nil
}
