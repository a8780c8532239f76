package commands

import (
	"strings"

	kverrors "github.com/systmms/kvensure/internal/errors"
)

// parseTags converts repeated key=value flags into a tag map.
func parseTags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(flags))
	for _, raw := range flags {
		key, value, found := strings.Cut(raw, "=")
		if !found || key == "" {
			return nil, kverrors.ConfigError{
				Field:      "tag",
				Value:      raw,
				Message:    "tags must be key=value",
				Suggestion: "Example: --tag env=prod",
			}
		}
		tags[key] = value
	}
	return tags, nil
}
