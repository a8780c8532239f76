package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/reconcile"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeSpec(t, `
secret_name: MySecret
secret_value: My_Pass_Sec
keyvault_uri: https://contoso.vault.azure.net/
state: present
content_type: password
secret_valid_from: "2026-01-01T00:00:00Z"
secret_expiry: "2027-01-01T00:00:00Z"
tags:
  env: prod
  team: data
`)

	spec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MySecret", spec.Name)
	assert.Equal(t, "My_Pass_Sec", spec.Value)
	assert.Equal(t, "https://contoso.vault.azure.net/", spec.VaultURI)
	assert.Equal(t, reconcile.StatePresent, spec.State)
	assert.Equal(t, "password", spec.ContentType)
	assert.Equal(t, "2026-01-01T00:00:00Z", spec.ValidFrom)
	assert.Equal(t, "2027-01-01T00:00:00Z", spec.Expiry)
	assert.Equal(t, map[string]string{"env": "prod", "team": "data"}, spec.Tags)
}

func TestLoad_StateDefaultsToPresent(t *testing.T) {
	path := writeSpec(t, `
secret_name: MySecret
secret_value: v
keyvault_uri: https://contoso.vault.azure.net/
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatePresent, spec.State)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing_required_fields",
			content: "state: present\n",
		},
		{
			name: "bad_state_enum",
			content: `
secret_name: MySecret
keyvault_uri: https://contoso.vault.azure.net/
state: gone
`,
		},
		{
			name: "unknown_key",
			content: `
secret_name: MySecret
keyvault_uri: https://contoso.vault.azure.net/
secretvalue: typo
`,
		},
		{
			name: "non_string_tag",
			content: `
secret_name: MySecret
keyvault_uri: https://contoso.vault.azure.net/
tags:
  count: 3
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSpec(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.IsType(t, kverrors.ConfigError{}, err)
		})
	}
}

func TestLoad_ValueFile(t *testing.T) {
	valuePath := filepath.Join(t.TempDir(), "value.txt")
	require.NoError(t, os.WriteFile(valuePath, []byte("from-file\n"), 0o600))

	path := writeSpec(t, `
secret_name: MySecret
secret_value_file: `+valuePath+`
keyvault_uri: https://contoso.vault.azure.net/
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", spec.Value, "trailing newline is trimmed")
}

func TestLoad_ValueAndValueFileAreExclusive(t *testing.T) {
	path := writeSpec(t, `
secret_name: MySecret
secret_value: inline
secret_value_file: /tmp/value.txt
keyvault_uri: https://contoso.vault.azure.net/
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.IsType(t, kverrors.ConfigError{}, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.IsType(t, kverrors.ConfigError{}, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeSpec(t, "secret_name: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
}
