// Package keyvault wraps the Azure Key Vault secrets API behind a small
// interface so the reconciler can be exercised against a fake in tests.
package keyvault

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	kverrors "github.com/systmms/kvensure/internal/errors"
)

// DefaultTimeout bounds each remote call when the caller does not override it.
const DefaultTimeout = 30 * time.Second

// SecretClientAPI is the subset of *azsecrets.Client the reconciler uses.
// This allows for mocking in tests.
type SecretClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
}

// New creates a client bound to one vault endpoint. The handle is owned by a
// single invocation and is not cached or reused.
func New(vaultURI string, cred azcore.TokenCredential, timeout time.Duration) (*azsecrets.Client, error) {
	if vaultURI == "" {
		return nil, kverrors.ConfigError{
			Field:      "keyvault_uri",
			Message:    "keyvault_uri is required",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	parsed, err := url.Parse(vaultURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, kverrors.ConfigError{
			Field:      "keyvault_uri",
			Value:      vaultURI,
			Message:    "invalid keyvault_uri format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := &azsecrets.ClientOptions{}
	opts.Transport = &http.Client{Timeout: timeout}

	client, err := azsecrets.NewClient(vaultURI, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	return client, nil
}

// IsNotFound checks if the error indicates a secret was not found. A missing
// secret is an expected outcome for the reconciler, not a failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SecretNotFound") || strings.Contains(err.Error(), "404")
}

// ErrorSuggestion provides helpful suggestions based on Azure errors
func ErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "access denied"):
		return "Check Key Vault access policies: 'Get', 'Set' and 'Delete' permissions are required for secrets"
	case strings.Contains(errStr, "secretnotfound") || strings.Contains(errStr, "404"):
		return "Verify the secret name exists in the Key Vault. Secret names are case-sensitive"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "Check authentication: verify managed identity, service principal, or Azure CLI login"
	case strings.Contains(errStr, "vault not found") || strings.Contains(errStr, "keyvaulterror"):
		return "Check the vault URL format and that the Key Vault exists"
	case strings.Contains(errStr, "throttled") || strings.Contains(errStr, "429"):
		return "Request was throttled. Wait a moment and re-run the invocation"
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct and the application is registered"
	case strings.Contains(errStr, "timeout"):
		return "Network timeout - check connectivity to Azure endpoints or raise --timeout"
	default:
		return "Check Azure credentials, Key Vault URL, and access policies"
	}
}
