// Package azure resolves an Azure credential for Key Vault access using an
// ordered fallback chain: managed identity (when selected), Azure CLI login,
// then an explicit service principal. The chain order matches what callers
// of the tool rely on: MSI-first, CLI-second, explicit-credential-last.
package azure

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/zalando/go-keyring"

	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/logging"
)

// Auth source selectors accepted by --auth-source.
const (
	SourceAuto     = "auto"
	SourceCLI      = "cli"
	SourceMSI      = "msi"
	SourceExplicit = "explicit"
)

// DefaultTenant is used when explicit credentials carry no tenant.
const DefaultTenant = "common"

// Keyring account names written by `kvensure login`.
const (
	KeyringClientID     = "client_id"
	KeyringClientSecret = "client_secret"
	KeyringTenant       = "tenant"
)

// Options configures credential resolution for one invocation.
type Options struct {
	// AuthSource selects the chain: auto, cli, msi, or explicit.
	AuthSource string

	// Explicit service principal fields. Empty fields fall back to the
	// AZURE_* environment and then to the OS keyring.
	ClientID     string
	ClientSecret string
	Tenant       string

	// VaultHostSuffix is the vault DNS suffix the token must be scoped to,
	// e.g. "vault.azure.net".
	VaultHostSuffix string

	// KeyringService names the keyring entry group used by `kvensure login`.
	// Empty disables the keyring fallback.
	KeyringService string

	Logger *logging.Logger
}

// strategy is one step in the fallback chain. acquire returns a credential
// ready for use, or an error that sends resolution to the next strategy.
type strategy struct {
	name     string
	terminal bool // a terminal strategy's failure aborts resolution
	acquire  func(ctx context.Context) (azcore.TokenCredential, error)
}

// Resolve walks the strategy chain for the configured auth source and
// returns the first credential that works. Non-terminal failures fall
// through; only the explicit strategy's failure is final.
func Resolve(ctx context.Context, opts Options) (azcore.TokenCredential, error) {
	if opts.VaultHostSuffix == "" {
		opts.VaultHostSuffix = "vault.azure.net"
	}
	return resolveFrom(ctx, buildStrategies(opts), opts.Logger)
}

func resolveFrom(ctx context.Context, strategies []strategy, logger *logging.Logger) (azcore.TokenCredential, error) {
	var attempts []kverrors.StrategyFailure

	for _, s := range strategies {
		cred, err := s.acquire(ctx)
		if err == nil {
			logger.Debug("credential resolved via %s", s.name)
			return cred, nil
		}

		if s.terminal {
			// Incomplete explicit configuration is reported as-is so the
			// operator sees which field is missing.
			if _, ok := err.(kverrors.ConfigError); ok {
				return nil, err
			}
			attempts = append(attempts, kverrors.StrategyFailure{Strategy: s.name, Reason: err.Error()})
			return nil, kverrors.AuthError{
				Message:  "no credential strategy succeeded",
				Attempts: attempts,
			}
		}

		logger.Debug("credential strategy %s failed, falling through", s.name)
		attempts = append(attempts, kverrors.StrategyFailure{Strategy: s.name, Reason: err.Error()})
	}

	return nil, kverrors.AuthError{
		Message:  "no credential strategy succeeded",
		Attempts: attempts,
	}
}

// buildStrategies assembles the chain for the given options. The explicit
// strategy is always last; MSI participates only when explicitly selected
// because the IMDS endpoint would otherwise always yield a credential when
// running on an Azure VM, shadowing the intended auth source.
func buildStrategies(opts Options) []strategy {
	scope := TokenScope(opts.VaultHostSuffix)

	var strategies []strategy

	if opts.AuthSource == SourceMSI {
		strategies = append(strategies, strategy{
			name: "msi",
			acquire: func(ctx context.Context) (azcore.TokenCredential, error) {
				cred, err := azidentity.NewManagedIdentityCredential(nil)
				if err != nil {
					return nil, err
				}
				return probe(ctx, cred, scope)
			},
		})
	}

	if opts.AuthSource == SourceAuto || opts.AuthSource == SourceCLI {
		strategies = append(strategies, strategy{
			name: "cli",
			acquire: func(ctx context.Context) (azcore.TokenCredential, error) {
				cred, err := azidentity.NewAzureCLICredential(nil)
				if err != nil {
					return nil, err
				}
				return probe(ctx, cred, scope)
			},
		})
	}

	strategies = append(strategies, strategy{
		name:     "explicit",
		terminal: true,
		acquire: func(ctx context.Context) (azcore.TokenCredential, error) {
			return explicitCredential(opts)
		},
	})

	return strategies
}

// probe acquires one token to confirm the credential actually works. The
// azidentity constructors succeed even when no identity is available, so a
// chain that only constructed credentials would never fall through.
func probe(ctx context.Context, cred azcore.TokenCredential, scope string) (azcore.TokenCredential, error) {
	_, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// explicitCredential builds a service principal credential from options,
// environment, and keyring, in that order of precedence.
func explicitCredential(opts Options) (azcore.TokenCredential, error) {
	clientID, clientSecret, tenant, err := explicitFields(opts)
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewClientSecretCredential(tenant, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service principal credential: %w", err)
	}
	return cred, nil
}

// explicitFields gathers the service principal fields, defaulting the tenant
// to "common" when nothing supplies one.
func explicitFields(opts Options) (clientID, clientSecret, tenant string, err error) {
	clientID = firstNonEmpty(opts.ClientID, os.Getenv("AZURE_CLIENT_ID"), keyringLookup(opts.KeyringService, KeyringClientID))
	clientSecret = firstNonEmpty(opts.ClientSecret, os.Getenv("AZURE_CLIENT_SECRET"), keyringLookup(opts.KeyringService, KeyringClientSecret))
	tenant = firstNonEmpty(opts.Tenant, os.Getenv("AZURE_TENANT"), os.Getenv("AZURE_TENANT_ID"), keyringLookup(opts.KeyringService, KeyringTenant))

	if clientID == "" || clientSecret == "" {
		return "", "", "", kverrors.ConfigError{
			Field:      "client_id",
			Message:    "client id and secret are required to access Azure Key Vault",
			Suggestion: "Specify --client-id/--client-secret, set AZURE_CLIENT_ID/AZURE_CLIENT_SECRET, or run 'kvensure login'",
		}
	}

	if tenant == "" {
		tenant = DefaultTenant
	}
	return clientID, clientSecret, tenant, nil
}

// keyringLookup reads one entry stored by `kvensure login`. Lookup failures
// are treated as absence so a missing keyring backend never aborts the chain.
func keyringLookup(service, account string) string {
	if service == "" {
		return ""
	}
	value, err := keyring.Get(service, account)
	if err != nil {
		return ""
	}
	return value
}

// HostSuffix derives the vault DNS suffix from a vault endpoint URI:
// "https://contoso.vault.azure.net/" becomes "vault.azure.net". Falls back
// to the public cloud suffix when the URI cannot be parsed.
func HostSuffix(vaultURI string) string {
	parsed, err := url.Parse(vaultURI)
	if err != nil || parsed.Host == "" {
		return "vault.azure.net"
	}
	host := parsed.Hostname()
	if i := strings.Index(host, "."); i >= 0 && i+1 < len(host) {
		return host[i+1:]
	}
	return "vault.azure.net"
}

// TokenScope builds the OAuth scope for a vault DNS suffix.
func TokenScope(hostSuffix string) string {
	return fmt.Sprintf("https://%s/.default", hostSuffix)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
