// Package config carries the per-invocation runtime configuration shared by
// all commands: the logger, auth parameters, and the vault client factory.
package config

import (
	"context"
	"time"

	"github.com/systmms/kvensure/internal/azure"
	"github.com/systmms/kvensure/internal/keyvault"
	"github.com/systmms/kvensure/internal/logging"
)

// KeyringService is the OS keyring entry group used by `kvensure login`.
const KeyringService = "kvensure"

// Config holds runtime state populated from global flags.
type Config struct {
	Logger *logging.Logger

	// Credential parameters consumed by the resolver chain.
	AuthSource   string
	ClientID     string
	ClientSecret string
	Tenant       string

	// Timeout bounds each remote HTTP call.
	Timeout time.Duration

	// NewSecretClient overrides client construction, allowing tests to
	// inject a fake vault. Left nil in production.
	NewSecretClient func(ctx context.Context, vaultURI string) (keyvault.SecretClientAPI, error)
}

// SecretClient resolves a credential and returns a client bound to the given
// vault. The handle is owned by the calling invocation only.
func (c *Config) SecretClient(ctx context.Context, vaultURI string) (keyvault.SecretClientAPI, error) {
	if c.NewSecretClient != nil {
		return c.NewSecretClient(ctx, vaultURI)
	}

	cred, err := azure.Resolve(ctx, azure.Options{
		AuthSource:      c.AuthSource,
		ClientID:        c.ClientID,
		ClientSecret:    c.ClientSecret,
		Tenant:          c.Tenant,
		VaultHostSuffix: azure.HostSuffix(vaultURI),
		KeyringService:  KeyringService,
		Logger:          c.Logger,
	})
	if err != nil {
		return nil, err
	}

	return keyvault.New(vaultURI, cred, c.Timeout)
}
