package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/systmms/kvensure/internal/azure"
	"github.com/systmms/kvensure/internal/config"
	kverrors "github.com/systmms/kvensure/internal/errors"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store explicit service principal credentials in the OS keyring",
		Long: `Store a service principal's client id, secret, and tenant in the
operating system keyring so later invocations can fall back to them without
credentials on the command line or in the environment.

Examples:
  kvensure login --client-id <app-id> --client-secret <secret> --tenant <tenant>
  kvensure login --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				return clearCredentials(cfg)
			}

			if cfg.ClientID == "" || cfg.ClientSecret == "" {
				return kverrors.ConfigError{
					Field:      "client_id",
					Message:    "client id and secret are required",
					Suggestion: "Pass --client-id and --client-secret (and optionally --tenant)",
				}
			}

			if err := keyring.Set(config.KeyringService, azure.KeyringClientID, cfg.ClientID); err != nil {
				return keyringError(err)
			}
			if err := keyring.Set(config.KeyringService, azure.KeyringClientSecret, cfg.ClientSecret); err != nil {
				return keyringError(err)
			}
			if cfg.Tenant != "" {
				if err := keyring.Set(config.KeyringService, azure.KeyringTenant, cfg.Tenant); err != nil {
					return keyringError(err)
				}
			}

			cfg.Logger.Info("credentials stored in OS keyring")
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove stored credentials from the keyring")

	return cmd
}

func clearCredentials(cfg *config.Config) error {
	for _, account := range []string{azure.KeyringClientID, azure.KeyringClientSecret, azure.KeyringTenant} {
		if err := keyring.Delete(config.KeyringService, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return keyringError(err)
		}
	}
	cfg.Logger.Info("stored credentials removed")
	return nil
}

func keyringError(err error) error {
	return kverrors.UserError{
		Message:    "Keyring operation failed",
		Details:    err.Error(),
		Suggestion: "Check that a keyring backend (Keychain, Secret Service, Credential Manager) is available",
		Err:        err,
	}
}
