package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/kvensure/internal/config"
	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/keyvault"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		vaultURI   string
		name       string
		version    string
		jsonOutput bool
		showValue  bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a Key Vault secret",
		Long: `Read one secret from a Key Vault.

By default only metadata is printed; the value stays redacted. Use
--show-value to print the raw value to stdout for scripting.

Examples:
  # Show metadata
  kvensure get --vault-uri https://contoso.vault.azure.net/ --name MySecret

  # Use in scripts
  export DB_PASS=$(kvensure get --vault-uri https://contoso.vault.azure.net/ \
      --name db-password --show-value)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, err := cfg.SecretClient(ctx, vaultURI)
			if err != nil {
				return err
			}

			cfg.Logger.Debug("fetching secret %s", name)

			resp, err := client.GetSecret(ctx, name, version, nil)
			if err != nil {
				if keyvault.IsNotFound(err) {
					return kverrors.UserError{
						Message:    fmt.Sprintf("Secret '%s' was not found", name),
						Suggestion: "Verify the secret name exists in the Key Vault. Secret names are case-sensitive",
					}
				}
				return kverrors.UserError{
					Message:    "Failed to read secret " + name,
					Details:    err.Error(),
					Suggestion: keyvault.ErrorSuggestion(err),
					Err:        err,
				}
			}

			if showValue && !jsonOutput {
				if resp.Value != nil {
					fmt.Fprint(cmd.OutOrStdout(), *resp.Value)
				}
				return nil
			}

			output := map[string]interface{}{
				"secret_name": name,
			}
			if resp.ID != nil {
				output["secret_id"] = string(*resp.ID)
				output["version"] = resp.ID.Version()
			}
			if resp.ContentType != nil {
				output["content_type"] = *resp.ContentType
			}
			if resp.Attributes != nil {
				if resp.Attributes.Created != nil {
					output["created_at"] = resp.Attributes.Created.Format(time.RFC3339)
				}
				if resp.Attributes.Updated != nil {
					output["updated_at"] = resp.Attributes.Updated.Format(time.RFC3339)
				}
				if resp.Attributes.Expires != nil {
					output["expires_at"] = resp.Attributes.Expires.Format(time.RFC3339)
				}
				if resp.Attributes.NotBefore != nil {
					output["not_before"] = resp.Attributes.NotBefore.Format(time.RFC3339)
				}
			}
			if len(resp.Tags) > 0 {
				tags := make(map[string]string, len(resp.Tags))
				for k, v := range resp.Tags {
					if v != nil {
						tags[k] = *v
					}
				}
				output["tags"] = tags
			}
			if showValue && resp.Value != nil {
				output["secret_value"] = *resp.Value
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(output); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			for _, key := range []string{"secret_name", "secret_id", "version", "content_type", "created_at", "updated_at", "not_before", "expires_at"} {
				if v, ok := output[key]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%-13s %v\n", key+":", v)
				}
			}
			if tags, ok := output["tags"].(map[string]string); ok {
				fmt.Fprintln(cmd.OutOrStdout(), "tags:")
				for k, v := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s=%s\n", k, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vaultURI, "vault-uri", "", "Key Vault endpoint URI (required)")
	cmd.Flags().StringVar(&name, "name", "", "Secret name (required)")
	cmd.Flags().StringVar(&version, "version", "", "Specific secret version (default: latest)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output metadata as JSON")
	cmd.Flags().BoolVar(&showValue, "show-value", false, "Include the secret value in the output")

	_ = cmd.MarkFlagRequired("vault-uri")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
