package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/kvensure/internal/config"
	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/metrics"
	"github.com/systmms/kvensure/internal/reconcile"
	"github.com/systmms/kvensure/internal/specfile"
)

func NewEnsureCommand(cfg *config.Config) *cobra.Command {
	var (
		vaultURI    string
		name        string
		value       string
		valueFile   string
		state       string
		validFrom   string
		expiry      string
		contentType string
		tagFlags    []string
		specPath    string
		check       bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Ensure a Key Vault secret is present or absent",
		Long: `Converge one Azure Key Vault secret to its desired state.

The desired state comes from flags or from a YAML spec file. The command
performs at most one read and one write against the vault and prints a JSON
result with "changed" and the resulting secret identifier. Re-running with
an unchanged desired state reports changed=false and performs no write.

Examples:
  # Create or update a secret
  kvensure ensure --vault-uri https://contoso.vault.azure.net/ \
      --name MySecret --value My_Pass_Sec --tag env=prod --tag team=data

  # Preview without writing
  kvensure ensure --spec secret.yaml --check

  # Delete a secret
  kvensure ensure --vault-uri https://contoso.vault.azure.net/ \
      --name MySecret --state absent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := buildSpec(cmd, specPath, reconcile.SecretSpec{
				Name:        name,
				Value:       value,
				ValidFrom:   validFrom,
				Expiry:      expiry,
				ContentType: contentType,
				State:       reconcile.State(state),
				VaultURI:    vaultURI,
			}, valueFile, tagFlags)
			if err != nil {
				return err
			}
			if err := spec.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			client, err := cfg.SecretClient(ctx, spec.VaultURI)
			if err != nil {
				return err
			}

			var recorder *metrics.Recorder
			if metricsFile != "" {
				recorder = metrics.NewRecorder()
			}

			reconciler := reconcile.New(client, cfg.Logger, reconcile.WithMetrics(recorder))
			result, err := reconciler.Reconcile(ctx, spec, check)

			status := "succeeded"
			if err != nil {
				status = "failed"
			}
			recorder.RecordEnsure(string(spec.State), status, result.Changed)
			if metricsFile != "" {
				if werr := recorder.WriteTextfile(metricsFile); werr != nil {
					cfg.Logger.Warn("failed to write metrics file: %v", werr)
				}
			}

			if err != nil {
				return err
			}

			if check {
				cfg.Logger.Debug("check mode: no remote writes were issued")
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			if err := encoder.Encode(result); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vaultURI, "vault-uri", "", "Key Vault endpoint URI (required unless --spec is used)")
	cmd.Flags().StringVar(&name, "name", "", "Secret name (required unless --spec is used)")
	cmd.Flags().StringVar(&value, "value", "", "Secret value (required when state is present)")
	cmd.Flags().StringVar(&valueFile, "value-file", "", "Read the secret value from a file")
	cmd.Flags().StringVar(&state, "state", "present", "Desired state: present or absent")
	cmd.Flags().StringVar(&validFrom, "valid-from", "", "Optional not-before timestamp (ISO-8601)")
	cmd.Flags().StringVar(&expiry, "expiry", "", "Optional expiry timestamp (ISO-8601)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type label for the secret value")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Tag as key=value (repeatable)")
	cmd.Flags().StringVar(&specPath, "spec", "", "YAML spec file describing the desired state")
	cmd.Flags().BoolVar(&check, "check", false, "Compute and report changes without writing")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")

	return cmd
}

// buildSpec assembles the desired state from either the spec file or the
// per-field flags. Mixing both is rejected so there is exactly one source
// of truth per invocation.
func buildSpec(cmd *cobra.Command, specPath string, flagSpec reconcile.SecretSpec, valueFile string, tagFlags []string) (reconcile.SecretSpec, error) {
	if specPath != "" {
		for _, f := range []string{"vault-uri", "name", "value", "value-file", "valid-from", "expiry", "content-type", "tag"} {
			if cmd.Flags().Changed(f) {
				return reconcile.SecretSpec{}, kverrors.ConfigError{
					Field:      "spec",
					Message:    fmt.Sprintf("--spec cannot be combined with --%s", f),
					Suggestion: "Describe the whole desired state in the spec file, or use flags only",
				}
			}
		}
		return specfile.Load(specPath)
	}

	if valueFile != "" {
		if flagSpec.Value != "" {
			return reconcile.SecretSpec{}, kverrors.ConfigError{
				Field:      "value-file",
				Message:    "--value and --value-file are mutually exclusive",
				Suggestion: "Pass the value inline or from a file, not both",
			}
		}
		data, err := os.ReadFile(valueFile)
		if err != nil {
			return reconcile.SecretSpec{}, kverrors.UserError{
				Message:    "Failed to read value file",
				Details:    err.Error(),
				Suggestion: "Check the --value-file path and permissions",
				Err:        err,
			}
		}
		flagSpec.Value = strings.TrimRight(string(data), "\r\n")
	}

	tags, err := parseTags(tagFlags)
	if err != nil {
		return reconcile.SecretSpec{}, err
	}
	flagSpec.Tags = tags

	return flagSpec, nil
}
