package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/kvensure/cmd/kvensure/commands"
	"github.com/systmms/kvensure/internal/config"
	"github.com/systmms/kvensure/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		noColor      bool
		debug        bool
		authSource   string
		clientID     string
		clientSecret string
		tenant       string
		timeout      time.Duration
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "kvensure",
		Short: "Idempotent Azure Key Vault secret management",
		Long: `kvensure ensures an Azure Key Vault secret is present with a given value
or absent, and reports whether remote state changed. It is designed to be
invoked by an orchestration host: parameters come in as flags or a spec
file, the result goes out as JSON on stdout, and --check previews changes
without performing them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
			cfg.AuthSource = authSource
			cfg.ClientID = clientID
			cfg.ClientSecret = clientSecret
			cfg.Tenant = tenant
			cfg.Timeout = timeout
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&authSource, "auth-source", "auto", "Credential source: auto, cli, msi, or explicit")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Service principal client id")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "Service principal client secret")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Azure tenant (defaults to 'common')")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for each Key Vault API call")

	rootCmd.AddCommand(
		commands.NewEnsureCommand(cfg),
		commands.NewGetCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
