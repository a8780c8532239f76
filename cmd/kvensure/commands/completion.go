package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/kvensure/internal/config"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for kvensure.

To load completions:

Bash:
  $ source <(kvensure completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ kvensure completion bash > /etc/bash_completion.d/kvensure
  # macOS:
  $ kvensure completion bash > $(brew --prefix)/etc/bash_completion.d/kvensure

Zsh:
  $ kvensure completion zsh > "${fpath[1]}/_kvensure"

Fish:
  $ kvensure completion fish | source

PowerShell:
  PS> kvensure completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
