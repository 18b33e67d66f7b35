package cli

import (
	"github.com/spf13/cobra"

	"github.com/shopstack/shopctl/internal/compose"
)

// manifestName matches the compose manifest rendered into the workspace.
const manifestName = "docker-compose.yml"

// newDownCommand creates the "down" subcommand that tears the stack down.
// The workspace and its artifacts are left untouched.
func newDownCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack and remove orphaned containers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			client := compose.NewClient(manifestName, opts.Workspace, nil, logger)
			return client.Down(cmd.Context())
		},
	}

	return cmd
}
