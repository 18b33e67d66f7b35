package cli

import (
	"github.com/spf13/cobra"

	"github.com/shopstack/shopctl/internal/config"
	"github.com/shopstack/shopctl/internal/deploy"
)

// newRenderCommand creates the "render" subcommand that materializes the
// workspace and artifacts without touching the orchestrator.
func newRenderCommand(opts *Options) *cobra.Command {
	var inputs config.Inputs

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Materialize the workspace and configuration artifacts only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			pipeline, _, err := buildPipeline(opts, inputs, logger)
			if err != nil {
				return err
			}

			_, err = pipeline.Run(cmd.Context(), deploy.ModeRender)
			return err
		},
	}

	addInputFlags(cmd, &inputs)

	return cmd
}
