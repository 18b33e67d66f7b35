package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopctl/internal/config"
	"github.com/shopstack/shopctl/internal/deploy"
	"github.com/shopstack/shopctl/internal/workspace"
)

// newDeployCommand creates the "deploy" subcommand that provisions the
// workspace and brings the full stack up.
func newDeployCommand(opts *Options) *cobra.Command {
	var inputs config.Inputs

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Provision the workspace and bring the stack up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			pipeline, cfg, err := buildPipeline(opts, inputs, logger)
			if err != nil {
				return err
			}

			maintenance, err := pipeline.Run(cmd.Context(), deploy.ModeDeploy)
			if err != nil {
				return err
			}
			for _, merr := range maintenance {
				logger.Warn("stack is up but a maintenance command failed; run it manually", "error", merr)
			}

			endpoints := cfg.Endpoints()
			fmt.Fprintf(os.Stdout, "Storefront: %s\nDashboard:  %s\nAPI:        %s\n",
				endpoints.Storefront, endpoints.Dashboard, endpoints.API)
			return nil
		},
	}

	addInputFlags(cmd, &inputs)

	return cmd
}

// buildPipeline resolves inputs (flags first, SHOPCTL_* environment second)
// into a Deployment and wires the provisioning pipeline for it.
func buildPipeline(opts *Options, inputs config.Inputs, logger *slog.Logger) (*deploy.Pipeline, *config.Deployment, error) {
	inputs, err := config.FromEnv(inputs)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Resolve(inputs, logger)
	if err != nil {
		return nil, nil, err
	}

	ws := workspace.NewMaterializer(opts.Workspace, logger)
	return deploy.New(cfg, ws, logger), cfg, nil
}

// addInputFlags registers the deployment input flags shared by deploy and render.
func addInputFlags(cmd *cobra.Command, inputs *config.Inputs) {
	cmd.Flags().StringVar(&inputs.Domain, "domain", "", "Public domain the stack is served on")
	cmd.Flags().StringVar(&inputs.ImageOwner, "image-owner", "", "Registry owner/prefix for the application images")
	cmd.Flags().StringVar(&inputs.DBPassword, "db-password", "", "Database password (generated when empty)")
}
