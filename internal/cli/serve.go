package cli

import (
	"github.com/spf13/cobra"

	"github.com/heartmarshall/wardsync/internal/app"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local API and the sync agent",
		Long: `Serve the local API used by the ward front-end, track connectivity and
replay queued writes whenever the agent comes back online.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), rootOpts.Config, rootOpts.Log)
		},
	}
}
