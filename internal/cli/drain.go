package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/wardsync/internal/app"
)

// openApp builds and initializes the app for one-shot commands.
func openApp(ctx context.Context, opts *RootOptions) (*app.App, error) {
	a, err := app.Build(ctx, opts.Config, opts.Log)
	if err != nil {
		return nil, err
	}
	if err := a.Initialize(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// NewDrainCommand creates the drain command.
func NewDrainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Replay queued writes against the remote API once",
		Long: `Replay every queued write in order. Entries the remote API rejects stay
queued; the command exits non-zero when any entry failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Syncer.DrainPending(cmd.Context())
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) {
				if res.Skipped {
					fmt.Fprintln(w, "skipped: another agent is draining the shared queue")
					return
				}
				fmt.Fprintf(w, "synced: %d\nfailed: %d\n", res.Success, res.Failed)
			}); err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d operation(s) left queued", res.Failed)
			}
			return nil
		},
	}
}
