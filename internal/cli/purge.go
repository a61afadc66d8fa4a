package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete synced records older than the retention period",
		Long: `Delete local records that the remote API has confirmed and that were last
written before the retention period. Unsynced records are never deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := rootOpts.Config.Sync.Retention()
			if cmd.Flags().Changed("older-than") {
				threshold = olderThan
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Records.PurgeSyncedOlderThan(cmd.Context(), threshold)
			if err != nil {
				return err
			}

			out := struct {
				Deleted   int    `json:"deleted"`
				OlderThan string `json:"olderThan"`
			}{n, threshold.String()}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, out, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %d synced record(s) older than %s\n", n, threshold)
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention threshold (default sync.retention_days)")

	return cmd
}
