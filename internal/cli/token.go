package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/wardsync/internal/auth"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token sent to the remote API",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Store a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Tokens.SetToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTokenInfo(cmd.OutOrStdout(), rootOpts.Format, info)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Describe the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Tokens.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printTokenInfo(cmd.OutOrStdout(), rootOpts.Format, info)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Tokens.Clear(cmd.Context()); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintln(w, "token cleared")
			})
		},
	})

	return cmd
}

func printTokenInfo(w io.Writer, format string, info auth.TokenInfo) error {
	return printResult(w, format, info, func(w io.Writer) {
		if !info.Present {
			fmt.Fprintln(w, "no token stored")
			return
		}
		fmt.Fprintf(w, "subject: %s\n", orDash(info.Subject))
		if info.ExpiresAt != nil {
			fmt.Fprintf(w, "expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
		} else {
			fmt.Fprintln(w, "expires: -")
		}
		fmt.Fprintf(w, "expired: %t\n", info.Expired)
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
