// Package cli is the wardsync command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/wardsync/internal/app"
	"github.com/heartmarshall/wardsync/internal/config"
)

// RootOptions holds global flags and what PersistentPreRunE loads from them.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Format     string // "json" | "text"

	Config *config.Config
	Log    *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the wardsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wardsync",
		Short: "wardsync - offline write queue for ward workstations",
		Long: `wardsync keeps patient intake working when the hospital API is unreachable.

Submissions are stored locally and queued; queued writes are replayed in order
as soon as connectivity returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if cmd.Annotations[annotationNoConfig] == "true" {
				return nil
			}
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config, ignored when missing")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDrainCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// annotationNoConfig marks commands that run without loading configuration.
const annotationNoConfig = "wardsync/no-config"

func (o *RootOptions) load() error {
	if o.EnvFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.EnvFile, err)
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.LoadFrom(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	o.Config = cfg
	o.Log = app.NewLogger(cfg.Log)
	return nil
}
