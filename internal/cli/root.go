// Package cli is the command-line front end. Each command opens the
// application (config, database, ingestion, services), does one thing, and
// prints the result as text or JSON.
package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	EnvFile  string
	DBPath   string // overrides PROMAN_DB_PATH
	MediaDir string // overrides PROMAN_MEDIA_DIR
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "proman",
		Short: "Track projects, dated logs and reference images",
		Long: `proman keeps a prioritised list of projects, a diary of dated log entries
per project, and a library of reference images that logs can cite with
[ref:<id>] markers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs and change events on stderr)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to read settings from")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file (default from config)")
	cmd.PersistentFlags().StringVar(&opts.MediaDir, "media", "", "media directory (default from config)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewAttachCommand(opts))

	return cmd
}

// Execute runs cmd, reports a failure in the chosen output format, and
// returns the process exit code.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	f.Error(err)
	return GetExitCode(err)
}

// parseID parses a positional identity argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}
