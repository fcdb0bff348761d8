package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type initResult struct {
	DBPath        string `json:"dbPath"`
	MediaDir      string `json:"mediaDir"`
	SchemaVersion int    `json:"schemaVersion"`
}

// NewInitCommand creates the init command. Opening the database already
// creates or upgrades the schema, so init only has to make the media
// directory and report what it found.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create (or upgrade) the database and media directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				if err := os.MkdirAll(app.Config.MediaDir, 0o755); err != nil {
					return WrapExitError(ExitCommandError, "creating media directory", err)
				}
				version, err := app.db.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}

				res := initResult{DBPath: app.Config.DBPath, MediaDir: app.Config.MediaDir, SchemaVersion: version}
				return app.out.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "Database:\t%s (schema v%d)\n", res.DBPath, res.SchemaVersion)
					fmt.Fprintf(w, "Media:\t%s\n", res.MediaDir)
				})
			})
		},
	}
}
