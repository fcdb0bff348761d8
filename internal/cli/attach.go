package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
)

// NewAttachCommand creates the attach command group.
func NewAttachCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attach",
		Aliases: []string{"attachment", "attachments", "a"},
		Short:   "Manage reference images",
	}

	cmd.AddCommand(newAttachAddCommand(rootOpts))
	cmd.AddCommand(newAttachListCommand(rootOpts))
	cmd.AddCommand(newAttachToggleCommand(rootOpts))
	cmd.AddCommand(newAttachScopeCommand(rootOpts))
	cmd.AddCommand(newAttachDeleteCommand(rootOpts))
	cmd.AddCommand(newAttachBrokenCommand(rootOpts))
	return cmd
}

func newAttachAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		projectID int64
		logID     int64
		global    bool
	)

	cmd := &cobra.Command{
		Use:   "add <image>...",
		Short: "Import images as reference attachments",
		Long: `Import one or more images. Each is decoded, converted to PNG and copied
into the media directory; the originals are left untouched.

With --log the images are linked to that log entry. Otherwise they belong to
--project (if given) and are visible to every project with --global.`,
		Example: `  proman attach add shot.png --project 1
  proman attach add a.jpg b.webp c.bmp --global
  proman attach add figure.png --log 12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				ctx := cmd.Context()

				var (
					created []model.Attachment
					err     error
				)
				switch {
				case logID > 0:
					for _, src := range args {
						att, addErr := app.Attachments.AddToLog(ctx, src, logID)
						if addErr != nil {
							err = addErr
							break
						}
						created = append(created, *att)
					}
				case len(args) == 1:
					var att *model.Attachment
					if att, err = app.Attachments.Add(ctx, args[0], optionalID(projectID), global); err == nil {
						created = append(created, *att)
					}
				default:
					created, err = app.Attachments.AddBatch(ctx, args, optionalID(projectID), global)
				}

				if len(created) > 0 {
					if renderErr := renderAttachments(app.out, created); renderErr != nil {
						return renderErr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "owning project id")
	cmd.Flags().Int64Var(&logID, "log", 0, "link the images to this log entry")
	cmd.Flags().BoolVar(&global, "global", false, "make the images visible to every project")
	cmd.MarkFlagsMutuallyExclusive("log", "project")
	cmd.MarkFlagsMutuallyExclusive("log", "global")
	return cmd
}

func newAttachListCommand(rootOpts *RootOptions) *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List attachments (all of them, or those a project can see)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				var (
					atts []model.Attachment
					err  error
				)
				if projectID > 0 {
					atts, err = app.Attachments.Viewable(cmd.Context(), projectID)
				} else {
					atts, err = app.Attachments.All(cmd.Context())
				}
				if err != nil {
					return err
				}
				return renderAttachments(app.out, atts)
			})
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "only attachments visible to this project")
	return cmd
}

func newAttachToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <attachment-id>",
		Short: "Flip an attachment between project-specific and global",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				global, err := app.Attachments.ToggleGlobal(cmd.Context(), id)
				if err != nil {
					return err
				}
				return renderScope(app.out, id, global)
			})
		},
	}
}

func newAttachScopeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "scope <attachment-id> <global|project>",
		Short:     "Set an attachment's scope explicitly",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"global", "project"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			var global bool
			switch args[1] {
			case "global":
				global = true
			case "project":
			default:
				if global, err = strconv.ParseBool(args[1]); err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("scope must be global or project, got %q", args[1]))
				}
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				if err := app.Attachments.SetScope(cmd.Context(), id, global); err != nil {
					return err
				}
				return renderScope(app.out, id, global)
			})
		},
	}
}

func newAttachDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <attachment-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an attachment record (the stored image file is kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				if err := app.Attachments.Delete(cmd.Context(), id); err != nil {
					return err
				}
				return app.out.Render(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted attachment %d\n", id)
				})
			})
		},
	}
}

func newAttachBrokenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "broken",
		Short: "List attachments whose image file is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				broken, err := app.Attachments.BrokenLinks(cmd.Context())
				if err != nil {
					return err
				}
				return renderAttachments(app.out, broken)
			})
		},
	}
}

func renderAttachments(out *OutputFormatter, atts []model.Attachment) error {
	if atts == nil {
		atts = []model.Attachment{}
	}
	return out.Render(atts, func(w io.Writer) {
		if len(atts) == 0 {
			fmt.Fprintln(w, "No attachments.")
			return
		}
		fmt.Fprintln(w, "ID\tREF\tSCOPE\tPROJECT\tLOG\tFILE")
		for _, a := range atts {
			file := a.FilePath
			if !ingest.Exists(file) {
				file += " (missing)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				a.ID, model.RefMarker(a.ID), a.Scope(), idOrDash(a.ProjectID), idOrDash(a.LogID), file)
		}
	})
}

func renderScope(out *OutputFormatter, id int64, global bool) error {
	scope := model.Attachment{IsGlobal: global}.Scope()
	return out.Render(map[string]any{"id": id, "isGlobal": global}, func(w io.Writer) {
		fmt.Fprintf(w, "Attachment %d is now %s\n", id, scope)
	})
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func idOrDash(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
