package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/service"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "p"},
		Short:   "Create, list, edit and delete projects",
	}

	cmd.AddCommand(newProjectAddCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectShowCommand(rootOpts))
	cmd.AddCommand(newProjectUpdateCommand(rootOpts))
	cmd.AddCommand(newProjectDeleteCommand(rootOpts))
	return cmd
}

func newProjectAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in service.ProjectInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		Example: `  proman project add --name Launch --priority 3 --due 2026-01-10
  proman project add --name Docs --due 2026-01-01 --thumbnail ~/cover.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				p, err := app.Projects.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				if in.ThumbnailSource != "" && !p.HasThumbnail() {
					app.out.VerboseLog("thumbnail %s could not be ingested; project created without it", in.ThumbnailSource)
				}
				return app.out.Render(p, func(w io.Writer) {
					fmt.Fprintf(w, "Created project %d: %s\n", p.ID, p.Name)
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().IntVar(&in.Priority, "priority", 0, "priority, 0 to 10 (higher is more urgent)")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.ThumbnailSource, "thumbnail", "", "image to use as the project thumbnail")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects, most urgent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				projects, err := app.Projects.List(cmd.Context())
				if err != nil {
					return err
				}
				return app.out.Render(projects, func(w io.Writer) {
					if len(projects) == 0 {
						fmt.Fprintln(w, "No projects yet.")
						return
					}
					fmt.Fprintln(w, "ID\tPRIORITY\tDUE\tNAME\tTHUMBNAIL")
					for _, p := range projects {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, priorityText(p), p.DueDate, p.Name, thumbnailState(p))
					}
				})
			})
		},
	}
}

// projectDetail is what "project show" reports.
type projectDetail struct {
	Project     *model.Project     `json:"project"`
	LogDates    []string           `json:"logDates"`
	Attachments []model.Attachment `json:"attachments"`
}

func newProjectShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its log days and visible attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				ctx := cmd.Context()
				p, err := app.Projects.Get(ctx, id)
				if err != nil {
					return err
				}
				dates, err := app.Logs.Dates(ctx, id)
				if err != nil {
					return err
				}
				atts, err := app.Attachments.Viewable(ctx, id)
				if err != nil {
					return err
				}

				detail := projectDetail{Project: p, LogDates: dates, Attachments: atts}
				return app.out.Render(detail, func(w io.Writer) {
					fmt.Fprintf(w, "Project:\t%s\n", p.Name)
					fmt.Fprintf(w, "ID:\t%d\n", p.ID)
					fmt.Fprintf(w, "Priority:\t%s\n", priorityText(*p))
					fmt.Fprintf(w, "Due:\t%s\n", p.DueDate)
					fmt.Fprintf(w, "Thumbnail:\t%s\n", thumbnailState(*p))
					fmt.Fprintf(w, "Log days:\t%d\n", len(dates))
					for _, d := range dates {
						fmt.Fprintf(w, "\t%s\n", d)
					}
					fmt.Fprintf(w, "Attachments:\t%d\n", len(atts))
					for _, a := range atts {
						fmt.Fprintf(w, "\t%s\t%s\n", model.RefMarker(a.ID), a.Scope())
					}
				})
			})
		},
	}
}

func newProjectUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var in service.ProjectInput

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Edit a project; flags left out keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				ctx := cmd.Context()
				current, err := app.Projects.Get(ctx, id)
				if err != nil {
					return err
				}

				flags := cmd.Flags()
				if !flags.Changed("name") {
					in.Name = current.Name
				}
				if !flags.Changed("priority") {
					in.Priority = current.Priority
				}
				if !flags.Changed("due") {
					in.DueDate = current.DueDate
				}

				p, err := app.Projects.Update(ctx, id, in)
				if err != nil {
					return err
				}
				return app.out.Render(p, func(w io.Writer) {
					fmt.Fprintf(w, "Updated project %d: %s\n", p.ID, p.Name)
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().IntVar(&in.Priority, "priority", 0, "priority, 0 to 10")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.ThumbnailSource, "thumbnail", "", "new thumbnail image")
	cmd.Flags().BoolVar(&in.ClearThumbnail, "clear-thumbnail", false, "remove the thumbnail")
	cmd.MarkFlagsMutuallyExclusive("thumbnail", "clear-thumbnail")
	return cmd
}

func newProjectDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project with all of its logs and attachments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				if err := app.Projects.Delete(cmd.Context(), id); err != nil {
					return err
				}
				return app.out.Render(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted project %d\n", id)
				})
			})
		},
	}
}

// priorityText is the number with its level name, e.g. "3 (HIGH)", or just
// the number for values without one.
func priorityText(p model.Project) string {
	if label := p.PriorityLabel(); label != "N/A" {
		return fmt.Sprintf("%d (%s)", p.Priority, label)
	}
	return strconv.Itoa(p.Priority)
}

// thumbnailState is "-" for none, "missing" for a broken link, else the path.
func thumbnailState(p model.Project) string {
	switch {
	case !p.HasThumbnail():
		return "-"
	case !ingest.Exists(p.Thumbnail()):
		return "missing"
	default:
		return p.Thumbnail()
	}
}
