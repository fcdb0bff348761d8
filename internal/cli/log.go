package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/service"
)

// NewLogCommand creates the log command group.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"logs"},
		Short:   "Write and read a project's dated log",
	}

	cmd.AddCommand(newLogAddCommand(rootOpts))
	cmd.AddCommand(newLogDatesCommand(rootOpts))
	cmd.AddCommand(newLogShowCommand(rootOpts))
	cmd.AddCommand(newLogEditCommand(rootOpts))
	cmd.AddCommand(newLogDeleteDateCommand(rootOpts))
	return cmd
}

// readText returns the --text flag, or stdin when the flag is "-".
func readText(cmd *cobra.Command, text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "reading stdin", err)
	}
	return string(b), nil
}

func newLogAddCommand(rootOpts *RootOptions) *cobra.Command {
	var date, text string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a log entry (several per day are allowed; the newest is shown)",
		Example: `  proman log add 1 --date 2026-01-05 --text "see [ref:7]"
  echo "notes" | proman log add 1 --text -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			content, err := readText(cmd, text)
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				e, err := app.Logs.Add(cmd.Context(), projectID, date, content)
				if err != nil {
					return err
				}
				return app.out.Render(e, func(w io.Writer) {
					fmt.Fprintf(w, "Added log %d for %s\n", e.ID, e.Date)
				})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&text, "text", "", `entry text, or "-" to read stdin`)
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newLogDatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dates <project-id>",
		Short: "List the days that have log entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				dates, err := app.Logs.Dates(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				return app.out.Render(dates, func(w io.Writer) {
					for _, d := range dates {
						fmt.Fprintln(w, d)
					}
				})
			})
		},
	}
}

// logDay is what "log show" reports for one day.
type logDay struct {
	Date        string             `json:"date"`
	Entry       *model.LogEntry    `json:"entry"`
	Refs        []refView          `json:"refs"`
	Attachments []model.Attachment `json:"attachments"`
}

type refView struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"` // ok, broken, unresolved
	FilePath string `json:"filePath,omitempty"`
}

func newLogShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id> <date>",
		Short: "Show the entry of a day, with its [ref:n] links resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			date := args[1]
			return withApp(rootOpts, cmd, func(app *App) error {
				ctx := cmd.Context()
				view := service.NewDetailView(app.Logs, projectID)
				if err := view.SelectDate(ctx, date); err != nil {
					return err
				}

				day := logDay{Date: date, Refs: []refView{}, Attachments: []model.Attachment{}}
				if entry := view.Current(); entry != nil {
					day.Entry = entry
					links, err := app.Attachments.ResolveRefs(ctx, projectID, entry.Content)
					if err != nil {
						return err
					}
					for _, l := range links {
						day.Refs = append(day.Refs, toRefView(l))
					}
					if day.Attachments, err = app.Attachments.ForLog(ctx, entry.ID); err != nil {
						return err
					}
				}

				return app.out.Render(day, func(w io.Writer) {
					if day.Entry == nil {
						fmt.Fprintf(w, "No log for %s.\n", date)
						return
					}
					fmt.Fprintf(w, "Log %d, %s\n", day.Entry.ID, day.Entry.Date)
					fmt.Fprintln(w, strings.Repeat("-", 40))
					fmt.Fprintln(w, day.Entry.Content)
					fmt.Fprintln(w, strings.Repeat("-", 40))
					for _, r := range day.Refs {
						if r.FilePath == "" {
							fmt.Fprintf(w, "%s\t%s\n", model.RefMarker(r.ID), r.Status)
							continue
						}
						fmt.Fprintf(w, "%s\t%s\t%s\n", model.RefMarker(r.ID), r.Status, r.FilePath)
					}
					if n := len(day.Attachments); n > 0 {
						fmt.Fprintf(w, "%d image(s) attached to this entry\n", n)
					}
				})
			})
		},
	}
}

func toRefView(l service.RefLink) refView {
	switch {
	case l.Attachment == nil:
		return refView{ID: l.ID, Status: "unresolved"}
	case l.Broken:
		return refView{ID: l.ID, Status: "broken", FilePath: l.Attachment.FilePath}
	default:
		return refView{ID: l.ID, Status: "ok", FilePath: l.Attachment.FilePath}
	}
}

func newLogEditCommand(rootOpts *RootOptions) *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "edit <project-id> <date>",
		Short: "Replace the text of a day's entry, creating it if the day is empty",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			content, err := readText(cmd, text)
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				ctx := cmd.Context()
				view := service.NewDetailView(app.Logs, projectID)
				if err := view.SelectDate(ctx, args[1]); err != nil {
					return err
				}
				created := !view.HasLog()
				if err := view.Edit(content); err != nil {
					return err
				}
				if err := view.Save(ctx); err != nil {
					return err
				}

				entry := view.Current()
				return app.out.Render(entry, func(w io.Writer) {
					verb := "Saved"
					if created {
						verb = "Created"
					}
					fmt.Fprintf(w, "%s log %d for %s\n", verb, entry.ID, entry.Date)
				})
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", `new text, or "-" to read stdin`)
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newLogDeleteDateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-date <project-id> <date>",
		Short: "Delete every entry of a day, with their attachments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				n, err := app.Logs.DeleteDate(cmd.Context(), projectID, args[1])
				if errors.Is(err, apperror.ErrNotFound) {
					return WrapExitError(ExitNotFound, fmt.Sprintf("no log on %s", args[1]), err)
				}
				if err != nil {
					return err
				}
				return app.out.Render(map[string]any{"date": args[1], "deleted": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %d entr%s on %s\n", n, plural(n, "y", "ies"), args[1])
				})
			})
		},
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
