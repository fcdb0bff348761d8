package service

import (
	"context"
	"errors"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/model"
)

// DetailState is where a project's detail view is in its edit cycle.
//
//	NoDateSelected ─SelectDate─► DateSelected ─Edit─► Editing ─Save─► Saved
//	                                  ▲                  │  ▲          │
//	                                  └──SelectDate──────┘  └─Edit─────┤
//	                                                    Save fails ─► SaveFailed
//
// SelectDate is accepted from every state and drops any unsaved draft.
type DetailState int

const (
	NoDateSelected DetailState = iota
	DateSelected
	Editing
	Saved
	SaveFailed
)

func (s DetailState) String() string {
	switch s {
	case NoDateSelected:
		return "no_date_selected"
	case DateSelected:
		return "date_selected"
	case Editing:
		return "editing"
	case Saved:
		return "saved"
	case SaveFailed:
		return "save_failed"
	default:
		return "unknown"
	}
}

// DetailView holds the in-memory state of one open project view. It is not
// persisted and not safe for concurrent use; one view belongs to one window.
type DetailView struct {
	logs      *LogService
	projectID int64

	state   DetailState
	date    string
	current *model.LogEntry // latest entry of date, nil when the day is empty
	draft   string
	err     error
}

func NewDetailView(logs *LogService, projectID int64) *DetailView {
	return &DetailView{logs: logs, projectID: projectID}
}

// SelectDate loads the latest entry of date. A day without entries is a
// valid selection; saving then creates the first entry.
func (v *DetailView) SelectDate(ctx context.Context, date string) error {
	latest, err := v.logs.Latest(ctx, v.projectID, date)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		latest = nil
	case err != nil:
		return err
	}

	v.state = DateSelected
	v.date = date
	v.current = latest
	v.draft = ""
	v.err = nil
	if latest != nil {
		v.draft = latest.Content
	}
	return nil
}

// Edit replaces the draft text. A date must be selected first.
func (v *DetailView) Edit(text string) error {
	if v.state == NoDateSelected {
		return apperror.ValidationFailed("date", "select a date before editing")
	}
	v.state = Editing
	v.draft = text
	return nil
}

// Save writes the draft: over the shown entry when there is one, otherwise as
// a new entry for the selected date. On failure the draft is kept so the
// user can retry.
func (v *DetailView) Save(ctx context.Context) error {
	if v.state != Editing && v.state != SaveFailed {
		return apperror.ValidationFailed("draft", "nothing to save")
	}

	var err error
	if v.current != nil {
		if err = v.logs.SaveText(ctx, v.current.ID, v.draft); err == nil {
			v.current.Content = v.draft
		}
	} else {
		var created *model.LogEntry
		if created, err = v.logs.Add(ctx, v.projectID, v.date, v.draft); err == nil {
			v.current = created
		}
	}

	if err != nil {
		v.state = SaveFailed
		v.err = err
		return err
	}
	v.state = Saved
	v.err = nil
	return nil
}

func (v *DetailView) State() DetailState { return v.state }

// Current returns the entry on display, or nil when the selected day has none.
func (v *DetailView) Current() *model.LogEntry {
	if v.current == nil {
		return nil
	}
	c := *v.current
	return &c
}

// HasLog reports whether the selected day has an entry.
func (v *DetailView) HasLog() bool { return v.current != nil }

func (v *DetailView) Date() string  { return v.date }
func (v *DetailView) Draft() string { return v.draft }

// Err is the error of the last failed save.
func (v *DetailView) Err() error { return v.err }
