package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/repository"
)

type logInput struct {
	ProjectID int64  `field:"project_id" validate:"required"`
	Date      string `field:"date" validate:"required,datetime=2006-01-02"`
	Content   string `field:"content" validate:"required"`
}

// LogService manages the dated diary entries of a project.
type LogService struct {
	projects repository.ProjectRepository
	logs     repository.LogRepository
	events   *Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewLogService(projects repository.ProjectRepository, logs repository.LogRepository, events *Notifier, logger *slog.Logger) *LogService {
	return &LogService{
		projects: projects,
		logs:     logs,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Add creates a new entry. Several entries may share a day; the newest one
// is what the detail view shows.
//
// An empty date means today. Content that is only whitespace is rejected,
// anything else is stored exactly as given.
func (s *LogService) Add(ctx context.Context, projectID int64, date, content string) (*model.LogEntry, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format(DateLayout)
	}

	in := logInput{ProjectID: projectID, Date: date, Content: strings.TrimSpace(content)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// Surface a missing project as NotFound instead of a foreign key error.
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	entry := &model.LogEntry{ProjectID: projectID, Date: date, Content: content}
	if _, err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to create log",
			slog.Int64("project_id", projectID),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating log: %w", err)
	}

	s.logger.Info("log created",
		slog.Int64("id", entry.ID),
		slog.Int64("project_id", projectID),
		slog.String("date", date),
	)
	s.events.Publish(Event{Kind: LogsChanged, ProjectID: projectID})
	return entry, nil
}

// Dates lists the days that have at least one entry, newest first.
func (s *LogService) Dates(ctx context.Context, projectID int64) ([]string, error) {
	dates, err := s.logs.ListDates(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing log dates: %w", err)
	}
	return dates, nil
}

func (s *LogService) ByDate(ctx context.Context, projectID int64, date string) ([]model.LogEntry, error) {
	entries, err := s.logs.ListByDate(ctx, projectID, date)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	return entries, nil
}

// Latest returns the entry shown for a day: the most recently created one.
// Returns apperror.ErrNotFound when the day has no entry.
func (s *LogService) Latest(ctx context.Context, projectID int64, date string) (*model.LogEntry, error) {
	entries, err := s.ByDate(ctx, projectID, date)
	if err != nil {
		return nil, err
	}
	latest, ok := model.LatestLog(entries)
	if !ok {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("no log for project %d on %s", projectID, date),
		}
	}
	return &latest, nil
}

// SaveText replaces an entry's content verbatim, [ref:n] markers included.
func (s *LogService) SaveText(ctx context.Context, logID int64, content string) error {
	entry, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return err
	}

	if err := s.logs.UpdateContent(ctx, logID, content); err != nil {
		s.logger.Error("failed to save log text",
			slog.Int64("id", logID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("saving log: %w", err)
	}

	s.logger.Info("log saved", slog.Int64("id", logID), slog.Int("refs", len(model.RefIDs(content))))
	s.events.Publish(Event{Kind: LogsChanged, ProjectID: entry.ProjectID})
	return nil
}

// DeleteDate removes every entry of one day, with their attachments, and
// returns how many entries went.
func (s *LogService) DeleteDate(ctx context.Context, projectID int64, date string) (int64, error) {
	n, err := s.logs.DeleteByDate(ctx, projectID, date)
	if err != nil {
		return 0, err
	}

	s.logger.Info("log day deleted",
		slog.Int64("project_id", projectID),
		slog.String("date", date),
		slog.Int64("entries", n),
	)
	s.events.Publish(Event{Kind: LogsChanged, ProjectID: projectID})
	s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: projectID})
	return n, nil
}
