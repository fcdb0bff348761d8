package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/repository"
)

// AttachmentService manages reference images: ingesting them, linking them to
// projects or logs, scoping them, and resolving [ref:n] markers.
type AttachmentService struct {
	projects    repository.ProjectRepository
	logs        repository.LogRepository
	attachments repository.AttachmentRepository
	ingester    Ingester
	events      *Notifier
	logger      *slog.Logger
	batchLimit  int
}

// DefaultBatchLimit is how many images AddBatch ingests at once unless
// WithBatchLimit says otherwise.
const DefaultBatchLimit = 2

func NewAttachmentService(
	projects repository.ProjectRepository,
	logs repository.LogRepository,
	attachments repository.AttachmentRepository,
	ingester Ingester,
	events *Notifier,
	logger *slog.Logger,
) *AttachmentService {
	return &AttachmentService{
		projects:    projects,
		logs:        logs,
		attachments: attachments,
		ingester:    ingester,
		events:      events,
		logger:      logger,
		batchLimit:  DefaultBatchLimit,
	}
}

// WithBatchLimit caps the number of concurrent ingestions in AddBatch.
// Values below one mean one.
func (s *AttachmentService) WithBatchLimit(n int) *AttachmentService {
	s.batchLimit = max(1, n)
	return s
}

// Add ingests src as a reference image and records it, owned by projectID
// (nil for none) and visible everywhere when isGlobal.
//
// Unlike project thumbnails, a failed ingestion aborts: no row is written and
// the error is returned.
func (s *AttachmentService) Add(ctx context.Context, src string, projectID *int64, isGlobal bool) (*model.Attachment, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, apperror.ValidationFailed("source", "source is required")
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	stored, err := s.ingest(src)
	if err != nil {
		return nil, err
	}

	id, err := s.attachments.Add(ctx, stored, projectID, isGlobal)
	if err != nil {
		s.logger.Error("failed to record attachment",
			slog.String("path", stored),
			slog.String("error", err.Error()),
		)
		discard(stored)
		return nil, fmt.Errorf("recording attachment: %w", err)
	}
	att := &model.Attachment{ID: id, FilePath: stored, ProjectID: projectID, IsGlobal: isGlobal}

	s.logger.Info("attachment added",
		slog.Int64("id", id),
		slog.String("path", stored),
		slog.Bool("global", isGlobal),
	)
	s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: deref(projectID)})
	return att, nil
}

// AddToLog ingests src and links it to a log entry and that entry's project.
func (s *AttachmentService) AddToLog(ctx context.Context, src string, logID int64) (*model.Attachment, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, apperror.ValidationFailed("source", "source is required")
	}
	entry, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}

	stored, err := s.ingest(src)
	if err != nil {
		return nil, err
	}

	projectID := entry.ProjectID
	att := &model.Attachment{FilePath: stored, LogID: &entry.ID, ProjectID: &projectID}
	if err := s.persist(ctx, att); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: projectID})
	return att, nil
}

// AddBatch attaches several images at once. Up to batchLimit ingestions run
// concurrently, whatever the ingester; rows are then written one by one in
// input order.
//
// The attachments that made it are returned together with the joined errors
// of those that did not.
func (s *AttachmentService) AddBatch(ctx context.Context, srcs []string, projectID *int64, isGlobal bool) ([]model.Attachment, error) {
	if len(srcs) == 0 {
		return []model.Attachment{}, nil
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	type outcome struct {
		stored string
		err    error
	}
	outcomes := make([]outcome, len(srcs))

	// Failures are collected per source, so the group itself never errors.
	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, src := range srcs {
		src = strings.TrimSpace(src)
		if src == "" {
			outcomes[i].err = apperror.ValidationFailed("source", "source is required")
			continue
		}
		g.Go(func() error {
			stored, err := s.ingest(src)
			outcomes[i] = outcome{stored: stored, err: err}
			return nil
		})
	}
	_ = g.Wait()

	created := make([]model.Attachment, 0, len(srcs))
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		if err := ctx.Err(); err != nil {
			discard(o.stored)
			errs = append(errs, fmt.Errorf("%s: %w", srcs[i], err))
			continue
		}

		att := &model.Attachment{FilePath: o.stored, ProjectID: projectID, IsGlobal: isGlobal}
		if err := s.persist(ctx, att); err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, *att)
	}

	s.logger.Info("attachment batch finished",
		slog.Int("requested", len(srcs)),
		slog.Int("created", len(created)),
		slog.Int("failed", len(errs)),
	)
	if len(created) > 0 {
		s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: deref(projectID)})
	}
	return created, errors.Join(errs...)
}

// Viewable lists the attachments project projectID may see: its own plus
// every global one.
func (s *AttachmentService) Viewable(ctx context.Context, projectID int64) ([]model.Attachment, error) {
	atts, err := s.attachments.ListViewable(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing viewable attachments: %w", err)
	}
	return atts, nil
}

func (s *AttachmentService) All(ctx context.Context) ([]model.Attachment, error) {
	atts, err := s.attachments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	return atts, nil
}

// ForLog lists the images linked to one log entry.
func (s *AttachmentService) ForLog(ctx context.Context, logID int64) ([]model.Attachment, error) {
	atts, err := s.attachments.ListByLog(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("listing log attachments: %w", err)
	}
	return atts, nil
}

func (s *AttachmentService) SetScope(ctx context.Context, id int64, isGlobal bool) error {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.attachments.UpdateScope(ctx, id, isGlobal); err != nil {
		return err
	}

	s.logger.Info("attachment scope changed", slog.Int64("id", id), slog.Bool("global", isGlobal))
	s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: deref(att.ProjectID)})
	return nil
}

// ToggleGlobal flips the global flag and returns the new value.
func (s *AttachmentService) ToggleGlobal(ctx context.Context, id int64) (bool, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	next := !att.IsGlobal
	if err := s.SetScope(ctx, id, next); err != nil {
		return att.IsGlobal, err
	}
	return next, nil
}

// Delete removes the row only. The stored file stays in the media directory.
func (s *AttachmentService) Delete(ctx context.Context, id int64) error {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("attachment deleted", slog.Int64("id", id), slog.String("path", att.FilePath))
	s.events.Publish(Event{Kind: AttachmentsChanged, ProjectID: deref(att.ProjectID)})
	return nil
}

// Resolve looks up the attachment behind a [ref:n] marker written in a log
// of projectID. An attachment the project may not see resolves like a
// missing one.
func (s *AttachmentService) Resolve(ctx context.Context, projectID, attachmentID int64) (*model.Attachment, error) {
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if !att.IsViewableBy(projectID) {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("attachment %d is not visible to project %d", attachmentID, projectID),
		}
	}
	return att, nil
}

// RefLink is one [ref:n] marker found in a log's text.
type RefLink struct {
	ID         int64
	Attachment *model.Attachment // nil when unresolvable
	Broken     bool              // resolvable, but the stored file is gone
}

// ResolveRefs resolves every marker in content, in order of appearance.
// Unresolvable markers are reported, not treated as errors.
func (s *AttachmentService) ResolveRefs(ctx context.Context, projectID int64, content string) ([]RefLink, error) {
	ids := model.RefIDs(content)
	links := make([]RefLink, 0, len(ids))
	for _, id := range ids {
		att, err := s.Resolve(ctx, projectID, id)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			links = append(links, RefLink{ID: id})
		case err != nil:
			return nil, err
		default:
			links = append(links, RefLink{ID: id, Attachment: att, Broken: !ingest.Exists(att.FilePath)})
		}
	}
	return links, nil
}

// BrokenLinks lists attachments whose stored file no longer exists.
func (s *AttachmentService) BrokenLinks(ctx context.Context) ([]model.Attachment, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	broken := make([]model.Attachment, 0)
	for _, a := range all {
		if !ingest.Exists(a.FilePath) {
			broken = append(broken, a)
		}
	}
	return broken, nil
}

func (s *AttachmentService) checkProject(ctx context.Context, projectID *int64) error {
	if projectID == nil {
		return nil
	}
	_, err := s.projects.GetByID(ctx, *projectID)
	return err
}

func (s *AttachmentService) ingest(src string) (string, error) {
	stored, err := s.ingester.Ingest(src, ingest.KindReference)
	if err != nil {
		s.logger.Error("failed to ingest attachment",
			slog.String("source", src),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	return stored, nil
}

// persist writes the row. If that fails the freshly stored file would be
// orphaned, so it is removed.
func (s *AttachmentService) persist(ctx context.Context, att *model.Attachment) error {
	if _, err := s.attachments.Create(ctx, att); err != nil {
		s.logger.Error("failed to record attachment",
			slog.String("path", att.FilePath),
			slog.String("error", err.Error()),
		)
		discard(att.FilePath)
		return fmt.Errorf("recording attachment: %w", err)
	}

	s.logger.Info("attachment added",
		slog.Int64("id", att.ID),
		slog.String("path", att.FilePath),
		slog.Bool("global", att.IsGlobal),
	)
	return nil
}

func discard(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
