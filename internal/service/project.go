package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/repository"
)

// ProjectInput is what a form (or the CLI) submits for create and update.
//
// THUMBNAIL RULES:
//   - ThumbnailSource empty          → keep whatever the project has (nothing on create)
//   - ClearThumbnail                 → remove the thumbnail, ThumbnailSource ignored
//   - ThumbnailSource == stored path → already ingested, kept as is
//   - anything else                  → ingested as a thumbnail
type ProjectInput struct {
	Name            string `field:"name" validate:"required"`
	Priority        int    `field:"priority" validate:"min=0,max=10"`
	DueDate         string `field:"due_date" validate:"required,datetime=2006-01-02"`
	ThumbnailSource string `validate:"-"`
	ClearThumbnail  bool   `validate:"-"`
}

func (in *ProjectInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.ThumbnailSource = strings.TrimSpace(in.ThumbnailSource)
}

// ProjectService handles project creation, editing and deletion.
type ProjectService struct {
	repo     repository.ProjectRepository
	ingester Ingester
	events   *Notifier
	logger   *slog.Logger
}

func NewProjectService(repo repository.ProjectRepository, ingester Ingester, events *Notifier, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:     repo,
		ingester: ingester,
		events:   events,
		logger:   logger,
	}
}

// Create validates the input, ingests the thumbnail if one was given, and
// persists the project.
//
// A thumbnail that fails to ingest does not block the project: it is created
// without one and the failure is logged as a warning.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*model.Project, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:     in.Name,
		Priority: in.Priority,
		DueDate:  in.DueDate,
	}
	if in.ThumbnailSource != "" && !in.ClearThumbnail {
		project.ThumbnailPath = s.ingestThumbnail(in.ThumbnailSource)
	}

	if _, err := s.repo.Create(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.Int64("id", project.ID),
		slog.String("name", project.Name),
		slog.Bool("thumbnail", project.HasThumbnail()),
	)
	s.events.Publish(Event{Kind: ProjectsChanged, ProjectID: project.ID})
	return project, nil
}

// Update replaces every field of an existing project.
// Returns apperror.ErrNotFound if the project does not exist.
func (s *ProjectService) Update(ctx context.Context, id int64, in ProjectInput) (*model.Project, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// Fetch first: NotFound comes from here, and the existing thumbnail is
	// what "keep" means below.
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		ID:            id,
		Name:          in.Name,
		Priority:      in.Priority,
		DueDate:       in.DueDate,
		ThumbnailPath: existing.ThumbnailPath,
	}
	switch {
	case in.ClearThumbnail:
		project.ThumbnailPath = nil
	case in.ThumbnailSource == "", in.ThumbnailSource == existing.Thumbnail():
		// keep
	default:
		if stored := s.ingestThumbnail(in.ThumbnailSource); stored != nil {
			project.ThumbnailPath = stored
		}
	}

	if err := s.repo.Update(ctx, project); err != nil {
		s.logger.Error("failed to update project",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating project: %w", err)
	}

	s.logger.Info("project updated",
		slog.Int64("id", id),
		slog.String("name", project.Name),
	)
	s.events.Publish(Event{Kind: ProjectsChanged, ProjectID: id})
	return project, nil
}

// Delete removes the project together with its logs and their attachments.
// Stored image files stay on disk.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("project deleted", slog.Int64("id", id))
	s.events.Publish(Event{Kind: ProjectsChanged, ProjectID: id})
	return nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*model.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every project, most urgent first.
func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	projects, err := s.repo.ListSorted(ctx)
	if err != nil {
		s.logger.Error("failed to list projects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// ingestThumbnail returns the stored path, or nil when ingestion failed.
func (s *ProjectService) ingestThumbnail(src string) *string {
	stored, err := s.ingester.Ingest(src, ingest.KindThumbnail)
	if err != nil {
		s.logger.Warn("thumbnail not ingested, keeping project without it",
			slog.String("source", src),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return &stored
}
