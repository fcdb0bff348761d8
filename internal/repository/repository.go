// Package repository declares the data-access contracts the service layer
// depends on. The sqlite subpackage implements them; service tests use
// in-memory mocks.
//
// Every method is synchronous and returns fully materialised results.
// Missing identities surface as apperror.ErrNotFound and engine failures as
// apperror.ErrStorage.
package repository

import (
	"context"

	"github.com/sakif/proman/internal/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	// ListSorted orders by priority descending, then due date ascending.
	ListSorted(ctx context.Context) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	// Delete removes the project with its logs and every attachment linked
	// to either, atomically.
	Delete(ctx context.Context, id int64) error
}

type LogRepository interface {
	Create(ctx context.Context, entry *model.LogEntry) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.LogEntry, error)
	// ListDates returns the distinct days of a project, newest first.
	ListDates(ctx context.Context, projectID int64) ([]string, error)
	// ListByDate returns a day's entries, most recently created first.
	ListByDate(ctx context.Context, projectID int64, date string) ([]model.LogEntry, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	// DeleteByDate removes a day's entries and their attachments, atomically.
	DeleteByDate(ctx context.Context, projectID int64, date string) (int64, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, att *model.Attachment) (int64, error)
	Add(ctx context.Context, filePath string, projectID *int64, isGlobal bool) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Attachment, error)
	ListViewable(ctx context.Context, projectID int64) ([]model.Attachment, error)
	ListAll(ctx context.Context) ([]model.Attachment, error)
	ListByLog(ctx context.Context, logID int64) ([]model.Attachment, error)
	UpdateScope(ctx context.Context, id int64, isGlobal bool) error
	Delete(ctx context.Context, id int64) error
}
