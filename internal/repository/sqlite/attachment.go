package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/repository"
)

var _ repository.AttachmentRepository = (*AttachmentDB)(nil)

// The flag columns are nullable in legacy files.
const attachmentColumns = `attachment_id, file_path, log_id, project_id, COALESCE(is_global, 0) AS is_global, COALESCE(is_thumbnail, 0) AS is_thumbnail`

// AttachmentDB is the attachment repository.
type AttachmentDB struct {
	conn *sqlx.DB
}

// Create inserts an attachment with whatever links it carries and sets att.ID.
func (r *AttachmentDB) Create(ctx context.Context, att *model.Attachment) (int64, error) {
	res, err := r.conn.NamedExecContext(ctx,
		`INSERT INTO attachment (file_path, log_id, project_id, is_global, is_thumbnail)
		 VALUES (:file_path, :log_id, :project_id, :is_global, :is_thumbnail)`,
		att,
	)
	if err != nil {
		return 0, apperror.Storage("sqlite: creating attachment", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperror.Storage("sqlite: reading attachment id", err)
	}
	att.ID = id

	return id, nil
}

// Add inserts a reference image that is not linked to any log: scoped to
// projectID, or global, or (both nil and false) floating.
func (r *AttachmentDB) Add(ctx context.Context, filePath string, projectID *int64, isGlobal bool) (int64, error) {
	return r.Create(ctx, &model.Attachment{
		FilePath:  filePath,
		ProjectID: projectID,
		IsGlobal:  isGlobal,
	})
}

func (r *AttachmentDB) GetByID(ctx context.Context, id int64) (*model.Attachment, error) {
	var a model.Attachment
	err := r.conn.GetContext(ctx, &a,
		`SELECT `+attachmentColumns+` FROM attachment WHERE attachment_id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("attachment", id)
		}
		return nil, apperror.Storage(fmt.Sprintf("sqlite: getting attachment %d", id), err)
	}
	return &a, nil
}

// ListViewable returns the attachments a project's detail view shows.
// The WHERE clause is model.Attachment.IsViewableBy in SQL form.
func (r *AttachmentDB) ListViewable(ctx context.Context, projectID int64) ([]model.Attachment, error) {
	return r.list(ctx, fmt.Sprintf("sqlite: listing attachments viewable by project %d", projectID),
		`WHERE project_id = ? OR is_global = 1`, projectID)
}

// ListAll returns every attachment, for the batch manager.
func (r *AttachmentDB) ListAll(ctx context.Context) ([]model.Attachment, error) {
	return r.list(ctx, "sqlite: listing attachments", "")
}

// ListByLog returns the attachments linked to one log entry.
func (r *AttachmentDB) ListByLog(ctx context.Context, logID int64) ([]model.Attachment, error) {
	return r.list(ctx, fmt.Sprintf("sqlite: listing attachments of log %d", logID),
		`WHERE log_id = ?`, logID)
}

func (r *AttachmentDB) list(ctx context.Context, op, where string, args ...any) ([]model.Attachment, error) {
	atts := []model.Attachment{}
	err := r.conn.SelectContext(ctx, &atts,
		`SELECT `+attachmentColumns+` FROM attachment `+where+` ORDER BY attachment_id`, args...)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return atts, nil
}

// UpdateScope flips an attachment between project-specific and global.
func (r *AttachmentDB) UpdateScope(ctx context.Context, id int64, isGlobal bool) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE attachment SET is_global = ? WHERE attachment_id = ?`, isGlobal, id)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("sqlite: updating scope of attachment %d", id), err)
	}
	n, err := rowsAffected(res, "sqlite: updating attachment scope")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("attachment", id)
	}
	return nil
}

// Delete removes one attachment row. Nothing references attachments, so
// there is no cascade. The stored image file is left on disk.
func (r *AttachmentDB) Delete(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM attachment WHERE attachment_id = ?`, id)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("sqlite: deleting attachment %d", id), err)
	}
	n, err := rowsAffected(res, "sqlite: deleting attachment")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("attachment", id)
	}
	return nil
}
