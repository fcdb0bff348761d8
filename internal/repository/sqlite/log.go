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

var _ repository.LogRepository = (*LogDB)(nil)

const logColumns = `log_id, COALESCE(project_id, 0) AS project_id, COALESCE(timestamp, '') AS timestamp, content`

// LogDB is the log entry repository.
type LogDB struct {
	conn *sqlx.DB
}

// Create inserts a log entry. Several entries may share a (project, date).
// The owning project must exist; a dangling project_id is a foreign key
// violation and comes back as a storage error.
func (r *LogDB) Create(ctx context.Context, entry *model.LogEntry) (int64, error) {
	res, err := r.conn.NamedExecContext(ctx,
		`INSERT INTO log (project_id, timestamp, content)
		 VALUES (:project_id, :timestamp, :content)`,
		entry,
	)
	if err != nil {
		return 0, apperror.Storage("sqlite: creating log", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperror.Storage("sqlite: reading log id", err)
	}
	entry.ID = id

	return id, nil
}

func (r *LogDB) GetByID(ctx context.Context, id int64) (*model.LogEntry, error) {
	var e model.LogEntry
	err := r.conn.GetContext(ctx, &e, `SELECT `+logColumns+` FROM log WHERE log_id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("log", id)
		}
		return nil, apperror.Storage(fmt.Sprintf("sqlite: getting log %d", id), err)
	}
	return &e, nil
}

// ListDates returns the distinct days that have entries, newest first.
func (r *LogDB) ListDates(ctx context.Context, projectID int64) ([]string, error) {
	dates := []string{}
	err := r.conn.SelectContext(ctx, &dates,
		`SELECT DISTINCT timestamp
		 FROM log
		 WHERE project_id = ? AND timestamp IS NOT NULL
		 ORDER BY timestamp DESC`,
		projectID,
	)
	if err != nil {
		return nil, apperror.Storage(fmt.Sprintf("sqlite: listing log dates of project %d", projectID), err)
	}
	return dates, nil
}

// ListByDate returns a day's entries, most recently created (highest id) first.
func (r *LogDB) ListByDate(ctx context.Context, projectID int64, date string) ([]model.LogEntry, error) {
	entries := []model.LogEntry{}
	err := r.conn.SelectContext(ctx, &entries,
		`SELECT `+logColumns+`
		 FROM log
		 WHERE project_id = ? AND timestamp = ?
		 ORDER BY log_id DESC`,
		projectID, date,
	)
	if err != nil {
		return nil, apperror.Storage(fmt.Sprintf("sqlite: listing logs of project %d on %s", projectID, date), err)
	}
	return entries, nil
}

// UpdateContent replaces an entry's text in place. [ref:n] markers are
// stored as given; nothing checks that the referenced attachments exist.
func (r *LogDB) UpdateContent(ctx context.Context, id int64, content string) error {
	res, err := r.conn.ExecContext(ctx, `UPDATE log SET content = ? WHERE log_id = ?`, content, id)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("sqlite: updating log %d", id), err)
	}
	n, err := rowsAffected(res, "sqlite: updating log")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("log", id)
	}
	return nil
}

// DeleteByDate removes every entry of a project's day together with the
// attachments linked to those entries, in one transaction, and returns how
// many entries were removed. A day with no entries is NotFound.
func (r *LogDB) DeleteByDate(ctx context.Context, projectID int64, date string) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.conn, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM attachment
			 WHERE log_id IN (SELECT log_id FROM log WHERE project_id = ? AND timestamp = ?)`,
			projectID, date,
		)
		if err != nil {
			return apperror.Storage(fmt.Sprintf("sqlite: deleting attachments of project %d on %s", projectID, date), err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM log WHERE project_id = ? AND timestamp = ?`, projectID, date)
		if err != nil {
			return apperror.Storage(fmt.Sprintf("sqlite: deleting logs of project %d on %s", projectID, date), err)
		}
		if deleted, err = rowsAffected(res, "sqlite: deleting logs"); err != nil {
			return err
		}
		if deleted == 0 {
			return &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("no logs for project %d on %s", projectID, date),
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
