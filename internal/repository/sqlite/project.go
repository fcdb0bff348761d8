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

// compile-time check that *ProjectDB implements repository.ProjectRepository
var _ repository.ProjectRepository = (*ProjectDB)(nil)

// projectColumns is the SELECT list matching model.Project's db tags.
// due_date is nullable in legacy files; COALESCE keeps the string scan safe.
const projectColumns = `project_id, name, priority, COALESCE(due_date, '') AS due_date, thumbnail_path`

// ProjectDB is the project repository.
type ProjectDB struct {
	conn *sqlx.DB
}

// Create inserts a project and sets project.ID to the identity SQLite assigned.
//
// NAMED PARAMETERS:
// :name, :priority, ... are filled from the struct's db tags by sqlx.
// They are still bound parameters, never string-concatenated SQL.
func (r *ProjectDB) Create(ctx context.Context, project *model.Project) (int64, error) {
	res, err := r.conn.NamedExecContext(ctx,
		`INSERT INTO project (name, priority, due_date, thumbnail_path)
		 VALUES (:name, :priority, :due_date, :thumbnail_path)`,
		project,
	)
	if err != nil {
		return 0, apperror.Storage("sqlite: creating project", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperror.Storage("sqlite: reading project id", err)
	}
	project.ID = id

	return id, nil
}

// GetByID retrieves a single project.
// sql.ErrNoRows is translated to apperror.ErrNotFound.
func (r *ProjectDB) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := r.conn.GetContext(ctx, &p,
		`SELECT `+projectColumns+` FROM project WHERE project_id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, apperror.Storage(fmt.Sprintf("sqlite: getting project %d", id), err)
	}
	return &p, nil
}

// ListSorted returns every project, most urgent first: priority descending,
// then earliest due date. project_id is the final tie-breaker so the order
// is total and stable across calls.
func (r *ProjectDB) ListSorted(ctx context.Context) ([]model.Project, error) {
	projects := []model.Project{}
	err := r.conn.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+`
		 FROM project
		 ORDER BY priority DESC, due_date ASC, project_id ASC`)
	if err != nil {
		return nil, apperror.Storage("sqlite: listing projects", err)
	}
	return projects, nil
}

// Update replaces every mutable column of the project.
// A missing identity is reported as NotFound rather than silently ignored.
func (r *ProjectDB) Update(ctx context.Context, project *model.Project) error {
	res, err := r.conn.NamedExecContext(ctx,
		`UPDATE project
		 SET name = :name, priority = :priority, due_date = :due_date, thumbnail_path = :thumbnail_path
		 WHERE project_id = :project_id`,
		project,
	)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("sqlite: updating project %d", project.ID), err)
	}

	n, err := rowsAffected(res, "sqlite: updating project")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("project", project.ID)
	}
	return nil
}

// Delete removes a project and everything hanging off it, in one transaction.
//
// ORDER MATTERS:
//  1. attachments of the project's logs, found through log.project_id,
//     so the logs must still exist
//  2. attachments owned directly by the project
//  3. the project's logs
//  4. the project row
//
// With foreign keys on, any other order fails on a dangling reference.
// A missing project rolls everything back and returns NotFound.
func (r *ProjectDB) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.conn, func(tx *sqlx.Tx) error {
		steps := []struct{ op, query string }{
			{"deleting log attachments", `DELETE FROM attachment WHERE log_id IN (SELECT log_id FROM log WHERE project_id = ?)`},
			{"deleting project attachments", `DELETE FROM attachment WHERE project_id = ?`},
			{"deleting logs", `DELETE FROM log WHERE project_id = ?`},
		}
		for _, s := range steps {
			if _, err := tx.ExecContext(ctx, s.query, id); err != nil {
				return apperror.Storage(fmt.Sprintf("sqlite: %s of project %d", s.op, id), err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM project WHERE project_id = ?`, id)
		if err != nil {
			return apperror.Storage(fmt.Sprintf("sqlite: deleting project %d", id), err)
		}
		n, err := rowsAffected(res, "sqlite: deleting project")
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NotFound("project", id)
		}
		return nil
	})
}
