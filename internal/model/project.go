// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. They play the role classes
// play in other languages, but without inheritance.
//
// The `db:"..."` tags map struct fields to the column names of the legacy
// desktop database (project_id, log_id, attachment_id, ...), so sqlx can
// scan rows straight into these types.
package model

// DueDateLayout is the sortable ISO form due dates and log days are written in.
// Storage does not enforce it; it is only the format new values are produced in.
const DueDateLayout = "2006-01-02"

// Project is the top-level tracked unit of work.
//
// WHY ThumbnailPath *string?
// A project may have no thumbnail. A nil pointer maps to SQL NULL, which is
// what the column holds for thumbnail-less projects (and for every project in
// databases created before thumbnails existed).
type Project struct {
	ID            int64   `json:"id"                      db:"project_id"`
	Name          string  `json:"name"                    db:"name"`
	Priority      int     `json:"priority"                db:"priority"` // higher = more urgent
	DueDate       string  `json:"dueDate"                 db:"due_date"`
	ThumbnailPath *string `json:"thumbnailPath,omitempty" db:"thumbnail_path"`
}

// HasThumbnail reports whether the project references a stored thumbnail.
func (p Project) HasThumbnail() bool {
	return p.ThumbnailPath != nil && *p.ThumbnailPath != ""
}

// Thumbnail returns the thumbnail path, or "" when there is none.
func (p Project) Thumbnail() string {
	if p.ThumbnailPath == nil {
		return ""
	}
	return *p.ThumbnailPath
}

// PriorityLabel names the three classic levels: 3 is HIGH, 2 MEDIUM, 1 LOW.
// Every other value, including the wider 0..10 range, is "N/A".
func (p Project) PriorityLabel() string {
	switch p.Priority {
	case 3:
		return "HIGH"
	case 2:
		return "MEDIUM"
	case 1:
		return "LOW"
	default:
		return "N/A"
	}
}
