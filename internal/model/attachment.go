package model

// Attachment is a stored image. It may belong to a log, to a project, to
// both, or to neither (a floating global image), but always has a file path.
type Attachment struct {
	ID          int64  `json:"id"                  db:"attachment_id"`
	FilePath    string `json:"filePath"            db:"file_path"`
	LogID       *int64 `json:"logId,omitempty"     db:"log_id"`
	ProjectID   *int64 `json:"projectId,omitempty" db:"project_id"`
	IsGlobal    bool   `json:"isGlobal"            db:"is_global"`
	IsThumbnail bool   `json:"isThumbnail"         db:"is_thumbnail"`
}

// IsViewableBy is the attachment scope rule: an attachment shows up in a
// project's detail view when it belongs to that project OR is global.
//
// This is the one definition of the rule. The SQL scope query in
// repository/sqlite is tested against it.
func (a Attachment) IsViewableBy(projectID int64) bool {
	if a.IsGlobal {
		return true
	}
	return a.ProjectID != nil && *a.ProjectID == projectID
}

// Scope is the label the batch manager shows for an attachment.
func (a Attachment) Scope() string {
	if a.IsGlobal {
		return "GLOBAL"
	}
	return "Project Specific"
}
