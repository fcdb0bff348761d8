package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestIsViewableBy(t *testing.T) {
	tests := []struct {
		name      string
		att       Attachment
		projectID int64
		want      bool
	}{
		{"global without project", Attachment{IsGlobal: true}, 1, true},
		{"global owned by other project", Attachment{IsGlobal: true, ProjectID: ptr[int64](2)}, 1, true},
		{"project specific, same project", Attachment{ProjectID: ptr[int64](1)}, 1, true},
		{"project specific, other project", Attachment{ProjectID: ptr[int64](2)}, 1, false},
		{"floating, not global", Attachment{}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.att.IsViewableBy(tt.projectID))
		})
	}
}

func TestLatestLog(t *testing.T) {
	_, ok := LatestLog(nil)
	assert.False(t, ok, "empty day has no latest entry")

	entries := []LogEntry{
		{ID: 4, Content: "middle"},
		{ID: 9, Content: "newest"},
		{ID: 2, Content: "oldest"},
	}
	latest, ok := LatestLog(entries)
	assert.True(t, ok)
	assert.Equal(t, int64(9), latest.ID)
	assert.Equal(t, "newest", latest.Content)
}

func TestRefIDs(t *testing.T) {
	content := "see [ref:7] and [ref:12], again [ref:7]; not [ref:x] or [ref:]"
	assert.Equal(t, []int64{7, 12, 7}, RefIDs(content))
	assert.Empty(t, RefIDs("plain text"))
	assert.Equal(t, "[ref:7]", RefMarker(7))
}

func TestProjectThumbnail(t *testing.T) {
	p := Project{Name: "Launch"}
	assert.False(t, p.HasThumbnail())
	assert.Equal(t, "", p.Thumbnail())

	p.ThumbnailPath = ptr("media/thumb_1.png")
	assert.True(t, p.HasThumbnail())
	assert.Equal(t, "media/thumb_1.png", p.Thumbnail())
}

func TestProjectPriorityLabel(t *testing.T) {
	tests := []struct {
		priority int
		want     string
	}{
		{3, "HIGH"},
		{2, "MEDIUM"},
		{1, "LOW"},
		{0, "N/A"},
		{7, "N/A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Project{Priority: tt.priority}.PriorityLabel(), "priority %d", tt.priority)
	}
}
