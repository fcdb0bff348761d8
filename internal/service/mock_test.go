package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
	"github.com/sakif/proman/internal/repository"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// One in-memory store backs all three repository interfaces, so cascades
// behave like the SQLite implementation without touching disk.
// failOn makes the named operation return a storage error.

type mockStore struct {
	mu          sync.Mutex
	nextID      int64
	projects    map[int64]model.Project
	logs        map[int64]model.LogEntry
	attachments map[int64]model.Attachment
	failOn      map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:    make(map[int64]model.Project),
		logs:        make(map[int64]model.LogEntry),
		attachments: make(map[int64]model.Attachment),
		failOn:      make(map[string]bool),
	}
}

func (m *mockStore) fail(op string) error {
	if m.failOn[op] {
		return apperror.Storage(op, errors.New("disk on fire"))
	}
	return nil
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) attachmentsRepo() mockAttachmentRepo { return mockAttachmentRepo{m} }

type mockProjectRepo struct{ *mockStore }
type mockLogRepo struct{ *mockStore }
type mockAttachmentRepo struct{ *mockStore }

var (
	_ repository.ProjectRepository    = mockProjectRepo{}
	_ repository.LogRepository        = mockLogRepo{}
	_ repository.AttachmentRepository = mockAttachmentRepo{}
)

func (m mockProjectRepo) Create(_ context.Context, p *model.Project) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create project"); err != nil {
		return 0, err
	}
	p.ID = m.id()
	m.projects[p.ID] = *p
	return p.ID, nil
}

func (m mockProjectRepo) GetByID(_ context.Context, id int64) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	return &p, nil
}

func (m mockProjectRepo) ListSorted(_ context.Context) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list projects"); err != nil {
		return nil, err
	}
	out := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m mockProjectRepo) Update(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update project"); err != nil {
		return err
	}
	if _, ok := m.projects[p.ID]; !ok {
		return apperror.NotFound("project", p.ID)
	}
	m.projects[p.ID] = *p
	return nil
}

func (m mockProjectRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return apperror.NotFound("project", id)
	}
	for aid, a := range m.attachments {
		owned := a.ProjectID != nil && *a.ProjectID == id
		if a.LogID != nil {
			if l, ok := m.logs[*a.LogID]; ok && l.ProjectID == id {
				owned = true
			}
		}
		if owned {
			delete(m.attachments, aid)
		}
	}
	for lid, l := range m.logs {
		if l.ProjectID == id {
			delete(m.logs, lid)
		}
	}
	delete(m.projects, id)
	return nil
}

func (m mockLogRepo) Create(_ context.Context, e *model.LogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create log"); err != nil {
		return 0, err
	}
	e.ID = m.id()
	m.logs[e.ID] = *e
	return e.ID, nil
}

func (m mockLogRepo) GetByID(_ context.Context, id int64) (*model.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.logs[id]
	if !ok {
		return nil, apperror.NotFound("log", id)
	}
	return &e, nil
}

func (m mockLogRepo) ListDates(_ context.Context, projectID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	dates := []string{}
	for _, e := range m.logs {
		if e.ProjectID == projectID && !seen[e.Date] {
			seen[e.Date] = true
			dates = append(dates, e.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (m mockLogRepo) ListByDate(_ context.Context, projectID int64, date string) ([]model.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list logs"); err != nil {
		return nil, err
	}
	out := []model.LogEntry{}
	for _, e := range m.logs {
		if e.ProjectID == projectID && e.Date == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m mockLogRepo) UpdateContent(_ context.Context, id int64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update log"); err != nil {
		return err
	}
	e, ok := m.logs[id]
	if !ok {
		return apperror.NotFound("log", id)
	}
	e.Content = content
	m.logs[id] = e
	return nil
}

func (m mockLogRepo) DeleteByDate(_ context.Context, projectID int64, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.logs {
		if e.ProjectID != projectID || e.Date != date {
			continue
		}
		for aid, a := range m.attachments {
			if a.LogID != nil && *a.LogID == id {
				delete(m.attachments, aid)
			}
		}
		delete(m.logs, id)
		n++
	}
	if n == 0 {
		return 0, &apperror.AppError{Err: apperror.ErrNotFound, Message: "no logs"}
	}
	return n, nil
}

func (m mockAttachmentRepo) Create(_ context.Context, a *model.Attachment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create attachment"); err != nil {
		return 0, err
	}
	a.ID = m.id()
	m.attachments[a.ID] = *a
	return a.ID, nil
}

func (m mockAttachmentRepo) Add(ctx context.Context, filePath string, projectID *int64, isGlobal bool) (int64, error) {
	return m.Create(ctx, &model.Attachment{FilePath: filePath, ProjectID: projectID, IsGlobal: isGlobal})
}

func (m mockAttachmentRepo) GetByID(_ context.Context, id int64) (*model.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[id]
	if !ok {
		return nil, apperror.NotFound("attachment", id)
	}
	return &a, nil
}

func (m mockAttachmentRepo) list(keep func(model.Attachment) bool) []model.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Attachment{}
	for _, a := range m.attachments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m mockAttachmentRepo) ListViewable(_ context.Context, projectID int64) ([]model.Attachment, error) {
	return m.list(func(a model.Attachment) bool { return a.IsViewableBy(projectID) }), nil
}

func (m mockAttachmentRepo) ListAll(_ context.Context) ([]model.Attachment, error) {
	return m.list(func(model.Attachment) bool { return true }), nil
}

func (m mockAttachmentRepo) ListByLog(_ context.Context, logID int64) ([]model.Attachment, error) {
	return m.list(func(a model.Attachment) bool { return a.LogID != nil && *a.LogID == logID }), nil
}

func (m mockAttachmentRepo) UpdateScope(_ context.Context, id int64, isGlobal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[id]
	if !ok {
		return apperror.NotFound("attachment", id)
	}
	a.IsGlobal = isGlobal
	m.attachments[id] = a
	return nil
}

func (m mockAttachmentRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attachments[id]; !ok {
		return apperror.NotFound("attachment", id)
	}
	delete(m.attachments, id)
	return nil
}

// =========================================================================
// FAKE INGESTER
// =========================================================================

// fakeIngester "stores" any source whose name does not contain "bad" and
// records every call.
type fakeIngester struct {
	mu    sync.Mutex
	calls []ingestCall
}

type ingestCall struct {
	src  string
	kind ingest.Kind
}

var _ Ingester = (*fakeIngester)(nil)

func (f *fakeIngester) Ingest(src string, kind ingest.Kind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ingestCall{src, kind})
	if strings.Contains(src, "bad") {
		return "", apperror.UnsupportedFormat(src, errors.New("not an image"))
	}
	return "media/" + kind.String() + "_" + strings.TrimSuffix(src, ".jpg") + ".png", nil
}

func (f *fakeIngester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// =========================================================================
// TEST HARNESS
// =========================================================================

type harness struct {
	store       *mockStore
	ingester    *fakeIngester
	events      *Notifier
	received    []Event
	projects    *ProjectService
	logs        *LogService
	attachments *AttachmentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMockStore()
	h := &harness{
		store:    store,
		ingester: &fakeIngester{},
		events:   NewNotifier(),
	}
	h.events.Subscribe(func(ev Event) { h.received = append(h.received, ev) })

	projects, logs, atts := mockProjectRepo{store}, mockLogRepo{store}, mockAttachmentRepo{store}
	h.projects = NewProjectService(projects, h.ingester, h.events, logger)
	h.logs = NewLogService(projects, logs, h.events, logger)
	h.attachments = NewAttachmentService(projects, logs, atts, h.ingester, h.events, logger)
	return h
}

func (h *harness) createProject(t *testing.T, name string, priority int, due string) *model.Project {
	t.Helper()
	p, err := h.projects.Create(context.Background(), ProjectInput{Name: name, Priority: priority, DueDate: due})
	if err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }
