package application_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// --- Shared mock implementations of the driven ports ---

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type mockProjectStore struct {
	nextID    int64
	projects  map[int64]model.Project
	updates   int
	insertErr error
	updateErr error
	getErr    error
}

func newMockProjectStore() *mockProjectStore {
	return &mockProjectStore{projects: make(map[int64]model.Project)}
}

func (m *mockProjectStore) Insert(_ context.Context, p model.Project) (*model.Project, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if !p.HasExternalIdentity() {
		return nil, fmt.Errorf("project %q has no external identity", p.Name)
	}

	m.nextID++
	p.ID = m.nextID
	m.projects[p.ID] = p

	stored := p
	return &stored, nil
}

func (m *mockProjectStore) Update(_ context.Context, p model.Project) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.projects[p.ID]; !ok {
		return fmt.Errorf("project %d not found", p.ID)
	}

	m.updates++
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectStore) GetByID(_ context.Context, id int64) (*model.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockProjectStore) GetByVercelID(_ context.Context, vercelProjectID string) (*model.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.projects {
		if p.VercelProjectID != nil && *p.VercelProjectID == vercelProjectID {
			stored := p
			return &stored, nil
		}
	}
	return nil, nil
}

func (m *mockProjectStore) ListAll(_ context.Context) ([]model.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	all := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PrioritySortKey < all[j].PrioritySortKey })
	return all, nil
}

func (m *mockProjectStore) ListWithGitHubRepo(_ context.Context) ([]model.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var linked []model.Project
	for _, p := range m.projects {
		if p.GitHubRepoURL != nil && *p.GitHubRepoURL != "" {
			linked = append(linked, p)
		}
	}
	sort.Slice(linked, func(i, j int) bool { return linked[i].ID < linked[j].ID })
	return linked, nil
}

// seed stores a project as-is, assigning the next id.
func (m *mockProjectStore) seed(p model.Project) model.Project {
	m.nextID++
	p.ID = m.nextID
	m.projects[p.ID] = p
	return p
}

type mockSnapshotStore struct {
	snapshots []model.StatusSnapshot
	insertErr error
}

func (m *mockSnapshotStore) Insert(_ context.Context, s model.StatusSnapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *mockSnapshotStore) ListByProject(_ context.Context, projectID int64, _ int) ([]model.StatusSnapshot, error) {
	var out []model.StatusSnapshot
	for _, s := range m.snapshots {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockHistoryStore struct {
	entries   []model.PriorityHistoryEntry
	insertErr error
}

func (m *mockHistoryStore) Insert(_ context.Context, e model.PriorityHistoryEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.entries {
		if existing.ProjectID == e.ProjectID && existing.RecordedAt.Equal(e.RecordedAt) {
			return fmt.Errorf("duplicate history timestamp for project %d", e.ProjectID)
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockHistoryStore) ListByProject(_ context.Context, projectID int64, _ int) ([]model.PriorityHistoryEntry, error) {
	var out []model.PriorityHistoryEntry
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

type finishCall struct {
	ID      string
	Status  model.WorkerRunStatus
	Summary string
	Details map[string]any
}

type mockWorkerRunStore struct {
	inserted  []model.WorkerRun
	finished  []finishCall
	insertErr error
	finishErr error
}

func (m *mockWorkerRunStore) Insert(_ context.Context, run model.WorkerRun) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, run)
	return nil
}

func (m *mockWorkerRunStore) Finish(_ context.Context, id string, status model.WorkerRunStatus, _ time.Time, summary string, errorDetails map[string]any) error {
	if m.finishErr != nil {
		return m.finishErr
	}
	m.finished = append(m.finished, finishCall{ID: id, Status: status, Summary: summary, Details: errorDetails})
	return nil
}

func (m *mockWorkerRunStore) ListRecent(_ context.Context, _ int) ([]model.WorkerRun, error) {
	return m.inserted, nil
}

type mockVercelClient struct {
	listProjects func(ctx context.Context) ([]model.VercelProject, error)
	latestProd   func(ctx context.Context, projectID string) (*model.VercelDeployment, error)
}

func (m *mockVercelClient) ListProjects(ctx context.Context) ([]model.VercelProject, error) {
	return m.listProjects(ctx)
}

func (m *mockVercelClient) GetLatestProductionDeployment(ctx context.Context, projectID string) (*model.VercelDeployment, error) {
	if m.latestProd == nil {
		return nil, nil
	}
	return m.latestProd(ctx, projectID)
}

type mockGitHubClient struct {
	repoDetails func(ctx context.Context, owner, repo string) (*model.RepoDetails, error)
	latestRun   func(ctx context.Context, owner, repo, branch string) (*model.WorkflowRun, error)
}

func (m *mockGitHubClient) GetRepoDetails(ctx context.Context, owner, repo string) (*model.RepoDetails, error) {
	if m.repoDetails == nil {
		return nil, nil
	}
	return m.repoDetails(ctx, owner, repo)
}

func (m *mockGitHubClient) GetLatestDefaultBranchRun(ctx context.Context, owner, repo, branch string) (*model.WorkflowRun, error) {
	if m.latestRun == nil {
		return nil, nil
	}
	return m.latestRun(ctx, owner, repo, branch)
}

type mockCIRunStore struct {
	runs      map[string]model.CITestRun
	upsertErr error
}

func newMockCIRunStore() *mockCIRunStore {
	return &mockCIRunStore{runs: make(map[string]model.CITestRun)}
}

func (m *mockCIRunStore) Upsert(_ context.Context, run model.CITestRun) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *mockCIRunStore) GetByRunID(_ context.Context, runID string) (*model.CITestRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *mockCIRunStore) ListRecent(_ context.Context, _ int) ([]model.CITestRun, error) {
	var out []model.CITestRun
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}
