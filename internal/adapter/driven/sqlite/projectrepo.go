package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectStore = (*ProjectRepo)(nil)

// ProjectRepo is the SQLite implementation of the ProjectStore port.
type ProjectRepo struct {
	db *DB
}

// NewProjectRepo creates a new ProjectRepo backed by the given DB.
func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `
	id, vercel_project_id, github_repo_url, name, vercel_org_slug,
	vercel_framework, vercel_node_version, latest_prod_deployment_status,
	latest_prod_deployment_url, github_default_branch, github_ci_status,
	github_ci_url, calculated_priority_score, manual_priority_override,
	priority_sort_key, created_at, updated_at, last_synced_at
`

// Insert creates a new project row and returns the stored project with its
// assigned ID. The datastore enforces that at least one external identity
// (Vercel project id or GitHub repo URL) is present.
func (r *ProjectRepo) Insert(ctx context.Context, p model.Project) (*model.Project, error) {
	const query = `
		INSERT INTO projects (
			vercel_project_id, github_repo_url, name, vercel_org_slug,
			vercel_framework, vercel_node_version, latest_prod_deployment_status,
			latest_prod_deployment_url, github_default_branch, github_ci_status,
			github_ci_url, calculated_priority_score, manual_priority_override,
			priority_sort_key, created_at, updated_at, last_synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		nullString(p.VercelProjectID), nullString(p.GitHubRepoURL), p.Name, p.VercelOrgSlug,
		p.VercelFramework, p.VercelNodeVersion, p.LatestProdDeploymentStatus,
		p.LatestProdDeploymentURL, p.GitHubDefaultBranch, string(p.GitHubCIStatus),
		p.GitHubCIURL, p.CalculatedPriorityScore, nullInt(p.ManualPriorityOverride),
		p.PrioritySortKey, formatTime(p.CreatedAt), formatTime(p.UpdatedAt), formatTime(p.LastSyncedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project %q: %w", p.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert project %q: last insert id: %w", p.Name, err)
	}
	p.ID = id

	return &p, nil
}

// Update rewrites the mutable columns of an existing project by ID.
func (r *ProjectRepo) Update(ctx context.Context, p model.Project) error {
	const query = `
		UPDATE projects SET
			vercel_project_id = ?,
			github_repo_url = ?,
			name = ?,
			vercel_org_slug = ?,
			vercel_framework = ?,
			vercel_node_version = ?,
			latest_prod_deployment_status = ?,
			latest_prod_deployment_url = ?,
			github_default_branch = ?,
			github_ci_status = ?,
			github_ci_url = ?,
			calculated_priority_score = ?,
			manual_priority_override = ?,
			priority_sort_key = ?,
			updated_at = ?,
			last_synced_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		nullString(p.VercelProjectID), nullString(p.GitHubRepoURL), p.Name, p.VercelOrgSlug,
		p.VercelFramework, p.VercelNodeVersion, p.LatestProdDeploymentStatus,
		p.LatestProdDeploymentURL, p.GitHubDefaultBranch, string(p.GitHubCIStatus),
		p.GitHubCIURL, p.CalculatedPriorityScore, nullInt(p.ManualPriorityOverride),
		p.PrioritySortKey, formatTime(time.Now().UTC()), formatTime(p.LastSyncedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project %d not found", p.ID)
	}

	return nil
}

// GetByID returns the project with the given internal ID, or nil, nil if it
// does not exist.
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	p, err := scanProject(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}

	return p, nil
}

// GetByVercelID returns the project linked to the given Vercel project id,
// or nil, nil if none is.
func (r *ProjectRepo) GetByVercelID(ctx context.Context, vercelProjectID string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE vercel_project_id = ?`

	p, err := scanProject(r.db.Reader.QueryRowContext(ctx, query, vercelProjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by vercel id %q: %w", vercelProjectID, err)
	}

	return p, nil
}

// ListAll returns every project ordered by priority_sort_key ascending, so
// the most urgent projects come first.
func (r *ProjectRepo) ListAll(ctx context.Context) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY priority_sort_key ASC, id ASC`

	return r.queryProjects(ctx, query)
}

// ListWithGitHubRepo returns the projects that have a GitHub repo URL on
// file, the candidate set of the GitHub sync worker, in insertion order.
func (r *ProjectRepo) ListWithGitHubRepo(ctx context.Context) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE github_repo_url IS NOT NULL AND github_repo_url != '' ORDER BY id ASC`

	return r.queryProjects(ctx, query)
}

func (r *ProjectRepo) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func scanProject(s scanner) (*model.Project, error) {
	var p model.Project
	var vercelID, githubURL sql.NullString
	var override sql.NullInt64
	var ciStatus string
	var createdAt, updatedAt, lastSyncedAt string

	err := s.Scan(
		&p.ID, &vercelID, &githubURL, &p.Name, &p.VercelOrgSlug,
		&p.VercelFramework, &p.VercelNodeVersion, &p.LatestProdDeploymentStatus,
		&p.LatestProdDeploymentURL, &p.GitHubDefaultBranch, &ciStatus,
		&p.GitHubCIURL, &p.CalculatedPriorityScore, &override,
		&p.PrioritySortKey, &createdAt, &updatedAt, &lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	if vercelID.Valid {
		p.VercelProjectID = &vercelID.String
	}
	if githubURL.Valid && githubURL.String != "" {
		p.GitHubRepoURL = &githubURL.String
	}
	if override.Valid {
		v := int(override.Int64)
		p.ManualPriorityOverride = &v
	}
	p.GitHubCIStatus = model.CIStatus(ciStatus)

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if p.LastSyncedAt, err = parseTime(lastSyncedAt); err != nil {
		return nil, fmt.Errorf("parse last_synced_at: %w", err)
	}

	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// formatTime stores timestamps as RFC3339Nano strings. The zero time is
// stored as the empty string, matching the column defaults.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
