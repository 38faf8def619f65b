package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse is the 400 body of the CI ingestion endpoint,
// naming every field that failed validation.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// SyncResponse is the 200 body of the sync trigger endpoints.
type SyncResponse struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	Candidates int    `json:"candidates"`
	Succeeded  int    `json:"succeeded"`
	Snapshots  int    `json:"snapshots"`
	Errors     int    `json:"errors"`
}

// SyncErrorResponse is the 500 body of the sync trigger endpoints.
type SyncErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// ProjectResponse is the JSON representation of a monitored project.
type ProjectResponse struct {
	ID                         int64   `json:"id"`
	Name                       string  `json:"name"`
	VercelProjectID            *string `json:"vercel_project_id"`
	VercelOrgSlug              string  `json:"vercel_org_slug,omitempty"`
	VercelFramework            string  `json:"vercel_framework,omitempty"`
	VercelNodeVersion          string  `json:"vercel_node_version,omitempty"`
	GitHubRepoURL              *string `json:"github_repo_url"`
	GitHubDefaultBranch        string  `json:"github_default_branch,omitempty"`
	LatestProdDeploymentStatus string  `json:"latest_prod_deployment_status"`
	LatestProdDeploymentURL    string  `json:"latest_prod_deployment_url"`
	GitHubCIStatus             string  `json:"github_ci_status"`
	GitHubCIURL                string  `json:"github_ci_url"`
	CalculatedPriorityScore    int     `json:"calculated_priority_score"`
	ManualPriorityOverride     *int    `json:"manual_priority_override"`
	PrioritySortKey            int     `json:"priority_sort_key"`
	CreatedAt                  string  `json:"created_at"`
	UpdatedAt                  string  `json:"updated_at"`
	LastSyncedAt               string  `json:"last_synced_at,omitempty"`
}

// SnapshotResponse is the JSON representation of one status snapshot.
type SnapshotResponse struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project_id"`
	Source      string         `json:"source"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	ExternalID  string         `json:"external_id,omitempty"`
	ExternalURL string         `json:"external_url,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// PriorityHistoryResponse is the JSON representation of one priority history
// entry.
type PriorityHistoryResponse struct {
	ID                   int64  `json:"id"`
	ProjectID            int64  `json:"project_id"`
	RecordedAt           string `json:"recorded_at"`
	FinalSortKey         int    `json:"final_sort_key"`
	CalculatedScore      int    `json:"calculated_score"`
	ManualOverrideAtTime *int   `json:"manual_override_at_time"`
	Reason               string `json:"reason"`
}

// WorkerRunResponse is the JSON representation of one sync worker invocation.
type WorkerRunResponse struct {
	ID           string         `json:"id"`
	WorkerName   string         `json:"worker_name"`
	Status       string         `json:"status"`
	StartedAt    string         `json:"started_at"`
	EndedAt      *string        `json:"ended_at"`
	Summary      string         `json:"summary,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}

// CIRunResponse is the JSON representation of one ingested CI run.
type CIRunResponse struct {
	RunID        string `json:"run_id"`
	WorkflowName string `json:"workflow_name"`
	Branch       string `json:"branch"`
	CommitSHA    string `json:"commit_sha"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	StartedAt    string `json:"started_at"`
	IngestedAt   string `json:"ingested_at"`
	DurationMS   int64  `json:"duration_ms"`
}

// PriorityOverrideRequest is the JSON body of the priority override endpoint.
// A null override clears the override.
type PriorityOverrideRequest struct {
	Override *int `json:"override"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toProjectResponse(p model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:                         p.ID,
		Name:                       p.Name,
		VercelProjectID:            p.VercelProjectID,
		VercelOrgSlug:              p.VercelOrgSlug,
		VercelFramework:            p.VercelFramework,
		VercelNodeVersion:          p.VercelNodeVersion,
		GitHubRepoURL:              p.GitHubRepoURL,
		GitHubDefaultBranch:        p.GitHubDefaultBranch,
		LatestProdDeploymentStatus: p.LatestProdDeploymentStatus,
		LatestProdDeploymentURL:    p.LatestProdDeploymentURL,
		GitHubCIStatus:             string(p.GitHubCIStatus),
		GitHubCIURL:                p.GitHubCIURL,
		CalculatedPriorityScore:    p.CalculatedPriorityScore,
		ManualPriorityOverride:     p.ManualPriorityOverride,
		PrioritySortKey:            p.PrioritySortKey,
		CreatedAt:                  p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !p.LastSyncedAt.IsZero() {
		resp.LastSyncedAt = p.LastSyncedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toSnapshotResponse(s model.StatusSnapshot) SnapshotResponse {
	details := s.Details
	if details == nil {
		details = map[string]any{}
	}

	return SnapshotResponse{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		Source:      s.Source,
		Status:      s.Status,
		Details:     details,
		ExternalID:  s.ExternalID,
		ExternalURL: s.ExternalURL,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPriorityHistoryResponse(e model.PriorityHistoryEntry) PriorityHistoryResponse {
	return PriorityHistoryResponse{
		ID:                   e.ID,
		ProjectID:            e.ProjectID,
		RecordedAt:           e.RecordedAt.UTC().Format(time.RFC3339Nano),
		FinalSortKey:         e.FinalSortKey,
		CalculatedScore:      e.CalculatedScore,
		ManualOverrideAtTime: e.ManualOverrideAtTime,
		Reason:               e.Reason,
	}
}

func toWorkerRunResponse(run model.WorkerRun) WorkerRunResponse {
	resp := WorkerRunResponse{
		ID:           run.ID,
		WorkerName:   run.WorkerName,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		Summary:      run.Summary,
		ErrorDetails: run.ErrorDetails,
	}
	if run.EndedAt != nil {
		ended := run.EndedAt.UTC().Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	return resp
}

func toCIRunResponse(run model.CITestRun) CIRunResponse {
	return CIRunResponse{
		RunID:        run.RunID,
		WorkflowName: run.WorkflowName,
		Branch:       run.Branch,
		CommitSHA:    run.CommitSHA,
		Status:       run.Status,
		URL:          run.URL,
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		IngestedAt:   run.IngestedAt.UTC().Format(time.RFC3339),
		DurationMS:   run.DurationMS,
	}
}
