// Package httphandler is the HTTP driving adapter serving the REST API:
// sync triggers, the Vercel webhook, CI ingestion, and the read surface the
// dashboard consumes.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/panopticron/panopticron/internal/application"
	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// listDefaultLimit caps list endpoints that take no explicit limit.
const listDefaultLimit = 100

// Handler is the HTTP driving adapter.
type Handler struct {
	projects   driven.ProjectStore
	snapshots  driven.SnapshotStore
	history    driven.PriorityHistoryStore
	workerRuns driven.WorkerRunStore
	ciRuns     driven.CIRunStore

	vercelWorker *application.VercelSyncWorker
	githubWorker *application.GitHubSyncWorker
	webhookSvc   *application.WebhookService
	ciSvc        *application.CIIngestService
	prioritySvc  *application.PriorityService

	cronSecret    string
	webhookSecret string
	ciIngestToken string
	production    bool

	logger *slog.Logger
}

// HandlerConfig bundles the dependencies of NewHandler.
type HandlerConfig struct {
	Projects   driven.ProjectStore
	Snapshots  driven.SnapshotStore
	History    driven.PriorityHistoryStore
	WorkerRuns driven.WorkerRunStore
	CIRuns     driven.CIRunStore

	VercelWorker *application.VercelSyncWorker
	GitHubWorker *application.GitHubSyncWorker
	WebhookSvc   *application.WebhookService
	CISvc        *application.CIIngestService
	PrioritySvc  *application.PriorityService

	CronSecret    string
	WebhookSecret string
	CIIngestToken string
	Production    bool

	Logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		projects:      cfg.Projects,
		snapshots:     cfg.Snapshots,
		history:       cfg.History,
		workerRuns:    cfg.WorkerRuns,
		ciRuns:        cfg.CIRuns,
		vercelWorker:  cfg.VercelWorker,
		githubWorker:  cfg.GitHubWorker,
		webhookSvc:    cfg.WebhookSvc,
		ciSvc:         cfg.CISvc,
		prioritySvc:   cfg.PrioritySvc,
		cronSecret:    cfg.CronSecret,
		webhookSecret: cfg.WebhookSecret,
		ciIngestToken: cfg.CIIngestToken,
		production:    cfg.Production,
		logger:        cfg.Logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/sync/vercel", h.TriggerVercelSync)
	mux.HandleFunc("GET /api/v1/sync/github", h.TriggerGitHubSync)
	mux.HandleFunc("POST /api/v1/webhooks/vercel", h.VercelWebhook)
	mux.HandleFunc("POST /api/v1/ci/runs", h.IngestCIRun)
	mux.HandleFunc("GET /api/v1/ci/runs", h.ListCIRuns)

	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/snapshots", h.ListProjectSnapshots)
	mux.HandleFunc("GET /api/v1/projects/{id}/priority-history", h.ListProjectPriorityHistory)
	mux.HandleFunc("PUT /api/v1/projects/{id}/priority-override", h.SetPriorityOverride)
	mux.HandleFunc("GET /api/v1/runs", h.ListWorkerRuns)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// TriggerVercelSync runs the Vercel sync worker synchronously. It is the
// manual counterpart of the scheduler's periodic cycle and shares its worker.
func (h *Handler) TriggerVercelSync(w http.ResponseWriter, r *http.Request) {
	if !h.cronSecretOK(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	outcome, err := h.vercelWorker.Run(r.Context())
	if err != nil {
		h.logger.Error("triggered vercel sync failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, SyncErrorResponse{
			Error:   "vercel sync failed",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse("Vercel sync complete", outcome))
}

// TriggerGitHubSync runs the GitHub sync worker synchronously.
func (h *Handler) TriggerGitHubSync(w http.ResponseWriter, r *http.Request) {
	if !h.cronSecretOK(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	outcome, err := h.githubWorker.Run(r.Context())
	if err != nil {
		h.logger.Error("triggered github sync failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, SyncErrorResponse{
			Error:   "github sync failed",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse("GitHub sync complete", outcome))
}

// ListProjects returns all projects, most urgent first.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetProject returns a single project by id.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

// ListProjectSnapshots returns a project's status snapshots, newest first.
func (h *Handler) ListProjectSnapshots(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	snapshots, err := h.snapshots.ListByProject(r.Context(), id, listDefaultLimit)
	if err != nil {
		h.logger.Error("failed to list snapshots", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SnapshotResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp = append(resp, toSnapshotResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListProjectPriorityHistory returns a project's priority audit trail,
// newest first.
func (h *Handler) ListProjectPriorityHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	entries, err := h.history.ListByProject(r.Context(), id, listDefaultLimit)
	if err != nil {
		h.logger.Error("failed to list priority history", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PriorityHistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toPriorityHistoryResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetPriorityOverride sets or clears a project's manual priority override.
// The body is {"override": <number>} to set, {"override": null} to clear.
func (h *Handler) SetPriorityOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	var req PriorityOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.prioritySvc.SetManualOverride(r.Context(), id, req.Override)
	if err != nil {
		h.logger.Error("failed to set priority override", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

// ListWorkerRuns returns the most recent sync worker invocations.
func (h *Handler) ListWorkerRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.workerRuns.ListRecent(r.Context(), listDefaultLimit)
	if err != nil {
		h.logger.Error("failed to list worker runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]WorkerRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toWorkerRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCIRuns returns the most recently ingested CI runs, newest first.
func (h *Handler) ListCIRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ciRuns.ListRecent(r.Context(), listDefaultLimit)
	if err != nil {
		h.logger.Error("failed to list ci runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CIRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toCIRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// projectID parses the {id} path segment, writing a 400 on garbage.
func (h *Handler) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	return id, true
}

// requireProject parses the {id} segment and verifies the project exists,
// writing the appropriate error response when it does not.
func (h *Handler) requireProject(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.projectID(w, r)
	if !ok {
		return 0, false
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return 0, false
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return 0, false
	}

	return id, true
}

// toSyncResponse renders a worker outcome for the trigger endpoints.
func toSyncResponse(message string, o model.SyncOutcome) SyncResponse {
	return SyncResponse{
		Message:    message,
		Status:     string(o.Classify()),
		Candidates: o.Candidates,
		Succeeded:  o.Successes,
		Snapshots:  o.Snapshots,
		Errors:     o.Errors,
	}
}
