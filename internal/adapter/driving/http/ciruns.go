package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/panopticron/panopticron/internal/application"
)

// IngestCIRun accepts one CI pipeline run report, authenticated with the CI
// ingest bearer token. Invalid payloads come back as a 400 naming every
// offending field; valid ones upsert idempotently on the run id.
func (h *Handler) IngestCIRun(w http.ResponseWriter, r *http.Request) {
	if !h.ciTokenOK(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var sub application.CIRunSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, problems, err := h.ciSvc.Ingest(r.Context(), sub)
	if err != nil {
		h.logger.Error("ci run ingestion failed", "run_id", sub.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: problems,
		})
		return
	}

	writeJSON(w, http.StatusCreated, toCIRunResponse(*run))
}
