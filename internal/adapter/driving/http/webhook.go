package httphandler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/panopticron/panopticron/internal/application"
)

// maxWebhookBody bounds the webhook request body read. Vercel deployment
// event envelopes are small; anything past this is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// webhookEnvelope is the wire shape of a Vercel webhook delivery.
type webhookEnvelope struct {
	Type      string `json:"type"`
	CreatedAt int64  `json:"createdAt"`
	Payload   struct {
		Target     string `json:"target"`
		Deployment struct {
			ID   string `json:"id"`
			URL  string `json:"url"`
			Meta struct {
				GitHubCommitRef string `json:"githubCommitRef"`
				GitHubCommitSha string `json:"githubCommitSha"`
			} `json:"meta"`
		} `json:"deployment"`
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	} `json:"payload"`
}

// VercelWebhook receives Vercel deployment events. The signature check runs
// against the raw body before anything is parsed; a missing or wrong
// signature is a 401 with zero side effects. After a successful parse the
// endpoint always answers 200: processing failures are logged server-side so
// Vercel does not retry deliveries we cannot use anyway.
func (h *Handler) VercelWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !h.webhookSignatureOK(body, r.Header.Get("x-vercel-signature")) {
		h.logger.Warn("webhook signature verification failed")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if envelope.Type == "" || envelope.Payload.Project.ID == "" {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	event := application.DeploymentEvent{
		Type:            envelope.Type,
		VercelProjectID: envelope.Payload.Project.ID,
		DeploymentID:    envelope.Payload.Deployment.ID,
		DeploymentURL:   envelope.Payload.Deployment.URL,
		Target:          envelope.Payload.Target,
		Branch:          envelope.Payload.Deployment.Meta.GitHubCommitRef,
		CommitSHA:       envelope.Payload.Deployment.Meta.GitHubCommitSha,
	}
	if envelope.CreatedAt > 0 {
		event.CreatedAt = time.UnixMilli(envelope.CreatedAt).UTC()
	}

	if err := h.webhookSvc.Process(r.Context(), event); err != nil {
		h.logger.Error("webhook processing failed",
			"event", envelope.Type,
			"vercel_id", event.VercelProjectID,
			"error", err,
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "received"})
}
