package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// deploymentEventStatus maps the Vercel deployment event types this service
// reacts to onto the cached deployment status they imply. Event types outside
// this map never update the project row, though they are still snapshotted.
var deploymentEventStatus = map[string]model.DeploymentStatus{
	"deployment.created":   model.DeploymentBuilding,
	"deployment.ready":     model.DeploymentReady,
	"deployment.succeeded": model.DeploymentReady,
	"deployment.error":     model.DeploymentError,
	"deployment.canceled":  model.DeploymentCanceled,
}

// DeploymentEvent is one verified, parsed Vercel deployment webhook delivery.
type DeploymentEvent struct {
	Type            string
	VercelProjectID string
	DeploymentID    string
	DeploymentURL   string
	Target          string
	Branch          string
	CommitSHA       string
	CreatedAt       time.Time
}

// WebhookService applies Vercel deployment webhook events to the store. The
// HTTP handler owns signature verification and payload parsing; this service
// owns everything after that.
type WebhookService struct {
	projects         driven.ProjectStore
	snapshots        driven.SnapshotStore
	priority         *PriorityService
	productionBranch string
	now              func() time.Time
}

// NewWebhookService creates a WebhookService. productionBranch is consulted
// when a deployment event carries no target: a deployment of that branch is
// treated as production.
func NewWebhookService(
	projects driven.ProjectStore,
	snapshots driven.SnapshotStore,
	priority *PriorityService,
	productionBranch string,
) *WebhookService {
	return &WebhookService{
		projects:         projects,
		snapshots:        snapshots,
		priority:         priority,
		productionBranch: productionBranch,
		now:              time.Now,
	}
}

// Process applies one deployment event. Events for unknown Vercel projects
// are logged and dropped without writing anything; known projects always get
// a snapshot appended (redeliveries produce duplicate snapshots), and
// production-relevant status changes additionally update the cached status
// and recompute priority.
func (s *WebhookService) Process(ctx context.Context, ev DeploymentEvent) error {
	project, err := s.projects.GetByVercelID(ctx, ev.VercelProjectID)
	if err != nil {
		return fmt.Errorf("looking up project %s: %w", ev.VercelProjectID, err)
	}
	if project == nil {
		slog.Warn("webhook for unknown vercel project",
			"vercel_id", ev.VercelProjectID,
			"event", ev.Type,
		)
		return nil
	}

	newStatus, knownType := deploymentEventStatus[ev.Type]

	if knownType && s.isProductionRelevant(ev) {
		oldStatus := project.LatestProdDeploymentStatus
		changed := oldStatus != string(newStatus)

		if newStatus == model.DeploymentReady && ev.DeploymentURL != "" &&
			project.LatestProdDeploymentURL != ev.DeploymentURL {
			project.LatestProdDeploymentURL = ev.DeploymentURL
			changed = true
		}

		if changed {
			project.LatestProdDeploymentStatus = string(newStatus)
			reason := fmt.Sprintf("Vercel status changed: %s -> %s", displayStatus(oldStatus), newStatus)
			if err := s.priority.Recompute(ctx, project, reason); err != nil {
				return err
			}
			slog.Info("webhook updated deployment status",
				"project", project.Name,
				"event", ev.Type,
				"status", string(newStatus),
			)
		}
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	snap := model.StatusSnapshot{
		ProjectID: project.ID,
		Source:    model.SourceVercelWebhookPrefix + ev.Type,
		Status:    string(newStatus),
		Details: map[string]any{
			"deployment_id": ev.DeploymentID,
			"url":           ev.DeploymentURL,
			"target":        ev.Target,
			"branch":        ev.Branch,
			"commit_sha":    ev.CommitSHA,
		},
		ExternalID:  ev.DeploymentID,
		ExternalURL: ev.DeploymentURL,
		CreatedAt:   createdAt,
	}
	if !knownType {
		snap.Status = ev.Type
	}

	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return fmt.Errorf("appending webhook snapshot: %w", err)
	}

	return nil
}

// isProductionRelevant reports whether the event concerns the production
// deployment of the project. An explicit production target decides outright;
// with no target, a deployment of the configured production branch counts.
func (s *WebhookService) isProductionRelevant(ev DeploymentEvent) bool {
	if ev.Target == "production" {
		return true
	}
	return ev.Target == "" && ev.Branch == s.productionBranch
}
