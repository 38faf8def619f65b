// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Priority score weights. Lower scores sort first, so every penalty below is
// subtracted from the base. The deployment and CI penalties are deliberately
// far apart so a broken production deployment always outranks a broken CI run.
const (
	priorityBase = 10000

	penaltyDeploymentError    = 9000
	penaltyDeploymentBuilding = 3000
	penaltyDeploymentCanceled = 1000

	penaltyCIFailure       = 7000
	penaltyCIPending       = 2000
	penaltyCIUnknownBranch = 500
	penaltyCINoRuns        = 100

	// Staleness accrues per hour once a project has gone a full day without a
	// successful sync, capped so stale-but-healthy never outranks broken.
	stalenessGraceHours   = 24
	stalenessPenaltyPerHr = 10
	stalenessPenaltyCap   = 2000
)

// PriorityService recomputes project priority and maintains the append-only
// priority history. It is the only writer of project rows' priority columns
// and the only writer of the history table; every code path that changes a
// priority-relevant field finishes by calling Recompute.
type PriorityService struct {
	projects driven.ProjectStore
	history  driven.PriorityHistoryStore
	now      func() time.Time

	// lastStamp guards history timestamp uniqueness: two recomputations of
	// the same project inside one clock tick would otherwise collide on the
	// (project_id, recorded_at) unique index.
	mu        sync.Mutex
	lastStamp time.Time
}

// NewPriorityService creates a PriorityService.
func NewPriorityService(projects driven.ProjectStore, history driven.PriorityHistoryStore) *PriorityService {
	return &PriorityService{
		projects: projects,
		history:  history,
		now:      time.Now,
	}
}

// ComputeScore derives the calculated priority score from a project's
// observed platform state. Lower means more urgent. The function is pure so
// the weighting is testable in isolation.
func ComputeScore(p model.Project, now time.Time) int {
	score := priorityBase

	switch model.DeploymentStatus(p.LatestProdDeploymentStatus) {
	case model.DeploymentError:
		score -= penaltyDeploymentError
	case model.DeploymentBuilding, model.DeploymentQueued:
		score -= penaltyDeploymentBuilding
	case model.DeploymentCanceled:
		score -= penaltyDeploymentCanceled
	}

	switch p.GitHubCIStatus {
	case model.CIStatusFailure:
		score -= penaltyCIFailure
	case model.CIStatusPending:
		score -= penaltyCIPending
	case model.CIStatusUnknownBranch:
		score -= penaltyCIUnknownBranch
	case model.CIStatusNoRuns:
		score -= penaltyCINoRuns
	}

	if !p.LastSyncedAt.IsZero() {
		hours := int(now.Sub(p.LastSyncedAt).Hours())
		if hours > stalenessGraceHours {
			penalty := (hours - stalenessGraceHours) * stalenessPenaltyPerHr
			if penalty > stalenessPenaltyCap {
				penalty = stalenessPenaltyCap
			}
			score -= penalty
		}
	}

	return score
}

// Recompute recalculates p's priority from its current fields, persists the
// full project row, and, when the sort key actually moved, appends exactly
// one history entry carrying the given reason. Callers mutate the project's
// status fields first and let Recompute do the single store update.
//
// The sort key is the manual override when one is set, else the calculated
// score.
func (s *PriorityService) Recompute(ctx context.Context, p *model.Project, reason string) error {
	score := ComputeScore(*p, s.now())

	sortKey := score
	if p.ManualPriorityOverride != nil {
		sortKey = *p.ManualPriorityOverride
	}

	keyChanged := sortKey != p.PrioritySortKey

	p.CalculatedPriorityScore = score
	p.PrioritySortKey = sortKey

	if err := s.projects.Update(ctx, *p); err != nil {
		return fmt.Errorf("updating project %d: %w", p.ID, err)
	}

	if !keyChanged {
		return nil
	}

	entry := model.PriorityHistoryEntry{
		ProjectID:            p.ID,
		RecordedAt:           s.timestamp(),
		FinalSortKey:         sortKey,
		CalculatedScore:      score,
		ManualOverrideAtTime: p.ManualPriorityOverride,
		Reason:               reason,
	}
	if err := s.history.Insert(ctx, entry); err != nil {
		return fmt.Errorf("appending priority history for project %d: %w", p.ID, err)
	}

	slog.Info("priority changed",
		"project", p.Name,
		"project_id", p.ID,
		"sort_key", sortKey,
		"score", score,
		"reason", reason,
	)

	return nil
}

// SetManualOverride sets or clears (override == nil) a project's manual
// priority override and recomputes. The override, when set, becomes the sort
// key regardless of the calculated score; clearing it returns the project to
// score-ordered ranking. Returns the updated project, or nil, nil when no
// project has that id.
func (s *PriorityService) SetManualOverride(ctx context.Context, projectID int64, override *int) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %d: %w", projectID, err)
	}
	if p == nil {
		return nil, nil
	}

	p.ManualPriorityOverride = override

	reason := "Manual priority override cleared"
	if override != nil {
		reason = fmt.Sprintf("Manual priority override set to %d", *override)
	}

	if err := s.Recompute(ctx, p, reason); err != nil {
		return nil, err
	}

	return p, nil
}

// timestamp returns a strictly increasing wall-clock time, nudged forward by
// a nanosecond when the clock has not advanced since the previous call.
func (s *PriorityService) timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t

	return t
}
