// Package scanner schedules and advances asynchronous resource
// discovery jobs. Jobs have no background timer: progress and the
// terminal transition are derived from stored timestamps versus the
// wall clock on every read, so staleness is bounded by read frequency
// and nothing needs cancelling on restart.
package scanner

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/config"
	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
	"github.com/liitos/liitos/types"
)

// Scheduler validates, starts, and advances scan jobs per project
type Scheduler struct {
	store      *storage.ProjectStore
	logger     *telemetry.Logger
	metrics    *telemetry.EngineMetrics
	cfg        config.ScanConfig
	discoverer Discoverer
	now        func() time.Time
	randDur    func(min, max time.Duration) time.Duration
}

// NewScheduler creates a scan scheduler
func NewScheduler(store *storage.ProjectStore, logger *telemetry.Logger, metrics *telemetry.EngineMetrics, cfg config.ScanConfig, discoverer Discoverer) *Scheduler {
	return &Scheduler{
		store:      store,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		discoverer: discoverer,
		now:        time.Now,
		randDur:    randomDuration,
	}
}

// randomDuration simulates a remote discovery call's latency spread
func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min))) // #nosec G404 -- simulation jitter, not crypto
}

// validate runs the ordered scan preconditions; the first failing
// check wins
func (s *Scheduler) validate(txn *storage.ProjectTxn, project *types.Project, force bool, now time.Time) error {
	if project == nil {
		return errs.NotFound("project not found")
	}

	if !project.Provider.SupportsDiscovery() {
		return errs.ValidationCode(errs.CodeScanNotSupported,
			"provider %s is register-only and cannot be scanned", project.Provider)
	}

	if s.store.ResourceCount(project.ID) >= s.cfg.MaxResources {
		return errs.ValidationCode(errs.CodeMaxResourcesReached,
			"project already has %d resources", s.cfg.MaxResources)
	}

	if jobID := txn.ActiveScanID(); jobID != "" {
		return errs.Conflict(errs.CodeScanInProgress, "a scan is already running").
			WithMeta("scan_job_id", jobID)
	}

	if !force {
		latest, err := txn.LatestScanHistory()
		if err != nil {
			return err
		}
		if latest != nil {
			since := now.Sub(latest.CompletedAt)
			if since < s.cfg.Cooldown {
				remaining := int((s.cfg.Cooldown - since).Seconds()) + 1
				return errs.Cooldown(errs.CodeScanTooRecent, "last scan completed %s ago", since.Round(time.Second)).
					WithMeta("retry_after_seconds", remaining)
			}
		}
	}

	return nil
}

// Start validates and creates a new scan job for the project. Any
// job that is already past its estimated end is finalized first, so a
// stale SCANNING record never blocks a new scan.
func (s *Scheduler) Start(ctx context.Context, projectID string, force bool) (*types.ScanJob, error) {
	var (
		job       *types.ScanJob
		completed *finalization
	)
	err := s.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}

		now := s.now().UTC()
		completed, err = s.finalizeDueJob(ctx, txn, project, now)
		if err != nil {
			return err
		}

		if err := s.validate(txn, project, force, now); err != nil {
			return err
		}

		job = &types.ScanJob{
			ID:             uuid.NewString(),
			ProjectID:      projectID,
			Provider:       project.Provider,
			Status:         types.ScanJobScanning,
			Progress:       0,
			StartedAt:      now,
			EstimatedEndAt: now.Add(s.randDur(s.cfg.MinDuration, s.cfg.MaxDuration)),
		}
		return txn.PutScanJob(job)
	})
	if err != nil {
		return nil, err
	}

	s.emitFinalized(ctx, projectID, completed)
	s.logger.LogScanStarted(ctx, projectID, job.ID)
	return job, nil
}

// Status returns the job with lazily computed progress, finalizing it
// if its estimated end has passed. Terminal jobs are returned
// unchanged, so repeated reads are idempotent.
func (s *Scheduler) Status(ctx context.Context, projectID, jobID string) (*types.ScanJob, error) {
	// Fast path: no mutation needed while the job is still running
	// or already terminal
	var snapshot *types.ScanJob
	err := s.store.View(projectID, func(txn *storage.ProjectTxn) error {
		var err error
		snapshot, err = txn.ScanJob(jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, errs.NotFound("scan job not found")
	}

	now := s.now().UTC()
	if snapshot.Status.IsTerminal() {
		return snapshot, nil
	}
	if now.Before(snapshot.EstimatedEndAt) {
		running := *snapshot
		running.Progress = interpolateProgress(running.StartedAt, running.EstimatedEndAt, now)
		return &running, nil
	}

	// The job is due: finalize under the project lock. Another reader
	// may have won the race, which finalizeDueJob treats as a no-op.
	var (
		job       *types.ScanJob
		completed *finalization
	)
	err = s.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}
		if project == nil {
			return errs.NotFound("project not found")
		}

		completed, err = s.finalizeDueJob(ctx, txn, project, s.now().UTC())
		if err != nil {
			return err
		}

		job, err = txn.ScanJob(jobID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitFinalized(ctx, projectID, completed)
	return job, nil
}

// History returns the project's scan history newest-first
func (s *Scheduler) History(projectID string, limit, offset int) ([]types.ScanHistoryEntry, error) {
	var entries []types.ScanHistoryEntry
	err := s.store.View(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}
		if project == nil {
			return errs.NotFound("project not found")
		}

		entries, err = txn.ScanHistory(limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []types.ScanHistoryEntry{}
	}
	return entries, nil
}

// interpolateProgress maps elapsed time onto 0-99; 100 is reserved
// for the terminal transition
func interpolateProgress(start, end, now time.Time) int {
	total := end.Sub(start)
	if total <= 0 {
		return 99
	}
	progress := int(now.Sub(start) * 100 / total)
	if progress < 0 {
		return 0
	}
	if progress > 99 {
		return 99
	}
	return progress
}
