package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/catalog"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/types"
)

// finalization carries the telemetry of a terminal transition out of
// the storage transaction
type finalization struct {
	jobID    string
	result   string
	duration time.Duration
	found    int
	added    int
}

// finalizeDueJob transitions the project's active job to a terminal
// state if its estimated end has passed: discovery results are merged
// into the catalog and an immutable history entry is written, all in
// the surrounding transaction. Returns nil when there is nothing due.
func (s *Scheduler) finalizeDueJob(ctx context.Context, txn *storage.ProjectTxn, project *types.Project, now time.Time) (*finalization, error) {
	if project == nil {
		return nil, nil
	}

	jobID := txn.ActiveScanID()
	if jobID == "" {
		return nil, nil
	}

	job, err := txn.ScanJob(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Status.IsTerminal() || now.Before(job.EstimatedEndAt) {
		return nil, nil
	}

	job.Progress = 100
	job.CompletedAt = &now

	// Runs under the project's write lock and transaction. The in-tree
	// discoverer is in-memory; a provider-backed one must fetch outside
	// the transaction and hand results in rather than do network I/O here.
	discovered, derr := s.discoverer.Discover(ctx, *project)
	if derr != nil {
		job.Status = types.ScanJobFailed
		if err := txn.PutScanJob(job); err != nil {
			return nil, err
		}
		if err := s.appendHistory(txn, job, types.ScanResult{}, 0, 0, nil); err != nil {
			return nil, err
		}
		return &finalization{jobID: job.ID, result: "failed", duration: now.Sub(job.StartedAt)}, nil
	}

	outcome, err := catalog.MergeDiscovered(txn, project.ID, discovered, now)
	if err != nil {
		return nil, err
	}

	job.Status = types.ScanJobSuccess
	result := outcome.Result()
	job.Result = &result
	if err := txn.PutScanJob(job); err != nil {
		return nil, err
	}

	if err := s.appendHistory(txn, job, result, outcome.Before, outcome.After, outcome.AddedIDs); err != nil {
		return nil, err
	}

	status, err := txn.Status()
	if err != nil {
		return nil, err
	}
	if status == nil {
		initial := types.NewProjectStatus(project.ID)
		status = &initial
	}
	status.Scan.Status = types.ScanCompleted

	resources, err := txn.Resources()
	if err != nil {
		return nil, err
	}
	catalog.RefreshTargetCounts(status, resources)
	status.UpdatedAt = now
	if err := txn.PutStatus(status); err != nil {
		return nil, err
	}

	return &finalization{
		jobID:    job.ID,
		result:   "success",
		duration: now.Sub(job.StartedAt),
		found:    outcome.TotalFound,
		added:    outcome.NewFound,
	}, nil
}

func (s *Scheduler) appendHistory(txn *storage.ProjectTxn, job *types.ScanJob, result types.ScanResult, before, after int, addedIDs []string) error {
	return txn.AppendScanHistory(&types.ScanHistoryEntry{
		ID:               uuid.NewString(),
		ProjectID:        job.ProjectID,
		ScanJobID:        job.ID,
		Status:           job.Status,
		StartedAt:        job.StartedAt,
		CompletedAt:      *job.CompletedAt,
		DurationMs:       job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
		Result:           result,
		ResourcesBefore:  before,
		ResourcesAfter:   after,
		AddedResourceIDs: addedIDs,
	})
}

// emitFinalized reports a terminal transition after the transaction
// has committed
func (s *Scheduler) emitFinalized(ctx context.Context, projectID string, f *finalization) {
	if f == nil {
		return
	}
	s.metrics.RecordScan(ctx, f.result, f.duration.Seconds())
	if f.result == "success" {
		s.logger.LogScanCompleted(ctx, projectID, f.jobID, f.found, f.added)
	}
}
