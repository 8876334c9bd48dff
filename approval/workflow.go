// Package approval implements the approval workflow: submission with
// the auto-approval rule, manual approve/reject/cancel, immutable
// snapshots, and the installation confirmation gate.
package approval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/catalog"
	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/history"
	"github.com/liitos/liitos/lifecycle"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
	"github.com/liitos/liitos/types"
)

// Workflow coordinates approval state for projects
type Workflow struct {
	store        *storage.ProjectStore
	audit        *history.Log
	logger       *telemetry.Logger
	metrics      *telemetry.EngineMetrics
	confirmDwell time.Duration
	now          func() time.Time
}

// NewWorkflow creates an approval workflow
func NewWorkflow(store *storage.ProjectStore, audit *history.Log, logger *telemetry.Logger, metrics *telemetry.EngineMetrics, confirmDwell time.Duration) *Workflow {
	return &Workflow{
		store:        store,
		audit:        audit,
		logger:       logger,
		metrics:      metrics,
		confirmDwell: confirmDwell,
		now:          time.Now,
	}
}

// Submit applies a selection set and decides between auto-approval and
// a pending manual request. Auto-approval happens iff every TARGET
// resource ends up selected or was excluded before this submission:
// the change set is then provably "everything eligible, minus known
// exclusions" and no human needs to look at it. An exclusion recorded
// in this round does not qualify until it has been through approval.
func (w *Workflow) Submit(ctx context.Context, projectID string, selections []catalog.Selection, actor string) (lifecycle.Result, error) {
	if !anySelected(selections) {
		return lifecycle.Result{}, errs.Validation("no resources selected")
	}

	var (
		st   types.ProjectStatus
		auto bool
	)
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		switch lifecycle.Compute(*status) {
		case lifecycle.StateWaitingApproval:
			return errs.Conflict(errs.CodeRequestPending, "an approval request is already pending")
		case lifecycle.StateApplying:
			return errs.Conflict(errs.CodeApplyingInProgress, "installation is already in progress")
		}

		resources, err := txn.Resources()
		if err != nil {
			return err
		}
		priorExcluded := catalog.ExcludedIDs(resources)

		now := w.now().UTC()
		if _, err := catalog.ApplySelections(txn, selections, actor, now); err != nil {
			return err
		}

		resources, err = txn.Resources()
		if err != nil {
			return err
		}

		auto = !catalog.NeedsManualReview(resources, priorExcluded)
		requestID := uuid.NewString()

		// A new round invalidates everything downstream of approval
		status.Installation = types.InstallationStatus{Status: types.InstallPending}
		status.ConnectionTest = types.ConnectionTestStatus{Status: types.ConnTestNotTested}
		status.HasConfirmed = false
		status.Targets.Confirmed = false

		if auto {
			status.Approval = types.ApprovalStatus{
				Status:     types.ApprovalAutoApproved,
				RequestID:  requestID,
				ApprovedAt: &now,
			}
			status.Installation = types.InstallationStatus{Status: types.InstallInProgress}
			if err := txn.PutSnapshot(buildSnapshot(projectID, requestID, types.SnapshotApproved, resources, now)); err != nil {
				return err
			}
		} else {
			status.Approval = types.ApprovalStatus{
				Status:    types.ApprovalPending,
				RequestID: requestID,
			}
		}

		catalog.RefreshTargetCounts(status, resources)
		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		w.recordConflict(ctx, err)
		return lifecycle.Result{}, err
	}

	w.logger.LogApprovalDecision(ctx, projectID, auto, st.Targets.SelectedCount, st.Targets.ExcludedCount)
	if auto {
		w.metrics.RecordApproval(ctx, "auto_approved")
		w.audit.Append(ctx, history.NewEvent(projectID, types.EventAutoApproved, actor, types.HistoryDetails{
			ResourceCount:         st.Targets.SelectedCount,
			ExcludedResourceCount: st.Targets.ExcludedCount,
		}))
	} else {
		w.metrics.RecordApproval(ctx, "pending")
	}

	return lifecycle.ComputeResult(st), nil
}

// Approve grants a pending approval request
func (w *Workflow) Approve(ctx context.Context, projectID, comment, actor string) (lifecycle.Result, error) {
	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		if err := requirePending(status); err != nil {
			return err
		}

		resources, err := txn.Resources()
		if err != nil {
			return err
		}

		now := w.now().UTC()
		status.Approval.Status = types.ApprovalApproved
		status.Approval.ApprovedAt = &now
		status.Installation = types.InstallationStatus{Status: types.InstallInProgress}
		if err := txn.PutSnapshot(buildSnapshot(projectID, status.Approval.RequestID, types.SnapshotApproved, resources, now)); err != nil {
			return err
		}

		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		w.recordConflict(ctx, err)
		return lifecycle.Result{}, err
	}

	w.metrics.RecordApproval(ctx, "approved")
	w.audit.Append(ctx, history.NewEvent(projectID, types.EventApproval, actor, types.HistoryDetails{
		Reason:                comment,
		ResourceCount:         st.Targets.SelectedCount,
		ExcludedResourceCount: st.Targets.ExcludedCount,
	}))

	return lifecycle.ComputeResult(st), nil
}

// Reject denies a pending approval request. A non-empty reason is
// mandatory and is echoed back to the requester.
func (w *Workflow) Reject(ctx context.Context, projectID, reason, actor string) (lifecycle.Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return lifecycle.Result{}, errs.Validation("rejection reason is required")
	}

	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		if err := requirePending(status); err != nil {
			return err
		}

		now := w.now().UTC()
		status.Approval = types.ApprovalStatus{
			Status:          types.ApprovalRejected,
			RequestID:       status.Approval.RequestID,
			RejectedAt:      &now,
			RejectionReason: reason,
		}
		status.LastApproval = types.ApprovalRejected
		status.LastRejection = reason
		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		w.recordConflict(ctx, err)
		return lifecycle.Result{}, err
	}

	w.metrics.RecordApproval(ctx, "rejected")
	w.audit.Append(ctx, history.NewEvent(projectID, types.EventRejection, actor, types.HistoryDetails{Reason: reason}))

	return lifecycle.ComputeResult(st), nil
}

// Cancel withdraws a pending approval request. Once the request is
// granted and installation is in flight there is nothing to cancel.
func (w *Workflow) Cancel(ctx context.Context, projectID, actor string) (lifecycle.Result, error) {
	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		switch {
		case status.Approval.Status == types.ApprovalPending:
			// fallthrough to cancellation
		case status.Approval.Status.IsGranted():
			return errs.Conflict(errs.CodeApplyingInProgress, "request already approved, installation in progress")
		default:
			return errs.Validation("no pending approval request to cancel")
		}

		now := w.now().UTC()
		status.Approval = types.ApprovalStatus{
			Status:    types.ApprovalCancelled,
			RequestID: status.Approval.RequestID,
		}
		status.LastApproval = types.ApprovalCancelled
		status.LastRejection = ""
		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		w.recordConflict(ctx, err)
		return lifecycle.Result{}, err
	}

	w.metrics.RecordApproval(ctx, "cancelled")
	w.audit.Append(ctx, history.NewEvent(projectID, types.EventApprovalCancelled, actor, types.HistoryDetails{}))

	return lifecycle.ComputeResult(st), nil
}

// ApprovedIntegration returns the approved snapshot, which exists only
// between approval and final confirmation
func (w *Workflow) ApprovedIntegration(projectID string) (*types.Snapshot, error) {
	return w.snapshot(projectID, types.SnapshotApproved)
}

// ConfirmedIntegration returns the confirmed snapshot
func (w *Workflow) ConfirmedIntegration(projectID string) (*types.Snapshot, error) {
	return w.snapshot(projectID, types.SnapshotConfirmed)
}

func (w *Workflow) snapshot(projectID string, phase types.SnapshotPhase) (*types.Snapshot, error) {
	var snap *types.Snapshot
	err := w.store.View(projectID, func(txn *storage.ProjectTxn) error {
		var err error
		snap, err = txn.Snapshot(phase)
		return err
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errs.NotFound("no %s integration for project %s", strings.ToLower(string(phase)), projectID)
	}
	return snap, nil
}

// requireStatus loads the status record or fails with not-found
func (w *Workflow) requireStatus(txn *storage.ProjectTxn) (*types.ProjectStatus, error) {
	project, err := txn.Project()
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errs.NotFound("project not found")
	}

	status, err := txn.Status()
	if err != nil {
		return nil, err
	}
	if status == nil {
		initial := types.NewProjectStatus(project.ID)
		status = &initial
	}
	return status, nil
}

func (w *Workflow) recordConflict(ctx context.Context, err error) {
	if kind, ok := errs.KindOf(err); ok && kind == errs.KindConflict {
		w.metrics.RecordConflict(ctx, errs.CodeOf(err))
	}
}

func requirePending(status *types.ProjectStatus) error {
	switch {
	case status.Approval.Status == types.ApprovalPending:
		return nil
	case status.Approval.Status.IsGranted():
		return errs.Conflict(errs.CodeApplyingInProgress, "request already approved, installation in progress")
	default:
		return errs.Validation("no pending approval request")
	}
}

func anySelected(selections []catalog.Selection) bool {
	for _, s := range selections {
		if s.Selected {
			return true
		}
	}
	return false
}
