package approval

import (
	"context"
	"math"

	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/history"
	"github.com/liitos/liitos/lifecycle"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/types"
)

// ConfirmInstallation finalizes an integration. Valid only in
// CONNECTION_VERIFIED, and only after the dwell window measured from
// the approval timestamp has elapsed: the installation pipeline
// reports completion before it has fully settled, and confirming too
// early would freeze a half-applied target set. Callers that hit the
// window get the remaining seconds so they can back off and retry.
//
// The dwell window stands in for a real "pipeline settled" signal; a
// production pipeline integration should replace the timer but keep
// the conflict-with-remaining-time contract.
func (w *Workflow) ConfirmInstallation(ctx context.Context, projectID, actor string) (lifecycle.Result, error) {
	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		if lifecycle.Compute(*status) != lifecycle.StateConnectionVerified {
			return errs.Validation("project is not ready for confirmation")
		}

		now := w.now().UTC()
		if status.Approval.ApprovedAt != nil {
			elapsed := now.Sub(*status.Approval.ApprovedAt)
			if elapsed < w.confirmDwell {
				remaining := int(math.Ceil((w.confirmDwell - elapsed).Seconds()))
				return errs.Conflict(errs.CodeInstallationInProgress, "installation is still settling").
					WithMeta("estimated_remaining_seconds", remaining)
			}
		}

		approved, err := txn.Snapshot(types.SnapshotApproved)
		if err != nil {
			return err
		}
		if approved == nil {
			return errs.Validation("no approved integration to confirm")
		}

		if err := txn.DeleteSnapshot(types.SnapshotApproved); err != nil {
			return err
		}
		if err := txn.PutSnapshot(confirmSnapshot(approved, now)); err != nil {
			return err
		}

		status.HasConfirmed = true
		status.Targets.Confirmed = true
		status.LastApproval = status.Approval.Status
		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		w.recordConflict(ctx, err)
		return lifecycle.Result{}, err
	}

	w.metrics.RecordApproval(ctx, "confirmed")
	w.audit.Append(ctx, history.NewEvent(projectID, types.EventTargetConfirmed, actor, types.HistoryDetails{
		ResourceCount:         st.Targets.SelectedCount,
		ExcludedResourceCount: st.Targets.ExcludedCount,
	}))

	return lifecycle.ComputeResult(st), nil
}
