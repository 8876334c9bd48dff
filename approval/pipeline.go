package approval

import (
	"context"

	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/lifecycle"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/types"
)

// Pipeline signals. The engine never runs installations or connection
// tests itself; external collaborators report their outcomes here.

// CompleteInstallation records the installation pipeline's outcome.
// Valid only while the project is APPLYING.
func (w *Workflow) CompleteInstallation(ctx context.Context, projectID string, success bool) (lifecycle.Result, error) {
	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		if lifecycle.Compute(*status) != lifecycle.StateApplying {
			return errs.Validation("no installation in progress")
		}

		now := w.now().UTC()
		phase := types.InstallCompleted
		if !success {
			phase = types.InstallFailed
		}
		status.Installation = types.InstallationStatus{Status: phase, CompletedAt: &now}
		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		return lifecycle.Result{}, err
	}

	w.logger.WithContext(ctx).Info().
		Str("project_id", projectID).
		Bool("success", success).
		Str("operation", "installation_complete").
		Msg("installation pipeline reported completion")

	return lifecycle.ComputeResult(st), nil
}

// RecordConnectionTest records a connection test outcome. Valid only
// once installation has completed. A passing test marks every
// selected resource as connected.
func (w *Workflow) RecordConnectionTest(ctx context.Context, projectID string, passed bool) (lifecycle.Result, error) {
	var st types.ProjectStatus
	err := w.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		status, err := w.requireStatus(txn)
		if err != nil {
			return err
		}

		if status.Installation.Status != types.InstallCompleted {
			return errs.Validation("installation has not completed")
		}

		now := w.now().UTC()
		if passed {
			status.ConnectionTest = types.ConnectionTestStatus{Status: types.ConnTestPassed, PassedAt: &now}
		} else {
			status.ConnectionTest = types.ConnectionTestStatus{Status: types.ConnTestFailed}
		}

		if passed {
			resources, err := txn.Resources()
			if err != nil {
				return err
			}
			for i := range resources {
				if !resources[i].Selected {
					continue
				}
				resources[i].ConnectionStatus = types.ConnectionConnected
				resources[i].UpdatedAt = now
				if err := txn.PutResource(&resources[i]); err != nil {
					return err
				}
			}
		}

		status.UpdatedAt = now
		st = *status
		return txn.PutStatus(status)
	})
	if err != nil {
		return lifecycle.Result{}, err
	}

	w.logger.WithContext(ctx).Info().
		Str("project_id", projectID).
		Bool("passed", passed).
		Str("operation", "connection_test").
		Msg("connection test recorded")

	return lifecycle.ComputeResult(st), nil
}
