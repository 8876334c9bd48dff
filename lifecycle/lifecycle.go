// Package lifecycle derives the coarse process state of a project
// from its five sub-statuses. The coarse state is never persisted;
// it is recomputed on every read so it cannot drift from the record
// it is derived from.
package lifecycle

import "github.com/liitos/liitos/types"

// State is the coarse process state shown to the console
type State string

const (
	StateTargetSelection       State = "TARGET_SELECTION"
	StateWaitingApproval       State = "WAITING_APPROVAL"
	StateApplying              State = "APPLYING"
	StateWaitingConnectionTest State = "WAITING_CONNECTION_TEST"
	StateConnectionVerified    State = "CONNECTION_VERIFIED"
	StateConfirmed             State = "CONFIRMED"
)

// Result carries the coarse state plus step-one feedback: when the
// project is back at target selection after a rejection or
// cancellation, the UI needs to show why.
type Result struct {
	State               State               `json:"process_status"`
	LastApprovalResult  types.ApprovalPhase `json:"last_approval_result,omitempty"`
	LastRejectionReason string              `json:"last_rejection_reason,omitempty"`
}

// Compute maps a sub-status record to exactly one coarse state.
// Pure and total: first matching rule wins, no clock, no provider
// special cases.
func Compute(st types.ProjectStatus) State {
	switch {
	case st.Approval.Status == types.ApprovalPending:
		return StateWaitingApproval
	case st.Approval.Status.IsGranted() && st.Installation.Status == types.InstallInProgress:
		return StateApplying
	case st.Installation.Status == types.InstallCompleted && st.ConnectionTest.Status != types.ConnTestPassed:
		return StateWaitingConnectionTest
	case st.ConnectionTest.Status == types.ConnTestPassed && !st.HasConfirmed:
		return StateConnectionVerified
	case st.HasConfirmed:
		return StateConfirmed
	default:
		return StateTargetSelection
	}
}

// ComputeResult computes the coarse state and, at target selection,
// surfaces the outcome of the last approval round
func ComputeResult(st types.ProjectStatus) Result {
	state := Compute(st)
	result := Result{State: state}
	if state == StateTargetSelection {
		result.LastApprovalResult = st.LastApproval
		result.LastRejectionReason = st.LastRejection
	}
	return result
}
