package types

import "time"

// ScanPhase is the discovery sub-status of a project
type ScanPhase string

const (
	ScanNotStarted ScanPhase = "NOT_STARTED"
	ScanCompleted  ScanPhase = "COMPLETED"
)

// ApprovalPhase is the approval sub-status of a project
type ApprovalPhase string

const (
	ApprovalNone         ApprovalPhase = "NONE"
	ApprovalPending      ApprovalPhase = "PENDING"
	ApprovalApproved     ApprovalPhase = "APPROVED"
	ApprovalAutoApproved ApprovalPhase = "AUTO_APPROVED"
	ApprovalRejected     ApprovalPhase = "REJECTED"
	ApprovalCancelled    ApprovalPhase = "CANCELLED"
)

// IsGranted reports whether the phase represents a granted approval
func (p ApprovalPhase) IsGranted() bool {
	return p == ApprovalApproved || p == ApprovalAutoApproved
}

// InstallPhase is the installation sub-status of a project
type InstallPhase string

const (
	InstallPending    InstallPhase = "PENDING"
	InstallInProgress InstallPhase = "IN_PROGRESS"
	InstallCompleted  InstallPhase = "COMPLETED"
	InstallFailed     InstallPhase = "FAILED"
)

// ConnTestPhase is the connection-test sub-status of a project
type ConnTestPhase string

const (
	ConnTestNotTested ConnTestPhase = "NOT_TESTED"
	ConnTestPassed    ConnTestPhase = "PASSED"
	ConnTestFailed    ConnTestPhase = "FAILED"
)

// ScanStatus tracks whether discovery ever completed for the project
type ScanStatus struct {
	Status ScanPhase `json:"status"`
}

// TargetStatus tracks the confirmed target set
type TargetStatus struct {
	Confirmed     bool `json:"confirmed"`
	SelectedCount int  `json:"selected_count"`
	ExcludedCount int  `json:"excluded_count"`
}

// ApprovalStatus tracks the current approval request
type ApprovalStatus struct {
	Status          ApprovalPhase `json:"status"`
	RequestID       string        `json:"request_id,omitempty"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// InstallationStatus tracks the agent installation pipeline
type InstallationStatus struct {
	Status      InstallPhase `json:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ConnectionTestStatus tracks post-installation connectivity verification
type ConnectionTestStatus struct {
	Status   ConnTestPhase `json:"status"`
	PassedAt *time.Time    `json:"passed_at,omitempty"`
}

// ProjectStatus is the sub-status record owned by one project.
// The coarse process state is never stored; it is recomputed from
// these five sub-statuses on every read.
type ProjectStatus struct {
	ProjectID      string               `json:"project_id"`
	Scan           ScanStatus           `json:"scan"`
	Targets        TargetStatus         `json:"targets"`
	Approval       ApprovalStatus       `json:"approval"`
	Installation   InstallationStatus   `json:"installation"`
	ConnectionTest ConnectionTestStatus `json:"connection_test"`
	HasConfirmed   bool                 `json:"has_confirmed"` // a Confirmed snapshot exists
	LastApproval   ApprovalPhase        `json:"last_approval_result,omitempty"`
	LastRejection  string               `json:"last_rejection_reason,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewProjectStatus returns the initial sub-status record for a project
func NewProjectStatus(projectID string) ProjectStatus {
	return ProjectStatus{
		ProjectID:      projectID,
		Scan:           ScanStatus{Status: ScanNotStarted},
		Approval:       ApprovalStatus{Status: ApprovalNone},
		Installation:   InstallationStatus{Status: InstallPending},
		ConnectionTest: ConnectionTestStatus{Status: ConnTestNotTested},
	}
}
