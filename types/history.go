package types

import "time"

// HistoryEventType classifies audit log entries
type HistoryEventType string

const (
	EventTargetConfirmed      HistoryEventType = "TARGET_CONFIRMED"
	EventAutoApproved         HistoryEventType = "AUTO_APPROVED"
	EventApproval             HistoryEventType = "APPROVAL"
	EventRejection            HistoryEventType = "REJECTION"
	EventApprovalCancelled    HistoryEventType = "APPROVAL_CANCELLED"
	EventDecommissionRequest  HistoryEventType = "DECOMMISSION_REQUEST"
	EventDecommissionApproved HistoryEventType = "DECOMMISSION_APPROVED"
	EventDecommissionRejected HistoryEventType = "DECOMMISSION_REJECTED"
)

// IsApprovalRelated reports whether the event belongs to the approval
// filter of the history API
func (t HistoryEventType) IsApprovalRelated() bool {
	switch t {
	case EventAutoApproved, EventApproval, EventRejection, EventApprovalCancelled:
		return true
	default:
		return false
	}
}

// HistoryDetails carries free-form context for an audit event
type HistoryDetails struct {
	Reason                string `json:"reason,omitempty"`
	ResourceCount         int    `json:"resource_count,omitempty"`
	ExcludedResourceCount int    `json:"excluded_resource_count,omitempty"`
}

// HistoryEvent is one append-only audit record. Events are never
// mutated after they are written.
type HistoryEvent struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"project_id"`
	Type      HistoryEventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Actor     string           `json:"actor"`
	Details   HistoryDetails   `json:"details"`
}
