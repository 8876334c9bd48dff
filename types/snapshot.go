package types

import "time"

// SnapshotPhase distinguishes the two snapshot variants
type SnapshotPhase string

const (
	SnapshotApproved  SnapshotPhase = "APPROVED"  // exists between approval and final confirmation
	SnapshotConfirmed SnapshotPhase = "CONFIRMED" // replaces the approved snapshot on confirmation
)

// ResourceSummary is the per-resource slice of a snapshot
type ResourceSummary struct {
	ResourceID string `json:"resource_id"`
	NativeID   string `json:"native_id"`
	Name       string `json:"name"`
	EngineKind string `json:"engine_kind"`
}

// ExcludedResource records one exclusion inside a snapshot
type ExcludedResource struct {
	ResourceID string `json:"resource_id"`
	Reason     string `json:"reason"`
}

// Snapshot is an immutable point-in-time record of an approved or
// confirmed target set. Snapshots are created fresh on each transition
// and never mutated in place.
type Snapshot struct {
	RequestID         string             `json:"request_id"`
	ProjectID         string             `json:"project_id"`
	Phase             SnapshotPhase      `json:"phase"`
	ResourceInfos     []ResourceSummary  `json:"resource_infos"`
	ExcludedResources []ExcludedResource `json:"excluded_resources"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ExcludedResourceIDs returns just the ids of the excluded resources
func (s *Snapshot) ExcludedResourceIDs() []string {
	ids := make([]string, 0, len(s.ExcludedResources))
	for _, e := range s.ExcludedResources {
		ids = append(ids, e.ResourceID)
	}
	return ids
}
