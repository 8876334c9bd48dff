package approval

import (
	"time"

	"github.com/liitos/liitos/types"
)

// buildSnapshot freezes the current selection into an immutable
// snapshot. Snapshots are value objects created fresh on each
// transition, never mutated in place.
func buildSnapshot(projectID, requestID string, phase types.SnapshotPhase, resources []types.Resource, now time.Time) *types.Snapshot {
	snap := &types.Snapshot{
		RequestID:         requestID,
		ProjectID:         projectID,
		Phase:             phase,
		ResourceInfos:     []types.ResourceSummary{},
		ExcludedResources: []types.ExcludedResource{},
		CreatedAt:         now,
	}

	for _, r := range resources {
		if r.Selected {
			snap.ResourceInfos = append(snap.ResourceInfos, types.ResourceSummary{
				ResourceID: r.ID,
				NativeID:   r.NativeID,
				Name:       r.Name,
				EngineKind: r.EngineKind,
			})
			continue
		}
		if r.Exclusion != nil {
			snap.ExcludedResources = append(snap.ExcludedResources, types.ExcludedResource{
				ResourceID: r.ID,
				Reason:     r.Exclusion.Reason,
			})
		}
	}

	return snap
}

// confirmSnapshot derives the confirmed snapshot from the approved one
func confirmSnapshot(approved *types.Snapshot, now time.Time) *types.Snapshot {
	confirmed := *approved
	confirmed.Phase = types.SnapshotConfirmed
	confirmed.CreatedAt = now
	return &confirmed
}
