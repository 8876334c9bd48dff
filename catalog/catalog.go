// Package catalog maintains a project's resource set: selection and
// exclusion bookkeeping and the merge of discovery results. All
// functions operate inside a storage transaction so callers compose
// them atomically with status updates.
package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/types"
)

// Selection is one per-resource decision in an approval submission
type Selection struct {
	ResourceID      string `json:"resource_id"`
	Selected        bool   `json:"selected"`
	ExclusionReason string `json:"exclusion_reason,omitempty"`
}

// ApplyOutcome summarizes an applied selection set
type ApplyOutcome struct {
	Selected []types.Resource
	Excluded []types.Resource
}

// ApplySelections writes a selection set to the catalog. Selecting a
// resource clears any exclusion; deselecting a TARGET resource with a
// reason records one. Exclusions persist across scans so repeated
// non-selection of the same resource does not re-trigger manual review.
func ApplySelections(txn *storage.ProjectTxn, selections []Selection, actor string, now time.Time) (*ApplyOutcome, error) {
	outcome := &ApplyOutcome{}

	for _, sel := range selections {
		r, err := txn.Resource(sel.ResourceID)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errs.Validation("unknown resource %s", sel.ResourceID)
		}

		r.Selected = sel.Selected
		r.UpdatedAt = now

		if sel.Selected {
			r.Exclusion = nil
		} else if sel.ExclusionReason != "" && r.IsTarget() {
			r.Exclusion = &types.Exclusion{
				Reason:     sel.ExclusionReason,
				ExcludedAt: now,
				ExcludedBy: actor,
			}
		}

		if err := txn.PutResource(r); err != nil {
			return nil, err
		}

		if r.Selected {
			outcome.Selected = append(outcome.Selected, *r)
		} else if r.Exclusion != nil {
			outcome.Excluded = append(outcome.Excluded, *r)
		}
	}

	return outcome, nil
}

// ExcludedIDs returns the ids of resources carrying an exclusion
func ExcludedIDs(resources []types.Resource) map[string]bool {
	ids := make(map[string]bool)
	for _, r := range resources {
		if r.Exclusion != nil {
			ids[r.ID] = true
		}
	}
	return ids
}

// NeedsManualReview implements the auto-approval rule: approval can be
// automatic iff every TARGET resource is either selected or was already
// excluded before this submission. An exclusion recorded in the current
// round does not count; its first use goes through a human.
func NeedsManualReview(resources []types.Resource, priorExcluded map[string]bool) bool {
	for _, r := range resources {
		if !r.IsTarget() || r.Selected {
			continue
		}
		if !priorExcluded[r.ID] {
			return true
		}
	}
	return false
}

// MergeOutcome summarizes one discovery merge
type MergeOutcome struct {
	TotalFound   int
	NewFound     int
	Updated      int
	Removed      int
	ByEngineKind map[string]int
	AddedIDs     []string
	Before       int
	After        int
}

// Result converts the outcome to the scan result record
func (o *MergeOutcome) Result() types.ScanResult {
	return types.ScanResult{
		TotalFound:   o.TotalFound,
		ByEngineKind: o.ByEngineKind,
		NewFound:     o.NewFound,
		Updated:      o.Updated,
		Removed:      o.Removed,
	}
}

// MergeDiscovered folds discovery results into the catalog. Identity
// is the provider-native id: known resources are updated in place so
// selection and exclusion survive the scan, unknown ones are added,
// and resources the scan no longer sees are removed.
func MergeDiscovered(txn *storage.ProjectTxn, projectID string, discovered []types.Resource, now time.Time) (*MergeOutcome, error) {
	existing, err := txn.Resources()
	if err != nil {
		return nil, err
	}

	byNativeID := make(map[string]*types.Resource, len(existing))
	for i := range existing {
		byNativeID[existing[i].NativeID] = &existing[i]
	}

	outcome := &MergeOutcome{
		TotalFound:   len(discovered),
		ByEngineKind: make(map[string]int),
		Before:       len(existing),
	}

	seen := make(map[string]bool, len(discovered))
	for _, d := range discovered {
		outcome.ByEngineKind[d.EngineKind]++
		seen[d.NativeID] = true

		current, known := byNativeID[d.NativeID]
		if !known {
			added := d
			added.ID = uuid.NewString()
			added.ProjectID = projectID
			added.ConnectionStatus = types.ConnectionPending
			added.DiscoveredAt = now
			added.UpdatedAt = now
			if err := txn.PutResource(&added); err != nil {
				return nil, err
			}
			outcome.NewFound++
			outcome.AddedIDs = append(outcome.AddedIDs, added.ID)
			continue
		}

		if updateResource(current, &d, now) {
			if err := txn.PutResource(current); err != nil {
				return nil, err
			}
			outcome.Updated++
		}
	}

	for _, r := range existing {
		if seen[r.NativeID] {
			continue
		}
		if err := txn.DeleteResource(r.ID); err != nil {
			return nil, err
		}
		outcome.Removed++
	}

	outcome.After = outcome.Before + outcome.NewFound - outcome.Removed
	return outcome, nil
}

// updateResource folds discovered attributes into a known resource,
// leaving selection and exclusion untouched
func updateResource(current, discovered *types.Resource, now time.Time) bool {
	changed := false
	if current.Name != discovered.Name {
		current.Name = discovered.Name
		changed = true
	}
	if current.EngineKind != discovered.EngineKind {
		current.EngineKind = discovered.EngineKind
		changed = true
	}
	if current.Category != discovered.Category {
		current.Category = discovered.Category
		changed = true
	}
	if changed {
		current.UpdatedAt = now
	}
	return changed
}

// RefreshTargetCounts recomputes the target sub-status counters from
// the catalog
func RefreshTargetCounts(st *types.ProjectStatus, resources []types.Resource) {
	st.Targets.SelectedCount = types.CountSelected(resources)
	st.Targets.ExcludedCount = types.CountExcluded(resources)
}
