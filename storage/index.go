package storage

import (
	"strings"

	"github.com/liitos/liitos/types"
)

// ResourceRef tracks a resource in the in-memory index
type ResourceRef struct {
	ProjectID  string
	ResourceID string
	NativeID   string
	Category   types.IntegrationCategory
	Selected   bool
	Excluded   bool
}

// Key orders refs by project, then resource
func (r *ResourceRef) Key() string {
	return r.ProjectID + "/" + r.ResourceID
}

func newResourceRef(r *types.Resource) *ResourceRef {
	return &ResourceRef{
		ProjectID:  r.ProjectID,
		ResourceID: r.ID,
		NativeID:   r.NativeID,
		Category:   r.Category,
		Selected:   r.Selected,
		Excluded:   r.Exclusion != nil,
	}
}

// indexOp is a deferred index mutation applied after a successful commit
type indexOp struct {
	ref    *ResourceRef
	remove bool
}

func (s *ProjectStore) applyIndexOps(ops []indexOp) {
	if len(ops) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.remove {
			s.index.Delete(op.ref)
			continue
		}
		s.index.ReplaceOrInsert(op.ref)
	}
}

// ResourceCount returns how many resources the project currently has
func (s *ProjectStore) ResourceCount(projectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	s.ascendProject(projectID, func(ref *ResourceRef) bool {
		count++
		return true
	})
	return count
}

// ResourceRefs returns the project's index entries in id order
func (s *ProjectStore) ResourceRefs(projectID string) []*ResourceRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []*ResourceRef
	s.ascendProject(projectID, func(ref *ResourceRef) bool {
		refs = append(refs, ref)
		return true
	})
	return refs
}

// ascendProject walks index entries for one project; callers hold s.mu
func (s *ProjectStore) ascendProject(projectID string, fn func(ref *ResourceRef) bool) {
	pivot := &ResourceRef{ProjectID: projectID}
	s.index.AscendGreaterOrEqual(pivot, func(ref *ResourceRef) bool {
		if !strings.HasPrefix(ref.Key(), projectID+"/") {
			return false
		}
		return fn(ref)
	})
}
