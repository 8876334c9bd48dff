package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liitos/liitos/types"
)

func setupTestStore(t *testing.T) *ProjectStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "liitos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestProjectStore_ProjectRoundtrip(t *testing.T) {
	store := setupTestStore(t)

	project := &types.Project{ID: "p1", Name: "orders", Provider: types.ProviderAWS}
	err := store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutProject(project)
	})
	require.NoError(t, err)

	var loaded *types.Project
	err = store.View("p1", func(txn *ProjectTxn) error {
		var err error
		loaded, err = txn.Project()
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "orders", loaded.Name)
	assert.Equal(t, types.ProviderAWS, loaded.Provider)

	// Unknown project reads as nil, not an error
	err = store.View("missing", func(txn *ProjectTxn) error {
		p, err := txn.Project()
		require.NoError(t, err)
		assert.Nil(t, p)
		return nil
	})
	require.NoError(t, err)
}

func TestProjectStore_UpdateIsAllOrNothing(t *testing.T) {
	store := setupTestStore(t)

	err := store.Update("p1", func(txn *ProjectTxn) error {
		if err := txn.PutProject(&types.Project{ID: "p1", Name: "orders", Provider: types.ProviderAWS}); err != nil {
			return err
		}
		if err := txn.PutResource(&types.Resource{ID: "r1", ProjectID: "p1", NativeID: "db-1"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	// Nothing committed, index untouched
	err = store.View("p1", func(txn *ProjectTxn) error {
		p, err := txn.Project()
		require.NoError(t, err)
		assert.Nil(t, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.ResourceCount("p1"))
}

func TestProjectStore_ResourceIndex(t *testing.T) {
	store := setupTestStore(t)

	err := store.Update("p1", func(txn *ProjectTxn) error {
		for i := 0; i < 3; i++ {
			r := &types.Resource{
				ID:        fmt.Sprintf("r%d", i),
				ProjectID: "p1",
				NativeID:  fmt.Sprintf("db-%d", i),
				Category:  types.CategoryTarget,
			}
			if err := txn.PutResource(r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	// Another project's resources don't leak into the count
	err = store.Update("p2", func(txn *ProjectTxn) error {
		return txn.PutResource(&types.Resource{ID: "rx", ProjectID: "p2", NativeID: "db-x"})
	})
	require.NoError(t, err)

	assert.Equal(t, 3, store.ResourceCount("p1"))
	assert.Equal(t, 1, store.ResourceCount("p2"))
	assert.Len(t, store.ResourceRefs("p1"), 3)

	err = store.Update("p1", func(txn *ProjectTxn) error {
		return txn.DeleteResource("r1")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.ResourceCount("p1"))
}

func TestProjectStore_IndexRebuildOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "liitos.db")

	store, err := Open(path)
	require.NoError(t, err)

	err = store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutResource(&types.Resource{ID: "r1", ProjectID: "p1", NativeID: "db-1"})
	})
	require.NoError(t, err)
	rev := store.CurrentRevision()
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.Equal(t, 1, reopened.ResourceCount("p1"))
	assert.Equal(t, rev, reopened.CurrentRevision())
}

func TestProjectStore_RevisionAdvances(t *testing.T) {
	store := setupTestStore(t)
	require.EqualValues(t, 0, store.CurrentRevision())

	for i := 1; i <= 3; i++ {
		err := store.Update("p1", func(txn *ProjectTxn) error {
			return txn.PutStatus(&types.ProjectStatus{ProjectID: "p1"})
		})
		require.NoError(t, err)
		assert.EqualValues(t, i, store.CurrentRevision())
	}
}

func TestProjectTxn_SnapshotSlots(t *testing.T) {
	store := setupTestStore(t)

	err := store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutSnapshot(&types.Snapshot{
			RequestID: "req-1",
			ProjectID: "p1",
			Phase:     types.SnapshotApproved,
		})
	})
	require.NoError(t, err)

	err = store.View("p1", func(txn *ProjectTxn) error {
		approved, err := txn.Snapshot(types.SnapshotApproved)
		require.NoError(t, err)
		require.NotNil(t, approved)
		assert.Equal(t, "req-1", approved.RequestID)

		confirmed, err := txn.Snapshot(types.SnapshotConfirmed)
		require.NoError(t, err)
		assert.Nil(t, confirmed)
		return nil
	})
	require.NoError(t, err)

	err = store.Update("p1", func(txn *ProjectTxn) error {
		return txn.DeleteSnapshot(types.SnapshotApproved)
	})
	require.NoError(t, err)

	err = store.View("p1", func(txn *ProjectTxn) error {
		approved, err := txn.Snapshot(types.SnapshotApproved)
		require.NoError(t, err)
		assert.Nil(t, approved)
		return nil
	})
	require.NoError(t, err)
}

func TestProjectTxn_ActiveScanPointer(t *testing.T) {
	store := setupTestStore(t)

	job := &types.ScanJob{ID: "job-1", ProjectID: "p1", Status: types.ScanJobScanning}
	err := store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutScanJob(job)
	})
	require.NoError(t, err)

	err = store.View("p1", func(txn *ProjectTxn) error {
		assert.Equal(t, "job-1", txn.ActiveScanID())
		return nil
	})
	require.NoError(t, err)

	job.Status = types.ScanJobSuccess
	err = store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutScanJob(job)
	})
	require.NoError(t, err)

	err = store.View("p1", func(txn *ProjectTxn) error {
		assert.Empty(t, txn.ActiveScanID())
		return nil
	})
	require.NoError(t, err)
}

func TestProjectTxn_EventsNewestFirstWithFilter(t *testing.T) {
	store := setupTestStore(t)

	eventTypes := []types.HistoryEventType{
		types.EventAutoApproved,
		types.EventTargetConfirmed,
		types.EventRejection,
		types.EventApproval,
	}
	for i, et := range eventTypes {
		err := store.Update("p1", func(txn *ProjectTxn) error {
			return txn.AppendEvent(&types.HistoryEvent{
				ID:        fmt.Sprintf("e%d", i),
				ProjectID: "p1",
				Type:      et,
			})
		})
		require.NoError(t, err)
	}

	err := store.View("p1", func(txn *ProjectTxn) error {
		all, err := txn.Events(10, 0, nil)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "e3", all[0].ID) // newest first
		assert.Equal(t, "e0", all[3].ID)

		approvalOnly, err := txn.Events(10, 0, types.HistoryEventType.IsApprovalRelated)
		require.NoError(t, err)
		require.Len(t, approvalOnly, 3)
		for _, e := range approvalOnly {
			assert.True(t, e.Type.IsApprovalRelated())
		}

		// Offset applies after filtering
		page, err := txn.Events(1, 1, types.HistoryEventType.IsApprovalRelated)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "e2", page[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestProjectTxn_ScanHistoryPagination(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 5; i++ {
		err := store.Update("p1", func(txn *ProjectTxn) error {
			return txn.AppendScanHistory(&types.ScanHistoryEntry{
				ID:        fmt.Sprintf("h%d", i),
				ProjectID: "p1",
				Status:    types.ScanJobSuccess,
			})
		})
		require.NoError(t, err)
	}

	err := store.View("p1", func(txn *ProjectTxn) error {
		page, err := txn.ScanHistory(2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "h4", page[0].ID)
		assert.Equal(t, "h3", page[1].ID)

		page, err = txn.ScanHistory(2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "h2", page[0].ID)

		latest, err := txn.LatestScanHistory()
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "h4", latest.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestProjectStore_Stats(t *testing.T) {
	store := setupTestStore(t)

	err := store.Update("p1", func(txn *ProjectTxn) error {
		return txn.PutProject(&types.Project{ID: "p1", Name: "orders", Provider: types.ProviderAWS})
	})
	require.NoError(t, err)

	projects, rev, size := store.Stats()
	assert.Equal(t, 1, projects)
	assert.EqualValues(t, 1, rev)
	assert.Positive(t, size)
}
