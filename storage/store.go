package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/liitos/liitos/types"
)

// Bucket names in bbolt
var (
	bucketProjects    = []byte("projects")
	bucketStatus      = []byte("status")
	bucketResources   = []byte("resources")
	bucketSnapshots   = []byte("snapshots")
	bucketScans       = []byte("scans")
	bucketActiveScans = []byte("active_scans")
	bucketScanHistory = []byte("scan_history")
	bucketEvents      = []byte("events")
	bucketMeta        = []byte("meta")
)

var allBuckets = [][]byte{
	bucketProjects, bucketStatus, bucketResources, bucketSnapshots,
	bucketScans, bucketActiveScans, bucketScanHistory, bucketEvents, bucketMeta,
}

// ProjectStore persists all lifecycle state. Every mutation for one
// project runs under that project's lock inside a single bbolt
// transaction, so each action is all-or-nothing and each project has
// exactly one serialization point.
type ProjectStore struct {
	mu sync.RWMutex

	// In-memory index of resource refs for fast per-project reads
	index *btree.BTreeG[*ResourceRef]

	db *bbolt.DB

	// Current revision number, bumped once per committed mutation
	currentRev int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Open opens or creates the store at path
func Open(path string) (*ProjectStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &ProjectStore{
		index: btree.NewG[*ResourceRef](32, func(a, b *ResourceRef) bool {
			return a.Key() < b.Key()
		}),
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}

	s.loadRevision()

	if err := s.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the store
func (s *ProjectStore) Close() error {
	return s.db.Close()
}

// projectLock returns the serialization point for one project
func (s *ProjectStore) projectLock(projectID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[projectID] = lock
	}
	return lock
}

// Update runs fn under projectID's lock inside one write transaction.
// All mutations fn performs commit together or not at all.
func (s *ProjectStore) Update(projectID string, fn func(txn *ProjectTxn) error) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	var ops []indexOp
	var newRev int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		txn := &ProjectTxn{tx: tx, projectID: projectID}
		if err := fn(txn); err != nil {
			return err
		}
		if err := txn.bumpRevision(); err != nil {
			return err
		}
		ops = txn.indexOps
		newRev = txn.newRev
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if newRev > s.currentRev {
		s.currentRev = newRev
	}
	s.mu.Unlock()

	s.applyIndexOps(ops)
	return nil
}

// ListProjects returns all registered projects
func (s *ProjectStore) ListProjects() ([]types.Project, error) {
	var projects []types.Project
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProjects).ForEach(func(k, v []byte) error {
			var p types.Project
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("corrupt project record %q: %w", k, err)
			}
			projects = append(projects, p)
			return nil
		})
	})
	return projects, err
}

// View runs fn inside one read-only transaction
func (s *ProjectStore) View(projectID string, fn func(txn *ProjectTxn) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&ProjectTxn{tx: tx, projectID: projectID, readOnly: true})
	})
}

// CurrentRevision returns the store's current revision
func (s *ProjectStore) CurrentRevision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRev
}

// Stats returns operational metrics for health reporting
func (s *ProjectStore) Stats() (projectCount int, currentRev int64, dbSizeBytes int64) {
	s.mu.RLock()
	currentRev = s.currentRev
	s.mu.RUnlock()

	_ = s.db.View(func(tx *bbolt.Tx) error {
		projectCount = tx.Bucket(bucketProjects).Stats().KeyN
		dbSizeBytes = tx.Size()
		return nil
	})
	return projectCount, currentRev, dbSizeBytes
}

// loadRevision restores the revision counter from disk
func (s *ProjectStore) loadRevision() {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get([]byte("current_revision")); v != nil {
			s.currentRev = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
}

// rebuildIndex reloads the resource index from disk
func (s *ProjectStore) rebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).ForEach(func(k, v []byte) error {
			var r types.Resource
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("corrupt resource record %q: %w", k, err)
			}
			s.index.ReplaceOrInsert(newResourceRef(&r))
			return nil
		})
	})
}

func int64ToBytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}
