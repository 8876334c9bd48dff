package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/liitos/liitos/types"
)

// ProjectTxn is a typed view over one bbolt transaction, scoped to a
// single project. Obtained via ProjectStore.Update or View.
type ProjectTxn struct {
	tx        *bbolt.Tx
	projectID string
	readOnly  bool
	indexOps  []indexOp
	newRev    int64
}

func (t *ProjectTxn) key(parts ...string) []byte {
	key := t.projectID
	for _, p := range parts {
		key += "/" + p
	}
	return []byte(key)
}

func (t *ProjectTxn) get(bucket []byte, key []byte, out any) (bool, error) {
	v := t.tx.Bucket(bucket).Get(key)
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, out); err != nil {
		return false, fmt.Errorf("corrupt record %q: %w", key, err)
	}
	return true, nil
}

func (t *ProjectTxn) put(bucket []byte, key []byte, in any) error {
	v, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal record %q: %w", key, err)
	}
	return t.tx.Bucket(bucket).Put(key, v)
}

// Project loads the project record, nil when absent
func (t *ProjectTxn) Project() (*types.Project, error) {
	var p types.Project
	ok, err := t.get(bucketProjects, []byte(t.projectID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// PutProject stores the project record
func (t *ProjectTxn) PutProject(p *types.Project) error {
	return t.put(bucketProjects, []byte(t.projectID), p)
}

// Status loads the project's sub-status record, nil when absent
func (t *ProjectTxn) Status() (*types.ProjectStatus, error) {
	var st types.ProjectStatus
	ok, err := t.get(bucketStatus, []byte(t.projectID), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

// PutStatus stores the project's sub-status record
func (t *ProjectTxn) PutStatus(st *types.ProjectStatus) error {
	return t.put(bucketStatus, []byte(t.projectID), st)
}

// Resources loads all of the project's resources in id order
func (t *ProjectTxn) Resources() ([]types.Resource, error) {
	var resources []types.Resource
	prefix := t.key("")
	c := t.tx.Bucket(bucketResources).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var r types.Resource
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, fmt.Errorf("corrupt resource record %q: %w", k, err)
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// Resource loads one resource, nil when absent
func (t *ProjectTxn) Resource(resourceID string) (*types.Resource, error) {
	var r types.Resource
	ok, err := t.get(bucketResources, t.key(resourceID), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// PutResource stores a resource and queues an index update
func (t *ProjectTxn) PutResource(r *types.Resource) error {
	if err := t.put(bucketResources, t.key(r.ID), r); err != nil {
		return err
	}
	t.indexOps = append(t.indexOps, indexOp{ref: newResourceRef(r)})
	return nil
}

// DeleteResource removes a resource and queues an index removal
func (t *ProjectTxn) DeleteResource(resourceID string) error {
	if err := t.tx.Bucket(bucketResources).Delete(t.key(resourceID)); err != nil {
		return err
	}
	t.indexOps = append(t.indexOps, indexOp{
		ref:    &ResourceRef{ProjectID: t.projectID, ResourceID: resourceID},
		remove: true,
	})
	return nil
}

// Snapshot loads the approved or confirmed snapshot, nil when absent
func (t *ProjectTxn) Snapshot(phase types.SnapshotPhase) (*types.Snapshot, error) {
	var s types.Snapshot
	ok, err := t.get(bucketSnapshots, t.key(string(phase)), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// PutSnapshot stores a snapshot under its phase slot
func (t *ProjectTxn) PutSnapshot(s *types.Snapshot) error {
	return t.put(bucketSnapshots, t.key(string(s.Phase)), s)
}

// DeleteSnapshot removes the snapshot in the given phase slot
func (t *ProjectTxn) DeleteSnapshot(phase types.SnapshotPhase) error {
	return t.tx.Bucket(bucketSnapshots).Delete(t.key(string(phase)))
}

// ScanJob loads one scan job, nil when absent
func (t *ProjectTxn) ScanJob(jobID string) (*types.ScanJob, error) {
	var job types.ScanJob
	ok, err := t.get(bucketScans, t.key(jobID), &job)
	if err != nil || !ok {
		return nil, err
	}
	return &job, nil
}

// PutScanJob stores a scan job and maintains the active-job pointer:
// non-terminal jobs claim it, terminal jobs release it
func (t *ProjectTxn) PutScanJob(job *types.ScanJob) error {
	if err := t.put(bucketScans, t.key(job.ID), job); err != nil {
		return err
	}
	active := t.tx.Bucket(bucketActiveScans)
	if job.Status.IsTerminal() {
		current := active.Get([]byte(t.projectID))
		if current != nil && string(current) == job.ID {
			return active.Delete([]byte(t.projectID))
		}
		return nil
	}
	return active.Put([]byte(t.projectID), []byte(job.ID))
}

// ActiveScanID returns the project's non-terminal scan job id, empty if none
func (t *ProjectTxn) ActiveScanID() string {
	v := t.tx.Bucket(bucketActiveScans).Get([]byte(t.projectID))
	return string(v)
}

// AppendScanHistory writes one immutable scan history entry
func (t *ProjectTxn) AppendScanHistory(entry *types.ScanHistoryEntry) error {
	bucket := t.tx.Bucket(bucketScanHistory)
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	return t.put(bucketScanHistory, t.seqKey(seq), entry)
}

// ScanHistory returns entries newest-first with limit/offset pagination
func (t *ProjectTxn) ScanHistory(limit, offset int) ([]types.ScanHistoryEntry, error) {
	var entries []types.ScanHistoryEntry
	err := t.reverseScan(bucketScanHistory, limit, offset, func(v []byte) error {
		var e types.ScanHistoryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("corrupt scan history record: %w", err)
		}
		entries = append(entries, e)
		return nil
	}, nil)
	return entries, err
}

// LatestScanHistory returns the most recent entry, nil when none exist
func (t *ProjectTxn) LatestScanHistory() (*types.ScanHistoryEntry, error) {
	entries, err := t.ScanHistory(1, 0)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// AppendEvent writes one immutable audit event
func (t *ProjectTxn) AppendEvent(event *types.HistoryEvent) error {
	bucket := t.tx.Bucket(bucketEvents)
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	return t.put(bucketEvents, t.seqKey(seq), event)
}

// Events returns audit events newest-first; keep filters which events count
func (t *ProjectTxn) Events(limit, offset int, keep func(types.HistoryEventType) bool) ([]types.HistoryEvent, error) {
	var events []types.HistoryEvent
	err := t.reverseScan(bucketEvents, limit, offset, func(v []byte) error {
		var e types.HistoryEvent
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("corrupt audit record: %w", err)
		}
		events = append(events, e)
		return nil
	}, func(v []byte) (bool, error) {
		if keep == nil {
			return true, nil
		}
		var e types.HistoryEvent
		if err := json.Unmarshal(v, &e); err != nil {
			return false, fmt.Errorf("corrupt audit record: %w", err)
		}
		return keep(e.Type), nil
	})
	return events, err
}

func (t *ProjectTxn) seqKey(seq uint64) []byte {
	key := make([]byte, 0, len(t.projectID)+9)
	key = append(key, t.projectID...)
	key = append(key, '/')
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// reverseScan walks a project's records newest-first, applying match
// (nil matches all) before offset/limit accounting
func (t *ProjectTxn) reverseScan(bucket []byte, limit, offset int, fn func(v []byte) error, match func(v []byte) (bool, error)) error {
	prefix := t.key("")
	c := t.tx.Bucket(bucket).Cursor()

	k, v := c.Seek(prefixEnd(prefix))
	if k == nil {
		k, v = c.Last()
	} else {
		k, v = c.Prev()
	}

	skipped, taken := 0, 0
	for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
		if match != nil {
			ok, err := match(v)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && taken >= limit {
			break
		}
		if err := fn(v); err != nil {
			return err
		}
		taken++
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key with prefix
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// bumpRevision advances the persisted revision counter once per
// committed mutation
func (t *ProjectTxn) bumpRevision() error {
	meta := t.tx.Bucket(bucketMeta)
	rev := int64(0)
	if v := meta.Get([]byte("current_revision")); v != nil {
		rev = int64(binary.BigEndian.Uint64(v))
	}
	rev++
	t.newRev = rev
	return meta.Put([]byte("current_revision"), int64ToBytes(rev))
}
