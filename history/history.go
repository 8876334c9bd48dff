// Package history is the append-only audit log of lifecycle-affecting
// events. Events are written after the state change they describe has
// committed: an append failure is logged but never rolls the state
// change back.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
	"github.com/liitos/liitos/types"
)

// Filter names for Query
const (
	FilterAll      = "all"
	FilterApproval = "approval"
)

// Log records and queries audit events for projects
type Log struct {
	store  *storage.ProjectStore
	logger *telemetry.Logger
}

// NewLog creates an audit log over the store
func NewLog(store *storage.ProjectStore, logger *telemetry.Logger) *Log {
	return &Log{store: store, logger: logger}
}

// NewEvent builds an audit event with a fresh id and timestamp
func NewEvent(projectID string, eventType types.HistoryEventType, actor string, details types.HistoryDetails) types.HistoryEvent {
	return types.HistoryEvent{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Details:   details,
	}
}

// Append records one event. Failures are logged and swallowed so the
// audit trail is never a reason to fail a committed state change.
func (l *Log) Append(ctx context.Context, event types.HistoryEvent) {
	err := l.store.Update(event.ProjectID, func(txn *storage.ProjectTxn) error {
		return txn.AppendEvent(&event)
	})
	if err != nil {
		l.logger.LogHistoryAppendFailed(ctx, event.ProjectID, err)
	}
}

// Query returns events newest-first. filter is "all" or "approval";
// limit and offset paginate the filtered stream.
func (l *Log) Query(projectID, filter string, limit, offset int) ([]types.HistoryEvent, error) {
	var keep func(types.HistoryEventType) bool
	if filter == FilterApproval {
		keep = types.HistoryEventType.IsApprovalRelated
	}

	var events []types.HistoryEvent
	err := l.store.View(projectID, func(txn *storage.ProjectTxn) error {
		var err error
		events, err = txn.Events(limit, offset, keep)
		return err
	})
	return events, err
}
