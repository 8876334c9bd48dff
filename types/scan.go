package types

import "time"

// ScanJobStatus is the lifecycle state of a discovery job
type ScanJobStatus string

const (
	ScanJobScanning ScanJobStatus = "SCANNING"
	ScanJobSuccess  ScanJobStatus = "SUCCESS"
	ScanJobFailed   ScanJobStatus = "FAILED"
)

// IsTerminal reports whether the job can no longer change
func (s ScanJobStatus) IsTerminal() bool {
	return s == ScanJobSuccess || s == ScanJobFailed
}

// ScanJob is one asynchronous discovery job. Progress is advisory:
// it is derived from wall-clock time versus EstimatedEndAt on read,
// not driven by a background timer.
type ScanJob struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"project_id"`
	Provider       Provider      `json:"provider"`
	Status         ScanJobStatus `json:"status"`
	Progress       int           `json:"progress"` // 0-100
	StartedAt      time.Time     `json:"started_at"`
	EstimatedEndAt time.Time     `json:"estimated_end_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Result         *ScanResult   `json:"result,omitempty"`
}

// ScanResult summarizes what one completed scan found
type ScanResult struct {
	TotalFound   int            `json:"total_found"`
	ByEngineKind map[string]int `json:"by_engine_kind"`
	NewFound     int            `json:"new_found"`
	Updated      int            `json:"updated"`
	Removed      int            `json:"removed"`
}

// ScanHistoryEntry is the immutable record written when a scan job
// reaches a terminal state
type ScanHistoryEntry struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"project_id"`
	ScanJobID        string        `json:"scan_job_id"`
	Status           ScanJobStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at"`
	DurationMs       int64         `json:"duration_ms"`
	Result           ScanResult    `json:"result"`
	ResourcesBefore  int           `json:"resources_before"`
	ResourcesAfter   int           `json:"resources_after"`
	AddedResourceIDs []string      `json:"added_resource_ids,omitempty"`
}
