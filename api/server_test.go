package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liitos/liitos/approval"
	"github.com/liitos/liitos/config"
	"github.com/liitos/liitos/history"
	"github.com/liitos/liitos/registry"
	"github.com/liitos/liitos/scanner"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "liitos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := telemetry.NewLogger("test")
	metrics, err := telemetry.NewEngineMetrics()
	require.NoError(t, err)

	cfg := config.Default()
	audit := history.NewLog(store, logger)
	reg := registry.NewRegistry(store, logger, metrics)
	wf := approval.NewWorkflow(store, audit, logger, metrics, cfg.Approval.ConfirmDwell)
	sched := scanner.NewScheduler(store, logger, metrics, cfg.Scan, scanner.NewSimulatedDiscoverer())

	srv := httptest.NewServer(NewServer(reg, wf, sched, audit, store, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error object, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func TestCreateProject(t *testing.T) {
	srv := setupServer(t)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "orders", "provider": "aws",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["id"])

	status, body = doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "orders", "provider": "oracle-cloud",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	// Missing required fields are caught before the engine is called
	status, body = doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{"name": "orders"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestGetProject_NotFound(t *testing.T) {
	srv := setupServer(t)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/projects/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestApprovalFlowOverHTTP(t *testing.T) {
	srv := setupServer(t)

	// Register-only provider so the catalog is built by hand
	status, project := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "onprem", "provider": "idc",
	})
	require.Equal(t, http.StatusCreated, status)
	base := srv.URL + "/projects/" + project["id"].(string)

	for _, native := range []string{"idc-mysql-01", "idc-mysql-02"} {
		status, _ = doJSON(t, http.MethodPost, base+"/resources", map[string]any{
			"native_id": native, "name": native, "engine_kind": "mysql",
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := doJSON(t, http.MethodGet, base+"/resources", nil)
	require.Equal(t, http.StatusOK, status)
	resources := body["resources"].([]any)
	require.Len(t, resources, 2)

	// Select one target, leave the other unhandled: a human must review
	first := resources[0].(map[string]any)
	status, body = doJSON(t, http.MethodPost, base+"/approval-requests", map[string]any{
		"selections": []map[string]any{
			{"resource_id": first["id"], "selected": true},
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "WAITING_APPROVAL", body["process_status"])

	// Resubmission conflicts while the request is pending
	status, body = doJSON(t, http.MethodPost, base+"/approval-requests", map[string]any{
		"selections": []map[string]any{
			{"resource_id": first["id"], "selected": true},
		},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT_REQUEST_PENDING", errorCode(t, body))

	// Rejection requires a reason
	status, _ = doJSON(t, http.MethodPost, base+"/approval-requests/reject", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, http.MethodPost, base+"/approval-requests/approve", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "APPLYING", body["process_status"])

	status, body = doJSON(t, http.MethodGet, base+"/approved-integration", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["resource_infos"].([]any), 1)

	// The audit trail has the approval
	status, body = doJSON(t, http.MethodGet, base+"/history?type=approval", nil)
	require.Equal(t, http.StatusOK, status)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "APPROVAL", events[0].(map[string]any)["type"])
}

func TestScanEndpoints(t *testing.T) {
	srv := setupServer(t)

	status, project := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "orders", "provider": "aws",
	})
	require.Equal(t, http.StatusCreated, status)
	base := srv.URL + "/projects/" + project["id"].(string)

	status, job := doJSON(t, http.MethodPost, base+"/scans", nil)
	require.Equal(t, http.StatusAccepted, status)
	jobID := job["id"].(string)
	assert.Equal(t, "SCANNING", job["status"])

	status, polled := doJSON(t, http.MethodGet, base+"/scans/"+jobID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, jobID, polled["id"])

	// A second scan conflicts and names the running job
	status, body := doJSON(t, http.MethodPost, base+"/scans", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SCAN_IN_PROGRESS", errorCode(t, body))
	assert.Equal(t, jobID, body["scan_job_id"])

	status, body = doJSON(t, http.MethodGet, base+"/scans/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = doJSON(t, http.MethodGet, base+"/scan-history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body["entries"])
}

func TestScanRejectedForRegisterOnlyProvider(t *testing.T) {
	srv := setupServer(t)

	status, project := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "onprem", "provider": "sdu",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/projects/"+project["id"].(string)+"/scans", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SCAN_NOT_SUPPORTED", errorCode(t, body))
}

func TestProcessStatus(t *testing.T) {
	srv := setupServer(t)

	status, project := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name": "orders", "provider": "aws",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/projects/"+project["id"].(string)+"/process-status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TARGET_SELECTION", body["process_status"])
	assert.NotNil(t, body["status_inputs"])
}

func TestHealth(t *testing.T) {
	srv := setupServer(t)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
