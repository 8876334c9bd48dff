// Package api exposes the lifecycle engine over HTTP. Handlers are
// thin: they decode and validate input, call one engine operation,
// and map the error taxonomy onto status codes.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liitos/liitos/approval"
	"github.com/liitos/liitos/history"
	"github.com/liitos/liitos/registry"
	"github.com/liitos/liitos/scanner"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
)

// Server wires engine services to HTTP routes
type Server struct {
	registry  *registry.Registry
	workflow  *approval.Workflow
	scheduler *scanner.Scheduler
	audit     *history.Log
	store     *storage.ProjectStore
	logger    *telemetry.Logger
	validate  *validator.Validate
}

// NewServer creates the HTTP server
func NewServer(reg *registry.Registry, wf *approval.Workflow, sched *scanner.Scheduler, audit *history.Log, store *storage.ProjectStore, logger *telemetry.Logger) *Server {
	return &Server{
		registry:  reg,
		workflow:  wf,
		scheduler: sched,
		audit:     audit,
		store:     store,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	mux.HandleFunc("GET /projects/{id}/resources", s.handleListResources)
	mux.HandleFunc("POST /projects/{id}/resources", s.handleRegisterResource)

	mux.HandleFunc("POST /projects/{id}/approval-requests", s.handleSubmitApproval)
	mux.HandleFunc("POST /projects/{id}/approval-requests/approve", s.handleApprove)
	mux.HandleFunc("POST /projects/{id}/approval-requests/reject", s.handleReject)
	mux.HandleFunc("POST /projects/{id}/approval-requests/cancel", s.handleCancel)
	mux.HandleFunc("GET /projects/{id}/approved-integration", s.handleApprovedIntegration)
	mux.HandleFunc("GET /projects/{id}/confirmed-integration", s.handleConfirmedIntegration)
	mux.HandleFunc("POST /projects/{id}/confirm-installation", s.handleConfirmInstallation)

	mux.HandleFunc("GET /projects/{id}/process-status", s.handleProcessStatus)
	mux.HandleFunc("POST /projects/{id}/installation-complete", s.handleInstallationComplete)
	mux.HandleFunc("POST /projects/{id}/connection-tests", s.handleConnectionTest)

	mux.HandleFunc("POST /projects/{id}/scans", s.handleStartScan)
	mux.HandleFunc("GET /projects/{id}/scans/{scanId}", s.handleScanStatus)
	mux.HandleFunc("GET /projects/{id}/scan-history", s.handleScanHistory)

	mux.HandleFunc("GET /projects/{id}/history", s.handleHistory)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	projects, rev, size := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"projects":      projects,
		"revision":      rev,
		"db_size_bytes": size,
	})
}
