package api

import (
	"net/http"
)

type startScanRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	req := startScanRequest{}
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	job, err := s.scheduler.Start(r.Context(), r.PathValue("id"), req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.scheduler.Status(r.Context(), r.PathValue("id"), r.PathValue("scanId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	entries, err := s.scheduler.History(r.PathValue("id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
