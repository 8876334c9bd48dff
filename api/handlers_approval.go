package api

import (
	"net/http"

	"github.com/liitos/liitos/catalog"
)

type selectionRequest struct {
	ResourceID      string `json:"resource_id" validate:"required"`
	Selected        bool   `json:"selected"`
	ExclusionReason string `json:"exclusion_reason"`
}

type submitApprovalRequest struct {
	Selections []selectionRequest `json:"selections" validate:"required,min=1,dive"`
}

func (s *Server) handleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	var req submitApprovalRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	selections := make([]catalog.Selection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, catalog.Selection{
			ResourceID:      sel.ResourceID,
			Selected:        sel.Selected,
			ExclusionReason: sel.ExclusionReason,
		})
	}

	result, err := s.workflow.Submit(r.Context(), r.PathValue("id"), selections, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type approveRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req := approveRequest{}
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.workflow.Approve(r.Context(), r.PathValue("id"), req.Comment, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.workflow.Reject(r.Context(), r.PathValue("id"), req.Reason, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	result, err := s.workflow.Cancel(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApprovedIntegration(w http.ResponseWriter, r *http.Request) {
	snap, err := s.workflow.ApprovedIntegration(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleConfirmedIntegration(w http.ResponseWriter, r *http.Request) {
	snap, err := s.workflow.ConfirmedIntegration(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleConfirmInstallation(w http.ResponseWriter, r *http.Request) {
	result, err := s.workflow.ConfirmInstallation(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type installationCompleteRequest struct {
	Success *bool `json:"success" validate:"required"`
}

func (s *Server) handleInstallationComplete(w http.ResponseWriter, r *http.Request) {
	var req installationCompleteRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.workflow.CompleteInstallation(r.Context(), r.PathValue("id"), *req.Success)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type connectionTestRequest struct {
	Passed *bool `json:"passed" validate:"required"`
}

func (s *Server) handleConnectionTest(w http.ResponseWriter, r *http.Request) {
	var req connectionTestRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.workflow.RecordConnectionTest(r.Context(), r.PathValue("id"), *req.Passed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
