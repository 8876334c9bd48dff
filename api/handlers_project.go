package api

import (
	"net/http"

	"github.com/liitos/liitos/registry"
	"github.com/liitos/liitos/types"
)

type createProjectRequest struct {
	Name     string `json:"name" validate:"required"`
	Provider string `json:"provider" validate:"required"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	project, err := s.registry.CreateProject(r.Context(), req.Name, types.Provider(req.Provider))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.ListProjects()
	if err != nil {
		writeError(w, err)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.registry.GetProject(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.registry.Resources(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

type registerResourceRequest struct {
	NativeID   string `json:"native_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	EngineKind string `json:"engine_kind"`
	Category   string `json:"integration_category"`
}

func (s *Server) handleRegisterResource(w http.ResponseWriter, r *http.Request) {
	var req registerResourceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resource, err := s.registry.RegisterResource(r.Context(), r.PathValue("id"), registry.ResourceInput{
		NativeID:   req.NativeID,
		Name:       req.Name,
		EngineKind: req.EngineKind,
		Category:   types.IntegrationCategory(req.Category),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

func (s *Server) handleProcessStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.registry.ProcessStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("type")
	if filter == "" {
		filter = "all"
	}
	limit, offset := pagination(r)

	// History reads require the project to exist
	if _, err := s.registry.GetProject(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	events, err := s.audit.Query(r.PathValue("id"), filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []types.HistoryEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
