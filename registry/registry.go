// Package registry manages the project records themselves and serves
// the derived process-status read.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liitos/liitos/errs"
	"github.com/liitos/liitos/lifecycle"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
	"github.com/liitos/liitos/types"
)

// Registry registers projects and reads their lifecycle state
type Registry struct {
	store   *storage.ProjectStore
	logger  *telemetry.Logger
	metrics *telemetry.EngineMetrics
}

// NewRegistry creates a project registry
func NewRegistry(store *storage.ProjectStore, logger *telemetry.Logger, metrics *telemetry.EngineMetrics) *Registry {
	return &Registry{store: store, logger: logger, metrics: metrics}
}

// CreateProject registers a new project with an empty lifecycle
func (r *Registry) CreateProject(ctx context.Context, name string, provider types.Provider) (*types.Project, error) {
	if name == "" {
		return nil, errs.Validation("project name is required")
	}
	if !provider.Valid() {
		return nil, errs.Validation("unknown provider %q", provider)
	}

	project := &types.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}

	err := r.store.Update(project.ID, func(txn *storage.ProjectTxn) error {
		if err := txn.PutProject(project); err != nil {
			return err
		}
		status := types.NewProjectStatus(project.ID)
		return txn.PutStatus(&status)
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).Info().
		Str("project_id", project.ID).
		Str("provider", string(provider)).
		Msg("project registered")

	return project, nil
}

// GetProject loads one project
func (r *Registry) GetProject(projectID string) (*types.Project, error) {
	var project *types.Project
	err := r.store.View(projectID, func(txn *storage.ProjectTxn) error {
		var err error
		project, err = txn.Project()
		return err
	})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errs.NotFound("project not found")
	}
	return project, nil
}

// ListProjects returns all registered projects
func (r *Registry) ListProjects() ([]types.Project, error) {
	return r.store.ListProjects()
}

// Resources returns the project's current catalog
func (r *Registry) Resources(projectID string) ([]types.Resource, error) {
	var resources []types.Resource
	err := r.store.View(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}
		if project == nil {
			return errs.NotFound("project not found")
		}
		resources, err = txn.Resources()
		return err
	})
	if err != nil {
		return nil, err
	}
	if resources == nil {
		resources = []types.Resource{}
	}
	return resources, nil
}

// ResourceInput describes a hand-registered resource for providers
// without discovery (IDC, SDU)
type ResourceInput struct {
	NativeID   string                    `json:"native_id"`
	Name       string                    `json:"name"`
	EngineKind string                    `json:"engine_kind"`
	Category   types.IntegrationCategory `json:"integration_category"`
}

// RegisterResource adds one resource to the catalog by hand
func (r *Registry) RegisterResource(ctx context.Context, projectID string, input ResourceInput) (*types.Resource, error) {
	if input.NativeID == "" || input.Name == "" {
		return nil, errs.Validation("native_id and name are required")
	}
	if input.Category == "" {
		input.Category = types.CategoryTarget
	}

	now := time.Now().UTC()
	resource := &types.Resource{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		NativeID:         input.NativeID,
		Name:             input.Name,
		EngineKind:       input.EngineKind,
		Category:         input.Category,
		ConnectionStatus: types.ConnectionPending,
		DiscoveredAt:     now,
		UpdatedAt:        now,
	}

	err := r.store.Update(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}
		if project == nil {
			return errs.NotFound("project not found")
		}
		return txn.PutResource(resource)
	})
	if err != nil {
		return nil, err
	}
	return resource, nil
}

// StatusReport is the process-status read served to the console
type StatusReport struct {
	ProcessStatus       lifecycle.State     `json:"process_status"`
	LastApprovalResult  types.ApprovalPhase `json:"last_approval_result,omitempty"`
	LastRejectionReason string              `json:"last_rejection_reason,omitempty"`
	StatusInputs        types.ProjectStatus `json:"status_inputs"`
}

// ProcessStatus recomputes the coarse state from the sub-status record
func (r *Registry) ProcessStatus(ctx context.Context, projectID string) (*StatusReport, error) {
	var status *types.ProjectStatus
	err := r.store.View(projectID, func(txn *storage.ProjectTxn) error {
		project, err := txn.Project()
		if err != nil {
			return err
		}
		if project == nil {
			return errs.NotFound("project not found")
		}

		status, err = txn.Status()
		if err != nil {
			return err
		}
		if status == nil {
			initial := types.NewProjectStatus(projectID)
			status = &initial
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := lifecycle.ComputeResult(*status)
	r.metrics.RecordStateRead(ctx, string(result.State))

	return &StatusReport{
		ProcessStatus:       result.State,
		LastApprovalResult:  result.LastApprovalResult,
		LastRejectionReason: result.LastRejectionReason,
		StatusInputs:        *status,
	}, nil
}
