package types

import "time"

// IntegrationCategory classifies how a discovered resource can be onboarded
type IntegrationCategory string

const (
	CategoryTarget            IntegrationCategory = "TARGET"             // needs agent installation
	CategoryNoInstallNeeded   IntegrationCategory = "NO_INSTALL_NEEDED"  // reachable without an agent
	CategoryInstallIneligible IntegrationCategory = "INSTALL_INELIGIBLE" // cannot host an agent
)

// ConnectionStatus tracks agent connectivity for an onboarded resource
type ConnectionStatus string

const (
	ConnectionPending      ConnectionStatus = "PENDING"
	ConnectionConnected    ConnectionStatus = "CONNECTED"
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
)

// Resource is one discoverable data resource (RDS instance, DocumentDB cluster, etc)
type Resource struct {
	ID               string              `json:"id"`
	ProjectID        string              `json:"project_id"`
	NativeID         string              `json:"native_id"` // provider-native identifier
	Name             string              `json:"name"`
	EngineKind       string              `json:"engine_kind"` // mysql, postgresql, mongodb, ...
	Category         IntegrationCategory `json:"integration_category"`
	Selected         bool                `json:"is_selected"`
	Exclusion        *Exclusion          `json:"exclusion,omitempty"`
	ConnectionStatus ConnectionStatus    `json:"connection_status"`
	DiscoveredAt     time.Time           `json:"discovered_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Exclusion records that a TARGET resource was knowingly left out.
// It persists across scans so repeated non-selection of the same
// resource does not re-trigger manual review.
type Exclusion struct {
	Reason     string    `json:"reason"`
	ExcludedAt time.Time `json:"excluded_at"`
	ExcludedBy string    `json:"excluded_by"`
}

// IsTarget reports whether the resource requires agent installation
func (r *Resource) IsTarget() bool {
	return r.Category == CategoryTarget
}

// NeedsReview reports whether this resource would force manual approval:
// a TARGET resource that is neither selected nor previously excluded
func (r *Resource) NeedsReview() bool {
	return r.IsTarget() && !r.Selected && r.Exclusion == nil
}

// ResourceFilter narrows catalog queries
type ResourceFilter struct {
	Category   IntegrationCategory `json:"category,omitempty"`
	EngineKind string              `json:"engine_kind,omitempty"`
	Selected   *bool               `json:"selected,omitempty"`
}

// Matches checks the resource against filter criteria
func (r *Resource) Matches(filter ResourceFilter) bool {
	if filter.Category != "" && r.Category != filter.Category {
		return false
	}
	if filter.EngineKind != "" && r.EngineKind != filter.EngineKind {
		return false
	}
	if filter.Selected != nil && r.Selected != *filter.Selected {
		return false
	}
	return true
}
