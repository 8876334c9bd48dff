package types

import "time"

// Provider identifies where a project's resources live
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderGCP   Provider = "gcp"
	ProviderAzure Provider = "azure"
	ProviderIDC   Provider = "idc" // on-premise, register-only
	ProviderSDU   Provider = "sdu" // self-managed database units, register-only
)

// Valid reports whether the provider is one the console knows about
func (p Provider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderGCP, ProviderAzure, ProviderIDC, ProviderSDU:
		return true
	default:
		return false
	}
}

// SupportsDiscovery reports whether the provider exposes a discovery API.
// IDC and SDU resources are registered by hand and cannot be scanned.
func (p Provider) SupportsDiscovery() bool {
	switch p {
	case ProviderAWS, ProviderGCP, ProviderAzure:
		return true
	default:
		return false
	}
}

// Project is one onboarding unit owning a resource set and a lifecycle
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate ensures the project has required fields
func (p *Project) Validate() error {
	if p.ID == "" {
		return errRequired("project id")
	}
	if p.Name == "" {
		return errRequired("project name")
	}
	if p.Provider == "" {
		return errRequired("project provider")
	}
	return nil
}
