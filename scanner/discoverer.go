package scanner

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/liitos/liitos/types"
)

// Discoverer produces the resource set a scan finds. Real providers
// would call cloud APIs here; the engine only consumes the results.
type Discoverer interface {
	Discover(ctx context.Context, project types.Project) ([]types.Resource, error)
}

// engineKinds a simulated fleet draws from, with their categories
var engineKinds = []struct {
	kind     string
	category types.IntegrationCategory
}{
	{"mysql", types.CategoryTarget},
	{"postgresql", types.CategoryTarget},
	{"mariadb", types.CategoryTarget},
	{"mongodb", types.CategoryTarget},
	{"redshift", types.CategoryNoInstallNeeded},
	{"dynamodb", types.CategoryNoInstallNeeded},
	{"aurora-serverless", types.CategoryInstallIneligible},
}

// SimulatedDiscoverer fabricates a stable fleet per project so
// repeated scans mostly rediscover the same resources. It stands in
// for the provider discovery APIs excluded from this engine.
type SimulatedDiscoverer struct{}

// NewSimulatedDiscoverer creates a simulated discoverer
func NewSimulatedDiscoverer() *SimulatedDiscoverer {
	return &SimulatedDiscoverer{}
}

// Discover returns the project's simulated fleet. The fleet is a
// deterministic function of the project id: size, names, and engine
// kinds all derive from its hash.
func (d *SimulatedDiscoverer) Discover(_ context.Context, project types.Project) ([]types.Resource, error) {
	rng := rand.New(rand.NewSource(seedFor(project.ID))) // #nosec G404 -- simulation, not crypto

	count := 3 + rng.Intn(6)
	resources := make([]types.Resource, 0, count)
	for i := 0; i < count; i++ {
		engine := engineKinds[rng.Intn(len(engineKinds))]
		resources = append(resources, types.Resource{
			ProjectID:  project.ID,
			NativeID:   fmt.Sprintf("%s-db-%04x", project.Provider, rng.Uint32()&0xffff),
			Name:       fmt.Sprintf("%s-%s-%d", project.Name, engine.kind, i+1),
			EngineKind: engine.kind,
			Category:   engine.category,
		})
	}
	return resources, nil
}

func seedFor(projectID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(projectID))
	return int64(h.Sum64())
}
