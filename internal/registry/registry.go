// Package registry provides a global registry of gene generation policies.
// Policies register themselves in init() functions so configuration can
// select one by name without the search engine hardcoding the choice.
package registry

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Policy draws the control deltas of one fresh gene.
// Policies are stateless; the running angle and thrust of the chromosome
// being built are passed in and the caller tracks them.
type Policy interface {
	// ID returns a unique identifier used in configuration (e.g., "bounded").
	ID() string

	// Title returns a human-readable description.
	Title() string

	// Delta returns an angle delta in [-15,15] and a thrust delta in [-1,1]
	// for a chromosome whose running attitude is (angle, thrust).
	Delta(rng *rand.Rand, angle, thrust int) (angleDelta, thrustDelta int)
}

// PolicyInfo contains metadata about a registered policy.
type PolicyInfo struct {
	ID    string
	Title string
}

// Factory creates a new instance of a policy.
type Factory func() Policy

var (
	factories = make(map[string]Factory)
	titles    = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a policy factory to the registry.
// Panics if a policy with the same ID is already registered.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[id]; exists {
		panic(fmt.Sprintf("registry: policy %q already registered", id))
	}

	factories[id] = f
	titles[id] = f().Title()
}

// List returns all registered policies, sorted by ID.
func List() []PolicyInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]PolicyInfo, 0, len(factories))
	for id := range factories {
		result = append(result, PolicyInfo{ID: id, Title: titles[id]})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Create instantiates a policy by its ID.
func Create(id string) (Policy, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown policy %q", id)
	}

	return f(), nil
}

// Exists checks if a policy with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[id]
	return ok
}
