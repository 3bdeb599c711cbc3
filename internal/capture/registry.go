package capture

import (
	"fmt"
	"sort"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
)

// Constructor creates a Capturer that stores clips in store.
type Constructor func(cfg Config, store artifact.Store) (Capturer, error)

var registry = map[string]Constructor{}

// Register adds a capture constructor under the given provider name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the capture constructor for the given provider name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown capture provider: %s", name)
	}
	return ctor, nil
}

// Providers returns the names of all registered capture providers, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
