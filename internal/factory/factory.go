package factory

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// BackendFactory defines a function that creates a stats backend from the config.
type BackendFactory func(cfg *config.Config) (model.StatsBackend, error)

var (
	mu sync.RWMutex
	// registry holds the mapping of backend names to their factory functions.
	registry = make(map[string]BackendFactory)
)

// RegisterBackend registers a new stats backend with its factory function.
func RegisterBackend(name string, factory BackendFactory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("stats backend '%s' already registered", name))
	}
	registry[name] = factory
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend creates the stats backend named by cfg.Aggregator.Backend.
func NewBackend(cfg *config.Config, log logrus.FieldLogger) (model.StatsBackend, error) {
	name := cfg.Aggregator.Backend

	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown stats backend: '%s'", name)
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating stats backend '%s': %w", name, err)
	}

	log.WithField("backend", name).Info("Created stats backend")
	return backend, nil
}
