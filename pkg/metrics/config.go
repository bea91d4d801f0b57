package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every ideaflow metric name.
const DefaultNamespace = "ideaflow"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "ideaflow" namespace for metrics.
	Namespace string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Build returns the Registry described by c, or nil when metrics are disabled.
// Building against prometheus.DefaultRegisterer returns DefaultRegistry so the
// process-wide collectors are registered only once.
func (c Config) Build() *Registry {
	if !c.Enabled {
		return nil
	}
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if (c.Registry == nil || c.Registry == prometheus.DefaultRegisterer) && ns == DefaultNamespace {
		return DefaultRegistry
	}
	reg := c.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return newRegistry(reg, ns)
}
