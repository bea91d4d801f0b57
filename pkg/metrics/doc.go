// Package metrics provides Prometheus instrumentation for ideaflow components.
//
// # Overview
//
// The Registry groups every collector the pipeline reports:
//   - Queues: current size, pushes and polls per named queue
//   - Workers: ticks, tick failures and tick duration per worker
//   - Enrichment: score/evolve calls, fallbacks and latency
//   - Rate limiting: time spent waiting for an enrichment token
//
// # Quick Start
//
// Components take a *Registry through their options. Use a private
// Prometheus registry per session to avoid duplicate registration:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	q := queue.New[*idea.Item]("seed_queue", idea.BySeedLength, queue.WithMetrics[*idea.Item](reg))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// A nil *Registry is valid everywhere and records nothing.
package metrics
