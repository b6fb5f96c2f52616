// Package metrics exposes prometheus counters and gauges for the
// orchestrator: discovery sweep latency, connected-device counts,
// REST request counts and latency, running module instances, and
// trials started. The registry is private so tests can build isolated
// instances instead of sharing prometheus.DefaultRegisterer.
package metrics
