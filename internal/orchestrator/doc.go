// Package orchestrator implements the orchestrator core: session and trial lifecycle, per-module window
// geometry caching, and bulk window arrangement, built on top of the
// module process handles in internal/orchestrator/process.
package orchestrator
