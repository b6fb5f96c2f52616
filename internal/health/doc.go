// Package health implements the orchestrator's liveness/readiness
// probe, surfaced through the REST control plane's /health and
// /status routes rather than a standalone server. One check matters
// here: is the process accepting commands.
package health
