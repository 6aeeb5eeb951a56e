// Package server carries the serving-side infrastructure around the
// MCP library: the dependency hub shared by tool handlers, session
// lifetime and in-flight request bookkeeping fed by server hooks, the
// dedicated Prometheus metrics listener, and health check endpoints
// for liveness and readiness probes.
package server
