/*
Package observability turns pipeline lifecycle events into logs and Prometheus metrics.

Hooks built here plug into the orchestrator through domain.LifecycleHooks and can be stacked
with Combine.
*/
package observability
