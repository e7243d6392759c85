/*
Package observability provides Prometheus metrics for the nodegraph engine.

Metrics are fed entirely from domain.LifecycleHooks, so any evaluator or dialog
session configured with Metrics.Hooks reports calculation attempts, stuck nodes,
evaluation passes and dialog transitions without further wiring.
*/
package observability
