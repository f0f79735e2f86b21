// Package formation turns pending orders into rake loads.
//
// A request is encoded once into a Problem: orders in priority order, each
// with the (rake, stockyard) options it could ride alone. Strategies search
// over one gene per order and every candidate is repaired by the same
// builder, so greedy, genetic and annealing runs are scored identically by
// the scoring package.
//
// The Orchestrator validates requests, picks the strategy by name from the
// registry, bounds the search with the request budget, verifies the finished
// plan and records it in prometheus collectors, the configured MetricsSink,
// the event bus and the plan history.
package formation
