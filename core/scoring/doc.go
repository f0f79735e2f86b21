// Package scoring holds the feasibility checks and the composite score shared
// by every formation strategy.
//
// A Snapshot indexes one request. Snapshot.Evaluate judges a single rake load
// (Candidate) against what the rest of the plan already consumes (Usage) and
// returns its Result: violations of the first failing check class plus cost,
// delay, utilization and SLA figures. Results are folded into plan Metrics with
// a Tally; Composite and Objective turn Metrics into the number strategies
// minimize.
//
// Nothing in this package has side effects.
package scoring
