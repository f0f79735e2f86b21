// Package metrics defines the sink interface used to record formation runs.
// Sinks like PromSink and InfluxSink record run summaries and, when they
// implement the optional recorder interfaces, unassigned orders, per-rake
// loads, discarded assignments and failed runs. NewMetricsSink returns a
// MultiSink when more than one sink is configured.
package metrics
