// Package history keeps the formation results of a session and re-ranks
// them under caller-supplied objective weights.
//
// A PlanHistory holds results in memory and optionally writes them through
// to a Store so a later session can Restore them. Backends live in the
// store subpackage.
package history
