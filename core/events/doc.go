// Package events defines the formation events emitted on the event bus.
//
// Available event types:
//   - RunEvent: a run started, completed (with its result) or failed
//   - InconsistencyEvent: an assignment was discarded during verification
package events
