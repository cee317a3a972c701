// Package metrics provides in-process counters for the routing agent:
// requests, dispatches, replies, stale replies, timeouts, and
// heartbeats, with a snapshot accessor for reporting.
package metrics
