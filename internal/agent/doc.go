// Package agent implements the background routing agent of the
// Freelance pattern: a single goroutine that owns server liveness state
// and the one in-flight request, multiplexes an internal command channel
// with the network socket, pings servers on an interval, expires silent
// ones, and fails requests that outlive the global timeout.
package agent
