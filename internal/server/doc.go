// Package server implements per-endpoint liveness bookkeeping for the
// routing agent: the server record state machine, the ordered registry
// of every endpoint ever connected, and the FIFO queue of servers
// currently believed alive.
package server
