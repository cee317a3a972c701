// Package transport implements the identity-addressed multiplexed socket
// the routing agent talks through: one socket, many peers, each peer
// addressed by its endpoint string, all incoming traffic multiplexed
// into a single receive channel. Messages are length-prefixed frame
// sequences over TCP; peers reconnect with exponential backoff.
package transport
