// Package client provides the thin synchronous frontend handle that
// application code uses to talk to the routing agent: connect server
// endpoints and issue blocking request/reply calls.
package client
