package server

import (
	"time"
)

// Record tracks liveness and timer bookkeeping for one server endpoint.
// A record is created when the endpoint is first connected and lives for
// the agent's lifetime; there is no disconnect. All mutation happens on
// the agent goroutine, so no locking is needed.
type Record struct {
	endpoint   string
	alive      bool
	nextPingAt time.Time
	expiresAt  time.Time
}

// NewRecord creates a record for a freshly connected endpoint. The server
// is not considered alive until it replies to something.
func NewRecord(endpoint string, now time.Time, pingInterval, ttl time.Duration) *Record {
	return &Record{
		endpoint:   endpoint,
		alive:      false,
		nextPingAt: now.Add(pingInterval),
		expiresAt:  now.Add(ttl),
	}
}

// Endpoint returns the server's endpoint identity.
func (r *Record) Endpoint() string {
	return r.endpoint
}

// Alive returns true if the server is currently believed alive.
func (r *Record) Alive() bool {
	return r.alive
}

// Refresh records contact from the server: it becomes alive and both the
// ping and expiry timers are pushed forward from now.
// Returns true if the server was down and just came (back) up.
func (r *Record) Refresh(now time.Time, pingInterval, ttl time.Duration) (revived bool) {
	revived = !r.alive
	r.alive = true
	r.nextPingAt = now.Add(pingInterval)
	r.expiresAt = now.Add(ttl)
	return revived
}

// Expired reports whether the server has been silent past its TTL.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.expiresAt)
}

// MarkDown clears the alive flag after expiry is detected. The record
// stays registered and keeps receiving pings so the server can rejoin.
func (r *Record) MarkDown() {
	r.alive = false
}

// PingDue reports whether a heartbeat should be sent now.
func (r *Record) PingDue(now time.Time) bool {
	return !now.Before(r.nextPingAt)
}

// SchedulePing moves the next heartbeat forward after one was sent.
func (r *Record) SchedulePing(now time.Time, pingInterval time.Duration) {
	r.nextPingAt = now.Add(pingInterval)
}

// NextPingAt returns when the next heartbeat is due, for tickless timer
// computation.
func (r *Record) NextPingAt() time.Time {
	return r.nextPingAt
}
