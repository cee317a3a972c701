package metrics

import (
	"sync"
	"time"
)

// Metrics collects counters for the routing agent. The agent increments
// from its own goroutine; Snapshot may be called from anywhere.
type Metrics struct {
	mutex        sync.RWMutex
	requests     int64
	dispatches   int64
	replies      int64
	staleReplies int64
	timeouts     int64
	rejected     int64
	pingsSent    int64
	unknownPeers int64
	startTime    time.Time
}

// Snapshot is a point-in-time copy of the agent's counters.
type Snapshot struct {
	Requests     int64         `json:"requests"`
	Dispatches   int64         `json:"dispatches"`
	Replies      int64         `json:"replies"`
	StaleReplies int64         `json:"stale_replies"`
	Timeouts     int64         `json:"timeouts"`
	Rejected     int64         `json:"rejected"`
	PingsSent    int64         `json:"pings_sent"`
	UnknownPeers int64         `json:"unknown_peers"`
	Uptime       time.Duration `json:"uptime"`
}

func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// IncrementRequests counts a request accepted by the agent.
func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

// RecordDispatch counts one send of the pending request to a server.
func (m *Metrics) RecordDispatch() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.dispatches++
}

// RecordReply counts a fresh reply delivered to the caller.
func (m *Metrics) RecordReply() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.replies++
}

// RecordStaleReply counts a reply discarded for a sequence mismatch.
func (m *Metrics) RecordStaleReply() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.staleReplies++
}

// RecordTimeout counts a request that expired undelivered.
func (m *Metrics) RecordTimeout() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.timeouts++
}

// RecordRejected counts a request refused because one was in flight.
func (m *Metrics) RecordRejected() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejected++
}

// RecordPing counts an outgoing heartbeat.
func (m *Metrics) RecordPing() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pingsSent++
}

// RecordUnknownPeer counts a reply from an unregistered identity.
func (m *Metrics) RecordUnknownPeer() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.unknownPeers++
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return Snapshot{
		Requests:     m.requests,
		Dispatches:   m.dispatches,
		Replies:      m.replies,
		StaleReplies: m.staleReplies,
		Timeouts:     m.timeouts,
		Rejected:     m.rejected,
		PingsSent:    m.pingsSent,
		UnknownPeers: m.unknownPeers,
		Uptime:       time.Since(m.startTime),
	}
}
