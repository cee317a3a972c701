package client

import (
	"time"

	"github.com/stavrosk/flrouter/internal/agent"
)

// DefaultSettleDelay is how long Connect waits after handing the
// endpoint to the agent, giving the connection a chance to come up
// before the first request races it.
const DefaultSettleDelay = 100 * time.Millisecond

// Client is the synchronous frontend handle over the routing agent.
// It is safe to share, but the protocol allows one request in flight:
// concurrent Request calls beyond the first fail with ErrRequestPending.
type Client struct {
	agent  *agent.Agent
	settle time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithSettleDelay overrides the pause after Connect.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Client) {
		c.settle = d
	}
}

// New wraps a running agent in a frontend handle.
func New(a *agent.Agent, opts ...Option) *Client {
	c := &Client{
		agent:  a,
		settle: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect registers a server endpoint with the agent, then pauses
// briefly so the connection can establish.
func (c *Client) Connect(endpoint string) {
	c.agent.Connect(endpoint)
	time.Sleep(c.settle)
}

// Request sends payload frames to the server pool and blocks until a
// fresh reply arrives or the global timeout fails the request.
func (c *Client) Request(frames [][]byte) ([][]byte, error) {
	res := <-c.agent.Submit(frames)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Frames, nil
}

// RequestString is a convenience wrapper for single-frame string
// payloads, returning the first reply frame.
func (c *Client) RequestString(payload string) (string, error) {
	reply, err := c.Request([][]byte{[]byte(payload)})
	if err != nil {
		return "", err
	}
	if len(reply) == 0 {
		return "", nil
	}
	return string(reply[0]), nil
}
