package agent

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/stavrosk/flrouter/internal/metrics"
	"github.com/stavrosk/flrouter/internal/server"
	"github.com/stavrosk/flrouter/internal/transport"
)

// Default tunables, from the Freelance Protocol.
const (
	DefaultGlobalTimeout = 3000 * time.Millisecond
	DefaultPingInterval  = 2000 * time.Millisecond
	DefaultServerTTL     = 6000 * time.Millisecond
)

// PingCommand is the heartbeat frame sent to every known server. Any
// reply at all refreshes liveness; PONG is merely conventional.
const (
	PingCommand = "PING"
	PongCommand = "PONG"
)

// ticklessCeiling caps how long the loop will sleep with nothing due.
const ticklessCeiling = time.Hour

var (
	// ErrRequestPending is returned when a request is issued while
	// another one is still in flight.
	ErrRequestPending = errors.New("a request is already in flight")

	// ErrRequestTimeout is returned when no server produced a fresh
	// reply within the global timeout.
	ErrRequestTimeout = errors.New("request timed out")
)

// Socket is the transport surface the agent needs: connect peers by
// endpoint, send framed messages, and receive multiplexed replies.
type Socket interface {
	Connect(endpoint string) error
	Send(endpoint string, frames [][]byte) error
	Recv() <-chan transport.Message
}

// Options holds the agent's tunable durations. Zero values fall back to
// the protocol defaults.
type Options struct {
	GlobalTimeout time.Duration
	PingInterval  time.Duration
	ServerTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.GlobalTimeout <= 0 {
		o.GlobalTimeout = DefaultGlobalTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.ServerTTL <= 0 {
		o.ServerTTL = DefaultServerTTL
	}
	return o
}

// Result is the agent's answer to one request: the server's reply
// frames, or the error that ended the request.
type Result struct {
	Frames [][]byte
	Err    error
}

type connectCommand struct {
	endpoint string
}

type requestCommand struct {
	frames [][]byte
	result chan Result
}

// pendingRequest is the single in-flight request.
type pendingRequest struct {
	sequence uint64
	frames   [][]byte
	deadline time.Time
	result   chan Result
}

// Agent owns the server registry, the active queue, the sequence counter
// and the single pending request. All of that state is touched only by
// the Run goroutine; callers talk to it through the command channel.
type Agent struct {
	log    *slog.Logger
	socket Socket
	opts   Options
	stats  *metrics.Metrics

	commands chan interface{}

	registry *server.Registry
	actives  *server.Queue
	sequence uint64
	pending  *pendingRequest
}

// New creates an agent. Run must be started before callers submit work.
func New(socket Socket, log *slog.Logger, opts Options) *Agent {
	return &Agent{
		log:      log,
		socket:   socket,
		opts:     opts.withDefaults(),
		stats:    metrics.New(),
		commands: make(chan interface{}, 16),
		registry: server.NewRegistry(),
		actives:  server.NewQueue(),
	}
}

// Connect asks the agent to open a connection to endpoint. Fire and
// forget; the server is not used for dispatch until it first replies.
func (a *Agent) Connect(endpoint string) {
	a.commands <- connectCommand{endpoint: endpoint}
}

// Submit hands the agent one request. The returned channel yields
// exactly one Result: the reply payload, ErrRequestTimeout,
// ErrRequestPending, or the shutdown error.
func (a *Agent) Submit(frames [][]byte) <-chan Result {
	result := make(chan Result, 1)
	a.commands <- requestCommand{frames: frames, result: result}
	return result
}

// Stats returns a snapshot of the agent's counters.
func (a *Agent) Stats() metrics.Snapshot {
	return a.stats.Snapshot()
}

// Run drives the event loop until ctx is cancelled. One iteration:
// sleep until the next deadline or input, drain both input sources,
// run the dispatch step, then the heartbeat step.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("routing agent started",
		slog.Duration("global_timeout", a.opts.GlobalTimeout),
		slog.Duration("ping_interval", a.opts.PingInterval),
		slog.Duration("server_ttl", a.opts.ServerTTL))

	for {
		timer := time.NewTimer(a.tickless(time.Now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			a.shutdown(ctx.Err())
			return ctx.Err()
		case cmd := <-a.commands:
			a.handleCommand(cmd)
		case msg := <-a.socket.Recv():
			a.handleReply(msg)
		case <-timer.C:
		}
		timer.Stop()

		a.drainInputs()

		now := time.Now()
		a.dispatch(now)
		a.heartbeat(now)
	}
}

// drainInputs consumes whatever else is ready on both input sources so
// one loop iteration handles all pending events before the timers are
// recomputed.
func (a *Agent) drainInputs() {
	for {
		select {
		case cmd := <-a.commands:
			a.handleCommand(cmd)
		case msg := <-a.socket.Recv():
			a.handleReply(msg)
		default:
			return
		}
	}
}

func (a *Agent) shutdown(err error) {
	if a.pending != nil {
		a.pending.result <- Result{Err: err}
		a.pending = nil
	}
	snap := a.stats.Snapshot()
	a.log.Info("routing agent stopped",
		slog.Int64("requests", snap.Requests),
		slog.Int64("replies", snap.Replies),
		slog.Int64("timeouts", snap.Timeouts))
}

func (a *Agent) handleCommand(cmd interface{}) {
	switch c := cmd.(type) {
	case connectCommand:
		a.handleConnect(c)
	case requestCommand:
		a.handleRequest(c)
	}
}

func (a *Agent) handleConnect(cmd connectCommand) {
	now := time.Now()

	if a.registry.Lookup(cmd.endpoint) != nil {
		a.log.Warn("endpoint already connected, ignoring",
			slog.String("endpoint", cmd.endpoint))
		return
	}

	a.log.Info("connecting to server", slog.String("endpoint", cmd.endpoint))
	if err := a.socket.Connect(cmd.endpoint); err != nil {
		a.log.Error("connect failed",
			slog.String("endpoint", cmd.endpoint),
			slog.String("error", err.Error()))
		return
	}

	rec := server.NewRecord(cmd.endpoint, now, a.opts.PingInterval, a.opts.ServerTTL)
	a.registry.Add(rec)
}

func (a *Agent) handleRequest(cmd requestCommand) {
	// Strict request-reply cycle: one request in flight at a time.
	if a.pending != nil {
		a.stats.RecordRejected()
		cmd.result <- Result{Err: ErrRequestPending}
		return
	}

	a.sequence++
	frames := make([][]byte, 0, len(cmd.frames)+1)
	frames = append(frames, []byte(strconv.FormatUint(a.sequence, 10)))
	frames = append(frames, cmd.frames...)

	a.pending = &pendingRequest{
		sequence: a.sequence,
		frames:   frames,
		deadline: time.Now().Add(a.opts.GlobalTimeout),
		result:   cmd.result,
	}
	a.stats.IncrementRequests()
}

// handleReply processes one message from a server. Any message at all
// marks the sender alive; only a sequence match answers the caller.
func (a *Agent) handleReply(msg transport.Message) {
	rec := a.registry.Lookup(msg.Endpoint)
	if rec == nil {
		a.stats.RecordUnknownPeer()
		a.log.Warn("reply from unregistered identity, dropping",
			slog.String("endpoint", msg.Endpoint))
		return
	}

	if rec.Refresh(time.Now(), a.opts.PingInterval, a.opts.ServerTTL) {
		a.actives.Push(rec)
		a.log.Info("server is alive", slog.String("endpoint", msg.Endpoint))
	}

	if a.pending == nil || len(msg.Frames) == 0 {
		return
	}

	sequence, err := strconv.ParseUint(string(msg.Frames[0]), 10, 64)
	if err != nil || sequence != a.pending.sequence {
		a.stats.RecordStaleReply()
		a.log.Debug("discarding stale reply",
			slog.String("endpoint", msg.Endpoint),
			slog.String("sequence", string(msg.Frames[0])))
		return
	}

	a.stats.RecordReply()
	a.pending.result <- Result{Frames: msg.Frames[1:]}
	a.pending = nil
}

// dispatch runs once per loop iteration. It fails the pending request if
// its deadline passed, otherwise scans expired servers off the front of
// the active queue and sends to the first live one. The target is not
// rotated: it stays preferred until it expires.
func (a *Agent) dispatch(now time.Time) {
	if a.pending == nil {
		return
	}

	if !now.Before(a.pending.deadline) {
		a.stats.RecordTimeout()
		a.log.Warn("request timed out",
			slog.Uint64("sequence", a.pending.sequence))
		a.pending.result <- Result{Err: ErrRequestTimeout}
		a.pending = nil
		return
	}

	for a.actives.Len() > 0 {
		rec := a.actives.Front()
		if rec.Expired(now) {
			a.actives.Pop()
			rec.MarkDown()
			a.log.Info("server expired", slog.String("endpoint", rec.Endpoint()))
			continue
		}

		a.stats.RecordDispatch()
		if err := a.socket.Send(rec.Endpoint(), a.pending.frames); err != nil {
			a.log.Debug("dispatch send failed",
				slog.String("endpoint", rec.Endpoint()),
				slog.String("error", err.Error()))
		}
		break
	}
}

// heartbeat pings every registered server whose ping is due, expired
// ones included so they can rejoin when they recover.
func (a *Agent) heartbeat(now time.Time) {
	a.registry.Each(func(rec *server.Record) {
		if !rec.PingDue(now) {
			return
		}
		a.stats.RecordPing()
		if err := a.socket.Send(rec.Endpoint(), [][]byte{[]byte(PingCommand)}); err != nil {
			a.log.Debug("ping send failed",
				slog.String("endpoint", rec.Endpoint()),
				slog.String("error", err.Error()))
		}
		rec.SchedulePing(now, a.opts.PingInterval)
	})
}

// tickless computes how long the loop may sleep: until the request
// deadline or the earliest due ping, whichever comes first, capped at
// one hour.
func (a *Agent) tickless(now time.Time) time.Duration {
	wake := now.Add(ticklessCeiling)
	if a.pending != nil && a.pending.deadline.Before(wake) {
		wake = a.pending.deadline
	}
	a.registry.Each(func(rec *server.Record) {
		if rec.NextPingAt().Before(wake) {
			wake = rec.NextPingAt()
		}
	})

	wait := wake.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}
