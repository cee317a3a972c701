package transport

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrSocketClosed is returned for operations on a closed socket.
	ErrSocketClosed = errors.New("socket closed")

	// ErrAlreadyConnected is returned when an endpoint is connected twice.
	ErrAlreadyConnected = errors.New("endpoint already connected")

	// ErrUnknownPeer is returned when sending to an endpoint that was
	// never connected.
	ErrUnknownPeer = errors.New("unknown peer endpoint")
)

// Message is one framed message received from a peer, tagged with the
// endpoint identity that sent it.
type Message struct {
	Endpoint string
	Frames   [][]byte
}

// Socket is an identity-addressed multiplexed socket: one Socket talks
// to many peers over individual TCP connections, each addressed by its
// endpoint string. Outgoing sends are routed by endpoint; all incoming
// messages are funneled into a single receive channel.
//
// Connect is asynchronous. Each peer has a manager goroutine that dials
// with exponential backoff and re-dials after a connection drops. A send
// to a peer that is currently down is dropped silently; the caller's
// liveness layer is expected to absorb the loss.
type Socket struct {
	log         *slog.Logger
	dialTimeout time.Duration

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool

	recv chan Message
	done chan struct{}
	wg   sync.WaitGroup
}

type peer struct {
	endpoint string

	mu   sync.Mutex
	conn net.Conn
}

func (p *peer) current() net.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

func (p *peer) setConn(conn net.Conn) {
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
}

// NewSocket creates a socket ready to connect peers.
func NewSocket(log *slog.Logger) *Socket {
	return &Socket{
		log:         log,
		dialTimeout: 5 * time.Second,
		peers:       make(map[string]*peer),
		recv:        make(chan Message, 64),
		done:        make(chan struct{}),
	}
}

// Recv returns the channel of incoming messages from all peers.
func (s *Socket) Recv() <-chan Message {
	return s.recv
}

// Connect registers endpoint and starts dialing it in the background.
// It returns immediately; the peer may not be reachable yet.
func (s *Socket) Connect(endpoint string) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	if _, ok := s.peers[endpoint]; ok {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	p := &peer{endpoint: endpoint}
	s.peers[endpoint] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go s.manage(p)
	return nil
}

// Send routes one framed message to the named peer. A peer that is
// currently disconnected swallows the message; only an unknown endpoint
// or a closed socket is an error.
func (s *Socket) Send(endpoint string, frames [][]byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	p, ok := s.peers[endpoint]
	s.mu.Unlock()

	if !ok {
		return ErrUnknownPeer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		s.log.Debug("dropping send to disconnected peer",
			slog.String("endpoint", endpoint))
		return nil
	}

	if err := WriteMessage(p.conn, frames); err != nil {
		s.log.Debug("send failed, closing connection",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		p.conn.Close()
		p.conn = nil
	}
	return nil
}

// Close tears down every peer connection and stops all goroutines.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	close(s.done)
	for _, p := range peers {
		if conn := p.current(); conn != nil {
			conn.Close()
		}
	}
	s.wg.Wait()
	return nil
}

// manage owns one peer's connection: dial with backoff, read until the
// connection drops, then dial again.
func (s *Socket) manage(p *peer) {
	defer s.wg.Done()

	bo := newBackoff(100*time.Millisecond, 2.0, 5*time.Second, 0)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", p.endpoint, s.dialTimeout)
		if err != nil {
			delay, _ := bo.Next()
			s.log.Debug("dial failed, backing off",
				slog.String("endpoint", p.endpoint),
				slog.Duration("retry_in", delay),
				slog.String("error", err.Error()))
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			continue
		}

		bo.Reset()
		p.setConn(conn)
		s.log.Debug("peer connected", slog.String("endpoint", p.endpoint))

		s.readLoop(p, conn)
		p.setConn(nil)

		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (s *Socket) readLoop(p *peer, conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		frames, err := ReadMessage(reader)
		if err != nil {
			conn.Close()
			return
		}
		select {
		case s.recv <- Message{Endpoint: p.endpoint, Frames: frames}:
		case <-s.done:
			conn.Close()
			return
		}
	}
}

func validateEndpoint(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
