package client_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stavrosk/flrouter/internal/agent"
	"github.com/stavrosk/flrouter/internal/client"
	"github.com/stavrosk/flrouter/internal/transport"
)

func TestClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Client Suite")
}

// echoSocket answers every request send with a matching reply and every
// ping with a PONG, standing in for a well-behaved server pool.
type echoSocket struct {
	mu   sync.Mutex
	recv chan transport.Message
}

func newEchoSocket() *echoSocket {
	return &echoSocket{recv: make(chan transport.Message, 64)}
}

func (e *echoSocket) Connect(endpoint string) error { return nil }

func (e *echoSocket) Send(endpoint string, frames [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(frames) == 1 && string(frames[0]) == agent.PingCommand {
		e.recv <- transport.Message{Endpoint: endpoint, Frames: [][]byte{[]byte(agent.PongCommand)}}
		return nil
	}

	reply := make([][]byte, len(frames))
	copy(reply, frames)
	select {
	case e.recv <- transport.Message{Endpoint: endpoint, Frames: reply}:
	default:
	}
	return nil
}

func (e *echoSocket) Recv() <-chan transport.Message { return e.recv }

var _ = Describe("Client", func() {
	var (
		a      *agent.Agent
		c      *client.Client
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
		a = agent.New(newEchoSocket(), log, agent.Options{
			GlobalTimeout: 500 * time.Millisecond,
			PingInterval:  50 * time.Millisecond,
			ServerTTL:     150 * time.Millisecond,
		})

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go a.Run(ctx)

		c = client.New(a, client.WithSettleDelay(10*time.Millisecond))
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Request", func() {
		It("should return the server payload unmodified", func() {
			c.Connect("127.0.0.1:5555")

			reply, err := c.Request([][]byte{[]byte("hello"), []byte("world")})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal([][]byte{[]byte("hello"), []byte("world")}))
		})

		It("should serve requests back to back", func() {
			c.Connect("127.0.0.1:5555")

			for i := 0; i < 5; i++ {
				reply, err := c.RequestString("echo")
				Expect(err).NotTo(HaveOccurred())
				Expect(reply).To(Equal("echo"))
			}
		})

		It("should fail with a timeout when no server was ever connected", func() {
			_, err := c.Request([][]byte{[]byte("void")})
			Expect(err).To(MatchError(agent.ErrRequestTimeout))
		})
	})

	Describe("Connect", func() {
		It("should pause for the settle delay", func() {
			start := time.Now()
			c.Connect("127.0.0.1:5555")
			Expect(time.Since(start)).To(BeNumerically(">=", 10*time.Millisecond))
		})
	})
})
