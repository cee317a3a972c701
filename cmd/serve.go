package cmd

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stavrosk/flrouter/config"
	"github.com/stavrosk/flrouter/internal/agent"
	"github.com/stavrosk/flrouter/internal/transport"
	"github.com/stavrosk/flrouter/pkg/logger"
)

// serve runs a test echo server speaking the router's wire protocol. It
// answers PING with PONG and echoes requests with their sequence frame
// intact, with flags to simulate a dead or slow server.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		delay    time.Duration
		silent   bool
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a test echo server for the routing agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(logLevel, false, config.EnvDev)

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			go func() {
				<-ctx.Done()
				listener.Close()
			}()

			log.Info("test server listening",
				slog.String("addr", listener.Addr().String()),
				slog.Bool("silent", silent),
				slog.Duration("delay", delay))

			for {
				conn, err := listener.Accept()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				go serveConn(ctx, conn, log, delay, silent)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5555", "listen address (host:port)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "artificial delay before each reply")
	cmd.Flags().BoolVar(&silent, "silent", false, "read requests but never reply")
	cmd.Flags().StringVar(&logLevel, "log-level", config.LogLevelInfo, "log level (debug, info, warn, error)")

	return cmd
}

func serveConn(ctx context.Context, conn net.Conn, log *slog.Logger, delay time.Duration, silent bool) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	log.Debug("client connected", slog.String("remote", remote))

	reader := bufio.NewReader(conn)
	for {
		frames, err := transport.ReadMessage(reader)
		if err != nil {
			log.Debug("client disconnected", slog.String("remote", remote))
			return
		}

		if silent {
			continue
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		if len(frames) == 1 && string(frames[0]) == agent.PingCommand {
			if err := transport.WriteMessage(conn, [][]byte{[]byte(agent.PongCommand)}); err != nil {
				return
			}
			continue
		}

		// Echo the request, sequence frame and all.
		if err := transport.WriteMessage(conn, frames); err != nil {
			return
		}
	}
}
