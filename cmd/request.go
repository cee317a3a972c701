package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stavrosk/flrouter/config"
	"github.com/stavrosk/flrouter/internal/agent"
	"github.com/stavrosk/flrouter/internal/client"
	"github.com/stavrosk/flrouter/internal/transport"
	"github.com/stavrosk/flrouter/pkg/logger"
)

func newRequestCmd() *cobra.Command {
	var (
		servers      []string
		count        int
		timeout      time.Duration
		pingInterval time.Duration
		serverTTL    time.Duration
		settle       time.Duration
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "request [frames...]",
		Short: "Send requests through the routing agent and print the replies",
		Long:  "request connects to the configured server pool, sends the given payload frames (default: a single \"hello\" frame) --count times, and prints each reply. Servers come from --server flags or from the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			environment := config.EnvDev
			settleDelay := settle

			if len(servers) == 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				servers = cfg.Servers
				environment = cfg.Client.Environment
				logLevel = cfg.Logging.Level
				if timeout, err = time.ParseDuration(cfg.Timeouts.Request); err != nil {
					return err
				}
				if pingInterval, err = time.ParseDuration(cfg.Timeouts.PingInterval); err != nil {
					return err
				}
				if serverTTL, err = time.ParseDuration(cfg.Timeouts.ServerTTL); err != nil {
					return err
				}
				if settleDelay, err = time.ParseDuration(cfg.Client.SettleDelay); err != nil {
					return err
				}
			}

			log := logger.New(logLevel, false, environment)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sock := transport.NewSocket(log)
			defer sock.Close()

			routingAgent := agent.New(sock, log, agent.Options{
				GlobalTimeout: timeout,
				PingInterval:  pingInterval,
				ServerTTL:     serverTTL,
			})

			agentCtx, stopAgent := context.WithCancel(ctx)
			defer stopAgent()
			go routingAgent.Run(agentCtx)

			cli := client.New(routingAgent, client.WithSettleDelay(settleDelay))
			for _, endpoint := range servers {
				cli.Connect(endpoint)
			}

			payload := args
			if len(payload) == 0 {
				payload = []string{"hello"}
			}
			frames := make([][]byte, len(payload))
			for i, arg := range payload {
				frames[i] = []byte(arg)
			}

			var failures int
			var lastErr error
			for i := 0; i < count; i++ {
				if ctx.Err() != nil {
					break
				}
				reply, err := cli.Request(frames)
				if err != nil {
					failures++
					lastErr = err
					log.Error("request failed",
						slog.Int("attempt", i+1),
						slog.String("error", err.Error()))
					continue
				}
				cmd.Printf("reply %d: %s\n", i+1, formatReply(reply))
			}

			snap := routingAgent.Stats()
			log.Info("run complete",
				slog.Int64("requests", snap.Requests),
				slog.Int64("replies", snap.Replies),
				slog.Int64("timeouts", snap.Timeouts),
				slog.Int64("pings_sent", snap.PingsSent))

			if failures > 0 && failures == count {
				return fmt.Errorf("all %d requests failed: %w", count, lastErr)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&servers, "server", nil, "server endpoint (host:port), repeatable; overrides the config file")
	cmd.Flags().IntVar(&count, "count", 1, "number of requests to send")
	cmd.Flags().DurationVar(&timeout, "timeout", agent.DefaultGlobalTimeout, "global per-request timeout")
	cmd.Flags().DurationVar(&pingInterval, "ping-interval", agent.DefaultPingInterval, "heartbeat interval")
	cmd.Flags().DurationVar(&serverTTL, "ttl", agent.DefaultServerTTL, "server liveness TTL")
	cmd.Flags().DurationVar(&settle, "settle", client.DefaultSettleDelay, "pause after each connect")
	cmd.Flags().StringVar(&logLevel, "log-level", config.LogLevelInfo, "log level (debug, info, warn, error)")

	return cmd
}

func formatReply(frames [][]byte) string {
	parts := make([]string, len(frames))
	for i, frame := range frames {
		parts[i] = string(frame)
	}
	return strings.Join(parts, " ")
}
