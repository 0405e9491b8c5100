package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/pkg/server"
	"github.com/reflow-dev/reflow/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		maxSessions  int
		snapshotKind string
		s3Bucket     string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo counter server",
		Long: `Start a WebSocket server hosting the demo counter component.

Connect to ws://<addr>/ws to receive render frames and send events.
Health and Prometheus metrics are served on /healthz and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			slog.SetDefault(logger)

			store, err := buildSnapshotStore(cmd.Context(), snapshotKind, s3Bucket)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(
				&server.ServerConfig{
					Address:     addr,
					MaxSessions: maxSessions,
				},
				func() server.Component { return newCounterDemo() },
				server.WithSnapshotStore(store),
				server.WithServerLogger(logger),
			)

			logger.Info("starting reflow demo server", "addr", addr, "snapshot", snapshotKind)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().IntVar(&maxSessions, "max-sessions", 0, "Maximum concurrent sessions (0 = unlimited)")
	cmd.Flags().StringVar(&snapshotKind, "snapshot", "memory", "Snapshot store: memory or s3")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket for the s3 snapshot store")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func buildSnapshotStore(ctx context.Context, kind, bucket string) (snapshot.Store, error) {
	switch kind {
	case "memory":
		return snapshot.NewMemoryStore(), nil
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required with --snapshot=s3")
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return snapshot.NewS3Store(s3.NewFromConfig(cfg), bucket), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", kind)
	}
}
