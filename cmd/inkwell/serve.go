package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/inkwell-hq/inkwell/internal/config"
	"github.com/inkwell-hq/inkwell/pkg/audit"
	"github.com/inkwell-hq/inkwell/pkg/collab"
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		auditBackend string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collaboration server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Address = addr
			}
			if cmd.Flags().Changed("audit") {
				cfg.AuditBackend = auditBackend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			recorder, cleanup, err := buildAuditRecorder(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if cleanup != nil {
				defer cleanup()
			}

			collabCfg := collab.DefaultConfig()
			collabCfg.Address = cfg.Address
			collabCfg.ReadTimeout = cfg.ReadTimeout
			collabCfg.WriteTimeout = cfg.WriteTimeout
			collabCfg.ShutdownTimeout = cfg.ShutdownTimeout
			if cfg.AllowAnyOrigin {
				collabCfg.CheckOrigin = func(*http.Request) bool { return true }
			}

			return collab.New(collabCfg, recorder).Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&auditBackend, "audit", config.AuditNone, "audit backend: none, sqlite, or s3")
	return cmd
}

// buildAuditRecorder wires the configured audit backend behind a
// fire-and-forget worker. The returned cleanup drains the worker.
func buildAuditRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (audit.Recorder, func(), error) {
	var sink audit.Sink

	switch cfg.AuditBackend {
	case config.AuditNone:
		return nil, nil, nil

	case config.AuditSQLite:
		s, err := audit.OpenSQLite(cfg.AuditDBPath)
		if err != nil {
			return nil, nil, err
		}
		sink = s

	case config.AuditS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		sink = audit.NewS3Sink(s3.NewFromConfig(awsCfg), cfg.AuditS3Bucket, cfg.AuditS3Prefix, 0)

	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.AuditBackend)
	}

	worker := audit.NewWorker(sink, nil, logger)
	cleanup := func() {
		if err := worker.Close(); err != nil {
			logger.Error("audit worker close failed", "error", err)
		}
	}
	return worker, cleanup, nil
}
