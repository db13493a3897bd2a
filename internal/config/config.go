// Package config loads process configuration from INKWELL_* environment
// variables. Flags set on the CLI override environment values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Audit backend names accepted by AuditBackend.
const (
	AuditNone   = "none"
	AuditSQLite = "sqlite"
	AuditS3     = "s3"
)

// Config is the runtime configuration of the inkwell server process.
type Config struct {
	// Address the HTTP/WebSocket server listens on.
	Address string `env:"INKWELL_ADDR" envDefault:":8080"`

	// ReadTimeout for client messages; the deadline refreshes on activity.
	ReadTimeout time.Duration `env:"INKWELL_READ_TIMEOUT" envDefault:"60s"`

	// WriteTimeout for outbound messages.
	WriteTimeout time.Duration `env:"INKWELL_WRITE_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"INKWELL_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// AllowAnyOrigin disables the same-origin WebSocket check. Intended
	// for development only.
	AllowAnyOrigin bool `env:"INKWELL_ALLOW_ANY_ORIGIN" envDefault:"false"`

	// AuditBackend selects the audit sink: none, sqlite, or s3.
	AuditBackend string `env:"INKWELL_AUDIT_BACKEND" envDefault:"none"`

	// AuditDBPath is the SQLite database path for the sqlite backend.
	AuditDBPath string `env:"INKWELL_AUDIT_DB" envDefault:"inkwell-audit.db"`

	// AuditS3Bucket is the bucket for the s3 backend.
	AuditS3Bucket string `env:"INKWELL_AUDIT_S3_BUCKET"`

	// AuditS3Prefix is the object key prefix for the s3 backend.
	AuditS3Prefix string `env:"INKWELL_AUDIT_S3_PREFIX" envDefault:"audit/"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.AuditBackend {
	case AuditNone, AuditSQLite:
	case AuditS3:
		if c.AuditS3Bucket == "" {
			return fmt.Errorf("audit backend s3 requires INKWELL_AUDIT_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown audit backend %q", c.AuditBackend)
	}
	return nil
}
