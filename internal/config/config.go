// Package config defines process configuration for the tracker and the
// development collector, and the koanf loader that fills it.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/domain/codec"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Host, Port, Secure and BasePath locate the collector.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Secure   bool   `koanf:"secure"`
	BasePath string `koanf:"base_path"`

	TrackingCode string `koanf:"tracking_code"`

	// StorageType is net or local.
	StorageType string `koanf:"storage_type"`

	// TraceFormat is csv, json, xapi or xml.
	TraceFormat string `koanf:"trace_format"`

	// BatchSize caps events per flush; 0 sends everything queued.
	BatchSize int `koanf:"batch_size"`
	// QueueCapacity bounds the trace queue; 0 means unbounded.
	QueueCapacity int `koanf:"queue_capacity"`

	BackupStorage  bool   `koanf:"backup_storage"`
	LogFile        string `koanf:"log_file"`
	BackupFile     string `koanf:"backup_file"`
	PersistPending bool   `koanf:"persist_pending"`

	UserToken string `koanf:"user_token"`
	PlayerID  string `koanf:"player_id"`
	Strict    bool   `koanf:"strict"`

	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	FlushIntervalMS  int `koanf:"flush_interval_ms"`

	// DataDir holds the log, backup and snapshot files.
	DataDir string `koanf:"data_dir"`
	// StoreBackend is file, sqlite or memory.
	StoreBackend string `koanf:"store_backend"`

	// MetricsAddr serves /metrics from the tracker CLI when set.
	MetricsAddr string `koanf:"metrics_addr"`
	// CollectorAddr is the listen address of the development collector.
	CollectorAddr string `koanf:"collector_addr"`
}

// New returns a Config with defaults.
func New() *Config {
	s := app.DefaultSettings()
	return &Config{
		LogLevel:         "info",
		Host:             s.Host,
		StorageType:      string(s.StorageType),
		TraceFormat:      string(s.TraceFormat),
		BatchSize:        s.BatchSize,
		LogFile:          s.LogFile,
		BackupFile:       s.BackupFile,
		Strict:           s.Strict,
		RequestTimeoutMS: 10_000,
		FlushIntervalMS:  5_000,
		DataDir:          "./data",
		StoreBackend:     storage.BackendFile,
		CollectorAddr:    ":9080",
	}
}

// Validate checks field values and returns an error wrapping
// ErrInvalidConfig for the first bad one.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return fmt.Errorf("%w: host must not be empty", ErrInvalidConfig)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.BatchSize < 0:
		return fmt.Errorf("%w: batch_size must not be negative", ErrInvalidConfig)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue_capacity must not be negative", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.FlushIntervalMS < 0:
		return fmt.Errorf("%w: flush_interval_ms must not be negative", ErrInvalidConfig)
	}
	switch app.StorageType(c.StorageType) {
	case app.StorageNet, app.StorageLocal:
	default:
		return fmt.Errorf("%w: storage_type %q", ErrInvalidConfig, c.StorageType)
	}
	if _, err := codec.ParseFormat(c.TraceFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.StoreBackend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("%w: store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}

// Settings converts the configuration into tracker settings. Call
// Validate first.
func (c *Config) Settings(_ context.Context) app.Settings {
	format, _ := codec.ParseFormat(c.TraceFormat)
	return app.Settings{
		Host:           c.Host,
		Port:           c.Port,
		Secure:         c.Secure,
		BasePath:       c.BasePath,
		TrackingCode:   c.TrackingCode,
		StorageType:    app.StorageType(c.StorageType),
		TraceFormat:    format,
		BatchSize:      c.BatchSize,
		QueueCapacity:  c.QueueCapacity,
		BackupStorage:  c.BackupStorage,
		LogFile:        c.LogFile,
		BackupFile:     c.BackupFile,
		PersistPending: c.PersistPending,
		UserToken:      c.UserToken,
		PlayerID:       c.PlayerID,
		Strict:         c.Strict,
	}
}

// RequestTimeout is RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// FlushInterval is FlushIntervalMS as a duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}
