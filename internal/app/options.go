package app

import (
	"time"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/adapters/transport"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/pkg/logger"
)

// StorageType selects where batches are delivered.
type StorageType string

// Delivery targets.
const (
	StorageNet   StorageType = "net"
	StorageLocal StorageType = "local"
)

// Settings is the tracker configuration.
type Settings struct {
	Host     string
	Port     int
	Secure   bool
	BasePath string

	TrackingCode string
	StorageType  StorageType
	TraceFormat  codec.Format
	// BatchSize caps events per flush; 0 means everything queued.
	BatchSize int
	// QueueCapacity bounds the queue; 0 means unbounded.
	QueueCapacity int

	BackupStorage bool
	LogFile       string
	BackupFile    string
	// PersistPending keeps pending payloads and unlogged events in storage
	// across restarts.
	PersistPending bool

	UserToken string
	PlayerID  string
	Strict    bool
}

// DefaultSettings returns the settings a tracker starts from.
func DefaultSettings() Settings {
	return Settings{
		Host:        "localhost",
		StorageType: StorageNet,
		TraceFormat: codec.FormatCSV,
		BatchSize:   0,
		LogFile:     "traces.csv",
		BackupFile:  "backup.csv",
		Strict:      true,
	}
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithSettings replaces the tracker settings.
func WithSettings(s Settings) Option {
	return func(t *Tracker) {
		t.settings = s
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTransport sets the HTTP capability used in net mode.
func WithTransport(s transport.Sender) Option {
	return func(t *Tracker) {
		t.sender = s
	}
}

// WithStorage sets the file capability used for local mode, backups and
// pending snapshots.
func WithStorage(s storage.Storage) Option {
	return func(t *Tracker) {
		t.store = s
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
