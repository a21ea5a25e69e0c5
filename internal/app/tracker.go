// Package app implements the trace tracker: the object a game holds to
// record what the player does and ship it to a collector.
//
// Traces are validated, stamped and queued immediately; nothing leaves the
// process until Flush, which batches the queue and runs the delivery state
// machine (handshake, unlogged backlog, pending retries, backup).
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gametrace/internal/adapters/mq/queue"
	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/adapters/transport"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

// State is the tracker lifecycle state.
type State int

// Lifecycle states. Inactive trackers queue events as unlogged until the
// handshake resolves an actor.
const (
	StateNotStarted State = iota
	StateInactive
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return "not_started"
	}
}

// Status is a point-in-time view of the tracker.
type Status struct {
	State      State
	Connected  bool
	Queued     int
	Pending    int
	Unlogged   int
	PlayerID   string
	Session    string
	ObjectBase string
	Format     codec.Format
}

// Tracker records traces and delivers them in batches.
type Tracker struct {
	settings Settings
	logger   logger.Logger
	sender   transport.Sender
	store    storage.Storage
	now      func() time.Time

	policy trace.Policy
	codec  *codec.Codec
	queue  queue.Queue

	// mu guards session state and the staging area.
	mu           sync.Mutex
	state        State
	connected    bool
	trackingCode string
	userToken    string
	playerID     string
	authToken    string
	session      string
	objectBase   string
	actor        json.RawMessage
	staged       map[string]trace.Value
	batchReady   func()
	// Backlog sizes as of the end of the last Flush, Start or Stop.
	pendingCount  int
	unloggedCount int

	// flushMu serializes Flush, Start and Stop and guards the delivery
	// lists below.
	flushMu   sync.Mutex
	pending   []string
	unlogged  []trace.Event
	warnedXML bool
}

// New builds a tracker. Settings default to DefaultSettings.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		settings: DefaultSettings(),
		now:      time.Now,
		staged:   make(map[string]trace.Value),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("tracker")
	}
	if t.settings.TraceFormat == "" {
		t.settings.TraceFormat = codec.FormatCSV
	}
	if t.settings.StorageType == "" {
		t.settings.StorageType = StorageNet
	}
	t.queue = queue.NewInMemoryQueue(
		queue.WithInitialSize(t.settings.BatchSize),
		queue.WithCapacity(t.settings.QueueCapacity),
	)
	t.policy = trace.Policy{Strict: t.settings.Strict, Logger: t.logger}
	t.codec = codec.New(t.settings.TraceFormat, t.policy)
	t.userToken = t.settings.UserToken
	t.playerID = t.settings.PlayerID
	return t
}

// OnBatchReady registers fn to run each time the queue holds another full
// batch. fn runs on the tracing goroutine and must not block.
func (t *Tracker) OnBatchReady(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batchReady = fn
}

// Settings returns the configuration the tracker was built with.
func (t *Tracker) Settings() Settings { return t.settings }

// Status reports the current state and backlog sizes. It does not wait for
// a running Flush; pending and unlogged counts are those published when
// the last delivery cycle ended.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:      t.state,
		Connected:  t.connected,
		Queued:     t.queue.Len(),
		Pending:    t.pendingCount,
		Unlogged:   t.unloggedCount,
		PlayerID:   t.playerID,
		Session:    t.session,
		ObjectBase: t.objectBase,
		Format:     t.codec.Format(),
	}
}

// Start begins a session for trackingCode, using the configured user token
// when there is one and an anonymous player otherwise. An empty code falls
// back to the configured one. In net mode a failed handshake is not an
// error: the tracker stays inactive and retries on the next Flush.
func (t *Tracker) Start(ctx context.Context, trackingCode string) error {
	t.mu.Lock()
	token := t.userToken
	t.mu.Unlock()
	return t.StartWithToken(ctx, token, trackingCode)
}

// StartWithToken is Start with an explicit user token.
func (t *Tracker) StartWithToken(ctx context.Context, token, trackingCode string) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if trackingCode == "" {
		trackingCode = t.settings.TrackingCode
	}
	local := t.settings.StorageType == StorageLocal

	t.mu.Lock()
	switch {
	case t.state != StateNotStarted:
		t.mu.Unlock()
		return ErrAlreadyStarted
	case local && t.store == nil:
		t.mu.Unlock()
		return ErrNoStorage
	case !local && trackingCode == "":
		t.mu.Unlock()
		return ErrNoTrackingCode
	}
	t.trackingCode = trackingCode
	t.userToken = token
	if local {
		t.state = StateActive
		t.connected = true
	} else {
		t.state = StateInactive
	}
	t.mu.Unlock()

	t.restoreSnapshot(ctx)
	if !local {
		t.connect(ctx)
	}
	st := t.currentState()
	t.logger.Info(ctx, "tracker started",
		logger.String("mode", string(t.settings.StorageType)),
		logger.String("format", string(t.codec.Format())),
		logger.String("state", st.String()),
	)
	return nil
}

// LoginAnonymous sets the player id used by the next anonymous Start and
// forgets any user token.
func (t *Tracker) LoginAnonymous(ctx context.Context, playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playerID = playerID
	t.userToken = ""
	return nil
}

// Stop ends the session and discards the queue, the staging area and the
// delivery backlog. Backup and snapshot files are left alone.
func (t *Tracker) Stop(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateNotStarted {
		return ErrNotStarted
	}
	dropped := t.queue.Len() + len(t.unlogged)
	t.queue.Clear()
	t.pending = nil
	t.unlogged = nil
	t.staged = make(map[string]trace.Value)
	t.state = StateNotStarted
	t.connected = false
	t.authToken, t.session, t.objectBase, t.actor = "", "", "", nil
	t.pendingCount, t.unloggedCount = 0, 0
	metrics.UpdatePendingBatches(0)
	metrics.UpdateUnloggedEvents(0)

	t.logger.Info(ctx, "tracker stopped", logger.Int("dropped_events", dropped))
	return nil
}

func (t *Tracker) currentState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) setConnected(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = ok
}

func (t *Tracker) codecSession() codec.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return codec.Session{Actor: t.actor, ObjectBase: t.objectBase}
}

func (t *Tracker) String() string {
	s := t.Status()
	return fmt.Sprintf("tracker(%s queued=%d pending=%d unlogged=%d)", s.State, s.Queued, s.Pending, s.Unlogged)
}
