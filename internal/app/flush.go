package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

// Flush runs one delivery cycle:
//
//  1. not started: nothing happens;
//  2. started but inactive: the handshake is retried;
//  3. nothing queued, pending or unlogged: nothing happens;
//  4. up to BatchSize events are read from the front of the queue;
//  5. when active, unlogged events go first, then pending payloads in
//     order, then the batch; a batch is never sent past a pending payload
//     that failed, it is parked behind it instead;
//  6. when inactive, the batch joins the unlogged events;
//  7. the batch is appended to the backup file as CSV;
//  8. the batch leaves the queue whatever happened above.
//
// Transport and storage failures are logged and retried on a later cycle.
// Events that cannot be encoded are left out of their payload and the rest
// is delivered as usual; under a strict policy Flush then returns the
// encoding error. Such events are still kept in the backup.
func (t *Tracker) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	state := t.currentState()
	if state == StateNotStarted {
		t.logger.Debug(ctx, "flush skipped, tracker not started")
		return nil
	}
	if state == StateInactive {
		t.connect(ctx)
		state = t.currentState()
	}
	if t.queue.Len() == 0 && len(t.pending) == 0 && len(t.unlogged) == 0 {
		return nil
	}

	batch := t.queue.Peek(t.settings.BatchSize)
	var err error
	if state == StateActive {
		err = t.deliver(ctx, batch)
	} else {
		t.unlogged = append(t.unlogged, batch...)
	}
	if t.settings.BackupStorage {
		t.backup(ctx, batch)
	}
	t.queue.Drop(len(batch))

	t.saveSnapshot(ctx)
	t.publishBacklog()
	return err
}

func (t *Tracker) deliver(ctx context.Context, batch []trace.Event) error {
	sess := t.codecSession()
	var errs []error

	if len(t.unlogged) > 0 {
		payload, n, err := t.encode(ctx, t.unlogged, sess)
		errs = append(errs, err)
		switch {
		case payload == "":
		case t.send(ctx, payload):
			metrics.RecordBatchSent(n)
		default:
			t.pending = append([]string{payload}, t.pending...)
		}
		t.unlogged = nil
	}

	drained := t.drainPending(ctx)

	if len(batch) == 0 {
		return errors.Join(errs...)
	}
	if t.codec.Format() == codec.FormatXML {
		if !t.warnedXML {
			t.logger.Warn(ctx, "trace format produces no payload, batches are not delivered",
				logger.String("format", string(t.codec.Format())))
			t.warnedXML = true
		}
		return errors.Join(errs...)
	}
	payload, n, err := t.encode(ctx, batch, sess)
	errs = append(errs, err)
	switch {
	case payload == "":
	case !drained:
		t.pending = append(t.pending, payload)
	case !t.send(ctx, payload):
		t.pending = append(t.pending, payload)
	default:
		metrics.RecordBatchSent(n)
	}
	return errors.Join(errs...)
}

// encode builds the payload for events, leaving out the ones that cannot be
// encoded so the rest still ship. It returns the payload and how many
// events it carries. The encoding error is returned only under a strict
// policy.
func (t *Tracker) encode(ctx context.Context, events []trace.Event, sess codec.Session) (string, int, error) {
	payload, skipped, err := t.codec.MarshalValid(ctx, events, sess)
	if err == nil {
		return payload, len(events), nil
	}
	t.logger.Error(ctx, "events left out of payload, encoding failed",
		logger.Int("skipped", skipped),
		logger.Int("events", len(events)),
		logger.Error(err),
	)
	recordDropped(err)
	if !t.settings.Strict {
		err = nil
	}
	return payload, len(events) - skipped, err
}

// drainPending sends pending payloads in order and stops at the first
// failure. It reports whether the list is now empty.
func (t *Tracker) drainPending(ctx context.Context) bool {
	for len(t.pending) > 0 {
		if !t.send(ctx, t.pending[0]) {
			return false
		}
		t.pending[0] = ""
		t.pending = t.pending[1:]
	}
	t.pending = nil
	return true
}

// send delivers one payload to the local log or the collector.
func (t *Tracker) send(ctx context.Context, payload string) bool {
	var ok bool
	if t.settings.StorageType == StorageLocal {
		ok = t.writeLocal(ctx, payload)
	} else {
		ok = t.post(ctx, payload)
	}
	if !ok {
		metrics.RecordBatchFailed()
	}
	return ok
}

func (t *Tracker) post(ctx context.Context, payload string) bool {
	if t.sender == nil {
		t.setConnected(false)
		return false
	}
	t.mu.Lock()
	auth := t.authToken
	t.mu.Unlock()

	headers := map[string]string{
		"Authorization": auth,
		"Content-Type":  t.codec.Format().ContentType(),
	}
	resp, err := t.sender.Send(ctx, http.MethodPost, t.settings.BaseURL()+trackPath, headers, []byte(payload))
	ok := err == nil && resp.OK()
	if !ok {
		t.logger.Warn(ctx, "send batch failed", logger.Int("status", resp.StatusCode), logger.Error(err))
	}
	t.setConnected(ok)
	return ok
}

func (t *Tracker) writeLocal(ctx context.Context, payload string) bool {
	if t.store == nil {
		return false
	}
	id := t.settings.LogFile
	var err error
	if t.codec.Format().IsJSON() {
		var existing []byte
		existing, err = t.store.Load(ctx, id)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			err = t.store.Save(ctx, id, []byte(codec.Merge(t.codec.Format(), string(existing), payload)))
		}
	} else {
		err = storage.AppendTo(ctx, t.store, id, []byte(payload))
	}
	if err != nil {
		t.logger.Error(ctx, "write local log failed", logger.String("file", id), logger.Error(err))
		return false
	}
	return true
}

func (t *Tracker) backup(ctx context.Context, batch []trace.Event) {
	if len(batch) == 0 {
		return
	}
	if t.store == nil {
		t.logger.Warn(ctx, "backup enabled without storage, skipping")
		return
	}
	err := storage.AppendTo(ctx, t.store, t.settings.BackupFile, []byte(codec.MarshalCSVBatch(batch)))
	metrics.RecordBackupAppend(err == nil)
	if err != nil {
		t.logger.Error(ctx, "backup append failed", logger.String("file", t.settings.BackupFile), logger.Error(err))
	}
}

func (t *Tracker) snapshotID() string { return t.settings.BackupFile + ".pending" }

func (t *Tracker) saveSnapshot(ctx context.Context) {
	if !t.settings.PersistPending || t.store == nil {
		return
	}
	snap := storage.Snapshot{Pending: t.pending}
	for _, e := range t.unlogged {
		snap.Unlogged = append(snap.Unlogged, codec.MarshalCSV(e))
	}
	if err := storage.SaveSnapshot(ctx, t.store, t.snapshotID(), snap); err != nil {
		t.logger.Error(ctx, "save pending snapshot failed", logger.Error(err))
	}
}

// restoreSnapshot puts persisted pending payloads and unlogged events back
// in front of whatever the tracker holds.
func (t *Tracker) restoreSnapshot(ctx context.Context) {
	if !t.settings.PersistPending || t.store == nil {
		return
	}
	snap, err := storage.LoadSnapshot(ctx, t.store, t.snapshotID())
	if err != nil {
		t.logger.Error(ctx, "load pending snapshot failed", logger.Error(err))
		return
	}
	if snap.IsEmpty() {
		return
	}
	var unlogged []trace.Event
	for _, line := range snap.Unlogged {
		e, err := codec.UnmarshalCSV(strings.TrimSpace(line))
		if err != nil {
			t.logger.Warn(ctx, "skipping unreadable unlogged event", logger.Error(err))
			continue
		}
		unlogged = append(unlogged, e)
	}
	t.pending = append(append([]string(nil), snap.Pending...), t.pending...)
	t.unlogged = append(unlogged, t.unlogged...)
	t.publishBacklog()
	t.logger.Info(ctx, "restored delivery backlog",
		logger.Int("pending", len(snap.Pending)),
		logger.Int("unlogged", len(unlogged)),
	)
}

// publishBacklog makes the delivery list sizes visible to Status. The
// caller holds flushMu and not mu.
func (t *Tracker) publishBacklog() {
	pending, unlogged := len(t.pending), len(t.unlogged)
	metrics.UpdatePendingBatches(pending)
	metrics.UpdateUnloggedEvents(unlogged)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingCount, t.unloggedCount = pending, unlogged
}
