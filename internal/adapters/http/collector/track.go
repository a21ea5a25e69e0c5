package collector

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/dedupe"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

const maxTrackBody = 8 << 20

// HandleTrack handles POST /api/proxy/gleaner/collector/track.
func (s *Server) HandleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTrackBody))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: empty payload", ErrBadRequest))
		return
	}
	contentType := r.Header.Get("Content-Type")

	s.mu.Lock()
	sess, ok := s.sessions[r.Header.Get("Authorization")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrInjectedFault)
		return
	}
	if s.dedupe != nil && s.dedupe.SeenAndRecord(r.Context(), dedupe.Fingerprint(sess.number, string(body))) {
		s.dupes++
		s.mu.Unlock()
		s.logger.Debug(r.Context(), "duplicate batch dropped", logger.Int("session", sess.number))
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	s.batches = append(s.batches, Batch{
		AuthToken:   r.Header.Get("Authorization"),
		Session:     sess.number,
		ContentType: contentType,
		Body:        string(body),
	})
	s.mu.Unlock()

	metrics.RecordCollectedPayload(contentType)
	if s.store != nil {
		if err := s.persist(r, sess.number, contentType, string(body)); err != nil {
			s.logger.Error(r.Context(), "persist batch failed", logger.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) persist(r *http.Request, number int, contentType, body string) error {
	ctx := r.Context()
	format := codec.FormatCSV
	ext := ".csv"
	if strings.HasPrefix(contentType, "application/json") {
		format, ext = codec.FormatXAPI, ".json"
	}
	id := "sessions/" + strconv.Itoa(number) + ext
	if !format.IsJSON() {
		return storage.AppendTo(ctx, s.store, id, []byte(body))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.store.Load(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return s.store.Save(ctx, id, []byte(codec.Merge(format, string(existing), body)))
}
