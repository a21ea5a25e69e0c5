// Package collector is a small in-process stand-in for the trace collector
// backend. It speaks the login, start and track endpoints the tracker
// uses, keeps every accepted batch in memory and can be told to fail, which
// makes it the fixture for delivery tests and the target of cmd/collector.
package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/domain/dedupe"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route paths relative to the server root.
const (
	PathLogin = "/api/login"
	PathStart = "/api/proxy/gleaner/collector/start/"
	PathTrack = "/api/proxy/gleaner/collector/track"
)

// Batch is one accepted track payload.
type Batch struct {
	AuthToken   string
	Session     int
	ContentType string
	Body        string
}

type session struct {
	number   int
	code     string
	playerID string
}

// Server wires collector routes and holds their state.
type Server struct {
	mu       sync.Mutex
	users    map[string]string
	codes    map[string]struct{}
	tokens   map[string]string   // login token -> username
	sessions map[string]*session // auth token -> session
	batches  []Batch
	failNext int
	nextID   int
	dupes    int

	baseURL string
	store   storage.Storage
	dedupe  dedupe.Deduper
	logger  logger.Logger
}

// NewServer creates a collector.
func NewServer(opts ...Option) *Server {
	s := &Server{
		users:    make(map[string]string),
		codes:    make(map[string]struct{}),
		tokens:   make(map[string]string),
		sessions: make(map[string]*session),
		baseURL:  "http://localhost/",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("collector")
	}
	if !strings.HasSuffix(s.baseURL, "/") {
		s.baseURL += "/"
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc(PathLogin, MetricsMiddleware(s.HandleLogin, "login"))
	mux.HandleFunc(PathStart, MetricsMiddleware(s.HandleStart, "start"))
	mux.HandleFunc(PathTrack, MetricsMiddleware(s.HandleTrack, "track"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.HandleStats, "stats"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.HandleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(context.Background(), mux)
	return mux
}

// FailNext makes the next n track requests answer 503.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Batches returns a copy of every accepted batch in arrival order.
func (s *Server) Batches() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Batch(nil), s.batches...)
}

// Reset forgets accepted batches.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
