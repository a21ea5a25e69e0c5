package collector

import (
	"net/http"
)

// Stats summarizes what the collector has seen.
type Stats struct {
	Sessions   int `json:"sessions"`
	Batches    int `json:"batches"`
	Bytes      int `json:"bytes"`
	FailNext   int `json:"fail_next"`
	Duplicates int `json:"duplicates"`
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Sessions: len(s.sessions), Batches: len(s.batches), FailNext: s.failNext, Duplicates: s.dupes}
	for _, b := range s.batches {
		st.Bytes += len(b.Body)
	}
	return st
}

// HandleStats handles GET /stats requests.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.Stats())
}

// HandleHealth handles GET /healthz requests.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
