package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/gametrace/pkg/logger"
)

type startRequest struct {
	Anonymous string `json:"anonymous"`
}

// StartResponse is the handshake body returned by the start endpoint.
type StartResponse struct {
	AuthToken string          `json:"authToken"`
	PlayerID  string          `json:"playerId"`
	Session   int             `json:"session"`
	ObjectID  string          `json:"objectId"`
	Actor     json.RawMessage `json:"actor"`
}

type actorAccount struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

type actor struct {
	Name    string       `json:"name"`
	Account actorAccount `json:"account"`
}

// HandleStart handles POST /api/proxy/gleaner/collector/start/{code}. A
// login token in Authorization identifies the player; otherwise the body may
// name an anonymous player id, and a fresh one is assigned when it does not.
func (s *Server) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	code := strings.Trim(strings.TrimPrefix(r.URL.Path, PathStart), "/")
	if code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing tracking code", ErrBadRequest))
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.codes) > 0 {
		if _, ok := s.codes[code]; !ok {
			writeError(w, http.StatusNotFound, "not_found", ErrUnknownCode)
			return
		}
	}

	playerID := strings.TrimSpace(req.Anonymous)
	if tok := r.Header.Get("Authorization"); tok != "" {
		user, ok := s.tokens[tok]
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		playerID = user
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	s.nextID++
	authToken := uuid.NewString()
	s.sessions[authToken] = &session{number: s.nextID, code: code, playerID: playerID}

	a, _ := json.Marshal(actor{Name: playerID, Account: actorAccount{HomePage: s.baseURL, Name: playerID}})
	s.logger.Info(r.Context(), "session started",
		logger.String("code", code),
		logger.String("player", playerID),
		logger.Int("session", s.nextID),
	)
	writeJSON(w, http.StatusOK, StartResponse{
		AuthToken: authToken,
		PlayerID:  playerID,
		Session:   s.nextID,
		ObjectID:  s.baseURL + "games/" + code + "/",
		Actor:     a,
	})
}
