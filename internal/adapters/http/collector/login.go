package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type loginResponse struct {
	User loginUser `json:"user"`
}

// HandleLogin handles POST /api/login.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing username", ErrBadRequest))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) > 0 {
		if pass, ok := s.users[req.Username]; !ok || pass != req.Password {
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
	}
	token := uuid.NewString()
	s.tokens[token] = req.Username
	writeJSON(w, http.StatusOK, loginResponse{User: loginUser{Username: req.Username, Token: token}})
}
