package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

const (
	loginPath = "api/login"
	startPath = "api/proxy/gleaner/collector/start/"
	trackPath = "api/proxy/gleaner/collector/track"
)

// BaseURL returns the collector root: scheme, host, optional port and the
// base path, always ending in "/". A host that already carries a scheme is
// used as is.
func (s Settings) BaseURL() string {
	var sb strings.Builder
	host := strings.TrimRight(s.Host, "/")
	if strings.Contains(host, "://") {
		sb.WriteString(host)
	} else {
		if s.Secure {
			sb.WriteString("https://")
		} else {
			sb.WriteString("http://")
		}
		sb.WriteString(host)
		if s.Port > 0 {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(s.Port))
		}
	}
	sb.WriteByte('/')
	if p := strings.Trim(s.BasePath, "/"); p != "" {
		sb.WriteString(p)
		sb.WriteByte('/')
	}
	return sb.String()
}

// startResponse is the handshake body. Every field is optional.
type startResponse struct {
	AuthToken string          `json:"authToken"`
	PlayerID  string          `json:"playerId"`
	Session   flexString      `json:"session"`
	ObjectID  string          `json:"objectId"`
	Actor     json.RawMessage `json:"actor"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func hasActor(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// connect performs the start handshake. It never fails: a transport error
// or non-2xx answer leaves the tracker inactive and disconnected.
func (t *Tracker) connect(ctx context.Context) {
	t.mu.Lock()
	token, player, code := t.userToken, t.playerID, t.trackingCode
	t.mu.Unlock()

	if t.sender == nil {
		t.logger.Warn(ctx, "no transport configured, staying inactive")
		t.setConnected(false)
		metrics.RecordHandshake("start", false)
		return
	}

	headers := map[string]string{"Content-Type": "application/json"}
	body := []byte("{}")
	if token != "" {
		headers["Authorization"] = token
	} else if player != "" {
		body, _ = json.Marshal(map[string]string{"anonymous": player})
	}

	uri := t.settings.BaseURL() + startPath + code
	resp, err := t.sender.Send(ctx, http.MethodPost, uri, headers, body)
	if err != nil || !resp.OK() {
		t.logger.Warn(ctx, "handshake failed", logger.String("uri", uri), logger.Error(err))
		t.setConnected(false)
		metrics.RecordHandshake("start", false)
		return
	}
	metrics.RecordHandshake("start", true)

	var sr startResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		// A 2xx answer with an unreadable body is a partial success with
		// no fields.
		t.logger.Warn(ctx, "handshake response is not JSON", logger.Error(err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
	if sr.AuthToken != "" {
		t.authToken = sr.AuthToken
	}
	if sr.PlayerID != "" {
		t.playerID = sr.PlayerID
	}
	if sr.Session != "" {
		t.session = string(sr.Session)
	}
	if sr.ObjectID != "" {
		t.objectBase = sr.ObjectID
	}
	if hasActor(sr.Actor) {
		t.actor = append(json.RawMessage(nil), bytes.TrimSpace(sr.Actor)...)
		if t.state == StateInactive {
			t.state = StateActive
		}
	}
	t.logger.Info(ctx, "handshake complete",
		logger.String("player", t.playerID),
		logger.String("session", t.session),
		logger.Bool("active", t.state == StateActive),
	)
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Token string `json:"token"`
	} `json:"user"`
}

// Login exchanges credentials for a user token used by the next Start.
func (t *Tracker) Login(ctx context.Context, username, password string) error {
	if t.sender == nil {
		return fmt.Errorf("%w: no transport configured", ErrLogin)
	}
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	resp, err := t.sender.Send(ctx, http.MethodPost, t.settings.BaseURL()+loginPath,
		map[string]string{"Content-Type": "application/json"}, body)
	if err != nil {
		metrics.RecordHandshake("login", false)
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}

	var lr loginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		metrics.RecordHandshake("login", false)
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	token := lr.User.Token
	if token == "" {
		token = lr.Token
	}
	if token == "" {
		metrics.RecordHandshake("login", false)
		return fmt.Errorf("%w: no token in response", ErrLogin)
	}
	metrics.RecordHandshake("login", true)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.userToken = token
	return nil
}
