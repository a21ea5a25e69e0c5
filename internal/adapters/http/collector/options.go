package collector

import (
	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/domain/dedupe"
	"github.com/okian/gametrace/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithUsers restricts login to the given username/password pairs. Without
// it any non-empty username is accepted.
func WithUsers(users map[string]string) Option {
	return func(s *Server) {
		for u, p := range users {
			s.users[u] = p
		}
	}
}

// WithTrackingCodes restricts start to the given codes. Without it any
// non-empty code is accepted.
func WithTrackingCodes(codes ...string) Option {
	return func(s *Server) {
		for _, c := range codes {
			if c != "" {
				s.codes[c] = struct{}{}
			}
		}
	}
}

// WithBaseURL sets the prefix used for object ids and actor home pages.
func WithBaseURL(base string) Option {
	return func(s *Server) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// WithStore persists every accepted batch under sessions/<session>.<ext>.
func WithStore(st storage.Storage) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDedupe drops track payloads whose session and body were already
// accepted, answering them as duplicates.
func WithDedupe(d dedupe.Deduper) Option {
	return func(s *Server) {
		s.dedupe = d
	}
}
