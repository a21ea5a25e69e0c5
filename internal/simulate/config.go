// Package simulate drives a tracker with synthetic players. Each player is a
// goroutine walking through a short game session: it starts a level, moves
// between screens, answers questions, uses items and finishes the level.
package simulate

import (
	"time"

	"github.com/okian/gametrace/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	Players         int           // Concurrent synthetic players
	ActionsPerLevel int           // Traces between initialized and completed
	Levels          int           // Levels each player plays
	Pause           time.Duration // Delay between actions, 0 for none
	Verbose         bool          // Log every rejected trace
	Logger          logger.Logger // Defaults to the global logger
}

// Stats holds run statistics.
type Stats struct {
	TracesAttempted int
	TracesAccepted  int
	TracesRejected  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// DefaultConfig returns a small run suitable for smoke tests.
func DefaultConfig() Config {
	return Config{
		Players:         4,
		ActionsPerLevel: 10,
		Levels:          2,
	}
}
