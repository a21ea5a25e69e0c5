package simulate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/pkg/logger"
)

// Run plays cfg.Players concurrent players against tr, which must be
// started. Traces are only queued; flushing is the caller's business.
func Run(ctx context.Context, tr *app.Tracker, cfg Config) (Stats, error) {
	if cfg.Players <= 0 || cfg.Levels <= 0 || cfg.ActionsPerLevel < 0 {
		return Stats{}, fmt.Errorf("%w: players=%d levels=%d actions=%d", ErrInvalidConfig, cfg.Players, cfg.Levels, cfg.ActionsPerLevel)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get().Named("simulate")
	}
	stats := Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.Int("players", cfg.Players),
		logger.Int("levels", cfg.Levels),
		logger.Int("actionsPerLevel", cfg.ActionsPerLevel))

	kinds := kindsByVocabulary()
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < cfg.Players; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &player{id: uuid.NewString(), kinds: kinds}
			for l := 1; l <= cfg.Levels && ctx.Err() == nil; l++ {
				p.level = "level-" + strconv.Itoa(l)
				attempted, errs := playLevel(ctx, tr, p, cfg.ActionsPerLevel)

				mu.Lock()
				stats.TracesAttempted += attempted
				stats.TracesAccepted += attempted - len(errs)
				stats.TracesRejected += len(errs)
				mu.Unlock()

				if cfg.Verbose {
					for _, err := range errs {
						log.Warn(ctx, "trace rejected", logger.String("player", p.id), logger.Error(err))
					}
				}
				if cfg.Pause > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(cfg.Pause):
					}
				}
			}
		}()
	}
	wg.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, ctx.Err()
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats Stats) {
	var tracesPerSecond float64
	if stats.Duration > 0 {
		tracesPerSecond = float64(stats.TracesAccepted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "simulation finished",
		logger.Int("tracesAttempted", stats.TracesAttempted),
		logger.Int("tracesAccepted", stats.TracesAccepted),
		logger.Int("tracesRejected", stats.TracesRejected),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("tracesPerSecond", tracesPerSecond))
}
