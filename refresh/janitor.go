package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger is implemented by backends that need expired records reclaimed
// explicitly. Redis expires keys on its own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor calls PurgeExpired once at start and then every interval until ctx
// is cancelled.
type Janitor struct {
	purger   Purger
	interval time.Duration
	log      zerolog.Logger
}

// NewJanitor returns a janitor; a non-positive interval selects one hour.
func NewJanitor(p Purger, interval time.Duration, log zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{purger: p, interval: interval, log: log.With().Str("component", "refresh_janitor").Logger()}
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.log.Error().Err(err).Msg("purge expired refresh records")
		}
		return
	}
	if n > 0 {
		j.log.Info().Int64("removed", n).Msg("purged expired refresh records")
	}
}
