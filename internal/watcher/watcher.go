package watcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"promo-tracker/internal/feed"
	"promo-tracker/internal/process"
)

// Watch polls the drop folder and triggers a processing run whenever a
// drop newer than the recorded run state appears. Runs are serialized
// by construction: the next poll only happens after the previous run
// returned.
func Watch(ctx context.Context, proc *process.Processor, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("watching drop folder for new snapshots")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watcher stopped")
			return
		case <-time.After(jitter(interval)):
		}

		pending, err := proc.Pending(ctx)
		if err != nil {
			if !errors.Is(err, feed.ErrNoSnapshots) {
				log.Error().Err(err).Msg("check pending snapshots")
			}
			continue
		}
		if !pending {
			continue
		}
		if _, err := proc.Run(ctx, time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("process new snapshot")
		}
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
