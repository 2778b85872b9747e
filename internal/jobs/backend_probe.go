package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jasani8259/Final-Capstone/internal/config"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// StartBackendProbe pings the backend once right away and then on every
// probe interval, reporting each result. Failures are logged only when the
// state changes.
func StartBackendProbe(ctx context.Context, cfg config.Config, backend Pinger, report func(up bool), log zerolog.Logger) {
	if backend == nil {
		log.Warn().Msg("backend probe disabled: backend client not configured")
		return
	}
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 || timeout >= interval {
		timeout = interval / 2
	}

	var (
		known bool
		last  bool
	)
	probe := func() {
		tickCtx, cancel := context.WithTimeout(ctx, timeout)
		err := backend.Ping(tickCtx)
		cancel()
		up := err == nil
		if !known || last != up {
			if up {
				log.Info().Msg("backend reachable")
			} else {
				log.Warn().Err(err).Msg("backend unreachable")
			}
		}
		known, last = true, up
		if report != nil {
			report(up)
		}
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		probe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}
