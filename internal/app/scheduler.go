// internal/app/scheduler.go
package app

import (
	"context"
	"time"

	"exchange-matcher/internal/common/logger"
)

// RunPeriodic calls fn every interval until ctx is cancelled. Runs never
// overlap; a failing run is logged and the next tick proceeds.
func RunPeriodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error, log logger.Logger) {
	log = log.WithFields(map[string]interface{}{"job": name})
	if interval <= 0 {
		log.Warn("periodic job disabled: non-positive interval", nil)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("periodic job scheduled", map[string]interface{}{"interval": interval.String()})

	for {
		select {
		case <-ctx.Done():
			log.Info("periodic job stopped", nil)
			return
		case <-ticker.C:
			start := time.Now()
			if err := fn(ctx); err != nil {
				log.Error("periodic job failed", map[string]interface{}{
					"error":      err,
					"durationMs": time.Since(start).Milliseconds(),
				})
				continue
			}
			log.Debug("periodic job completed", map[string]interface{}{
				"durationMs": time.Since(start).Milliseconds(),
			})
		}
	}
}
