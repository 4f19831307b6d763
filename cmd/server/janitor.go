package main

import (
	"context"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// runJanitor deletes expired unlock tokens every interval until ctx ends.
func runJanitor(ctx context.Context, tokens *services.TokenService, interval time.Duration, log *logger.Logger, m *metrics.Metrics) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purge expired tokens")
				continue
			}
			if n > 0 {
				m.TokensPurged.Add(float64(n))
				log.WithField("count", n).Info("purged expired unlock tokens")
			}
		}
	}
}
