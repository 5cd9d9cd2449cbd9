package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs the retention sweep periodically inside the server process.
type Processor struct {
	service  *Service
	interval time.Duration
}

func NewProcessor(service *Service, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Processor{
		service:  service,
		interval: interval,
	}
}

// Start begins the sweep loop and blocks until the context is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "retention_sweeper").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting retention sweeper")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down retention sweeper")
			return
		case <-ticker.C:
			if _, err := p.service.Sweep(time.Now()); err != nil {
				logger.Error().Err(err).Msg("scheduled retention sweep failed")
			}
		}
	}
}
