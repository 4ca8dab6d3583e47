package daemon

import (
	"context"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/rs/zerolog"
)

// PollResult is one poll of the player source.
type PollResult struct {
	Snapshots []player.Snapshot // every visible player
	Err       error             // error from the source; Snapshots is then nil
}

// Poller polls the player source at regular intervals
type Poller struct {
	source   player.Source
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(source player.Source, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends results to the provided channel.
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, results chan<- PollResult) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx, results)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, results)
		}
	}
}

func (p *Poller) poll(ctx context.Context, results chan<- PollResult) {
	snaps, err := p.source.Snapshots(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Error reading players")
		select {
		case results <- PollResult{Err: err}:
		case <-ctx.Done():
		}
		return
	}

	select {
	case results <- PollResult{Snapshots: snaps}:
		p.logger.Debug().Int("players", len(snaps)).Msg("Poll update")
	case <-ctx.Done():
	}
}
