package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/rs/zerolog"
)

// Config holds daemon configuration
type Config struct {
	PollInterval    time.Duration // How often to poll the players
	NowPlayingDelay time.Duration // Interval between now playing refreshes
	FlushInterval   time.Duration // How often to flush the scrobble queue
	QueueSize       int           // Plays held before a forced flush
	IgnorePlayers   []string      // Player ids never tracked

	// Reload returns fresh credentials on SIGHUP or when Changes fires.
	Reload  func() ([]scrobbler.Credentials, error)
	Changes <-chan struct{}
}

// Dispatcher is the part of *scrobbler.Dispatcher the daemon drives.
type Dispatcher interface {
	Authenticate(ctx context.Context)
	DispatchNowPlaying(ctx context.Context, r scrobbler.Record)
	DispatchScrobbles(ctx context.Context, records []scrobbler.Record) []scrobbler.Record
	Reload(creds []scrobbler.Credentials)
}

// Daemon runs the reactor: one goroutine owns every player state, timer
// and queue mutation.
type Daemon struct {
	config     Config
	dispatcher Dispatcher
	tracker    *Tracker
	timers     *timerSet
	sched      *Scheduler
	poller     *Poller
	logger     zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, source player.Source, dispatcher Dispatcher, logger zerolog.Logger) *Daemon {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}

	tracker := NewTracker(nil)
	timers := newTimerSet()
	sched := NewScheduler(SchedulerConfig{
		NowPlayingDelay: cfg.NowPlayingDelay,
		FlushInterval:   cfg.FlushInterval,
	}, timers, tracker, scrobbler.NewQueue(cfg.QueueSize), dispatchSink{dispatcher}, logger)

	return &Daemon{
		config:     cfg,
		dispatcher: dispatcher,
		tracker:    tracker,
		timers:     timers,
		sched:      sched,
		poller:     NewPoller(source, cfg.PollInterval, logger),
		logger:     logger.With().Str("component", "daemon").Logger(),
	}
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	reload := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		}
	}()

	if err := d.run(ctx, reload); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// run is the reactor loop
func (d *Daemon) run(ctx context.Context, reload <-chan struct{}) error {
	d.logger.Info().Stringer("config", d.config).Msg("Starting daemon")

	d.dispatcher.Authenticate(ctx)

	var wg sync.WaitGroup
	results := make(chan PollResult, 1)

	pollCtx, stopPoller := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(pollCtx, results); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	d.sched.Start()
	defer func() {
		stopPoller()
		wg.Wait()
		d.shutdown()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			d.handlePoll(ctx, res)
		case f := <-d.timers.C():
			if d.timers.Take(f.Handle) {
				d.sched.Fire(ctx, f)
			}
		case <-reload:
			d.reload("signal")
		case <-d.config.Changes:
			d.reload("config change")
		}
	}
}

// handlePoll feeds one batch of snapshots through the tracker.
func (d *Daemon) handlePoll(ctx context.Context, res PollResult) {
	if res.Err != nil {
		// Keep the known players; a failed poll says nothing about them
		d.logger.Debug().Err(res.Err).Msg("Poll failed")
		return
	}

	seen := make(map[string]bool, len(res.Snapshots))
	flush := false

	for _, snap := range res.Snapshots {
		if player.Ignored(snap.Player, d.config.IgnorePlayers) {
			continue
		}
		seen[snap.Player] = true

		d.tracker.Observe(snap)
		ev, ok := d.tracker.Consume(snap.Player)
		if !ok {
			continue
		}

		if ev.Flags.Has(TrackChanged) {
			flush = true
			if st, ok := d.tracker.State(snap.Player); ok && st.Current != nil {
				d.logger.Info().
					Str("player", snap.Player).
					Str("track", st.Current.Title).
					Str("artist", st.Current.Artist).
					Str("status", st.Status.String()).
					Msg("Track changed")
			}
		} else if ev.Flags.Has(PlaybackStatusChanged) {
			d.logger.Debug().
				Str("player", snap.Player).
				Str("status", ev.Status.String()).
				Msg("Playback status changed")
		}

		d.sched.Handle(ctx, ev)
	}

	for _, id := range d.tracker.Players() {
		if !seen[id] {
			d.logger.Info().Str("player", id).Msg("Player gone")
			d.sched.Forget(id)
			d.tracker.Remove(id)
		}
	}

	if flush {
		d.sched.Flush(ctx)
	}
}

func (d *Daemon) reload(reason string) {
	if d.config.Reload == nil {
		return
	}
	creds, err := d.config.Reload()
	if err != nil {
		d.logger.Error().Err(err).Str("reason", reason).Msg("Failed to reload credentials")
		return
	}
	d.dispatcher.Reload(creds)
	d.logger.Info().Str("reason", reason).Msg("Credentials reloaded")
}

// shutdown stops every timer. Queued plays are not flushed.
func (d *Daemon) shutdown() {
	d.sched.Stop()
	d.timers.Stop()

	if n := d.sched.Pending(); n > 0 {
		d.logger.Warn().Int("count", n).Msg("Discarding unsent scrobbles")
	}
	d.logger.Info().Msg("Daemon stopped")
}

// dispatchSink adapts a Dispatcher to the scheduler. Pending session
// tokens are exchanged before every submission.
type dispatchSink struct {
	d Dispatcher
}

func (s dispatchSink) NowPlaying(ctx context.Context, r scrobbler.Record) {
	s.d.DispatchNowPlaying(ctx, r)
}

func (s dispatchSink) Submit(ctx context.Context, records []scrobbler.Record) []scrobbler.Record {
	s.d.Authenticate(ctx)
	return s.d.DispatchScrobbles(ctx, records)
}

// String describes the configuration for logs.
func (c Config) String() string {
	return fmt.Sprintf("poll=%s now_playing=%s flush=%s queue=%d", c.PollInterval, c.NowPlayingDelay, c.FlushInterval, c.QueueSize)
}
