package daemon

import (
	"context"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/rs/zerolog"
)

const (
	// DefaultNowPlayingDelay is the interval between now-playing refreshes
	DefaultNowPlayingDelay = 65 * time.Second

	// DefaultFlushInterval is how often the queue is flushed
	DefaultFlushInterval = 60 * time.Second
)

// Sink receives what the scheduler decides to send.
type Sink interface {
	NowPlaying(ctx context.Context, r scrobbler.Record)

	// Submit sends records and returns the ones to keep for the next flush.
	Submit(ctx context.Context, records []scrobbler.Record) []scrobbler.Record
}

// playerTimers holds the two independent timers of one player.
type playerTimers struct {
	nowPlaying Handle
	scrobble   Handle

	scrobbleDelay time.Duration // duration the scrobble timer was armed with
	armedAt       time.Time
}

// Scheduler decides when the current track of each player is announced as
// now playing and when it is queued as a scrobble.
type Scheduler struct {
	timers  Timers
	tracker *Tracker
	queue   *scrobbler.Queue
	sink    Sink

	delay         time.Duration
	flushInterval time.Duration
	flush         Handle

	players map[string]*playerTimers
	logger  zerolog.Logger
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	NowPlayingDelay time.Duration
	FlushInterval   time.Duration
}

// NewScheduler creates a scheduler. Zero config values take the defaults.
func NewScheduler(cfg SchedulerConfig, timers Timers, tracker *Tracker, queue *scrobbler.Queue, sink Sink, logger zerolog.Logger) *Scheduler {
	if cfg.NowPlayingDelay <= 0 {
		cfg.NowPlayingDelay = DefaultNowPlayingDelay
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	return &Scheduler{
		timers:        timers,
		tracker:       tracker,
		queue:         queue,
		sink:          sink,
		delay:         cfg.NowPlayingDelay,
		flushInterval: cfg.FlushInterval,
		players:       make(map[string]*playerTimers),
		logger:        logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start arms the periodic queue flush.
func (s *Scheduler) Start() {
	s.flush = s.timers.Arm(s.flushInterval, Timer{Kind: QueueFlush})
}

// Stop cancels every timer without flushing.
func (s *Scheduler) Stop() {
	s.timers.Cancel(s.flush)
	s.flush = 0
	for id := range s.players {
		s.Forget(id)
	}
}

// Handle reacts to a consumed change event.
func (s *Scheduler) Handle(ctx context.Context, ev ChangeEvent) {
	st, ok := s.tracker.State(ev.Player)
	if !ok {
		s.Forget(ev.Player)
		return
	}
	pt := s.timersFor(ev.Player)

	switch {
	case ev.Flags.Has(TrackChanged):
		// The previous track is abandoned, not paused
		s.cancel(pt)
		if st.Playing() {
			s.start(st, pt)
		}
	case ev.Flags.Has(PlaybackStatusChanged):
		if st.Playing() {
			s.cancel(pt)
			s.start(st, pt)
		} else {
			s.pause(st, pt)
		}
	}
}

// Fire acts on a timer that went off.
func (s *Scheduler) Fire(ctx context.Context, f Fire) {
	switch f.Timer.Kind {
	case NowPlaying:
		s.fireNowPlaying(ctx, f)
	case ScrobbleEligible:
		s.fireScrobble(ctx, f)
	case QueueFlush:
		if f.Handle != s.flush {
			return
		}
		s.Flush(ctx)
		s.flush = s.timers.Arm(s.flushInterval, Timer{Kind: QueueFlush})
	}
}

// Forget cancels the timers of a player that went away.
func (s *Scheduler) Forget(id string) {
	if pt, ok := s.players[id]; ok {
		s.cancel(pt)
		delete(s.players, id)
	}
}

// Flush drains the queue into the sink and puts back what has to be
// retried.
func (s *Scheduler) Flush(ctx context.Context) {
	records := s.queue.Drain()
	if len(records) == 0 {
		return
	}
	s.logger.Debug().Int("count", len(records)).Msg("Flushing queue")
	s.submit(ctx, records)
}

// Pending returns the number of queued records.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

func (s *Scheduler) submit(ctx context.Context, records []scrobbler.Record) {
	retry := s.sink.Submit(ctx, records)
	if len(retry) == 0 {
		return
	}
	if dropped := s.queue.Requeue(retry); dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("Queue full, dropping oldest scrobbles")
	}
}

func (s *Scheduler) timersFor(id string) *playerTimers {
	pt, ok := s.players[id]
	if !ok {
		pt = &playerTimers{}
		s.players[id] = pt
	}
	return pt
}

func (s *Scheduler) cancel(pt *playerTimers) {
	if pt.nowPlaying != 0 {
		s.timers.Cancel(pt.nowPlaying)
		pt.nowPlaying = 0
	}
	if pt.scrobble != 0 {
		s.timers.Cancel(pt.scrobble)
		pt.scrobble = 0
	}
}

// start arms the timers for the current record of a playing player.
func (s *Scheduler) start(st *PlayerState, pt *playerTimers) {
	rec := st.Current

	if rec.NowPlayingEligible(s.delay) {
		pt.nowPlaying = s.timers.Arm(0, Timer{Kind: NowPlaying, Player: st.Player})
	}

	if rec.Scrobbled || !rec.Valid() || !scrobbler.IsEligible(rec.Length) {
		return
	}
	wait := scrobbler.ScrobbleThreshold(rec.Length) - rec.PlayTime
	if wait < 0 {
		wait = 0
	}
	pt.scrobbleDelay = wait
	pt.armedAt = s.timers.Now()
	pt.scrobble = s.timers.Arm(wait, Timer{Kind: ScrobbleEligible, Player: st.Player})

	s.logger.Debug().
		Str("player", st.Player).
		Str("track", rec.String()).
		Dur("wait", wait).
		Msg("Scrobble timer armed")
}

// pause folds the time played so far into the record and cancels both
// timers.
func (s *Scheduler) pause(st *PlayerState, pt *playerTimers) {
	if pt.scrobble != 0 && st.Current != nil {
		played := s.timers.Now().Sub(pt.armedAt)
		if played > pt.scrobbleDelay {
			played = pt.scrobbleDelay
		}
		if played > 0 {
			st.Current.PlayTime += played
		}
	}
	s.cancel(pt)
}

func (s *Scheduler) fireNowPlaying(ctx context.Context, f Fire) {
	pt, ok := s.players[f.Timer.Player]
	if !ok || pt.nowPlaying != f.Handle {
		return
	}
	pt.nowPlaying = 0

	st, ok := s.tracker.State(f.Timer.Player)
	if !ok || !st.Playing() {
		return
	}
	rec := st.Current
	if !rec.NowPlayingEligible(s.delay) {
		s.logger.Debug().Str("player", st.Player).Str("track", rec.String()).Msg("Now playing stream finished")
		return
	}

	s.sink.NowPlaying(ctx, *rec)
	rec.Position += s.delay
	pt.nowPlaying = s.timers.Arm(s.delay, f.Timer)
}

func (s *Scheduler) fireScrobble(ctx context.Context, f Fire) {
	pt, ok := s.players[f.Timer.Player]
	if !ok || pt.scrobble != f.Handle {
		return
	}
	pt.scrobble = 0

	st, ok := s.tracker.State(f.Timer.Player)
	if !ok || st.Current == nil {
		return
	}
	rec := st.Current
	rec.PlayTime += pt.scrobbleDelay

	logger := s.logger.With().Str("player", st.Player).Str("track", rec.String()).Logger()
	if rec.Scrobbled {
		return
	}
	if !rec.ScrobbleEligible() || st.Status != player.StatusPlaying {
		logger.Info().Dur("played", rec.PlayTime).Msg("Dropping ineligible record")
		return
	}

	rec.Scrobbled = true
	queued := *rec
	queued.Targets = nil

	logger.Info().Dur("played", rec.PlayTime).Msg("Track queued for scrobbling")
	if overflow := s.queue.Append(queued); len(overflow) > 0 {
		s.logger.Info().Int("count", len(overflow)).Msg("Queue full, flushing")
		s.submit(ctx, overflow)
	}
}
