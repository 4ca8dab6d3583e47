package scrobbler

import (
	"context"
	"net/http"
	"sync"

	"github.com/jeff-mclean/mpris-scrobbler/internal/history"
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Journal records submission outcomes.
type Journal interface {
	Record(ctx context.Context, entries ...history.Entry) error
}

// Options configures a Dispatcher.
type Options struct {
	HTTPClient *http.Client      // shared by every endpoint client
	Journal    Journal           // optional outcome journal
	Workers    int               // concurrent requests per dispatch (default: one per endpoint)
	OnSession  func(Credentials) // called after a token is exchanged for a session key
	Logger     zerolog.Logger
}

// Dispatcher sends plays to every usable endpoint and applies the failure
// policy to each endpoint independently.
//
// Network calls fan out concurrently, but their results are applied on the
// calling goroutine after all calls return, so a single caller owns every
// credential and record mutation.
type Dispatcher struct {
	mu      sync.RWMutex
	creds   credentialTable
	clients map[audioscrobbler.Endpoint]*audioscrobbler.Client

	opts   Options
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given accounts.
func NewDispatcher(creds []Credentials, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = len(audioscrobbler.Endpoints())
	}
	d := &Dispatcher{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "dispatcher").Logger(),
	}
	d.Reload(creds)
	return d
}

// Reload replaces the whole credential table. Accounts with a session key
// start out authenticated.
func (d *Dispatcher) Reload(list []Credentials) {
	table := newCredentialTable(list)
	clients := make(map[audioscrobbler.Endpoint]*audioscrobbler.Client, len(table))

	for e, c := range table {
		client, err := audioscrobbler.NewClient(audioscrobbler.Config{
			Endpoint:   e,
			BaseURL:    c.BaseURL,
			HTTPClient: d.opts.HTTPClient,
			Logger:     debugLogger{d.logger},
		})
		if err != nil {
			d.logger.Warn().Err(err).Str("endpoint", e.String()).Msg("Disabling endpoint")
			c.Enabled = false
			continue
		}
		clients[e] = client
	}

	d.mu.Lock()
	d.creds = table
	d.clients = clients
	d.mu.Unlock()

	usable := 0
	for _, c := range table {
		if c.Usable() {
			usable++
		}
	}
	d.logger.Info().
		Int("endpoints", len(table)).
		Int("usable", usable).
		Msg("Credentials loaded")
}

// Snapshot returns a copy of every account in endpoint order.
func (d *Dispatcher) Snapshot() []Credentials {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Credentials
	for _, c := range d.creds.ordered() {
		out = append(out, *c)
	}
	return out
}

// target is one endpoint's share of a dispatch.
type target struct {
	creds  Credentials
	client *audioscrobbler.Client
	idx    []int // positions in the dispatched records

	err     error
	session *audioscrobbler.Session
	resp    *audioscrobbler.ScrobbleResponse
}

func (d *Dispatcher) run(targets []*target, call func(*target)) {
	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			call(t)
			return nil
		})
	}
	_ = g.Wait()
}

// update applies fn to the live entry for e, if it still exists.
func (d *Dispatcher) update(e audioscrobbler.Endpoint, fn func(*Credentials)) (Credentials, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.creds[e]
	if !ok {
		return Credentials{}, false
	}
	fn(c)
	return *c, true
}

func (d *Dispatcher) disable(e audioscrobbler.Endpoint, err error) {
	d.update(e, func(c *Credentials) {
		c.Enabled = false
		c.Authenticated = false
	})
	d.logger.Error().
		Err(err).
		Str("endpoint", e.String()).
		Msg("Credentials rejected, endpoint disabled")
}

func (d *Dispatcher) usableTargets() []*target {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var targets []*target
	for _, c := range d.creds.ordered() {
		if c.Usable() && d.clients[c.Endpoint] != nil {
			targets = append(targets, &target{creds: *c, client: d.clients[c.Endpoint]})
		}
	}
	return targets
}

// Authenticate exchanges pending tokens for session keys.
//
// An auth-class rejection disables the endpoint. A permanent rejection of
// the token (unauthorized or expired) discards it without disabling the
// endpoint; a new token is needed. Transient failures keep the token for
// the next attempt.
func (d *Dispatcher) Authenticate(ctx context.Context) {
	var targets []*target
	d.mu.RLock()
	for _, c := range d.creds.ordered() {
		if c.NeedsSession() && d.clients[c.Endpoint] != nil {
			targets = append(targets, &target{creds: *c, client: d.clients[c.Endpoint]})
		}
	}
	d.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	d.run(targets, func(t *target) {
		t.session, t.err = t.client.Auth().GetSession(ctx, t.creds.api(), t.creds.Token)
	})

	for _, t := range targets {
		e := t.creds.Endpoint
		logger := d.logger.With().Str("endpoint", e.String()).Logger()

		switch audioscrobbler.Classify(t.err) {
		case audioscrobbler.ClassNone:
			updated, ok := d.update(e, func(c *Credentials) {
				c.SessionKey = t.session.Key
				c.UserName = t.session.Username
				c.Token = ""
				c.Authenticated = true
			})
			logger.Info().Str("user", t.session.Username).Msg("Session acquired")
			if ok && d.opts.OnSession != nil {
				d.opts.OnSession(updated)
			}
		case audioscrobbler.ClassAuth:
			d.disable(e, t.err)
		case audioscrobbler.ClassPermanent:
			d.update(e, func(c *Credentials) {
				c.Authenticated = false
				c.Token = ""
			})
			logger.Warn().Err(t.err).Msg("Token rejected, authorize again")
		default:
			logger.Warn().Err(t.err).Msg("Session request failed, will retry")
		}
	}
}

// DispatchNowPlaying sends r as the now-playing track to every usable
// endpoint. Failures are logged and never retried; the next refresh
// supersedes them.
func (d *Dispatcher) DispatchNowPlaying(ctx context.Context, r Record) {
	if err := r.Validate(); err != nil {
		d.logger.Debug().Err(err).Msg("Skipping now playing")
		return
	}

	targets := d.usableTargets()
	if len(targets) == 0 {
		return
	}

	track := r.Track()
	d.run(targets, func(t *target) {
		_, t.err = t.client.Scrobble().UpdateNowPlaying(ctx, t.creds.api(), track)
	})

	for _, t := range targets {
		e := t.creds.Endpoint
		switch audioscrobbler.Classify(t.err) {
		case audioscrobbler.ClassNone:
			d.logger.Debug().
				Str("endpoint", e.String()).
				Str("track", r.Title).
				Str("artist", r.Artist).
				Msg("Now playing updated")
		case audioscrobbler.ClassAuth:
			d.disable(e, t.err)
		default:
			d.logger.Warn().
				Err(t.err).
				Str("endpoint", e.String()).
				Msg("Failed to update now playing")
		}
	}
}

// DispatchScrobbles submits records to every endpoint that still owes them
// and returns the records to keep for the next flush.
//
// Invalid records are dropped. On a transient failure the batch is
// returned with that endpoint in Targets; a permanent failure drops it;
// an auth failure disables the endpoint and drops it. Each endpoint is
// handled on its own, so one endpoint's failure never causes duplicate
// submissions to another. If no endpoint is usable at all, every valid
// record is kept.
func (d *Dispatcher) DispatchScrobbles(ctx context.Context, records []Record) []Record {
	if len(records) == 0 {
		return nil
	}

	batch := history.NewBatchID()
	logger := d.logger.With().Str("batch", batch).Logger()

	var (
		valid   []Record
		entries []history.Entry
	)
	for _, r := range records {
		if err := r.Validate(); err != nil {
			logger.Warn().Err(err).Msg("Dropping invalid record")
			entries = append(entries, newEntry(batch, "", r, history.OutcomeDropped, err.Error()))
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		d.journal(ctx, entries)
		return nil
	}

	usable := d.usableTargets()
	if len(usable) == 0 {
		logger.Debug().Int("count", len(valid)).Msg("No usable endpoint, keeping records")
		d.journal(ctx, entries)
		return valid
	}

	covered := make([]bool, len(valid))
	var targets []*target
	for _, u := range usable {
		var idx []int
		for i, r := range valid {
			if r.owedTo(u.creds.Endpoint) {
				idx = append(idx, i)
				covered[i] = true
			}
		}
		for start := 0; start < len(idx); start += audioscrobbler.MaxBatchSize {
			end := start + audioscrobbler.MaxBatchSize
			if end > len(idx) {
				end = len(idx)
			}
			targets = append(targets, &target{creds: u.creds, client: u.client, idx: idx[start:end]})
		}
	}

	for i, ok := range covered {
		if !ok {
			logger.Warn().
				Str("track", valid[i].Title).
				Interface("targets", valid[i].Targets).
				Msg("Dropping record owed only to unusable endpoints")
		}
	}

	d.run(targets, func(t *target) {
		plays := make([]audioscrobbler.Scrobble, len(t.idx))
		for j, i := range t.idx {
			plays[j] = valid[i].Scrobble()
		}
		t.resp, t.err = t.client.Scrobble().ScrobbleBatch(ctx, t.creds.api(), plays)
	})

	retry := make(map[int][]audioscrobbler.Endpoint)
	for _, t := range targets {
		e := t.creds.Endpoint
		class := audioscrobbler.Classify(t.err)

		switch class {
		case audioscrobbler.ClassNone:
			logger.Info().
				Str("endpoint", e.String()).
				Int("accepted", t.resp.Accepted).
				Int("ignored", t.resp.Ignored).
				Msg("Batch scrobbled successfully")
			for j, i := range t.idx {
				outcome, msg := history.OutcomeAccepted, ""
				if j < len(t.resp.Scrobbles) && t.resp.Scrobbles[j].IgnoredMessage.Code != 0 {
					outcome, msg = history.OutcomeIgnored, t.resp.Scrobbles[j].IgnoredMessage.Text
				}
				entries = append(entries, newEntry(batch, e, valid[i], outcome, msg))
			}
		case audioscrobbler.ClassTransient:
			logger.Warn().
				Err(t.err).
				Str("endpoint", e.String()).
				Int("count", len(t.idx)).
				Msg("Batch scrobble failed, will retry")
			for _, i := range t.idx {
				retry[i] = append(retry[i], e)
				entries = append(entries, newEntry(batch, e, valid[i], history.OutcomeRetry, t.err.Error()))
			}
		case audioscrobbler.ClassAuth:
			d.disable(e, t.err)
			for _, i := range t.idx {
				entries = append(entries, newEntry(batch, e, valid[i], history.OutcomeDisabled, t.err.Error()))
			}
		default:
			logger.Warn().
				Err(t.err).
				Str("endpoint", e.String()).
				Int("count", len(t.idx)).
				Msg("Batch scrobble rejected, dropping")
			for _, i := range t.idx {
				entries = append(entries, newEntry(batch, e, valid[i], history.OutcomeDropped, t.err.Error()))
			}
		}
	}

	d.journal(ctx, entries)

	var keep []Record
	for i, r := range valid {
		if eps, ok := retry[i]; ok {
			r.Targets = eps
			keep = append(keep, r)
		}
	}
	return keep
}

func (d *Dispatcher) journal(ctx context.Context, entries []history.Entry) {
	if d.opts.Journal == nil || len(entries) == 0 {
		return
	}
	if err := d.opts.Journal.Record(ctx, entries...); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write history")
	}
}

func newEntry(batch string, e audioscrobbler.Endpoint, r Record, outcome history.Outcome, msg string) history.Entry {
	return history.Entry{
		Batch:    batch,
		Endpoint: string(e),
		Artist:   r.Artist,
		Track:    r.Title,
		Album:    r.Album,
		Duration: r.Length,
		PlayedAt: r.StartTime,
		Outcome:  outcome,
		Error:    msg,
	}
}

// debugLogger routes client debug output through zerolog.
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
