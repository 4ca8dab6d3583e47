package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/rs/zerolog"
)

type fakeSource struct {
	mu    sync.Mutex
	snaps []player.Snapshot
	err   error
}

func (s *fakeSource) Snapshots(context.Context) ([]player.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps, s.err
}

func (s *fakeSource) Close() error { return nil }

type fakeDispatcher struct {
	mu           sync.Mutex
	authenticate int
	nowPlaying   []scrobbler.Record
	scrobbled    []scrobbler.Record
	reloaded     [][]scrobbler.Credentials

	playing chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{playing: make(chan struct{}, 16)}
}

func (f *fakeDispatcher) Authenticate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticate++
}

func (f *fakeDispatcher) DispatchNowPlaying(_ context.Context, r scrobbler.Record) {
	f.mu.Lock()
	f.nowPlaying = append(f.nowPlaying, r)
	f.mu.Unlock()
	select {
	case f.playing <- struct{}{}:
	default:
	}
}

func (f *fakeDispatcher) DispatchScrobbles(_ context.Context, records []scrobbler.Record) []scrobbler.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbled = append(f.scrobbled, records...)
	return nil
}

func (f *fakeDispatcher) Reload(creds []scrobbler.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloaded = append(f.reloaded, creds)
}

func newTestDaemon(cfg Config, src *fakeSource, disp *fakeDispatcher) *Daemon {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return New(cfg, src, disp, zerolog.Nop())
}

func TestDaemonHandlePoll(t *testing.T) {
	d := newTestDaemon(Config{IgnorePlayers: []string{"firefox"}}, &fakeSource{}, newFakeDispatcher())
	defer d.timers.Stop()
	ctx := context.Background()

	spotify := song("T", 200*time.Second, player.StatusPlaying)
	firefox := song("Video", 600*time.Second, player.StatusPlaying)
	firefox.Player = "firefox.instance_1_7"

	d.handlePoll(ctx, PollResult{Snapshots: []player.Snapshot{spotify, firefox}})

	if got := d.tracker.Players(); len(got) != 1 || got[0] != "spotify" {
		t.Fatalf("Players() = %v, want [spotify]", got)
	}
	if d.timers.Len() != 2 {
		t.Errorf("expected now playing and scrobble timers, got %d", d.timers.Len())
	}

	// A failed poll keeps the known players
	d.handlePoll(ctx, PollResult{Err: errors.New("bus gone")})
	if len(d.tracker.Players()) != 1 {
		t.Error("failed poll must not remove players")
	}

	// A player missing from a poll is forgotten
	d.handlePoll(ctx, PollResult{})
	if len(d.tracker.Players()) != 0 {
		t.Errorf("expected player removed, got %v", d.tracker.Players())
	}
	if d.timers.Len() != 0 {
		t.Errorf("expected timers cancelled, got %d", d.timers.Len())
	}
}

func TestDaemonReload(t *testing.T) {
	disp := newFakeDispatcher()
	calls := 0
	d := newTestDaemon(Config{
		Reload: func() ([]scrobbler.Credentials, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("bad config")
			}
			return []scrobbler.Credentials{{Endpoint: "lastfm", Enabled: true}}, nil
		},
	}, &fakeSource{}, disp)
	defer d.timers.Stop()

	d.reload("test")
	d.reload("test")

	if len(disp.reloaded) != 1 || disp.reloaded[0][0].Endpoint != "lastfm" {
		t.Errorf("expected one successful reload, got %v", disp.reloaded)
	}
}

func TestDaemonRun(t *testing.T) {
	src := &fakeSource{snaps: []player.Snapshot{song("T", 200*time.Second, player.StatusPlaying)}}
	disp := newFakeDispatcher()
	changes := make(chan struct{}, 1)
	reloaded := make(chan struct{}, 1)

	d := newTestDaemon(Config{
		Changes: changes,
		Reload: func() ([]scrobbler.Credentials, error) {
			reloaded <- struct{}{}
			return nil, nil
		},
	}, src, disp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, nil) }()

	select {
	case <-disp.playing:
	case <-time.After(5 * time.Second):
		t.Fatal("now playing was never dispatched")
	}

	changes <- struct{}{}
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("config change did not reload credentials")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	disp.mu.Lock()
	defer disp.mu.Unlock()
	if disp.authenticate == 0 {
		t.Error("startup must run the authentication bootstrap")
	}
	if len(disp.scrobbled) != 0 {
		t.Error("shutdown must not flush the queue")
	}
	if d.timers.Len() != 0 {
		t.Errorf("shutdown left %d timers armed", d.timers.Len())
	}
}
