package daemon

import (
	"sync"
	"time"
)

// Kind tags a timer payload.
type Kind int

const (
	NowPlaying       Kind = iota // refresh the now-playing notice
	ScrobbleEligible             // the scrobble threshold was crossed
	QueueFlush                   // periodic queue flush
)

func (k Kind) String() string {
	switch k {
	case NowPlaying:
		return "now_playing"
	case ScrobbleEligible:
		return "scrobble_eligible"
	case QueueFlush:
		return "queue_flush"
	default:
		return "unknown"
	}
}

// Timer is what a timer carries back when it fires.
type Timer struct {
	Kind   Kind
	Player string // empty for QueueFlush
}

// Handle identifies one armed timer. The zero Handle is never armed.
type Handle uint64

// Fire is a timer that went off.
type Fire struct {
	Handle Handle
	Timer  Timer
}

// Timers arms and cancels one-shot timers.
type Timers interface {
	Arm(delay time.Duration, t Timer) Handle
	Cancel(h Handle)
	Now() time.Time
}

// timerSet is the wall-clock Timers. Fires are delivered on C and must be
// claimed with Take before they are acted on, so a timer cancelled after it
// went off is still dropped.
type timerSet struct {
	mu   sync.Mutex
	next Handle
	live map[Handle]*time.Timer

	fires chan Fire
	done  chan struct{}
	once  sync.Once
}

func newTimerSet() *timerSet {
	return &timerSet{
		live:  make(map[Handle]*time.Timer),
		fires: make(chan Fire, 16),
		done:  make(chan struct{}),
	}
}

func (s *timerSet) Arm(delay time.Duration, t Timer) Handle {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.live[h] = time.AfterFunc(delay, func() {
		select {
		case s.fires <- Fire{Handle: h, Timer: t}:
		case <-s.done:
		}
	})
	return h
}

func (s *timerSet) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.live[h]; ok {
		t.Stop()
		delete(s.live, h)
	}
}

func (s *timerSet) Now() time.Time {
	return time.Now()
}

// C delivers fired timers.
func (s *timerSet) C() <-chan Fire {
	return s.fires
}

// Take reports whether h is still armed and retires it.
func (s *timerSet) Take(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[h]; !ok {
		return false
	}
	delete(s.live, h)
	return true
}

// Len returns the number of armed timers.
func (s *timerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Stop cancels every timer and unblocks pending deliveries.
func (s *timerSet) Stop() {
	s.mu.Lock()
	for h, t := range s.live {
		t.Stop()
		delete(s.live, h)
	}
	s.mu.Unlock()

	s.once.Do(func() { close(s.done) })
}
