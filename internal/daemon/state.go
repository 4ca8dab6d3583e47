package daemon

import (
	"sort"
	"strings"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
)

// ChangeFlags is the set of transitions seen since the last consumption.
type ChangeFlags uint8

const (
	PlaybackStatusChanged ChangeFlags = 1 << iota
	TrackChanged
	VolumeChanged
	PositionChanged
)

// Has reports whether every bit of flag is set.
func (f ChangeFlags) Has(flag ChangeFlags) bool {
	return f&flag == flag
}

func (f ChangeFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		flag ChangeFlags
		name string
	}{
		{PlaybackStatusChanged, "status"},
		{TrackChanged, "track"},
		{VolumeChanged, "volume"},
		{PositionChanged, "position"},
	} {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ChangeEvent describes what changed on one player.
type ChangeEvent struct {
	Player string
	Flags  ChangeFlags
	Status player.Status // status after the change
}

// Empty reports whether nothing changed.
func (e ChangeEvent) Empty() bool {
	return e.Flags == 0
}

// PlayerState is the tracked state of one player.
type PlayerState struct {
	Player   string
	Status   player.Status
	Volume   float64
	Position time.Duration // as last reported by the player

	Current  *scrobbler.Record
	Previous *scrobbler.Record

	pending ChangeFlags
}

// Playing reports whether the player is playing a track.
func (s *PlayerState) Playing() bool {
	return s.Status == player.StatusPlaying && s.Current != nil
}

// Tracker turns player snapshots into change events.
//
// A Tracker is owned by the reactor goroutine and is not safe for
// concurrent use.
type Tracker struct {
	players map[string]*PlayerState
	now     func() time.Time
}

// NewTracker creates an empty tracker. now may be nil.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		players: make(map[string]*PlayerState),
		now:     now,
	}
}

// Observe compares snap against the stored state of its player, updates
// the state and returns what changed. A repeat of the last known state
// returns an empty event.
func (t *Tracker) Observe(snap player.Snapshot) ChangeEvent {
	st, ok := t.players[snap.Player]
	if !ok {
		st = &PlayerState{Player: snap.Player, Status: player.StatusStopped}
		t.players[snap.Player] = st
	}

	var flags ChangeFlags

	// Some players publish the length after the title; a record that
	// becomes valid counts as a new track so it can still be timed.
	next := recordFromSnapshot(snap)
	completed := st.Current != nil && next != nil && !st.Current.Valid() && next.Valid()
	if !sameIdentity(st.Current, next) || completed {
		flags |= TrackChanged
		st.Previous = st.Current
		st.Current = next
	}

	if snap.Status != st.Status {
		flags |= PlaybackStatusChanged
		st.Status = snap.Status
	}
	if snap.Volume != st.Volume {
		flags |= VolumeChanged
		st.Volume = snap.Volume
	}
	if snap.Position != st.Position {
		flags |= PositionChanged
		st.Position = snap.Position
	}

	// The scrobble timestamp is when the track was first heard
	if st.Current != nil && st.Status == player.StatusPlaying && st.Current.StartTime.IsZero() {
		st.Current.StartTime = t.now()
	}

	st.pending |= flags
	return ChangeEvent{Player: snap.Player, Flags: flags, Status: st.Status}
}

// Consume returns every change observed since the last call for id and
// clears it. ok is false when there is nothing to report.
func (t *Tracker) Consume(id string) (ChangeEvent, bool) {
	st, found := t.players[id]
	if !found || st.pending == 0 {
		return ChangeEvent{}, false
	}
	ev := ChangeEvent{Player: id, Flags: st.pending, Status: st.Status}
	st.pending = 0
	return ev, true
}

// State returns the tracked state of id.
func (t *Tracker) State(id string) (*PlayerState, bool) {
	st, ok := t.players[id]
	return st, ok
}

// Remove forgets a player that went away.
func (t *Tracker) Remove(id string) {
	delete(t.players, id)
}

// Players returns the tracked player ids in order.
func (t *Tracker) Players() []string {
	ids := make([]string, 0, len(t.players))
	for id := range t.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// recordFromSnapshot returns nil for a snapshot with no track loaded.
func recordFromSnapshot(snap player.Snapshot) *scrobbler.Record {
	r := &scrobbler.Record{
		Title:       snap.Title,
		Artist:      snap.Artist(),
		Album:       snap.Album,
		AlbumArtist: snap.AlbumArtist,
		TrackNumber: snap.TrackNumber,
		Length:      snap.Length.Truncate(time.Second),
	}
	if r.Title == "" && r.Artist == "" && r.Album == "" {
		return nil
	}
	return r
}

func sameIdentity(a, b *scrobbler.Record) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SameTrack(*b)
}
