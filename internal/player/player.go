package player

import (
	"context"
	"strings"
	"time"
)

// Status is the playback status reported by a player.
type Status int

const (
	StatusStopped Status = iota // Nothing loaded or playback stopped
	StatusPlaying               // Track is currently playing
	StatusPaused                // Track is paused
)

// ParseStatus maps a PlaybackStatus property ("Playing", "Paused",
// "Stopped") to a Status. Unknown values read as stopped.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing":
		return StatusPlaying
	case "paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

// String returns a human-readable representation of the Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Capabilities are the control flags a player advertises.
type Capabilities struct {
	CanControl    bool
	CanPlay       bool
	CanPause      bool
	CanSeek       bool
	CanGoNext     bool
	CanGoPrevious bool
}

// Snapshot is the state of one player at one poll.
type Snapshot struct {
	Player string // stable identity, e.g. a bus name

	Status      Status
	TrackID     string
	Title       string
	Artists     []string
	Album       string
	AlbumArtist string
	TrackNumber int
	Length      time.Duration // normalized to whole seconds
	Position    time.Duration
	Volume      float64

	Capabilities Capabilities
}

// Artist joins all credited artists.
func (s Snapshot) Artist() string {
	return strings.Join(s.Artists, ", ")
}

// Source lists the players currently visible on the desktop.
type Source interface {
	// Snapshots returns one snapshot per running player. A player missing
	// from the result has gone away.
	Snapshots(ctx context.Context) ([]Snapshot, error)

	// Close releases the connection to the player bus.
	Close() error
}

// normalizeLength truncates d to whole seconds.
func normalizeLength(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}
