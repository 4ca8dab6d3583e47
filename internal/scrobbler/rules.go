package scrobbler

import (
	"fmt"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
)

// Scrobbling rules constants
const (
	// MinimumTrackDuration is the minimum track length required for scrobbling (30 seconds)
	MinimumTrackDuration = 30 * time.Second

	// ScrobblePercentage is the share of the track that must be played (50%)
	ScrobblePercentage = 0.5

	// MaxScrobbleThreshold is the maximum time that needs to be played (4 minutes)
	MaxScrobbleThreshold = 4 * time.Minute
)

// Record is one play of one track on one player.
type Record struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	TrackNumber int
	Length      time.Duration // whole seconds
	StartTime   time.Time     // when the play started; the scrobble timestamp
	PlayTime    time.Duration // accumulated time spent playing
	Position    time.Duration // now-playing cursor
	Scrobbled   bool          // already handed to the submission queue

	// Targets lists the endpoints that still owe this record after a
	// partial failure. Empty means every usable endpoint.
	Targets []audioscrobbler.Endpoint
}

// ValidationError reports a record that can never be submitted.
type ValidationError struct {
	Field  string
	Record string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record %q: missing %s", e.Record, e.Field)
}

// Validate returns a *ValidationError naming the first missing field.
func (r Record) Validate() error {
	switch {
	case r.Title == "":
		return &ValidationError{Field: "title", Record: r.String()}
	case r.Artist == "":
		return &ValidationError{Field: "artist", Record: r.String()}
	case r.Length <= 0:
		return &ValidationError{Field: "length", Record: r.String()}
	}
	return nil
}

// Valid reports whether r has a title, an artist and a positive length.
func (r Record) Valid() bool {
	return r.Validate() == nil
}

// NowPlayingEligible reports whether another now-playing refresh of delay
// still fits inside the track.
func (r Record) NowPlayingEligible(delay time.Duration) bool {
	return r.Valid() && r.Position+delay <= r.Length
}

// ScrobbleEligible reports whether r has been played long enough to count.
func (r Record) ScrobbleEligible() bool {
	return r.Valid() && ShouldScrobble(r.Length, r.PlayTime)
}

// SameTrack compares track identity, ignoring play progress.
func (r Record) SameTrack(o Record) bool {
	return r.Title == o.Title && r.Artist == o.Artist && r.Album == o.Album
}

func (r Record) String() string {
	return r.Artist + " - " + r.Title
}

// Track converts r to the wire representation.
func (r Record) Track() audioscrobbler.Track {
	return audioscrobbler.Track{
		Artist:      r.Artist,
		Track:       r.Title,
		Album:       r.Album,
		AlbumArtist: r.AlbumArtist,
		Duration:    int(r.Length / time.Second),
		TrackNumber: r.TrackNumber,
	}
}

// Scrobble converts r to a timestamped play.
func (r Record) Scrobble() audioscrobbler.Scrobble {
	return audioscrobbler.Scrobble{Track: r.Track(), Timestamp: r.StartTime}
}

// owedTo reports whether r still has to be sent to e.
func (r Record) owedTo(e audioscrobbler.Endpoint) bool {
	if len(r.Targets) == 0 {
		return true
	}
	for _, t := range r.Targets {
		if t == e {
			return true
		}
	}
	return false
}

// ShouldScrobble determines if a track should be scrobbled:
// 1. Track must be at least 30 seconds long
// 2. Track must have been played for at least 50% of its duration OR 4 minutes, whichever comes first
func ShouldScrobble(trackDuration, playedDuration time.Duration) bool {
	if !IsEligible(trackDuration) {
		return false
	}
	return playedDuration >= ScrobbleThreshold(trackDuration)
}

// ScrobbleThreshold returns the play time after which a track counts:
// half its length, capped at 4 minutes and floored at zero.
func ScrobbleThreshold(trackDuration time.Duration) time.Duration {
	threshold := time.Duration(float64(trackDuration) * ScrobblePercentage)
	if threshold > MaxScrobbleThreshold {
		threshold = MaxScrobbleThreshold
	}
	if threshold < 0 {
		threshold = 0
	}
	return threshold
}

// IsEligible checks if a track is long enough to ever be scrobbled.
func IsEligible(trackDuration time.Duration) bool {
	return trackDuration >= MinimumTrackDuration
}
