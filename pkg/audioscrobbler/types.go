package audioscrobbler

import (
	"fmt"
	"time"
)

// Track represents a music track for scrobbling or now playing updates.
type Track struct {
	Artist      string // Required: Artist name
	Track       string // Required: Track name
	Album       string // Optional: Album name
	AlbumArtist string // Optional: Album artist (if different from track artist)
	Duration    int    // Optional: Track duration in seconds
	TrackNumber int    // Optional: Track number on album
}

func (t Track) validate() error {
	if t.Artist == "" || t.Track == "" {
		return fmt.Errorf("%w: artist and track are required", ErrInvalidRequest)
	}
	return nil
}

// Scrobble represents a single scrobble with timestamp.
type Scrobble struct {
	Track     Track     // The track being scrobbled
	Timestamp time.Time // When the track started playing
}

// Token represents an authentication token from auth.getToken.
type Token struct {
	Token string
}

// Session represents an authenticated session from auth.getSession.
type Session struct {
	Key        string // Session key for authenticated requests
	Username   string
	Subscriber bool
}

// IgnoredMessage explains why the service ignored a play. Code 0 means it
// was not ignored.
type IgnoredMessage struct {
	Code int
	Text string
}

// NowPlayingResponse represents the response from track.updateNowPlaying.
type NowPlayingResponse struct {
	Artist         string
	Track          string
	Album          string
	AlbumArtist    string
	IgnoredMessage IgnoredMessage
}

// ScrobbleResult is the per-play outcome inside a ScrobbleResponse.
type ScrobbleResult struct {
	Artist         string
	Track          string
	Album          string
	Timestamp      int64
	IgnoredMessage IgnoredMessage
}

// ScrobbleResponse represents the response from track.scrobble.
type ScrobbleResponse struct {
	Accepted  int
	Ignored   int
	Scrobbles []ScrobbleResult
}
