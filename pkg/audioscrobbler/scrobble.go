package audioscrobbler

import (
	"context"
	"time"
)

// ScrobbleService provides the track.* operations.
type ScrobbleService struct {
	client *Client
}

// UpdateNowPlaying tells the service which track is playing. It does not
// count as a scrobble and does not affect play counts.
//
// Example:
//
//	track := audioscrobbler.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	    Album:  "Help!",
//	}
//	_, err := client.Scrobble().UpdateNowPlaying(ctx, creds, track)
//	if err != nil {
//	    log.Printf("Failed to update now playing: %v", err)
//	}
func (s *ScrobbleService) UpdateNowPlaying(ctx context.Context, creds Credentials, track Track) (*NowPlayingResponse, error) {
	req, err := NewNowPlayingRequest(s.client.baseURL, creds, track)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseNowPlaying(resp.Body)
}

// Scrobble submits a single play.
func (s *ScrobbleService) Scrobble(ctx context.Context, creds Credentials, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return s.ScrobbleBatch(ctx, creds, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize plays in one request.
//
// A response with Ignored > 0 is still a success; the per-play
// IgnoredMessage says why the service filtered a play.
func (s *ScrobbleService) ScrobbleBatch(ctx context.Context, creds Credentials, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	req, err := NewScrobbleRequest(s.client.baseURL, creds, scrobbles)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseScrobbles(resp.Body)
}
