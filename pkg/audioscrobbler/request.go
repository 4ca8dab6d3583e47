package audioscrobbler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// API method names.
const (
	MethodGetToken   = "auth.getToken"
	MethodGetSession = "auth.getSession"
	MethodNowPlaying = "track.updateNowPlaying"
	MethodScrobble   = "track.scrobble"
)

const (
	// MaxBatchSize is the maximum number of scrobbles allowed in a single batch.
	MaxBatchSize = 50

	responseFormat = "json"
)

// Request is a fully built, signed API call. Building a request performs
// no I/O; Client.Do sends it.
type Request struct {
	Method    string // API method, e.g. "track.scrobble"
	Verb      string // HTTP verb
	URL       string // API root
	Params    Params // signed fields, including api_sig
	Signature string
}

// Query returns the encoded query string. Read methods carry every field
// in the query; write methods only carry the response format.
func (r *Request) Query() string {
	format := Params{{Key: "format", Value: responseFormat}}
	if r.Verb == http.MethodGet {
		return append(append(Params{}, r.Params...), format...).Encode()
	}
	return format.Encode()
}

// Body returns the form-encoded body for write methods, or "" for reads.
func (r *Request) Body() string {
	if r.Verb != http.MethodPost {
		return ""
	}
	return r.Params.Encode()
}

// FullURL returns the URL including the query string.
func (r *Request) FullURL() string {
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Query()
}

func newRequest(baseURL, method, verb string, creds Credentials, fields Params) (*Request, error) {
	if creds.APIKey == "" || creds.Secret == "" {
		return nil, fmt.Errorf("%w: api key and secret are required", ErrInvalidConfig)
	}

	params := make(Params, 0, len(fields)+3)
	params = append(params, Param{Key: "method", Value: method})
	params = append(params, Param{Key: "api_key", Value: creds.APIKey})
	params = append(params, fields...)

	sig := Sign(params, creds.Secret)
	params = append(params, Param{Key: "api_sig", Value: sig})

	return &Request{
		Method:    method,
		Verb:      verb,
		URL:       baseURL,
		Params:    params,
		Signature: sig,
	}, nil
}

// NewGetTokenRequest builds an auth.getToken call.
func NewGetTokenRequest(baseURL string, creds Credentials) (*Request, error) {
	return newRequest(baseURL, MethodGetToken, http.MethodGet, creds, nil)
}

// NewGetSessionRequest builds an auth.getSession call exchanging an
// authorized token for a session key.
func NewGetSessionRequest(baseURL string, creds Credentials, token string) (*Request, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	return newRequest(baseURL, MethodGetSession, http.MethodGet, creds, Params{{Key: "token", Value: token}})
}

// NewNowPlayingRequest builds a track.updateNowPlaying call.
func NewNowPlayingRequest(baseURL string, creds Credentials, track Track) (*Request, error) {
	if creds.SessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if err := track.validate(); err != nil {
		return nil, err
	}

	fields := Params{
		{Key: "artist", Value: track.Artist},
		{Key: "track", Value: track.Track},
		{Key: "album", Value: track.Album},
	}
	if track.AlbumArtist != "" {
		fields = append(fields, Param{Key: "albumArtist", Value: track.AlbumArtist})
	}
	if track.Duration > 0 {
		fields = append(fields, Param{Key: "duration", Value: strconv.Itoa(track.Duration)})
	}
	if track.TrackNumber > 0 {
		fields = append(fields, Param{Key: "trackNumber", Value: strconv.Itoa(track.TrackNumber)})
	}
	fields = append(fields, Param{Key: "sk", Value: creds.SessionKey})

	return newRequest(baseURL, MethodNowPlaying, http.MethodPost, creds, fields)
}

// NewScrobbleRequest builds a track.scrobble call for up to MaxBatchSize
// plays. Every play contributes artist, track, album and timestamp fields
// at its index, plus duration when known.
func NewScrobbleRequest(baseURL string, creds Credentials, scrobbles []Scrobble) (*Request, error) {
	if creds.SessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if len(scrobbles) == 0 {
		return nil, fmt.Errorf("%w: empty scrobble batch", ErrInvalidRequest)
	}
	if len(scrobbles) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds %d", ErrInvalidRequest, len(scrobbles), MaxBatchSize)
	}

	fields := make(Params, 0, len(scrobbles)*5+1)
	for i, s := range scrobbles {
		if err := s.Track.validate(); err != nil {
			return nil, fmt.Errorf("scrobble %d: %w", i, err)
		}
		idx := "[" + strconv.Itoa(i) + "]"
		fields = append(fields,
			Param{Key: "artist" + idx, Value: s.Track.Artist},
			Param{Key: "track" + idx, Value: s.Track.Track},
			Param{Key: "album" + idx, Value: s.Track.Album},
			Param{Key: "timestamp" + idx, Value: strconv.FormatInt(s.Timestamp.Unix(), 10)},
		)
		if s.Track.Duration > 0 {
			fields = append(fields, Param{Key: "duration" + idx, Value: strconv.Itoa(s.Track.Duration)})
		}
	}
	fields = append(fields, Param{Key: "sk", Value: creds.SessionKey})

	return newRequest(baseURL, MethodScrobble, http.MethodPost, creds, fields)
}
