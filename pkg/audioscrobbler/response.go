package audioscrobbler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// flexInt decodes numbers that the services send either as JSON numbers
// or as numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// textNode decodes either a plain string or an object of the form
// {"#text": "...", "corrected": "0"}.
type textNode struct {
	Text string
}

func (t *textNode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.Text)
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var node struct {
		Text string `json:"#text"`
	}
	if err := json.Unmarshal(b, &node); err != nil {
		return err
	}
	t.Text = node.Text
	return nil
}

type ignoredNode struct {
	Code flexInt `json:"code"`
	Text string  `json:"#text"`
}

func (n ignoredNode) message() IgnoredMessage {
	return IgnoredMessage{Code: int(n.Code), Text: n.Text}
}

type errorDocument struct {
	Error   *flexInt `json:"error"`
	Message string   `json:"message"`
}

// decodeError returns the error carried by an error document, or nil if
// data is not one.
func decodeError(data []byte) *Error {
	var doc errorDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Error == nil {
		return nil
	}
	return &Error{Code: int(*doc.Error), Message: doc.Message}
}

func parseToken(data []byte) (*Token, error) {
	var doc struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Method: MethodGetToken, Body: data, Err: err}
	}
	if doc.Token == "" {
		return nil, &ParseError{Method: MethodGetToken, Body: data, Err: errors.New("missing token")}
	}
	return &Token{Token: doc.Token}, nil
}

func parseSession(data []byte) (*Session, error) {
	var doc struct {
		Session *struct {
			Name       string  `json:"name"`
			Key        string  `json:"key"`
			Subscriber flexInt `json:"subscriber"`
		} `json:"session"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Method: MethodGetSession, Body: data, Err: err}
	}
	if doc.Session == nil || doc.Session.Key == "" {
		return nil, &ParseError{Method: MethodGetSession, Body: data, Err: errors.New("missing session key")}
	}
	return &Session{
		Key:        doc.Session.Key,
		Username:   doc.Session.Name,
		Subscriber: doc.Session.Subscriber != 0,
	}, nil
}

func parseNowPlaying(data []byte) (*NowPlayingResponse, error) {
	var doc struct {
		NowPlaying *struct {
			Artist         textNode    `json:"artist"`
			Track          textNode    `json:"track"`
			Album          textNode    `json:"album"`
			AlbumArtist    textNode    `json:"albumArtist"`
			IgnoredMessage ignoredNode `json:"ignoredMessage"`
		} `json:"nowplaying"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Method: MethodNowPlaying, Body: data, Err: err}
	}
	if doc.NowPlaying == nil {
		return nil, &ParseError{Method: MethodNowPlaying, Body: data, Err: errors.New("missing nowplaying element")}
	}
	np := doc.NowPlaying
	return &NowPlayingResponse{
		Artist:         np.Artist.Text,
		Track:          np.Track.Text,
		Album:          np.Album.Text,
		AlbumArtist:    np.AlbumArtist.Text,
		IgnoredMessage: np.IgnoredMessage.message(),
	}, nil
}

type scrobbleNode struct {
	Artist         textNode    `json:"artist"`
	Track          textNode    `json:"track"`
	Album          textNode    `json:"album"`
	Timestamp      flexInt     `json:"timestamp"`
	IgnoredMessage ignoredNode `json:"ignoredMessage"`
}

func parseScrobbles(data []byte) (*ScrobbleResponse, error) {
	var doc struct {
		Scrobbles *struct {
			Scrobble json.RawMessage `json:"scrobble"`
			Attr     struct {
				Accepted flexInt `json:"accepted"`
				Ignored  flexInt `json:"ignored"`
			} `json:"@attr"`
		} `json:"scrobbles"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Method: MethodScrobble, Body: data, Err: err}
	}
	if doc.Scrobbles == nil {
		return nil, &ParseError{Method: MethodScrobble, Body: data, Err: errors.New("missing scrobbles element")}
	}

	// A batch of one comes back as a bare object instead of an array.
	var nodes []scrobbleNode
	raw := bytes.TrimSpace(doc.Scrobbles.Scrobble)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &nodes); err != nil {
			return nil, &ParseError{Method: MethodScrobble, Body: data, Err: err}
		}
	default:
		var node scrobbleNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, &ParseError{Method: MethodScrobble, Body: data, Err: err}
		}
		nodes = append(nodes, node)
	}

	resp := &ScrobbleResponse{
		Accepted:  int(doc.Scrobbles.Attr.Accepted),
		Ignored:   int(doc.Scrobbles.Attr.Ignored),
		Scrobbles: make([]ScrobbleResult, len(nodes)),
	}
	for i, n := range nodes {
		resp.Scrobbles[i] = ScrobbleResult{
			Artist:         n.Artist.Text,
			Track:          n.Track.Text,
			Album:          n.Album.Text,
			Timestamp:      int64(n.Timestamp),
			IgnoredMessage: n.IgnoredMessage.message(),
		}
	}
	return resp, nil
}
