package audioscrobbler

import (
	"fmt"
	"strings"
)

// Endpoint identifies one audioscrobbler-compatible service.
type Endpoint string

const (
	LastFM       Endpoint = "lastfm"
	LibreFM      Endpoint = "librefm"
	ListenBrainz Endpoint = "listenbrainz"
)

type endpointInfo struct {
	label   string
	baseURL string
	authURL string
}

var endpoints = map[Endpoint]endpointInfo{
	LastFM: {
		label:   "last.fm",
		baseURL: "https://ws.audioscrobbler.com/2.0/",
		authURL: "https://www.last.fm/api/auth/",
	},
	LibreFM: {
		label:   "libre.fm",
		baseURL: "https://turtle.libre.fm/2.0/",
		authURL: "https://libre.fm/api/auth/",
	},
	ListenBrainz: {
		label:   "listenbrainz.org",
		baseURL: "https://proxy.listenbrainz.org/2.0/",
		authURL: "https://listenbrainz.org/api/auth/",
	},
}

// Endpoints returns every known endpoint in a stable order.
func Endpoints() []Endpoint {
	return []Endpoint{LastFM, LibreFM, ListenBrainz}
}

// ParseEndpoint accepts an endpoint identity or its display label.
func ParseEndpoint(s string) (Endpoint, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for e, info := range endpoints {
		if name == string(e) || name == info.label {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown endpoint %q", s)
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	_, ok := endpoints[e]
	return ok
}

// String returns the display label, e.g. "libre.fm".
func (e Endpoint) String() string {
	if info, ok := endpoints[e]; ok {
		return info.label
	}
	return string(e)
}

// BaseURL returns the API root for e.
func (e Endpoint) BaseURL() string {
	return endpoints[e].baseURL
}

// AuthURL returns the page where users authorize a request token.
func (e Endpoint) AuthURL() string {
	return endpoints[e].authURL
}
