// Package audioscrobbler provides a client for the audioscrobbler 2.0 API
// as served by Last.fm, Libre.fm and the ListenBrainz compatibility proxy.
//
// The client holds no authentication state. Every call receives the
// Credentials it should sign with, so one client can be shared by callers
// that rotate or reload keys.
//
// Example usage:
//
//	import "github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
//
//	client, err := audioscrobbler.NewClient(audioscrobbler.Config{
//	    Endpoint: audioscrobbler.LastFM,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	creds := audioscrobbler.Credentials{APIKey: "key", Secret: "secret"}
//	token, err := client.Auth().GetToken(ctx, creds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Authorize at:", client.Auth().AuthURL(creds.APIKey, token.Token))
package audioscrobbler

import (
	"fmt"
	"net/http"
)

// Config holds client configuration.
type Config struct {
	Endpoint   Endpoint     // Required unless BaseURL is set
	BaseURL    string       // Optional: overrides the endpoint's API root (used for testing)
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	UserAgent  string       // Optional: User-Agent header value
	Logger     Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Credentials are the secrets a request is signed with. SessionKey is only
// required by the track.* methods.
type Credentials struct {
	APIKey     string
	Secret     string
	SessionKey string
}

// Client is the main entry point for audioscrobbler API operations.
type Client struct {
	endpoint   Endpoint
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     Logger

	auth     *AuthService
	scrobble *ScrobbleService
}

const defaultUserAgent = "mpris-scrobbler/1.0"

// NewClient creates a new audioscrobbler API client.
//
// Returns an error if neither a known Endpoint nor a BaseURL is configured.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if !cfg.Endpoint.Valid() {
			return nil, fmt.Errorf("%w: unknown endpoint %q", ErrInvalidConfig, cfg.Endpoint)
		}
		baseURL = cfg.Endpoint.BaseURL()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     cfg.Logger,
	}

	c.auth = &AuthService{client: c}
	c.scrobble = &ScrobbleService{client: c}

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// Scrobble returns the scrobbling service.
func (c *Client) Scrobble() *ScrobbleService {
	return c.scrobble
}

// Endpoint returns the service this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
