package scrobbler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
)

// Authorizer walks one account through the desktop token flow.
type Authorizer struct {
	creds  Credentials
	client *audioscrobbler.Client
}

// NewAuthorizer creates an authorizer for c. httpClient may be nil.
func NewAuthorizer(c Credentials, httpClient *http.Client) (*Authorizer, error) {
	if c.APIKey == "" || c.Secret == "" {
		return nil, fmt.Errorf("%s: api key and secret are required", c.Endpoint)
	}
	client, err := audioscrobbler.NewClient(audioscrobbler.Config{
		Endpoint:   c.Endpoint,
		BaseURL:    c.BaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &Authorizer{creds: c, client: client}, nil
}

// RequestToken fetches a new request token and returns it together with
// the URL the user must visit to authorize it.
func (a *Authorizer) RequestToken(ctx context.Context) (token string, authURL string, err error) {
	tok, err := a.client.Auth().GetToken(ctx, a.creds.api())
	if err != nil {
		return "", "", fmt.Errorf("failed to get auth token: %w", err)
	}
	return tok.Token, a.client.Auth().AuthURL(a.creds.APIKey, tok.Token), nil
}

// Exchange trades an authorized token for a session key and returns the
// updated credentials.
func (a *Authorizer) Exchange(ctx context.Context, token string) (Credentials, error) {
	session, err := a.client.Auth().GetSession(ctx, a.creds.api(), token)
	if err != nil {
		return a.creds, fmt.Errorf("failed to get session: %w", err)
	}

	c := a.creds
	c.SessionKey = session.Key
	c.UserName = session.Username
	c.Token = ""
	c.Enabled = true
	c.Authenticated = true
	a.creds = c
	return c, nil
}
