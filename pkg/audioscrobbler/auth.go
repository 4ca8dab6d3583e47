package audioscrobbler

import (
	"context"
	"net/url"
)

// AuthService provides the desktop authentication flow.
type AuthService struct {
	client *Client
}

// GetToken requests an unauthorized request token.
//
// This is the first step in the authentication flow. After obtaining a token,
// the user must authorize it by visiting the URL returned by AuthURL.
//
// Example:
//
//	token, err := client.Auth().GetToken(ctx, creds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Visit:", client.Auth().AuthURL(creds.APIKey, token.Token))
func (a *AuthService) GetToken(ctx context.Context, creds Credentials) (*Token, error) {
	req, err := NewGetTokenRequest(a.client.baseURL, creds)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseToken(resp.Body)
}

// AuthURL returns the URL where users authorize the token.
func (a *AuthService) AuthURL(apiKey, token string) string {
	base := a.client.endpoint.AuthURL()
	if base == "" {
		base = endpoints[LastFM].authURL
	}
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("token", token)
	return base + "?" + q.Encode()
}

// GetSession exchanges an authorized token for a session key.
//
// The session key does not expire and should be stored for all future
// track.* calls. Errors 14 and 15 mean the token was never authorized or
// has expired; a new token is needed.
func (a *AuthService) GetSession(ctx context.Context, creds Credentials, token string) (*Session, error) {
	req, err := NewGetSessionRequest(a.client.baseURL, creds, token)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseSession(resp.Body)
}
