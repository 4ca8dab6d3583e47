package scrobbler

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
)

func TestNewAuthorizer(t *testing.T) {
	_, err := NewAuthorizer(Credentials{Endpoint: audioscrobbler.LastFM, APIKey: "k"}, nil)
	if err == nil {
		t.Fatal("expected error without a secret")
	}

	a, err := NewAuthorizer(Credentials{Endpoint: audioscrobbler.LibreFM, APIKey: "k", Secret: "s"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected non-nil authorizer")
	}
}

func TestAuthorizerFlow(t *testing.T) {
	svc := newFakeService(t, func(method string) string {
		switch method {
		case audioscrobbler.MethodGetToken:
			return `{"token":"tok"}`
		case audioscrobbler.MethodGetSession:
			return `{"session":{"name":"alice","key":"sk-1","subscriber":0}}`
		}
		return `{"error":3,"message":"Invalid Method"}`
	})

	creds := svc.creds(audioscrobbler.LibreFM)
	creds.SessionKey = ""
	a, err := NewAuthorizer(creds, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, authURL, err := a.RequestToken(context.Background())
	if err != nil {
		t.Fatalf("RequestToken failed: %v", err)
	}
	if token != "tok" {
		t.Errorf("token = %q, want tok", token)
	}

	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("bad auth url %q: %v", authURL, err)
	}
	if u.Host != "libre.fm" || u.Query().Get("token") != "tok" || u.Query().Get("api_key") != "k" {
		t.Errorf("unexpected auth url %s", authURL)
	}

	got, err := a.Exchange(context.Background(), token)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if got.SessionKey != "sk-1" || got.UserName != "alice" || !got.Usable() {
		t.Errorf("unexpected credentials %+v", got)
	}
}

func TestAuthorizerExchangeUnauthorized(t *testing.T) {
	svc := newFakeService(t, always(`{"error":14,"message":"Unauthorized Token"}`))
	creds := svc.creds(audioscrobbler.LastFM)
	creds.SessionKey = ""

	a, err := NewAuthorizer(creds, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := a.Exchange(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, &audioscrobbler.Error{Code: audioscrobbler.ErrCodeUnauthorizedToken}) {
		t.Errorf("expected unauthorized token error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to get session") {
		t.Errorf("unexpected error text %q", err)
	}
	if got.SessionKey != "" {
		t.Errorf("session key must stay empty, got %q", got.SessionKey)
	}
}
