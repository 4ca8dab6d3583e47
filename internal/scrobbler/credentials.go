package scrobbler

import (
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
)

// Credentials is the per-endpoint account state.
type Credentials struct {
	Endpoint      audioscrobbler.Endpoint
	Enabled       bool
	Authenticated bool

	APIKey     string
	Secret     string
	SessionKey string
	Token      string // authorized request token awaiting exchange
	UserName   string
	BaseURL    string // optional override of the endpoint's API root
}

// Usable reports whether plays may be sent with c.
func (c Credentials) Usable() bool {
	return c.Enabled && c.Authenticated && c.SessionKey != ""
}

// NeedsSession reports whether c holds a token that still has to be
// exchanged for a session key.
func (c Credentials) NeedsSession() bool {
	return c.Enabled && c.Token != "" && c.SessionKey == ""
}

func (c Credentials) api() audioscrobbler.Credentials {
	return audioscrobbler.Credentials{
		APIKey:     c.APIKey,
		Secret:     c.Secret,
		SessionKey: c.SessionKey,
	}
}

// credentialTable is keyed by endpoint so reloads can never shift entries
// between services.
type credentialTable map[audioscrobbler.Endpoint]*Credentials

func newCredentialTable(list []Credentials) credentialTable {
	table := make(credentialTable, len(list))
	for _, c := range list {
		if !c.Endpoint.Valid() {
			continue
		}
		c := c
		c.Authenticated = c.SessionKey != ""
		table[c.Endpoint] = &c
	}
	return table
}

// ordered returns the entries in a stable endpoint order.
func (t credentialTable) ordered() []*Credentials {
	var out []*Credentials
	for _, e := range audioscrobbler.Endpoints() {
		if c, ok := t[e]; ok {
			out = append(out, c)
		}
	}
	return out
}
