package audioscrobbler

import (
	"strings"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		secret string
		want   string
	}{
		{
			name: "get token",
			params: Params{
				{Key: "method", Value: "auth.getToken"},
				{Key: "api_key", Value: "k"},
			},
			secret: "s",
			want:   "fcb68e4c03131d77e8851e889687a441",
		},
		{
			name: "get session",
			params: Params{
				{Key: "token", Value: "tok"},
				{Key: "method", Value: "auth.getSession"},
				{Key: "api_key", Value: "k"},
			},
			secret: "s",
			want:   "b7180ac50820980572d9b52c1e4a4946",
		},
		{
			name: "format and api_sig are ignored",
			params: Params{
				{Key: "method", Value: "auth.getToken"},
				{Key: "format", Value: "json"},
				{Key: "api_key", Value: "k"},
				{Key: "api_sig", Value: "stale"},
			},
			secret: "s",
			want:   "fcb68e4c03131d77e8851e889687a441",
		},
		{
			name: "indexed keys keep index order",
			params: Params{
				{Key: "artist[10]", Value: "Y"},
				{Key: "artist[2]", Value: "X"},
			},
			secret: "s",
			want:   "8527ccafe229fd6364bf632fa7cdb529",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sign(tt.params, tt.secret); got != tt.want {
				t.Errorf("Sign() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSignDoesNotReorderInput(t *testing.T) {
	params := Params{
		{Key: "track", Value: "T"},
		{Key: "artist", Value: "A"},
	}
	Sign(params, "s")
	if params[0].Key != "track" || params[1].Key != "artist" {
		t.Errorf("Sign() modified its input: %v", params)
	}
}

func TestParamsCanonical(t *testing.T) {
	params := Params{
		{Key: "track[1]", Value: "b"},
		{Key: "sk", Value: "x"},
		{Key: "artist[10]", Value: "j"},
		{Key: "track[0]", Value: "a"},
		{Key: "artist[9]", Value: "i"},
		{Key: "album", Value: ""},
		{Key: "albumArtist", Value: ""},
	}

	var keys []string
	for _, kv := range params.Canonical() {
		keys = append(keys, kv.Key)
	}

	want := "album albumArtist artist[9] artist[10] sk track[0] track[1]"
	if got := strings.Join(keys, " "); got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestSplitIndex(t *testing.T) {
	tests := []struct {
		key      string
		wantBase string
		wantIdx  int
	}{
		{"artist[3]", "artist", 3},
		{"timestamp[12]", "timestamp", 12},
		{"sk", "sk", -1},
		{"weird[x]", "weird[x]", -1},
		{"[1]", "[1]", -1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			base, idx := splitIndex(tt.key)
			if base != tt.wantBase || idx != tt.wantIdx {
				t.Errorf("splitIndex(%q) = (%q, %d), want (%q, %d)", tt.key, base, idx, tt.wantBase, tt.wantIdx)
			}
		})
	}
}

func TestParamsEncode(t *testing.T) {
	params := Params{
		{Key: "artist[0]", Value: "Simon & Garfunkel"},
		{Key: "track[0]", Value: "The Boxer"},
	}
	want := "artist%5B0%5D=Simon+%26+Garfunkel&track%5B0%5D=The+Boxer"
	if got := params.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestParamsSet(t *testing.T) {
	var p Params
	p.Set("a", "1")
	p.Set("b", "2")
	p.Set("a", "3")

	if len(p) != 2 {
		t.Fatalf("expected 2 params, got %d", len(p))
	}
	if got := p.Get("a"); got != "3" {
		t.Errorf("Get(a) = %q, want 3", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

// The reference play: api_key=k, secret=s, sk=sk, artist=A, track=T,
// length 200, started at 1700000000.
func TestScrobbleRequestReferenceSignature(t *testing.T) {
	creds := Credentials{APIKey: "k", Secret: "s", SessionKey: "sk"}
	plays := []Scrobble{{
		Track:     Track{Artist: "A", Track: "T", Duration: 200},
		Timestamp: time.Unix(1700000000, 0),
	}}

	req, err := NewScrobbleRequest("https://example.invalid/2.0/", creds, plays)
	if err != nil {
		t.Fatalf("NewScrobbleRequest() error = %v", err)
	}

	const want = "a2353b02ab801a4faf95a898ba64d3b6"
	if req.Signature != want {
		t.Errorf("signature = %s, want %s", req.Signature, want)
	}
	if got := req.Params.Get("api_sig"); got != want {
		t.Errorf("api_sig param = %s, want %s", got, want)
	}

	for _, key := range []string{"artist[0]", "track[0]", "album[0]", "timestamp[0]", "duration[0]"} {
		found := false
		for _, kv := range req.Params {
			if kv.Key == key {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s", key)
		}
	}
	if req.Params.Get("artist[1]") != "" {
		t.Error("expected exactly one indexed entry")
	}
}
