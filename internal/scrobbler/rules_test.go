package scrobbler

import (
	"errors"
	"testing"
	"time"
)

func TestShouldScrobble(t *testing.T) {
	tests := []struct {
		name           string
		trackDuration  time.Duration
		playedDuration time.Duration
		want           bool
	}{
		{"track too short (29 seconds)", 29 * time.Second, 29 * time.Second, false},
		{"30 second track, played 15 seconds (50%)", 30 * time.Second, 15 * time.Second, true},
		{"30 second track, played 14 seconds", 30 * time.Second, 14 * time.Second, false},
		{"3 minute track, played 90 seconds", 3 * time.Minute, 90 * time.Second, true},
		{"3 minute track, played 89 seconds", 3 * time.Minute, 89 * time.Second, false},
		{"10 minute track, played 4 minutes (capped)", 10 * time.Minute, 4 * time.Minute, true},
		{"10 minute track, played 3:59", 10 * time.Minute, 239 * time.Second, false},
		{"zero length", 0, time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldScrobble(tt.trackDuration, tt.playedDuration); got != tt.want {
				t.Errorf("ShouldScrobble(%v, %v) = %v, want %v", tt.trackDuration, tt.playedDuration, got, tt.want)
			}
		})
	}
}

func TestScrobbleThreshold(t *testing.T) {
	tests := []struct {
		trackDuration time.Duration
		want          time.Duration
	}{
		{200 * time.Second, 100 * time.Second},
		{8 * time.Minute, 4 * time.Minute},
		{20 * time.Minute, 4 * time.Minute},
		{20 * time.Second, 10 * time.Second},
		{0, 0},
		{-5 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.trackDuration.String(), func(t *testing.T) {
			if got := ScrobbleThreshold(tt.trackDuration); got != tt.want {
				t.Errorf("ScrobbleThreshold(%v) = %v, want %v", tt.trackDuration, got, tt.want)
			}
		})
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name      string
		record    Record
		wantField string
	}{
		{"valid", Record{Title: "T", Artist: "A", Length: time.Second}, ""},
		{"missing title", Record{Artist: "A", Length: time.Second}, "title"},
		{"missing artist", Record{Title: "T", Length: time.Second}, "artist"},
		{"zero length", Record{Title: "T", Artist: "A"}, "length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !tt.record.Valid() {
					t.Error("Valid() = false for a valid record")
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", verr.Field, tt.wantField)
			}
			if tt.record.Valid() {
				t.Error("Valid() = true for an invalid record")
			}
		})
	}
}

func TestRecordNowPlayingEligible(t *testing.T) {
	delay := 65 * time.Second
	tests := []struct {
		name     string
		position time.Duration
		length   time.Duration
		want     bool
	}{
		{"start of track", 0, 200 * time.Second, true},
		{"exactly fits", 135 * time.Second, 200 * time.Second, true},
		{"past the end", 136 * time.Second, 200 * time.Second, false},
		{"shorter than delay", 0, 60 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Title: "T", Artist: "A", Length: tt.length, Position: tt.position}
			if got := r.NowPlayingEligible(delay); got != tt.want {
				t.Errorf("NowPlayingEligible() = %v, want %v", got, tt.want)
			}
		})
	}

	invalid := Record{Artist: "A", Length: 200 * time.Second}
	if invalid.NowPlayingEligible(delay) {
		t.Error("invalid record must never be now-playing eligible")
	}
}

func TestRecordScrobbleEligible(t *testing.T) {
	r := Record{Title: "T", Artist: "A", Length: 200 * time.Second}

	r.PlayTime = 99 * time.Second
	if r.ScrobbleEligible() {
		t.Error("99s of a 200s track must not be eligible")
	}

	r.PlayTime = 100 * time.Second
	if !r.ScrobbleEligible() {
		t.Error("100s of a 200s track must be eligible")
	}

	short := Record{Title: "T", Artist: "A", Length: 29 * time.Second, PlayTime: time.Hour}
	if short.ScrobbleEligible() {
		t.Error("tracks under 30s must never be eligible")
	}
}

func TestRecordConversion(t *testing.T) {
	r := Record{
		Title:       "Yesterday",
		Artist:      "The Beatles",
		Album:       "Help!",
		TrackNumber: 13,
		Length:      125 * time.Second,
		StartTime:   time.Unix(1700000000, 0),
	}

	s := r.Scrobble()
	if s.Track.Track != "Yesterday" || s.Track.Artist != "The Beatles" || s.Track.Album != "Help!" {
		t.Errorf("unexpected track %+v", s.Track)
	}
	if s.Track.Duration != 125 || s.Track.TrackNumber != 13 {
		t.Errorf("unexpected duration/number %+v", s.Track)
	}
	if !s.Timestamp.Equal(r.StartTime) {
		t.Errorf("timestamp = %v, want %v", s.Timestamp, r.StartTime)
	}

	other := r
	other.PlayTime = time.Minute
	if !r.SameTrack(other) {
		t.Error("play progress must not affect track identity")
	}
	other.Album = "Anthology"
	if r.SameTrack(other) {
		t.Error("different album must be a different track")
	}
}

func BenchmarkShouldScrobble(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ShouldScrobble(3*time.Minute, 90*time.Second)
	}
}
