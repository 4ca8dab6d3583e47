package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// musicPlayer is the identity reported for Apple Music.
const musicPlayer = "Music"

// fieldSep separates the values printed by snapshotScript.
const fieldSep = "|||"

// snapshotScript checks if Music is running and reads the current track in
// a single osascript call.
const snapshotScript = `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	set vol to sound volume
	if player state is stopped then
		return "stopped|||" & vol
	else
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackAlbumArtist to album artist of current track
		set trackNumber to track number of current track
		set trackDuration to duration of current track
		set playerPos to player position
		set playerState to player state as string

		return trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackAlbumArtist & "|||" & trackNumber & "|||" & trackDuration & "|||" & playerPos & "|||" & playerState & "|||" & vol
	end if
end tell`

// AppleScriptSource reads Apple Music through osascript.
type AppleScriptSource struct {
	run func(ctx context.Context, script string) ([]byte, error)
}

// NewAppleScriptSource creates a source backed by osascript.
func NewAppleScriptSource() *AppleScriptSource {
	return &AppleScriptSource{run: osascript}
}

func osascript(ctx context.Context, script string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("osascript error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to execute osascript: %w", err)
	}
	return output, nil
}

// Snapshots returns the Music app as the only player, or nothing when the
// app is not running.
func (c *AppleScriptSource) Snapshots(ctx context.Context) ([]Snapshot, error) {
	output, err := c.run(ctx, snapshotScript)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(string(output))
	if result == "not_running" {
		return nil, nil
	}

	snap, err := parseTrackOutput(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track output: %w", err)
	}
	return []Snapshot{snap}, nil
}

// Close is a no-op; every poll spawns its own process.
func (c *AppleScriptSource) Close() error {
	return nil
}

// parseTrackOutput parses the delimited output of snapshotScript.
func parseTrackOutput(output string) (Snapshot, error) {
	parts := strings.Split(output, fieldSep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	snap := Snapshot{
		Player: musicPlayer,
		Capabilities: Capabilities{
			CanControl:    true,
			CanPlay:       true,
			CanPause:      true,
			CanSeek:       true,
			CanGoNext:     true,
			CanGoPrevious: true,
		},
	}

	if len(parts) == 2 && parts[0] == "stopped" {
		vol, err := parseVolume(parts[1])
		if err != nil {
			return Snapshot{}, err
		}
		snap.Status = StatusStopped
		snap.Volume = vol
		return snap, nil
	}

	if len(parts) != 9 {
		return Snapshot{}, fmt.Errorf("expected 9 parts, got %d: %q", len(parts), output)
	}

	durationSec, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse duration %q: %w", parts[5], err)
	}
	positionSec, err := strconv.ParseFloat(parts[6], 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse position %q: %w", parts[6], err)
	}

	switch parts[7] {
	case "playing":
		snap.Status = StatusPlaying
	case "paused":
		snap.Status = StatusPaused
	case "stopped":
		snap.Status = StatusStopped
	default:
		return Snapshot{}, fmt.Errorf("unknown player state: %q", parts[7])
	}

	vol, err := parseVolume(parts[8])
	if err != nil {
		return Snapshot{}, err
	}

	// Music reports 0 when the track number is unset
	number, _ := strconv.Atoi(parts[4])

	snap.Title = parts[0]
	if parts[1] != "" {
		snap.Artists = []string{parts[1]}
	}
	snap.Album = parts[2]
	snap.AlbumArtist = parts[3]
	snap.TrackNumber = number
	snap.Length = normalizeLength(secondsToDuration(durationSec))
	snap.Position = secondsToDuration(positionSec)
	snap.Volume = vol
	return snap, nil
}

// parseVolume converts Music's 0-100 sound volume to 0.0-1.0.
func parseVolume(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse volume %q: %w", s, err)
	}
	return v / 100, nil
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
