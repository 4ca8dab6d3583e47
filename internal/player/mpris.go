package player

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	mprisPath dbus.ObjectPath = "/org/mpris/MediaPlayer2"

	dbusListNames = "org.freedesktop.DBus.ListNames"
	dbusGetAll    = "org.freedesktop.DBus.Properties.GetAll"
)

// MPRISSource reads players from the D-Bus session bus.
type MPRISSource struct {
	conn   *dbus.Conn
	ignore []string
}

// NewMPRISSource connects to the session bus. Players whose identity
// matches an entry of ignore are never reported.
func NewMPRISSource(ignore []string) (*MPRISSource, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRISSource{conn: conn, ignore: ignore}, nil
}

// Snapshots queries every MPRIS player on the bus, sorted by identity.
func (s *MPRISSource) Snapshots(ctx context.Context) ([]Snapshot, error) {
	var names []string
	if err := s.conn.BusObject().CallWithContext(ctx, dbusListNames, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	var out []Snapshot
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		id := strings.TrimPrefix(name, mprisPrefix)
		if Ignored(id, s.ignore) {
			continue
		}

		var props map[string]dbus.Variant
		call := s.conn.Object(name, mprisPath).CallWithContext(ctx, dbusGetAll, 0, mprisPlayerIface)
		if err := call.Store(&props); err != nil {
			// The player can exit between ListNames and GetAll
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		out = append(out, snapshotFromProperties(id, props))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out, nil
}

// Close closes the bus connection.
func (s *MPRISSource) Close() error {
	return s.conn.Close()
}

// Ignored reports whether the player id matches an ignore entry. An entry
// also matches instance suffixes, so "firefox" ignores
// "firefox.instance_1_42".
func Ignored(id string, ignore []string) bool {
	for _, p := range ignore {
		p = strings.TrimPrefix(strings.TrimSpace(p), mprisPrefix)
		if p == "" {
			continue
		}
		if strings.EqualFold(id, p) || strings.HasPrefix(strings.ToLower(id), strings.ToLower(p)+".") {
			return true
		}
	}
	return false
}

// snapshotFromProperties converts the org.mpris.MediaPlayer2.Player
// property map into a Snapshot.
func snapshotFromProperties(id string, props map[string]dbus.Variant) Snapshot {
	s := Snapshot{
		Player:   id,
		Status:   ParseStatus(variantString(props["PlaybackStatus"])),
		Volume:   variantFloat(props["Volume"]),
		Position: microseconds(variantInt(props["Position"])),
		Capabilities: Capabilities{
			CanControl:    variantBool(props["CanControl"]),
			CanPlay:       variantBool(props["CanPlay"]),
			CanPause:      variantBool(props["CanPause"]),
			CanSeek:       variantBool(props["CanSeek"]),
			CanGoNext:     variantBool(props["CanGoNext"]),
			CanGoPrevious: variantBool(props["CanGoPrevious"]),
		},
	}

	meta, _ := props["Metadata"].Value().(map[string]dbus.Variant)
	if meta == nil {
		return s
	}

	s.TrackID = variantString(meta["mpris:trackid"])
	s.Title = strings.TrimSpace(variantString(meta["xesam:title"]))
	s.Artists = variantStrings(meta["xesam:artist"])
	s.Album = strings.TrimSpace(variantString(meta["xesam:album"]))
	s.AlbumArtist = strings.Join(variantStrings(meta["xesam:albumArtist"]), ", ")
	s.TrackNumber = int(variantInt(meta["xesam:trackNumber"]))
	s.Length = normalizeLength(microseconds(variantInt(meta["mpris:length"])))
	return s
}

func microseconds(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

func variantString(v dbus.Variant) string {
	switch x := v.Value().(type) {
	case string:
		return x
	case dbus.ObjectPath:
		return string(x)
	}
	return ""
}

// variantStrings accepts both the list form and the single-string form
// some players send for xesam:artist.
func variantStrings(v dbus.Variant) []string {
	var raw []string
	switch x := v.Value().(type) {
	case []string:
		raw = x
	case string:
		raw = []string{x}
	case []interface{}:
		for _, e := range x {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func variantInt(v dbus.Variant) int64 {
	switch x := v.Value().(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case int16:
		return int64(x)
	case uint16:
		return int64(x)
	case byte:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

func variantFloat(v dbus.Variant) float64 {
	switch x := v.Value().(type) {
	case float64:
		return x
	case int64, int32, uint64, uint32:
		return float64(variantInt(v))
	}
	return 0
}

func variantBool(v dbus.Variant) bool {
	b, _ := v.Value().(bool)
	return b
}
