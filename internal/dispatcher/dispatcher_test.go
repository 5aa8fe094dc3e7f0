package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
	"github.com/jmcneish/castbridge/internal/cast/casttest"
	"github.com/jmcneish/castbridge/internal/library"
	"github.com/jmcneish/castbridge/internal/registry"
	"github.com/jmcneish/castbridge/internal/settings"
)

type fixture struct {
	dispatcher *Dispatcher
	castc      *casttest.FakeClient
}

// libraryServer serves one movie so play-media and find flows resolve.
func libraryServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := map[string]any{
			"ratingKey": "m1",
			"key":       "/library/metadata/m1",
			"type":      "movie",
			"title":     "Solar Flare",
		}
		var metadata []any
		if r.URL.Path == "/search" || strings.HasPrefix(r.URL.Path, "/library/metadata/m1") {
			metadata = []any{item}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"MediaContainer": map[string]any{"size": len(metadata), "Metadata": metadata},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	castc := casttest.NewFakeClient()
	libhttp := libraryServer(t)
	store := settings.NewMemoryStore()

	reg := registry.New(registry.Options{
		Discoverer: discovererFor("Living Room"),
		ClientFactory: func(info cast.DeviceInfo) cast.Client {
			return castc
		},
		BackendFactory: func(name, deviceName string, client cast.Client) capability.MediaCapability {
			if name != "library" {
				return nil
			}
			libclient := library.NewClient(libhttp.URL, "test-token", nil)
			return library.NewController(libclient, client, deviceName, "eng", store, nil)
		},
		AppIDs: map[string]string{library.AppID: "library"},
	})
	require.NoError(t, reg.Scan(context.Background()))

	return &fixture{
		dispatcher: New(reg, 5*time.Second, nil),
		castc:      castc,
	}
}

type staticDiscoverer []cast.DeviceInfo

func (d staticDiscoverer) Discover(ctx context.Context) ([]cast.DeviceInfo, error) {
	return d, nil
}

func discovererFor(names ...string) staticDiscoverer {
	infos := make(staticDiscoverer, len(names))
	for i, name := range names {
		infos[i] = cast.DeviceInfo{Name: name, UUID: "uuid-" + name}
	}
	return infos
}

func TestDispatchUnknownRoomIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Garage", Command: ActionPause})
	require.Empty(t, f.castc.Calls())
}

func TestDispatchUnknownActionIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: "self-destruct"})
	require.Empty(t, f.castc.Calls())
}

func TestDispatchUnknownExplicitAppIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "Living Room",
		Command: ActionOpen,
		Data:    map[string]any{"app": "teleporter"},
	})
	require.Equal(t, 0, f.castc.CallCount("LaunchApp"))
}

func TestDispatchStopSkipsNetflix(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = netflixAppID
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: ActionStop})
	require.Equal(t, 0, f.castc.CallCount("StopMedia"))
	require.Equal(t, 0, f.castc.CallCount("QuitApp"))
}

func TestDispatchPauseUsesNativeControlForForeignApps(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = "SOME-OTHER-APP"
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: ActionPause})
	require.Equal(t, 1, f.castc.CallCount("Pause"))
}

func TestDispatchSetVolume(t *testing.T) {
	t.Run("spoken level maps the 0-10 scale", func(t *testing.T) {
		f := newFixture(t)
		f.dispatcher.Dispatch(context.Background(), Envelope{
			Room:    "Living Room",
			Command: ActionSetVolume,
			Data:    map[string]any{"volume": float64(7)},
		})
		require.InDelta(t, 0.7, f.castc.CurrentStatus.Volume, 0.001)
	})

	t.Run("jump up adds a tenth", func(t *testing.T) {
		f := newFixture(t)
		f.castc.CurrentStatus.Volume = 0.5
		f.dispatcher.Dispatch(context.Background(), Envelope{
			Room:    "Living Room",
			Command: ActionSetVolume,
			Data:    map[string]any{"jump": "up"},
		})
		require.InDelta(t, 0.6, f.castc.CurrentStatus.Volume, 0.001)
	})

	t.Run("jump down clamps at zero", func(t *testing.T) {
		f := newFixture(t)
		f.castc.CurrentStatus.Volume = 0.05
		f.dispatcher.Dispatch(context.Background(), Envelope{
			Room:    "Living Room",
			Command: ActionSetVolume,
			Data:    map[string]any{"jump": "down"},
		})
		require.InDelta(t, 0, f.castc.CurrentStatus.Volume, 0.001)
	})
}

func TestDispatchMute(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: ActionMute})
	require.True(t, f.castc.CurrentStatus.Muted)

	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: ActionUnmute})
	require.False(t, f.castc.CurrentStatus.Muted)
}

func TestDispatchRewindDefaultsToStart(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = library.AppID
	f.castc.CurrentStatus.CurrentTime = 300
	f.dispatcher.Dispatch(context.Background(), Envelope{Room: "Living Room", Command: ActionRewind})
	require.Equal(t, float64(0), f.castc.CurrentStatus.CurrentTime)
}

func TestDispatchRewindBySpokenDuration(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = library.AppID
	f.castc.CurrentStatus.CurrentTime = 300
	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "Living Room",
		Command: ActionRewind,
		Data:    map[string]any{"duration": "PT1M30S"},
	})
	require.Equal(t, float64(210), f.castc.CurrentStatus.CurrentTime)
}

func TestDispatchPlayMediaEndToEndFind(t *testing.T) {
	// A find command must leave the device with the item shown but not
	// playing.
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = library.AppID
	f.castc.CurrentStatus.PlayerState = "PLAYING"

	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "living room",
		Command: ActionPlayMedia,
		Data:    map[string]any{"app": "library", "title": "Solar Flare", "type": "movie", "play": "find"},
	})

	require.Equal(t, 1, f.castc.CallCount("StopMedia"))
	msg := f.castc.LastMessage()
	require.NotNil(t, msg)
	require.Equal(t, "SHOWDETAILS", msg["type"])
	require.NotEqual(t, "PLAYING", f.castc.CurrentStatus.PlayerState)
}

func TestDispatchPlayMediaStartsPlayback(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = library.AppID

	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "Living Room",
		Command: ActionPlayMedia,
		Data:    map[string]any{"app": "library", "title": "Solar Flare", "type": "movie"},
	})

	msg := f.castc.LastMessage()
	require.NotNil(t, msg)
	require.Equal(t, "LOAD", msg["type"])
	require.Equal(t, "PLAYING", f.castc.CurrentStatus.PlayerState)
}

func TestBuildQueryPromotesMusicSlots(t *testing.T) {
	query := buildQuery(map[string]any{"song": "Night Drive"})
	require.Equal(t, "song", query.Type)
	require.Equal(t, "Night Drive", query.Title)

	query = buildQuery(map[string]any{"album": "Afterglow", "title": "ignored"})
	require.Equal(t, "album", query.Type)
	require.Equal(t, "Afterglow", query.Title)

	query = buildQuery(map[string]any{
		"tvshow":  "Deep Space",
		"type":    "episode",
		"seasnum": float64(2),
		"epnum":   float64(3),
	})
	require.Equal(t, 2, query.SeasonNumber)
	require.Equal(t, 3, query.EpisodeNumber)
}

// The voice front end sends episode and season numbers as spoken-digit
// strings, and the play slot carries the find/shuffle mode.
func TestBuildQueryReadsFrontEndSlots(t *testing.T) {
	query := buildQuery(map[string]any{
		"tvshow":  "Deep Space",
		"seasnum": "2",
		"epnum":   "14",
		"play":    "shuffle",
	})
	require.Equal(t, 2, query.SeasonNumber)
	require.Equal(t, 14, query.EpisodeNumber)
	require.Equal(t, capability.PlayModeShuffle, query.Mode)
}

func TestDispatchTranscodeLowersQuality(t *testing.T) {
	f := newFixture(t)
	f.castc.CurrentStatus.AppID = library.AppID

	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "Living Room",
		Command: ActionPlayMedia,
		Data:    map[string]any{"app": "library", "title": "Solar Flare", "type": "movie"},
	})
	require.Equal(t, "LOAD", f.castc.LastMessage()["type"])

	f.dispatcher.Dispatch(context.Background(), Envelope{
		Room:    "Living Room",
		Command: ActionTranscode,
		Data:    map[string]any{"raise_lower": "down"},
	})

	msg := f.castc.LastMessage()
	require.Equal(t, "LOAD", msg["type"])
	custom := msg["customData"].(map[string]any)
	require.Equal(t, 8000, custom["bitrate"])
}
