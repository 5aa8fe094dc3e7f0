package videosearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast/casttest"
)

func newSearchServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/search":
			require.Equal(t, "test-key", r.URL.Query().Get("key"))
			require.Equal(t, "snippet", r.URL.Query().Get("part"))
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": map[string]any{"videoId": "vid-1"}, "snippet": map[string]any{"title": "First Hit"}},
					{"id": map[string]any{"videoId": "vid-2"}, "snippet": map[string]any{"title": "Second Hit"}},
					{"id": map[string]any{"videoId": "vid-3"}, "snippet": map[string]any{"title": "Third Hit"}},
				},
			})

		case r.URL.Path == "/search/movie":
			require.Equal(t, "db-key", r.URL.Query().Get("api_key"))
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"id": 42, "title": "Solar Flare"}},
			})

		case strings.HasPrefix(r.URL.Path, "/movie/42/videos"):
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"key": "clip-1", "site": "YouTube", "type": "Clip"},
					{"key": "trailer-1", "site": "YouTube", "type": "Trailer"},
				},
			})

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestController(t *testing.T, castc *casttest.FakeClient) *Controller {
	server := newSearchServer(t)
	client := NewClient(server.URL, "test-key", server.URL, "db-key", nil)
	return NewController(client, castc, nil)
}

func TestPlayItemLaunchesBestMatch(t *testing.T) {
	castc := casttest.NewFakeClient()
	ctrl := newTestController(t, castc)

	err := ctrl.PlayItem(context.Background(), capability.MediaQuery{Title: "rocket launch"})
	require.NoError(t, err)
	require.Equal(t, AppID, castc.CurrentStatus.AppID)
	require.Equal(t, "vid-1", castc.CurrentStatus.ContentID)
}

func TestNextStepsThroughCandidates(t *testing.T) {
	castc := casttest.NewFakeClient()
	ctrl := newTestController(t, castc)
	ctx := context.Background()

	require.NoError(t, ctrl.PlayItem(ctx, capability.MediaQuery{Title: "rocket launch"}))
	require.NoError(t, ctrl.Next(ctx))
	require.Equal(t, "vid-2", castc.CurrentStatus.ContentID)

	require.NoError(t, ctrl.Previous(ctx))
	require.Equal(t, "vid-1", castc.CurrentStatus.ContentID)

	// Stepping past either end is a logged no-op.
	require.NoError(t, ctrl.Previous(ctx))
	require.Equal(t, "vid-1", castc.CurrentStatus.ContentID)
}

func TestNextWithoutSearchIsNoop(t *testing.T) {
	castc := casttest.NewFakeClient()
	ctrl := newTestController(t, castc)

	require.NoError(t, ctrl.Next(context.Background()))
	require.Equal(t, 0, castc.CallCount("LaunchApp"))
}

func TestPlayTrailer(t *testing.T) {
	castc := casttest.NewFakeClient()
	ctrl := newTestController(t, castc)

	err := ctrl.PlayItem(context.Background(), capability.MediaQuery{Type: "trailer", Title: "Solar Flare"})
	require.NoError(t, err)
	require.Equal(t, "trailer-1", castc.CurrentStatus.ContentID)
}

func TestUnsupportedCapabilities(t *testing.T) {
	ctrl := newTestController(t, casttest.NewFakeClient())
	ctx := context.Background()

	require.ErrorIs(t, ctrl.Shuffle(ctx, true), capability.ErrUnsupported)
	require.ErrorIs(t, ctrl.Loop(ctx, true), capability.ErrUnsupported)
	require.ErrorIs(t, ctrl.Transcode(ctx, capability.TranscodeRequest{Quality: "low"}), capability.ErrUnsupported)
	require.ErrorIs(t, ctrl.FindItem(ctx, capability.MediaQuery{Title: "x"}), capability.ErrUnsupported)
}
