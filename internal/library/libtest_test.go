package library

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeLibrary is an httptest-backed stand-in for the library server. It
// serves a small catalog and applies stream selection PUTs so track
// cycling can be exercised end to end.
type fakeLibrary struct {
	t      *testing.T
	server *httptest.Server

	// ratingKey -> item
	items map[string]*Item
	// showRatingKey -> ordered episodes
	episodes map[string][]Item
	// ratingKey -> ordered children
	children map[string][]Item

	putRequests []string
}

func newFakeLibrary(t *testing.T) *fakeLibrary {
	f := &fakeLibrary{
		t:        t,
		items:    make(map[string]*Item),
		episodes: make(map[string][]Item),
		children: make(map[string][]Item),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeLibrary) client() *Client {
	return NewClient(f.server.URL, "test-token", nil)
}

func (f *fakeLibrary) addItem(item Item) {
	stored := item
	f.items[item.RatingKey] = &stored
}

func (f *fakeLibrary) addShow(show Item, episodes []Item) {
	f.addItem(show)
	f.episodes[show.RatingKey] = episodes
	for _, episode := range episodes {
		f.addItem(episode)
	}
}

func (f *fakeLibrary) respond(w http.ResponseWriter, items []Item) {
	var container Container
	container.MediaContainer.Size = len(items)
	container.MediaContainer.Metadata = items
	w.Header().Set("Content-Type", "application/json")
	require.NoError(f.t, json.NewEncoder(w).Encode(container))
}

func (f *fakeLibrary) handle(w http.ResponseWriter, r *http.Request) {
	require.Equal(f.t, "test-token", r.Header.Get("X-Plex-Token"))
	path := r.URL.Path

	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/library/parts/"):
		f.handleStreamSelect(w, r)

	case path == "/search":
		f.handleSearch(w, r)

	case strings.HasSuffix(path, "/allLeaves"):
		rk := strings.TrimSuffix(strings.TrimPrefix(path, "/library/metadata/"), "/allLeaves")
		f.respond(w, f.episodes[rk])

	case strings.HasSuffix(path, "/children"):
		rk := strings.TrimSuffix(strings.TrimPrefix(path, "/library/metadata/"), "/children")
		f.respond(w, f.children[rk])

	case strings.HasPrefix(path, "/library/metadata/"):
		rk := strings.TrimPrefix(path, "/library/metadata/")
		item, ok := f.items[rk]
		if !ok {
			f.respond(w, nil)
			return
		}
		f.respond(w, []Item{*item})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeLibrary) handleSearch(w http.ResponseWriter, r *http.Request) {
	title := strings.ToLower(r.URL.Query().Get("query"))
	mediaType := r.URL.Query().Get("type")

	matches := make([]Item, 0)
	for _, item := range f.items {
		if mediaType != "" && item.Type != mediaType {
			continue
		}
		if !strings.Contains(strings.ToLower(item.Title), title) {
			continue
		}
		matches = append(matches, *item)
	}
	f.respond(w, matches)
}

// handleStreamSelect marks the requested stream as selected on the part,
// mirroring what the real server does.
func (f *fakeLibrary) handleStreamSelect(w http.ResponseWriter, r *http.Request) {
	partID, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/library/parts/"))
	require.NoError(f.t, err)
	f.putRequests = append(f.putRequests, r.URL.Path+"?"+r.URL.RawQuery)

	streamID := 0
	streamType := StreamTypeSubtitle
	if v := r.URL.Query().Get("audioStreamID"); v != "" {
		streamID, err = strconv.Atoi(v)
		require.NoError(f.t, err)
		streamType = StreamTypeAudio
	} else if v := r.URL.Query().Get("subtitleStreamID"); v != "" {
		streamID, err = strconv.Atoi(v)
		require.NoError(f.t, err)
	}

	for _, item := range f.items {
		for mi := range item.Media {
			for pi := range item.Media[mi].Part {
				part := &item.Media[mi].Part[pi]
				if part.ID != partID {
					continue
				}
				for si := range part.Stream {
					if part.Stream[si].StreamType != streamType {
						continue
					}
					part.Stream[si].Selected = part.Stream[si].ID == streamID
				}
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}
