package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jmcneish/castbridge/internal/apperrors"
)

// Client talks to a Plex-style media library server.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	token   string
	logger  *log.Logger
}

// NewClient creates a library client. baseURL is scheme://host:port.
func NewClient(baseURL, token string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 250 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.Logger = nil

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// BaseURL returns the server address, used when building cast payloads.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the access token, used when building cast payloads.
func (c *Client) Token() string { return c.token }

// Search runs a free-text search, optionally scoped by item type.
func (c *Client) Search(ctx context.Context, title, mediaType string, limit int) ([]Item, error) {
	query := url.Values{}
	query.Set("query", title)
	if mediaType != "" {
		query.Set("type", mediaType)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var container Container
	if err := c.get(ctx, "/search", query, &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

// Metadata fetches a single item by rating key, refreshing view state.
func (c *Client) Metadata(ctx context.Context, ratingKey string) (Item, error) {
	return c.fetchOne(ctx, "/library/metadata/"+ratingKey)
}

// MetadataByKey fetches a single item by its full key path.
func (c *Client) MetadataByKey(ctx context.Context, key string) (Item, error) {
	return c.fetchOne(ctx, key)
}

// Episodes returns every episode of a show in series order.
func (c *Client) Episodes(ctx context.Context, showRatingKey string) ([]Item, error) {
	var container Container
	if err := c.get(ctx, "/library/metadata/"+showRatingKey+"/allLeaves", nil, &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

// Children returns the direct children of a container item (seasons of a
// show, tracks of an album, photos of a photo set).
func (c *Client) Children(ctx context.Context, ratingKey string) ([]Item, error) {
	var container Container
	if err := c.get(ctx, "/library/metadata/"+ratingKey+"/children", nil, &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

// Season resolves the season object of a show by season number.
func (c *Client) Season(ctx context.Context, showRatingKey string, seasonNumber int) (Item, error) {
	children, err := c.Children(ctx, showRatingKey)
	if err != nil {
		return Item{}, err
	}
	for _, child := range children {
		if child.Type == TypeSeason && child.Index == seasonNumber {
			return child, nil
		}
	}
	return Item{}, apperrors.NewMediaNotFoundError(
		fmt.Sprintf("Season %d not found", seasonNumber), nil)
}

// Episode resolves one episode of a show by season and episode number.
func (c *Client) Episode(ctx context.Context, showRatingKey string, seasonNumber, episodeNumber int) (Item, error) {
	episodes, err := c.Episodes(ctx, showRatingKey)
	if err != nil {
		return Item{}, err
	}
	for _, episode := range episodes {
		if episode.ParentIndex == seasonNumber && episode.Index == episodeNumber {
			return episode, nil
		}
	}
	return Item{}, apperrors.NewMediaNotFoundError(
		fmt.Sprintf("Season %d episode %d not found", seasonNumber, episodeNumber), nil)
}

// SetAudioStream selects an audio stream on a part.
func (c *Client) SetAudioStream(ctx context.Context, partID, streamID int) error {
	query := url.Values{}
	query.Set("audioStreamID", strconv.Itoa(streamID))
	return c.put(ctx, "/library/parts/"+strconv.Itoa(partID), query)
}

// SetSubtitleStream selects a subtitle stream on a part. Stream id 0 with
// allParts disables subtitles everywhere.
func (c *Client) SetSubtitleStream(ctx context.Context, partID, streamID int, allParts bool) error {
	query := url.Values{}
	query.Set("subtitleStreamID", strconv.Itoa(streamID))
	if allParts {
		query.Set("allParts", "1")
	}
	return c.put(ctx, "/library/parts/"+strconv.Itoa(partID), query)
}

// SearchPhotoAlbums finds photo albums by title.
func (c *Client) SearchPhotoAlbums(ctx context.Context, title string) ([]Item, error) {
	query := url.Values{}
	query.Set("title", title)
	var container Container
	if err := c.get(ctx, "/photos/albums", query, &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

// PhotosByDate finds photos taken inside a date range.
func (c *Client) PhotosByDate(ctx context.Context, from, to time.Time) ([]Item, error) {
	query := url.Values{}
	query.Set("originallyAvailableAt>>=", from.Format("2006-01-02"))
	query.Set("originallyAvailableAt<<=", to.Format("2006-01-02"))
	var container Container
	if err := c.get(ctx, "/photos/all", query, &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

func (c *Client) fetchOne(ctx context.Context, path string) (Item, error) {
	var container Container
	if err := c.get(ctx, path, nil, &container); err != nil {
		return Item{}, err
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return Item{}, apperrors.NewMediaNotFoundError("Item not found: "+path, nil)
	}
	return container.MediaContainer.Metadata[0], nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return apperrors.NewBackendError("library request: " + err.Error())
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewBackendError("library server unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewBackendError("library server rejected token")
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewBackendError(fmt.Sprintf("library server returned %d for %s", resp.StatusCode, path))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewBackendError("library response decode: " + err.Error())
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, query url.Values) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, c.buildURL(path, query), nil)
	if err != nil {
		return apperrors.NewBackendError("library request: " + err.Error())
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewBackendError("library server unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperrors.NewBackendError(fmt.Sprintf("library server returned %d for %s", resp.StatusCode, path))
	}
	return nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) setHeaders(req *retryablehttp.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
}
