// Package videosearch implements the video streaming backend: it resolves
// spoken titles to video ids through a search API and hands them to the
// device's video receiver app.
package videosearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jmcneish/castbridge/internal/apperrors"
)

const maxResults = 10

// Client queries the video search API, plus the movie metadata API for
// trailer lookups.
type Client struct {
	http       *retryablehttp.Client
	searchURL  string
	searchKey  string
	movieDBURL string
	movieDBKey string
	logger     *log.Logger
}

// NewClient creates a search client. movieDBKey may be empty, in which
// case trailer lookups fail with a backend-unavailable error.
func NewClient(searchURL, searchKey, movieDBURL, movieDBKey string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 250 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.Logger = nil

	return &Client{
		http:       httpClient,
		searchURL:  searchURL,
		searchKey:  searchKey,
		movieDBURL: movieDBURL,
		movieDBKey: movieDBKey,
		logger:     logger,
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// Video is one search hit.
type Video struct {
	ID    string
	Title string
}

// Search returns up to maxResults video candidates for a free-text query,
// best match first.
func (c *Client) Search(ctx context.Context, query string) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("q", query)
	params.Set("key", c.searchKey)

	var resp searchResponse
	if err := c.get(ctx, c.searchURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{ID: item.ID.VideoID, Title: item.Snippet.Title})
	}
	return videos, nil
}

type movieSearchResponse struct {
	Results []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"results"`
}

type movieVideosResponse struct {
	Results []struct {
		Key  string `json:"key"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

// TrailerID resolves a movie title to the video id of its trailer via the
// movie metadata API.
func (c *Client) TrailerID(ctx context.Context, title string) (string, error) {
	if c.movieDBKey == "" {
		return "", apperrors.NewBackendUnavailableError("moviedb")
	}

	params := url.Values{}
	params.Set("api_key", c.movieDBKey)
	params.Set("query", title)

	var search movieSearchResponse
	if err := c.get(ctx, c.movieDBURL+"/search/movie?"+params.Encode(), &search); err != nil {
		return "", err
	}
	if len(search.Results) == 0 {
		return "", apperrors.NewMediaNotFoundError("No movie matching title: "+title, nil)
	}
	movie := search.Results[0]
	c.logger.Printf("Trailer lookup matched movie: %s", movie.Title)

	params = url.Values{}
	params.Set("api_key", c.movieDBKey)

	var videos movieVideosResponse
	path := fmt.Sprintf("%s/movie/%d/videos?%s", c.movieDBURL, movie.ID, params.Encode())
	if err := c.get(ctx, path, &videos); err != nil {
		return "", err
	}
	for _, video := range videos.Results {
		if video.Site == "YouTube" && video.Type == "Trailer" {
			return video.Key, nil
		}
	}
	// Fall back to whatever clip the movie has.
	for _, video := range videos.Results {
		if video.Key != "" {
			return video.Key, nil
		}
	}
	return "", apperrors.NewMediaNotFoundError("No trailer found for: "+movie.Title, nil)
}

func (c *Client) get(ctx context.Context, fullURL string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return apperrors.NewBackendError("video search request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewBackendError("video search unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewBackendError(fmt.Sprintf("video search returned %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewBackendError("video search decode: " + err.Error())
	}
	return nil
}
