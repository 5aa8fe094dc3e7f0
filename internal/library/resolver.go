package library

import (
	"context"
	"log"

	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/capability"
)

const searchLimit = 10

// Resolver turns a media query into a concrete library item.
type Resolver struct {
	client *Client
	logger *log.Logger
}

func NewResolver(client *Client, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// mapType translates the voice-intent type vocabulary into the library
// server's native vocabulary.
func mapType(mediaType string) string {
	switch mediaType {
	case "song":
		return TypeTrack
	case "video":
		return TypeMovie
	default:
		return mediaType
	}
}

// Resolve finds the single item a query refers to. Shows resolve to their
// next episode to watch.
func (r *Resolver) Resolve(ctx context.Context, query capability.MediaQuery) (Item, error) {
	mediaType := mapType(query.Type)

	switch mediaType {
	case TypeShow:
		title := query.TVShow
		if title == "" {
			title = query.Title
		}
		show, err := r.showByTitle(ctx, title)
		if err != nil {
			return Item{}, err
		}
		r.logger.Printf("Selected show: %s", show.Title)
		return r.nextEpisode(ctx, show)

	case TypeEpisode:
		item, err := r.episodeOrSeason(ctx, query)
		if err != nil {
			return Item{}, err
		}
		r.logger.Printf("Selected episode/season: %s", item.Title)
		return item, nil

	default:
		items, err := r.client.Search(ctx, query.Title, mediaType, searchLimit)
		if err != nil {
			return Item{}, err
		}
		if len(items) == 0 {
			return Item{}, apperrors.NewMediaNotFoundError("No item matching title: "+query.Title, map[string]any{
				"title": query.Title,
				"type":  mediaType,
			})
		}
		return items[0], nil
	}
}

// nextEpisode replaces a show with the episode playback should start at.
func (r *Resolver) nextEpisode(ctx context.Context, show Item) (Item, error) {
	episodes, err := r.client.Episodes(ctx, show.RatingKey)
	if err != nil {
		return Item{}, err
	}
	if len(episodes) == 0 {
		return Item{}, apperrors.NewMediaNotFoundError("Show has no episodes: "+show.Title, nil)
	}
	return NextEpisodeToWatch(episodes), nil
}

// NextEpisodeToWatch scans for the most recently watched episode: a
// partially-watched one resumes, a fully-watched one advances to its
// successor, and an untouched series starts from episode 1.
func NextEpisodeToWatch(episodes []Item) Item {
	for i := len(episodes) - 1; i >= 0; i-- {
		episode := episodes[i]
		if !episode.Watched() && !episode.InProgress() {
			continue
		}
		if episode.InProgress() {
			return episode
		}
		if i+1 < len(episodes) {
			return episodes[i+1]
		}
		// Series finished; replay the finale.
		return episode
	}
	return episodes[0]
}

func (r *Resolver) episodeOrSeason(ctx context.Context, query capability.MediaQuery) (Item, error) {
	switch {
	case query.EpisodeNumber > 0:
		show, err := r.showByTitle(ctx, query.TVShow)
		if err != nil {
			return Item{}, err
		}
		item, err := r.client.Episode(ctx, show.RatingKey, query.SeasonNumber, query.EpisodeNumber)
		if err != nil {
			r.logger.Printf("Unable to find season %d episode %d for show: %s",
				query.SeasonNumber, query.EpisodeNumber, show.Title)
			return Item{}, err
		}
		return item, nil

	case query.SeasonNumber > 0:
		show, err := r.showByTitle(ctx, query.TVShow)
		if err != nil {
			return Item{}, err
		}
		return r.client.Season(ctx, show.RatingKey, query.SeasonNumber)

	case query.Title != "":
		return r.episodeByTitle(ctx, query.TVShow, query.Title)

	default:
		return Item{}, apperrors.NewValidationError("Episode query needs an episode number, season number or title", nil)
	}
}

// showByTitle searches shows directly, then broadens to an unrestricted
// search and takes the show owning the first episode-typed hit.
func (r *Resolver) showByTitle(ctx context.Context, title string) (Item, error) {
	shows, err := r.client.Search(ctx, title, TypeShow, searchLimit)
	if err != nil {
		return Item{}, err
	}
	if len(shows) > 0 {
		return shows[0], nil
	}

	items, err := r.client.Search(ctx, title, "", searchLimit)
	if err != nil {
		return Item{}, err
	}
	for _, item := range items {
		if item.Type == TypeEpisode && item.GrandparentRatingKey != "" {
			return r.client.Metadata(ctx, item.GrandparentRatingKey)
		}
	}
	return Item{}, apperrors.NewMediaNotFoundError("No show matching title: "+title, map[string]any{
		"title": title,
	})
}

// episodeByTitle searches episodes and keeps the first belonging to the
// requested show, falling back to the first hit when none match.
func (r *Resolver) episodeByTitle(ctx context.Context, tvShow, title string) (Item, error) {
	episodes, err := r.client.Search(ctx, title, TypeEpisode, searchLimit)
	if err != nil {
		return Item{}, err
	}
	if len(episodes) == 0 {
		return Item{}, apperrors.NewMediaNotFoundError("No episode matching title: "+title, nil)
	}

	show, err := r.showByTitle(ctx, tvShow)
	if err != nil {
		return episodes[0], nil
	}
	for _, episode := range episodes {
		if episode.GrandparentRatingKey == show.RatingKey {
			return episode, nil
		}
	}
	return episodes[0], nil
}
