package library

// Wire types for the Plex-style media library API. Responses arrive inside
// a MediaContainer envelope.

// Container is the standard response envelope.
type Container struct {
	MediaContainer struct {
		Size     int    `json:"size"`
		Metadata []Item `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Item is one library item: movie, show, season, episode, track, album,
// artist or photo.
type Item struct {
	RatingKey            string  `json:"ratingKey"`
	Key                  string  `json:"key"`
	Type                 string  `json:"type"`
	Title                string  `json:"title"`
	GrandparentRatingKey string  `json:"grandparentRatingKey,omitempty"`
	GrandparentKey       string  `json:"grandparentKey,omitempty"`
	GrandparentTitle     string  `json:"grandparentTitle,omitempty"`
	ParentIndex          int     `json:"parentIndex,omitempty"` // season number for episodes
	Index                int     `json:"index,omitempty"`       // episode number within the season
	ViewOffset           int64   `json:"viewOffset,omitempty"`  // resume position in ms
	ViewCount            int     `json:"viewCount,omitempty"`
	Duration             int64   `json:"duration,omitempty"` // total length in ms
	Year                 int     `json:"year,omitempty"`
	Media                []Media `json:"Media,omitempty"`
}

// Media is one playable rendition of an item.
type Media struct {
	ID   int    `json:"id"`
	Part []Part `json:"Part,omitempty"`
}

// Part is one file of a rendition, carrying the selectable streams.
type Part struct {
	ID     int      `json:"id"`
	Key    string   `json:"key"`
	Stream []Stream `json:"Stream,omitempty"`
}

// Stream type discriminators used by the library server.
const (
	StreamTypeVideo    = 1
	StreamTypeAudio    = 2
	StreamTypeSubtitle = 3
)

// Stream is one audio/video/subtitle track within a part.
type Stream struct {
	ID           int    `json:"id"`
	StreamType   int    `json:"streamType"`
	Language     string `json:"language,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	Selected     bool   `json:"selected,omitempty"`
}

// Item type vocabulary of the library server.
const (
	TypeMovie   = "movie"
	TypeShow    = "show"
	TypeSeason  = "season"
	TypeEpisode = "episode"
	TypeTrack   = "track"
	TypeAlbum   = "album"
	TypeArtist  = "artist"
	TypePhoto   = "photo"
)

// Watched reports whether the item has been fully watched at least once.
func (item Item) Watched() bool {
	return item.ViewCount > 0
}

// InProgress reports whether the item has a nonzero resume offset.
func (item Item) InProgress() bool {
	return item.ViewOffset > 0
}
