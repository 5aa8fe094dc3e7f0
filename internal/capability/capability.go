// Package capability defines the uniform command vocabulary every playback
// backend must honor, plus optional extensions individual backends add.
package capability

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by capabilities a backend cannot honor. The
// dispatcher logs it and drops the command; it must never crash a backend.
var ErrUnsupported = errors.New("capability not supported by this backend")

// PlayMode selects what happens once a media query resolves.
type PlayMode string

const (
	PlayModePlay    PlayMode = "play"
	PlayModeFind    PlayMode = "find"
	PlayModeShuffle PlayMode = "shuffle"
)

// MediaQuery carries the parsed intent of a play-media command. All fields
// are optional; at most one of song/album/artist is promoted onto
// Type/Title before dispatch.
type MediaQuery struct {
	Title         string
	Type          string
	TVShow        string
	SeasonNumber  int
	EpisodeNumber int
	Mode          PlayMode
}

// PhotoQuery selects photo sets by title+year, month+year, or year alone.
type PhotoQuery struct {
	Title string
	Month string
	Year  string
	Mode  PlayMode
}

// TranscodeRequest is either an absolute quality name or a relative step.
type TranscodeRequest struct {
	Quality    string // "maximum", "high", "1080p", "medium", "720p", "low", "480p"
	RaiseLower string // "up" or "down"
}

// MediaCapability is the uniform backend command surface. Methods block on
// the underlying client call and return ErrUnsupported for commands a
// backend cannot honor.
type MediaCapability interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error

	// Seek moves to an absolute position in seconds.
	Seek(ctx context.Context, seconds float64) error

	Next(ctx context.Context) error
	Previous(ctx context.Context) error

	Shuffle(ctx context.Context, on bool) error
	Loop(ctx context.Context, on bool) error

	Transcode(ctx context.Context, req TranscodeRequest) error

	// PlayItem resolves the query and starts playback.
	PlayItem(ctx context.Context, query MediaQuery) error

	// FindItem resolves the query and shows the item without starting
	// playback (voice confirmation flow).
	FindItem(ctx context.Context, query MediaQuery) error
}

// Launcher is implemented by backends that can open their receiver app.
type Launcher interface {
	Launch(ctx context.Context) error
}

// TrackSelector is implemented by backends that expose audio/subtitle
// stream selection on the playing item.
type TrackSelector interface {
	CycleAudioTrack(ctx context.Context) error
	CycleSubtitleTrack(ctx context.Context) error
	DisableSubtitles(ctx context.Context) error
}

// PhotoPlayer is implemented by backends that can resolve photo sets.
type PhotoPlayer interface {
	PlayPhotos(ctx context.Context, query PhotoQuery) error
}
