package library

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
	"github.com/jmcneish/castbridge/internal/settings"
)

// AppID is the library receiver application id on the cast device.
const AppID = "9AC194DC"

type qualityTier struct {
	name    string
	bitrate int
}

// qualityTable is the fixed ascending transcode quality ladder. Bitrate 0
// is the uncapped "maximum" sentinel and lives outside the table.
var qualityTable = []qualityTier{
	{"240p", 320},
	{"320p", 720},
	{"480p", 1500},
	{"720p_low", 2000},
	{"720p_med", 3000},
	{"720p", 4000},
	{"1080p", 8000},
}

// relativeCeiling stands in for "maximum" when stepping relative to an
// uncapped bitrate, so "lower" lands on the table's top tier.
const relativeCeiling = 20000

// Controller implements the full media capability against the library
// server and the cast device. The registry serializes commands per device,
// so controller state needs no extra locking.
type Controller struct {
	client       *Client
	resolver     *Resolver
	castc        cast.Client
	store        settings.Store
	deviceID     string
	subtitleLang string
	logger       *log.Logger

	current *Item
	queue   *PlayQueue
	bitrate int

	// Selected rendition indexes for the loaded item.
	mediaIndex int
	partIndex  int
}

// NewController creates the library capability for one device, loading its
// persisted bitrate setting.
func NewController(client *Client, castc cast.Client, deviceID, subtitleLang string, store settings.Store, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	controller := &Controller{
		client:       client,
		resolver:     NewResolver(client, logger),
		castc:        castc,
		store:        store,
		deviceID:     deviceID,
		subtitleLang: subtitleLang,
		logger:       logger,
	}
	bitrate, err := store.Bitrate(deviceID)
	if err != nil {
		logger.Printf("Failed to load settings for %s: %v", deviceID, err)
	} else {
		controller.bitrate = bitrate
	}
	return controller
}

// Bitrate returns the current transcode ceiling (0 = uncapped).
func (c *Controller) Bitrate() int { return c.bitrate }

// CurrentItem returns the resolved item, if any.
func (c *Controller) CurrentItem() *Item { return c.current }

func (c *Controller) setCurrent(item Item) {
	c.current = &item
	c.queue = nil
	c.mediaIndex = 0
	c.partIndex = 0
}

// =============================================================================
// MediaCapability
// =============================================================================

func (c *Controller) Play(ctx context.Context) error {
	if c.current != nil {
		status, err := c.castc.Status(ctx)
		if err == nil && status.PlayerState != "PAUSED" {
			return c.resumeInPlace(ctx)
		}
	}
	return c.castc.Play(ctx)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.castc.Pause(ctx)
}

// Stop halts playback, then reloads the item so its resume offset is fresh
// and re-shows its details.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.castc.StopMedia(ctx); err != nil {
		return err
	}
	if c.current == nil {
		return nil
	}
	item, err := c.client.Metadata(ctx, c.current.RatingKey)
	if err != nil {
		return err
	}
	c.current = &item
	return c.showMedia(ctx, item)
}

func (c *Controller) Seek(ctx context.Context, seconds float64) error {
	return c.castc.SeekTo(ctx, seconds)
}

func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

// Previous rewinds to the top of the current item first; a second previous
// within the rewind grace steps back through the queue.
func (c *Controller) Previous(ctx context.Context) error {
	status, err := c.castc.Status(ctx)
	if err == nil && status.CurrentTime > 10 {
		return c.castc.SeekTo(ctx, 0)
	}
	return c.step(ctx, -1)
}

func (c *Controller) step(ctx context.Context, delta int) error {
	if c.current == nil {
		return nil
	}
	if c.queue == nil {
		queue, err := c.buildPlayQueue(ctx, false, false)
		if err != nil {
			return err
		}
		c.queue = queue
	}
	if !c.queue.Advance(delta) {
		c.logger.Printf("Queue boundary reached on %s", c.current.Title)
		return nil
	}
	item := c.queue.Current()
	return c.loadItem(ctx, item, float64(item.ViewOffset)/1000)
}

func (c *Controller) Shuffle(ctx context.Context, on bool) error {
	return c.startPlaying(ctx, on, c.looping(), false)
}

func (c *Controller) Loop(ctx context.Context, on bool) error {
	if c.queue == nil && c.current == nil {
		c.logger.Print("No current item to repeat")
		return nil
	}
	return c.startPlaying(ctx, c.shuffled(), on, false)
}

func (c *Controller) shuffled() bool {
	return c.queue != nil && c.queue.Shuffled
}

func (c *Controller) looping() bool {
	return c.queue != nil && c.queue.Looping
}

// Transcode applies an absolute or relative quality change, persists it and
// resumes in place. An unchanged bitrate is a no-op with no reload.
func (c *Controller) Transcode(ctx context.Context, req capability.TranscodeRequest) error {
	target, ok := c.targetBitrate(req)
	if !ok {
		c.logger.Printf("Ignoring transcode request: %+v", req)
		return nil
	}
	if target == c.bitrate {
		return nil
	}
	c.bitrate = target
	if err := c.store.SetBitrate(c.deviceID, target); err != nil {
		c.logger.Printf("Failed to save settings for %s: %v", c.deviceID, err)
	}
	c.logger.Printf("Transcode bitrate for %s set to %d", c.deviceID, target)
	return c.resumeInPlace(ctx)
}

func (c *Controller) targetBitrate(req capability.TranscodeRequest) (int, bool) {
	ceiling := c.bitrate
	if ceiling == 0 {
		ceiling = relativeCeiling
	}

	switch req.RaiseLower {
	case "up":
		for _, tier := range qualityTable {
			if tier.bitrate > ceiling {
				return tier.bitrate, true
			}
		}
		return 0, true
	case "down":
		for i := len(qualityTable) - 1; i >= 0; i-- {
			if qualityTable[i].bitrate < ceiling {
				return qualityTable[i].bitrate, true
			}
		}
		return qualityTable[0].bitrate, true
	}

	switch strings.ToLower(req.Quality) {
	case "maximum":
		return 0, true
	case "high", "1080p":
		return tierBitrate("1080p"), true
	case "medium", "720p":
		return tierBitrate("720p"), true
	case "low", "480p":
		return tierBitrate("480p"), true
	}
	return 0, false
}

func tierBitrate(name string) int {
	for _, tier := range qualityTable {
		if tier.name == name {
			return tier.bitrate
		}
	}
	return 0
}

// PlayItem resolves the query and starts playback, or shows the item when
// the query asks for a find.
func (c *Controller) PlayItem(ctx context.Context, query capability.MediaQuery) error {
	item, err := c.resolver.Resolve(ctx, query)
	if err != nil {
		return err
	}
	c.setCurrent(item)

	if query.Mode == capability.PlayModeFind {
		if err := c.castc.StopMedia(ctx); err != nil {
			c.logger.Printf("Stop before show failed: %v", err)
		}
		return c.showMedia(ctx, item)
	}
	return c.startPlaying(ctx, query.Mode == capability.PlayModeShuffle, false, false)
}

// FindItem resolves the query and shows it without starting playback.
func (c *Controller) FindItem(ctx context.Context, query capability.MediaQuery) error {
	query.Mode = capability.PlayModeFind
	return c.PlayItem(ctx, query)
}

// =============================================================================
// Launcher
// =============================================================================

func (c *Controller) Launch(ctx context.Context) error {
	return c.castc.LaunchApp(ctx, AppID, "")
}

// =============================================================================
// TrackSelector
// =============================================================================

func (c *Controller) CycleAudioTrack(ctx context.Context) error {
	item, part, err := c.playingPart(ctx)
	if err != nil {
		return err
	}
	streams := filterStreams(part.Stream, StreamTypeAudio, "")
	if len(streams) <= 1 {
		// Nothing to cycle through.
		return nil
	}
	next := nextStream(streams)
	if err := c.client.SetAudioStream(ctx, part.ID, next.ID); err != nil {
		return err
	}
	c.logger.Printf("Audio stream on %s switched to %d", item.Title, next.ID)
	return c.resumeInPlace(ctx)
}

func (c *Controller) CycleSubtitleTrack(ctx context.Context) error {
	item, part, err := c.playingPart(ctx)
	if err != nil {
		return err
	}
	streams := filterStreams(part.Stream, StreamTypeSubtitle, c.subtitleLang)
	if len(streams) == 0 {
		c.logger.Printf("No %s subtitles on %s", c.subtitleLang, item.Title)
		return nil
	}
	next := nextStream(streams)
	if err := c.client.SetSubtitleStream(ctx, part.ID, next.ID, false); err != nil {
		return err
	}
	return c.resumeInPlace(ctx)
}

func (c *Controller) DisableSubtitles(ctx context.Context) error {
	_, part, err := c.playingPart(ctx)
	if err != nil {
		return err
	}
	if err := c.client.SetSubtitleStream(ctx, part.ID, 0, true); err != nil {
		return err
	}
	return c.resumeInPlace(ctx)
}

// filterStreams keeps streams of one type, optionally restricted to a
// language code.
func filterStreams(streams []Stream, streamType int, languageCode string) []Stream {
	kept := make([]Stream, 0, len(streams))
	for _, stream := range streams {
		if stream.StreamType != streamType {
			continue
		}
		if languageCode != "" && stream.LanguageCode != languageCode {
			continue
		}
		kept = append(kept, stream)
	}
	return kept
}

// nextStream returns the stream after the currently selected one, wrapping
// past the end of the list.
func nextStream(streams []Stream) Stream {
	pos := -1
	for i, stream := range streams {
		if stream.Selected {
			pos = i
			break
		}
	}
	pos++
	if pos >= len(streams) {
		pos = 0
	}
	return streams[pos]
}

// playingPart returns the live item and the selected part of the playing
// media. The content id occasionally lags the load, so it is re-polled.
func (c *Controller) playingPart(ctx context.Context) (Item, Part, error) {
	var contentID string
	for attempt := 0; attempt < 3; attempt++ {
		status, err := c.castc.Status(ctx)
		if err != nil {
			return Item{}, Part{}, err
		}
		if status.ContentID != "" {
			contentID = status.ContentID
			break
		}
		select {
		case <-ctx.Done():
			return Item{}, Part{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if contentID == "" {
		return Item{}, Part{}, fmt.Errorf("no media loaded on device")
	}

	item, err := c.client.MetadataByKey(ctx, contentID)
	if err != nil {
		return Item{}, Part{}, err
	}
	if c.mediaIndex >= len(item.Media) || c.partIndex >= len(item.Media[c.mediaIndex].Part) {
		return Item{}, Part{}, fmt.Errorf("item %s has no part at media %d part %d", item.Title, c.mediaIndex, c.partIndex)
	}
	return item, item.Media[c.mediaIndex].Part[c.partIndex], nil
}

// =============================================================================
// PhotoPlayer
// =============================================================================

func (c *Controller) PlayPhotos(ctx context.Context, query capability.PhotoQuery) error {
	photos, err := c.resolvePhotos(ctx, query)
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		c.logger.Printf("Unable to find photos matching: %+v", query)
		return nil
	}

	c.setCurrent(photos[0])
	c.queue = newShuffledQueue(photos, query.Mode == capability.PlayModeShuffle, false)

	if query.Mode == capability.PlayModeFind {
		return c.showMedia(ctx, c.queue.Current())
	}
	item := c.queue.Current()
	return c.loadItem(ctx, item, 0)
}

func (c *Controller) resolvePhotos(ctx context.Context, query capability.PhotoQuery) ([]Item, error) {
	if query.Title != "" {
		title := query.Title
		if query.Year != "" {
			title = title + " " + query.Year
		}
		albums, err := c.client.SearchPhotoAlbums(ctx, title)
		if err != nil {
			return nil, err
		}
		photos := make([]Item, 0)
		for _, album := range albums {
			children, err := c.client.Children(ctx, album.RatingKey)
			if err != nil {
				return nil, err
			}
			photos = append(photos, children...)
		}
		return photos, nil
	}

	if query.Year == "" {
		return nil, nil
	}
	from, to, err := photoDateRange(query.Month, query.Year)
	if err != nil {
		return nil, err
	}
	return c.client.PhotosByDate(ctx, from, to)
}

// photoDateRange covers a calendar month when one is given, otherwise the
// whole year.
func photoDateRange(month, year string) (time.Time, time.Time, error) {
	if month == "" {
		from, err := time.Parse("2006", year)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return from, from.AddDate(1, 0, -1), nil
	}
	from, err := time.Parse("January 2006", month+" "+year)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 1, -1), nil
}

// =============================================================================
// Playback plumbing
// =============================================================================

// resumeInPlace reloads the current item preserving elapsed position; used
// after bitrate and track changes so the queue is not rebuilt.
func (c *Controller) resumeInPlace(ctx context.Context) error {
	return c.startPlaying(ctx, c.shuffled(), c.looping(), true)
}

func (c *Controller) startPlaying(ctx context.Context, shuffle, loop, resume bool) error {
	if c.current == nil {
		// Nothing to play.
		return nil
	}
	if !resume || c.queue == nil {
		queue, err := c.buildPlayQueue(ctx, shuffle, loop)
		if err != nil {
			return err
		}
		c.queue = queue
	}

	item := c.queue.Current()
	offset := float64(item.ViewOffset) / 1000
	if resume {
		if status, err := c.castc.Status(ctx); err == nil && status.CurrentTime > 0 {
			offset = status.CurrentTime
		}
	}
	return c.loadItem(ctx, item, offset)
}

// buildPlayQueue constructs the queue for the current item per its type.
func (c *Controller) buildPlayQueue(ctx context.Context, shuffle, loop bool) (*PlayQueue, error) {
	item := *c.current

	switch item.Type {
	case TypeAlbum, TypeArtist:
		children, err := c.client.Children(ctx, item.RatingKey)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return newSingleItemQueue(item, shuffle, loop), nil
		}
		return newShuffledQueue(children, shuffle, loop), nil

	case TypeTrack, TypePhoto:
		return newSingleItemQueue(item, shuffle, loop), nil

	case TypeEpisode:
		episodes, err := c.client.Episodes(ctx, item.GrandparentRatingKey)
		if err != nil {
			return nil, err
		}
		if len(episodes) == 0 {
			return newSingleItemQueue(item, shuffle, loop), nil
		}
		return newEpisodeQueue(episodes, item, loop), nil

	case TypeShow:
		episodes, err := c.client.Episodes(ctx, item.RatingKey)
		if err != nil {
			return nil, err
		}
		if len(episodes) == 0 {
			return newSingleItemQueue(item, shuffle, loop), nil
		}
		target := NextEpisodeToWatch(episodes)
		return newEpisodeQueue(episodes, target, loop), nil

	default:
		return newSingleItemQueue(item, shuffle, loop), nil
	}
}

// ensureReceiver launches the library receiver if something else is running.
func (c *Controller) ensureReceiver(ctx context.Context) error {
	appID, err := c.castc.AppID(ctx)
	if err != nil {
		return err
	}
	if appID == AppID {
		return nil
	}
	return c.castc.LaunchApp(ctx, AppID, "")
}

// loadItem sends the receiver a LOAD for the item at the given offset,
// applying the current transcode ceiling.
func (c *Controller) loadItem(ctx context.Context, item Item, offsetSeconds float64) error {
	if err := c.ensureReceiver(ctx); err != nil {
		return err
	}
	return c.castc.SendMedia(ctx, c.loadMessage(item, offsetSeconds))
}

// showMedia displays the item's detail screen without starting playback.
// Tracks have no detail pane, so they are started and immediately paused.
func (c *Controller) showMedia(ctx context.Context, item Item) error {
	if err := c.ensureReceiver(ctx); err != nil {
		return err
	}
	if item.Type == TypeTrack {
		if err := c.castc.SendMedia(ctx, c.loadMessage(item, 0)); err != nil {
			return err
		}
		return c.castc.Pause(ctx)
	}

	msg := map[string]any{
		"type": "SHOWDETAILS",
		"media": map[string]any{
			"contentId":  item.Key,
			"customData": c.customData(item, 0),
		},
	}
	return c.castc.SendMedia(ctx, msg)
}

func (c *Controller) loadMessage(item Item, offsetSeconds float64) map[string]any {
	return map[string]any{
		"type":        "LOAD",
		"autoplay":    true,
		"currentTime": offsetSeconds,
		"media": map[string]any{
			"contentId":  item.Key,
			"streamType": "BUFFERED",
			"customData": c.customData(item, offsetSeconds),
		},
	}
}

func (c *Controller) customData(item Item, offsetSeconds float64) map[string]any {
	data := map[string]any{
		"offset": offsetSeconds,
		"server": map[string]any{
			"address":     c.client.BaseURL(),
			"accessToken": c.client.Token(),
		},
		"mediaIndex": c.mediaIndex,
		"partIndex":  c.partIndex,
	}
	if c.bitrate > 0 {
		data["bitrate"] = c.bitrate
		data["directPlay"] = false
		data["directStream"] = false
	}
	return data
}
