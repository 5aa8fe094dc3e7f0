package videosearch

import (
	"context"
	"log"

	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
)

// AppID is the video receiver application id on the cast device.
const AppID = "233637DE"

// Controller implements the media capability over the video search API.
// Next/Previous walk the candidate list of the last search, so "play next"
// after a bad match tries the runner-up.
type Controller struct {
	client *Client
	castc  cast.Client
	logger *log.Logger

	candidates []Video
	selected   int
}

// NewController creates the video capability for one device.
func NewController(client *Client, castc cast.Client, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{client: client, castc: castc, logger: logger}
}

func (c *Controller) Play(ctx context.Context) error {
	return c.castc.Play(ctx)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.castc.Pause(ctx)
}

func (c *Controller) Stop(ctx context.Context) error {
	return c.castc.StopMedia(ctx)
}

func (c *Controller) Seek(ctx context.Context, seconds float64) error {
	return c.castc.SeekTo(ctx, seconds)
}

func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, -1)
}

func (c *Controller) step(ctx context.Context, delta int) error {
	if len(c.candidates) == 0 {
		c.logger.Print("No video candidates to step through")
		return nil
	}
	next := c.selected + delta
	if next < 0 || next >= len(c.candidates) {
		c.logger.Print("Reached the end of the video candidate list")
		return nil
	}
	c.selected = next
	return c.launch(ctx, c.candidates[next])
}

func (c *Controller) Shuffle(ctx context.Context, on bool) error {
	return capability.ErrUnsupported
}

func (c *Controller) Loop(ctx context.Context, on bool) error {
	return capability.ErrUnsupported
}

func (c *Controller) Transcode(ctx context.Context, req capability.TranscodeRequest) error {
	return capability.ErrUnsupported
}

// PlayItem searches for the query and launches the best match. A trailer
// query goes through the movie metadata API instead.
func (c *Controller) PlayItem(ctx context.Context, query capability.MediaQuery) error {
	if query.Type == "trailer" {
		videoID, err := c.client.TrailerID(ctx, query.Title)
		if err != nil {
			return err
		}
		c.candidates = []Video{{ID: videoID, Title: query.Title + " trailer"}}
		c.selected = 0
		return c.launch(ctx, c.candidates[0])
	}

	videos, err := c.client.Search(ctx, query.Title)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return apperrors.NewMediaNotFoundError("No video matching: "+query.Title, nil)
	}
	c.candidates = videos
	c.selected = 0
	return c.launch(ctx, videos[0])
}

func (c *Controller) FindItem(ctx context.Context, query capability.MediaQuery) error {
	return capability.ErrUnsupported
}

// Launch opens the video receiver without content.
func (c *Controller) Launch(ctx context.Context) error {
	return c.castc.LaunchApp(ctx, AppID, "")
}

func (c *Controller) launch(ctx context.Context, video Video) error {
	c.logger.Printf("Launching video: %s (%s)", video.Title, video.ID)
	return c.castc.LaunchApp(ctx, AppID, video.ID)
}

var (
	_ capability.MediaCapability = (*Controller)(nil)
	_ capability.Launcher        = (*Controller)(nil)
)
