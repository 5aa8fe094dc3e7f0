// Package dispatcher routes command envelopes from the ingress to device
// backends. It is a fire-and-forget boundary: every failure is logged and
// swallowed so a bad command can never take down the bridge or wedge the
// sender.
package dispatcher

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/duration"
	"github.com/jmcneish/castbridge/internal/registry"
)

// netflixAppID is skipped on stop: quitting the Netflix receiver wedges
// the device for subsequent commands.
const netflixAppID = "CA5E8412"

type handlerFunc func(d *Dispatcher, ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error

// Dispatcher executes command envelopes against registered devices.
type Dispatcher struct {
	registry *registry.Registry
	timeout  time.Duration
	logger   *log.Logger
	handlers map[Action]handlerFunc
}

// New creates a dispatcher with the given per-command timeout.
func New(reg *registry.Registry, timeout time.Duration, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Dispatcher{
		registry: reg,
		timeout:  timeout,
		logger:   logger,
	}
	d.handlers = map[Action]handlerFunc{
		ActionPlay:         (*Dispatcher).play,
		ActionResume:       (*Dispatcher).play,
		ActionPause:        (*Dispatcher).pause,
		ActionStop:         (*Dispatcher).stop,
		ActionOpen:         (*Dispatcher).open,
		ActionSetVolume:    (*Dispatcher).setVolume,
		ActionMute:         (*Dispatcher).mute,
		ActionUnmute:       (*Dispatcher).unmute,
		ActionShuffleOn:    (*Dispatcher).shuffleOn,
		ActionShuffleOff:   (*Dispatcher).shuffleOff,
		ActionLoopOn:       (*Dispatcher).loopOn,
		ActionLoopOff:      (*Dispatcher).loopOff,
		ActionPlayNext:     (*Dispatcher).next,
		ActionPlayPrevious: (*Dispatcher).previous,
		ActionRewind:       (*Dispatcher).rewind,
		ActionFastForward:  (*Dispatcher).fastForward,
		ActionSeek:         (*Dispatcher).seek,
		ActionRestart:      (*Dispatcher).restart,
		ActionPlayMedia:    (*Dispatcher).playMedia,
		ActionPlayPhotos:   (*Dispatcher).playPhotos,
		ActionChangeAudio:  (*Dispatcher).changeAudio,
		ActionSubtitleOn:   (*Dispatcher).subtitleOn,
		ActionSubtitleOff:  (*Dispatcher).subtitleOff,
		ActionTranscode:    (*Dispatcher).transcode,
	}
	return d
}

// Dispatch executes one envelope, serialized against the target device.
// It never returns an error; problems are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) {
	handler, ok := d.handlers[env.Command]
	if !ok {
		d.logger.Printf("Unknown command: %s", env.Command)
		return
	}

	device, err := d.registry.Match(env.Room)
	if err != nil {
		d.logger.Printf("Command %s dropped: %v", env.Command, err)
		return
	}

	device.Lock()
	defer device.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	backend, err := d.resolveBackend(ctx, device, env.Data)
	if err != nil {
		d.logger.Printf("Command %s on %s dropped: %v", env.Command, device.Name, err)
		return
	}

	if err := handler(d, ctx, device, backend, env.Data); err != nil {
		if errors.Is(err, capability.ErrUnsupported) {
			d.logger.Printf("Command %s not supported on %s", env.Command, device.Name)
			return
		}
		d.logger.Printf("Command %s on %s failed: %v", env.Command, device.Name, err)
	}
}

// resolveBackend picks the backend for a command: an explicit app in the
// data wins, otherwise the backend is inferred from the running receiver.
func (d *Dispatcher) resolveBackend(ctx context.Context, device *registry.Device, data map[string]any) (capability.MediaCapability, error) {
	if app := dataString(data, "app"); app != "" {
		return device.Backend(app)
	}
	appID, err := device.Client().AppID(ctx)
	if err != nil {
		return nil, err
	}
	return device.InferBackend(appID)
}

// =============================================================================
// Handlers
// =============================================================================

func (d *Dispatcher) play(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Play(ctx)
}

func (d *Dispatcher) pause(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Pause(ctx)
}

func (d *Dispatcher) stop(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	appID, err := device.Client().AppID(ctx)
	if err == nil && appID == netflixAppID {
		d.logger.Printf("Ignoring stop on %s: Netflix receiver does not survive it", device.Name)
		return nil
	}
	return backend.Stop(ctx)
}

func (d *Dispatcher) open(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	launcher, ok := backend.(capability.Launcher)
	if !ok {
		return capability.ErrUnsupported
	}
	return launcher.Launch(ctx)
}

func (d *Dispatcher) setVolume(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	client := device.Client()

	if jump := dataString(data, "jump"); jump != "" {
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		level := status.Volume
		switch jump {
		case "up":
			level += 0.1
		case "down":
			level -= 0.1
		default:
			d.logger.Printf("Unknown volume jump: %s", jump)
			return nil
		}
		if level < 0 {
			level = 0
		}
		if level > 1 {
			level = 1
		}
		return client.SetVolume(ctx, level)
	}

	// Spoken volume is a 0-10 scale.
	volume, ok := dataNumber(data, "volume")
	if !ok {
		d.logger.Print("set-volume without a volume or jump")
		return nil
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 10 {
		volume = 10
	}
	return client.SetVolume(ctx, float32(volume)/10)
}

func (d *Dispatcher) mute(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return device.Client().SetMuted(ctx, true)
}

func (d *Dispatcher) unmute(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return device.Client().SetMuted(ctx, false)
}

func (d *Dispatcher) shuffleOn(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Shuffle(ctx, true)
}

func (d *Dispatcher) shuffleOff(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Shuffle(ctx, false)
}

func (d *Dispatcher) loopOn(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Loop(ctx, true)
}

func (d *Dispatcher) loopOff(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Loop(ctx, false)
}

func (d *Dispatcher) next(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Next(ctx)
}

func (d *Dispatcher) previous(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Previous(ctx)
}

// rewind seeks back by the spoken duration, or to the start when no
// duration was given.
func (d *Dispatcher) rewind(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	seconds := duration.Seconds(dataString(data, "duration"))
	if seconds == 0 {
		return backend.Seek(ctx, 0)
	}
	return d.seekRelative(ctx, device, backend, -seconds)
}

func (d *Dispatcher) fastForward(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	seconds := duration.Seconds(dataString(data, "duration"))
	if seconds == 0 {
		seconds = 30
	}
	return d.seekRelative(ctx, device, backend, seconds)
}

func (d *Dispatcher) seek(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	seconds := duration.Seconds(dataString(data, "duration"))
	if dataString(data, "direction") == "back" {
		seconds = -seconds
	}
	return d.seekRelative(ctx, device, backend, seconds)
}

func (d *Dispatcher) seekRelative(ctx context.Context, device *registry.Device, backend capability.MediaCapability, delta int) error {
	status, err := device.Client().Status(ctx)
	if err != nil {
		return err
	}
	target := status.CurrentTime + float64(delta)
	if target < 0 {
		target = 0
	}
	return backend.Seek(ctx, target)
}

func (d *Dispatcher) restart(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Seek(ctx, 0)
}

func (d *Dispatcher) playMedia(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	query := buildQuery(data)
	if query.Mode == capability.PlayModeFind {
		return backend.FindItem(ctx, query)
	}
	return backend.PlayItem(ctx, query)
}

func (d *Dispatcher) playPhotos(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	player, ok := backend.(capability.PhotoPlayer)
	if !ok {
		return capability.ErrUnsupported
	}
	return player.PlayPhotos(ctx, capability.PhotoQuery{
		Title: dataString(data, "title"),
		Month: dataString(data, "month"),
		Year:  dataString(data, "year"),
		Mode:  capability.PlayMode(dataString(data, "play")),
	})
}

func (d *Dispatcher) changeAudio(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	selector, ok := backend.(capability.TrackSelector)
	if !ok {
		return capability.ErrUnsupported
	}
	return selector.CycleAudioTrack(ctx)
}

func (d *Dispatcher) subtitleOn(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	selector, ok := backend.(capability.TrackSelector)
	if !ok {
		return capability.ErrUnsupported
	}
	return selector.CycleSubtitleTrack(ctx)
}

func (d *Dispatcher) subtitleOff(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	selector, ok := backend.(capability.TrackSelector)
	if !ok {
		return capability.ErrUnsupported
	}
	return selector.DisableSubtitles(ctx)
}

func (d *Dispatcher) transcode(ctx context.Context, device *registry.Device, backend capability.MediaCapability, data map[string]any) error {
	return backend.Transcode(ctx, capability.TranscodeRequest{
		Quality:    dataString(data, "quality"),
		RaiseLower: dataString(data, "raise_lower"),
	})
}

// =============================================================================
// Envelope data helpers
// =============================================================================

// buildQuery maps envelope data onto a media query. The key names match the
// voice front end's slots (play, seasnum, epnum). The spoken song, album
// and artist slots are promoted onto type and title.
func buildQuery(data map[string]any) capability.MediaQuery {
	query := capability.MediaQuery{
		Title:         dataString(data, "title"),
		Type:          dataString(data, "type"),
		TVShow:        dataString(data, "tvshow"),
		SeasonNumber:  dataInt(data, "seasnum"),
		EpisodeNumber: dataInt(data, "epnum"),
		Mode:          capability.PlayMode(dataString(data, "play")),
	}
	for _, slot := range []string{"song", "album", "artist"} {
		if v := dataString(data, slot); v != "" {
			query.Type = slot
			query.Title = v
			break
		}
	}
	return query
}

func dataString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	v, _ := data[key].(string)
	return v
}

// dataNumber accepts both JSON numbers and spoken digits as strings.
func dataNumber(data map[string]any, key string) (float64, bool) {
	if data == nil {
		return 0, false
	}
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func dataInt(data map[string]any, key string) int {
	v, ok := dataNumber(data, key)
	if !ok {
		return 0
	}
	return int(v)
}
