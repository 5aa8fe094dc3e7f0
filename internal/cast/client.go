// Package cast wraps the cast-device wire protocol behind a narrow client
// interface so backends and tests never touch the protocol library directly.
package cast

import "context"

// Status is a point-in-time snapshot of the device's playback state. It is
// polled per command and never cached beyond it.
type Status struct {
	AppID       string  // running receiver application id, "" when idle
	PlayerState string  // "PLAYING", "PAUSED", "IDLE", "BUFFERING"
	ContentID   string  // backend-specific reference to the loaded item
	CurrentTime float64 // elapsed seconds
	Duration    float64 // total seconds, 0 when unknown
	Volume      float32 // 0.0 to 1.0
	Muted       bool
}

// DeviceInfo describes one discovered cast device.
type DeviceInfo struct {
	Name string
	UUID string
	Addr string
	Port int
}

// Discoverer enumerates cast devices on the network.
type Discoverer interface {
	Discover(ctx context.Context) ([]DeviceInfo, error)
}

// Client is the device-side command surface. Implementations are not safe
// for concurrent command issuance; callers serialize per device.
type Client interface {
	// Connect establishes (or re-establishes) the device connection.
	Connect(ctx context.Context) error

	// Status polls the device for a fresh playback snapshot.
	Status(ctx context.Context) (Status, error)

	// AppID returns the currently running receiver application id.
	AppID(ctx context.Context) (string, error)

	// LaunchApp starts a receiver application, optionally with content to
	// play (the video receiver takes a video id here).
	LaunchApp(ctx context.Context, appID, contentID string) error

	// Load loads a media URL onto the default receiver.
	Load(ctx context.Context, mediaURL, contentType string, startSeconds int) error

	// SendMedia sends a raw media-namespace message to the running
	// receiver. Used for receiver-specific load/show commands.
	SendMedia(ctx context.Context, msg map[string]any) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	StopMedia(ctx context.Context) error
	QuitApp(ctx context.Context) error

	// SeekTo seeks to an absolute position in seconds.
	SeekTo(ctx context.Context, seconds float64) error

	SetVolume(ctx context.Context, level float32) error
	SetMuted(ctx context.Context, muted bool) error

	Close() error
}

// Factory builds a Client for a discovered device.
type Factory func(info DeviceInfo) Client
