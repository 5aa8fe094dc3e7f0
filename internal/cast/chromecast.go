package cast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/vishen/go-chromecast/application"
	castv2 "github.com/vishen/go-chromecast/cast"
)

var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

const mediaNamespace = "urn:x-cast:com.google.cast.media"

// mediaMessage adapts an arbitrary media-namespace payload to the protocol
// library's payload contract.
type mediaMessage struct {
	body map[string]any
}

func (m *mediaMessage) SetRequestId(id int) {
	m.body["requestId"] = id
}

func (m *mediaMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.body)
}

// ChromecastClient is the production Client implementation over
// go-chromecast. The underlying application is not safe for concurrent
// command issuance; the registry holds a per-device mutex across commands.
type ChromecastClient struct {
	mu        sync.Mutex
	app       *application.Application
	conn      castv2.Conn
	host      string
	port      int
	connected bool
	logger    *log.Logger
}

// NewChromecastClient builds a client for one device. The connection is
// established lazily on the first Connect call.
func NewChromecastClient(info DeviceInfo, logger *log.Logger) *ChromecastClient {
	if logger == nil {
		logger = log.Default()
	}
	conn := castv2.NewConnection()
	app := application.NewApplication(
		application.WithConnection(conn),
		application.WithConnectionRetries(5),
	)
	port := info.Port
	if port == 0 {
		port = 8009
	}
	return &ChromecastClient{
		app:    app,
		conn:   conn,
		host:   info.Addr,
		port:   port,
		logger: logger,
	}
}

func (c *ChromecastClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if err := c.app.Start(c.host, c.port); err != nil {
		return fmt.Errorf("cast connect %s:%d: %w", c.host, c.port, err)
	}
	c.connected = true
	return nil
}

func (c *ChromecastClient) Status(ctx context.Context) (Status, error) {
	if err := c.app.Update(); err != nil {
		return Status{}, fmt.Errorf("cast status: %w", err)
	}
	app, media, vol := c.app.Status()

	status := Status{PlayerState: "IDLE"}
	if app != nil {
		status.AppID = app.AppId
	}
	if vol != nil {
		status.Volume = float32(vol.Level)
		status.Muted = vol.Muted
	}
	if media != nil {
		status.PlayerState = media.PlayerState
		status.CurrentTime = float64(media.CurrentTime)
		status.ContentID = media.Media.ContentId
		if media.Media.Duration > 0 {
			status.Duration = float64(media.Media.Duration)
		}
	}
	return status, nil
}

func (c *ChromecastClient) AppID(ctx context.Context) (string, error) {
	if err := c.app.Update(); err != nil {
		return "", fmt.Errorf("cast app id: %w", err)
	}
	app := c.app.App()
	if app == nil {
		return "", nil
	}
	return app.AppId, nil
}

func (c *ChromecastClient) LaunchApp(ctx context.Context, appID, contentID string) error {
	return c.app.LoadApp(appID, contentID)
}

func (c *ChromecastClient) Load(ctx context.Context, mediaURL, contentType string, startSeconds int) error {
	return c.app.Load(mediaURL, startSeconds, contentType, false, false, false)
}

func (c *ChromecastClient) SendMedia(ctx context.Context, msg map[string]any) error {
	if err := c.app.Update(); err != nil {
		return fmt.Errorf("cast send: %w", err)
	}
	app := c.app.App()
	if app == nil || app.TransportId == "" {
		return fmt.Errorf("cast send: no running receiver")
	}

	payload := &mediaMessage{body: msg}
	requestID := nextRequestID()
	payload.SetRequestId(requestID)
	if err := c.conn.Send(requestID, payload, "sender-0", app.TransportId, mediaNamespace); err != nil {
		return fmt.Errorf("cast send: %w", err)
	}
	return nil
}

func (c *ChromecastClient) Play(ctx context.Context) error {
	return c.app.Unpause()
}

func (c *ChromecastClient) Pause(ctx context.Context) error {
	return c.app.Pause()
}

func (c *ChromecastClient) StopMedia(ctx context.Context) error {
	return c.app.StopMedia()
}

func (c *ChromecastClient) QuitApp(ctx context.Context) error {
	return c.app.Stop()
}

func (c *ChromecastClient) SeekTo(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return c.app.SeekFromStart(int(seconds))
}

func (c *ChromecastClient) SetVolume(ctx context.Context, level float32) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return c.app.SetVolume(level)
}

func (c *ChromecastClient) SetMuted(ctx context.Context, muted bool) error {
	return c.app.SetMuted(muted)
}

func (c *ChromecastClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.app.Close(false)
}
