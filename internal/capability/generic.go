package capability

import (
	"context"

	"github.com/jmcneish/castbridge/internal/cast"
)

// Generic drives whatever is already loaded on the device through the
// native media channel. It is the fallback when no configured backend
// matches the running receiver app: play/pause/stop/seek only, everything
// else is a documented no-op.
type Generic struct {
	client cast.Client
}

// NewGeneric creates the native device capability.
func NewGeneric(client cast.Client) *Generic {
	return &Generic{client: client}
}

func (g *Generic) Play(ctx context.Context) error {
	return g.client.Play(ctx)
}

func (g *Generic) Pause(ctx context.Context) error {
	return g.client.Pause(ctx)
}

func (g *Generic) Stop(ctx context.Context) error {
	return g.client.QuitApp(ctx)
}

func (g *Generic) Seek(ctx context.Context, seconds float64) error {
	return g.client.SeekTo(ctx, seconds)
}

func (g *Generic) Next(ctx context.Context) error     { return ErrUnsupported }
func (g *Generic) Previous(ctx context.Context) error { return ErrUnsupported }

func (g *Generic) Shuffle(ctx context.Context, on bool) error { return ErrUnsupported }
func (g *Generic) Loop(ctx context.Context, on bool) error    { return ErrUnsupported }

func (g *Generic) Transcode(ctx context.Context, req TranscodeRequest) error {
	return ErrUnsupported
}

func (g *Generic) PlayItem(ctx context.Context, query MediaQuery) error {
	return ErrUnsupported
}

func (g *Generic) FindItem(ctx context.Context, query MediaQuery) error {
	return ErrUnsupported
}
