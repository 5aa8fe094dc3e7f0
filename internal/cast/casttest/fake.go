// Package casttest provides an in-memory cast.Client for backend and
// dispatcher tests.
package casttest

import (
	"context"
	"sync"

	"github.com/jmcneish/castbridge/internal/cast"
)

// Call records one method invocation on the fake.
type Call struct {
	Method string
	Args   []any
}

// FakeClient implements cast.Client in memory, recording every call and
// tracking the running app and loaded content well enough to exercise the
// backends' receiver logic.
type FakeClient struct {
	mu    sync.Mutex
	calls []Call

	CurrentStatus cast.Status
	StatusErr     error
	SendErr       error
}

var _ cast.Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) record(method string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

// Snapshot returns the current status under the lock, for assertions that
// race with background dispatches.
func (f *FakeClient) Snapshot() cast.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentStatus
}

// Calls returns the names of every recorded call in order.
func (f *FakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, call := range f.calls {
		names[i] = call.Method
	}
	return names
}

// CallCount returns how many times a method was invoked.
func (f *FakeClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// SentMessages returns every SendMedia payload in order.
func (f *FakeClient) SentMessages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]map[string]any, 0)
	for _, call := range f.calls {
		if call.Method == "SendMedia" {
			msgs = append(msgs, call.Args[0].(map[string]any))
		}
	}
	return msgs
}

// LastMessage returns the most recent SendMedia payload, or nil.
func (f *FakeClient) LastMessage() map[string]any {
	msgs := f.SentMessages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (f *FakeClient) Connect(ctx context.Context) error {
	f.record("Connect")
	return nil
}

func (f *FakeClient) Status(ctx context.Context) (cast.Status, error) {
	f.record("Status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentStatus, f.StatusErr
}

func (f *FakeClient) AppID(ctx context.Context) (string, error) {
	f.record("AppID")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentStatus.AppID, nil
}

func (f *FakeClient) LaunchApp(ctx context.Context, appID, contentID string) error {
	f.record("LaunchApp", appID, contentID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.AppID = appID
	f.CurrentStatus.ContentID = contentID
	return nil
}

func (f *FakeClient) Load(ctx context.Context, mediaURL, contentType string, startSeconds int) error {
	f.record("Load", mediaURL, contentType, startSeconds)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.ContentID = mediaURL
	f.CurrentStatus.PlayerState = "PLAYING"
	return nil
}

func (f *FakeClient) SendMedia(ctx context.Context, msg map[string]any) error {
	f.record("SendMedia", msg)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	if media, ok := msg["media"].(map[string]any); ok {
		if contentID, ok := media["contentId"].(string); ok {
			f.CurrentStatus.ContentID = contentID
		}
	}
	if msgType, _ := msg["type"].(string); msgType == "LOAD" {
		f.CurrentStatus.PlayerState = "PLAYING"
	}
	return nil
}

func (f *FakeClient) Play(ctx context.Context) error {
	f.record("Play")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.PlayerState = "PLAYING"
	return nil
}

func (f *FakeClient) Pause(ctx context.Context) error {
	f.record("Pause")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.PlayerState = "PAUSED"
	return nil
}

func (f *FakeClient) StopMedia(ctx context.Context) error {
	f.record("StopMedia")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.PlayerState = "IDLE"
	return nil
}

func (f *FakeClient) QuitApp(ctx context.Context) error {
	f.record("QuitApp")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus = cast.Status{}
	return nil
}

func (f *FakeClient) SeekTo(ctx context.Context, seconds float64) error {
	f.record("SeekTo", seconds)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.CurrentTime = seconds
	return nil
}

func (f *FakeClient) SetVolume(ctx context.Context, level float32) error {
	f.record("SetVolume", level)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.Volume = level
	return nil
}

func (f *FakeClient) SetMuted(ctx context.Context, muted bool) error {
	f.record("SetMuted", muted)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStatus.Muted = muted
	return nil
}

func (f *FakeClient) Close() error {
	f.record("Close")
	return nil
}
