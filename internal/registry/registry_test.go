package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
	"github.com/jmcneish/castbridge/internal/cast/casttest"
)

type fakeDiscoverer struct {
	devices []cast.DeviceInfo
	scans   atomic.Int32
}

func (f *fakeDiscoverer) Discover(ctx context.Context) ([]cast.DeviceInfo, error) {
	f.scans.Add(1)
	return f.devices, nil
}

func newTestRegistry(discoverer cast.Discoverer) *Registry {
	return New(Options{
		Discoverer:    discoverer,
		ClientFactory: func(info cast.DeviceInfo) cast.Client { return casttest.NewFakeClient() },
		BackendFactory: func(name, deviceName string, client cast.Client) capability.MediaCapability {
			if name == "generic" {
				return capability.NewGeneric(client)
			}
			return nil
		},
		AppIDs:         map[string]string{"AAAA": "generic"},
		RescanInterval: time.Hour,
	})
}

func devices(names ...string) []cast.DeviceInfo {
	infos := make([]cast.DeviceInfo, len(names))
	for i, name := range names {
		infos[i] = cast.DeviceInfo{Name: name, UUID: "uuid-" + name, Addr: "10.0.0.1", Port: 8009}
	}
	return infos
}

func TestStartRequiresDevices(t *testing.T) {
	reg := newTestRegistry(&fakeDiscoverer{})
	err := reg.Start(context.Background())
	require.Error(t, err)
}

func TestScanRegistersOnlyNewDevices(t *testing.T) {
	discoverer := &fakeDiscoverer{devices: devices("Living Room")}
	reg := newTestRegistry(discoverer)
	ctx := context.Background()

	require.NoError(t, reg.Scan(ctx))
	require.Equal(t, 1, reg.Count())

	first, err := reg.Match("Living Room")
	require.NoError(t, err)

	// A rescan must not replace the existing device.
	discoverer.devices = devices("Living Room", "Bedroom")
	require.NoError(t, reg.Scan(ctx))
	require.Equal(t, 2, reg.Count())

	again, err := reg.Match("Living Room")
	require.NoError(t, err)
	require.Same(t, first, again)
}

// gatedClient blocks in Connect until released, so two scans can be held
// in flight at the same point.
type gatedClient struct {
	*casttest.FakeClient
	arrived chan<- struct{}
	release <-chan struct{}
}

func (c *gatedClient) Connect(ctx context.Context) error {
	c.arrived <- struct{}{}
	<-c.release
	return c.FakeClient.Connect(ctx)
}

func TestOverlappingScansRegisterOnce(t *testing.T) {
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})

	var mu sync.Mutex
	var created []*gatedClient

	reg := New(Options{
		Discoverer: &fakeDiscoverer{devices: devices("Living Room")},
		ClientFactory: func(info cast.DeviceInfo) cast.Client {
			client := &gatedClient{
				FakeClient: casttest.NewFakeClient(),
				arrived:    arrived,
				release:    release,
			}
			mu.Lock()
			created = append(created, client)
			mu.Unlock()
			return client
		},
		BackendFactory: func(name, deviceName string, client cast.Client) capability.MediaCapability {
			return nil
		},
		RescanInterval: time.Hour,
	})

	scanErrs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			scanErrs <- reg.Scan(context.Background())
		}()
	}

	// Hold both scans past the known-device check, then let them race to
	// register.
	<-arrived
	<-arrived
	close(release)
	require.NoError(t, <-scanErrs)
	require.NoError(t, <-scanErrs)

	require.Equal(t, 1, reg.Count())
	require.Len(t, created, 2)

	closed := 0
	for _, client := range created {
		closed += client.CallCount("Close")
	}
	require.Equal(t, 1, closed)
}

func TestMatch(t *testing.T) {
	discoverer := &fakeDiscoverer{devices: devices("Media Room", "The Bedroom", "Kitchen Display")}
	reg := newTestRegistry(discoverer)
	require.NoError(t, reg.Scan(context.Background()))

	t.Run("leading article on the room is stripped", func(t *testing.T) {
		device, err := reg.Match("The Media Room")
		require.NoError(t, err)
		require.Equal(t, "Media Room", device.Name)
	})

	t.Run("leading article on the device is stripped", func(t *testing.T) {
		device, err := reg.Match("bedroom")
		require.NoError(t, err)
		require.Equal(t, "The Bedroom", device.Name)
	})

	t.Run("partial room names match", func(t *testing.T) {
		device, err := reg.Match("kitchen")
		require.NoError(t, err)
		require.Equal(t, "Kitchen Display", device.Name)
	})

	t.Run("case is ignored", func(t *testing.T) {
		device, err := reg.Match("MEDIA ROOM")
		require.NoError(t, err)
		require.Equal(t, "Media Room", device.Name)
	})

	t.Run("unknown room fails with device-not-found", func(t *testing.T) {
		_, err := reg.Match("Garage")
		require.True(t, apperrors.IsCode(err, apperrors.ErrorCodeDeviceNotFound))
	})

	t.Run("empty room is rejected", func(t *testing.T) {
		_, err := reg.Match("")
		require.True(t, apperrors.IsCode(err, apperrors.ErrorCodeValidationError))
	})
}

func TestMatchPrefersShortestName(t *testing.T) {
	discoverer := &fakeDiscoverer{devices: devices("Bedroom TV", "Bedroom")}
	reg := newTestRegistry(discoverer)
	require.NoError(t, reg.Scan(context.Background()))

	device, err := reg.Match("bedroom")
	require.NoError(t, err)
	require.Equal(t, "Bedroom", device.Name)
}

func TestInferBackend(t *testing.T) {
	discoverer := &fakeDiscoverer{devices: devices("Living Room")}
	reg := newTestRegistry(discoverer)
	require.NoError(t, reg.Scan(context.Background()))

	device, err := reg.Match("living room")
	require.NoError(t, err)

	t.Run("known app id resolves its backend", func(t *testing.T) {
		backend, err := device.InferBackend("AAAA")
		require.NoError(t, err)
		_, isGeneric := backend.(*capability.Generic)
		require.True(t, isGeneric)
	})

	t.Run("foreign app id falls back to native control", func(t *testing.T) {
		backend, err := device.InferBackend("ZZZZ")
		require.NoError(t, err)
		require.NotNil(t, backend)
	})

	t.Run("unconfigured backend errors", func(t *testing.T) {
		_, err := device.Backend("library")
		require.True(t, apperrors.IsCode(err, apperrors.ErrorCodeBackendUnavailable))
	})
}
