// Package registry tracks the cast devices on the network and routes room
// names to them. It owns per-device command serialization and the lazy
// construction of playback backends.
package registry

import (
	"log"
	"sync"

	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
)

// BackendFactory builds a named backend for one device. deviceName keys
// per-device state such as persisted settings.
type BackendFactory func(name, deviceName string, client cast.Client) capability.MediaCapability

// Device is one registered cast device. Commands against the device are
// serialized through its mutex so backend state is never raced.
type Device struct {
	Name string
	UUID string

	client  cast.Client
	logger  *log.Logger
	factory BackendFactory

	mu       sync.Mutex
	backends map[string]capability.MediaCapability
	generic  capability.MediaCapability

	// receiver app id -> backend name, for inferring the backend from
	// whatever is already running.
	appIDs map[string]string
}

func newDevice(info cast.DeviceInfo, client cast.Client, factory BackendFactory, appIDs map[string]string, logger *log.Logger) *Device {
	return &Device{
		Name:     info.Name,
		UUID:     info.UUID,
		client:   client,
		logger:   logger,
		factory:  factory,
		backends: make(map[string]capability.MediaCapability),
		generic:  capability.NewGeneric(client),
		appIDs:   appIDs,
	}
}

// Lock serializes command execution against this device.
func (d *Device) Lock() { d.mu.Lock() }

// Unlock releases the command serialization lock.
func (d *Device) Unlock() { d.mu.Unlock() }

// Client returns the device's cast client.
func (d *Device) Client() cast.Client { return d.client }

// Backend returns the named backend, constructing it on first use. An
// unconfigured backend yields a backend-unavailable error.
func (d *Device) Backend(name string) (capability.MediaCapability, error) {
	if backend, ok := d.backends[name]; ok {
		return backend, nil
	}
	backend := d.factory(name, d.Name, d.client)
	if backend == nil {
		return nil, apperrors.NewBackendUnavailableError(name)
	}
	d.backends[name] = backend
	return backend, nil
}

// InferBackend resolves the backend controlling the given receiver app id,
// falling back to the native device capability for foreign apps.
func (d *Device) InferBackend(appID string) (capability.MediaCapability, error) {
	if name, ok := d.appIDs[appID]; ok {
		backend, err := d.Backend(name)
		if err == nil {
			return backend, nil
		}
		d.logger.Printf("Backend %s for running app %s is not configured, using native control", name, appID)
	}
	return d.generic, nil
}

// Close tears down the device connection.
func (d *Device) Close() error {
	return d.client.Close()
}
