// Package settings persists small per-device preferences, currently the
// last chosen transcode bitrate, so quality choices survive restarts.
package settings

// Store is the per-device settings persistence abstraction. Implementations
// are interchangeable: SQLite for the daemon, memory for tests.
type Store interface {
	// Bitrate returns the last persisted bitrate ceiling for a device.
	// A device with no stored settings returns 0 (uncapped).
	Bitrate(deviceID string) (int, error)

	// SetBitrate persists the bitrate ceiling for a device.
	SetBitrate(deviceID string, bitrate int) error
}
