package settings

import "sync"

// MemoryStore is an in-memory Store for tests and credential-less runs.
type MemoryStore struct {
	mu       sync.Mutex
	bitrates map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bitrates: make(map[string]int)}
}

func (store *MemoryStore) Bitrate(deviceID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.bitrates[deviceID], nil
}

func (store *MemoryStore) SetBitrate(deviceID string, bitrate int) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.bitrates[deviceID] = bitrate
	return nil
}
