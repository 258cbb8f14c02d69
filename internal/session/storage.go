package session

import (
	"errors"
	"sync"
)

// DefaultKey is the namespace key of the session slot.
const DefaultKey = "leankeep_api_tester_session"

// ErrNotFound is returned by Storage.Load when the slot does not exist.
var ErrNotFound = errors.New("session slot not found")

// Storage is a keyed byte slot. Implementations must treat Delete of a
// missing key as success.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStorage) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.slots[key] = cp
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, key)
	return nil
}
