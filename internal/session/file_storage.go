package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

// DefaultSessionDir is the default directory for session slots, relative to
// the user's home directory.
const DefaultSessionDir = ".config/lkp/session"

// watchDebounce collapses the burst of events a single write produces.
const watchDebounce = 200 * time.Millisecond

// FileStorage keeps each slot in its own JSON file.
//
// SECURITY: slots hold live tokens. The directory is created 0700 and files
// are written 0600. Slot contents are never logged.
type FileStorage struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStorage creates the storage directory if needed. An empty dir
// resolves to ~/.config/lkp/session.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultSessionDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &FileStorage{dir: dir}, nil
}

// Dir returns the directory slots are stored in.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *FileStorage) Path(key string) string {
	return filepath.Join(s.dir, slotFileName(key))
}

// slotFileName hashes the key into a filesystem-safe name.
func slotFileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16]) + ".json"
}

func (s *FileStorage) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- path is derived from a hashed key, not user input
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(key), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Watch reports changes to the slot made by anyone, including this
// process. onChange receives removed=true when the slot file was deleted or
// renamed away. Watch blocks until ctx is cancelled.
func (s *FileStorage) Watch(ctx context.Context, key string, onChange func(removed bool)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	target := slotFileName(key)
	var (
		timer   *time.Timer
		removed bool
	)
	fire := make(chan struct{}, 1)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			removed = event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			onChange(removed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("SessionWatch", err, "fsnotify error")
		}
	}
}
