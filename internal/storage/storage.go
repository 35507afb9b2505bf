package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Record keys used by the core. One key maps to one JSON document.
const (
	KeyAccounting = "total_positions"
	KeyPositions  = "positions"
	KeyJournal    = "position_journal"
)

// ErrNotFound is returned when a key has no stored record.
var ErrNotFound = errors.New("storage: record not found")

// RecordStore is a keyed JSON record store. The same core logic runs against
// a file-backed store in production and an in-memory store in tests.
type RecordStore interface {
	Get(key string, v any) error
	Put(key string, v any) error
	Delete(key string) error
}

// FileStore keeps one pretty-printed JSON file per key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string, v any) error {
	b, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Put writes the record atomically: marshal, write a temp file in the same
// directory, fsync, rename over the destination.
func (s *FileStore) Put(key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dst := s.path(key)
	tmp := dst + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dst)
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemStore is an in-memory RecordStore for tests.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]json.RawMessage
}

func NewMemStore() *MemStore {
	return &MemStore{records: map[string]json.RawMessage{}}
}

func (s *MemStore) Get(key string, v any) error {
	s.mu.RLock()
	b, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(b, v)
}

func (s *MemStore) Put(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[key] = b
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// SaveOrLog persists a record and downgrades any failure to a log entry. The
// in-memory state stays authoritative for the rest of the process; the next
// cycle retries the write with fresh data.
func SaveOrLog(store RecordStore, key string, v any) {
	if err := store.Put(key, v); err != nil {
		log.Printf("ERROR: failed to persist %s: %v", key, err)
	}
}
