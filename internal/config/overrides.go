package config

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Overrides holds per-symbol parameter overrides loaded from a JSON file of
// the form:
//
//	{
//	  "EURUSD":   {"atr_multiplier": 3.0, "min_ticks_to_hold": 12},
//	  "defaults": {"atr_multiplier": 2.0}
//	}
//
// Lookup order is symbol, then "defaults", then the caller's fallback. A
// missing or unreadable file is not an error: everything falls back.
type Overrides struct {
	path string

	mu     sync.RWMutex
	values map[string]map[string]float64
}

// LoadOverrides reads the override file if it exists.
func LoadOverrides(path string) *Overrides {
	o := &Overrides{path: path, values: map[string]map[string]float64{}}
	if err := o.Reload(); err != nil {
		log.Printf("Overrides unavailable (%s): %v", path, err)
	}
	return o
}

// Reload re-reads the override file, replacing the in-memory table.
func (o *Overrides) Reload() error {
	b, err := os.ReadFile(o.path)
	if err != nil {
		return err
	}

	var values map[string]map[string]float64
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}

	o.mu.Lock()
	o.values = values
	o.mu.Unlock()
	log.Printf("Overrides reloaded from %s (%d entries)", o.path, len(values))
	return nil
}

// SymbolFloat resolves a float parameter for a symbol.
func (o *Overrides) SymbolFloat(symbol, key string, fallback float64) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if m, ok := o.values[symbol]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := o.values["defaults"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return fallback
}

// SymbolInt resolves an integer parameter for a symbol.
func (o *Overrides) SymbolInt(symbol, key string, fallback int) int {
	return int(o.SymbolFloat(symbol, key, float64(fallback)))
}

// Watch reloads the override file whenever it changes on disk, until the
// context is cancelled. Watching the directory rather than the file survives
// editors that replace-by-rename.
func (o *Overrides) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(o.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(o.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := o.Reload(); err != nil {
					log.Printf("Override reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Override watcher error: %v", err)
			}
		}
	}()

	return nil
}
