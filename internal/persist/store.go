// Package persist owns the three versioned JSON documents: the rooms file,
// the global settings and the water heater config. Documents are rewritten
// wholesale on every save and migrated forward on load.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Gabweb/climate-schedule/internal/schedule"
)

const (
	roomsFileName       = "rooms.json"
	settingsFileName    = "settings.json"
	waterHeaterFileName = "water-heater.json"
)

type Store struct {
	dir         string
	stepMinutes int
}

func New(dir string, stepMinutes int) *Store {
	if stepMinutes <= 0 {
		stepMinutes = schedule.DefaultStepMinutes
	}
	return &Store{dir: dir, stepMinutes: stepMinutes}
}

func (s *Store) ensureDataDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// readRaw loads a document as a generic JSON object. found is false when the
// file does not exist yet.
func (s *Store) readRaw(name string) (raw map[string]any, found bool, err error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return raw, true, nil
}

// writeJSON rewrites the whole document atomically, pretty-printed so the
// on-disk form stays human-diffable.
func (s *Store) writeJSON(name string, doc any) error {
	if err := s.ensureDataDir(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		return err
	}
	file.Sync()
	file.Close()

	return os.Rename(tmpPath, path)
}

// decodeInto converts a migrated generic document into its typed form.
func decodeInto(raw map[string]any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
