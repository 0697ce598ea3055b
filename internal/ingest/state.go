package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateFile = "state.json"

// Marker records a completed ingestion of one collection. Its presence,
// not the index size, is what marks a corpus as loaded.
type Marker struct {
	RunID          string    `json:"run_id"`
	CorpusChecksum string    `json:"corpus_checksum"`
	Documents      int       `json:"documents"`
	Units          int       `json:"units"`
	CompletedAt    time.Time `json:"completed_at"`
}

// State holds completion markers keyed by collection name.
type State struct {
	Collections map[string]*Marker `json:"collections"`
}

func newState() *State {
	return &State{Collections: make(map[string]*Marker)}
}

// LoadState reads state.json from dir. A missing file or an empty dir
// yields empty state.
func LoadState(dir string) (*State, error) {
	if dir == "" {
		return newState(), nil
	}
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", stateFile, err)
	}
	if state.Collections == nil {
		state.Collections = make(map[string]*Marker)
	}
	return &state, nil
}

// Save writes the state to dir/state.json via a temporary file so a crash
// never leaves a truncated marker behind. An empty dir is a no-op.
func (s *State) Save(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(dir, stateFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, stateFile))
}

// Marker returns the completion marker for a collection, or nil.
func (s *State) Marker(collection string) *Marker {
	return s.Collections[collection]
}
