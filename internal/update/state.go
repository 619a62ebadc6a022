package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/codewright/codewright/internal/config"
)

const stateFileName = "update-check.json"

// State is the persisted bookkeeping for update checks: when we last
// asked GitHub, what it answered, and what the user was last told.
type State struct {
	LastChecked     time.Time `json:"last_checked"`
	LatestVersion   string    `json:"latest_version"`
	LastError       string    `json:"last_error,omitempty"`
	NotifiedVersion string    `json:"notified_version,omitempty"`
	LastNotified    time.Time `json:"last_notified"`
}

// LoadState reads the state file from the config directory.
func LoadState() (*State, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return loadStateFromDir(dir)
}

// SaveState writes the state file to the config directory.
func SaveState(state *State) error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	return saveStateToDir(dir, state)
}

func loadStateFromDir(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func saveStateToDir(dir string, state *State) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stateFileName), data, 0o644)
}
