// Package cache stores remote model listings under the XDG cache dir so
// repeated `models --remote` calls do not hit the provider every time.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	// ModelListTTL is how long a cached listing stays fresh.
	ModelListTTL = 30 * time.Minute

	appDir = "codewright"
)

// Model is one cached model entry. It mirrors what provider listing
// endpoints return so cached and fresh listings print identically.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Created     int64  `json:"created,omitempty"`
	OwnedBy     string `json:"owned_by,omitempty"`
}

// ModelList is a provider's cached listing.
type ModelList struct {
	Models    []Model   `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether the listing is within its TTL.
func (l *ModelList) Fresh() bool {
	if l == nil {
		return false
	}
	return time.Since(l.FetchedAt) < ModelListTTL
}

func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appDir), nil
}

func listPath(provider string) (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, provider+"-models.json"), nil
}

// ReadModels loads the cached listing for a provider. A missing or
// corrupt file returns an error; callers fall back to fetching.
func ReadModels(provider string) (*ModelList, error) {
	path, err := listPath(provider)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list ModelList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// WriteModels replaces the cached listing for a provider. The write goes
// through a temp file and rename so readers never see a partial file.
func WriteModels(provider string, models []Model) error {
	dir, err := cacheDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path, err := listPath(provider)
	if err != nil {
		return err
	}

	data, err := json.Marshal(ModelList{Models: models, FetchedAt: time.Now()})
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, provider+"-models-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	renamed = true
	return nil
}
