package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Registry manages profile discovery and resolution.
type Registry struct {
	// Search paths in priority order (first match wins)
	searchPaths []searchPath

	// Whether to include built-in profiles
	useBuiltin bool

	// Cache of loaded profiles (name -> profile)
	cache map[string]*Profile
}

type searchPath struct {
	path   string
	source Source
}

// NewRegistry creates a profile registry with the standard search paths:
// project-local, then user-global, then built-ins.
func NewRegistry() *Registry {
	r := &Registry{
		useBuiltin: true,
		cache:      make(map[string]*Profile),
	}

	if localDir, err := LocalProfilesDir(); err == nil {
		r.searchPaths = append(r.searchPaths, searchPath{path: localDir, source: SourceLocal})
	}
	if userDir, err := UserProfilesDir(); err == nil {
		r.searchPaths = append(r.searchPaths, searchPath{path: userDir, source: SourceUser})
	}

	return r
}

// Get retrieves a profile by name. Resolution order: local > user > builtin.
func (r *Registry) Get(name string) (*Profile, error) {
	if p, ok := r.cache[name]; ok {
		return p, nil
	}

	var profile *Profile
	var err error

	for _, sp := range r.searchPaths {
		dir := filepath.Join(sp.path, name)
		if isProfileDir(dir) {
			profile, err = LoadFromDir(dir, sp.source)
			if err != nil {
				return nil, fmt.Errorf("load profile %s: %w", name, err)
			}
			break
		}
	}

	if profile == nil && r.useBuiltin {
		profile, err = getBuiltinProfile(name)
		if err != nil {
			return nil, fmt.Errorf("profile not found: %s", name)
		}
	}

	if profile == nil {
		return nil, fmt.Errorf("profile not found: %s", name)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}

	r.cache[name] = profile
	return profile, nil
}

// List returns all available profiles, first-found name winning, sorted by
// source then name.
func (r *Registry) List() []*Profile {
	seen := make(map[string]bool)
	var result []*Profile

	for _, sp := range r.searchPaths {
		for _, p := range scanDir(sp.path, sp.source) {
			if !seen[p.Name] {
				seen[p.Name] = true
				result = append(result, p)
			}
		}
	}

	if r.useBuiltin {
		for _, p := range getBuiltinProfiles() {
			if !seen[p.Name] {
				seen[p.Name] = true
				result = append(result, p)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source < result[j].Source
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// ListNames returns available profile names, for flag completion.
func (r *Registry) ListNames() []string {
	seen := make(map[string]bool)
	var names []string

	for _, sp := range r.searchPaths {
		entries, err := os.ReadDir(sp.path)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !isProfileDir(filepath.Join(sp.path, entry.Name())) {
				continue
			}
			if !seen[entry.Name()] {
				seen[entry.Name()] = true
				names = append(names, entry.Name())
			}
		}
	}

	if r.useBuiltin {
		for _, name := range builtinProfileNames {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names
}

// scanDir scans a directory for profile subdirectories, skipping invalid ones.
func scanDir(dir string, source Source) []*Profile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var result []*Profile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		profileDir := filepath.Join(dir, entry.Name())
		if !isProfileDir(profileDir) {
			continue
		}
		p, err := LoadFromDir(profileDir, source)
		if err != nil {
			continue
		}
		result = append(result, p)
	}
	return result
}

// isProfileDir checks if a directory contains a profile.yaml file.
func isProfileDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "profile.yaml"))
	return err == nil && !info.IsDir()
}

// UserProfilesDir returns the path for user-global profiles. Uses
// $XDG_CONFIG_HOME if set, otherwise ~/.config.
func UserProfilesDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "codewright", "profiles"), nil
}

// LocalProfilesDir returns the path for project-local profiles.
func LocalProfilesDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ".codewright", "profiles"), nil
}
