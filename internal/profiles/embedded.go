package profiles

import (
	"embed"
	"fmt"
)

//go:embed builtin/*/profile.yaml builtin/*/system.md
var builtinFS embed.FS

// builtinProfileNames lists all built-in profile names.
var builtinProfileNames = []string{
	"default",
	"reviewer",
	"planner",
}

// getBuiltinProfile loads a built-in profile by name.
func getBuiltinProfile(name string) (*Profile, error) {
	profileYAML, err := builtinFS.ReadFile(fmt.Sprintf("builtin/%s/profile.yaml", name))
	if err != nil {
		return nil, fmt.Errorf("builtin profile %s not found", name)
	}

	systemMD, _ := builtinFS.ReadFile(fmt.Sprintf("builtin/%s/system.md", name))

	return LoadFromEmbedded(name, profileYAML, systemMD)
}

// getBuiltinProfiles returns all built-in profiles.
func getBuiltinProfiles() []*Profile {
	var result []*Profile
	for _, name := range builtinProfileNames {
		if p, err := getBuiltinProfile(name); err == nil {
			result = append(result, p)
		}
	}
	return result
}

// IsBuiltinProfile checks if a profile name is a built-in.
func IsBuiltinProfile(name string) bool {
	for _, n := range builtinProfileNames {
		if n == name {
			return true
		}
	}
	return false
}
