// Package update checks GitHub for newer releases in the background and
// warns once per day when the running binary is behind.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/config"
)

const (
	checkInterval = 24 * time.Hour
	userAgent     = "codewright-cli"

	// SkipEnvVar disables update checks entirely when set.
	SkipEnvVar = "CODEWRIGHT_SKIP_UPDATE_CHECK"

	repoOwner       = "codewright"
	repoName        = "codewright"
	checkCommandArg = "__update-check"
)

// checkCmd is the hidden command the background check process runs.
var checkCmd = &cobra.Command{
	Use:    checkCommandArg,
	Short:  "internal update check",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return PerformCheck(cmd.Context())
	},
}

// Setup wires update checking into the CLI: warn from cached state on
// startup, and refresh that state in a detached process at most once per
// interval. Dev builds never check.
func Setup(rootCmd *cobra.Command, version string) {
	rootCmd.AddCommand(checkCmd)
	cobra.OnInitialize(func() {
		if os.Getenv(SkipEnvVar) != "" {
			return
		}
		if version == "dev" {
			return
		}
		state, err := LoadState()
		if err == nil {
			WarnIfOutdated(version, state)
		}
		if ShouldCheck(state) {
			if err := LaunchBackgroundCheck(); err != nil {
				fmt.Fprintf(os.Stderr, "codewright: failed to schedule update check: %v\n", err)
			}
		}
	})
}

// ShouldCheck reports whether the interval since the last check has
// passed. Missing state always checks.
func ShouldCheck(state *State) bool {
	if state == nil || state.LastChecked.IsZero() {
		return true
	}
	return time.Since(state.LastChecked) >= checkInterval
}

// LaunchBackgroundCheck re-execs the binary with the hidden check
// command so the network round trip never delays the user's command.
func LaunchBackgroundCheck() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, checkCommandArg)
	cmd.Env = append(os.Environ(), SkipEnvVar+"=1")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Start()
}

// PerformCheck fetches the latest release tag and records it. Fetch
// failures are recorded too so the next run does not retry immediately.
func PerformCheck(ctx context.Context) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	state, err := loadStateFromDir(configDir)
	if err != nil {
		state = &State{}
	}

	info, err := FetchLatestRelease(ctx)
	state.LastChecked = time.Now().UTC()
	if err != nil {
		state.LastError = err.Error()
		return saveStateToDir(configDir, state)
	}
	state.LatestVersion = info.TagName
	state.LastError = ""
	return saveStateToDir(configDir, state)
}

// WarnIfOutdated prints a one-line notice when the cached latest release
// is newer than the running version, at most once per interval per
// release.
func WarnIfOutdated(currentVersion string, state *State) {
	if state == nil {
		return
	}
	latest := strings.TrimSpace(state.LatestVersion)
	if latest == "" || !IsOutdated(currentVersion, latest) {
		return
	}

	seen := state.NotifiedVersion == latest &&
		!state.LastNotified.IsZero() &&
		time.Since(state.LastNotified) < checkInterval
	if seen {
		return
	}

	fmt.Fprintf(os.Stderr, "A newer codewright release (%s) is available: https://github.com/%s/%s/releases\n",
		latest, repoOwner, repoName)
	state.NotifiedVersion = latest
	state.LastNotified = time.Now().UTC()
	_ = SaveState(state)
}

// ReleaseInfo carries the release tag extracted from the redirect.
type ReleaseInfo struct {
	TagName string `json:"tag_name"`
}

// releaseBaseURL is swapped for a test server in tests.
var releaseBaseURL = "https://github.com"

// FetchLatestRelease resolves the latest release tag by following the
// releases/latest redirect instead of the API, which avoids the
// unauthenticated API rate limit.
func FetchLatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	releaseURL := fmt.Sprintf("%s/%s/%s/releases/latest", releaseBaseURL, repoOwner, repoName)
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("expected redirect, got %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, errors.New("redirect response missing Location header")
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}

	// The redirect lands on /<owner>/<repo>/releases/tag/<tag>.
	expectedPrefix := fmt.Sprintf("/%s/%s/releases/tag/", repoOwner, repoName)
	if !strings.HasPrefix(parsed.Path, expectedPrefix) {
		return nil, fmt.Errorf("unexpected redirect path: %s", parsed.Path)
	}
	tag := path.Base(parsed.Path)
	if tag == "" || tag == "." || tag == "/" {
		return nil, fmt.Errorf("could not parse tag from redirect URL: %s", location)
	}
	return &ReleaseInfo{TagName: tag}, nil
}
