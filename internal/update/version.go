package update

import (
	"strconv"
	"strings"
)

// IsOutdated reports whether current is an older release than latest.
// Unparseable versions (like "dev") never count as outdated.
func IsOutdated(current, latest string) bool {
	current = NormalizeVersion(current)
	latest = NormalizeVersion(latest)
	if current == "" || latest == "" {
		return false
	}
	cmp, ok := CompareVersions(current, latest)
	return ok && cmp < 0
}

// NormalizeVersion strips the v prefix and any non-numeric suffix, so
// "v1.2.3-beta1" becomes "1.2.3".
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexFunc(v, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i >= 0 {
		v = v[:i]
	}
	return v
}

// CompareVersions compares dotted numeric versions. Returns -1/0/1 and
// whether both sides parsed; missing components compare as zero, so
// "1.2" equals "1.2.0".
func CompareVersions(a, b string) (int, bool) {
	aParts, ok := parseVersionParts(a)
	if !ok {
		return 0, false
	}
	bParts, ok := parseVersionParts(b)
	if !ok {
		return 0, false
	}

	n := max(len(aParts), len(bParts))
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av < bv {
			return -1, true
		}
		if av > bv {
			return 1, true
		}
	}
	return 0, true
}

func parseVersionParts(v string) ([]int, bool) {
	if v == "" {
		return nil, false
	}
	pieces := strings.Split(v, ".")
	parts := make([]int, len(pieces))
	for i, piece := range pieces {
		n, err := strconv.Atoi(piece)
		if err != nil {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}
