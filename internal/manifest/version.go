package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Satisfies reports whether version satisfies the npm-style range rng.
// Ranges that are not semver constraints (file:, link:, workspace:, git URLs,
// dist tags) cannot be checked; ok is false for those and err is nil.
func Satisfies(version, rng string) (satisfied, ok bool, err error) {
	rng = strings.TrimSpace(rng)
	if rng == "" || rng == "*" || rng == "latest" {
		return true, true, nil
	}
	if strings.Contains(rng, ":") || strings.Contains(rng, "/") {
		return false, false, nil
	}

	v, err := parseSemver(version)
	if err != nil {
		return false, false, fmt.Errorf("parsing version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return false, false, nil
	}
	return c.Check(v), true, nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	return semver.NewVersion(version)
}
