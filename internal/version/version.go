// Package version compares framework version strings. Versions are
// accepted with or without a leading "v" and may omit minor or patch parts.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Dev marks an unreleased framework build.
const Dev = "dev"

// Normalize strips surrounding space and one leading "v".
func Normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// Canonical returns the canonical "vMAJOR.MINOR.PATCH[-pre]" form of v, or
// "" when v is not a semantic version.
func Canonical(v string) string {
	n := Normalize(v)
	if n == "" || n == Dev {
		return ""
	}
	return semver.Canonical("v" + n)
}

// Valid reports whether v parses as a semantic version.
func Valid(v string) bool {
	return Canonical(v) != ""
}

// Compare returns -1, 0 or +1 as a is older than, equal to or newer than b.
// Invalid versions sort before valid ones and compare equal to each other.
func Compare(a, b string) int {
	return semver.Compare(Canonical(a), Canonical(b))
}

// IsNewer reports whether latest is a higher version than current. It is
// false whenever either side is empty, "dev" or unparseable.
func IsNewer(current, latest string) bool {
	c, l := Canonical(current), Canonical(latest)
	if c == "" || l == "" {
		return false
	}
	return semver.Compare(l, c) > 0
}
