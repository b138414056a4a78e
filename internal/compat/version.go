package compat

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a framework or runtime release number.
type Version struct {
	*semver.Version
}

// ParseVersion parses "2.16", "2.16.1" or "v2.16.1-rc0".
func ParseVersion(s string) (Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{v}, nil
}

// SameRelease reports whether v and o share major and minor numbers.
func (v Version) SameRelease(o Version) bool {
	return v.Major() == o.Major() && v.Minor() == o.Minor()
}

// NewerRelease reports whether v's major.minor is after o's.
func (v Version) NewerRelease(o Version) bool {
	if v.Major() != o.Major() {
		return v.Major() > o.Major()
	}
	return v.Minor() > o.Minor()
}
