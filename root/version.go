package root

import (
	"github.com/coreos/go-semver/semver"

	"github.com/wippyai/stable-abi/errors"
)

// Version is the interface version triple of a module root.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// ParseVersion parses a "major.minor.patch" string.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrap(errors.PhaseVersion, errors.KindInvalidInput, err, "invalid version "+s)
	}
	return Version{
		Major: uint32(sv.Major),
		Minor: uint32(sv.Minor),
		Patch: uint32(sv.Patch),
	}, nil
}

// MustParseVersion is ParseVersion for compile-time constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor.patch".
func (v Version) String() string {
	return v.semver().String()
}

func (v Version) semver() *semver.Version {
	return &semver.Version{
		Major: int64(v.Major),
		Minor: int64(v.Minor),
		Patch: int64(v.Patch),
	}
}

// Compatible reports whether a library declaring lib satisfies a host
// expecting host: equal major, and the library's (minor, patch) at or above
// the host's. Additions bump minor or patch and stay loadable; removals and
// layout changes bump major and are refused here, before any layout check.
func Compatible(host, lib Version) bool {
	if host.Major != lib.Major {
		return false
	}
	return !lib.semver().LessThan(*host.semver())
}
