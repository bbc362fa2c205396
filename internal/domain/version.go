package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BumpKind selects which part of a version is incremented.
type BumpKind string

const (
	BumpMajor BumpKind = "major"
	BumpMinor BumpKind = "minor"
	BumpPatch BumpKind = "patch"
	BumpAuto  BumpKind = "auto"
)

// ParseBumpKind validates a bump kind given on the command line.
func ParseBumpKind(s string) (BumpKind, error) {
	switch kind := BumpKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case BumpMajor, BumpMinor, BumpPatch, BumpAuto:
		return kind, nil
	case "":
		return BumpAuto, nil
	default:
		return "", fmt.Errorf("invalid bump kind %q: expected major, minor, patch or auto", s)
	}
}

// Version wraps semver.Version for additional methods.
type Version struct {
	*semver.Version
}

// NewStrictVersion parses a full MAJOR.MINOR.PATCH version with an optional
// v prefix. Partial versions such as "1.2" are rejected.
func NewStrictVersion(s string) (*Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// BumpMajor increments the major version.
func (v *Version) BumpMajor() *Version {
	newVer := v.IncMajor()
	return &Version{&newVer}
}

// BumpMinor increments the minor version.
func (v *Version) BumpMinor() *Version {
	newVer := v.IncMinor()
	return &Version{&newVer}
}

// BumpPatch increments the patch version.
func (v *Version) BumpPatch() *Version {
	newVer := v.IncPatch()
	return &Version{&newVer}
}

// Bump increments the version according to kind. While the major version is
// zero a major bump only increments the minor version.
func (v *Version) Bump(kind BumpKind) (*Version, error) {
	switch kind {
	case BumpMajor:
		if v.Major() == 0 {
			return v.BumpMinor(), nil
		}
		return v.BumpMajor(), nil
	case BumpMinor:
		return v.BumpMinor(), nil
	case BumpPatch:
		return v.BumpPatch(), nil
	default:
		return nil, fmt.Errorf("cannot bump by %q", kind)
	}
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// String returns the version string with v prefix.
func (v *Version) String() string {
	return "v" + v.Version.String()
}

// Bare returns the version string without any prefix.
func (v *Version) Bare() string {
	return v.Version.String()
}
