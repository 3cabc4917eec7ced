// Package version orders release identifiers of the form [v]N(.N)*.
// Perch tags and perchup release manifests both use this shape; anything
// else (uppercase V, pre-release or build suffixes, non-numeric
// segments) is rejected outright rather than coerced, so a malformed
// tag surfaces at the comparison site instead of masquerading as an
// old release.
package version

import (
	"errors"
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// ErrInvalid reports a version string outside the [v]N(.N)* form.
var ErrInvalid = errors.New("invalid version")

// Compare orders two version strings. It returns -1 if a is older than
// b, 0 if they denote the same release, and 1 if a is newer. A missing
// trailing segment counts as zero, so "1.2" equals "1.2.0".
func Compare(a, b string) (int, error) {
	va, err := parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Newer reports whether remote denotes a strictly newer release than
// local.
func Newer(remote, local string) (bool, error) {
	cmp, err := Compare(remote, local)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

// Validate checks that s is a well-formed release identifier without
// comparing it to anything.
func Validate(s string) error {
	_, err := parse(s)
	return err
}

// parse accepts [v]N(.N)* with a single lowercase v prefix. The parser
// underneath tolerates pre-release and metadata suffixes, which are not
// part of the release form here, so those are rejected explicitly.
func parse(s string) (*goversion.Version, error) {
	v, err := goversion.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, fmt.Errorf("%w: %q has a non-numeric suffix", ErrInvalid, s)
	}
	return v, nil
}
