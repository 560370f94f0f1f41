package cset

import "github.com/pkg/errors"

// invalidf reports a normalization-invariant violation (§3): a decoding
// error at the boundary, not a panic, since a Changeset can be built
// incrementally and checked before use.
func invalidf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
