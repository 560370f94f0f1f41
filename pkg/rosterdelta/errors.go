package rosterdelta

import "github.com/pkg/errors"

// invalidf reports a decoding error in the textual roster delta format
// (§7, "decoding error, recoverable at boundary").
func invalidf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
