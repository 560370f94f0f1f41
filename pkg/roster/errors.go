package roster

import "github.com/pkg/errors"

// invalidf reports a decoding/validation error (§7, "decoding error,
// recoverable at boundary") — never a panic, since roster.sane() and
// EnsureValid are meant to be called on untrusted or partially-built state
// and report findings rather than crash the caller.
func invalidf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// invariant panics with msg if cond is false. This is the Go analogue of
// monotone's I() assertion macro (_examples/original_source/graph.cc,
// parallel_iter.hh): it guards contracts on the editable-tree interface
// that must never be violated by well-formed callers (§7, "invariant
// violation (fatal)").
func invariant(cond bool, msg string) {
	if !cond {
		panic("roster: invariant violation: " + msg)
	}
}
