package blockdelta

import "github.com/pkg/errors"

var (
	errShortBuffer   = errors.New("blockdelta: truncated operation encoding")
	errUnknownOpKind = errors.New("blockdelta: unknown operation kind")
)
