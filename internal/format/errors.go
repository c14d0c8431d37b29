package format

import "errors"

var (
	// ErrBadEncoding indicates the allocator tried to store a size that is zero,
	// misaligned or too large for a header. It is a bug in the caller, so the
	// encoders panic with it instead of returning it.
	ErrBadEncoding = errors.New("format: bad chunk encoding")
)
