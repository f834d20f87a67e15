package format

import "errors"

var (
	// ErrBadMagic indicates the buffer does not start with the FDT magic.
	ErrBadMagic = errors.New("format: bad magic")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrVersion indicates a blob version outside the supported range.
	ErrVersion = errors.New("format: unsupported version")
	// ErrLayout indicates header offsets or sizes that do not describe a valid blob.
	ErrLayout = errors.New("format: invalid block layout")
	// ErrToken indicates an unexpected or unknown structure-block token.
	ErrToken = errors.New("format: unexpected token")
)
