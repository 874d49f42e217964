package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnsupported indicates the structure or feature is not supported.
	ErrUnsupported = errors.New("format: unsupported feature")
	// ErrSanityLimit indicates a count or length beyond what any real hive holds.
	ErrSanityLimit = errors.New("format: sanity limit exceeded")
)

// Upper bounds applied while decoding. Windows itself caps names at 255
// characters and values at well under these sizes.
const (
	MaxSubkeyCount  = 1 << 20
	MaxValueCount   = 1 << 20
	MaxNameLen      = 2 * 255 * 2
	MaxValueDataLen = 64 << 20
)
