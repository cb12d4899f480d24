package firmware

import (
	"errors"
	"fmt"
)

// ErrInvalidImage is the umbrella error for all image parse failures.
// Callers can match it with errors.Is without caring which of the more
// specific parse errors below occurred.
var ErrInvalidImage = errors.New("invalid firmware image")

// Specific parse failures. Each wraps ErrInvalidImage, so both the
// specific and the umbrella sentinel match with errors.Is.
var (
	// ErrBadMagic indicates the image does not start with "RPRC"
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrInvalidImage)

	// ErrUnsupportedVersion indicates an image version other than 1
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrInvalidImage)

	// ErrTruncatedHeader indicates header_len overruns the buffer
	ErrTruncatedHeader = fmt.Errorf("%w: truncated header", ErrInvalidImage)

	// ErrTruncatedSection indicates a section header or a declared
	// section length overruns the buffer
	ErrTruncatedSection = fmt.Errorf("%w: truncated section", ErrInvalidImage)
)
