package resource

import "errors"

var (
	// ErrMalformedResourceTable indicates a resource section whose
	// content length is not an exact multiple of the record size.
	ErrMalformedResourceTable = errors.New("malformed resource table")

	// ErrDuplicateBootAddress indicates an image carrying more than one
	// boot address entry. This fails the boot rather than silently
	// picking one, so a processor is never started at an unintended
	// address.
	ErrDuplicateBootAddress = errors.New("duplicate boot address entry")
)
