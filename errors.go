package rproc

import (
	"errors"

	"github.com/muurk/rproc/firmware"
	"github.com/muurk/rproc/resource"
)

var (
	// ErrNotFound indicates no remote processor is registered under the
	// requested name.
	ErrNotFound = errors.New("remote processor not found")

	// ErrStartFailed indicates the platform start handler reported a
	// failure. The processor moves to StateFaulted.
	ErrStartFailed = errors.New("start handler failed")

	// ErrStopFailed indicates the platform stop handler reported a
	// failure. This is fatal: the processor is left in an undefined
	// hardware state and moves to StateFaulted.
	ErrStopFailed = errors.New("stop handler failed")

	// ErrUseAfterRelease indicates a Release call without a matching
	// Acquire. This is a caller programming error, reported loudly
	// rather than swallowed; the refcount is never decremented below
	// zero.
	ErrUseAfterRelease = errors.New("release without matching acquire")

	// ErrAllocationFailure indicates a two-way resource request the
	// configured allocator could not satisfy. The whole boot fails.
	ErrAllocationFailure = errors.New("resource allocation failed")

	// ErrFaulted indicates an operation on a processor in StateFaulted.
	// The fault cause is wrapped and matchable with errors.Is.
	ErrFaulted = errors.New("remote processor is faulted")

	// ErrInUse indicates an Unregister attempt while consumers still
	// hold the processor.
	ErrInUse = errors.New("remote processor is in use")

	// ErrUnmappedAddress indicates a device address not covered by the
	// processor's memory map table.
	ErrUnmappedAddress = errors.New("device address not covered by memory map")
)

// Image and resource table errors surface unchanged from Acquire; they
// are aliased here so callers matching the whole taxonomy only need this
// package.
var (
	ErrInvalidImage           = firmware.ErrInvalidImage
	ErrMalformedResourceTable = resource.ErrMalformedResourceTable
	ErrDuplicateBootAddress   = resource.ErrDuplicateBootAddress
)
