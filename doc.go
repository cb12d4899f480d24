// Package rproc manages heterogeneous auxiliary processors on a
// system-on-chip: it loads a firmware image into a remote core,
// negotiates the hardware resources the firmware declares it needs, and
// tracks how many consumers currently require the core to be powered and
// running.
//
// # Architecture
//
// Three pieces cooperate during a boot:
//   - package firmware parses the binary image into a header and an
//     ordered sequence of typed sections
//   - package resource interprets the sections tagged as resource tables
//     and resolves what the firmware announces or requests (notably the
//     boot address)
//   - this package owns the per-processor state machine and reference
//     count, and invokes the platform start/stop capability
//
// # Registration
//
// Platform code registers each remote processor it probes:
//
//	reg := rproc.NewRegistry(store)
//	proc, err := reg.Register(rproc.ProcessorConfig{
//	    Name:       "omap-dsp",
//	    Ops:        &omapDSPOps{},
//	    Firmware:   "dsp-image.bin",
//	    MemoryMaps: maps,
//	})
//
// Ops is the opaque platform capability (power on/boot, power off); it
// may additionally implement MemoryLoader to receive the image sections
// and Allocator support is configured per processor for two-way resource
// requests.
//
// # Acquire / Release
//
// Consumers acquire a processor by name. The first consumer triggers the
// boot pipeline; later consumers just take a reference:
//
//	proc, err := reg.Acquire(ctx, "omap-dsp")
//	if err != nil {
//	    return err
//	}
//	defer proc.Release(ctx)
//
// The refcount guarantees exactly one hardware start per transition from
// zero to nonzero consumers, and exactly one stop per transition back to
// zero, regardless of caller concurrency. Concurrent acquisitions during
// a boot block until the boot resolves and share its outcome; a waiter's
// context cancellation detaches that waiter without touching the boot.
//
// # States
//
// A processor is Offline, Booting, Online, Stopping or Faulted. Faulted
// is terminal: a failed boot or stop leaves the hardware in an unknown
// state, and only (*Processor).Reset - after external intervention -
// returns the handle to Offline.
//
// # Errors
//
// Acquire and Release fail with sentinel errors (ErrNotFound,
// ErrInvalidImage, ErrMalformedResourceTable, ErrDuplicateBootAddress,
// ErrAllocationFailure, ErrStartFailed, ErrStopFailed,
// ErrUseAfterRelease) matchable with errors.Is. Nothing is retried
// internally; retry policy belongs to the caller.
package rproc
