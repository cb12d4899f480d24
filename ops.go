package rproc

import (
	"context"

	"github.com/muurk/rproc/resource"
)

// Ops is the platform-specific capability for one remote processor.
// Implementations talk to the actual hardware; the lifecycle manager
// depends only on this interface, never on a concrete platform type.
//
// Both handlers may block on hardware or bus access. They are never
// invoked concurrently for the same processor: the lifecycle manager
// guarantees at most one Start and at most one Stop in flight per
// handle, and neither runs while the other does.
type Ops interface {
	// Start powers on the device and boots it at bootAddr. When the
	// image announced no boot address, bootAddr is the processor's
	// configured default (zero when unset).
	Start(ctx context.Context, bootAddr uint64) error

	// Stop powers off the device.
	Stop(ctx context.Context) error
}

// MemoryLoader is an optional capability an Ops implementation may
// provide. When present, every firmware section is handed over in image
// order before the resource table is resolved, with the device address
// already translated through the processor's memory maps.
type MemoryLoader interface {
	LoadSegment(ctx context.Context, da uint64, pa uint64, data []byte) error
}

// Allocator resolves two-way resource requests (carveout, devmem,
// device, irq) at boot time. The returned identifier is written back
// into the entry's PA field before the start handler runs; after that
// the resource table is immutable. A failure fails the whole boot.
//
// The negotiation protocol itself is not realized yet, so configuring an
// allocator is optional; without one, requests are carried through as
// announcements.
type Allocator interface {
	Allocate(ctx context.Context, e resource.Entry) (uint64, error)
}

// FirmwareStore retrieves firmware images by name. It is the boundary to
// the byte-retrieval collaborator; package fwstore provides the stock
// disk-backed implementation.
type FirmwareStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
}
