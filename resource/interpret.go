package resource

import (
	"fmt"

	"github.com/muurk/rproc/internal/logging"
)

// Resolved is the outcome of interpreting the resource sections of one
// firmware image. It is consumed by the lifecycle manager before the
// processor is started; after that point the resource table is immutable
// and any further requests belong to a runtime messaging channel.
type Resolved struct {
	// BootAddress is the announced boot entry address, if any.
	// At most one boot address entry is permitted per image.
	BootAddress *uint64

	// Traces holds trace buffer announcements in declaration order.
	// Multiple trace buffers are allowed; each announces a diagnostic
	// buffer at its device address.
	Traces []Entry

	// Requests holds the two-way allocation requests (carveout, devmem,
	// device, irq). The host is expected to satisfy each one and write
	// the allocated identifier back into the entry's PA field before
	// the processor starts.
	Requests []Entry

	// Unknown holds entries with unrecognized type tags. They are
	// preserved for forward compatibility and never treated as fatal.
	Unknown []Entry
}

// HasBootAddress reports whether the image announced a boot address.
func (r *Resolved) HasBootAddress() bool {
	return r.BootAddress != nil
}

// Interpret decodes and classifies the resource sections of an image.
// Each element of tables is the raw content of one resource section.
//
// Trace and boot address entries are announcements; a second boot
// address entry fails with ErrDuplicateBootAddress even if it carries
// the same value. Allocation requests and unknown entries are collected
// and reported, never fatal here.
func Interpret(tables [][]byte) (*Resolved, error) {
	res := &Resolved{}

	for _, content := range tables {
		entries, err := DecodeEntries(content)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			logging.LogResource(e.Type.String(), e.Name,
				e.DeviceAddress, e.PhysicalAddress, e.Len, e.Flags)

			switch e.Type {
			case TypeTrace:
				res.Traces = append(res.Traces, e)
			case TypeBootAddress:
				if res.BootAddress != nil {
					return nil, fmt.Errorf("%w: second entry at da 0x%x",
						ErrDuplicateBootAddress, e.DeviceAddress)
				}
				da := e.DeviceAddress
				res.BootAddress = &da
			case TypeCarveout, TypeDevmem, TypeDevice, TypeIRQ:
				res.Requests = append(res.Requests, e)
			default:
				res.Unknown = append(res.Unknown, e)
			}
		}
	}

	return res, nil
}
