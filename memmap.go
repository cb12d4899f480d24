package rproc

import "fmt"

// MemoryMap describes one device-address to physical-address mapping.
// Platform code supplies these for processors sitting behind an IOMMU.
type MemoryMap struct {
	// DeviceAddress is the start of the region as seen by the remote
	// processor
	DeviceAddress uint64

	// PhysicalAddress is the start of the backing physical region
	PhysicalAddress uint64

	// Size is the region size in bytes
	Size uint32
}

// MemoryMaps is a processor's address translation table.
type MemoryMaps []MemoryMap

// DaToPa translates a device address to its physical address by finding
// the mapping that contains da. Processors without an IOMMU have no
// maps; for them da already is a physical address and is returned
// unchanged. A da outside every mapping fails with ErrUnmappedAddress.
func (m MemoryMaps) DaToPa(da uint64) (uint64, error) {
	if len(m) == 0 {
		return da, nil
	}

	for _, e := range m {
		if da >= e.DeviceAddress && da-e.DeviceAddress < uint64(e.Size) {
			return e.PhysicalAddress + (da - e.DeviceAddress), nil
		}
	}

	return 0, fmt.Errorf("%w: 0x%x", ErrUnmappedAddress, da)
}
