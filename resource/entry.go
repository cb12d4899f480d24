package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Record layout constants
const (
	// EntrySize is the fixed size of one resource record:
	// type (4) + da (8) + pa (8) + len (4) + flags (4) + name (48)
	EntrySize = 76

	// NameSize is the size of the fixed name field. The name is a short
	// human-readable identifier, not guaranteed NUL-terminated within
	// its bound.
	NameSize = 48
)

// EntryType is the type tag of a resource entry.
type EntryType uint32

// Resource entry types. Trace and BootAddress are one-way announcements.
// Carveout, Devmem, Device and IRQ are two-way allocation requests: the
// host is expected to reserve the resource and reply by writing the
// allocated identifier back into the entry's PA field before boot.
const (
	TypeCarveout    EntryType = 0
	TypeDevmem      EntryType = 1
	TypeDevice      EntryType = 2
	TypeIRQ         EntryType = 3
	TypeTrace       EntryType = 4
	TypeBootAddress EntryType = 5
)

// String returns a human-readable entry type name
func (t EntryType) String() string {
	switch t {
	case TypeCarveout:
		return "carveout"
	case TypeDevmem:
		return "devmem"
	case TypeDevice:
		return "device"
	case TypeIRQ:
		return "irq"
	case TypeTrace:
		return "trace"
	case TypeBootAddress:
		return "bootaddr"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// Entry is one decoded resource record. The meaning of DeviceAddress,
// PhysicalAddress, Len and Flags depends on the entry type.
type Entry struct {
	Type            EntryType
	DeviceAddress   uint64
	PhysicalAddress uint64
	Len             uint32
	Flags           uint32

	// Name is the resource name, decoded from the fixed 48-byte field
	// and truncated at the first NUL.
	Name string
}

// String returns a debug representation of the entry
func (e Entry) String() string {
	return fmt.Sprintf("Entry{type=%s, da=0x%x, pa=0x%x, len=0x%x, flags=0x%x, name=%q}",
		e.Type, e.DeviceAddress, e.PhysicalAddress, e.Len, e.Flags, e.Name)
}

// DecodeEntries decodes the content of a resource section into its
// ordered sequence of fixed-size records. The content length must be an
// exact multiple of EntrySize, otherwise ErrMalformedResourceTable is
// returned.
func DecodeEntries(content []byte) ([]Entry, error) {
	if len(content)%EntrySize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte record size",
			ErrMalformedResourceTable, len(content), EntrySize)
	}

	entries := make([]Entry, 0, len(content)/EntrySize)
	for off := 0; off < len(content); off += EntrySize {
		rec := content[off : off+EntrySize]
		entries = append(entries, Entry{
			Type:            EntryType(binary.LittleEndian.Uint32(rec[0:4])),
			DeviceAddress:   binary.LittleEndian.Uint64(rec[4:12]),
			PhysicalAddress: binary.LittleEndian.Uint64(rec[12:20]),
			Len:             binary.LittleEndian.Uint32(rec[20:24]),
			Flags:           binary.LittleEndian.Uint32(rec[24:28]),
			Name:            decodeName(rec[28:EntrySize]),
		})
	}

	return entries, nil
}

// EncodeEntries serializes entries into resource section content, the
// inverse of DecodeEntries. Names longer than the fixed field are
// truncated. Used by image packaging tooling and tests.
func EncodeEntries(entries []Entry) []byte {
	buf := make([]byte, 0, len(entries)*EntrySize)
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(e.Type))
		buf = binary.LittleEndian.AppendUint64(buf, e.DeviceAddress)
		buf = binary.LittleEndian.AppendUint64(buf, e.PhysicalAddress)
		buf = binary.LittleEndian.AppendUint32(buf, e.Len)
		buf = binary.LittleEndian.AppendUint32(buf, e.Flags)

		var name [NameSize]byte
		copy(name[:], e.Name)
		buf = append(buf, name[:]...)
	}
	return buf
}

func decodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
