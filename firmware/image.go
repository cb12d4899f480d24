package firmware

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Image layout constants
const (
	// MagicSize is the size of the image magic, the ASCII bytes "RPRC"
	MagicSize = 4

	// Version1 is the only image version this package understands.
	// The version number is bumped on binary format changes.
	Version1 = 1

	// HeaderFixedSize is the size of the fixed image header:
	// magic (4) + version (4) + header_len (4)
	HeaderFixedSize = 12

	// SectionHeaderSize is the size of a section header:
	// type (4) + da (8) + len (4)
	SectionHeaderSize = 16
)

// Magic identifies a remote processor firmware image.
var Magic = [MagicSize]byte{'R', 'P', 'R', 'C'}

// SectionType is the type tag of a firmware section.
type SectionType uint32

// Section type values. Text and data sections have different types so
// that crash dumps (data only) or loading text into faster memory stay
// possible, but both are loaded identically today.
const (
	// SectionResource contains static resource requests and announcements
	// the remote processor requires or supports. These must be handled
	// before the processor is booted.
	SectionResource SectionType = 0

	// SectionText is an executable code section
	SectionText SectionType = 1

	// SectionData is a data section
	SectionData SectionType = 2
)

// String returns a human-readable section type name
func (t SectionType) String() string {
	switch t {
	case SectionResource:
		return "resource"
	case SectionText:
		return "text"
	case SectionData:
		return "data"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// Section is one typed, device-addressed chunk of a firmware image.
// Sections are loaded to DeviceAddress so the remote processor finds
// them where it expects them.
type Section struct {
	// Type is the section type tag. Opaque at this layer; the resource
	// table interpreter gives SectionResource sections their meaning.
	Type SectionType

	// DeviceAddress is the address the remote processor expects to find
	// this section at. If the processor is not behind an IOMMU this is a
	// mere physical address.
	DeviceAddress uint64

	// Content is the section payload
	Content []byte
}

// String returns a debug representation of the section
func (s Section) String() string {
	return fmt.Sprintf("Section{type=%s, da=0x%x, len=%s}",
		s.Type, s.DeviceAddress, humanize.Bytes(uint64(len(s.Content))))
}

// Image is a decoded remote processor firmware image.
type Image struct {
	// Version is the image format version
	Version uint32

	// Header is the free-style textual header of the image
	Header []byte

	// Sections holds the image sections in file order. Order is
	// meaningful: sections are loaded in the order they appear.
	Sections []Section
}

// ResourceSections returns the sections tagged as resource tables,
// in image order.
func (img *Image) ResourceSections() []Section {
	var sections []Section
	for _, s := range img.Sections {
		if s.Type == SectionResource {
			sections = append(sections, s)
		}
	}
	return sections
}

// String returns a debug representation of the image
func (img *Image) String() string {
	return fmt.Sprintf("Image{version=%d, header=%d bytes, sections=%d}",
		img.Version, len(img.Header), len(img.Sections))
}
