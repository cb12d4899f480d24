package firmware

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/muurk/rproc/internal/logging"
)

// Parse decodes a remote processor firmware image from a byte buffer.
//
// The image layout is, with no implicit padding and all multi-byte
// fields little-endian:
//
//	magic        : 4 bytes, ASCII "RPRC"
//	version      : u32
//	header_len   : u32
//	header       : header_len bytes, opaque text
//	sections[]   : until end of buffer, each:
//	  type       : u32
//	  da         : u64
//	  len        : u32
//	  content    : len bytes
//
// Parse performs no interpretation of section semantics; type tags are
// opaque integers at this layer. All failures wrap ErrInvalidImage.
func Parse(data []byte) (*Image, error) {
	if len(data) < HeaderFixedSize {
		return nil, fmt.Errorf("%w: image too small (%d bytes, need at least %d)",
			ErrInvalidImage, len(data), HeaderFixedSize)
	}

	if !bytes.Equal(data[:MagicSize], Magic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, data[:MagicSize])
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != Version1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	headerLen := binary.LittleEndian.Uint32(data[8:12])
	off := HeaderFixedSize
	if uint64(headerLen) > uint64(len(data)-off) {
		return nil, fmt.Errorf("%w: header_len %d with %d bytes remaining",
			ErrTruncatedHeader, headerLen, len(data)-off)
	}

	img := &Image{
		Version: version,
		Header:  append([]byte(nil), data[off:off+int(headerLen)]...),
	}
	off += int(headerLen)

	// Walk sections until the buffer is exhausted. There is no limit on
	// the number of sections.
	for off < len(data) {
		if len(data)-off < SectionHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes, section header needs %d",
				ErrTruncatedSection, len(data)-off, SectionHeaderSize)
		}

		s := Section{
			Type:          SectionType(binary.LittleEndian.Uint32(data[off : off+4])),
			DeviceAddress: binary.LittleEndian.Uint64(data[off+4 : off+12]),
		}
		contentLen := binary.LittleEndian.Uint32(data[off+12 : off+16])
		off += SectionHeaderSize

		if uint64(contentLen) > uint64(len(data)-off) {
			return nil, fmt.Errorf("%w: declared len %d exceeds %d remaining bytes",
				ErrTruncatedSection, contentLen, len(data)-off)
		}

		s.Content = append([]byte(nil), data[off:off+int(contentLen)]...)
		off += int(contentLen)

		logging.LogSection(s.Type.String(), s.DeviceAddress, len(s.Content))
		img.Sections = append(img.Sections, s)
	}

	return img, nil
}

// Encode serializes the image back into its binary form. It is the
// exact inverse of Parse: Parse(img.Encode()) reproduces img. Used by
// image packaging tooling and tests.
func (img *Image) Encode() []byte {
	size := HeaderFixedSize + len(img.Header)
	for _, s := range img.Sections {
		size += SectionHeaderSize + len(s.Content)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, img.Version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(img.Header)))
	buf = append(buf, img.Header...)

	for _, s := range img.Sections {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Type))
		buf = binary.LittleEndian.AppendUint64(buf, s.DeviceAddress)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Content)))
		buf = append(buf, s.Content...)
	}

	return buf
}
