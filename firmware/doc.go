// Package firmware implements the remote processor firmware image format.
//
// This package handles decoding and encoding of the binary images loaded
// into remote processors. An image is a fixed header followed by an
// ordered sequence of typed sections.
//
// # Image Format
//
// Images have this structure, with all multi-byte fields little-endian
// and no implicit padding:
//   - Magic: 4 bytes, ASCII "RPRC"
//   - Version: u32 (only version 1 is supported)
//   - Header length: u32
//   - Header: free-style textual header, readable with 'head'
//   - Sections: repeated until end of buffer
//
// Each section carries:
//   - Type: u32 tag (resource, text or data)
//   - Device address: u64, where the remote processor expects the section
//   - Length: u32
//   - Content: length bytes of binary data
//
// # Usage Example - Parsing
//
//	img, err := firmware.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, s := range img.Sections {
//	    fmt.Println(s)
//	}
//
//	// Resource sections feed the resource table interpreter
//	tables := img.ResourceSections()
//
// # Usage Example - Encoding
//
//	img := &firmware.Image{
//	    Version: firmware.Version1,
//	    Header:  []byte("built by imagepack"),
//	    Sections: []firmware.Section{
//	        {Type: firmware.SectionText, DeviceAddress: 0x1000, Content: code},
//	    },
//	}
//	data := img.Encode()
//
// # Error Handling
//
// All parse failures wrap firmware.ErrInvalidImage, with more specific
// sentinels (ErrBadMagic, ErrUnsupportedVersion, ErrTruncatedHeader,
// ErrTruncatedSection) wrapping it in turn. Every length field is bounds
// checked before any byte is trusted; a declared length never causes a
// read past the end of the buffer.
//
// # Thread Safety
//
// Parsing and encoding are stateless and safe for concurrent use.
package firmware
