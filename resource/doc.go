// Package resource interprets the resource tables embedded in remote
// processor firmware images.
//
// A resource table is a firmware section enumerating hardware resources
// the firmware announces or requests. It is a packed sequence of
// fixed-size 76-byte records:
//   - Type: u32
//   - Device address: u64 (meaning depends on type)
//   - Physical address: u64 (meaning depends on type)
//   - Length: u32
//   - Flags: u32
//   - Name: 48 bytes, short identifier, not guaranteed NUL-terminated
//
// # Entry Classification
//
// Entries fall into three groups:
//
// One-way announcements inform the host of remote processor
// configuration:
//   - Trace: a diagnostic buffer the processor writes logs into, at the
//     entry's device address. Multiple trace buffers are allowed.
//   - BootAddress: the address of the first instruction the processor
//     should be booted with. At most one per image; a second entry fails
//     the whole interpretation so a processor is never booted at an
//     unintended address.
//
// Two-way allocation requests (carveout, devmem, device, irq) ask the
// host to reserve a resource and reply by writing the allocated
// identifier back into the entry's PA field. Resolution must complete
// before the processor is started; after boot the table is immutable and
// further requests belong to a separate runtime messaging channel. The
// negotiation protocol itself is not realized yet, so this package only
// classifies and reports these entries.
//
// Unknown type tags are preserved and reported for forward
// compatibility, never treated as fatal.
//
// # Usage Example
//
//	resolved, err := resource.Interpret(tables)
//	if err != nil {
//	    return err // malformed table or duplicate boot address
//	}
//	if resolved.HasBootAddress() {
//	    bootAddr = *resolved.BootAddress
//	}
//
// # Thread Safety
//
// Decoding and interpretation are stateless and safe for concurrent use.
package resource
