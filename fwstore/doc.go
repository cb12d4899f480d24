// Package fwstore provides the stock firmware byte-retrieval
// implementation for the remote processor framework.
//
// A Store searches an ordered list of directories for firmware images by
// file name, the way /lib/firmware search paths work, and keeps recently
// loaded images in a bounded LRU cache so that booting the same
// processor repeatedly does not re-read the image from disk.
//
// # Usage Example
//
//	store, err := fwstore.New([]string{"/lib/firmware"}, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg := rproc.NewRegistry(store)
//
// After replacing an image on disk, drop the stale cache entry:
//
//	store.Invalidate("dsp-image.bin")
//
// # Thread Safety
//
// All Store methods are safe for concurrent use.
package fwstore
