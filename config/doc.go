// Package config reads processor-definition files for the remote
// processor framework.
//
// A definition file is versioned YAML describing the static side of each
// remote processor - its name, firmware image, memory maps and default
// boot address - plus the firmware search paths:
//
//	version: 1
//	firmware_paths:
//	  - /lib/firmware
//	processors:
//	  - name: omap-dsp
//	    firmware: dsp-image.bin
//	    default_boot_address: 0x0
//	    memory_maps:
//	      - {da: 0x0, pa: 0x9cf00000, size: 0x100000}
//
// The platform capability (start/stop handlers) cannot be described in a
// file; platform code pairs each definition with its Ops implementation
// at registration time:
//
//	defs, err := config.Load("/etc/rproc/processors.yaml")
//	...
//	store, _ := fwstore.New(defs.FirmwarePaths, 0)
//	reg := rproc.NewRegistry(store)
//	for _, p := range defs.Processors {
//	    reg.Register(p.Config(opsFor(p.Name)))
//	}
//
// Files with an unsupported version, duplicate or missing names, missing
// firmware, or zero-sized or overlapping map entries are rejected at
// load time.
package config
