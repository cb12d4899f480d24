package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muurk/rproc"
)

// SupportedVersion is the definition file version this package reads.
const SupportedVersion = 1

// File is a parsed processor-definition file.
type File struct {
	// Version is the definition file format version
	Version int `yaml:"version"`

	// FirmwarePaths are the directories searched for firmware images,
	// in order
	FirmwarePaths []string `yaml:"firmware_paths"`

	// Processors are the remote processor definitions
	Processors []Processor `yaml:"processors"`
}

// Processor is the static description of one remote processor. The
// platform capability (start/stop) cannot live in a file; platform code
// pairs each definition with its Ops at registration time.
type Processor struct {
	// Name uniquely identifies the processor
	Name string `yaml:"name"`

	// Firmware is the firmware image file name
	Firmware string `yaml:"firmware"`

	// DefaultBootAddress is used when the image announces no boot
	// address
	DefaultBootAddress uint64 `yaml:"default_boot_address"`

	// MemoryMaps is the da-to-pa translation table
	MemoryMaps []MemoryMap `yaml:"memory_maps"`
}

// MemoryMap is one address translation entry.
type MemoryMap struct {
	DA   uint64 `yaml:"da"`
	PA   uint64 `yaml:"pa"`
	Size uint32 `yaml:"size"`
}

// Load reads and validates a processor-definition file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a processor-definition document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	if f.Version != SupportedVersion {
		return nil, fmt.Errorf("unsupported definitions version: %d (expected %d)",
			f.Version, SupportedVersion)
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Processors))

	for i, p := range f.Processors {
		if p.Name == "" {
			return fmt.Errorf("processor %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate processor name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Firmware == "" {
			return fmt.Errorf("processor %q: firmware is required", p.Name)
		}

		for j, m := range p.MemoryMaps {
			if m.Size == 0 {
				return fmt.Errorf("processor %q: memory map %d has zero size", p.Name, j)
			}
			for k := 0; k < j; k++ {
				if overlaps(p.MemoryMaps[k], m) {
					return fmt.Errorf("processor %q: memory maps %d and %d overlap", p.Name, k, j)
				}
			}
		}
	}

	return nil
}

func overlaps(a, b MemoryMap) bool {
	return a.DA < b.DA+uint64(b.Size) && b.DA < a.DA+uint64(a.Size)
}

// Processor returns the definition registered under name.
func (f *File) Processor(name string) (*Processor, bool) {
	for i := range f.Processors {
		if f.Processors[i].Name == name {
			return &f.Processors[i], true
		}
	}
	return nil, false
}

// RprocMemoryMaps converts the definition's map entries into the
// lifecycle manager's translation table type.
func (p *Processor) RprocMemoryMaps() rproc.MemoryMaps {
	if len(p.MemoryMaps) == 0 {
		return nil
	}

	maps := make(rproc.MemoryMaps, len(p.MemoryMaps))
	for i, m := range p.MemoryMaps {
		maps[i] = rproc.MemoryMap{
			DeviceAddress:   m.DA,
			PhysicalAddress: m.PA,
			Size:            m.Size,
		}
	}
	return maps
}

// Config returns a ProcessorConfig pairing this definition with its
// platform capability, ready for Registry.Register.
func (p *Processor) Config(ops rproc.Ops) rproc.ProcessorConfig {
	return rproc.ProcessorConfig{
		Name:               p.Name,
		Ops:                ops,
		Firmware:           p.Firmware,
		MemoryMaps:         p.RprocMemoryMaps(),
		DefaultBootAddress: p.DefaultBootAddress,
	}
}
