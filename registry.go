package rproc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/rproc/internal/logging"
)

// ProcessorConfig describes one remote processor at registration time.
// Name, Ops and Firmware are required; the rest is optional.
type ProcessorConfig struct {
	// Name uniquely identifies the processor within a registry
	Name string

	// Ops is the platform start/stop capability. It may additionally
	// implement MemoryLoader to receive firmware sections.
	Ops Ops

	// Firmware is the name of the firmware image to load
	Firmware string

	// MemoryMaps is the da-to-pa translation table, relevant when the
	// processor sits behind an IOMMU. Empty means identity translation.
	MemoryMaps MemoryMaps

	// DefaultBootAddress is passed to Start when the image announces no
	// boot address of its own.
	DefaultBootAddress uint64

	// Allocator resolves two-way resource requests at boot time.
	// Optional; without one, requests pass through as announcements.
	Allocator Allocator
}

// Registry is the explicit table of registered remote processors,
// keyed by name. Platform code registers processors as it probes them;
// consumers acquire them by name.
type Registry struct {
	store FirmwareStore

	mu    sync.RWMutex
	procs map[string]*Processor
}

// NewRegistry creates a registry whose processors fetch firmware bytes
// from store.
func NewRegistry(store FirmwareStore) *Registry {
	return &Registry{
		store: store,
		procs: make(map[string]*Processor),
	}
}

// Register adds a new remote processor and returns its handle. It fails
// when a required field is missing or the name is already taken.
func (r *Registry) Register(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Name == "" {
		return nil, errors.New("register: name is required")
	}
	if cfg.Ops == nil {
		return nil, fmt.Errorf("register %q: ops are required", cfg.Name)
	}
	if cfg.Firmware == "" {
		return nil, fmt.Errorf("register %q: firmware name is required", cfg.Name)
	}
	if r.store == nil {
		return nil, fmt.Errorf("register %q: registry has no firmware store", cfg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.procs[cfg.Name]; ok {
		return nil, fmt.Errorf("register: remote processor %q already registered", cfg.Name)
	}

	p := &Processor{
		name:            cfg.Name,
		firmware:        cfg.Firmware,
		ops:             cfg.Ops,
		store:           r.store,
		maps:            cfg.MemoryMaps,
		allocator:       cfg.Allocator,
		defaultBootAddr: cfg.DefaultBootAddress,
		state:           StateOffline,
	}
	r.procs[cfg.Name] = p

	logging.Info("Remote processor is available",
		zap.String("rproc", cfg.Name),
		zap.String("firmware", cfg.Firmware))

	return p, nil
}

// Unregister removes a processor from the registry. It must not be
// called while the processor still has consumers; that fails with
// ErrInUse and leaves the registration intact.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.procs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	p.mu.Lock()
	busy := p.count > 0 || p.state == StateBooting || p.state == StateStopping
	p.mu.Unlock()
	if busy {
		return fmt.Errorf("%w: %q", ErrInUse, name)
	}

	delete(r.procs, name)
	logging.Info("Removed remote processor", zap.String("rproc", name))
	return nil
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (*Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	return p, ok
}

// Acquire looks up a processor by name and acquires it, booting it if
// this is the first consumer. See (*Processor).Acquire.
func (r *Registry) Acquire(ctx context.Context, name string) (*Processor, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := p.Acquire(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Names returns the names of all registered processors, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
