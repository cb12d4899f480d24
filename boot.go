package rproc

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/muurk/rproc/firmware"
	"github.com/muurk/rproc/internal/logging"
	"github.com/muurk/rproc/resource"
)

// bootResult carries what a successful boot resolved. It is written
// into the handle under the lock by Acquire.
type bootResult struct {
	bootAddr uint64
	traces   []TraceBuffer
}

// boot runs the boot pipeline: fetch the image, parse it, place its
// sections, resolve its resource table and invoke the platform start
// handler. It runs without the handle lock held; Acquire guarantees at
// most one boot is in flight per processor.
//
// Any error fails the boot before or at the start handler; the caller
// moves the processor to StateFaulted.
func (p *Processor) boot(ctx context.Context) (*bootResult, error) {
	logging.Info("Powering up",
		zap.String("rproc", p.name),
		zap.String("firmware", p.firmware))

	data, err := p.store.Load(ctx, p.firmware)
	if err != nil {
		return nil, fmt.Errorf("load firmware %q: %w", p.firmware, err)
	}

	img, err := firmware.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse firmware %q: %w", p.firmware, err)
	}
	logging.Debug("Parsed firmware image",
		zap.String("rproc", p.name),
		zap.Uint32("version", img.Version),
		zap.Int("sections", len(img.Sections)),
		zap.String("size", humanize.Bytes(uint64(len(data)))))

	// place sections into device memory, in image order, when the
	// platform can load them
	if loader, ok := p.ops.(MemoryLoader); ok {
		for _, s := range img.Sections {
			pa, err := p.maps.DaToPa(s.DeviceAddress)
			if err != nil {
				return nil, fmt.Errorf("section at da 0x%x: %w", s.DeviceAddress, err)
			}
			if err := loader.LoadSegment(ctx, s.DeviceAddress, pa, s.Content); err != nil {
				return nil, fmt.Errorf("load section at da 0x%x: %w", s.DeviceAddress, err)
			}
		}
	}

	var tables [][]byte
	for _, s := range img.ResourceSections() {
		tables = append(tables, s.Content)
	}
	resolved, err := resource.Interpret(tables)
	if err != nil {
		return nil, fmt.Errorf("firmware %q: %w", p.firmware, err)
	}

	// two-way requests must be finalized before the start handler runs;
	// after that the resource table is immutable
	if p.allocator != nil {
		for i := range resolved.Requests {
			req := &resolved.Requests[i]
			id, err := p.allocator.Allocate(ctx, *req)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %q: %w",
					ErrAllocationFailure, req.Type, req.Name, err)
			}
			req.PhysicalAddress = id
		}
	} else if len(resolved.Requests) > 0 {
		logging.Warn("Carrying unresolved resource requests",
			zap.String("rproc", p.name),
			zap.Int("count", len(resolved.Requests)))
	}

	if len(resolved.Unknown) > 0 {
		logging.Debug("Unsupported resource entries",
			zap.String("rproc", p.name),
			zap.Int("count", len(resolved.Unknown)))
	}

	traces := make([]TraceBuffer, 0, len(resolved.Traces))
	for _, e := range resolved.Traces {
		pa, err := p.maps.DaToPa(e.DeviceAddress)
		if err != nil {
			return nil, fmt.Errorf("trace buffer %q: %w", e.Name, err)
		}
		traces = append(traces, TraceBuffer{
			Name:            e.Name,
			DeviceAddress:   e.DeviceAddress,
			PhysicalAddress: pa,
			Len:             e.Len,
		})
	}

	bootAddr := p.defaultBootAddr
	if resolved.HasBootAddress() {
		bootAddr = *resolved.BootAddress
	}

	if err := p.ops.Start(ctx, bootAddr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	logging.Info("Remote processor is now up",
		zap.String("rproc", p.name),
		zap.String("bootaddr", fmt.Sprintf("0x%x", bootAddr)),
		zap.Int("trace_buffers", len(traces)))

	return &bootResult{bootAddr: bootAddr, traces: traces}, nil
}
