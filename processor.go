package rproc

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/rproc/internal/logging"
)

// TraceBuffer describes a diagnostic buffer announced by the firmware.
// The remote processor writes its logs into the buffer at DeviceAddress;
// PhysicalAddress is the translated host-side location. Descriptors are
// retained while the processor is online and cleared on power-off.
type TraceBuffer struct {
	Name            string
	DeviceAddress   uint64
	PhysicalAddress uint64
	Len             uint32
}

// Processor is the handle for one registered remote processor. It owns
// the per-processor state machine and reference count, and serializes
// power-on/boot and power-off/halt around concurrent callers.
//
// Handles are created by Registry.Register and destroyed by
// Registry.Unregister. All methods are safe for concurrent use;
// independent processors never contend with each other.
type Processor struct {
	name            string
	firmware        string
	ops             Ops
	store           FirmwareStore
	maps            MemoryMaps
	allocator       Allocator
	defaultBootAddr uint64

	mu         sync.Mutex
	state      State
	count      int
	faultCause error
	// transition is non-nil while a boot or halt is in flight and is
	// closed when it resolves. Waiters block on it without holding mu.
	transition chan struct{}

	// resolved per boot, cleared on power-off
	bootAddr uint64
	traces   []TraceBuffer
}

// Acquire requests that the processor be powered and running, booting it
// if this is the first consumer. Every successful Acquire must
// eventually be matched by exactly one Release.
//
// When the processor is already online the refcount is incremented and
// Acquire returns immediately with no hardware action. When a boot or
// halt is in flight, Acquire blocks until it resolves and then follows
// the outcome; a boot failure propagates the same error to every waiter.
// Cancelling a waiting caller's context detaches that caller only - the
// in-flight transition is never aborted, and the caller that initiated a
// boot drives it to completion.
func (p *Processor) Acquire(ctx context.Context) error {
	p.mu.Lock()
	for {
		switch p.state {
		case StateOnline:
			p.count++
			p.mu.Unlock()
			return nil

		case StateFaulted:
			cause := p.faultCause
			p.mu.Unlock()
			return fmt.Errorf("%w: %w", ErrFaulted, cause)

		case StateBooting, StateStopping:
			done := p.transition
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-done:
			}
			p.mu.Lock()
			// re-evaluate under the lock; the processor may already be
			// offline again if the booter released before we woke up

		case StateOffline:
			done := make(chan struct{})
			p.transition = done
			p.setStateLocked(StateBooting)
			p.mu.Unlock()

			// The boot pipeline runs without the lock held so handles
			// of other processors are never blocked on this one.
			res, err := p.boot(ctx)

			p.mu.Lock()
			if err != nil {
				p.faultCause = err
				p.setStateLocked(StateFaulted)
			} else {
				p.bootAddr = res.bootAddr
				p.traces = res.traces
				p.count = 1
				p.setStateLocked(StateOnline)
			}
			p.transition = nil
			close(done)
			p.mu.Unlock()
			return err

		default:
			state := p.state
			p.mu.Unlock()
			return fmt.Errorf("remote processor %q in %s", p.name, state)
		}
	}
}

// Release drops one consumer reference, powering the processor off when
// the last reference is dropped. Calling Release more often than Acquire
// is a caller bug and fails with ErrUseAfterRelease; the refcount never
// goes below zero.
//
// A stop handler failure is fatal: the processor moves to StateFaulted
// and cannot be re-acquired without Reset.
func (p *Processor) Release(ctx context.Context) error {
	p.mu.Lock()
	if p.count == 0 {
		p.mu.Unlock()
		logging.Error("Asymmetric release (forgot to call Acquire?)",
			zap.String("rproc", p.name))
		return fmt.Errorf("%w: %q", ErrUseAfterRelease, p.name)
	}

	p.count--
	if p.count > 0 {
		p.mu.Unlock()
		return nil
	}

	done := make(chan struct{})
	p.transition = done
	p.setStateLocked(StateStopping)
	p.mu.Unlock()

	err := p.ops.Stop(ctx)

	p.mu.Lock()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStopFailed, err)
		p.faultCause = err
		p.setStateLocked(StateFaulted)
	} else {
		p.bootAddr = 0
		p.traces = nil
		p.setStateLocked(StateOffline)
		logging.Info("Stopped remote processor", zap.String("rproc", p.name))
	}
	p.transition = nil
	close(done)
	p.mu.Unlock()
	return err
}

// Reset returns a faulted processor to StateOffline, clearing the fault
// cause. This is the external-intervention hook: whatever put the
// hardware back into a known state (a pin reset, a power cycle) is the
// caller's responsibility. Resetting a processor in any other state is
// an error.
func (p *Processor) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateFaulted {
		return fmt.Errorf("cannot reset %q in state %s", p.name, p.state)
	}

	p.faultCause = nil
	p.count = 0
	p.bootAddr = 0
	p.traces = nil
	p.setStateLocked(StateOffline)
	return nil
}

// Name returns the processor's unique name.
func (p *Processor) Name() string { return p.name }

// FirmwareName returns the name of the firmware image this processor
// boots with.
func (p *Processor) FirmwareName() string { return p.firmware }

// State returns the current lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RefCount returns the number of active consumers.
func (p *Processor) RefCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// BootAddress returns the boot address resolved by the last successful
// boot. ok is false while the processor is not online.
func (p *Processor) BootAddress() (addr uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOnline {
		return 0, false
	}
	return p.bootAddr, true
}

// TraceBuffers returns the trace buffer descriptors announced by the
// running firmware, in declaration order. Empty while the processor is
// not online.
func (p *Processor) TraceBuffers() []TraceBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TraceBuffer, len(p.traces))
	copy(out, p.traces)
	return out
}

// setStateLocked transitions the state and logs it. Caller holds mu.
func (p *Processor) setStateLocked(next State) {
	logging.LogStateChange(p.name, p.state.String(), next.String())
	p.state = next
}
