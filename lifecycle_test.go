package rproc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/muurk/rproc/firmware"
	"github.com/muurk/rproc/resource"
)

// fakeStore serves firmware images from memory.
type fakeStore struct {
	mu     sync.Mutex
	images map[string][]byte
	loads  int
}

func (s *fakeStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	data, ok := s.images[name]
	if !ok {
		return nil, fmt.Errorf("no such firmware %q", name)
	}
	return data, nil
}

// fakeOps counts handler invocations and can be made to fail or block.
type fakeOps struct {
	mu        sync.Mutex
	starts    int
	stops     int
	bootAddrs []uint64
	startErr  error
	stopErr   error
	startGate chan struct{} // when non-nil, Start blocks until closed
}

func (o *fakeOps) Start(ctx context.Context, bootAddr uint64) error {
	o.mu.Lock()
	o.starts++
	o.bootAddrs = append(o.bootAddrs, bootAddr)
	gate := o.startGate
	err := o.startErr
	o.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (o *fakeOps) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	return o.stopErr
}

func (o *fakeOps) counts() (starts, stops int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.starts, o.stops
}

func (o *fakeOps) lastBootAddr() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.bootAddrs) == 0 {
		return 0
	}
	return o.bootAddrs[len(o.bootAddrs)-1]
}

// bootAddrImage builds a valid image with one data section and one
// resource section announcing bootAddr.
func bootAddrImage(bootAddr uint64) []byte {
	img := &firmware.Image{
		Version: firmware.Version1,
		Sections: []firmware.Section{
			{Type: firmware.SectionData, DeviceAddress: 0x1000, Content: []byte{1, 2, 3, 4}},
			{Type: firmware.SectionResource, DeviceAddress: 0x0, Content: resource.EncodeEntries(
				[]resource.Entry{{Type: resource.TypeBootAddress, DeviceAddress: bootAddr}},
			)},
		},
	}
	return img.Encode()
}

func imageWithResources(entries []resource.Entry) []byte {
	img := &firmware.Image{
		Version: firmware.Version1,
		Sections: []firmware.Section{
			{Type: firmware.SectionResource, Content: resource.EncodeEntries(entries)},
		},
	}
	return img.Encode()
}

func newTestProcessor(t *testing.T, image []byte, ops Ops, opts ...func(*ProcessorConfig)) *Processor {
	t.Helper()

	store := &fakeStore{images: map[string][]byte{"test.bin": image}}
	reg := NewRegistry(store)

	cfg := ProcessorConfig{Name: "test-rproc", Ops: ops, Firmware: "test.bin"}
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := reg.Register(cfg)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAcquireBootsWithResolvedAddress(t *testing.T) {
	ops := &fakeOps{}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	if starts, _ := ops.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
	if got := ops.lastBootAddr(); got != 0x2000 {
		t.Errorf("start boot address = 0x%x, want 0x2000", got)
	}
	if p.State() != StateOnline {
		t.Errorf("state = %s, want online", p.State())
	}
	if p.RefCount() != 1 {
		t.Errorf("refcount = %d, want 1", p.RefCount())
	}
	if addr, ok := p.BootAddress(); !ok || addr != 0x2000 {
		t.Errorf("BootAddress() = (0x%x, %v), want (0x2000, true)", addr, ok)
	}
}

func TestAcquireUsesDefaultBootAddress(t *testing.T) {
	img := (&firmware.Image{Version: firmware.Version1}).Encode()
	ops := &fakeOps{}
	p := newTestProcessor(t, img, ops, func(cfg *ProcessorConfig) {
		cfg.DefaultBootAddress = 0x9999
	})

	if err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if got := ops.lastBootAddr(); got != 0x9999 {
		t.Errorf("start boot address = 0x%x, want default 0x9999", got)
	}
}

func TestAcquireIsIdempotentWhileOnline(t *testing.T) {
	ops := &fakeOps{}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := p.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error: %v", i, err)
		}
	}

	if starts, _ := ops.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
	if p.RefCount() != 3 {
		t.Errorf("refcount = %d, want 3", p.RefCount())
	}
}

func TestReleaseStopsOnLastReference(t *testing.T) {
	ops := &fakeOps{}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := p.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := p.Release(ctx); err != nil {
			t.Fatalf("Release() #%d error: %v", i, err)
		}
		if _, stops := ops.counts(); stops != 0 {
			t.Fatalf("stops = %d before last release, want 0", stops)
		}
	}

	if err := p.Release(ctx); err != nil {
		t.Fatalf("last Release() error: %v", err)
	}
	if _, stops := ops.counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if p.State() != StateOffline {
		t.Errorf("state = %s, want offline", p.State())
	}
	if _, ok := p.BootAddress(); ok {
		t.Error("BootAddress() should not be resolved after power-off")
	}
}

func TestReleaseWithoutAcquire(t *testing.T) {
	ops := &fakeOps{}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	// fresh handle
	if err := p.Release(ctx); !errors.Is(err, ErrUseAfterRelease) {
		t.Errorf("Release() error = %v, want ErrUseAfterRelease", err)
	}

	// single acquire, double release
	if err := p.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(ctx); err != nil {
		t.Fatalf("first Release() error: %v", err)
	}
	if err := p.Release(ctx); !errors.Is(err, ErrUseAfterRelease) {
		t.Errorf("second Release() error = %v, want ErrUseAfterRelease", err)
	}

	if _, stops := ops.counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if p.RefCount() != 0 {
		t.Errorf("refcount = %d, want 0", p.RefCount())
	}
}

func TestConcurrentAcquireSingleStart(t *testing.T) {
	const n = 32

	ops := &fakeOps{startGate: make(chan struct{})}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Acquire(ctx)
		}(i)
	}

	// hold the boot open until every caller is either booting or waiting
	waitFor(t, "start handler entry", func() bool {
		starts, _ := ops.counts()
		return starts == 1
	})
	close(ops.startGate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Acquire() #%d error: %v", i, err)
		}
	}
	if starts, _ := ops.counts(); starts != 1 {
		t.Errorf("starts = %d, want exactly 1", starts)
	}
	if p.RefCount() != n {
		t.Errorf("refcount = %d, want %d", p.RefCount(), n)
	}

	// tear down: exactly one stop on the last release
	for i := 0; i < n; i++ {
		if err := p.Release(ctx); err != nil {
			t.Fatalf("Release() #%d error: %v", i, err)
		}
	}
	if _, stops := ops.counts(); stops != 1 {
		t.Errorf("stops = %d, want exactly 1", stops)
	}
}

func TestConcurrentAcquirePropagatesFailure(t *testing.T) {
	const n = 8

	ops := &fakeOps{startGate: make(chan struct{}), startErr: errors.New("no power")}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Acquire(context.Background())
		}(i)
	}

	waitFor(t, "start handler entry", func() bool {
		starts, _ := ops.counts()
		return starts == 1
	})
	close(ops.startGate)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrStartFailed) {
			t.Errorf("Acquire() #%d error = %v, want ErrStartFailed", i, err)
		}
	}
	if starts, _ := ops.counts(); starts != 1 {
		t.Errorf("starts = %d, want exactly 1", starts)
	}
	if p.State() != StateFaulted {
		t.Errorf("state = %s, want faulted", p.State())
	}
	if p.RefCount() != 0 {
		t.Errorf("refcount = %d, want 0", p.RefCount())
	}
}

func TestWaiterCancellationLeavesBootUntouched(t *testing.T) {
	ops := &fakeOps{startGate: make(chan struct{})}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)

	bootErr := make(chan error, 1)
	go func() { bootErr <- p.Acquire(context.Background()) }()

	waitFor(t, "boot in flight", func() bool {
		starts, _ := ops.counts()
		return starts == 1
	})

	// a waiter with a cancelled context detaches without affecting the boot
	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() { waiterErr <- p.Acquire(ctx) }()
	cancel()

	select {
	case err := <-waiterErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("waiter error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	if p.State() != StateBooting {
		t.Fatalf("state = %s, boot should still be in flight", p.State())
	}

	close(ops.startGate)
	if err := <-bootErr; err != nil {
		t.Fatalf("initiating Acquire() error: %v", err)
	}
	if starts, _ := ops.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
	if p.RefCount() != 1 {
		t.Errorf("refcount = %d, want 1 (cancelled waiter must not count)", p.RefCount())
	}
}

func TestAcquireParseFailure(t *testing.T) {
	tests := []struct {
		name    string
		image   []byte
		wantErr error
	}{
		{
			name:    "invalid image",
			image:   []byte("not an image"),
			wantErr: ErrInvalidImage,
		},
		{
			name: "truncated section",
			image: append((&firmware.Image{Version: firmware.Version1}).Encode(),
				// section header declaring more content than present
				0x02, 0, 0, 0, // type
				0, 0x10, 0, 0, 0, 0, 0, 0, // da
				0xff, 0, 0, 0, // len 255, no content
			),
			wantErr: ErrInvalidImage,
		},
		{
			name: "malformed resource table",
			image: (&firmware.Image{
				Version: firmware.Version1,
				Sections: []firmware.Section{
					{Type: firmware.SectionResource, Content: make([]byte, resource.EntrySize-1)},
				},
			}).Encode(),
			wantErr: ErrMalformedResourceTable,
		},
		{
			name: "duplicate boot address",
			image: imageWithResources([]resource.Entry{
				{Type: resource.TypeBootAddress, DeviceAddress: 0x2000},
				{Type: resource.TypeBootAddress, DeviceAddress: 0x3000},
			}),
			wantErr: ErrDuplicateBootAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := &fakeOps{}
			p := newTestProcessor(t, tt.image, ops)

			err := p.Acquire(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Acquire() error = %v, want %v", err, tt.wantErr)
			}

			if starts, _ := ops.counts(); starts != 0 {
				t.Errorf("starts = %d, want 0 (never start on a bad image)", starts)
			}
			if p.State() != StateFaulted {
				t.Errorf("state = %s, want faulted", p.State())
			}
			if p.RefCount() != 0 {
				t.Errorf("refcount = %d, want 0", p.RefCount())
			}

			// the fault is sticky and carries the cause
			err = p.Acquire(context.Background())
			if !errors.Is(err, ErrFaulted) || !errors.Is(err, tt.wantErr) {
				t.Errorf("Acquire() on faulted = %v, want ErrFaulted wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestStopFailureIsFatal(t *testing.T) {
	ops := &fakeOps{stopErr: errors.New("bus stuck")}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	err := p.Release(ctx)
	if !errors.Is(err, ErrStopFailed) {
		t.Fatalf("Release() error = %v, want ErrStopFailed", err)
	}
	if p.State() != StateFaulted {
		t.Errorf("state = %s, want faulted", p.State())
	}

	// re-acquiring without external intervention is refused
	if err := p.Acquire(ctx); !errors.Is(err, ErrFaulted) {
		t.Errorf("Acquire() error = %v, want ErrFaulted", err)
	}
}

func TestReset(t *testing.T) {
	ops := &fakeOps{startErr: errors.New("no power")}
	p := newTestProcessor(t, bootAddrImage(0x2000), ops)
	ctx := context.Background()

	if err := p.Reset(); err == nil {
		t.Error("Reset() of an offline processor should fail")
	}

	if err := p.Acquire(ctx); !errors.Is(err, ErrStartFailed) {
		t.Fatalf("Acquire() error = %v, want ErrStartFailed", err)
	}
	if p.State() != StateFaulted {
		t.Fatalf("state = %s, want faulted", p.State())
	}

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if p.State() != StateOffline {
		t.Fatalf("state = %s, want offline", p.State())
	}

	// power comes back: the processor boots again
	ops.mu.Lock()
	ops.startErr = nil
	ops.mu.Unlock()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() after Reset() error: %v", err)
	}
	if starts, _ := ops.counts(); starts != 2 {
		t.Errorf("starts = %d, want 2", starts)
	}
}

func TestTraceBuffers(t *testing.T) {
	image := imageWithResources([]resource.Entry{
		{Type: resource.TypeBootAddress, DeviceAddress: 0x2000},
		{Type: resource.TypeTrace, DeviceAddress: 0x4000, Len: 0x1000, Name: "trace0"},
		{Type: resource.TypeTrace, DeviceAddress: 0x5000, Len: 0x800, Name: "trace1"},
	})

	ops := &fakeOps{}
	p := newTestProcessor(t, image, ops, func(cfg *ProcessorConfig) {
		cfg.MemoryMaps = MemoryMaps{{DeviceAddress: 0x4000, PhysicalAddress: 0x90004000, Size: 0x2000}}
	})
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	traces := p.TraceBuffers()
	if len(traces) != 2 {
		t.Fatalf("trace buffers = %d, want 2", len(traces))
	}
	if traces[0].Name != "trace0" || traces[0].PhysicalAddress != 0x90004000 {
		t.Errorf("trace0 = %+v", traces[0])
	}
	if traces[1].Name != "trace1" || traces[1].PhysicalAddress != 0x90005000 {
		t.Errorf("trace1 = %+v", traces[1])
	}
	if traces[1].Len != 0x800 {
		t.Errorf("trace1 len = 0x%x, want 0x800", traces[1].Len)
	}

	if err := p.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if got := p.TraceBuffers(); len(got) != 0 {
		t.Errorf("trace buffers after power-off = %d, want 0", len(got))
	}
}

func TestTraceBufferOutsideMemoryMap(t *testing.T) {
	image := imageWithResources([]resource.Entry{
		{Type: resource.TypeTrace, DeviceAddress: 0xdead0000, Len: 0x1000, Name: "trace0"},
	})

	ops := &fakeOps{}
	p := newTestProcessor(t, image, ops, func(cfg *ProcessorConfig) {
		cfg.MemoryMaps = MemoryMaps{{DeviceAddress: 0x0, PhysicalAddress: 0x90000000, Size: 0x1000}}
	})

	err := p.Acquire(context.Background())
	if !errors.Is(err, ErrUnmappedAddress) {
		t.Fatalf("Acquire() error = %v, want ErrUnmappedAddress", err)
	}
	if starts, _ := ops.counts(); starts != 0 {
		t.Errorf("starts = %d, want 0", starts)
	}
}
