package allocator

import (
	"bytes"
	"gopheros/kernel"
	"gopheros/kernel/bootinfo"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/mm"
	"testing"
)

func TestBootMemAllocator(t *testing.T) {
	specs := []struct {
		descr     string
		regions   []bootinfo.MemoryRegion
		expFrames []mm.PhysAddr
	}{
		{
			"single usable frame",
			[]bootinfo.MemoryRegion{
				{Start: 0x100000, End: 0x101000, Type: bootinfo.RegionUsable},
			},
			[]mm.PhysAddr{0x100000},
		},
		{
			"reserved regions are skipped",
			[]bootinfo.MemoryRegion{
				{Start: 0x0, End: 0x1000, Type: bootinfo.RegionReserved},
				{Start: 0x1000, End: 0x2000, Type: bootinfo.RegionUsable},
			},
			[]mm.PhysAddr{0x1000},
		},
		{
			"regions are consumed in bootloader order",
			[]bootinfo.MemoryRegion{
				{Start: 0x200000, End: 0x202000, Type: bootinfo.RegionUsable},
				{Start: 0x202000, End: 0x300000, Type: bootinfo.RegionKernel},
				{Start: 0x1000, End: 0x3000, Type: bootinfo.RegionUsable},
				{Start: 0x3000, End: 0x4000, Type: bootinfo.RegionAcpiNvs},
			},
			[]mm.PhysAddr{0x200000, 0x201000, 0x1000, 0x2000},
		},
		{
			"unaligned region bounds only yield whole frames",
			[]bootinfo.MemoryRegion{
				{Start: 0x800, End: 0x3800, Type: bootinfo.RegionUsable},
				{Start: 0x9fc00, End: 0x9ffff, Type: bootinfo.RegionUsable},
			},
			[]mm.PhysAddr{0x1000, 0x2000},
		},
		{
			"region start in the last page does not wrap around",
			[]bootinfo.MemoryRegion{
				{Start: 0xfffffffffffff800, End: 0xffffffffffffffff, Type: bootinfo.RegionUsable},
				{Start: 0x1000, End: 0x2000, Type: bootinfo.RegionUsable},
			},
			[]mm.PhysAddr{0x1000},
		},
		{
			"region starting at frame zero",
			[]bootinfo.MemoryRegion{
				{Start: 0x0, End: 0x2000, Type: bootinfo.RegionUsable},
			},
			[]mm.PhysAddr{0x0, 0x1000},
		},
		{
			"no usable memory",
			[]bootinfo.MemoryRegion{
				{Start: 0x0, End: 0x1000, Type: bootinfo.RegionFrameZero},
				{Start: 0x1000, End: 0x100000, Type: bootinfo.RegionBootloader},
			},
			nil,
		},
		{
			"empty memory map",
			nil,
			nil,
		},
	}

	var alloc BootMemAllocator
	for specIndex, spec := range specs {
		alloc.init(spec.regions)

		for frameIndex, expAddr := range spec.expFrames {
			frame, err := alloc.AllocFrame()
			if err != nil {
				t.Errorf("[spec %d: %s] [frame %d] unexpected allocator error: %v", specIndex, spec.descr, frameIndex, err)
				break
			}

			if !frame.Valid() {
				t.Errorf("[spec %d: %s] [frame %d] expected frame to be valid", specIndex, spec.descr, frameIndex)
			}

			if got := frame.Address(); got != expAddr {
				t.Errorf("[spec %d: %s] [frame %d] expected frame address to be 0x%x; got 0x%x", specIndex, spec.descr, frameIndex, expAddr, got)
			}
		}

		// Exhaustion must be sticky
		for i := 0; i < 3; i++ {
			frame, err := alloc.AllocFrame()
			if err != ErrOutOfMemory {
				t.Errorf("[spec %d: %s] expected ErrOutOfMemory after %d allocations; got %v", specIndex, spec.descr, len(spec.expFrames), err)
			}

			if frame.Valid() {
				t.Errorf("[spec %d: %s] expected InvalidFrame after exhaustion; got %d", specIndex, spec.descr, frame)
			}
		}

		if exp, got := uint64(len(spec.expFrames)), alloc.AllocCount(); got != exp {
			t.Errorf("[spec %d: %s] expected AllocCount() to return %d; got %d", specIndex, spec.descr, exp, got)
		}

		if exp, got := uint64(len(spec.expFrames)), CountUsableFrames(spec.regions); got != exp {
			t.Errorf("[spec %d: %s] expected CountUsableFrames() to return %d; got %d", specIndex, spec.descr, exp, got)
		}
	}
}

func TestBootMemAllocatorIssuesDistinctUsableFrames(t *testing.T) {
	// The memory map reported by qemu for a machine with 128M of RAM
	regions := []bootinfo.MemoryRegion{
		{Start: 0x0, End: 0x1000, Type: bootinfo.RegionFrameZero},
		{Start: 0x1000, End: 0x9fc00, Type: bootinfo.RegionUsable},
		{Start: 0x9fc00, End: 0xa0000, Type: bootinfo.RegionReserved},
		{Start: 0xf0000, End: 0x100000, Type: bootinfo.RegionReserved},
		{Start: 0x100000, End: 0x400000, Type: bootinfo.RegionKernel},
		{Start: 0x400000, End: 0x420000, Type: bootinfo.RegionPageTable},
		{Start: 0x420000, End: 0x7fe0000, Type: bootinfo.RegionUsable},
		{Start: 0x7fe0000, End: 0x8000000, Type: bootinfo.RegionReserved},
		{Start: 0xfffc0000, End: 0x100000000, Type: bootinfo.RegionReserved},
	}

	// region 1 is rounded to [0x1000, 0x9f000) and provides 158 frames
	// region 6 provides (0x7fe0000 - 0x420000) / 0x1000 = 31680 frames
	expCount := uint64(158 + 31680)
	if got := CountUsableFrames(regions); got != expCount {
		t.Fatalf("expected %d usable frames; got %d", expCount, got)
	}

	var alloc BootMemAllocator
	alloc.init(regions)

	seen := make(map[mm.Frame]struct{}, expCount)
	for {
		frame, err := alloc.AllocFrame()
		if err == ErrOutOfMemory {
			break
		} else if err != nil {
			t.Fatalf("unexpected allocator error: %v", err)
		}

		if _, dup := seen[frame]; dup {
			t.Fatalf("frame %d was allocated twice", frame)
		}
		seen[frame] = struct{}{}

		if !insideUsableRegion(regions, frame) {
			t.Fatalf("frame at 0x%x does not lie inside a usable region", frame.Address())
		}
	}

	if got := alloc.AllocCount(); got != expCount {
		t.Fatalf("expected allocator to hand out %d frames; got %d", expCount, got)
	}
}

func TestInit(t *testing.T) {
	defer func(origPanicFn func(interface{})) {
		panicFn = origPanicFn
		initialized = 0
	}(panicFn)

	var panicErr interface{}
	panicFn = func(e interface{}) {
		panicErr = e
	}

	regions := []bootinfo.MemoryRegion{
		{Start: 0x100000, End: 0x101000, Type: bootinfo.RegionUsable},
	}

	initialized = 0
	alloc := Init(regions)
	if panicErr != nil {
		t.Fatalf("unexpected call to panic: %v", panicErr)
	}

	frame, err := alloc.AllocFrame()
	if err != nil || frame.Address() != 0x100000 {
		t.Fatalf("expected first frame to be at 0x100000; got 0x%x (err: %v)", frame.Address(), err)
	}

	second := Init(regions)
	if panicErr != errAlreadyInitialized {
		t.Fatalf("expected a second call to Init to panic with errAlreadyInitialized; got %v", panicErr)
	}

	if _, err = second.AllocFrame(); err != ErrOutOfMemory {
		t.Fatalf("expected the allocator returned by a rejected Init call to be empty; got %v", err)
	}
}

func TestPrintMemoryMap(t *testing.T) {
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	var alloc BootMemAllocator
	alloc.init([]bootinfo.MemoryRegion{
		{Start: 0x0, End: 0x1000, Type: bootinfo.RegionReserved},
		{Start: 0x1000, End: 0x9000, Type: bootinfo.RegionUsable},
	})
	alloc.PrintMemoryMap()

	exp := "[boot_mem_alloc] system memory map:\n" +
		"\t[0x0000000000 - 0x0000001000], size:       4096, type: reserved\n" +
		"\t[0x0000001000 - 0x0000009000], size:      32768, type: usable\n" +
		"[boot_mem_alloc] available memory: 32Kb\n"

	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%s\ngot:\n%s", exp, got)
	}
}

func insideUsableRegion(regions []bootinfo.MemoryRegion, frame mm.Frame) bool {
	for _, region := range regions {
		if region.Usable() && frame.Address() >= region.Start && frame.Address()+mm.PhysAddr(mm.PageSize) <= region.End {
			return true
		}
	}
	return false
}

// emptyAllocator never has any frames available.
type emptyAllocator struct{}

func (emptyAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return mm.InvalidFrame, ErrOutOfMemory
}
