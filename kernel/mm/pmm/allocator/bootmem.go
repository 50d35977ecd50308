// Package allocator implements the physical frame allocators used while the
// kernel boots.
package allocator

import (
	"gopheros/kernel"
	"gopheros/kernel/bootinfo"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/mm"
	"sync/atomic"
)

var (
	// panicFn is mocked by tests and is automatically inlined by the compiler.
	panicFn = kfmt.Panic

	// initialized is set by the first call to Init.
	initialized uint32

	// ErrOutOfMemory is returned by AllocFrame once every usable frame has
	// been handed out.
	ErrOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}

	errAlreadyInitialized = &kernel.Error{Module: "boot_mem_alloc", Message: "frame allocator can only be initialized once"}
)

// BootMemAllocator implements a rudimentary physical memory allocator which is
// used to bootstrap the kernel.
//
// The allocator walks the memory map provided by the bootloader and hands out
// the frames of each usable region in order, first by region and then by
// address. Its position is kept as a (region index, next address) cursor that
// only moves forward, so a frame is never returned twice and allocations do
// not rescan the regions already consumed.
//
// Allocated frames cannot be freed.
type BootMemAllocator struct {
	// The memory map reported by the bootloader. The allocator borrows
	// the slice and never modifies it.
	regions []bootinfo.MemoryRegion

	// regionIndex is the index of the region currently being consumed.
	regionIndex int

	// nextAddr is the address of the next candidate frame inside the
	// current region. A zero value means that the region has not been
	// entered yet.
	nextAddr mm.PhysAddr

	// allocCount tracks the total number of allocated frames.
	allocCount uint64
}

// Init returns an allocator that hands out the usable frames of the supplied
// memory map. Init may only be called once; a second call is a fatal error
// that halts the kernel.
func Init(regions []bootinfo.MemoryRegion) BootMemAllocator {
	var alloc BootMemAllocator

	if atomic.SwapUint32(&initialized, 1) != 0 {
		panicFn(errAlreadyInitialized)
		return alloc
	}

	alloc.init(regions)
	return alloc
}

// init resets the allocator state to the start of the supplied memory map.
func (alloc *BootMemAllocator) init(regions []bootinfo.MemoryRegion) {
	alloc.regions = regions
	alloc.regionIndex = 0
	alloc.nextAddr = 0
	alloc.allocCount = 0
}

// AllocFrame reserves the next free frame. It returns mm.InvalidFrame and
// ErrOutOfMemory once all usable memory has been handed out; every later
// call fails the same way.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	for ; alloc.regionIndex < len(alloc.regions); alloc.regionIndex, alloc.nextAddr = alloc.regionIndex+1, 0 {
		region := &alloc.regions[alloc.regionIndex]
		if !region.Usable() {
			continue
		}

		start, end := frameBounds(region)
		if alloc.nextAddr < start {
			alloc.nextAddr = start
		}

		if alloc.nextAddr < end {
			frame := mm.FrameFromAddress(alloc.nextAddr)
			alloc.nextAddr += mm.PhysAddr(mm.PageSize)
			alloc.allocCount++
			return frame, nil
		}
	}

	return mm.InvalidFrame, ErrOutOfMemory
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootMemAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// PrintMemoryMap prints the memory map the allocator was initialized with.
func (alloc *BootMemAllocator) PrintMemoryMap() {
	var totalFree mm.Size

	kfmt.Printf("[boot_mem_alloc] system memory map:\n")
	for i := range alloc.regions {
		region := &alloc.regions[i]
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", uintptr(region.Start), uintptr(region.End), uint64(region.Size()), region.Type.String())
	}

	totalFree = mm.Size(CountUsableFrames(alloc.regions)) * mm.Size(mm.PageSize)
	kfmt.Printf("[boot_mem_alloc] available memory: %dKb\n", uint64(totalFree/mm.Kb))
}

// CountUsableFrames returns the number of whole frames contained in the
// usable regions of a memory map. This is the number of successful
// AllocFrame calls an allocator initialized with the same map can serve.
func CountUsableFrames(regions []bootinfo.MemoryRegion) uint64 {
	var count uint64
	for i := range regions {
		if !regions[i].Usable() {
			continue
		}

		if start, end := frameBounds(&regions[i]); start < end {
			count += uint64(end-start) >> mm.PageShift
		}
	}

	return count
}

// frameBounds returns the page-aligned extents of a region. Reported
// addresses may not be page-aligned; the start is rounded up and the end is
// rounded down so that only frames lying entirely inside the region are
// returned. A region whose start wraps around the top of the address space
// when rounded up holds no whole frame and yields an empty range.
func frameBounds(region *bootinfo.MemoryRegion) (mm.PhysAddr, mm.PhysAddr) {
	start := region.Start.AlignUp()
	if start < region.Start {
		return 0, 0
	}

	return start, region.End.AlignDown()
}
