// Package vmm provides access to the active page table hierarchy through the
// physical memory offset mapping set up by the bootloader.
package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/cpu"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/mm"
	"sync/atomic"
	"unsafe"
)

var (
	// activePDTFn is used by tests to override calls to cpu.ActivePDT
	// which will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	// flushTLBEntryFn is used by tests to override calls to
	// cpu.FlushTLBEntry which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// panicFn is mocked by tests and is automatically inlined by the compiler.
	panicFn = kfmt.Panic

	// initialized is set by the first call to Init.
	initialized uint32

	errAlreadyInitialized = &kernel.Error{Module: "vmm", Message: "page table accessor can only be initialized once"}
)

// OffsetPageTable provides access to the page table hierarchy rooted at the
// active P4 table. All of physical memory is expected to be mapped at a fixed
// virtual offset, so a page table living at physical address P is reached
// through the virtual address offset+P.
//
// An OffsetPageTable is the only handle through which the kernel mutates page
// tables. It is obtained once via Init and must be passed around by pointer;
// copies alias the same hardware tables.
type OffsetPageTable struct {
	// l4Frame is the physical frame of the P4 table.
	l4Frame mm.Frame

	// l4 is the offset-mapped view of the P4 table.
	l4 *PageTable

	// offset is the virtual address where physical address 0 is mapped.
	offset mm.VirtAddr
}

// Init returns an OffsetPageTable for the page tables currently loaded in
// CR3. The physical memory offset must point to a mapping of all physical
// memory established by the bootloader; Init does not create that mapping
// and does not modify any page table.
//
// Init may only be called once. A second call would create another mutable
// view of the same hardware tables, so it is treated as a fatal error that
// halts the kernel.
func Init(physMemOffset mm.VirtAddr) OffsetPageTable {
	if atomic.SwapUint32(&initialized, 1) != 0 {
		panicFn(errAlreadyInitialized)
		return OffsetPageTable{}
	}

	l4Frame := mm.FrameFromAddress(mm.PhysAddr(activePDTFn()))
	kfmt.Printf("[vmm] active P4 table at 0x%x, physical memory offset 0x%x\n", uintptr(l4Frame.Address()), uintptr(physMemOffset))

	return newOffsetPageTable(l4Frame, physMemOffset)
}

// newOffsetPageTable builds an OffsetPageTable for the P4 table stored in the
// given frame.
func newOffsetPageTable(l4Frame mm.Frame, physMemOffset mm.VirtAddr) OffsetPageTable {
	pt := OffsetPageTable{
		l4Frame: l4Frame,
		offset:  physMemOffset,
	}
	pt.l4 = pt.tableAt(l4Frame)
	return pt
}

// Offset returns the virtual address where physical memory is mapped.
func (pt *OffsetPageTable) Offset() mm.VirtAddr {
	return pt.offset
}

// Level4Frame returns the physical frame that holds the P4 table.
func (pt *OffsetPageTable) Level4Frame() mm.Frame {
	return pt.l4Frame
}

// PhysToVirt returns the virtual address through which the kernel can access
// the given physical address.
func (pt *OffsetPageTable) PhysToVirt(physAddr mm.PhysAddr) mm.VirtAddr {
	return pt.offset + mm.VirtAddr(physAddr)
}

// tableAt returns the offset-mapped page table stored in frame.
func (pt *OffsetPageTable) tableAt(frame mm.Frame) *PageTable {
	return (*PageTable)(unsafe.Pointer(uintptr(pt.PhysToVirt(frame.Address()))))
}
