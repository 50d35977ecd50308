package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/mm"
)

var (
	// ErrPageAlreadyMapped is returned by Map when the page is already
	// mapped to a frame.
	ErrPageAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}
)

// Map establishes a mapping between a virtual page and a physical memory
// frame. Page tables missing from the walk are allocated from alloc, cleared
// through the physical memory offset mapping and linked with FlagPresent and
// FlagRW (plus FlagUserAccessible if requested by flags).
//
// Map returns the allocator's error if a page table cannot be allocated,
// ErrUnsupportedMapping if the walk runs into a huge page and
// ErrPageAlreadyMapped if the page is already mapped. FlagPresent is always
// added to flags.
func (pt *OffsetPageTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	var (
		err         *kernel.Error
		parentFlags = FlagPresent | FlagRW | (flags & FlagUserAccessible)
	)

	pt.walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flag it as present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				err = ErrPageAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags | FlagPresent)
			flushTLBEntryFn(uintptr(page.Address()))
			return true
		}

		if pte.HasFlags(FlagPresent) {
			if pte.HasFlags(FlagHugePage) {
				err = ErrUnsupportedMapping
				return false
			}

			pte.SetFlags(parentFlags)
			return true
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		var newTableFrame mm.Frame
		if newTableFrame, err = alloc.AllocFrame(); err != nil {
			return false
		}

		*pt.tableAt(newTableFrame) = PageTable{}

		*pte = 0
		pte.SetFrame(newTableFrame)
		pte.SetFlags(parentFlags)
		return true
	})

	return err
}
