package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/mm"
)

var (
	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrUnsupportedMapping is returned when a page walk reaches an entry
	// that maps a huge page.
	ErrUnsupportedMapping = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// Translate returns the physical address that corresponds to the supplied
// virtual address.
//
// Translate returns ErrInvalidMapping if any level of the page walk is not
// present and ErrUnsupportedMapping if the address is covered by a huge page.
func (pt *OffsetPageTable) Translate(virtAddr mm.VirtAddr) (mm.PhysAddr, *kernel.Error) {
	pte, err := pt.pteForAddress(virtAddr)
	if err != nil {
		return 0, err
	}

	// Calculate the physical address by taking the physical frame address and
	// appending the offset from the virtual address
	return pte.Frame().Address() + mm.PhysAddr(virtAddr.PageOffset()), nil
}

// pteForAddress returns the final page table entry that corresponds to a
// particular virtual address.
func (pt *OffsetPageTable) pteForAddress(virtAddr mm.VirtAddr) (*pageTableEntry, *kernel.Error) {
	var (
		err   *kernel.Error
		entry *pageTableEntry
	)

	pt.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		switch {
		case !pte.HasFlags(FlagPresent):
			entry, err = nil, ErrInvalidMapping
			return false
		case pteLevel < pageLevels-1 && pte.HasFlags(FlagHugePage):
			entry, err = nil, ErrUnsupportedMapping
			return false
		}

		entry = pte
		return true
	})

	return entry, err
}
