package mm

// PhysAddr is an address in physical memory. Physical addresses cannot be
// dereferenced directly; they must first be converted to a VirtAddr using
// the physical memory offset established by the bootloader.
type PhysAddr uintptr

// VirtAddr is an address in the kernel's virtual address space.
type VirtAddr uintptr

// Frame returns the physical frame that contains this address.
func (a PhysAddr) Frame() Frame {
	return FrameFromAddress(a)
}

// IsAligned returns true if the address is aligned to a page boundary.
func (a PhysAddr) IsAligned() bool {
	return uintptr(a)&(PageSize-1) == 0
}

// AlignUp rounds the address up to the nearest page boundary.
func (a PhysAddr) AlignUp() PhysAddr {
	return PhysAddr((uintptr(a) + (PageSize - 1)) & ^(PageSize - 1))
}

// AlignDown rounds the address down to the nearest page boundary.
func (a PhysAddr) AlignDown() PhysAddr {
	return PhysAddr(uintptr(a) & ^(PageSize - 1))
}

// Page returns the virtual page that contains this address.
func (a VirtAddr) Page() Page {
	return PageFromAddress(a)
}

// PageOffset returns the offset of the address within its page.
func (a VirtAddr) PageOffset() uintptr {
	return uintptr(a) & (PageSize - 1)
}
