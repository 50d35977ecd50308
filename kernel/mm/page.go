// Package mm defines the address, frame and page types shared by the
// physical and virtual memory managers.
package mm

import (
	"gopheros/kernel"
	"math"
)

// Frame describes a physical memory page index.
type Frame uintptr

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address where this frame begins.
func (f Frame) Address() PhysAddr {
	return PhysAddr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical
// address. Addresses that are not page-aligned are rounded down.
func FrameFromAddress(physAddr PhysAddr) Frame {
	return Frame((uintptr(physAddr) & ^(PageSize - 1)) >> PageShift)
}

// FrameAllocator is implemented by physical frame allocators. AllocFrame
// returns the next unused frame or InvalidFrame together with an error when
// physical memory is exhausted.
type FrameAllocator interface {
	AllocFrame() (Frame, *kernel.Error)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual address where this page begins.
func (p Page) Address() VirtAddr {
	return VirtAddr(p << PageShift)
}

// PageFromAddress returns the Page that contains the given virtual address.
// Addresses that are not page-aligned are rounded down.
func PageFromAddress(virtAddr VirtAddr) Page {
	return Page((uintptr(virtAddr) & ^(PageSize - 1)) >> PageShift)
}
