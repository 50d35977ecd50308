// Package bootinfo decodes the structure the bootloader hands to the kernel
// entry point. The structure contains the virtual address at which all of
// physical memory is mapped and the system memory map:
//
//   offset  size  field
//   0       8     physical memory offset
//   8       8     number of memory regions (at most MaxRegions)
//   16      24*n  regions: start (8), end (8), type (4), padding (4)
//
// The data belongs to the bootloader and lives for the whole kernel lifetime;
// this package only reads it.
package bootinfo

import (
	"gopheros/kernel/mm"
	"unsafe"
)

// MaxRegions is the maximum number of memory regions the bootloader reports.
const MaxRegions = 64

var (
	// activeInfo points to the bootloader data registered with SetInfoPtr.
	activeInfo *Header

	emptyHeader Header
)

// RegionType describes how a memory region may be used.
type RegionType uint32

const (
	// RegionUsable is free memory the kernel may allocate.
	RegionUsable RegionType = iota + 1

	// RegionInUse is memory in use by something not covered by the other
	// types.
	RegionInUse

	// RegionReserved is memory reserved by the firmware.
	RegionReserved

	// RegionAcpiReclaimable holds ACPI tables that can be reclaimed once read.
	RegionAcpiReclaimable

	// RegionAcpiNvs is ACPI non-volatile storage.
	RegionAcpiNvs

	// RegionBadMemory is memory reported as faulty.
	RegionBadMemory

	// RegionKernel holds the loaded kernel image.
	RegionKernel

	// RegionKernelStack holds the boot stack.
	RegionKernelStack

	// RegionPageTable holds the page tables set up by the bootloader.
	RegionPageTable

	// RegionBootloader is occupied by the bootloader itself.
	RegionBootloader

	// RegionFrameZero is the first physical frame, reserved so that a null
	// physical address is never handed out.
	RegionFrameZero

	// RegionEmpty is an unused map slot.
	RegionEmpty

	// RegionBootInfo holds this structure.
	RegionBootInfo

	// RegionPackage holds a package loaded by the bootloader.
	RegionPackage

	// Any value >= regionUnknown is treated as reserved.
	regionUnknown
)

// String implements fmt.Stringer for RegionType.
func (t RegionType) String() string {
	switch t {
	case RegionUsable:
		return "usable"
	case RegionInUse:
		return "in use"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaimable:
		return "ACPI (reclaimable)"
	case RegionAcpiNvs:
		return "ACPI NVS"
	case RegionBadMemory:
		return "bad memory"
	case RegionKernel:
		return "kernel"
	case RegionKernelStack:
		return "kernel stack"
	case RegionPageTable:
		return "page table"
	case RegionBootloader:
		return "bootloader"
	case RegionFrameZero:
		return "frame zero"
	case RegionEmpty:
		return "empty"
	case RegionBootInfo:
		return "boot info"
	case RegionPackage:
		return "package"
	default:
		return "unknown"
	}
}

// MemoryRegion describes a physical memory range [Start, End) and its type.
// The field layout matches the bootloader's encoding.
type MemoryRegion struct {
	// The physical address where this region starts.
	Start mm.PhysAddr

	// The physical address right after the end of this region.
	End mm.PhysAddr

	// The type of this region.
	Type RegionType

	_ uint32
}

// Size returns the length of the region in bytes.
func (r MemoryRegion) Size() mm.Size {
	if r.End <= r.Start {
		return 0
	}
	return mm.Size(r.End - r.Start)
}

// Usable returns true if the kernel may allocate frames from this region.
func (r MemoryRegion) Usable() bool {
	return r.Type == RegionUsable
}

// Header overlays the bootloader data.
type Header struct {
	// The virtual address where the bootloader mapped physical address 0.
	PhysMemOffset uint64

	// The number of entries in the memory map.
	RegionCount uint64

	regions [0]MemoryRegion
}

// HeaderSize is the offset of the first region. unsafe.Sizeof(Header{}) is
// not used as the compiler pads structs that end in a zero-sized field.
const HeaderSize = unsafe.Offsetof(Header{}.regions)

// RegionSize is the encoded size of a MemoryRegion.
const RegionSize = unsafe.Sizeof(MemoryRegion{})

// MaxSize is the largest number of bytes a Header may cover.
const MaxSize = HeaderSize + MaxRegions*RegionSize

// FromPtr returns a Header overlaying the bootloader data at ptr.
func FromPtr(ptr uintptr) *Header {
	return (*Header)(unsafe.Pointer(ptr))
}

// Size returns the number of bytes covered by the header and the memory
// regions it claims to contain.
func (h *Header) Size() uintptr {
	return HeaderSize + uintptr(h.RegionCount)*RegionSize
}

// Valid returns true if the region count is within bounds.
func (h *Header) Valid() bool {
	return h.RegionCount <= MaxRegions
}

// MemoryMap returns the memory regions reported by the bootloader. The
// returned slice aliases the bootloader data; callers must not modify it.
// An invalid header yields an empty map.
func (h *Header) MemoryMap() []MemoryRegion {
	if !h.Valid() || h.RegionCount == 0 {
		return nil
	}

	n := int(h.RegionCount)
	return (*[MaxRegions]MemoryRegion)(unsafe.Pointer(&h.regions))[:n:n]
}

// SetInfoPtr registers the address of the bootloader data. It is called
// once by the kernel entry point.
func SetInfoPtr(ptr uintptr) {
	activeInfo = FromPtr(ptr)
}

func active() *Header {
	if activeInfo == nil {
		return &emptyHeader
	}
	return activeInfo
}

// PhysicalMemoryOffset returns the virtual address at which the bootloader
// mapped all of physical memory.
func PhysicalMemoryOffset() mm.VirtAddr {
	return mm.VirtAddr(active().PhysMemOffset)
}

// MemoryMap returns the memory map registered with SetInfoPtr.
func MemoryMap() []MemoryRegion {
	return active().MemoryMap()
}
