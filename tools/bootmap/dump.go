package main

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"gopheros/kernel/bootinfo"
	"gopheros/kernel/mm"
	"gopheros/kernel/mm/pmm/allocator"
)

var (
	errTruncatedHeader = errors.New("dump is smaller than the boot info header")
	errTooManyRegions  = fmt.Errorf("memory map has more than %d regions", bootinfo.MaxRegions)
)

// dumpReader is implemented by *mmap.ReaderAt.
type dumpReader interface {
	io.ReaderAt
	Len() int
}

// dump holds a decoded boot info blob.
type dump struct {
	name          string
	physMemOffset mm.VirtAddr
	regions       []bootinfo.MemoryRegion
	usableFrames  uint64
}

// decodeDump reads the boot info structure stored at the start of r.
func decodeDump(name string, r dumpReader) (*dump, error) {
	// Back the buffer with uint64 words so the header overlay is aligned.
	words := make([]uint64, bootinfo.MaxSize/8)
	buf := (*[bootinfo.MaxSize]byte)(unsafe.Pointer(&words[0]))[:]

	n := r.Len()
	if n > len(buf) {
		n = len(buf)
	}

	if n < int(bootinfo.HeaderSize) {
		return nil, errTruncatedHeader
	}

	if _, err := r.ReadAt(buf[:n], 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading boot info: %w", err)
	}

	hdr := bootinfo.FromPtr(uintptr(unsafe.Pointer(&buf[0])))
	if !hdr.Valid() {
		return nil, errTooManyRegions
	}

	if size := hdr.Size(); uintptr(n) < size {
		return nil, fmt.Errorf("memory map claims %d bytes but the dump only has %d", size, n)
	}

	// Copy the regions out of buf so the result does not alias it.
	regions := append([]bootinfo.MemoryRegion(nil), hdr.MemoryMap()...)

	return &dump{
		name:          name,
		physMemOffset: mm.VirtAddr(hdr.PhysMemOffset),
		regions:       regions,
		usableFrames:  allocator.CountUsableFrames(regions),
	}, nil
}

// write prints a summary of the dump and, if verbose is set, the memory map.
func (d *dump) write(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s: physical memory offset 0x%x, %d regions\n", d.name, uintptr(d.physMemOffset), len(d.regions))
	if verbose {
		for _, region := range d.regions {
			fmt.Fprintf(w, "\t[0x%010x - 0x%010x], size: %10d, type: %s\n", uintptr(region.Start), uintptr(region.End), uint64(region.Size()), region.Type)
		}
	}

	usable := mm.Size(d.usableFrames) * mm.Size(mm.PageSize)
	fmt.Fprintf(w, "%s: %d usable frames (%dKb)\n", d.name, d.usableFrames, uint64(usable/mm.Kb))
}
