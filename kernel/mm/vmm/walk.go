package vmm

import (
	"gopheros/kernel/mm"
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments. If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the P4 table. It calls walkFn with the entry that corresponds to each page
// table level. After walkFn returns true for a non-final level, the walk
// descends into the table referenced by that entry, so walkFn may populate
// a missing entry before the walk follows it.
func (pt *OffsetPageTable) walk(virtAddr mm.VirtAddr, walkFn pageTableWalker) {
	table := pt.l4
	for level := uint8(0); level < pageLevels; level++ {
		pte := &table[tableIndex(virtAddr, level)]
		if !walkFn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			table = pt.tableAt(pte.Frame())
		}
	}
}
