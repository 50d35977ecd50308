package kmain

import (
	"gopheros/kernel"
	"gopheros/kernel/bootinfo"
	"gopheros/kernel/cpu"
	"gopheros/kernel/driver/video/console"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/mm"
	"gopheros/kernel/mm/pmm/allocator"
	"gopheros/kernel/mm/vmm"
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	disableInterruptsFn = cpu.DisableInterrupts
	vmmInitFn           = vmm.Init
	panicFn             = kfmt.Panic

	// fbPhysAddr is the physical address of the VGA text framebuffer.
	fbPhysAddr = mm.PhysAddr(console.FramebufferPhysAddr)

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// The memory subsystem state lives in package-level variables as the
	// heap is not available while Kmain runs.
	pageTable      vmm.OffsetPageTable
	bootAllocator  allocator.BootMemAllocator
	frameAllocator allocator.SyncAllocator
	vgaConsole     console.VgaText
)

// Kmain is the only Go symbol that is visible (exported) from the rt0 initialization
// code. This function is invoked by the rt0 assembly code after setting up the GDT
// and setting up a a minimal g0 struct that allows Go code using the 4K stack
// allocated by the assembly code.
//
// The rt0 code passes the address of the boot info structure provided by the
// bootloader. The bootloader maps the complete physical memory at the offset
// stored in that structure.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	// Nothing below may be interrupted; no handlers are installed yet.
	disableInterruptsFn()

	bootinfo.SetInfoPtr(bootInfoPtr)

	pageTable = vmmInitFn(bootinfo.PhysicalMemoryOffset())

	// Output produced so far sits in the early ring buffer and gets flushed
	// once the console is attached.
	fbVirtAddr := pageTable.PhysToVirt(fbPhysAddr)
	vgaConsole.Init(uintptr(fbVirtAddr), console.DefaultWidth, console.DefaultHeight)
	kfmt.SetOutputSink(&vgaConsole)

	bootAllocator = allocator.Init(bootinfo.MemoryMap())
	bootAllocator.PrintMemoryMap()
	frameAllocator.Init(&bootAllocator)

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}
