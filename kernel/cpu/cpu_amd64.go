// Package cpu exposes the handful of privileged amd64 instructions the
// memory subsystem needs. All functions are implemented in assembly and
// fault if called outside ring 0, so code that uses them keeps a
// package-level function variable that tests can replace.
package cpu

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution. Halt never
// returns.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the physical address of the currently active top-level
// page table. The value is read from CR3 with the flag bits (PCD, PWT)
// masked out.
func ActivePDT() uintptr
