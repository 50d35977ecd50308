package kfmt

import (
	"gopheros/kernel"
	"gopheros/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// EGA color indices for the panic banner: white on red.
const (
	panicFg = 15
	panicBg = 4
)

// colorSetter is implemented by output sinks that can change the color of
// the text written to them.
type colorSetter interface {
	SetColors(fg, bg uint8)
}

// Panic reports an unrecoverable error and halts the CPU. The supplied value
// may be a *kernel.Error, an error or a string; anything else is reported
// without a cause. If the output sink supports colors, the report is printed
// white on red. Panic never returns on real hardware.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	}

	if cs, ok := outputSink.(colorSetter); ok {
		cs.SetColors(panicFg, panicBg)
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
