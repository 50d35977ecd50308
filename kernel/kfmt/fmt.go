// Package kfmt implements formatted diagnostic output for the kernel. None of
// the functions in this package allocate memory, so they are safe to call
// while the memory subsystem is still being brought up.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize is large enough to hold a 64-bit value in base 8 plus padding.
const numBufSize = 32

var (
	errMissingArg   = []byte("%!(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")
	hexDigits       = "0123456789abcdef"

	numBuf     [numBufSize]byte
	singleByte = []byte(" ")

	// earlyPrintBuffer captures output produced before a sink is attached.
	earlyPrintBuffer ringBuffer

	// outputSink receives Printf output. While nil, output goes to
	// earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for Printf output to w and replays any
// output captured while no sink was attached.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf writes formatted output to the active output sink. It supports the
// following subset of the fmt verbs:
//
//   %s  string or []byte
//   %d  integer, base 10 (space padded)
//   %x  integer, base 16 with lower-case letters (zero padded)
//   %o  integer, base 8 (zero padded)
//   %t  bool
//   %%  a literal percent sign
//
// An optional decimal width may precede the verb. Printf does not consult
// fmt.Stringer and does not support %p; both would need the runtime's
// allocator.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes its output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		ch       byte
	)

	for i := 0; i < len(format); i++ {
		if ch = format[i]; ch != '%' {
			writeByte(w, ch)
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i >= len(format) {
			doWrite(w, errNoVerb)
			break
		}

		ch = format[i]
		if ch == '%' {
			writeByte(w, '%')
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch ch {
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 'o':
			fmtInt(w, args[argIndex], 8, width)
		case 's':
			fmtString(w, args[argIndex], width)
		case 't':
			fmtBool(w, args[argIndex])
		default:
			doWrite(w, errNoVerb)
			continue
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		writeRepeat(w, ' ', width-len(s))
		// converting s to a []byte would allocate
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		writeRepeat(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtInt formats the integer v in the requested base. Base 10 values are
// padded with spaces, everything else with zeroes.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		val  uint64
		neg  bool
		pos  = numBufSize
		padC = byte('0')
	)

	switch n := v.(type) {
	case uint8:
		val = uint64(n)
	case uint16:
		val = uint64(n)
	case uint32:
		val = uint64(n)
	case uint64:
		val = n
	case uint:
		val = uint64(n)
	case uintptr:
		val = uint64(n)
	case int8:
		val, neg = abs(int64(n))
	case int16:
		val, neg = abs(int64(n))
	case int32:
		val, neg = abs(int64(n))
	case int64:
		val, neg = abs(n)
	case int:
		val, neg = abs(int64(n))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if base == 10 {
		padC = ' '
	}

	if width > numBufSize-1 {
		width = numBufSize - 1
	}

	for {
		pos--
		numBuf[pos] = hexDigits[val%base]
		if val /= base; val == 0 {
			break
		}
	}

	if neg && padC == ' ' {
		pos--
		numBuf[pos] = '-'
	}

	for numBufSize-pos < width {
		pos--
		numBuf[pos] = padC
	}

	if neg && padC == '0' {
		if numBuf[pos] == '0' && numBufSize-pos > 1 {
			numBuf[pos] = '-'
		} else {
			pos--
			numBuf[pos] = '-'
		}
	}

	doWrite(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func writeRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

func writeByte(w io.Writer, ch byte) {
	singleByte[0] = ch
	doWrite(w, singleByte)
}

// doWrite hides p from escape analysis. Passing p straight to the io.Writer
// makes the compiler assume it escapes, which turns every Printf call into a
// heap allocation.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		_, _ = w.Write(p)
	} else {
		_, _ = earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
