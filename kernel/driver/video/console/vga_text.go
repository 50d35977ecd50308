package console

import (
	"reflect"
	"unsafe"
)

const (
	// DefaultWidth and DefaultHeight are the dimensions of the 80x25 VGA
	// text mode set up by the bootloader.
	DefaultWidth  = 80
	DefaultHeight = 25

	// FramebufferPhysAddr is the physical address of the VGA text
	// framebuffer.
	FramebufferPhysAddr = 0xb8000

	// light gray text on black background
	defaultAttr = uint16(LightGray) << 8
	clearChar   = uint16(' ')
	tabWidth    = 4
)

// The 16 EGA colors supported in text mode.
const (
	Black uint8 = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// VgaText implements a write-only text console that renders characters
// directly into the VGA text framebuffer. Each cell is two bytes wide: the
// low byte holds the ASCII code and the high byte the color attribute.
//
// VgaText implements io.Writer so it can be attached as the kfmt output sink.
// The cursor wraps at the end of a line and the console contents scroll up
// once the cursor moves past the last row.
type VgaText struct {
	width  uint32
	height uint32

	curX, curY uint32

	// attr holds the color attribute in the high byte of a cell.
	attr uint16

	fb []uint16
}

// Init sets up the console to render into the framebuffer mapped at
// fbVirtAddr and clears it. The framebuffer must be at least width*height
// cells long.
func (cons *VgaText) Init(fbVirtAddr uintptr, width, height uint32) {
	cons.width = width
	cons.height = height
	cons.curX, cons.curY = 0, 0
	cons.attr = defaultAttr

	cons.fb = *(*[]uint16)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(width * height),
		Cap:  int(width * height),
		Data: fbVirtAddr,
	}))

	cons.Clear(0, 0, width, height)
}

// Dimensions returns the console width and height in characters.
func (cons *VgaText) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// Cursor returns the 0-based column and row where the next character will be
// written.
func (cons *VgaText) Cursor() (uint32, uint32) {
	return cons.curX, cons.curY
}

// SetColors changes the foreground and background colors used by subsequent
// writes and clears. Only the low 4 bits of each color are used.
func (cons *VgaText) SetColors(fg, bg uint8) {
	cons.attr = ((uint16(bg&0xf) << 4) | uint16(fg&0xf)) << 8
}

// Clear fills the specified rectangular region with the clear character in
// the active colors. The rectangle is clipped to the console dimensions.
func (cons *VgaText) Clear(x, y, width, height uint32) {
	var (
		clr                  = cons.attr | clearChar
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x >= cons.width || y >= cons.height {
		return
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Scroll moves the console contents up by the specified number of lines and
// clears the rows that became free at the bottom.
func (cons *VgaText) Scroll(lines uint32) {
	if lines == 0 {
		return
	}

	if lines > cons.height {
		lines = cons.height
	}

	offset := lines * cons.width
	for i := uint32(0); i < (cons.height-lines)*cons.width; i++ {
		cons.fb[i] = cons.fb[i+offset]
	}

	cons.Clear(0, cons.height-lines, cons.width, lines)
}

// Write renders p at the current cursor position. It handles '\n', '\r' and
// '\t'; any other byte is written to the framebuffer as is. Write always
// consumes the entire input.
func (cons *VgaText) Write(p []byte) (int, error) {
	for _, ch := range p {
		cons.writeByte(ch)
	}

	return len(p), nil
}

func (cons *VgaText) writeByte(ch byte) {
	switch ch {
	case '\n':
		cons.newLine()
	case '\r':
		cons.curX = 0
	case '\t':
		for i := 0; i < tabWidth; i++ {
			cons.writeByte(' ')
		}
	default:
		cons.fb[(cons.curY*cons.width)+cons.curX] = cons.attr | uint16(ch)
		cons.curX++
		if cons.curX == cons.width {
			cons.newLine()
		}
	}
}

func (cons *VgaText) newLine() {
	cons.curX = 0
	if cons.curY+1 < cons.height {
		cons.curY++
		return
	}

	cons.Scroll(1)
}
