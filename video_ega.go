// video_ega.go - Enhanced Graphics Adapter subset: pel panning, line compare
//
// Four bitplanes behind a 6845-compatible CRTC (crtc.go), plus the
// EGA-specific attribute-controller pel-panning register and the
// line-compare split games use to pin a status bar below a smoothly
// scrolling play field.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

const (
	egaCellWidth      = 8
	egaPlaneSize      = 0x10000 // 64KB per bitplane, 4 planes
	egaMaxCols        = 80
	egaTextCellHeight = 14 // 350-line text: 25 rows of 14-scanline cells
	egaMaxRows        = 350 / egaTextCellHeight
)

// EGA is a 16-color planar adapter subset: four bitplanes, a 6845-
// compatible CRTC, an 80x25 text mode whose character generator lives
// in plane 2, pel panning, and the line-compare register that splits
// the display into an unpanned status region below a configurable
// scanline.
type EGA struct {
	crtc *CRTC
	planes [4][egaPlaneSize]byte

	graphicsMode bool // GC Miscellaneous bit 0: alphanumeric mode disabled
	cgaCompat    bool // GC Miscellaneous memory map 0b11: the 0xB8000 window
	pelPanning   byte // Attribute Controller index 0x13, low 4 bits
	lineCompare  uint16 // CRTC registers 0x18 + overflow bit

	planeMask byte // Sequencer Map Mask register (index 0x02)
	readPlane byte // Graphics Controller Read Map Select (index 0x04)
	gcIndex   byte // Graphics Controller register selected via 0x3CE
	gcMisc    byte // GC Miscellaneous register (index 0x06), kept for readback

	field *RasterField

	attrFlipFlop bool // Attribute Controller's index/data port share one address
}

func NewEGA() *EGA {
	e := &EGA{crtc: NewCRTC(0x3D4, 0x3D5, egaCellWidth), planeMask: 0x0F}
	e.crtc.SetRegisterWriteHook(e.onCRTCRegisterWrite)
	dispW, dispH := egaMaxCols*egaCellWidth, egaMaxRows*14
	overscanW, overscanH := dispW+2*egaCellWidth, dispH+28
	totalW, totalH := dispW+8*egaCellWidth, dispH+70
	e.field = newRasterField(totalW, totalH, overscanW, overscanH, dispW, dispH)
	return e
}

func (e *EGA) Reset() {
	e.crtc = NewCRTC(0x3D4, 0x3D5, egaCellWidth)
	e.crtc.SetRegisterWriteHook(e.onCRTCRegisterWrite)
	e.pelPanning = 0
	e.attrFlipFlop = false
	e.lineCompare = 0
	e.graphicsMode = false
	e.cgaCompat = false
	e.planeMask = 0x0F
	e.readPlane = 0
	e.gcIndex = 0
	e.gcMisc = 0
}

// onCRTCRegisterWrite keeps lineCompare in sync with CRTC register 0x18
// (its low 8 bits) and the overflow register's (0x07) bit 4, the 9th
// bit of the real EGA line-compare value.
func (e *EGA) onCRTCRegisterWrite(index, value byte) {
	switch index {
	case 0x18:
		e.SetLineCompare((e.lineCompare &^ 0xFF) | uint16(value))
	case 0x07:
		if value&0x10 != 0 {
			e.SetLineCompare(e.lineCompare | 0x100)
		} else {
			e.SetLineCompare(e.lineCompare &^ 0x100)
		}
	}
}

// ReadMem8/WriteMem8 implement the 0xA0000-0xAFFFF (native) and
// 0xB8000-0xBFFFF (CGA-compat) windows. The GC Miscellaneous register's
// memory-map field selects which window decodes; accesses to the
// inactive one see open bus, exactly as if the card weren't listening
// there.
func (e *EGA) ReadMem8(addr uint32) byte {
	off := e.planarOffset(addr)
	if off >= egaPlaneSize {
		return 0xFF
	}
	return e.planes[e.readPlane&0x03][off]
}

func (e *EGA) WriteMem8(addr uint32, v byte) {
	off := e.planarOffset(addr)
	if off >= egaPlaneSize {
		return
	}
	for p := 0; p < 4; p++ {
		if e.planeMask&(1<<uint(p)) != 0 {
			e.planes[p][off] = v
		}
	}
}

func (e *EGA) planarOffset(addr uint32) uint32 {
	if e.cgaCompat {
		if addr >= 0xB8000 && addr < 0xC0000 {
			return addr - 0xB8000
		}
		return egaPlaneSize // outside the active window: open bus
	}
	if addr >= 0xA0000 && addr < 0xB0000 {
		return addr - 0xA0000
	}
	return egaPlaneSize
}

func (e *EGA) In(port uint16) byte {
	switch port {
	case 0x3C4: // Sequencer index, write-only in practice
		return 0xFF
	case 0x3C5:
		return e.planeMask
	case 0x3CE:
		return e.gcIndex
	case 0x3CF:
		switch e.gcIndex {
		case 0x04:
			return e.readPlane
		case 0x06:
			return e.gcMisc
		}
		return 0xFF
	case 0x3DA:
		e.attrFlipFlop = false
		var v byte
		if e.crtc.InHBlank() {
			v |= 0x01
		}
		if e.crtc.InVBlank() {
			v |= 0x08
		}
		return v
	default:
		return e.crtc.In(port)
	}
}

func (e *EGA) Out(port uint16, v byte) {
	switch port {
	case 0x3C4:
		// Sequencer index; next write to 0x3C5 is its data (not
		// separately tracked since only the Map Mask register matters
		// to this model).
	case 0x3C5:
		e.planeMask = v
	case 0x3CE:
		e.gcIndex = v & 0x0F
	case 0x3CF:
		e.writeGC(v)
	case 0x3C0: // Attribute Controller: shared index/data port
		if !e.attrFlipFlop {
			e.attrFlipFlop = true
			if v&0x20 == 0 {
				// bit5 clear selects the pel-panning/mode-control index range
			}
		} else {
			e.attrFlipFlop = false
			e.pelPanning = v & 0x0F
		}
	default:
		e.crtc.Out(port, v)
	}
}

// writeGC dispatches a Graphics Controller data-port write according to
// the index selected via 0x3CE, the same index/data discipline the
// CRTC's register file uses.
func (e *EGA) writeGC(v byte) {
	switch e.gcIndex {
	case 0x04: // Read Map Select
		e.readPlane = v & 0x03
	case 0x06: // Miscellaneous: alphanumeric disable + memory map select
		e.gcMisc = v
		e.graphicsMode = v&0x01 != 0
		// Memory map 0b11 decodes the CGA-compatible 0xB8000 window.
		e.cgaCompat = (v>>2)&0x03 == 0x03
	default:
		// Set/Reset, Data Rotate, Color Compare, Mode, Bit Mask: accepted
		// and ignored; nothing in this model depends on them.
	}
}

// SetLineCompare lets the CRTC-register-write path (register 0x18 plus
// the overflow bit in register 0x07) update the split scanline; kept
// as an explicit setter since the 6845-compatible CRTC in crtc.go has
// no EGA-specific registers of its own.
func (e *EGA) SetLineCompare(scanline uint16) {
	e.lineCompare = scanline
}

func (e *EGA) Tick() {
	beforeCol, beforeRow, beforeScan := e.crtc.Column(), e.crtc.Row(), e.crtc.Scanline()
	newFrame := e.crtc.Tick()
	if newFrame {
		return
	}
	if e.crtc.Column() == beforeCol && e.crtc.Row() == beforeRow && e.crtc.Scanline() == beforeScan {
		return
	}
	e.renderCell(beforeCol, beforeRow, beforeScan)
}

// renderCell dispatches on the GC Miscellaneous mode bit: alphanumeric
// (the power-on default, what POST and most DOS software start in)
// versus planar graphics.
func (e *EGA) renderCell(col, row, scan int) {
	if e.graphicsMode {
		e.renderGraphicsCell(col, row, scan)
		return
	}
	e.renderTextCell(col, row, scan)
}

// renderTextCell draws one scanline of an 80-column text cell: the
// character code lives in plane 0, its attribute in plane 1, and the
// glyph row comes from the plane-2 character generator that software
// font loads fill (FontScanline). Cursor contract matches the other
// adapters: bit 5 of CRTC register 10 disables the cursor, as does a
// start scanline above the row's max scanline.
func (e *EGA) renderTextCell(col, row, scan int) {
	if col >= egaMaxCols || row >= egaMaxRows {
		return
	}
	cell := uint32(row*egaMaxCols + col)
	if cell >= egaPlaneSize {
		return
	}
	ch := e.planes[0][cell]
	attr := e.planes[1][cell]
	glyphRow := e.FontScanline(ch, scan%egaTextCellHeight)

	cursorVisible := e.crtc.regs[10]&0x20 == 0 && int(e.crtc.regs[10]&0x1F) <= e.crtc.MaxScanline()
	isCursorCell := cursorVisible && uint16(cell) == e.crtc.CursorAddress()
	onCursorScan := scan >= int(e.crtc.regs[10]&0x1F) && scan <= int(e.crtc.regs[11]&0x1F)

	baseY := row*egaTextCellHeight + scan
	if baseY >= e.field.Height {
		return
	}
	baseX := col * egaCellWidth
	for x := 0; x < egaCellWidth; x++ {
		lit := glyphRow&(0x80>>uint(x)) != 0
		if isCursorCell && onCursorScan {
			lit = true
		}
		fg := attr & 0x0F
		bg := (attr >> 4) & 0x07
		px := bg
		if lit {
			px = fg
		}
		idx := baseY*e.field.Width + baseX + x
		if idx < len(e.field.Pixels) {
			e.field.Pixels[idx] = px
		}
	}
}

func (e *EGA) renderGraphicsCell(col, row, scan int) {
	baseY := row*14 + scan
	if baseY >= e.field.Height || col >= egaMaxCols {
		return
	}

	// Below the line-compare split, pel panning does not apply: the
	// status-bar region always renders unpanned.
	pan := int(e.pelPanning)
	if uint16(baseY) >= e.lineCompare {
		pan = 0
	}

	rowAddr := uint32(row*egaMaxCols) + uint32(col)
	baseX := col*egaCellWidth - pan
	for x := 0; x < egaCellWidth; x++ {
		px := byte(0)
		for p := 0; p < 4; p++ {
			off := rowAddr
			if off < egaPlaneSize && (e.planes[p][off]&(0x80>>uint(x))) != 0 {
				px |= 1 << uint(p)
			}
		}
		screenX := baseX + x
		if screenX < 0 || screenX >= e.field.Width {
			continue
		}
		idx := baseY*e.field.Width + screenX
		if idx < len(e.field.Pixels) {
			e.field.Pixels[idx] = px
		}
	}
}

// FontScanline reads one row of a character-generator glyph out of
// plane 2, where software font loads land (32 bytes per character, the
// EGA's map layout). Writes arrive through the ordinary WriteMem8 path
// with the Sequencer Map Mask selecting plane 2.
func (e *EGA) FontScanline(ch byte, scan int) byte {
	return e.planes[2][uint32(ch)*32+uint32(scan&0x1F)]
}

func (e *EGA) Frame() *RasterField { return e.field }
