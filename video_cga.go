// video_cga.go - Color Graphics Adapter (6845, text + 2/4-color graphics)
//
// The CGA's CPU-bus-vs-CRTC-fetch race (the classic "snow" bug) is
// modeled as visible corruption rather than suppressed, and the
// adapter drops from character clocking to per-CPU-cycle clocking
// whenever CRTC programming breaks the one-character-per-clock
// assumption (demos reprogram the horizontal total mid-frame to pull
// raster tricks an 8-dot character clock cannot follow).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

const (
	cgaCellWidth  = 8
	cgaTextCols   = 80
	cgaTextRows   = 25
	cgaCellHeight = 8
)

type cgaMode int

const (
	cgaModeText40 cgaMode = iota
	cgaModeText80
	cgaModeGraphics320
	cgaModeGraphics640
)

// CompositeParams controls the optional NTSC composite-artifact color
// multiplexer; Enabled=false renders plain RGBI instead.
type CompositeParams struct {
	Enabled  bool
	Contrast float64
	Phase    float64
	Type     int // artifact palette variant selector
}

// CGA is the Color Graphics Adapter: CRTC, mode-control/color-select
// registers, 16KB VRAM, and snow/composite emulation toggles.
type CGA struct {
	crtc *CRTC
	vram [16384]byte

	modeControl  byte
	colorSelect  byte

	font [256][cgaCellHeight]byte

	Composite CompositeParams

	field *RasterField

	// cycleClocked is true while CRTC programming has forced the
	// per-CPU-cycle raster stepping mode (see onCRTCRegisterWrite).
	cycleClocked bool

	// snowArmed marks that the current CPU clock's bus access to VRAM
	// raced the CRTC's own fetch window; the next character fetched by
	// the CRTC renders as corrupted (0xFF) rather than its real value.
	snowArmed bool
}

func NewCGA() *CGA {
	c := &CGA{crtc: NewCRTC(0x3D4, 0x3D5, cgaCellWidth)}
	c.crtc.SetRegisterWriteHook(c.onCRTCRegisterWrite)
	dispW, dispH := cgaTextCols*cgaCellWidth, cgaTextRows*cgaCellHeight
	// See video_mda.go's NewMDA for the overscan-vs-blanking rationale:
	// Full stops at the border, Debug goes to the raw raster edge.
	overscanW, overscanH := dispW+2*cgaCellWidth, dispH+2*cgaCellHeight
	totalW, totalH := dispW+8*cgaCellWidth, dispH+6*cgaCellHeight
	c.field = newRasterField(totalW, totalH, overscanW, overscanH, dispW, dispH)
	return c
}

func (c *CGA) Reset() {
	c.crtc = NewCRTC(0x3D4, 0x3D5, cgaCellWidth)
	c.crtc.SetRegisterWriteHook(c.onCRTCRegisterWrite)
	c.modeControl = 0
	c.colorSelect = 0
	c.snowArmed = false
	c.cycleClocked = false
}

// onCRTCRegisterWrite re-evaluates the clocking mode whenever the
// horizontal total changes; Out does the same when the mode-control
// register flips the 80-column bit.
func (c *CGA) onCRTCRegisterWrite(index, value byte) {
	if index == 0 {
		c.updateClocking()
	}
}

// updateClocking picks between the two raster stepping modes. In
// 80-column timing an odd horizontal total means hsync moves
// mid-character somewhere in the frame — something the 8-dot character
// clock cannot follow — so the CRTC steps once per CPU clock until the
// programming becomes well-behaved again. 40-column timing runs two
// hchars per character and always divides evenly.
func (c *CGA) updateClocking() {
	cycle := c.modeControl&0x01 != 0 && (int(c.crtc.regs[0])+1)%2 != 0
	if cycle == c.cycleClocked {
		return
	}
	c.cycleClocked = cycle
	if cycle {
		c.crtc.SetDotClock(1)
	} else {
		c.crtc.SetDotClock(cgaCellWidth)
	}
}

func (c *CGA) mode() cgaMode {
	if c.modeControl&0x02 != 0 {
		if c.modeControl&0x10 != 0 {
			return cgaModeGraphics640
		}
		return cgaModeGraphics320
	}
	if c.modeControl&0x01 != 0 {
		return cgaModeText80
	}
	return cgaModeText40
}

// ReadMem8/WriteMem8 implement the 0xB8000-0xBBFFF MMIO window. Any CPU
// access to VRAM while the CRTC is in its active-display window arms
// snow on the next character cell the CRTC fetches — real CGA hardware
// has no way to arbitrate the shared bus port, so the corruption is
// architectural, not a bug to paper over.
func (c *CGA) ReadMem8(addr uint32) byte {
	off := addr - 0xB8000
	if off >= uint32(len(c.vram)) {
		return 0xFF
	}
	if !c.crtc.InHBlank() && !c.crtc.InVBlank() {
		c.snowArmed = true
	}
	return c.vram[off]
}

func (c *CGA) WriteMem8(addr uint32, v byte) {
	off := addr - 0xB8000
	if off >= uint32(len(c.vram)) {
		return
	}
	if !c.crtc.InHBlank() && !c.crtc.InVBlank() {
		c.snowArmed = true
	}
	c.vram[off] = v
}

func (c *CGA) In(port uint16) byte {
	switch port {
	case 0x3D8:
		return c.modeControl
	case 0x3D9:
		return c.colorSelect
	case 0x3DA:
		return c.statusRegister()
	default:
		return c.crtc.In(port)
	}
}

func (c *CGA) Out(port uint16, v byte) {
	switch port {
	case 0x3D8:
		c.modeControl = v
		c.updateClocking()
	case 0x3D9:
		c.colorSelect = v
	default:
		c.crtc.Out(port, v)
	}
}

func (c *CGA) statusRegister() byte {
	var v byte
	if c.crtc.InHBlank() {
		v |= 0x01
	}
	if c.crtc.InVBlank() {
		v |= 0x08
	}
	return v
}

func (c *CGA) Tick() {
	beforeCol, beforeRow, beforeScan := c.crtc.Column(), c.crtc.Row(), c.crtc.Scanline()
	newFrame := c.crtc.Tick()
	if newFrame {
		return
	}
	if c.crtc.Column() == beforeCol && c.crtc.Row() == beforeRow && c.crtc.Scanline() == beforeScan {
		return
	}
	c.renderCell(beforeCol, beforeRow, beforeScan)
}

func (c *CGA) renderCell(col, row, scan int) {
	switch c.mode() {
	case cgaModeText40, cgaModeText80:
		c.renderTextCell(col, row, scan)
	default:
		c.renderGraphicsCell(col, row, scan)
	}
}

func (c *CGA) renderTextCell(col, row, scan int) {
	if col >= cgaTextCols || row >= cgaTextRows {
		return
	}
	cellOffset := (row*cgaTextCols + col) * 2
	if cellOffset+1 >= len(c.vram) {
		return
	}
	var ch, attr byte
	if c.snowArmed {
		ch, attr = 0xFF, 0x0F
		c.snowArmed = false
	} else {
		ch, attr = c.vram[cellOffset], c.vram[cellOffset+1]
	}
	glyphRow := c.font[ch][scan%cgaCellHeight]
	baseX, baseY := col*cgaCellWidth, row*cgaCellHeight+scan
	if baseY >= c.field.Height {
		return
	}

	// Bit 5 of CRTC register 10 disables the cursor outright; a start
	// scanline above the row's max scanline disables it just as hard,
	// since the raster never reaches it. Registers 10/11 give the
	// cursor's scanline band within the cell.
	cursorVisible := c.crtc.regs[10]&0x20 == 0 && int(c.crtc.regs[10]&0x1F) <= c.crtc.MaxScanline()
	isCursorCell := cursorVisible && uint16(row*cgaTextCols+col) == c.crtc.CursorAddress()
	onCursorScan := scan >= int(c.crtc.regs[10]&0x1F) && scan <= int(c.crtc.regs[11]&0x1F)

	for x := 0; x < cgaCellWidth; x++ {
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
		idx := baseY*c.field.Width + baseX + x
		if idx < len(c.field.Pixels) {
			c.field.Pixels[idx] = px
		}
	}
}

// renderGraphicsCell renders one byte (4 or 8 pixels, mode-dependent)
// of 320x200 4-color or 640x200 2-color graphics memory, applying the
// composite artifact multiplexer when enabled.
func (c *CGA) renderGraphicsCell(col, row, scan int) {
	// Graphics addressing interleaves even/odd scanlines across the two
	// 8KB VRAM banks, the classic CGA quirk.
	bank := uint32(scan % 2)
	lineOffset := uint32((scan / 2)) * 80
	byteOffset := bank*0x2000 + lineOffset + uint32(col)
	if byteOffset >= uint32(len(c.vram)) {
		return
	}
	data := c.vram[byteOffset]
	baseY := row*cgaCellHeight + scan
	if baseY >= c.field.Height {
		return
	}
	if c.mode() == cgaModeGraphics640 {
		baseX := col * 8
		for x := 0; x < 8; x++ {
			bit := (data >> uint(7-x)) & 1
			idx := baseY*c.field.Width + baseX + x
			if idx < len(c.field.Pixels) {
				c.field.Pixels[idx] = bit
			}
		}
		return
	}
	baseX := col * 4
	for x := 0; x < 4; x++ {
		px := (data >> uint(6-2*x)) & 0x03
		if c.Composite.Enabled {
			px = compositeArtifact(px, x, c.Composite)
		}
		idx := baseY*c.field.Width + baseX + x
		if idx < len(c.field.Pixels) {
			c.field.Pixels[idx] = px
		}
	}
}

// compositeArtifact maps a 2-bit CGA pixel plus its column phase
// through a simplified NTSC color-multiplexer model, producing the
// extra "artifact colors" (orange/blue fringing) composite monitors
// showed that RGBI monitors never could.
func compositeArtifact(px byte, columnPhase int, p CompositeParams) byte {
	phaseShift := byte((p.Phase * 4)) & 0x03
	idx := (px + byte(columnPhase) + phaseShift + byte(p.Type)*4) % 16
	if p.Contrast < 0.25 {
		idx &= 0x07
	}
	return idx
}

func (c *CGA) Frame() *RasterField { return c.field }
