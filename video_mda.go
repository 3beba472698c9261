// video_mda.go - Monochrome Display Adapter (6845 text mode, 9-dot font)
//
// MDA's 9-dot character clock means this adapter never gets to assume
// a byte-aligned fast write path the way CGA/EGA's 8-dot modes can; it
// is deliberately the slower of the three.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

const (
	mdaCellWidth  = 9 // dot clock per character, including the 9th column
	mdaCellHeight = 14
	mdaCols       = 80
	mdaRows       = 25
)

// MDA is the monochrome 80x25 text adapter: character + attribute RAM,
// a 6845 CRTC, and a 9-dot font renderer with underline support.
type MDA struct {
	crtc *CRTC
	vram [4096]byte // 2x2000 bytes used (char+attr), rest unused but addressable

	font [256][mdaCellHeight]byte // 1bpp glyph bitmaps, caller-supplied

	field *RasterField
}

func NewMDA() *MDA {
	m := &MDA{crtc: NewCRTC(0x3B4, 0x3B5, mdaCellWidth)}
	dispW, dispH := mdaCols*mdaCellWidth, mdaRows*mdaCellHeight
	// Overscan (Full aperture): the active text field plus the adapter's
	// border color, still short of blanking/sync. Debug aperture goes all
	// the way to the raw raster (totalW/totalH), hblank/vblank included.
	overscanW, overscanH := dispW+2*mdaCellWidth, dispH+2*mdaCellHeight
	totalW, totalH := dispW+8*mdaCellWidth, dispH+6*mdaCellHeight
	m.field = newRasterField(totalW, totalH, overscanW, overscanH, dispW, dispH)
	return m
}

func (m *MDA) Reset() {
	// A fresh CRTC clears the cursor registers too; cursor state must
	// never survive a hard reset.
	m.crtc = NewCRTC(0x3B4, 0x3B5, mdaCellWidth)
}

// ReadMem8/WriteMem8 implement the 0xB0000-0xB0FFF MMIO window (bus.go
// maps this adapter's VRAM through Bus.MapMMIO).
func (m *MDA) ReadMem8(addr uint32) byte {
	off := addr - 0xB0000
	if off >= uint32(len(m.vram)) {
		return 0xFF
	}
	return m.vram[off]
}

func (m *MDA) WriteMem8(addr uint32, v byte) {
	off := addr - 0xB0000
	if off < uint32(len(m.vram)) {
		m.vram[off] = v
	}
}

func (m *MDA) In(port uint16) byte  { return m.crtc.In(port) }
func (m *MDA) Out(port uint16, v byte) { m.crtc.Out(port, v) }

// Tick advances the CRTC by one CPU clock and, at each character-clock
// boundary, rasterizes the current cell into the field buffer.
func (m *MDA) Tick() {
	beforeCol, beforeRow, beforeScan := m.crtc.Column(), m.crtc.Row(), m.crtc.Scanline()
	newFrame := m.crtc.Tick()
	if newFrame {
		return
	}
	if m.crtc.Column() == beforeCol && m.crtc.Row() == beforeRow && m.crtc.Scanline() == beforeScan {
		return // not yet a character-clock boundary
	}
	m.renderCell(beforeCol, beforeRow, beforeScan)
}

func (m *MDA) renderCell(col, row, scan int) {
	if col >= mdaCols || row >= mdaRows {
		return
	}
	cellOffset := uint32(row*mdaCols+col) * 2
	if int(cellOffset)+1 >= len(m.vram) {
		return
	}
	ch := m.vram[cellOffset]
	attr := m.vram[cellOffset+1]
	underline := attr&0x07 == 0x01
	glyphRow := m.font[ch][scan%mdaCellHeight]

	// The cursor is off when bit 5 of register 10 says so, or when its
	// start scanline sits above the character row's max scanline (the
	// raster never reaches it).
	cursorVisible := m.crtc.regs[10]&0x20 == 0 && int(m.crtc.regs[10]&0x1F) <= m.crtc.MaxScanline()
	isCursorCell := cursorVisible && uint16(row*mdaCols+col) == m.crtc.CursorAddress()
	onCursorScan := scan >= int(m.crtc.regs[10]&0x1F) && scan <= int(m.crtc.regs[11]&0x1F)

	baseX := col * mdaCellWidth
	baseY := row*mdaCellHeight + scan
	if baseY >= m.field.Height {
		return
	}
	for x := 0; x < mdaCellWidth; x++ {
		var lit bool
		if x < 8 {
			lit = glyphRow&(0x80>>uint(x)) != 0
		} else {
			// 9th column repeats column 8 for the box-drawing range
			// 0xC0-0xDF, otherwise stays blank.
			lit = ch >= 0xC0 && ch <= 0xDF && glyphRow&0x01 != 0
		}
		if underline && scan == mdaCellHeight-2 {
			lit = true
		}
		if isCursorCell && onCursorScan {
			lit = true
		}
		px := byte(0)
		if lit {
			px = 1
		}
		idx := baseY*m.field.Width + baseX + x
		if idx < len(m.field.Pixels) {
			m.field.Pixels[idx] = px
		}
	}
}

func (m *MDA) Frame() *RasterField { return m.field }
