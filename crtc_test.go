package main

import "testing"

// writeCRTCReg is the Out/Out two-step a real CRTC programmer always
// does: select the register via the index port, then write its value
// via the data port.
func writeCRTCReg(c *CRTC, index, value byte) {
	c.Out(c.indexPort, index)
	c.Out(c.dataPort, value)
}

// TestCRTCRegisterWriteReadBack checks the index/data port pair and
// that In() returns whatever was last selected.
func TestCRTCRegisterWriteReadBack(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 8)
	writeCRTCReg(c, 14, 0x12)
	writeCRTCReg(c, 15, 0x34)

	if got := c.CursorAddress(); got != 0x1234 {
		t.Fatalf("CursorAddress() = %#x, want 0x1234", got)
	}

	c.Out(0x3D4, 14)
	if got := c.In(0x3D5); got != 0x12 {
		t.Fatalf("In() on selected register 14 = %#x, want 0x12", got)
	}
}

// TestCRTCStartAddress checks the display start-address register pair.
func TestCRTCStartAddress(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 8)
	writeCRTCReg(c, 12, 0xAB)
	writeCRTCReg(c, 13, 0xCD)

	if got := c.StartAddress(); got != 0xABCD {
		t.Fatalf("StartAddress() = %#x, want 0xABCD", got)
	}
}

// TestCRTCRegisterWriteHookFiresWithIndexAndValue checks the
// register-write callback video_ega.go relies on to keep its
// line-compare split in sync.
func TestCRTCRegisterWriteHookFiresWithIndexAndValue(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 8)
	var gotIndex, gotValue byte
	calls := 0
	c.SetRegisterWriteHook(func(index, value byte) {
		gotIndex, gotValue = index, value
		calls++
	})

	writeCRTCReg(c, 0x18, 0x64)

	if calls != 1 {
		t.Fatalf("hook called %d times, want 1", calls)
	}
	if gotIndex != 0x18 || gotValue != 0x64 {
		t.Fatalf("hook saw (index=%#x, value=%#x), want (0x18, 0x64)", gotIndex, gotValue)
	}
}

// TestCRTCRegisterWriteHookNotCalledOnIndexPortWrite checks that only a
// successful data-port write fires the hook, not the index selection.
func TestCRTCRegisterWriteHookNotCalledOnIndexPortWrite(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 8)
	calls := 0
	c.SetRegisterWriteHook(func(index, value byte) { calls++ })

	c.Out(0x3D4, 5) // index port only

	if calls != 0 {
		t.Fatalf("hook called %d times on an index-only write, want 0", calls)
	}
}

// TestCRTCTickAdvancesColumnThenRow drives a tiny raster (small totals)
// through one full line and confirms column wraps into a scanline
// increment, and HBlank asserts once the column passes hDisplayed.
func TestCRTCTickAdvancesColumnThenRow(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 1) // 1 CPU clock per character clock
	writeCRTCReg(c, 0, 3)         // hTotal = regs[0]+1 = 4
	writeCRTCReg(c, 1, 2)         // hDisplayed = 2
	writeCRTCReg(c, 4, 1)         // vTotal = regs[4]+1 = 2
	writeCRTCReg(c, 6, 1)         // vDisplayed = 1
	writeCRTCReg(c, 9, 0)         // maxScanline = regs[9]&0x1F + 1 = 1 (one scanline per row)

	if c.InHBlank() {
		t.Fatal("must not start in HBlank")
	}

	c.Tick() // column 1
	c.Tick() // column 2 -> >= hDisplayed(2): HBlank asserts
	if !c.InHBlank() {
		t.Fatal("HBlank should assert once column reaches hDisplayed")
	}
	if c.Row() != 0 {
		t.Fatalf("Row() = %d, want 0 (still mid first scanline)", c.Row())
	}

	c.Tick() // column 3
	c.Tick() // column 4 == hTotal: wraps, scanline/frameRow advance
	if c.Column() != 0 {
		t.Fatalf("Column() = %d, want 0 after wrapping hTotal", c.Column())
	}
	if c.Row() != 1 {
		t.Fatalf("Row() = %d, want 1 after one scanline's worth of character clocks", c.Row())
	}
}

// TestCRTCTickReportsNewFrame checks the newFrame return value fires
// exactly on the clock that wraps frameRow past vTotal, and VBlank is
// cleared again once the new frame begins.
func TestCRTCTickReportsNewFrame(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 1)
	writeCRTCReg(c, 0, 1) // hTotal = 2
	writeCRTCReg(c, 1, 1) // hDisplayed = 1
	writeCRTCReg(c, 4, 0) // vTotal = 1 (one row total)
	writeCRTCReg(c, 6, 0) // vDisplayed = 0 (always in VBlank once frameRow >= 0... use 0 displayed)
	writeCRTCReg(c, 9, 0) // maxScanline = 1

	var sawNewFrame bool
	for i := 0; i < 8 && !sawNewFrame; i++ {
		sawNewFrame = c.Tick()
	}
	if !sawNewFrame {
		t.Fatal("expected Tick to report a new frame within a handful of character clocks")
	}
	if c.InVBlank() {
		t.Fatal("VBlank must be cleared again once a new frame begins")
	}
	if c.Row() != 0 {
		t.Fatalf("Row() after new-frame wrap = %d, want reset to 0", c.Row())
	}
}

// TestCRTCMaxScanline checks the register-9 accessor the adapters use
// for the cursor-start-above-max-scanline disable rule.
func TestCRTCMaxScanline(t *testing.T) {
	c := NewCRTC(0x3D4, 0x3D5, 8)
	if got := c.MaxScanline(); got != 0 {
		t.Fatalf("MaxScanline at power-on = %d, want 0", got)
	}
	writeCRTCReg(c, 9, 13)
	if got := c.MaxScanline(); got != 13 {
		t.Fatalf("MaxScanline = %d, want 13", got)
	}
	writeCRTCReg(c, 9, 0xED) // only the low 5 bits are the scanline count
	if got := c.MaxScanline(); got != 0x0D {
		t.Fatalf("MaxScanline = %#x, want 0x0D (high bits masked)", got)
	}
}
