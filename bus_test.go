package main

import "testing"

func TestBusOpenBusRead(t *testing.T) {
	b := NewBus()
	if v := b.ReadMem8(0x12345); v != 0 {
		t.Fatalf("fresh RAM should read 0, got %#x", v)
	}
	if v := b.In(0x300); v != openBusValue {
		t.Fatalf("unmapped port read = %#x, want open-bus %#x", v, openBusValue)
	}
	b.Out(0x300, 0xAA) // unmapped write must be silently discarded, never fatal
}

func TestBusROMReadOnly(t *testing.T) {
	b := NewBus()
	b.MapROM(0xF0000, []byte{0xEA, 0x5B, 0xE0, 0x00, 0xF0})
	if v := b.ReadMem8(0xF0000); v != 0xEA {
		t.Fatalf("ROM read = %#x, want 0xEA", v)
	}
	b.WriteMem8(0xF0000, 0x00) // writes into ROM must be discarded
	if v := b.ReadMem8(0xF0000); v != 0xEA {
		t.Fatalf("ROM write was not discarded: read back %#x", v)
	}
}

func TestBusMMIOWindow(t *testing.T) {
	b := NewBus()
	var lastWrite byte
	b.MapMMIO(0xB8000, 0xBC000,
		func(addr uint32) byte { return byte(addr - 0xB8000) },
		func(addr uint32, v byte) { lastWrite = v })

	if v := b.ReadMem8(0xB8002); v != 2 {
		t.Fatalf("MMIO read = %#x, want 2", v)
	}
	b.WriteMem8(0xB8000, 0x41)
	if lastWrite != 0x41 {
		t.Fatalf("MMIO write callback saw %#x, want 0x41", lastWrite)
	}
}

func TestBusPortDispatch(t *testing.T) {
	b := NewBus()
	pic := NewPIC()
	b.MapPort(0x20, pic)
	b.MapPort(0x21, pic)

	pic.Raise(2)
	if v := b.In(0x20); v&(1<<2) == 0 {
		t.Fatalf("IRR via port 0x20 = %#x, want bit 2 set", v)
	}
}

func TestBusAddressWraps1MiB(t *testing.T) {
	b := NewBus()
	b.WriteMem8(0x100000, 0x42) // one past the 1 MiB space wraps to 0
	if v := b.ReadMem8(0); v != 0x42 {
		t.Fatalf("write past 1 MiB did not wrap to address 0, read %#x", v)
	}
}
