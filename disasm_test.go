package main

import "testing"

// TestDisasmBPDISpelling is the disassembler half of the shared
// bp+di+DISP spelling contract (modrm_test.go covers the EA-resolution
// half).
func TestDisasmBPDISpelling(t *testing.T) {
	bus := NewBus()
	d := NewDisassembler(bus)

	// mov ax, [bp+di+0x10]: 8B 43 10
	bus.WriteMem8(0x100, 0x8B)
	bus.WriteMem8(0x101, 0x43)
	bus.WriteMem8(0x102, 0x10)

	instr := d.Decode(0, 0x100)
	want := "mov ax, [bp+di+0x0010]"
	if instr.Text != want {
		t.Fatalf("Decode text = %q, want %q", instr.Text, want)
	}
	if instr.Length != 3 {
		t.Fatalf("Decode length = %d, want 3", instr.Length)
	}
}

func TestDisasmNegativeDisplacementNormalized(t *testing.T) {
	bus := NewBus()
	d := NewDisassembler(bus)

	// mov al, [bx-0x02]: 8A 47 FE
	bus.WriteMem8(0x200, 0x8A)
	bus.WriteMem8(0x201, 0x47)
	bus.WriteMem8(0x202, 0xFE)

	instr := d.Decode(0, 0x200)
	want := "mov al, [bx-0x0002]"
	if instr.Text != want {
		t.Fatalf("Decode text = %q, want %q", instr.Text, want)
	}
}

func TestDisasmMovImmediate(t *testing.T) {
	bus := NewBus()
	d := NewDisassembler(bus)
	bus.WriteMem8(0x300, 0xB8)
	bus.WriteMem8(0x301, 0x34)
	bus.WriteMem8(0x302, 0x12)

	instr := d.Decode(0, 0x300)
	if instr.Text != "mov ax, 0x1234" {
		t.Fatalf("Decode text = %q, want %q", instr.Text, "mov ax, 0x1234")
	}
}

func TestDisasmUnknownOpcodeFallsBackToDB(t *testing.T) {
	bus := NewBus()
	d := NewDisassembler(bus)
	bus.WriteMem8(0x400, 0xFE) // INC/DEC r/m8 (Grp4): real and executable, just outside this table's curated mnemonic set

	instr := d.Decode(0, 0x400)
	if instr.Text != "db 0xFE" {
		t.Fatalf("Decode text = %q, want %q", instr.Text, "db 0xFE")
	}
	if instr.Length != 1 {
		t.Fatalf("Decode length = %d, want 1", instr.Length)
	}
}
