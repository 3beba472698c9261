package main

import "testing"

// TestOpsControlJmpShortTakesAndSkips exercises the conditional short-jump
// family (0x70-0x7F) in both directions: condition true takes the branch,
// condition false falls through.
func TestOpsControlJmpShortTakesAndSkips(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	// JZ +2 (taken, ZF=1) ; would-be skipped MOV AL,0x11 ; MOV AL,0x22 ; HLT
	loadProgram(bus, cpu, []byte{
		0x74, 0x02, // JZ +2
		0xB0, 0x11, // MOV AL,0x11 (skipped)
		0xB0, 0x22, // MOV AL,0x22 (landed on)
		0xF4, // HLT
	})
	cpu.SetFlag(FlagZF, true)

	runTicks(eu, 20)

	if cpu.AL() != 0x22 {
		t.Fatalf("AL = %#x, want 0x22 (JZ should have been taken)", cpu.AL())
	}
}

func TestOpsControlJmpShortNotTaken(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	loadProgram(bus, cpu, []byte{
		0x74, 0x02, // JZ +2
		0xB0, 0x11, // MOV AL,0x11 (should execute: ZF=0)
		0xB0, 0x22, // MOV AL,0x22
		0xF4,
	})
	cpu.SetFlag(FlagZF, false)

	runTicks(eu, 20)

	if cpu.AL() != 0x22 {
		t.Fatalf("AL = %#x, want 0x22 (both MOVs execute when JZ isn't taken)", cpu.AL())
	}
}

// TestOpsControlLoopDecrementsCXAndStops checks LOOP's CX-decrement and
// its exit once CX reaches zero.
func TestOpsControlLoopDecrementsCXAndStops(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	// CX starts at 3: INC AX ; LOOP back to INC AX, three times, then HLT.
	loadProgram(bus, cpu, []byte{
		0x40,       // INC AX
		0xE2, 0xFD, // LOOP -3
		0xF4, // HLT
	})
	cpu.CX = 3

	runTicks(eu, 80)

	if cpu.AX != 3 {
		t.Fatalf("AX = %d, want 3 (LOOP should have run the body 3 times)", cpu.AX)
	}
	if cpu.CX != 0 {
		t.Fatalf("CX = %d, want 0 after LOOP exhausts its count", cpu.CX)
	}
}

// TestOpsControlCallNearPushesReturnAddressAndRetReturns checks CALL
// near/RET round-trip through the stack.
func TestOpsControlCallNearPushesReturnAddressAndRetReturns(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	cpu.SP = 0x100
	// CALL +3 (to the MOV BX,0x55) ; HLT (return lands here) ; MOV BX,0x55 ; RET
	loadProgram(bus, cpu, []byte{
		0xE8, 0x03, 0x00, // CALL near rel16=+3
		0xF4,             // HLT (return address)
		0xBB, 0x55, 0x00, // MOV BX,0x0055
		0xC3, // RET
	})

	runTicks(eu, 80)

	if cpu.BX != 0x55 {
		t.Fatalf("BX = %#x, want 0x55 (CALL target not reached)", cpu.BX)
	}
	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatal("expected RET to land back on the HLT after the CALL")
	}
}

// TestOpsControlFlagBitOpcodes exercises CLC/STC/CMC/CLI/STI/CLD/STD.
func TestOpsControlFlagBitOpcodes(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	loadProgram(bus, cpu, []byte{
		0xF9, // STC
		0xF5, // CMC (CF now 0)
		0xFB, // STI
		0xFD, // STD
		0xF4, // HLT
	})

	runTicks(eu, 20)

	if cpu.GetFlag(FlagCF) {
		t.Fatal("CF should be clear: STC then CMC toggles it back off")
	}
	if !cpu.GetFlag(FlagIF) {
		t.Fatal("IF should be set after STI")
	}
	if !cpu.GetFlag(FlagDF) {
		t.Fatal("DF should be set after STD")
	}
}

// TestOpsControlIretRestoresFlagsAndReturnAddress checks IRET pops IP,
// CS, and FLAGS in that order, and that the reserved-ones bit survives.
func TestOpsControlIretRestoresFlagsAndReturnAddress(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	cpu.SP = 0x100
	cpu.Segs[SegCS] = 0
	cpu.PC = 0
	cpu.Queue.Flush(physicalAddress(cpu.CS(), cpu.PC))

	// Manually push a frame: flags, CS, IP (IRET pops IP, then CS, then flags).
	cpu.SP -= 2
	bus.WriteMem8(uint32(cpu.SP), 0x34)
	bus.WriteMem8(uint32(cpu.SP)+1, 0x12)
	cpu.SP -= 2
	bus.WriteMem8(uint32(cpu.SP), 0x00)
	bus.WriteMem8(uint32(cpu.SP)+1, 0x00)
	cpu.SP -= 2
	bus.WriteMem8(uint32(cpu.SP), byte(FlagZF))
	bus.WriteMem8(uint32(cpu.SP)+1, byte(FlagZF>>8))

	loadProgram(bus, cpu, []byte{0xCF}) // IRET

	runTicks(eu, 40)

	if !cpu.GetFlag(FlagZF) {
		t.Fatal("IRET should have restored ZF from the popped FLAGS word")
	}
	if cpu.IP() != 0x1234 {
		t.Fatalf("IP after IRET = %#x, want 0x1234", cpu.IP())
	}
}

// TestOpsControlC1AliasesRetNear: on the 8086/8088, C0-C1 decode as
// aliases of C2-C3; the Grp2-imm encodings only exist from the 80186 on.
func TestOpsControlC1AliasesRetNear(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	cpu.SP = 0x100
	// Push a return address of 0x0003 (the HLT below), then execute C1.
	loadProgram(bus, cpu, []byte{
		0xC1, // alias of RET near
		0x90, 0x90,
		0xF4, // HLT at offset 3
	})
	cpu.SP -= 2
	bus.WriteMem8(uint32(cpu.SP), 0x03)
	bus.WriteMem8(uint32(cpu.SP)+1, 0x00)

	runTicks(eu, 40)

	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatal("C1 should have returned to the pushed address and reached HLT")
	}
	if cpu.SP != 0x100 {
		t.Fatalf("SP = %#x, want 0x100 (one word popped)", cpu.SP)
	}
}
