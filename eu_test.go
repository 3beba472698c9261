package main

import "testing"

// newTestMachineParts builds a bare CPU/Bus/BIU/EU trio, bypassing
// Machine entirely, the way eu.go's own microcode handlers are meant to
// be exercised in isolation (no PIC/interrupts wired).
func newTestMachineParts() (*Bus, *CPU, *BIU, *EU) {
	bus := NewBus()
	cpu := NewCPU()
	biu := NewBIU(bus, cpu, false)
	eu := NewEU(cpu, bus, biu, nil, NewCallStackShadow())
	return bus, cpu, biu, eu
}

// loadProgram places code at CS:0000 and points the fetch cursor there.
func loadProgram(bus *Bus, cpu *CPU, code []byte) {
	cpu.Segs[SegCS] = 0
	cpu.PC = 0
	cpu.Queue.Flush(physicalAddress(cpu.CS(), cpu.PC))
	for i, b := range code {
		bus.WriteMem8(uint32(i), b)
	}
}

// runTicks steps the EU a fixed number of CPU clocks, the same
// granularity Machine.tickOnce drives it at.
func runTicks(eu *EU, n int) {
	for i := 0; i < n; i++ {
		eu.Tick()
	}
}

// TestEUMovImmThenHalt runs MOV AX,0x1234 / HLT and checks both the
// register write and that HLT actually parks the CPU in the
// interrupt-wait halt state.
func TestEUMovImmThenHalt(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	loadProgram(bus, cpu, []byte{0xB8, 0x34, 0x12, 0xF4}) // MOV AX,0x1234 ; HLT

	runTicks(eu, 20)

	if cpu.AX != 0x1234 {
		t.Fatalf("AX = %#x, want 0x1234", cpu.AX)
	}
	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatalf("Halt state = %v, want HaltWaitingForInterrupt", cpu.Halt)
	}
}

// TestEUHaltWithInterruptsDisabledTriggersOffRailsHalt checks that HLT
// executed with IF=0 is treated as an unrecoverable halt (alongside
// the three-bad-opcode trigger), not just a resumable
// wait-for-interrupt park.
func TestEUHaltWithInterruptsDisabledTriggersOffRailsHalt(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	loadProgram(bus, cpu, []byte{0xF4}) // HLT, IF=0 (fresh CPU)

	var haltedViaHook bool
	eu.haltHook = func() { haltedViaHook = true }

	runTicks(eu, 4)

	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatalf("Halt state = %v, want HaltWaitingForInterrupt", cpu.Halt)
	}
	if !haltedViaHook {
		t.Fatal("HLT with IF=0 must invoke triggerHalt's halt hook (on_halt policy)")
	}
}

// TestEUHaltWithInterruptsEnabledDoesNotTriggerOffRailsHalt checks the
// companion case: HLT with IF=1 still parks the CPU but must not run
// the off-rails halt hook, since an unmasked interrupt can resume it.
func TestEUHaltWithInterruptsEnabledDoesNotTriggerOffRailsHalt(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	cpu.SetFlag(FlagIF, true)
	loadProgram(bus, cpu, []byte{0xF4}) // HLT, IF=1

	var haltedViaHook bool
	eu.haltHook = func() { haltedViaHook = true }

	runTicks(eu, 4)

	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatalf("Halt state = %v, want HaltWaitingForInterrupt", cpu.Halt)
	}
	if haltedViaHook {
		t.Fatal("HLT with IF=1 must not trigger the off-rails halt hook")
	}
}

// TestEUAddUpdatesFlags runs MOV AX,imm / ADD AX,imm and checks both
// the accumulator result and the resulting zero flag.
func TestEUAddUpdatesFlags(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	// MOV AX,0x0001 ; ADD AX,0xFFFF (wraps to 0, sets ZF+CF) ; HLT
	loadProgram(bus, cpu, []byte{0xB8, 0x01, 0x00, 0x05, 0xFF, 0xFF, 0xF4})

	runTicks(eu, 30)

	if cpu.AX != 0x0000 {
		t.Fatalf("AX = %#x, want 0x0000", cpu.AX)
	}
	if !cpu.GetFlag(FlagZF) {
		t.Fatal("ZF should be set: 1 + 0xFFFF wraps to 0")
	}
	if !cpu.GetFlag(FlagCF) {
		t.Fatal("CF should be set: the addition carries out of bit 15")
	}
}

// TestEUJumpShortFlushesQueue exercises JMP short and confirms both the
// architectural IP landed correctly and the prefetch queue was flushed
// rather than left holding stale bytes from the pre-jump instruction
// stream.
func TestEUJumpShortFlushesQueue(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	// at 0: JMP short +3 (skips the next 3 bytes) ; target: MOV AX,0x0011 ; HLT
	loadProgram(bus, cpu, []byte{
		0xEB, 0x03, // JMP short to offset 5
		0x90, 0x90, 0x90, // would-be garbage NOPs, must be skipped
		0xB8, 0x11, 0x00, // MOV AX, 0x0011
		0xF4, // HLT
	})

	runTicks(eu, 40)

	if cpu.AX != 0x0011 {
		t.Fatalf("AX = %#x, want 0x0011 (jump target not reached or queue not flushed)", cpu.AX)
	}
	if cpu.Halt != HaltWaitingForInterrupt {
		t.Fatal("expected the CPU to reach HLT after the jump target's MOV")
	}
}

// TestEUInstructionHistoryRecordsWhenEnabled checks the bounded history
// ring fills only when enabled, and that InstructionCount advances
// either way.
func TestEUInstructionHistoryRecordsWhenEnabled(t *testing.T) {
	bus, cpu, _, eu := newTestMachineParts()
	loadProgram(bus, cpu, []byte{0x90, 0x90, 0xF4}) // NOP ; NOP ; HLT
	eu.historyEnabled = true

	runTicks(eu, 20)

	h := eu.History()
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3 (NOP, NOP, HLT)", len(h))
	}
	if h[len(h)-1].Opcode != 0xF4 {
		t.Fatalf("last history opcode = %#x, want 0xF4 (HLT)", h[len(h)-1].Opcode)
	}

	bus2, cpu2, _, eu2 := newTestMachineParts()
	loadProgram(bus2, cpu2, []byte{0x90, 0xF4})
	runTicks(eu2, 20)
	if len(eu2.History()) != 0 {
		t.Fatal("history must stay empty when recording is disabled")
	}
	if eu2.InstructionCount == 0 {
		t.Fatal("InstructionCount must advance whether or not history recording is enabled")
	}
}
