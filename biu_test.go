package main

import "testing"

// newTestBIU wires a bare Bus/CPU/BIU trio the way eu_test.go's
// newTestMachineParts does, without an EU attached.
func newTestBIU(waitStatesEnabled bool) (*Bus, *CPU, *BIU) {
	bus := NewBus()
	cpu := NewCPU()
	biu := NewBIU(bus, cpu, waitStatesEnabled)
	return bus, cpu, biu
}

// tickUntilQueueFilled drives the BIU's T-state machine forward until
// the prefetch queue holds at least one byte, bounding the loop so a
// regression that never completes a bus cycle fails the test instead
// of hanging.
func tickUntilQueueFilled(t *testing.T, biu *BIU, cpu *CPU, budget int) {
	t.Helper()
	for i := 0; i < budget; i++ {
		biu.Tick()
		if !cpu.Queue.Empty() {
			return
		}
	}
	t.Fatalf("queue still empty after %d ticks", budget)
}

// TestBIUBackgroundFetchEventuallyFillsQueue checks the T-state
// machine's ordinary path: an idle BIU tops up an empty queue on its
// own (no EU request needed), but not within a single clock — a bus
// cycle takes several T-states to complete.
func TestBIUBackgroundFetchEventuallyFillsQueue(t *testing.T) {
	bus, cpu, biu := newTestBIU(false)
	bus.WriteMem8(0, 0xAA)
	cpu.Queue.Flush(0)

	biu.Tick() // a single clock can only ever reach an early T-state
	if !cpu.Queue.Empty() {
		t.Fatal("queue filled after a single clock — a bus cycle must take more than one")
	}

	tickUntilQueueFilled(t, biu, cpu, 10)
	b, ok := cpu.Queue.Pop()
	if !ok || b != 0xAA {
		t.Fatalf("fetched byte = %#x (ok=%v), want 0xAA", b, ok)
	}
}

// TestBIUComputeWaitStatesBlockingFetchChargedOnlyWhenEnabled: a
// blocking (EU-driven, queue-empty) fetch must cost real wait states
// when wait_states is enabled, and nothing when it's disabled. A
// background/speculative fetch is free either way.
func TestBIUComputeWaitStatesBlockingFetchChargedOnlyWhenEnabled(t *testing.T) {
	_, _, biu := newTestBIU(true)
	if got := biu.computeWaitStates(true); got != fetchMissWaitStates {
		t.Fatalf("blocking fetch with wait_states=true: got %d, want %d", got, fetchMissWaitStates)
	}
	if got := biu.computeWaitStates(false); got != 0 {
		t.Fatalf("background fetch with wait_states=true: got %d, want 0 (never charged)", got)
	}

	_, _, biu2 := newTestBIU(false)
	if got := biu2.computeWaitStates(true); got != 0 {
		t.Fatalf("blocking fetch with wait_states=false: got %d, want 0 (knob disables it)", got)
	}
}

// TestEUFetchStallChargesWaitStatesOnlyWhenEnabled checks the EU side
// of the same contract end to end: fetch8() on an empty queue must add
// real wait states (via extraWaitStates/applyExtraWaitStates padding)
// when wait_states is enabled, and none when it's disabled —
// raster-synchronous demos visibly break when this distinction is lost.
func TestEUFetchStallChargesWaitStatesOnlyWhenEnabled(t *testing.T) {
	bus := NewBus()
	cpu := NewCPU()
	biu := NewBIU(bus, cpu, true)
	eu := NewEU(cpu, bus, biu, nil, NewCallStackShadow())
	eu.waitStatesEnabled = true
	loadProgram(bus, cpu, []byte{0x90}) // NOP

	eu.fetch8()
	if eu.extraWaitStates != fetchMissWaitStates {
		t.Fatalf("extraWaitStates after a queue-empty fetch = %d, want %d", eu.extraWaitStates, fetchMissWaitStates)
	}

	bus2 := NewBus()
	cpu2 := NewCPU()
	biu2 := NewBIU(bus2, cpu2, false)
	eu2 := NewEU(cpu2, bus2, biu2, nil, NewCallStackShadow())
	eu2.waitStatesEnabled = false
	loadProgram(bus2, cpu2, []byte{0x90})

	eu2.fetch8()
	if eu2.extraWaitStates != 0 {
		t.Fatalf("extraWaitStates with wait_states disabled = %d, want 0", eu2.extraWaitStates)
	}
}

// TestBIURequestReadTakesPriorityOverSpeculativeFetch checks the
// arbitration rule: an explicit EU request wins over the BIU's own
// idle-cycle speculative prefetch.
func TestBIURequestReadTakesPriorityOverSpeculativeFetch(t *testing.T) {
	bus, cpu, biu := newTestBIU(false)
	bus.WriteMem8(0x100, 0x42)
	cpu.Queue.Flush(0) // queue not full, so Tick() would otherwise auto-fetch from 0

	biu.RequestRead(0x100, 1)
	var v byte
	var ok bool
	for i := 0; i < 10; i++ {
		biu.Tick()
		if v, ok = biu.ResultByte(); ok {
			break
		}
	}
	if !ok || v != 0x42 {
		t.Fatalf("explicit read result = %#x (ok=%v), want 0x42 — EU request must win arbitration", v, ok)
	}
	if !cpu.Queue.Empty() {
		t.Fatal("the speculative fetch must not have run while the EU's read request was serviced")
	}
}

// TestBIUHoldPreventsNewBusCycleButNeverAbortsMidCycle exercises DMA's
// HOLD/HLDA pre-emption rule: SetHold(true) stops a new bus cycle from
// starting, but a cycle already underway runs to completion.
func TestBIUHoldPreventsNewBusCycleButNeverAbortsMidCycle(t *testing.T) {
	bus, cpu, biu := newTestBIU(false)
	bus.WriteMem8(0, 0x11)
	bus.WriteMem8(1, 0x22)
	cpu.Queue.Flush(0)

	biu.Tick() // starts the fetch (state -> T1), before any hold is requested
	biu.SetHold(true)

	tickUntilQueueFilled(t, biu, cpu, 10)
	if b, _ := cpu.Queue.Pop(); b != 0x11 {
		t.Fatalf("in-flight fetch result = %#x, want 0x11 (a held bus must still finish its current cycle)", b)
	}

	for i := 0; i < 5; i++ {
		biu.Tick() // now idle and held: must never start a new cycle
	}
	if !cpu.Queue.Empty() {
		t.Fatal("HOLD must prevent a new bus cycle from starting")
	}

	biu.SetHold(false)
	tickUntilQueueFilled(t, biu, cpu, 10)
	if b, _ := cpu.Queue.Pop(); b != 0x22 {
		t.Fatalf("post-hold fetch result = %#x, want 0x22", b)
	}
}

// TestBIUFlushAbortsInFlightFetchAndClearsWaitCounter: a flush
// mid-fetch must override any pending delay and leave no stale wait
// counter behind.
func TestBIUFlushAbortsInFlightFetchAndClearsWaitCounter(t *testing.T) {
	bus, cpu, biu := newTestBIU(true)
	bus.WriteMem8(0, 0x11)
	bus.WriteMem8(0x200, 0x22)
	cpu.Queue.Flush(0)

	biu.Tick() // enters T1 of the background fetch from address 0

	biu.Flush(0x200) // jump target: abort the in-flight fetch, reload the cursor

	if biu.state != BusIdle {
		t.Fatalf("state after Flush = %v, want BusIdle", biu.state)
	}
	if biu.waitLeft != 0 {
		t.Fatalf("waitLeft after Flush = %d, want 0 (no stale wait counter)", biu.waitLeft)
	}
	if cpu.Queue.nextFetchAddress != 0x200 {
		t.Fatalf("nextFetchAddress after Flush = %#x, want 0x200", cpu.Queue.nextFetchAddress)
	}
	if !cpu.Queue.Empty() {
		t.Fatal("Flush must leave the queue empty")
	}

	tickUntilQueueFilled(t, biu, cpu, 10)
	b, ok := cpu.Queue.Pop()
	if !ok || b != 0x22 {
		t.Fatalf("post-flush fetch = %#x (ok=%v), want the byte at the new address (0x22)", b, ok)
	}
}

// TestBIUBusyReflectsAnyActiveRequest checks Busy() covers every
// active request kind (read/write/fetch), not just read/write.
func TestBIUBusyReflectsAnyActiveRequest(t *testing.T) {
	bus, cpu, biu := newTestBIU(false)
	bus.WriteMem8(0, 0x01)
	cpu.Queue.Flush(0)

	if biu.Busy() {
		t.Fatal("a freshly idle BIU must not report busy")
	}
	biu.Tick() // kicks off the background fetch
	if !biu.Busy() {
		t.Fatal("a BIU mid fetch bus-cycle must report busy")
	}
}

// TestBIUSpeculativeFetchAdvancesFetchCursor: every byte the BIU
// prefetches moves PC (the fetch cursor) forward by one, so the
// architectural IP (PC minus queue depth) stands still while the queue
// fills ahead of the EU.
func TestBIUSpeculativeFetchAdvancesFetchCursor(t *testing.T) {
	bus, cpu, biu := newTestBIU(false)
	cpu.Segs[SegCS] = 0
	cpu.PC = 0
	cpu.Queue.Flush(0)
	bus.WriteMem8(0, 0x90)
	bus.WriteMem8(1, 0x90)

	for i := 0; i < 20 && cpu.Queue.Len() < 2; i++ {
		biu.Tick()
	}
	if cpu.Queue.Len() != 2 {
		t.Fatalf("queue length = %d, want 2", cpu.Queue.Len())
	}
	if cpu.PC != 2 {
		t.Fatalf("PC = %#x, want 2 (one advance per prefetched byte)", cpu.PC)
	}
	if cpu.IP() != 0 {
		t.Fatalf("IP() = %#x, want 0 (prefetch must not move the architectural IP)", cpu.IP())
	}
}
