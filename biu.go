// biu.go - Bus Interface Unit: prefetch queue and bus-cycle state machine
//
// A small {Idle,T1,T2,T3,Tw,T4} state machine stepped one per CPU
// clock, arbitrating EU bus requests against speculative prefetch and
// against DMA HOLD/HLDA.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

const prefetchQueueSize = 4 // 8088 queue depth (an 8086 would use 6)

// fetchMissWaitStates is what an opcode fetch costs when the prefetch
// queue has run dry. A background speculative fetch (the BIU topping up
// the queue on its own idle cycles) is free, because real hardware
// hides it behind whatever the EU was already doing; a fetch the EU is
// actually blocked on is not, since the EU must now wait out a full bus
// cycle it didn't get ahead of.
const fetchMissWaitStates = 4

// PrefetchQueue is the BIU's FIFO of opcode bytes fetched ahead of the EU.
type PrefetchQueue struct {
	bytes            [prefetchQueueSize]byte
	head, len        int
	nextFetchAddress uint32 // 20-bit physical address of the next fetch
}

func (q *PrefetchQueue) Len() int { return q.len }
func (q *PrefetchQueue) Full() bool { return q.len == prefetchQueueSize }
func (q *PrefetchQueue) Empty() bool { return q.len == 0 }

// Push appends a freshly fetched byte (called by the BIU on T4 of a
// fetch bus cycle).
func (q *PrefetchQueue) Push(b byte) {
	if q.Full() {
		return
	}
	idx := (q.head + q.len) % prefetchQueueSize
	q.bytes[idx] = b
	q.len++
	q.nextFetchAddress = (q.nextFetchAddress + 1) & addressMask
}

// Pop removes and returns the oldest byte (called by the EU consuming
// an opcode/operand byte).
func (q *PrefetchQueue) Pop() (byte, bool) {
	if q.Empty() {
		return 0, false
	}
	b := q.bytes[q.head]
	q.head = (q.head + 1) % prefetchQueueSize
	q.len--
	return b, true
}

// Flush empties the queue and reloads the fetch cursor. Called on any
// jump or interrupt.
func (q *PrefetchQueue) Flush(newFetchAddr uint32) {
	q.head, q.len = 0, 0
	q.nextFetchAddress = newFetchAddr & addressMask
}

// BusCycleState is the BIU's T-state machine.
type BusCycleState int

const (
	BusIdle BusCycleState = iota
	BusT1
	BusT2
	BusT3
	BusTw
	BusT4
)

// busRequestKind distinguishes the three things the EU can ask the BIU
// to do, plus the BIU's own speculative fetch.
type busRequestKind int

const (
	reqNone busRequestKind = iota
	reqFetch
	reqRead
	reqWrite
)

type busRequest struct {
	kind  busRequestKind
	addr  uint32
	width int // 1 or 2 bytes
	data  uint16
}

// BIU drives one bus cycle at a time across CPU clocks, handing fetched
// bytes to the prefetch queue and read results to whichever EU port
// asked for them. Only one of {EU request, speculative prefetch} is
// active at a time; explicit EU requests always win arbitration.
type BIU struct {
	bus   *Bus
	cpu   *CPU
	state BusCycleState

	active   busRequest
	cyclesIn int // cycles spent in the current bus cycle so far
	waitLeft int // extra Tw states still owed (wait-state accounting)

	pendingEU   busRequest // explicit EU request queued, takes priority
	hasPendingEU bool

	// result delivered to the EU once the active read/fetch completes
	resultReady bool
	resultByte  byte
	resultWord  uint16

	// held models DMA's HOLD/HLDA pre-emption: the BIU will not start a
	// new bus cycle while held, but never aborts mid-cycle.
	held bool

	waitStatesEnabled bool
}

func NewBIU(bus *Bus, cpu *CPU, waitStatesEnabled bool) *BIU {
	return &BIU{bus: bus, cpu: cpu, state: BusIdle, waitStatesEnabled: waitStatesEnabled}
}

// SetHold is called by the DMA controller to request/release the bus
// between bus cycles (never mid-cycle).
func (b *BIU) SetHold(hold bool) { b.held = hold }

// RequestFetch asks the BIU to fetch the next opcode/operand byte. It
// is a no-op if the queue is already full or a fetch is already active;
// the EU polls Tick()'s return to know when a byte becomes available
// via Queue.Pop().
func (b *BIU) RequestFetch() {
	if b.cpu.Queue.Full() || b.hasPendingEU || (b.active.kind != reqNone) {
		return
	}
	b.pendingEU = busRequest{kind: reqFetch, addr: b.cpu.Queue.nextFetchAddress, width: 1}
	b.hasPendingEU = true
}

// cancelPendingFetch withdraws any fetch the EU has bypassed by
// completing the read itself (eu.go's fetchStall): a request queued by
// RequestFetch that Tick() has not picked up yet, and equally a
// speculative fetch already mid bus-cycle. Either would otherwise
// finish later and push a stale duplicate of a byte the EU has already
// consumed, advancing the fetch cursor a second time.
func (b *BIU) cancelPendingFetch() {
	if b.hasPendingEU && b.pendingEU.kind == reqFetch {
		b.hasPendingEU = false
		b.pendingEU = busRequest{}
	}
	if b.active.kind == reqFetch {
		b.state = BusIdle
		b.cyclesIn = 0
		b.waitLeft = 0
		b.active = busRequest{}
	}
}

// RequestRead asks the BIU to read width bytes (1 or 2) from addr,
// taking priority over any speculative prefetch in flight.
func (b *BIU) RequestRead(addr uint32, width int) {
	b.pendingEU = busRequest{kind: reqRead, addr: addr, width: width}
	b.hasPendingEU = true
}

// RequestWrite asks the BIU to write width bytes of data to addr.
func (b *BIU) RequestWrite(addr uint32, width int, data uint16) {
	b.pendingEU = busRequest{kind: reqWrite, addr: addr, width: width, data: data}
	b.hasPendingEU = true
}

// Flush empties the prefetch queue and aborts any in-flight speculative
// fetch, reloading the fetch cursor to newFetchAddr. A prefetch abort
// overrides any pending delay and never leaves a stale wait counter
// behind, so the active bus cycle's wait bookkeeping is cleared
// whenever the aborted cycle was a plain fetch.
func (b *BIU) Flush(newFetchAddr uint32) {
	b.cpu.Queue.Flush(newFetchAddr)
	if b.active.kind == reqFetch {
		b.state = BusIdle
		b.cyclesIn = 0
		b.waitLeft = 0
		b.active = busRequest{}
		b.resultReady = false
	}
	if b.hasPendingEU && b.pendingEU.kind == reqFetch {
		b.hasPendingEU = false
		b.pendingEU = busRequest{}
	}
}

// ResultByte/ResultWord let the EU collect a completed read's result.
func (b *BIU) ResultByte() (byte, bool) {
	if !b.resultReady {
		return 0, false
	}
	b.resultReady = false
	return b.resultByte, true
}

func (b *BIU) ResultWord() (uint16, bool) {
	if !b.resultReady {
		return 0, false
	}
	b.resultReady = false
	return b.resultWord, true
}

// Busy reports whether the BIU is mid bus-cycle on any request —
// EU-issued read/write, or a fetch (speculative or EU-blocking). The
// EU consults this when it needs to know whether the BIU already owns
// the bus for the byte it's after.
func (b *BIU) Busy() bool {
	return b.active.kind != reqNone
}

// Tick advances the BIU state machine by one CPU clock. It returns the
// number of wait states introduced this cycle (0 normally), which the
// EU's wait-state accounting adds to its own counter when wait_states
// is enabled.
func (b *BIU) Tick() int {
	if b.state == BusIdle {
		if b.held {
			return 0
		}
		var blockingFetch bool
		if b.hasPendingEU {
			b.active = b.pendingEU
			blockingFetch = b.active.kind == reqFetch
			b.hasPendingEU = false
			b.pendingEU = busRequest{}
		} else if !b.cpu.Queue.Full() {
			b.active = busRequest{kind: reqFetch, addr: b.cpu.Queue.nextFetchAddress, width: 1}
		} else {
			return 0
		}
		b.state = BusT1
		b.cyclesIn = 0
		b.waitLeft = b.computeWaitStates(blockingFetch)
		return 0
	}

	b.cyclesIn++
	switch b.state {
	case BusT1:
		b.state = BusT2
	case BusT2:
		b.state = BusT3
	case BusT3:
		if b.waitLeft > 0 {
			b.state = BusTw
			b.waitLeft--
			return 1
		}
		b.state = BusT4
	case BusTw:
		if b.waitLeft > 0 {
			b.waitLeft--
			return 1
		}
		b.state = BusT4
	case BusT4:
		b.completeCycle()
		b.state = BusIdle
		b.active = busRequest{}
	}
	return 0
}

// computeWaitStates prices one bus cycle. Memory itself is always ready
// on a stock PC/XT, so a plain read/write or a background speculative
// fetch never pays a Tw here — but a fetch the EU explicitly requested
// because its queue had already run dry (blockingFetch) charges
// fetchMissWaitStates. DRAM refresh arbitration (dma.go) and 8-bit I/O
// device slow paths are separate wait-state sources applied by the
// caller, not by this function.
func (b *BIU) computeWaitStates(blockingFetch bool) int {
	if !b.waitStatesEnabled {
		return 0
	}
	if blockingFetch {
		return fetchMissWaitStates
	}
	return 0
}

func (b *BIU) completeCycle() {
	switch b.active.kind {
	case reqFetch:
		v := b.bus.ReadMem8(b.active.addr)
		b.bus.LastBusStatus = BusStatusInstructionFetch
		if !b.cpu.Queue.Full() {
			b.cpu.Queue.Push(v)
			// PC is the fetch cursor: it advances exactly once per byte
			// fetched, whether the fetch was speculative (here) or an
			// EU-blocking one (eu.go's fetchStall). That is what keeps
			// IP() = PC - queue depth true while prefetch runs ahead.
			b.cpu.PC++
			if b.cpu.PC == 0 {
				// The cursor wrapped at the segment boundary: rewind the
				// physical fetch address to CS:0000 rather than running
				// linearly into the next segment.
				b.cpu.Queue.nextFetchAddress = physicalAddress(b.cpu.Segs[SegCS], 0)
			}
		}
	case reqRead:
		if b.active.width == 2 {
			lo := b.bus.ReadMem8(b.active.addr)
			hi := b.bus.ReadMem8(b.active.addr + 1)
			b.resultWord = uint16(lo) | uint16(hi)<<8
		} else {
			b.resultByte = b.bus.ReadMem8(b.active.addr)
		}
		b.bus.LastBusStatus = BusStatusReadMemory
		b.resultReady = true
	case reqWrite:
		if b.active.width == 2 {
			b.bus.WriteMem8(b.active.addr, byte(b.active.data))
			b.bus.WriteMem8(b.active.addr+1, byte(b.active.data>>8))
		} else {
			b.bus.WriteMem8(b.active.addr, byte(b.active.data))
		}
		b.bus.LastBusStatus = BusStatusWriteMemory
	}
}
