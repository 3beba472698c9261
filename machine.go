// machine.go - the machine loop: owns every chip, co-ticks them in lockstep
//
// The loop is the sole mutator of device state: it ticks the CPU one
// system clock, then fans that same clock out to every attached device
// in a fixed order (PIT, DMA, PIC, video, keyboard). Strict sequencing
// is what makes the whole core deterministic — no device ever needs a
// lock, and the Bus can be a plain value devices receive as a parameter
// instead of something they hold a reference to.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"os"
)

// logf is the module's one logging entry point: non-fatal device
// notices and trace-I/O failures go to stderr with a fixed prefix.
func logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[xtcycle] "+format+"\n", args...)
}

// VideoKind selects which adapter Machine attaches. Adapter choice is
// part of the machine profile rather than the config document's option
// groups, so it is a constructor parameter rather than a Config field.
type VideoKind int

const (
	VideoMDA VideoKind = iota
	VideoCGA
	VideoEGA
)

// cpuClockHz is the PC/XT's nominal 8088 clock (14.31818 MHz / 3); used
// to derive device ratios like the keyboard serial clock.
const cpuClockHz = 4772727

// pitTickRatio is how many CPU clocks elapse per PIT reference clock
// (the 8253 runs at ~1.193 MHz, roughly cpuClockHz/4 on PC/XT
// hardware). Turbo boards keep the PIT crystal and speed the CPU, so
// turbo mode widens the ratio instead of touching the PIT.
const (
	pitTickRatio      = 4
	pitTickRatioTurbo = 6
)

// Machine owns everything: 1 MiB RAM (via Bus), ROM blocks (via
// Bus.MapROM), CPU state, every device, and the monotonic cycle counter
// (CPU.CycleCounter). One instance per process.
type Machine struct {
	cfg   Config
	video VideoKind

	Bus   *Bus
	CPU   *CPU
	BIU   *BIU
	EU    *EU
	PIC   *PIC
	PIT   *PIT
	DMA   *DMA
	PPI   *PPI
	Keyboard *Keyboard
	Video VideoAdapter
	Stack *CallStackShadow
	Debug *DebugService

	Trace *TraceWriter

	pitPhase        int
	pitPhaseCounter int
	pitRatio        int

	poweredOn bool
	halted    bool

	// breakpoints maps physical addresses (of an instruction's CS:IP) to
	// armed breakpoints; checked only at instruction boundaries.
	breakpoints map[uint32]bool
}

// NewMachine wires every chip together exactly once. The Bus is a value
// every device's tick/io entry point receives as a parameter, never a
// reference a device holds onto, which keeps the device<->bus ownership
// graph acyclic.
func NewMachine(cfg Config, video VideoKind) *Machine {
	m := &Machine{cfg: cfg, video: video}

	m.Bus = NewBus()
	m.CPU = NewCPU()
	m.BIU = NewBIU(m.Bus, m.CPU, cfg.CPU.WaitStates)
	m.PIC = NewPIC()
	m.PIT = NewPIT()
	m.DMA = NewDMA()
	m.PPI = NewPPI()
	m.Keyboard = NewKeyboard(m.PPI, m.PIC, cpuClockHz)
	m.Stack = NewCallStackShadow()
	m.EU = NewEU(m.CPU, m.Bus, m.BIU, m.PIC, m.Stack)
	m.EU.waitStatesEnabled = cfg.CPU.WaitStates
	m.EU.offRailsDetection = cfg.CPU.OffRailsDetection
	m.EU.haltPolicy = HaltPolicyFromString(cfg.CPU.OnHalt)
	m.EU.haltHook = func() { m.halted = true }

	switch video {
	case VideoMDA:
		m.Video = NewMDA()
	case VideoEGA:
		m.Video = NewEGA()
	default:
		m.Video = NewCGA()
	}

	m.pitPhase = cfg.Machine.PITPhase & 0x3
	m.pitRatio = pitTickRatio
	if cfg.Machine.Turbo {
		m.pitRatio = pitTickRatioTurbo
	}
	m.EU.historyEnabled = cfg.CPU.InstructionHistory

	m.wireDeviceCallbacks()

	if cfg.CPU.ServiceInterrupt {
		m.Debug = NewDebugService(m.CPU, m.Bus, m.Stack)
		m.Debug.SetExitHook(func() { m.halted = true })
		m.EU.serviceInterrupt = m.Debug.Handle
	}

	m.wireBusPorts()
	return m
}

// wireDeviceCallbacks hooks up the inter-chip lines that exist as
// motherboard traces on real hardware: PIT counter 0 output to PIC
// IRQ0, counter 1 output to the DMA refresh request, PPI port B bit 0
// to counter 2's gate, and PPI port B bit 7 to the keyboard clock hold.
// Reset re-runs this after rebuilding the chips.
func (m *Machine) wireDeviceCallbacks() {
	m.PIT.OnOutputRisingEdge0 = func() { m.PIC.Raise(0) }
	m.PIT.OnOutputChannel1 = m.DMA.OnRefreshEdge
	m.PPI.OnGate2 = func(level bool) { m.PIT.SetGate(2, level) }
	m.PPI.OnKeyboardEnable = m.Keyboard.SetEnabled
}

// wireBusPorts maps every device's port I/O range and, for the video
// adapter, its MMIO window onto Machine.Bus.
func (m *Machine) wireBusPorts() {
	m.Bus.MapPort(0x20, m.PIC)
	m.Bus.MapPort(0x21, m.PIC)
	for p := uint16(0x40); p <= 0x43; p++ {
		m.Bus.MapPort(p, m.PIT)
	}
	for p := uint16(0x60); p <= 0x63; p++ {
		m.Bus.MapPort(p, m.PPI)
	}
	for p := uint16(0x00); p <= 0x0F; p++ {
		m.Bus.MapPort(p, m.DMA)
	}
	for _, p := range []uint16{0x81, 0x82, 0x83, 0x87} {
		m.Bus.MapPort(p, m.DMA)
	}

	switch v := m.Video.(type) {
	case *MDA:
		for p := uint16(0x3B0); p <= 0x3BB; p++ {
			m.Bus.MapPort(p, v)
		}
		m.Bus.MapMMIO(0xB0000, 0xB1000, v.ReadMem8, v.WriteMem8)
	case *CGA:
		for p := uint16(0x3D0); p <= 0x3DB; p++ {
			m.Bus.MapPort(p, v)
		}
		m.Bus.MapMMIO(0xB8000, 0xBC000, v.ReadMem8, v.WriteMem8)
	case *EGA:
		for p := uint16(0x3C0); p <= 0x3DB; p++ {
			m.Bus.MapPort(p, v)
		}
		// Both decode windows route to the card; its GC Miscellaneous
		// memory-map field decides which one is live (the other reads as
		// open bus), so a CGA-compat title's 0xB8000 writes reach the
		// planes instead of falling through to plain RAM.
		m.Bus.MapMMIO(0xA0000, 0xB0000, v.ReadMem8, v.WriteMem8)
		m.Bus.MapMMIO(0xB8000, 0xC0000, v.ReadMem8, v.WriteMem8)
	}
}

// MapROM installs a ROM block (the BIOS, typically at 0xFE000 or
// 0xF0000 depending on ROM set size); exposed for the CLI/config layer
// that discovers actual ROM files.
func (m *Machine) MapROM(base uint32, data []byte) {
	m.Bus.MapROM(base, data)
}

// SetRunBin redirects the reset vector so CS:IP points at a raw binary
// loaded directly into physical memory (run_bin mode). Must be called
// after MapROM/PowerOn since it writes through the bus.
func (m *Machine) SetRunBin(data []byte, seg, ofs uint16) {
	base := physicalAddress(seg, 0)
	for i, b := range data {
		m.Bus.WriteMem8(base+uint32(i), b)
	}
	m.CPU.Segs[SegCS] = seg
	m.CPU.PC = ofs
	m.BIU.Flush(physicalAddress(seg, ofs))
}

// PowerOn performs the initial (cold) reset. Idempotent re-calls behave
// like Reset.
func (m *Machine) PowerOn() {
	m.poweredOn = true
	m.Reset()
}

// PowerOff tears the machine down; RAM and device state are simply
// abandoned along with the Machine value.
func (m *Machine) PowerOff() {
	m.poweredOn = false
	if m.Debug != nil {
		m.Debug.Close()
	}
}

// Reset performs a hard reset: every component returns to its power-on
// state. ROM blocks and port/MMIO mappings survive; re-reading ROM
// files from disk is the CLI/config layer's job when [machine]
// reload_roms is set.
func (m *Machine) Reset() {
	m.Bus.Reset()
	m.CPU.Reset()
	*m.PIC = *NewPIC()
	*m.PIT = *NewPIT()
	*m.DMA = *NewDMA()
	*m.PPI = *NewPPI()
	m.wireDeviceCallbacks()
	m.Video.Reset()
	m.Stack = NewCallStackShadow()
	m.EU.stack = m.Stack
	m.pitPhaseCounter = m.pitPhase
	m.halted = false
}

// tickOnce advances the CPU by exactly one system clock, then co-ticks
// every device by its scaled share of that same clock, in a fixed
// order: PIT, DMA, PIC, video, keyboard. The BIU is driven every clock
// regardless of what the EU's microcode did this cycle, so its T-state
// machine and trace/bus-status bookkeeping stay live even on cycles
// where the EU itself completed its whole architectural effect already.
func (m *Machine) tickOnce() {
	waitFromDMA := m.DMA.ConsumeRefreshWaitState()
	if waitFromDMA > 0 {
		m.EU.AddWaitStates(waitFromDMA)
	}

	m.EU.Tick()
	m.BIU.Tick()

	m.pitPhaseCounter++
	if m.pitPhaseCounter >= m.pitRatio {
		m.pitPhaseCounter = 0
		m.PIT.Tick()
	}
	m.PIC.Tick()
	m.Video.Tick()
	m.Keyboard.Tick()
}

// AddBreakpoint arms a breakpoint at seg:off; RunFor stops on the
// instruction boundary where CS:IP reaches it.
func (m *Machine) AddBreakpoint(seg, off uint16) {
	if m.breakpoints == nil {
		m.breakpoints = make(map[uint32]bool)
	}
	m.breakpoints[physicalAddress(seg, off)] = true
}

// ClearBreakpoint disarms a breakpoint set by AddBreakpoint.
func (m *Machine) ClearBreakpoint(seg, off uint16) {
	delete(m.breakpoints, physicalAddress(seg, off))
}

// RunFor advances the machine by up to cycles system clocks, returning
// the number of cycles actually executed. It is the caller's only
// cancellation mechanism: the loop exits early on an off-rails halt
// under HaltPolicyStop or on an armed breakpoint, and otherwise runs
// the full window.
func (m *Machine) RunFor(cycles uint64) uint64 {
	var n uint64
	lastInstr := m.EU.InstructionCount
	for n = 0; n < cycles; n++ {
		if m.halted {
			break
		}
		m.tickOnce()
		if len(m.breakpoints) > 0 && m.EU.InstructionCount != lastInstr {
			lastInstr = m.EU.InstructionCount
			if m.breakpoints[physicalAddress(m.CPU.CS(), m.CPU.IP())] {
				n++
				break
			}
		}
	}
	return n
}

// SetTrace attaches a TraceWriter to the EU; passing nil disables
// tracing. Assigning directly would leave eu.Tracer holding a non-nil
// interface wrapping a nil *TraceWriter, so nil is special-cased.
func (m *Machine) SetTrace(t *TraceWriter) {
	m.Trace = t
	if t == nil {
		m.EU.Tracer = nil
		return
	}
	m.EU.Tracer = t
}

// StepInstruction runs CPU clocks until InstructionCount advances by
// one (or the machine halts), for single-step debugging.
func (m *Machine) StepInstruction() {
	start := m.EU.InstructionCount
	for !m.halted && m.EU.InstructionCount == start {
		m.tickOnce()
	}
}

// Halted reports whether an off-rails condition under HaltPolicyStop
// has stopped the run loop; the CLI turns this into a non-zero exit.
func (m *Machine) Halted() bool { return m.halted }
