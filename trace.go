// trace.go - instruction/cycle trace recorder
//
// Implements eu.go's Tracer interface in four modes: Instruction (one
// disassembled line per completed instruction), CycleText (one
// human-readable line per CPU clock), CycleCsv (machine-parsable
// per-clock CSV), and CycleSigrok (a PulseView-importable CSV variant).
// All four write straight through a buffered io.Writer rather than
// accumulating in memory, so an arbitrarily long run never grows its
// working set.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"bufio"
	"fmt"
	"io"
)

type TraceMode int

const (
	TraceNone TraceMode = iota
	TraceInstruction
	TraceCycleText
	TraceCycleCsv
	TraceCycleSigrok
)

// sigrokImportString documents the column layout CycleSigrok mode
// writes, for the operator to paste into PulseView's CSV import
// dialog: clock counter, 20-bit address (hex), R/W line, 2 status
// bits, then 8 data/control signal columns.
const sigrokImportString = "t,x20,l,l,x2,x3,l,l,l,l,l,l"

// Tracer writes one record per EU tick (cycle modes) or per completed
// instruction (TraceInstruction), depending on Mode.
type TraceWriter struct {
	Mode TraceMode
	w    *bufio.Writer
	disasm *Disassembler

	wroteSigrokHeader bool
}

func NewTraceWriter(mode TraceMode, out io.Writer, disasm *Disassembler) *TraceWriter {
	return &TraceWriter{Mode: mode, w: bufio.NewWriter(out), disasm: disasm}
}

// Flush must be called (typically deferred) by the owner of the
// underlying io.Writer once tracing stops.
func (t *TraceWriter) Flush() error { return t.w.Flush() }

func (t *TraceWriter) OnInstruction(eu *EU) {
	if t.Mode != TraceInstruction {
		return
	}
	// The instruction's own start address, not the post-execution CS:IP
	// (which already points at the next instruction).
	cs, ip := eu.instrStartCS, eu.instrStartIP
	inst := t.disasm.Decode(cs, ip)
	fmt.Fprintf(t.w, "%04X:%04X  %-32s  AX=%04X BX=%04X CX=%04X DX=%04X SI=%04X DI=%04X SP=%04X BP=%04X FLAGS=%04X\n",
		cs, ip, inst.Text,
		eu.cpu.AX, eu.cpu.BX, eu.cpu.CX, eu.cpu.DX, eu.cpu.SI, eu.cpu.DI, eu.cpu.SP, eu.cpu.BP, eu.cpu.Flags)
}

func (t *TraceWriter) OnCycle(eu *EU) {
	switch t.Mode {
	case TraceCycleText:
		t.writeCycleText(eu)
	case TraceCycleCsv:
		t.writeCycleCsv(eu)
	case TraceCycleSigrok:
		t.writeCycleSigrok(eu)
	}
}

func (t *TraceWriter) writeCycleText(eu *EU) {
	fmt.Fprintf(t.w, "clk=%d addr=%05X status=%s ip=%04X:%04X\n",
		eu.cpu.CycleCounter, eu.bus.LastPhysicalAddr, busStatusName(eu.bus.LastBusStatus), eu.cpu.CS(), eu.cpu.IP())
}

func (t *TraceWriter) writeCycleCsv(eu *EU) {
	fmt.Fprintf(t.w, "%d,%05X,%s,%04X,%04X\n",
		eu.cpu.CycleCounter, eu.bus.LastPhysicalAddr, busStatusName(eu.bus.LastBusStatus), eu.cpu.CS(), eu.cpu.IP())
}

// writeCycleSigrok emits one row per the documented sigrok schema; a
// one-line comment with the import string is written once, as the
// first line, so a PulseView user can copy it straight into the
// import dialog without consulting external docs.
func (t *TraceWriter) writeCycleSigrok(eu *EU) {
	if !t.wroteSigrokHeader {
		fmt.Fprintf(t.w, "; sigrok CSV import string: %s\n", sigrokImportString)
		t.wroteSigrokHeader = true
	}
	rw := 0
	if eu.bus.LastBusStatus == BusStatusWriteMemory || eu.bus.LastBusStatus == BusStatusWriteIO {
		rw = 1
	}
	fmt.Fprintf(t.w, "%d,%05X,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
		eu.cpu.CycleCounter, eu.bus.LastPhysicalAddr, rw,
		boolBit(eu.cpu.GetFlag(FlagIF)), int(eu.bus.LastBusStatus)&0x3, (int(eu.bus.LastBusStatus)>>2)&0x7,
		0, 0, 0, 0, 0, 0)
}

func busStatusName(s BusStatus) string {
	switch s {
	case BusStatusInterruptAck:
		return "INTA"
	case BusStatusReadIO:
		return "IOR"
	case BusStatusWriteIO:
		return "IOW"
	case BusStatusHalt:
		return "HALT"
	case BusStatusInstructionFetch:
		return "FETCH"
	case BusStatusReadMemory:
		return "MEMR"
	case BusStatusWriteMemory:
		return "MEMW"
	default:
		return "PASV"
	}
}
