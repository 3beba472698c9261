// cpu.go - 8088 CPU architectural state (registers, flags, IP invariant)
//
// The BIU's prefetch queue is folded into this struct as the source of
// truth for the architectural IP: PC tracks the fetch cursor, and IP()
// derives what guest-visible software would see by subtracting the
// queue's unconsumed depth.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// Flag bit positions (8088 FLAGS register).
const (
	FlagCF uint16 = 1 << 0
	flag1         = 1 << 1 // always 1, unused
	FlagPF uint16 = 1 << 2
	flag3         = 1 << 3 // always 0, unused
	FlagAF uint16 = 1 << 4
	flag5         = 1 << 5 // always 0, unused
	FlagZF uint16 = 1 << 6
	FlagSF uint16 = 1 << 7
	FlagTF uint16 = 1 << 8
	FlagIF uint16 = 1 << 9
	FlagDF uint16 = 1 << 10
	FlagOF uint16 = 1 << 11
)

const flagsReservedOnes = flag1

// SegIndex names the four segment registers in modrm/prefix order.
type SegIndex int

const (
	SegES SegIndex = iota
	SegCS
	SegSS
	SegDS
)

// HaltState distinguishes "running" from the halted sub-state: HLT
// keeps consuming cycles and lets the BIU finish outstanding bus work.
type HaltState int

const (
	HaltNone HaltState = iota
	HaltWaitingForInterrupt
)

// CPU is the 8088's architectural + microarchitectural state. Machine
// owns the single instance for the process; the EU and BIU both operate
// on it through methods defined in eu.go / biu.go.
type CPU struct {
	// General-purpose registers, addressable as AX/AH/AL etc.
	AX, BX, CX, DX uint16
	SI, DI, BP, SP uint16

	// Segment registers.
	Segs [4]uint16 // indexed by SegIndex

	// PC tracks the offset into CS of the next byte the BIU will fetch.
	// It is strictly 16-bit and wraps modulo 2^16: a wider type here
	// would leak fetches past offset 0xFFFF into the next segment
	// instead of wrapping within it.
	PC uint16

	Flags uint16

	// Prefetch queue (shared with the BIU; biu.go owns mutation, cpu.go
	// only reads it to derive ip()).
	Queue PrefetchQueue

	// Halt/resume sub-state.
	Halt HaltState

	// Current decoded opcode and per-instruction scratch the microcode
	// steps read/write across cycles.
	Opcode      byte
	prefixSeg   int // -1 = no override, else SegIndex
	prefixRep   int // 0 = none, 1 = REP/REPE, 2 = REPNE
	segOverride bool

	// Microcode instruction pointer: index into the active instruction's
	// microcode step sequence (eu.go / microcode.go).
	MIP int

	// EA scratch computed by the ModRM decode for the current instruction.
	eaAddr   uint32
	eaIsReg  bool
	eaReg    int
	modrm    byte
	modrmSet bool

	// off_rails_detection bookkeeping.
	consecutiveBadOpcodes int

	// 64-bit monotonically increasing system clock.
	CycleCounter uint64
}

// NewCPU constructs a CPU in its power-on state (see Reset).
func NewCPU() *CPU {
	c := &CPU{}
	c.Reset()
	return c
}

// Reset sets the 8088 power-on/hard-reset architectural state: the real
// reset vector CS:IP = F000:FFF0, flags clear except the reserved-one
// bit, queue flushed, halt cleared.
func (c *CPU) Reset() {
	c.AX, c.BX, c.CX, c.DX = 0, 0, 0, 0
	c.SI, c.DI, c.BP, c.SP = 0, 0, 0, 0
	c.Segs[SegCS] = 0xF000
	c.Segs[SegDS] = 0
	c.Segs[SegES] = 0
	c.Segs[SegSS] = 0
	c.PC = 0xFFF0
	c.Flags = flagsReservedOnes
	c.Halt = HaltNone
	c.Opcode = 0
	c.prefixSeg = -1
	c.prefixRep = 0
	c.segOverride = false
	c.MIP = 0
	c.modrmSet = false
	c.consecutiveBadOpcodes = 0
	c.Queue.Flush(physicalAddress(c.Segs[SegCS], c.PC))
}

// GetFlag reports whether the given flag bit is set.
func (c *CPU) GetFlag(mask uint16) bool { return c.Flags&mask != 0 }

// SetFlag sets or clears the given flag bit.
func (c *CPU) SetFlag(mask uint16, v bool) {
	if v {
		c.Flags |= mask
	} else {
		c.Flags &^= mask
	}
}

// IP returns the architectural instruction pointer: the BIU's fetch
// cursor (PC) minus however many bytes are still sitting in the
// prefetch queue unconsumed. External observers must see the
// architectural IP, never the fetch pointer; PC and the subtraction are
// both performed mod 2^16.
func (c *CPU) IP() uint16 {
	return c.PC - uint16(c.Queue.Len())
}

// physicalAddress computes the 20-bit physical address for seg:off.
// The PC/XT has no A20 gate; addresses past 0xFFFFF wrap like the
// 8088's 20 address lines do.
func physicalAddress(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & addressMask
}

// CS/DS/ES/SS convenience accessors used throughout ops_*.go.
func (c *CPU) CS() uint16 { return c.Segs[SegCS] }
func (c *CPU) DS() uint16 { return c.Segs[SegDS] }
func (c *CPU) ES() uint16 { return c.Segs[SegES] }
func (c *CPU) SS() uint16 { return c.Segs[SegSS] }

func (c *CPU) SetCS(v uint16) { c.Segs[SegCS] = v }
func (c *CPU) SetDS(v uint16) { c.Segs[SegDS] = v }
func (c *CPU) SetES(v uint16) { c.Segs[SegES] = v }
func (c *CPU) SetSS(v uint16) { c.Segs[SegSS] = v }

// 8/16-bit register accessors (AL/AH/AX style).
func (c *CPU) AL() byte     { return byte(c.AX) }
func (c *CPU) AH() byte     { return byte(c.AX >> 8) }
func (c *CPU) SetAL(v byte) { c.AX = (c.AX &^ 0xFF) | uint16(v) }
func (c *CPU) SetAH(v byte) { c.AX = (c.AX &^ 0xFF00) | uint16(v)<<8 }

func (c *CPU) BL() byte     { return byte(c.BX) }
func (c *CPU) BH() byte     { return byte(c.BX >> 8) }
func (c *CPU) SetBL(v byte) { c.BX = (c.BX &^ 0xFF) | uint16(v) }
func (c *CPU) SetBH(v byte) { c.BX = (c.BX &^ 0xFF00) | uint16(v)<<8 }

func (c *CPU) CL() byte     { return byte(c.CX) }
func (c *CPU) CH() byte     { return byte(c.CX >> 8) }
func (c *CPU) SetCL(v byte) { c.CX = (c.CX &^ 0xFF) | uint16(v) }
func (c *CPU) SetCH(v byte) { c.CX = (c.CX &^ 0xFF00) | uint16(v)<<8 }

func (c *CPU) DL() byte     { return byte(c.DX) }
func (c *CPU) DH() byte     { return byte(c.DX >> 8) }
func (c *CPU) SetDL(v byte) { c.DX = (c.DX &^ 0xFF) | uint16(v) }
func (c *CPU) SetDH(v byte) { c.DX = (c.DX &^ 0xFF00) | uint16(v)<<8 }

// reg8/setReg8 and reg16/setReg16 index registers the way a ModRM reg
// field does (0-7): AL/CL/DL/BL/AH/CH/DH/BH, AX/CX/DX/BX/SP/BP/SI/DI.
func (c *CPU) reg8(i int) byte {
	switch i & 7 {
	case 0:
		return c.AL()
	case 1:
		return c.CL()
	case 2:
		return c.DL()
	case 3:
		return c.BL()
	case 4:
		return c.AH()
	case 5:
		return c.CH()
	case 6:
		return c.DH()
	default:
		return c.BH()
	}
}

func (c *CPU) setReg8(i int, v byte) {
	switch i & 7 {
	case 0:
		c.SetAL(v)
	case 1:
		c.SetCL(v)
	case 2:
		c.SetDL(v)
	case 3:
		c.SetBL(v)
	case 4:
		c.SetAH(v)
	case 5:
		c.SetCH(v)
	case 6:
		c.SetDH(v)
	default:
		c.SetBH(v)
	}
}

func (c *CPU) reg16(i int) uint16 {
	switch i & 7 {
	case 0:
		return c.AX
	case 1:
		return c.CX
	case 2:
		return c.DX
	case 3:
		return c.BX
	case 4:
		return c.SP
	case 5:
		return c.BP
	case 6:
		return c.SI
	default:
		return c.DI
	}
}

func (c *CPU) setReg16(i int, v uint16) {
	switch i & 7 {
	case 0:
		c.AX = v
	case 1:
		c.CX = v
	case 2:
		c.DX = v
	case 3:
		c.BX = v
	case 4:
		c.SP = v
	case 5:
		c.BP = v
	case 6:
		c.SI = v
	default:
		c.DI = v
	}
}
