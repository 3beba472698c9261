// modrm.go - ModR/M effective-address decode for 16-bit addressing
//
// The 8086/8088's fixed eight-entry EA table, shared between execution
// (effectiveAddress) and disassembly (ea16Name) so the two can never
// disagree on how a bp+di-style form resolves or is spelled.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// ea16Entry names the register pair (or none) each non-mod-3 r/m value
// contributes, per the 8086 addressing-mode table.
type ea16Entry struct {
	base1, base2 int // -1 if unused; index into cpu.reg16 space (BX=3,BP=5,SI=6,DI=7)
	isBPSpecial  bool // r/m==6, mod==0: disp16 directly, no base register
}

var ea16Table = [8]ea16Entry{
	{base1: 3, base2: 6},              // 0: [BX+SI]
	{base1: 3, base2: 7},              // 1: [BX+DI]
	{base1: 5, base2: 6},              // 2: [BP+SI]
	{base1: 5, base2: 7},              // 3: [BP+DI]
	{base1: 6, base2: -1},             // 4: [SI]
	{base1: 7, base2: -1},             // 5: [DI]
	{base1: 5, base2: -1, isBPSpecial: true}, // 6: [BP] / disp16
	{base1: 3, base2: -1},             // 7: [BX]
}

// ModRM holds a decoded ModR/M byte.
type ModRM struct {
	Mod   byte
	Reg   int
	RM    int
	IsReg bool   // mod==3: RM names a register directly
	Disp  int16  // sign-extended displacement, 0/8/16-bit per mod
}

// decodeModRM reads one ModR/M byte (and its displacement bytes, if
// any) through the EU's fetch path, advancing PC/queue exactly as the
// real BIU would.
func decodeModRM(eu *EU) ModRM {
	b := eu.fetch8()
	m := ModRM{
		Mod: b >> 6,
		Reg: int(b>>3) & 7,
		RM:  int(b) & 7,
	}
	if m.Mod == 3 {
		m.IsReg = true
		return m
	}
	if m.Mod == 0 && m.RM == 6 {
		lo := eu.fetch8()
		hi := eu.fetch8()
		m.Disp = int16(uint16(lo) | uint16(hi)<<8)
		return m
	}
	switch m.Mod {
	case 1:
		m.Disp = int16(int8(eu.fetch8()))
	case 2:
		lo := eu.fetch8()
		hi := eu.fetch8()
		m.Disp = int16(uint16(lo) | uint16(hi)<<8)
	}
	return m
}

// effectiveOffset computes the 16-bit offset a decoded (non-register)
// ModRM names, along with its default segment: SS for BP-based forms,
// DS otherwise, per the 8086 architecture. LEA uses the offset alone;
// memory operands combine it with a segment in effectiveAddress.
func (eu *EU) effectiveOffset(m ModRM) (uint16, SegIndex) {
	e := ea16Table[m.RM]
	if e.isBPSpecial && m.Mod == 0 {
		return uint16(m.Disp), SegDS
	}
	off := eu.cpu.reg16(e.base1)
	defaultSeg := SegDS
	if e.base1 == 5 { // BP-based: default segment is SS
		defaultSeg = SegSS
	}
	if e.base2 >= 0 {
		off += eu.cpu.reg16(e.base2)
	}
	off += uint16(m.Disp)
	return off, defaultSeg
}

// effectiveAddress turns a decoded (non-register) ModRM into a 20-bit
// physical address, applying any active segment-override prefix.
func (eu *EU) effectiveAddress(m ModRM) uint32 {
	off, defaultSeg := eu.effectiveOffset(m)
	seg := eu.cpu.Segs[defaultSeg]
	if eu.cpu.segOverride {
		seg = eu.cpu.Segs[SegIndex(eu.cpu.prefixSeg)]
	}
	return physicalAddress(seg, off)
}

// ea16Name renders the same addressing form decodeModRM/effectiveAddress
// computed, for the disassembler (disasm.go): this is the single place
// that must spell "bp+di" (and friends) correctly, shared by both the
// interactive disassembler and the cycle trace's operand text.
func ea16Name(m ModRM) string {
	names := [8]string{"bx+si", "bx+di", "bp+si", "bp+di", "si", "di", "bp", "bx"}
	if m.Mod == 0 && m.RM == 6 {
		return "[" + hexImm16(uint16(m.Disp)) + "]"
	}
	base := names[m.RM]
	if m.Disp == 0 {
		return "[" + base + "]"
	}
	if m.Disp < 0 {
		return "[" + base + "-" + hexImm16(uint16(-m.Disp)) + "]"
	}
	return "[" + base + "+" + hexImm16(uint16(m.Disp)) + "]"
}
