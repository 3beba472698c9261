// ops_string.go - MOVS/STOS/LODS/CMPS/SCAS with REP/REPE/REPNE prefixes
//
// REP state lives in cpu.prefixRep (set by eu.applyPrefix from the
// F2/F3 prefix bytes), and a repeating string op re-arms its own
// microcode program one iteration at a time rather than being unrolled
// into CX separate dispatches.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func init() {
	// MOVSB / MOVSW (0xA4/0xA5)
	registerMovs := func(opcode byte, width int) {
		registerOp(opcode, instr(17, func(eu *EU) { runRep(eu, width, opKindMovs) }))
	}
	registerMovs(0xA4, 1)
	registerMovs(0xA5, 2)

	registerOp(0xA6, instr(22, func(eu *EU) { runRep(eu, 1, opKindCmps) })) // CMPSB
	registerOp(0xA7, instr(22, func(eu *EU) { runRep(eu, 2, opKindCmps) })) // CMPSW

	registerOp(0xAA, instr(11, func(eu *EU) { runRep(eu, 1, opKindStos) })) // STOSB
	registerOp(0xAB, instr(11, func(eu *EU) { runRep(eu, 2, opKindStos) })) // STOSW

	registerOp(0xAC, instr(13, func(eu *EU) { runRep(eu, 1, opKindLods) })) // LODSB
	registerOp(0xAD, instr(13, func(eu *EU) { runRep(eu, 2, opKindLods) })) // LODSW

	registerOp(0xAE, instr(15, func(eu *EU) { runRep(eu, 1, opKindScas) })) // SCASB
	registerOp(0xAF, instr(15, func(eu *EU) { runRep(eu, 2, opKindScas) })) // SCASW
}

type stringOpKind int

const (
	opKindMovs stringOpKind = iota
	opKindCmps
	opKindStos
	opKindLods
	opKindScas
)

// runRep executes one string-op iteration and, if a REP-family prefix
// is active, re-arms the EU's microprogram so the same opcode runs
// again next instruction boundary until CX exhausts or (for CMPS/SCAS
// under REPE/REPNE) the zero flag no longer matches the prefix.
func runRep(eu *EU, width int, kind stringOpKind) {
	rep := eu.cpu.prefixRep
	if rep != 0 && eu.cpu.CX == 0 {
		return
	}

	srcSeg := eu.cpu.Segs[SegDS]
	if eu.cpu.segOverride {
		srcSeg = eu.cpu.Segs[SegIndex(eu.cpu.prefixSeg)]
	}
	dstSeg := eu.cpu.Segs[SegES]

	var zfMatch bool = true
	switch kind {
	case opKindMovs:
		srcAddr := physicalAddress(srcSeg, eu.cpu.SI)
		dstAddr := physicalAddress(dstSeg, eu.cpu.DI)
		if width == 1 {
			eu.writeMem8(dstAddr, eu.readMem8(srcAddr))
		} else {
			eu.writeMem16(dstAddr, eu.readMem16(srcAddr))
		}
	case opKindStos:
		dstAddr := physicalAddress(dstSeg, eu.cpu.DI)
		if width == 1 {
			eu.writeMem8(dstAddr, eu.cpu.AL())
		} else {
			eu.writeMem16(dstAddr, eu.cpu.AX)
		}
	case opKindLods:
		srcAddr := physicalAddress(srcSeg, eu.cpu.SI)
		if width == 1 {
			eu.cpu.SetAL(eu.readMem8(srcAddr))
		} else {
			eu.cpu.AX = eu.readMem16(srcAddr)
		}
	case opKindCmps:
		srcAddr := physicalAddress(srcSeg, eu.cpu.SI)
		dstAddr := physicalAddress(dstSeg, eu.cpu.DI)
		if width == 1 {
			a, b := eu.readMem8(srcAddr), eu.readMem8(dstAddr)
			eu.cpu.sub8(a, b, false)
		} else {
			a, b := eu.readMem16(srcAddr), eu.readMem16(dstAddr)
			eu.cpu.sub16(a, b, false)
		}
		zfMatch = eu.cpu.GetFlag(FlagZF)
	case opKindScas:
		dstAddr := physicalAddress(dstSeg, eu.cpu.DI)
		if width == 1 {
			eu.cpu.sub8(eu.cpu.AL(), eu.readMem8(dstAddr), false)
		} else {
			eu.cpu.sub16(eu.cpu.AX, eu.readMem16(dstAddr), false)
		}
		zfMatch = eu.cpu.GetFlag(FlagZF)
	}

	step := int16(width)
	if eu.cpu.GetFlag(FlagDF) {
		step = -step
	}
	if kind == opKindMovs || kind == opKindCmps || kind == opKindLods {
		eu.cpu.SI = uint16(int32(eu.cpu.SI) + int32(step))
	}
	if kind == opKindMovs || kind == opKindCmps || kind == opKindStos || kind == opKindScas {
		eu.cpu.DI = uint16(int32(eu.cpu.DI) + int32(step))
	}

	if rep == 0 {
		return
	}
	eu.cpu.CX--
	cont := eu.cpu.CX != 0
	if rep == 1 && (kind == opKindCmps || kind == opKindScas) {
		cont = cont && zfMatch // REPE/REPZ: continue while equal
	} else if rep == 2 && (kind == opKindCmps || kind == opKindScas) {
		cont = cont && !zfMatch // REPNE/REPNZ: continue while not equal
	}
	if cont {
		// Re-arm the same opcode for another iteration. Prefix state
		// (prefixRep/segOverride) survives because eu.inLead keeps
		// clearPrefixState from firing until the program fully drains.
		eu.program = MicroProgram{{Kind: StepExecute, Run: func(eu *EU) { runRep(eu, width, kind) }}}
		eu.inLead = true
		return
	}
	// This was the last iteration (CX exhausted or the REPE/REPNE zero-flag
	// condition broke the loop): let eu.Tick()'s end-of-instruction
	// bookkeeping fire on this cycle instead of being suppressed forever,
	// which would otherwise both undercount InstructionCount and leak
	// prefixRep/segOverride into the next decoded opcode.
	eu.inLead = false
}
