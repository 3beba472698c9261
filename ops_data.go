// ops_data.go - MOV / PUSH / POP / XCHG / LEA / LDS / LES opcode handlers
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func init() {
	// MOV r/m8, r8
	registerOp(0x88, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.cpu.reg8(m.Reg)
		if m.IsReg {
			eu.cpu.setReg8(m.RM, v)
		} else {
			eu.writeMem8(eu.effectiveAddress(m), v)
		}
	}))
	// MOV r/m16, r16
	registerOp(0x89, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.cpu.reg16(m.Reg)
		if m.IsReg {
			eu.cpu.setReg16(m.RM, v)
		} else {
			eu.writeMem16(eu.effectiveAddress(m), v)
		}
	}))
	// MOV r8, r/m8
	registerOp(0x8A, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		var v byte
		if m.IsReg {
			v = eu.cpu.reg8(m.RM)
		} else {
			v = eu.readMem8(eu.effectiveAddress(m))
		}
		eu.cpu.setReg8(m.Reg, v)
	}))
	// MOV r16, r/m16
	registerOp(0x8B, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		var v uint16
		if m.IsReg {
			v = eu.cpu.reg16(m.RM)
		} else {
			v = eu.readMem16(eu.effectiveAddress(m))
		}
		eu.cpu.setReg16(m.Reg, v)
	}))
	// MOV r/m16, Sreg
	registerOp(0x8C, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.cpu.Segs[SegIndex(m.Reg&3)]
		if m.IsReg {
			eu.cpu.setReg16(m.RM, v)
		} else {
			eu.writeMem16(eu.effectiveAddress(m), v)
		}
	}))
	// LEA r16, m: the offset alone, no segment involved (a segment
	// override changes nothing here).
	registerOp(0x8D, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		if m.IsReg {
			return // undefined form; leave register untouched
		}
		off, _ := eu.effectiveOffset(m)
		eu.cpu.setReg16(m.Reg, off)
	}))

	// LES r16, m32: r16 <- [m], ES <- [m+2]
	registerOp(0xC4, instr(16, func(eu *EU) {
		m := decodeModRM(eu)
		if m.IsReg {
			return // undefined form
		}
		addr := eu.effectiveAddress(m)
		eu.cpu.setReg16(m.Reg, eu.readMem16(addr))
		eu.cpu.SetES(eu.readMem16(addr + 2))
	}))
	// LDS r16, m32: r16 <- [m], DS <- [m+2]
	registerOp(0xC5, instr(16, func(eu *EU) {
		m := decodeModRM(eu)
		if m.IsReg {
			return // undefined form
		}
		addr := eu.effectiveAddress(m)
		eu.cpu.setReg16(m.Reg, eu.readMem16(addr))
		eu.cpu.SetDS(eu.readMem16(addr + 2))
	}))
	// MOV Sreg, r/m16
	registerOp(0x8E, instr(2, func(eu *EU) {
		m := decodeModRM(eu)
		var v uint16
		if m.IsReg {
			v = eu.cpu.reg16(m.RM)
		} else {
			v = eu.readMem16(eu.effectiveAddress(m))
		}
		eu.cpu.Segs[SegIndex(m.Reg&3)] = v
	}))
	// POP r/m16
	registerOp(0x8F, instr(6, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.pop16()
		if m.IsReg {
			eu.cpu.setReg16(m.RM, v)
		} else {
			eu.writeMem16(eu.effectiveAddress(m), v)
		}
	}))

	// MOV AL/AX, moffs and moffs, AL/AX
	registerOp(0xA0, instr(10, func(eu *EU) { eu.cpu.SetAL(eu.readMem8(eu.dsOffset(eu.fetch16()))) }))
	registerOp(0xA1, instr(10, func(eu *EU) { eu.cpu.AX = eu.readMem16(eu.dsOffset(eu.fetch16())) }))
	registerOp(0xA2, instr(10, func(eu *EU) { eu.writeMem8(eu.dsOffset(eu.fetch16()), eu.cpu.AL()) }))
	registerOp(0xA3, instr(10, func(eu *EU) { eu.writeMem16(eu.dsOffset(eu.fetch16()), eu.cpu.AX) }))

	// MOV reg8, imm8 (B0-B7)
	for i := 0; i < 8; i++ {
		reg := i
		registerOp(byte(0xB0+i), instr(4, func(eu *EU) { eu.cpu.setReg8(reg, eu.fetch8()) }))
	}
	// MOV reg16, imm16 (B8-BF)
	for i := 0; i < 8; i++ {
		reg := i
		registerOp(byte(0xB8+i), instr(4, func(eu *EU) { eu.cpu.setReg16(reg, eu.fetch16()) }))
	}

	// MOV r/m8, imm8
	registerOp(0xC6, instr(4, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.fetch8()
		if m.IsReg {
			eu.cpu.setReg8(m.RM, v)
		} else {
			eu.writeMem8(eu.effectiveAddress(m), v)
		}
	}))
	// MOV r/m16, imm16
	registerOp(0xC7, instr(4, func(eu *EU) {
		m := decodeModRM(eu)
		v := eu.fetch16()
		if m.IsReg {
			eu.cpu.setReg16(m.RM, v)
		} else {
			eu.writeMem16(eu.effectiveAddress(m), v)
		}
	}))

	// PUSH reg16 (50-57)
	for i := 0; i < 8; i++ {
		reg := i
		registerOp(byte(0x50+i), instr(15, func(eu *EU) { eu.push16(eu.cpu.reg16(reg)) }))
	}
	// POP reg16 (58-5F)
	for i := 0; i < 8; i++ {
		reg := i
		registerOp(byte(0x58+i), instr(12, func(eu *EU) { eu.cpu.setReg16(reg, eu.pop16()) }))
	}
	registerOp(0x06, instr(14, func(eu *EU) { eu.push16(eu.cpu.ES()) }))
	registerOp(0x07, instr(12, func(eu *EU) { eu.cpu.SetES(eu.pop16()) }))
	registerOp(0x0E, instr(14, func(eu *EU) { eu.push16(eu.cpu.CS()) }))
	// POP CS: documented on the 8086/8088 (the slot was repurposed as
	// the two-byte opcode escape starting at the 80286), kept here
	// since it is a real, reachable instruction on this CPU.
	registerOp(0x0F, instr(12, func(eu *EU) { eu.cpu.SetCS(eu.pop16()) }))
	registerOp(0x16, instr(14, func(eu *EU) { eu.push16(eu.cpu.SS()) }))
	registerOp(0x17, instr(12, func(eu *EU) { eu.cpu.SetSS(eu.pop16()) }))
	registerOp(0x1E, instr(14, func(eu *EU) { eu.push16(eu.cpu.DS()) }))
	registerOp(0x1F, instr(12, func(eu *EU) { eu.cpu.SetDS(eu.pop16()) }))

	// XCHG AX, reg16 (91-97); 90 is NOP (XCHG AX,AX)
	for i := 1; i < 8; i++ {
		reg := i
		registerOp(byte(0x90+i), instr(3, func(eu *EU) {
			t := eu.cpu.AX
			eu.cpu.AX = eu.cpu.reg16(reg)
			eu.cpu.setReg16(reg, t)
		}))
	}
	registerOp(0x90, instr(3, func(eu *EU) {}))

	// XCHG r/m8, r8 and r/m16, r16
	registerOp(0x86, instr(3, func(eu *EU) {
		m := decodeModRM(eu)
		a := eu.cpu.reg8(m.Reg)
		var b byte
		if m.IsReg {
			b = eu.cpu.reg8(m.RM)
			eu.cpu.setReg8(m.RM, a)
		} else {
			addr := eu.effectiveAddress(m)
			b = eu.readMem8(addr)
			eu.writeMem8(addr, a)
		}
		eu.cpu.setReg8(m.Reg, b)
	}))
	registerOp(0x87, instr(3, func(eu *EU) {
		m := decodeModRM(eu)
		a := eu.cpu.reg16(m.Reg)
		var b uint16
		if m.IsReg {
			b = eu.cpu.reg16(m.RM)
			eu.cpu.setReg16(m.RM, a)
		} else {
			addr := eu.effectiveAddress(m)
			b = eu.readMem16(addr)
			eu.writeMem16(addr, a)
		}
		eu.cpu.setReg16(m.Reg, b)
	}))
}

// dsOffset applies the active segment override (default DS) to a plain
// 16-bit offset, used by the A0-A3 moffs forms.
func (eu *EU) dsOffset(off uint16) uint32 {
	seg := eu.cpu.Segs[SegDS]
	if eu.cpu.segOverride {
		seg = eu.cpu.Segs[SegIndex(eu.cpu.prefixSeg)]
	}
	return physicalAddress(seg, off)
}
