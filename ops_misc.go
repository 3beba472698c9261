// ops_misc.go - PUSHF/POPF/LAHF/SAHF/XLAT/CBW/CWD, decimal-adjust, and I/O
//
// IN/OUT route through eu.bus.In/Out exactly as registered by
// pic.go/pit.go/ppi.go's PortDevice implementations (bus.go).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func init() {
	registerOp(0x9C, instr(14, func(eu *EU) { eu.push16(eu.cpu.Flags | flagsReservedOnes) })) // PUSHF
	registerOp(0x9D, instr(12, func(eu *EU) { // POPF
		eu.cpu.Flags = eu.pop16() | flagsReservedOnes
	}))
	registerOp(0x9E, instr(4, func(eu *EU) { // SAHF
		flags := uint16(eu.cpu.AH()) | (eu.cpu.Flags &^ 0xFF)
		eu.cpu.Flags = flags | flagsReservedOnes
	}))
	registerOp(0x9F, instr(4, func(eu *EU) { // LAHF
		eu.cpu.SetAH(byte(eu.cpu.Flags))
	}))

	registerOp(0x98, instr(2, func(eu *EU) { // CBW
		if eu.cpu.AL()&0x80 != 0 {
			eu.cpu.AX = uint16(eu.cpu.AL()) | 0xFF00
		} else {
			eu.cpu.AX = uint16(eu.cpu.AL())
		}
	}))
	registerOp(0x99, instr(5, func(eu *EU) { // CWD
		if eu.cpu.AX&0x8000 != 0 {
			eu.cpu.DX = 0xFFFF
		} else {
			eu.cpu.DX = 0
		}
	}))

	registerOp(0xD7, instr(11, func(eu *EU) { // XLAT
		addr := eu.dsOffset(eu.cpu.BX + uint16(eu.cpu.AL()))
		eu.cpu.SetAL(eu.readMem8(addr))
	}))

	registerOp(0x27, instr(4, func(eu *EU) { eu.cpu.SetAL(decimalAdjust(eu.cpu, eu.cpu.AL(), true, false)) }))  // DAA
	registerOp(0x2F, instr(4, func(eu *EU) { eu.cpu.SetAL(decimalAdjust(eu.cpu, eu.cpu.AL(), false, false)) })) // DAS
	registerOp(0x37, instr(4, func(eu *EU) { asciiAdjust(eu.cpu, true) }))                                     // AAA
	registerOp(0x3F, instr(4, func(eu *EU) { asciiAdjust(eu.cpu, false) }))                                    // AAS

	registerOp(0xD4, instr(83, func(eu *EU) { aam(eu, eu.fetch8()) }))     // AAM
	registerOp(0xD5, instr(60, func(eu *EU) { aad(eu.cpu, eu.fetch8()) })) // AAD

	// IN/OUT, fixed port (E4-E7) and DX-addressed (EC-EF)
	registerOp(0xE4, instr(10, func(eu *EU) { eu.cpu.SetAL(eu.bus.In(uint16(eu.fetch8()))) }))
	registerOp(0xE5, instr(10, func(eu *EU) {
		p := uint16(eu.fetch8())
		eu.cpu.AX = uint16(eu.bus.In(p)) | uint16(eu.bus.In(p+1))<<8
	}))
	registerOp(0xE6, instr(10, func(eu *EU) { eu.bus.Out(uint16(eu.fetch8()), eu.cpu.AL()) }))
	registerOp(0xE7, instr(10, func(eu *EU) {
		p := uint16(eu.fetch8())
		eu.bus.Out(p, byte(eu.cpu.AX))
		eu.bus.Out(p+1, byte(eu.cpu.AX>>8))
	}))
	registerOp(0xEC, instr(8, func(eu *EU) { eu.cpu.SetAL(eu.bus.In(eu.cpu.DX)) }))
	registerOp(0xED, instr(8, func(eu *EU) {
		eu.cpu.AX = uint16(eu.bus.In(eu.cpu.DX)) | uint16(eu.bus.In(eu.cpu.DX+1))<<8
	}))
	registerOp(0xEE, instr(8, func(eu *EU) { eu.bus.Out(eu.cpu.DX, eu.cpu.AL()) }))
	registerOp(0xEF, instr(8, func(eu *EU) {
		eu.bus.Out(eu.cpu.DX, byte(eu.cpu.AX))
		eu.bus.Out(eu.cpu.DX+1, byte(eu.cpu.AX>>8))
	}))

	registerOp(0xF1, instr(1, func(eu *EU) {})) // undocumented single-byte NOP-like alias

	// WAIT: stalls the bus until the 8087's TEST pin goes low. No
	// coprocessor is modeled, so TEST is always ready and this is a
	// plain no-op rather than BIOS POST code that executes it hanging
	// forever waiting on a chip that was never installed.
	registerOp(0x9B, instr(4, func(eu *EU) {}))

	// SALC: undocumented single-byte opcode, AL <- 0xFF if CF else 0x00.
	registerOp(0xD6, instr(2, func(eu *EU) {
		if eu.cpu.GetFlag(FlagCF) {
			eu.cpu.SetAL(0xFF)
		} else {
			eu.cpu.SetAL(0x00)
		}
	}))

	// ESC (D8-DF): 8087 coprocessor opcodes. No coprocessor is modeled,
	// so these only need to consume the ModRM byte (and any
	// displacement) a real bus snoop by an attached 8087 would also
	// have read, leaving CPU-visible state untouched.
	for op := byte(0xD8); op <= 0xDF; op++ {
		registerOp(op, instr(2, func(eu *EU) { decodeModRM(eu) }))
	}
}

// decimalAdjust implements DAA (add=true) / DAS (add=false) on AL.
func decimalAdjust(c *CPU, al byte, add bool, _ bool) byte {
	oldAL := al
	oldCF := c.GetFlag(FlagCF)
	af := c.GetFlag(FlagAF)
	cf := false

	if (al&0x0F) > 9 || af {
		if add {
			al += 6
		} else {
			al -= 6
		}
		af = true
	} else {
		af = false
	}
	if (oldAL > 0x99) || oldCF {
		if add {
			al += 0x60
		} else {
			al -= 0x60
		}
		cf = true
	}
	c.SetFlag(FlagAF, af)
	c.SetFlag(FlagCF, cf)
	c.SetFlag(FlagZF, al == 0)
	c.SetFlag(FlagSF, al&0x80 != 0)
	c.SetFlag(FlagPF, parity(al))
	return al
}

// asciiAdjust implements AAA (add=true) / AAS (add=false).
func asciiAdjust(c *CPU, add bool) {
	al, ah := c.AL(), c.AH()
	if (al&0x0F) > 9 || c.GetFlag(FlagAF) {
		if add {
			al += 6
			ah += 1
		} else {
			al -= 6
			ah -= 1
		}
		c.SetFlag(FlagAF, true)
		c.SetFlag(FlagCF, true)
	} else {
		c.SetFlag(FlagAF, false)
		c.SetFlag(FlagCF, false)
	}
	al &= 0x0F
	c.SetAL(al)
	c.SetAH(ah)
}

// aam divides AL by the immediate base. AAM 0 takes the divide-error
// vector, same as DIV with a zero divisor.
func aam(eu *EU, base byte) {
	if base == 0 {
		eu.serviceInterruptVector(0, true)
		return
	}
	c := eu.cpu
	al := c.AL()
	ah := al / base
	al = al % base
	c.SetAH(ah)
	c.SetAL(al)
	c.SetFlag(FlagZF, al == 0)
	c.SetFlag(FlagSF, al&0x80 != 0)
	c.SetFlag(FlagPF, parity(al))
}

func aad(c *CPU, base byte) {
	al := c.AL() + c.AH()*base
	c.SetAH(0)
	c.SetAL(al)
	c.SetFlag(FlagZF, al == 0)
	c.SetFlag(FlagSF, al&0x80 != 0)
	c.SetFlag(FlagPF, parity(al))
}
