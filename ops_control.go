// ops_control.go - Jcc/JMP/CALL/RET/LOOP/INT/IRET and flag-bit opcodes
//
// Every control transfer routes through eu.jump/eu.jumpSameSeg so the
// prefetch queue is flushed exactly once per transfer, and INT/INTO
// share eu.serviceInterruptVector with hardware INTR so software and
// hardware interrupts cannot drift apart in their IVT dispatch.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

var jccNames = [16]string{"O", "NO", "B", "NB", "Z", "NZ", "BE", "A", "S", "NS", "P", "NP", "L", "GE", "LE", "G"}

func condTrue(c *CPU, cond int) bool {
	switch cond & 0xF {
	case 0x0:
		return c.GetFlag(FlagOF)
	case 0x1:
		return !c.GetFlag(FlagOF)
	case 0x2:
		return c.GetFlag(FlagCF)
	case 0x3:
		return !c.GetFlag(FlagCF)
	case 0x4:
		return c.GetFlag(FlagZF)
	case 0x5:
		return !c.GetFlag(FlagZF)
	case 0x6:
		return c.GetFlag(FlagCF) || c.GetFlag(FlagZF)
	case 0x7:
		return !c.GetFlag(FlagCF) && !c.GetFlag(FlagZF)
	case 0x8:
		return c.GetFlag(FlagSF)
	case 0x9:
		return !c.GetFlag(FlagSF)
	case 0xA:
		return c.GetFlag(FlagPF)
	case 0xB:
		return !c.GetFlag(FlagPF)
	case 0xC:
		return c.GetFlag(FlagSF) != c.GetFlag(FlagOF)
	case 0xD:
		return c.GetFlag(FlagSF) == c.GetFlag(FlagOF)
	case 0xE:
		return c.GetFlag(FlagZF) || (c.GetFlag(FlagSF) != c.GetFlag(FlagOF))
	default: // 0xF
		return !c.GetFlag(FlagZF) && (c.GetFlag(FlagSF) == c.GetFlag(FlagOF))
	}
}

func init() {
	for cc := 0; cc < 16; cc++ {
		cond := cc
		registerOp(byte(0x70+cc), instr(4, func(eu *EU) {
			rel := int8(eu.fetch8())
			if condTrue(eu.cpu, cond) {
				eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
			}
		}))
	}

	registerOp(0xE0, instr(5, func(eu *EU) { // LOOPNZ
		rel := int8(eu.fetch8())
		eu.cpu.CX--
		if eu.cpu.CX != 0 && !eu.cpu.GetFlag(FlagZF) {
			eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
		}
	}))
	registerOp(0xE1, instr(5, func(eu *EU) { // LOOPZ
		rel := int8(eu.fetch8())
		eu.cpu.CX--
		if eu.cpu.CX != 0 && eu.cpu.GetFlag(FlagZF) {
			eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
		}
	}))
	registerOp(0xE2, instr(5, func(eu *EU) { // LOOP
		rel := int8(eu.fetch8())
		eu.cpu.CX--
		if eu.cpu.CX != 0 {
			eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
		}
	}))
	registerOp(0xE3, instr(6, func(eu *EU) { // JCXZ
		rel := int8(eu.fetch8())
		if eu.cpu.CX == 0 {
			eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
		}
	}))

	registerOp(0xEB, instr(15, func(eu *EU) { // JMP short
		rel := int8(eu.fetch8())
		eu.jumpSameSeg(eu.cpu.IP() + uint16(int16(rel)))
	}))
	registerOp(0xE9, instr(15, func(eu *EU) { // JMP near
		rel := int16(eu.fetch16())
		eu.jumpSameSeg(eu.cpu.IP() + uint16(rel))
	}))
	registerOp(0xEA, instr(15, func(eu *EU) { // JMP far
		ip := eu.fetch16()
		cs := eu.fetch16()
		eu.jump(cs, ip)
	}))

	registerOp(0xE8, instr(19, func(eu *EU) { // CALL near
		rel := int16(eu.fetch16())
		retIP := eu.cpu.IP()
		target := retIP + uint16(rel)
		eu.push16(retIP)
		if eu.stack != nil {
			eu.stack.Push(eu.cpu.CS(), retIP)
		}
		eu.jumpSameSeg(target)
	}))
	registerOp(0x9A, instr(28, func(eu *EU) { // CALL far
		ip := eu.fetch16()
		cs := eu.fetch16()
		eu.push16(eu.cpu.CS())
		eu.push16(eu.cpu.IP())
		if eu.stack != nil {
			eu.stack.Push(eu.cpu.CS(), eu.cpu.IP())
		}
		eu.jump(cs, ip)
	}))

	retNearImm := func(eu *EU) {
		n := eu.fetch16()
		ip := eu.pop16()
		eu.cpu.SP += n
		if eu.stack != nil {
			eu.stack.Pop()
		}
		eu.jumpSameSeg(ip)
	}
	retNear := func(eu *EU) {
		ip := eu.pop16()
		if eu.stack != nil {
			eu.stack.Pop()
		}
		eu.jumpSameSeg(ip)
	}
	retFarImm := func(eu *EU) {
		n := eu.fetch16()
		ip := eu.pop16()
		cs := eu.pop16()
		eu.cpu.SP += n
		if eu.stack != nil {
			eu.stack.Pop()
		}
		eu.jump(cs, ip)
	}
	retFar := func(eu *EU) {
		ip := eu.pop16()
		cs := eu.pop16()
		if eu.stack != nil {
			eu.stack.Pop()
		}
		eu.jump(cs, ip)
	}
	registerOp(0xC2, instr(20, retNearImm)) // RET near imm16
	registerOp(0xC3, instr(16, retNear))    // RET near
	registerOp(0xCA, instr(26, retFarImm))  // RETF imm16
	registerOp(0xCB, instr(26, retFar))     // RETF
	// C0/C1 and C8/C9 are undocumented aliases of C2/C3 and CA/CB on the
	// 8086/8088; the 80186 reassigns them to Grp2-imm and ENTER/LEAVE.
	registerOp(0xC0, instr(20, retNearImm))
	registerOp(0xC1, instr(16, retNear))
	registerOp(0xC8, instr(26, retFarImm))
	registerOp(0xC9, instr(26, retFar))

	registerOp(0xCC, instr(52, func(eu *EU) { eu.serviceInterruptVector(3, true) }))   // INT3
	registerOp(0xCD, instr(51, func(eu *EU) { eu.serviceInterruptVector(eu.fetch8(), true) })) // INT imm8
	registerOp(0xCE, instr(53, func(eu *EU) { // INTO
		if eu.cpu.GetFlag(FlagOF) {
			eu.serviceInterruptVector(4, true)
		}
	}))
	registerOp(0xCF, instr(24, func(eu *EU) { // IRET
		ip := eu.pop16()
		cs := eu.pop16()
		flags := eu.pop16()
		eu.cpu.Flags = flags | flagsReservedOnes
		if eu.stack != nil {
			eu.stack.Pop()
		}
		eu.jump(cs, ip)
	}))

	// HLT is a single-step program so the instruction completes (and
	// counts) on the same clock that parks the CPU; every cycle after
	// that is consumed by the halt state itself.
	registerOp(0xF4, instr(1, func(eu *EU) {
		eu.cpu.Halt = HaltWaitingForInterrupt
		if !eu.cpu.GetFlag(FlagIF) {
			// With interrupts disabled this halt can never resume; hand
			// it to the configured on_halt policy instead of spinning.
			eu.triggerHalt()
		}
	}))
	registerOp(0xF5, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagCF, !eu.cpu.GetFlag(FlagCF)) })) // CMC
	registerOp(0xF8, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagCF, false) }))                    // CLC
	registerOp(0xF9, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagCF, true) }))                     // STC
	registerOp(0xFA, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagIF, false) }))                    // CLI
	registerOp(0xFB, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagIF, true) }))                     // STI
	registerOp(0xFC, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagDF, false) }))                    // CLD
	registerOp(0xFD, instr(2, func(eu *EU) { eu.cpu.SetFlag(FlagDF, true) }))                     // STD

	// Grp5 (FF): INC/DEC r/m16, CALL/JMP indirect (near+far), PUSH r/m16
	registerOp(0xFF, instr(2, func(eu *EU) { grp5(eu) }))
}

func grp5(eu *EU) {
	m := decodeModRM(eu)
	readv := func() uint16 {
		if m.IsReg {
			return eu.cpu.reg16(m.RM)
		}
		return eu.readMem16(eu.effectiveAddress(m))
	}
	switch m.Reg {
	case 0: // INC
		cf := eu.cpu.GetFlag(FlagCF)
		writeRM16(eu, m, eu.cpu.add16(readv(), 1, false))
		eu.cpu.SetFlag(FlagCF, cf)
	case 1: // DEC
		cf := eu.cpu.GetFlag(FlagCF)
		writeRM16(eu, m, eu.cpu.sub16(readv(), 1, false))
		eu.cpu.SetFlag(FlagCF, cf)
	case 2: // CALL near indirect
		target := readv()
		retIP := eu.cpu.IP()
		eu.push16(retIP)
		if eu.stack != nil {
			eu.stack.Push(eu.cpu.CS(), retIP)
		}
		eu.jumpSameSeg(target)
	case 3: // CALL far indirect (m must be memory)
		addr := eu.effectiveAddress(m)
		ip := eu.readMem16(addr)
		cs := eu.readMem16(addr + 2)
		eu.push16(eu.cpu.CS())
		eu.push16(eu.cpu.IP())
		if eu.stack != nil {
			eu.stack.Push(eu.cpu.CS(), eu.cpu.IP())
		}
		eu.jump(cs, ip)
	case 4: // JMP near indirect
		eu.jumpSameSeg(readv())
	case 5: // JMP far indirect
		addr := eu.effectiveAddress(m)
		ip := eu.readMem16(addr)
		cs := eu.readMem16(addr + 2)
		eu.jump(cs, ip)
	case 6: // PUSH r/m16
		eu.push16(readv())
	}
}
