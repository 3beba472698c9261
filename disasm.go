// disasm.go - static 8088 disassembler for trace output and the debug service
//
// Shares modrm.go's ea16Name so the normalized "bp+di+DISP" spelling is
// identical whether the caller is this disassembler or the cycle
// trace's operand column. Reads bytes directly off the bus rather than
// through the EU's fetch path, so disassembling ahead of IP never
// perturbs the prefetch queue or CS:IP.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "fmt"

var reg8Names = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var reg16Names = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var segNames = [4]string{"es", "cs", "ss", "ds"}

func hexImm16(v uint16) string { return fmt.Sprintf("0x%04X", v) }
func hexImm8(v byte) string    { return fmt.Sprintf("0x%02X", v) }

// DisasmInstruction is one decoded instruction: its byte length (for
// advancing to the next one) and normalized text.
type DisasmInstruction struct {
	Length int
	Text   string
	CS, IP uint16
}

// Disassembler reads directly from a Bus, independent of any live EU,
// so the debug service and trace.go can disassemble ahead of or behind
// the CPU's actual fetch cursor without disturbing it.
type Disassembler struct {
	bus *Bus
}

func NewDisassembler(bus *Bus) *Disassembler {
	return &Disassembler{bus: bus}
}

type byteCursor struct {
	bus  *Bus
	seg  uint16
	off  uint16
	n    int
}

func (b *byteCursor) fetch8() byte {
	v := b.bus.ReadMem8(physicalAddress(b.seg, b.off))
	b.off++
	b.n++
	return v
}

func (b *byteCursor) fetch16() uint16 {
	lo := b.fetch8()
	hi := b.fetch8()
	return uint16(lo) | uint16(hi)<<8
}

func (b *byteCursor) modrm() ModRM {
	raw := b.fetch8()
	m := ModRM{Mod: raw >> 6, Reg: int(raw>>3) & 7, RM: int(raw) & 7}
	if m.Mod == 3 {
		m.IsReg = true
		return m
	}
	if m.Mod == 0 && m.RM == 6 {
		m.Disp = int16(b.fetch16())
		return m
	}
	switch m.Mod {
	case 1:
		m.Disp = int16(int8(b.fetch8()))
	case 2:
		m.Disp = int16(b.fetch16())
	}
	return m
}

func rmText(m ModRM, wide bool) string {
	if m.IsReg {
		if wide {
			return reg16Names[m.RM]
		}
		return reg8Names[m.RM]
	}
	return ea16Name(m)
}

// Decode disassembles exactly one instruction starting at cs:ip,
// returning its length in bytes and normalized mnemonic text. This
// table covers the common opcodes traces actually want to read;
// anything outside it (real and executable, just not mnemonic-decoded
// here) renders as a "db 0xNN" byte directive instead.
func (d *Disassembler) Decode(cs, ip uint16) DisasmInstruction {
	cur := &byteCursor{bus: d.bus, seg: cs, off: ip}
	text := decodeOneInstruction(cur)
	return DisasmInstruction{Length: cur.n, Text: text, CS: cs, IP: ip}
}

func decodeOneInstruction(cur *byteCursor) string {
	prefix := ""
	op := cur.fetch8()
	for {
		switch op {
		case 0x26:
			prefix += "es: "
		case 0x2E:
			prefix += "cs: "
		case 0x36:
			prefix += "ss: "
		case 0x3E:
			prefix += "ds: "
		case 0xF2:
			prefix += "repne "
		case 0xF3:
			prefix += "rep "
		case 0xF0:
			prefix += "lock "
		default:
			return prefix + decodeOpcode(cur, op)
		}
		op = cur.fetch8()
	}
}

func decodeOpcode(cur *byteCursor, op byte) string {
	switch {
	case op >= 0x70 && op <= 0x7F:
		rel := int8(cur.fetch8())
		return fmt.Sprintf("j%s %s", jccNames[op-0x70], hexImm16(uint16(int16(rel))))
	case op >= 0xB0 && op <= 0xB7:
		return fmt.Sprintf("mov %s, %s", reg8Names[op-0xB0], hexImm8(cur.fetch8()))
	case op >= 0xB8 && op <= 0xBF:
		return fmt.Sprintf("mov %s, %s", reg16Names[op-0xB8], hexImm16(cur.fetch16()))
	case op >= 0x50 && op <= 0x57:
		return "push " + reg16Names[op-0x50]
	case op >= 0x58 && op <= 0x5F:
		return "pop " + reg16Names[op-0x58]
	case op >= 0x91 && op <= 0x97:
		return "xchg ax, " + reg16Names[op-0x90]
	}

	switch op {
	case 0x90:
		return "nop"
	case 0x88, 0x89, 0x8A, 0x8B:
		wide := op == 0x89 || op == 0x8B
		m := cur.modrm()
		reg := reg8Names[m.Reg]
		if wide {
			reg = reg16Names[m.Reg]
		}
		rm := rmText(m, wide)
		if op == 0x88 || op == 0x89 {
			return fmt.Sprintf("mov %s, %s", rm, reg)
		}
		return fmt.Sprintf("mov %s, %s", reg, rm)
	case 0x8D:
		m := cur.modrm()
		return fmt.Sprintf("lea %s, %s", reg16Names[m.Reg], rmText(m, true))
	case 0xC4:
		m := cur.modrm()
		return fmt.Sprintf("les %s, %s", reg16Names[m.Reg], rmText(m, true))
	case 0xC5:
		m := cur.modrm()
		return fmt.Sprintf("lds %s, %s", reg16Names[m.Reg], rmText(m, true))
	case 0xC6:
		m := cur.modrm()
		rm := rmText(m, false)
		return fmt.Sprintf("mov byte %s, %s", rm, hexImm8(cur.fetch8()))
	case 0xC7:
		m := cur.modrm()
		rm := rmText(m, true)
		return fmt.Sprintf("mov word %s, %s", rm, hexImm16(cur.fetch16()))
	case 0xE8:
		rel := int16(cur.fetch16())
		return fmt.Sprintf("call %s", hexImm16(uint16(rel)))
	case 0xE9:
		rel := int16(cur.fetch16())
		return fmt.Sprintf("jmp %s", hexImm16(uint16(rel)))
	case 0xEB:
		rel := int8(cur.fetch8())
		return fmt.Sprintf("jmp short %s", hexImm16(uint16(int16(rel))))
	case 0xC3:
		return "ret"
	case 0xCB:
		return "retf"
	case 0xC2:
		return fmt.Sprintf("ret %s", hexImm16(cur.fetch16()))
	case 0xCC:
		return "int3"
	case 0xCD:
		return fmt.Sprintf("int %s", hexImm8(cur.fetch8()))
	case 0xCF:
		return "iret"
	case 0xF4:
		return "hlt"
	case 0xFA:
		return "cli"
	case 0xFB:
		return "sti"
	case 0xFC:
		return "cld"
	case 0xFD:
		return "std"
	case 0xF8:
		return "clc"
	case 0xF9:
		return "stc"
	case 0xA4:
		return "movsb"
	case 0xA5:
		return "movsw"
	case 0xAA:
		return "stosb"
	case 0xAB:
		return "stosw"
	case 0xAC:
		return "lodsb"
	case 0xAD:
		return "lodsw"
	case 0xAE:
		return "scasb"
	case 0xAF:
		return "scasw"
	case 0xA6:
		return "cmpsb"
	case 0xA7:
		return "cmpsw"
	case 0x9C:
		return "pushf"
	case 0x9D:
		return "popf"
	}

	if op >= 0x00 && op <= 0x3D {
		if name, ok := aluMnemonic(op); ok {
			return decodeAluForm(cur, op, name)
		}
	}
	if op == 0x80 || op == 0x81 || op == 0x83 {
		return decodeGrp1(cur, op)
	}
	if op == 0xF6 || op == 0xF7 {
		return decodeGrp3(cur, op == 0xF7)
	}
	if op == 0xFF {
		return decodeGrp5Text(cur)
	}
	return fmt.Sprintf("db %s", hexImm8(op))
}

var aluNames = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

func aluMnemonic(op byte) (string, bool) {
	group := op / 8
	form := op % 8
	if group > 7 || form > 5 {
		return "", false
	}
	return aluNames[group], true
}

func decodeAluForm(cur *byteCursor, op byte, name string) string {
	form := op % 8
	switch form {
	case 0, 1:
		wide := form == 1
		m := cur.modrm()
		reg := reg8Names[m.Reg]
		if wide {
			reg = reg16Names[m.Reg]
		}
		return fmt.Sprintf("%s %s, %s", name, rmText(m, wide), reg)
	case 2, 3:
		wide := form == 3
		m := cur.modrm()
		reg := reg8Names[m.Reg]
		if wide {
			reg = reg16Names[m.Reg]
		}
		return fmt.Sprintf("%s %s, %s", name, reg, rmText(m, wide))
	case 4:
		return fmt.Sprintf("%s al, %s", name, hexImm8(cur.fetch8()))
	default: // 5
		return fmt.Sprintf("%s ax, %s", name, hexImm16(cur.fetch16()))
	}
}

func decodeGrp1(cur *byteCursor, op byte) string {
	m := cur.modrm()
	wide := op != 0x80
	rm := rmText(m, wide)
	name := aluNames[m.Reg]
	if op == 0x83 {
		imm := int8(cur.fetch8())
		return fmt.Sprintf("%s %s, %s", name, rm, hexImm16(uint16(int16(imm))))
	}
	if wide {
		return fmt.Sprintf("%s %s, %s", name, rm, hexImm16(cur.fetch16()))
	}
	return fmt.Sprintf("%s %s, %s", name, rm, hexImm8(cur.fetch8()))
}

var grp3Names = [8]string{"test", "test", "not", "neg", "mul", "imul", "div", "idiv"}

func decodeGrp3(cur *byteCursor, wide bool) string {
	m := cur.modrm()
	rm := rmText(m, wide)
	name := grp3Names[m.Reg]
	if m.Reg <= 1 {
		if wide {
			return fmt.Sprintf("%s %s, %s", name, rm, hexImm16(cur.fetch16()))
		}
		return fmt.Sprintf("%s %s, %s", name, rm, hexImm8(cur.fetch8()))
	}
	return fmt.Sprintf("%s %s", name, rm)
}

var grp5Names = [8]string{"inc", "dec", "call", "call far", "jmp", "jmp far", "push", "db 0xFF"}

func decodeGrp5Text(cur *byteCursor) string {
	m := cur.modrm()
	rm := rmText(m, true)
	return fmt.Sprintf("%s %s", grp5Names[m.Reg], rm)
}
