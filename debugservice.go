// debugservice.go - INT 0xFC debug-service hook, backed by an embedded Lua VM
//
// Guest software raises INT 0xFC with a small function-number/argument
// protocol in AX/BX/CX/DX; this service hands the registers to a Lua
// script so debug tooling (breakpoint scripts, register dumps, memory
// watches) can be written without recompiling the emulator.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// DebugService wires INT 0xFC to an embedded Lua state. The
// service_interrupt config option controls whether this is installed at
// all; guest software that wants 0xFC for its own purposes requires
// disabling it.
type DebugService struct {
	cpu   *CPU
	bus   *Bus
	stack *CallStackShadow
	L     *lua.LState

	onExit func()
}

func NewDebugService(cpu *CPU, bus *Bus, stack *CallStackShadow) *DebugService {
	d := &DebugService{cpu: cpu, bus: bus, stack: stack, L: lua.NewState()}
	d.registerBuiltins()
	return d
}

// Close releases the Lua VM; callers should defer this once the service
// is no longer needed (Machine.PowerOff calls it).
func (d *DebugService) Close() {
	d.L.Close()
}

// LoadScript compiles and runs a debug script once, typically to
// install breakpoint/watch callbacks via the registered builtins below.
func (d *DebugService) LoadScript(path string) error {
	return d.L.DoFile(path)
}

// Handle is eu.go's serviceInterrupt hook: AX selects the function,
// BX/CX/DX are its arguments, matching the convention most DOS-era
// debug TSRs used for their own INT dispatch.
func (d *DebugService) Handle(vector byte) {
	fn := d.cpu.AX
	switch fn {
	case 0x0001: // dump registers to stderr
		d.dumpRegisters()
	case 0x0002: // read a byte from DS:BX, return it in AL
		addr := physicalAddress(d.cpu.DS(), d.cpu.BX)
		d.cpu.SetAL(d.bus.ReadMem8(addr))
	case 0x0003: // call into the loaded Lua script's on_debug_interrupt(bx, cx, dx)
		d.callScriptHook(d.cpu.BX, d.cpu.CX, d.cpu.DX)
	case 0x00FF: // request emulator exit
		if d.onExit != nil {
			d.onExit()
		}
	default:
		logf("debug service: unknown function 0x%04X", fn)
	}
}

// SetExitHook lets machine.go learn about AX=0x00FF requests without
// this file importing machine.go's types.
func (d *DebugService) SetExitHook(fn func()) { d.onExit = fn }

func (d *DebugService) dumpRegisters() {
	logf("AX=%04X BX=%04X CX=%04X DX=%04X SI=%04X DI=%04X SP=%04X BP=%04X CS:IP=%04X:%04X FLAGS=%04X",
		d.cpu.AX, d.cpu.BX, d.cpu.CX, d.cpu.DX, d.cpu.SI, d.cpu.DI, d.cpu.SP, d.cpu.BP, d.cpu.CS(), d.cpu.IP(), d.cpu.Flags)
}

func (d *DebugService) callScriptHook(bx, cx, dx uint16) {
	fnVal := d.L.GetGlobal("on_debug_interrupt")
	if fnVal.Type() != lua.LTFunction {
		return
	}
	if err := d.L.CallByParam(lua.P{Fn: fnVal, NRet: 0, Protect: true},
		lua.LNumber(bx), lua.LNumber(cx), lua.LNumber(dx)); err != nil {
		logf("debug service: script error: %v", err)
	}
}

// registerBuiltins exposes a small set of Go functions to Lua: reading
// CPU registers and bus memory, so a loaded script can inspect machine
// state without this module growing a bespoke scripting language of
// its own.
func (d *DebugService) registerBuiltins() {
	d.L.SetGlobal("peek", d.L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckNumber(1))
		L.Push(lua.LNumber(d.bus.ReadMem8(addr)))
		return 1
	}))
	d.L.SetGlobal("reg", d.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LNumber(d.registerValue(name)))
		return 1
	}))
	d.L.SetGlobal("log", d.L.NewFunction(func(L *lua.LState) int {
		logf("%s", fmt.Sprint(L.CheckString(1)))
		return 0
	}))
}

func (d *DebugService) registerValue(name string) uint16 {
	switch name {
	case "ax":
		return d.cpu.AX
	case "bx":
		return d.cpu.BX
	case "cx":
		return d.cpu.CX
	case "dx":
		return d.cpu.DX
	case "si":
		return d.cpu.SI
	case "di":
		return d.cpu.DI
	case "sp":
		return d.cpu.SP
	case "bp":
		return d.cpu.BP
	case "cs":
		return d.cpu.CS()
	case "ip":
		return d.cpu.IP()
	case "flags":
		return d.cpu.Flags
	default:
		return 0
	}
}
