// bus.go - System bus and flat 1 MiB memory map for the PC/XT core
//
// Reads and writes dispatch over a region table: MMIO windows first,
// then ROM blocks, then RAM. The 8088's separate 64K port-I/O space
// has its own dispatch map.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "sort"

const (
	memorySize  = 1 << 20 // 1 MiB flat physical address space
	addressMask = memorySize - 1

	// openBusValue is what an unmapped port read returns.
	openBusValue = 0xFF
)

// RomBlock is a read-only block mapped at a fixed physical base.
type RomBlock struct {
	Base uint32
	Data []byte
}

// MMIOWindow is a memory-mapped I/O region; writes and reads inside
// [Start, End) are routed to the callbacks instead of RAM.
type MMIOWindow struct {
	Start   uint32
	End     uint32
	OnRead  func(addr uint32) byte
	OnWrite func(addr uint32, value byte)
}

// PortDevice services 8-bit port I/O for a fixed set of ports.
type PortDevice interface {
	In(port uint16) byte
	Out(port uint16, value byte)
}

// Bus is the machine's single flat memory map plus port-I/O space. It is
// owned by Machine and passed by reference into the BIU and into every
// device's tick/io entry points; devices never hold a reference to it
// themselves, which keeps the bus<->device graph free of cycles.
type Bus struct {
	ram   [memorySize]byte
	roms  []RomBlock
	mmio  []MMIOWindow
	ports map[uint16]PortDevice

	// LastPhysicalAddr and LastBusStatus record the most recent bus
	// cycle's address/status for the BIU's trace/sigrok output.
	LastPhysicalAddr uint32
	LastBusStatus    BusStatus
}

// BusStatus mirrors the 8088's S0-S2 status lines, used only for the
// sigrok trace mode's bus-status column.
type BusStatus uint8

const (
	BusStatusInterruptAck BusStatus = iota
	BusStatusReadIO
	BusStatusWriteIO
	BusStatusHalt
	BusStatusInstructionFetch
	BusStatusReadMemory
	BusStatusWriteMemory
	BusStatusPassive
)

func NewBus() *Bus {
	return &Bus{ports: make(map[uint16]PortDevice)}
}

// MapROM installs a read-only block.
func (b *Bus) MapROM(base uint32, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	b.roms = append(b.roms, RomBlock{Base: base, Data: cp})
	sort.Slice(b.roms, func(i, j int) bool { return b.roms[i].Base < b.roms[j].Base })
}

// MapMMIO registers a memory-mapped I/O window (video RAM, CRTC shadow
// regions, etc).
func (b *Bus) MapMMIO(start, end uint32, onRead func(uint32) byte, onWrite func(uint32, byte)) {
	b.mmio = append(b.mmio, MMIOWindow{Start: start, End: end, OnRead: onRead, OnWrite: onWrite})
}

// MapPort registers a device to service one or more I/O ports.
func (b *Bus) MapPort(port uint16, dev PortDevice) {
	b.ports[port] = dev
}

func (b *Bus) romAt(addr uint32) (*RomBlock, bool) {
	for i := range b.roms {
		r := &b.roms[i]
		if addr >= r.Base && addr < r.Base+uint32(len(r.Data)) {
			return r, true
		}
	}
	return nil, false
}

func (b *Bus) mmioAt(addr uint32) (*MMIOWindow, bool) {
	for i := range b.mmio {
		w := &b.mmio[i]
		if addr >= w.Start && addr < w.End {
			return w, true
		}
	}
	return nil, false
}

// ReadMem8 performs a physical memory read. Unmapped addresses never
// happen in a 1 MiB space for RAM, but reads inside a ROM hole with no
// backing block still degrade to RAM rather than open bus, matching
// real decode behavior on the XT's partial address decoding.
func (b *Bus) ReadMem8(addr uint32) byte {
	addr &= addressMask
	if w, ok := b.mmioAt(addr); ok && w.OnRead != nil {
		b.LastPhysicalAddr = addr
		return w.OnRead(addr)
	}
	if r, ok := b.romAt(addr); ok {
		b.LastPhysicalAddr = addr
		return r.Data[addr-r.Base]
	}
	b.LastPhysicalAddr = addr
	return b.ram[addr]
}

// WriteMem8 performs a physical memory write. Writes into a ROM block
// are silently discarded, matching what the hardware does.
func (b *Bus) WriteMem8(addr uint32, value byte) {
	addr &= addressMask
	b.LastPhysicalAddr = addr
	if w, ok := b.mmioAt(addr); ok {
		if w.OnWrite != nil {
			w.OnWrite(addr, value)
		}
		return
	}
	if _, ok := b.romAt(addr); ok {
		return
	}
	b.ram[addr] = value
}

// In services an 8-bit port read. Unmapped ports return open-bus 0xFF.
func (b *Bus) In(port uint16) byte {
	if dev, ok := b.ports[port]; ok {
		return dev.In(port)
	}
	return openBusValue
}

// Out services an 8-bit port write. Unmapped ports discard silently.
func (b *Bus) Out(port uint16, value byte) {
	if dev, ok := b.ports[port]; ok {
		dev.Out(port, value)
	}
}

// Reset clears RAM. ROMs and MMIO/port mappings survive; re-reading
// ROM images from disk on a configured hard reset is the host layer's
// job, which just calls MapROM again.
func (b *Bus) Reset() {
	for i := range b.ram {
		b.ram[i] = 0
	}
}
