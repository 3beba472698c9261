// keyboard.go - Model-F keyboard: serial shift register + typematic engine
//
// The keyboard is modeled as the serial device it actually is on PC/XT
// hardware rather than as direct host-key injection: scancodes leave
// the keyboard one bit at a time over the clock/data pair, are shifted
// into the PPI's port A register one byte at a time, and raise IRQ1
// only once a full byte has arrived. Guest software reads the shift
// register and depends on the inter-byte timing and the PPI's keyboard
// enable line, so host key events are queued and drained into this
// shift register rather than written straight into PPI state.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "sync"

const (
	keyboardClockHz   = 1000 // approximate Model-F serial clock, in ticks-per-bit terms below
	typematicDelayMS  = 500
	typematicRepeatMS = 91 // ~10.9 Hz, the Model-F's fastest typematic rate
)

// Keyboard models the 83-key Model F unit's serial interface: a FIFO of
// whole scancode bytes waiting to be shifted out, one bit at a time,
// clocked independently of the CPU.
type Keyboard struct {
	queue []byte

	// hostMu guards hostPending: PressKey/ReleaseKey may be called from
	// a host input thread (the headless console's stdin reader) while
	// the machine loop owns every other field. Tick drains hostPending
	// into queue at tick granularity, so the core itself never blocks
	// on host input.
	hostMu      sync.Mutex
	hostPending []byte

	shifting    bool
	shiftByte   byte
	shiftBit    int
	ticksPerBit int
	tickAccum   int

	// typematic state for the currently-held key, if any
	heldScancode   byte
	typematicTicks int
	typematicPhase int // 0 = waiting initial delay, 1 = repeating
	cpuHz          int

	enabled bool

	ppi *PPI
	pic *PIC
}

func NewKeyboard(ppi *PPI, pic *PIC, cpuHz int) *Keyboard {
	k := &Keyboard{ppi: ppi, pic: pic, enabled: true, cpuHz: cpuHz}
	k.ticksPerBit = cpuHz / keyboardClockHz
	if k.ticksPerBit < 1 {
		k.ticksPerBit = 1
	}
	return k
}

// PressKey queues a make-code byte (or multi-byte sequence for extended
// keys) and starts the typematic repeat timer for it. Safe to call from
// a host input thread.
func (k *Keyboard) PressKey(scancodes ...byte) {
	if len(scancodes) == 0 {
		return
	}
	k.hostMu.Lock()
	k.hostPending = append(k.hostPending, scancodes...)
	k.heldScancode = scancodes[len(scancodes)-1]
	k.typematicPhase = 0
	k.typematicTicks = k.cpuHz / 1000 * typematicDelayMS
	k.hostMu.Unlock()
}

// ReleaseKey queues a break-code byte (0xF0 prefix handling is the
// caller's responsibility at the scancode-translation layer) and stops
// typematic repeat for the released key. Safe to call from a host input
// thread.
func (k *Keyboard) ReleaseKey(breakCodes ...byte) {
	k.hostMu.Lock()
	k.hostPending = append(k.hostPending, breakCodes...)
	k.heldScancode = 0
	k.hostMu.Unlock()
}

// SetEnabled mirrors the PPI's port B bit7 keyboard-clock-hold line;
// while held, the shift register stops advancing.
func (k *Keyboard) SetEnabled(enabled bool) {
	k.enabled = enabled
}

// Tick advances the serial shift register by one CPU clock.
func (k *Keyboard) Tick() {
	if !k.enabled {
		return
	}
	k.hostMu.Lock()
	if len(k.hostPending) > 0 {
		k.queue = append(k.queue, k.hostPending...)
		k.hostPending = k.hostPending[:0]
	}
	k.hostMu.Unlock()
	if !k.shifting {
		if len(k.queue) == 0 {
			k.tickTypematic()
			return
		}
		k.shiftByte = k.queue[0]
		k.queue = k.queue[1:]
		k.shiftBit = 0
		k.shifting = true
		k.tickAccum = 0
		return
	}

	k.tickAccum++
	if k.tickAccum < k.ticksPerBit {
		return
	}
	k.tickAccum = 0
	k.shiftBit++
	if k.shiftBit >= 11 { // start bit + 8 data + parity + stop, modeled as one unit per byte
		k.shifting = false
		k.ppi.SetKeyboardByte(k.shiftByte)
		if k.pic != nil {
			k.pic.Raise(1)
		}
	}
}

func (k *Keyboard) tickTypematic() {
	k.hostMu.Lock()
	defer k.hostMu.Unlock()
	if k.heldScancode == 0 {
		return
	}
	if k.typematicTicks > 0 {
		k.typematicTicks--
		return
	}
	k.queue = append(k.queue, k.heldScancode)
	if k.typematicPhase == 0 {
		k.typematicPhase = 1
	}
	k.typematicTicks = k.cpuHz / 1000 * typematicRepeatMS
}
