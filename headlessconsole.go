// headlessconsole.go - raw-stdin host console for headless keyboard injection
//
// A raw-mode stdin reader on a background goroutine: non-blocking
// reads, CR->LF and DEL->BS translation, routed into keyboard.go's
// PressKey queue via a scancode lookup. The "terminal" here is the
// emulated PC's keyboard controller, not a host-visible text console.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// HeadlessConsole reads raw stdin and feeds translated scancodes into a
// Keyboard, for driving guest software from a terminal when no GUI
// backend is attached (`headless = true`, `debug_keyboard = true`).
type HeadlessConsole struct {
	kb      *Keyboard
	debug   bool // log each injected scancode (debug_keyboard)
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewHeadlessConsole(kb *Keyboard, debug bool) *HeadlessConsole {
	return &HeadlessConsole{kb: kb, debug: debug, stopCh: make(chan struct{}), done: make(chan struct{})}
}

// Start puts stdin into raw mode and begins translating bytes into
// scancodes on a background goroutine. Call Stop to restore the
// terminal; failing to do so leaves the operator's shell in raw mode.
func (h *HeadlessConsole) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		logf("headless console: failed to set raw mode: %v", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		logf("headless console: failed to set nonblocking stdin: %v", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}
			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				if b == 0x7F {
					b = 0x08
				}
				if sc, ok := asciiToScancode(b); ok {
					if h.debug {
						logf("keyboard: host byte %#02x -> scancode %#02x", b, sc)
					}
					h.kb.PressKey(sc)
					h.kb.ReleaseKey(sc | 0x80)
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *HeadlessConsole) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// asciiToScancode covers the printable ASCII range plus Enter/Backspace
// with Model-F Set-1 make codes; full keyboard layout translation
// (shift states, extended keys) is out of scope for the headless path,
// whose purpose is driving simple text-mode guest software, not games.
func asciiToScancode(b byte) (byte, bool) {
	switch {
	case b == '\n':
		return 0x1C, true
	case b == 0x08:
		return 0x0E, true
	case b == ' ':
		return 0x39, true
	case b >= 'a' && b <= 'z':
		return lowerAlphaScancodes[b-'a'], true
	case b >= '1' && b <= '9':
		return byte(0x02 + (b - '1')), true
	case b == '0':
		return 0x0B, true
	}
	return 0, false
}

var lowerAlphaScancodes = [26]byte{
	0x1E, 0x30, 0x2E, 0x20, 0x12, 0x21, 0x22, 0x23, 0x17, 0x24,
	0x25, 0x26, 0x32, 0x31, 0x18, 0x19, 0x10, 0x13, 0x1F, 0x14,
	0x16, 0x2F, 0x11, 0x2D, 0x15, 0x2C,
}
