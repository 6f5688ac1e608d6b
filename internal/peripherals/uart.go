package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// UARTRegs names the absolute I/O addresses one USART instance binds to.
type UARTRegs struct {
	UCSRA, UCSRB, UCSRC uint16
	UBRRL, UBRRH        uint16
	UDR                 uint16
}

// lcg is a small deterministic linear congruential generator, used instead
// of math/rand so a session replay with the same seed reproduces byte-for-
// byte identical line noise, matching the lockstep protocol's determinism
// requirement.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg {
	if seed == 0 {
		seed = 0xA5A5A5A5A5A5A5A5
	}
	return &lcg{state: seed}
}

func (g *lcg) next() uint64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return g.state
}

// nextFloat returns a value uniformly distributed in [0,1).
func (g *lcg) nextFloat() float64 {
	return float64(g.next()>>11) / float64(1<<53)
}

// UART models one USART: byte-timed transmit and receive shift registers,
// computed from UBRR/U2X the same way real hardware derives bit time from
// the baud rate generator, plus an injectable per-byte error rate for
// simulating line noise deterministically.
type UART struct {
	core  *mcuavr.Core
	index int
	regs  UARTRegs
	rng   *lcg

	txBusy            bool
	txCyclesRemaining int64
	txByte            byte

	rxQueue           []byte
	rxBusy            bool
	rxCyclesRemaining int64

	outbox []byte

	// ErrorRate is the probability (0..1) that a received byte has one bit
	// flipped before being presented to firmware, modeling line noise.
	ErrorRate float64
	// FrameErrorRate is the probability a queued receive produces a frame
	// error (stop bit not found) instead of a clean byte.
	FrameErrorRate float64
}

// NewUART wires one USART's control/status/data registers into the core.
func NewUART(core *mcuavr.Core, index int, seed uint64, regs UARTRegs) *UART {
	u := &UART{core: core, index: index, regs: regs, rng: newLCG(seed ^ (uint64(index+1) * 0x2545F4914F6CDD1D))}

	core.WriteIORaw(regs.UCSRA, 0x20) // UDRE0 set: ready to transmit
	core.RegisterWriteHook(regs.UCSRA, func(c *mcuavr.Core, addr uint16, v byte) byte {
		// TXC (bit6) is write-1-to-clear; RXC/UDRE are hardware-set and
		// ignore software writes to those bit positions.
		cur := c.IO[addr]
		cleared := cur
		if v&0x40 != 0 {
			cleared &^= 0x40
		}
		return (cleared &^ 0x03) | (v & 0x03)
	})
	core.RegisterWriteHook(regs.UDR, func(c *mcuavr.Core, addr uint16, v byte) byte {
		u.startTransmit(v)
		return v
	})
	core.RegisterReadHook(regs.UDR, func(c *mcuavr.Core, addr uint16, v byte) byte {
		c.SetIOBit(regs.UCSRA, 7, false) // reading UDR clears RXC
		return v
	})
	return u
}

// byteCycles derives the cycle count to transmit/receive one byte (8 data
// bits + start + stop, the common 8N1 framing) from the configured UBRR
// divisor, doubling speed when U2X is set.
func (u *UART) byteCycles() int64 {
	ubrr := uint32(u.core.ReadIORaw(u.regs.UBRRL)) | uint32(u.core.ReadIORaw(u.regs.UBRRH))<<8
	divisor := int64(16)
	if u.core.IOBit(u.regs.UCSRA, 1) { // U2Xn
		divisor = 8
	}
	cyclesPerBit := (int64(ubrr) + 1) * divisor
	return cyclesPerBit * 10 // start + 8 data + stop
}

// ByteCycles exposes byteCycles for callers outside this package, such as
// the self-test harness, that need to size a wait loop around one
// transmit/receive.
func (u *UART) ByteCycles() int64 {
	return u.byteCycles()
}

func (u *UART) startTransmit(b byte) {
	u.txByte = b
	u.txBusy = true
	u.txCyclesRemaining = u.byteCycles()
	u.core.SetIOBit(u.regs.UCSRA, 5, false) // UDRE0 clear while busy
}

// EnqueueReceive appends an incoming byte from the host side, to be shifted
// in over the next byte time(s) exactly like a real external UART source.
func (u *UART) EnqueueReceive(b byte) {
	u.rxQueue = append(u.rxQueue, b)
}

// DrainTransmitted returns and clears bytes the firmware has sent since the
// last drain, for the session to forward as Serial wire messages.
func (u *UART) DrainTransmitted() []byte {
	out := u.outbox
	u.outbox = nil
	return out
}

// Tick advances the transmit and receive shift registers by one CPU cycle.
func (u *UART) Tick() {
	if !u.core.IOBit(u.regs.UCSRB, 3) { // TXEN not set: no Tx activity
		u.txBusy = false
	}
	if u.txBusy {
		u.txCyclesRemaining--
		if u.txCyclesRemaining <= 0 {
			u.txBusy = false
			u.outbox = append(u.outbox, u.txByte)
			u.core.SetIOBit(u.regs.UCSRA, 5, true) // UDRE0
			u.core.SetIOBit(u.regs.UCSRA, 6, true) // TXC0
		}
	}

	if !u.rxBusy && len(u.rxQueue) > 0 && u.core.IOBit(u.regs.UCSRB, 4) { // RXEN
		u.rxBusy = true
		u.rxCyclesRemaining = u.byteCycles()
	}
	if u.rxBusy {
		u.rxCyclesRemaining--
		if u.rxCyclesRemaining <= 0 {
			u.rxBusy = false
			b := u.rxQueue[0]
			u.rxQueue = u.rxQueue[1:]
			if u.ErrorRate > 0 && u.rng.nextFloat() < u.ErrorRate {
				b ^= 1 << (u.rng.next() % 8)
				u.core.SetIOBit(u.regs.UCSRA, 2, true) // DOR/PE stand-in: bit2 used as data-error flag
			}
			if u.FrameErrorRate > 0 && u.rng.nextFloat() < u.FrameErrorRate {
				u.core.SetIOBit(u.regs.UCSRA, 4, true) // FE0
			}
			u.core.WriteIORaw(u.regs.UDR, b)
			u.core.SetIOBit(u.regs.UCSRA, 7, true) // RXC0
		}
	}
}
