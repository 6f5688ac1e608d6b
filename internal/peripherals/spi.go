package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

var spiPrescalerTable = [4]int{4, 16, 64, 128}

// SPI models one byte-shift SPI controller: writing SPDR starts a
// transaction timed off SPCR's clock-rate bits, completing with SPIF set
// and the received byte latched into SPDR, the same command-write /
// status-poll shape the teacher's NE2000 command register used.
type SPI struct {
	core                 *mcuavr.Core
	spcr, spsr, spdr      uint16
	busy                  bool
	cyclesRemaining       int64
	pendingTx             byte

	// armed records that SPSR was read while SPIF was set, the first half
	// of the real hardware's SPIF/WCOL clear sequence; the following SPDR
	// read completes it by clearing both flags.
	armed bool

	// Transfers counts completed 8-bit transactions, for the session's
	// perf counters.
	Transfers uint64

	// NextRxByte, when non-negative, is consumed as the next received byte
	// instead of the loopback default (the byte just transmitted), letting
	// a session wire in a simulated peripheral on the other end of the bus.
	NextRxByte int16
}

// NewSPI wires SPCR/SPSR/SPDR into the core.
func NewSPI(core *mcuavr.Core, spcr, spsr, spdr uint16) *SPI {
	s := &SPI{core: core, spcr: spcr, spsr: spsr, spdr: spdr, NextRxByte: -1}
	core.RegisterWriteHook(spdr, func(c *mcuavr.Core, addr uint16, v byte) byte {
		s.startTransfer(v)
		return v
	})
	core.RegisterWriteHook(spsr, func(c *mcuavr.Core, addr uint16, v byte) byte {
		// SPIF/WCOL (bits 7/6) are read-only/clear-on-read-sequence in
		// hardware; only SPI2X (bit0) is software-writable.
		return (c.IO[addr] &^ 0x01) | (v & 0x01)
	})
	core.RegisterReadHook(spsr, func(c *mcuavr.Core, addr uint16, v byte) byte {
		if v&0x80 != 0 { // SPIF set: reading SPSR arms the clear sequence
			s.armed = true
		}
		return v
	})
	core.RegisterReadHook(spdr, func(c *mcuavr.Core, addr uint16, v byte) byte {
		if s.armed {
			c.SetIOBit(spsr, 7, false) // SPIF
			c.SetIOBit(spsr, 6, false) // WCOL
			s.armed = false
		}
		return v
	})
	return s
}

func (s *SPI) transferCycles() int64 {
	cs := s.core.ReadIORaw(s.spcr) & 0x03
	div := spiPrescalerTable[cs]
	if s.core.IOBit(s.spsr, 0) { // SPI2X
		div /= 2
		if div < 2 {
			div = 2
		}
	}
	return int64(div * 8)
}

func (s *SPI) startTransfer(b byte) {
	if !s.core.IOBit(s.spcr, 6) { // SPE not set: bus disabled
		return
	}
	if s.busy {
		s.core.SetIOBit(s.spsr, 6, true) // WCOL: write collision
		return
	}
	s.pendingTx = b
	s.busy = true
	s.cyclesRemaining = s.transferCycles()
}

// Tick advances an in-flight transfer, completing it and latching the
// received byte plus SPIF when the shift time elapses.
func (s *SPI) Tick() {
	if !s.busy {
		return
	}
	s.cyclesRemaining--
	if s.cyclesRemaining > 0 {
		return
	}
	s.busy = false
	rx := s.pendingTx
	if s.NextRxByte >= 0 {
		rx = byte(s.NextRxByte)
		s.NextRxByte = -1
	}
	s.core.WriteIORaw(s.spdr, rx)
	s.core.SetIOBit(s.spsr, 7, true) // SPIF
	s.Transfers++
}
