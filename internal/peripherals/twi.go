package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// TWI status codes, matching the subset of the real TWSR codes firmware
// typically switches on (master mode only; this emulator does not model
// slave/multi-master arbitration).
const (
	twiStatusStart         = 0x08
	twiStatusRepeatedStart = 0x10
	twiStatusMTSlaAck      = 0x18
	twiStatusMTSlaNack     = 0x20
	twiStatusMTDataAck     = 0x28
	twiStatusMTDataNack    = 0x30
	twiStatusMRSlaAck      = 0x40
	twiStatusMRSlaNack     = 0x48
	twiStatusMRDataAck     = 0x50
	twiStatusMRDataNack    = 0x58
	twiStatusIdle          = 0xF8
)

type twiPhase int

const (
	twiIdle twiPhase = iota
	twiAwaitingAddress
	twiMasterTransmit
	twiMasterReceive
)

// TWI models the two-wire (I2C-compatible) controller as a byte-at-a-time
// master state machine: a START/address/data sequence driven by firmware
// clearing TWINT, each phase taking a bit-rate-derived number of cycles to
// complete, mirroring the command-trigger/status-completion shape used
// elsewhere in this engine for SPI and the UARTs.
type TWI struct {
	core     *mcuavr.Core
	phase    twiPhase
	pending  int64
	onDone   func()
	lastAddr byte

	// Transfers counts completed bus phases (start/address/data bytes),
	// for the session's perf counters.
	Transfers uint64

	// SlavePresent reports whether a simulated slave acknowledges the given
	// 7-bit address; defaults to "every address acks" so a firmware self-
	// test against its own loopback slave address succeeds out of the box.
	SlavePresent func(addr byte) bool
	// ReceiveQueue supplies bytes returned to a master-receive read; when
	// empty, 0xFF is returned (idle bus level).
	ReceiveQueue []byte
}

// NewTWI wires TWBR/TWSR/TWAR/TWDR/TWCR into the core.
func NewTWI(core *mcuavr.Core) *TWI {
	t := &TWI{core: core, SlavePresent: func(byte) bool { return true }}
	core.WriteIORaw(mcuavr.RegTWSR, twiStatusIdle)
	core.RegisterWriteHook(mcuavr.RegTWCR, func(c *mcuavr.Core, addr uint16, v byte) byte {
		cur := c.IO[addr]
		next := cur
		if v&0x80 != 0 { // TWINT write-1-to-clear: this is the "go" edge
			next &^= 0x80
		}
		next = (next &^ 0x7C) | (v & 0x7C) // TWEA/TWSTA/TWSTO/TWEN pass through
		if v&0x80 != 0 {
			t.advance(next)
		}
		return next
	})
	return t
}

func (t *TWI) bitCycles() int64 {
	twbr := int64(t.core.ReadIORaw(mcuavr.RegTWBR))
	ps := t.core.ReadIORaw(mcuavr.RegTWSR) & 0x03
	prescaler := int64(1)
	for i := byte(0); i < ps; i++ {
		prescaler *= 4
	}
	return 16 + 2*twbr*prescaler
}

func (t *TWI) advance(twcr byte) {
	if twcr&0x10 != 0 { // TWSTO: stop condition, bus goes idle immediately
		t.phase = twiIdle
		t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusIdle)
		t.core.SetIOBit(mcuavr.RegTWCR, 4, false)
		return
	}
	cycles := t.bitCycles() * 9
	switch {
	case twcr&0x20 != 0: // TWSTA: (repeated) start condition
		wasActive := t.phase != twiIdle
		t.phase = twiAwaitingAddress
		t.pending = cycles
		t.onDone = func() {
			status := byte(twiStatusStart)
			if wasActive {
				status = twiStatusRepeatedStart
			}
			t.core.WriteIORaw(mcuavr.RegTWSR, status)
			t.core.SetIOBit(mcuavr.RegTWCR, 7, true)
		}
	case t.phase == twiAwaitingAddress:
		addrByte := t.core.ReadIORaw(mcuavr.RegTWDR)
		addr := addrByte >> 1
		isRead := addrByte&0x01 != 0
		t.pending = cycles
		t.onDone = func() {
			t.lastAddr = addr
			ack := t.SlavePresent(addr)
			if isRead {
				t.phase = twiMasterReceive
				if ack {
					t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMRSlaAck)
				} else {
					t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMRSlaNack)
				}
			} else {
				t.phase = twiMasterTransmit
				if ack {
					t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMTSlaAck)
				} else {
					t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMTSlaNack)
				}
			}
			t.core.SetIOBit(mcuavr.RegTWCR, 7, true)
		}
	case t.phase == twiMasterTransmit:
		t.pending = cycles
		t.onDone = func() {
			// Mirror the address-phase ack check: a data byte is only ACKed
			// if the slave is present and TWEA allows acknowledgement.
			ack := t.SlavePresent(t.lastAddr) && t.core.IOBit(mcuavr.RegTWCR, 6)
			if ack {
				t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMTDataAck)
			} else {
				t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMTDataNack)
			}
			t.core.SetIOBit(mcuavr.RegTWCR, 7, true)
		}
	case t.phase == twiMasterReceive:
		t.pending = cycles
		t.onDone = func() {
			var b byte = 0xFF
			if len(t.ReceiveQueue) > 0 {
				b = t.ReceiveQueue[0]
				t.ReceiveQueue = t.ReceiveQueue[1:]
			}
			t.core.WriteIORaw(mcuavr.RegTWDR, b)
			sendAck := t.core.IOBit(mcuavr.RegTWCR, 6) // TWEA
			if sendAck {
				t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMRDataAck)
			} else {
				t.core.WriteIORaw(mcuavr.RegTWSR, twiStatusMRDataNack)
			}
			t.core.SetIOBit(mcuavr.RegTWCR, 7, true)
		}
	}
}

// Tick advances the in-flight bus phase timer, invoking its completion
// (which raises TWINT) once the bit-rate-derived delay elapses.
func (t *TWI) Tick() {
	if t.onDone == nil {
		return
	}
	t.pending--
	if t.pending > 0 {
		return
	}
	done := t.onDone
	t.onDone = nil
	done()
	t.Transfers++
}
