package mcuavr

// pinMapping associates one protocol pin index with the DDR/PORT/PIN
// register triplet and bit offset that drives it, the same port/bit
// grouping the original firmware engine's pin router used.
type pinMapping struct {
	ddr, port, pin uint16
	bit            uint
}

// pinTable returns the digital pin map for a profile's family. Index is the
// protocol pin number (0-based, matching the wire protocol's pin array).
func pinTable(family Family) []pinMapping {
	if family == FamilyM2560 {
		return megaPinTable
	}
	return unoPinTable
}

var unoPinTable = []pinMapping{
	{RegDDRD, RegPORTD, RegPIND, 0}, // D0
	{RegDDRD, RegPORTD, RegPIND, 1}, // D1
	{RegDDRD, RegPORTD, RegPIND, 2}, // D2
	{RegDDRD, RegPORTD, RegPIND, 3}, // D3
	{RegDDRD, RegPORTD, RegPIND, 4}, // D4
	{RegDDRD, RegPORTD, RegPIND, 5}, // D5
	{RegDDRD, RegPORTD, RegPIND, 6}, // D6
	{RegDDRD, RegPORTD, RegPIND, 7}, // D7
	{RegDDRB, RegPORTB, RegPINB, 0}, // D8
	{RegDDRB, RegPORTB, RegPINB, 1}, // D9
	{RegDDRB, RegPORTB, RegPINB, 2}, // D10
	{RegDDRB, RegPORTB, RegPINB, 3}, // D11
	{RegDDRB, RegPORTB, RegPINB, 4}, // D12
	{RegDDRB, RegPORTB, RegPINB, 5}, // D13
	{RegDDRC, RegPORTC, RegPINC, 0}, // A0
	{RegDDRC, RegPORTC, RegPINC, 1}, // A1
	{RegDDRC, RegPORTC, RegPINC, 2}, // A2
	{RegDDRC, RegPORTC, RegPINC, 3}, // A3
	{RegDDRC, RegPORTC, RegPINC, 4}, // A4
	{RegDDRC, RegPORTC, RegPINC, 5}, // A5
}

// megaPinTable covers the Mega2560's 54 digital pins (D0-D53) plus the 16
// analog inputs (A0-A15), mapped to the real ATmega2560 silkscreen pinout
// across ports A/B/C/D/E/F/G/H/J/K/L.
var megaPinTable = []pinMapping{
	{RegDDRE, RegPORTE, RegPINE, 0}, // D0  RXD0
	{RegDDRE, RegPORTE, RegPINE, 1}, // D1  TXD0
	{RegDDRE, RegPORTE, RegPINE, 4}, // D2
	{RegDDRE, RegPORTE, RegPINE, 5}, // D3
	{RegDDRE, RegPORTE, RegPINE, 3}, // D4
	{RegDDRE, RegPORTE, RegPINE, 2}, // D5
	{RegDDRH, RegPORTH, RegPINH, 3}, // D6
	{RegDDRH, RegPORTH, RegPINH, 4}, // D7
	{RegDDRH, RegPORTH, RegPINH, 5}, // D8
	{RegDDRH, RegPORTH, RegPINH, 6}, // D9
	{RegDDRB, RegPORTB, RegPINB, 4}, // D10
	{RegDDRB, RegPORTB, RegPINB, 5}, // D11
	{RegDDRB, RegPORTB, RegPINB, 6}, // D12
	{RegDDRB, RegPORTB, RegPINB, 7}, // D13
	{RegDDRJ, RegPORTJ, RegPINJ, 1}, // D14 TXD3
	{RegDDRJ, RegPORTJ, RegPINJ, 0}, // D15 RXD3
	{RegDDRH, RegPORTH, RegPINH, 1}, // D16 TXD2
	{RegDDRH, RegPORTH, RegPINH, 0}, // D17 RXD2
	{RegDDRD, RegPORTD, RegPIND, 3}, // D18 TXD1
	{RegDDRD, RegPORTD, RegPIND, 2}, // D19 RXD1
	{RegDDRD, RegPORTD, RegPIND, 1}, // D20 SDA
	{RegDDRD, RegPORTD, RegPIND, 0}, // D21 SCL
	{RegDDRA, RegPORTA, RegPINA, 0}, // D22
	{RegDDRA, RegPORTA, RegPINA, 1}, // D23
	{RegDDRA, RegPORTA, RegPINA, 2}, // D24
	{RegDDRA, RegPORTA, RegPINA, 3}, // D25
	{RegDDRA, RegPORTA, RegPINA, 4}, // D26
	{RegDDRA, RegPORTA, RegPINA, 5}, // D27
	{RegDDRA, RegPORTA, RegPINA, 6}, // D28
	{RegDDRA, RegPORTA, RegPINA, 7}, // D29
	{RegDDRC, RegPORTC, RegPINC, 0}, // D30
	{RegDDRC, RegPORTC, RegPINC, 1}, // D31
	{RegDDRC, RegPORTC, RegPINC, 2}, // D32
	{RegDDRC, RegPORTC, RegPINC, 3}, // D33
	{RegDDRC, RegPORTC, RegPINC, 4}, // D34
	{RegDDRC, RegPORTC, RegPINC, 5}, // D35
	{RegDDRC, RegPORTC, RegPINC, 6}, // D36
	{RegDDRC, RegPORTC, RegPINC, 7}, // D37
	{RegDDRD, RegPORTD, RegPIND, 7}, // D38
	{RegDDRG, RegPORTG, RegPING, 2}, // D39
	{RegDDRG, RegPORTG, RegPING, 1}, // D40
	{RegDDRG, RegPORTG, RegPING, 0}, // D41
	{RegDDRL, RegPORTL, RegPINL, 0}, // D42
	{RegDDRL, RegPORTL, RegPINL, 1}, // D43
	{RegDDRL, RegPORTL, RegPINL, 2}, // D44
	{RegDDRL, RegPORTL, RegPINL, 3}, // D45
	{RegDDRL, RegPORTL, RegPINL, 4}, // D46
	{RegDDRL, RegPORTL, RegPINL, 5}, // D47
	{RegDDRL, RegPORTL, RegPINL, 6}, // D48
	{RegDDRL, RegPORTL, RegPINL, 7}, // D49
	{RegDDRB, RegPORTB, RegPINB, 3}, // D50 MISO
	{RegDDRB, RegPORTB, RegPINB, 2}, // D51 MOSI
	{RegDDRB, RegPORTB, RegPINB, 1}, // D52 SCK
	{RegDDRB, RegPORTB, RegPINB, 0}, // D53 SS

	{RegDDRF, RegPORTF, RegPINF, 0}, // A0
	{RegDDRF, RegPORTF, RegPINF, 1}, // A1
	{RegDDRF, RegPORTF, RegPINF, 2}, // A2
	{RegDDRF, RegPORTF, RegPINF, 3}, // A3
	{RegDDRF, RegPORTF, RegPINF, 4}, // A4
	{RegDDRF, RegPORTF, RegPINF, 5}, // A5
	{RegDDRF, RegPORTF, RegPINF, 6}, // A6
	{RegDDRF, RegPORTF, RegPINF, 7}, // A7
	{RegDDRK, RegPORTK, RegPINK, 0}, // A8
	{RegDDRK, RegPORTK, RegPINK, 1}, // A9
	{RegDDRK, RegPORTK, RegPINK, 2}, // A10
	{RegDDRK, RegPORTK, RegPINK, 3}, // A11
	{RegDDRK, RegPORTK, RegPINK, 4}, // A12
	{RegDDRK, RegPORTK, RegPINK, 5}, // A13
	{RegDDRK, RegPORTK, RegPINK, 6}, // A14
	{RegDDRK, RegPORTK, RegPINK, 7}, // A15
}

// SyncPins drives each digital pin's PINx bit from the PORTx/DDRx state
// (output pins reflect PORTx) or from a forced external input (input/
// hi-Z pins reflect PinInputs when it has been set). Call once per step
// before evaluating pin-change/external interrupts, then again after, so
// edge detection sees a stable before/after pair.
func (c *Core) SyncPins() {
	table := pinTable(c.Profile.Family)
	limit := len(table)
	if limit > len(c.PinInputs) {
		limit = len(c.PinInputs)
	}
	for i := 0; i < limit; i++ {
		m := table[i]
		isOutput := c.IOBit(m.ddr, m.bit)
		var level bool
		if isOutput {
			level = c.IOBit(m.port, m.bit)
		} else if c.PinInputs[i] >= 0 {
			level = c.PinInputs[i] != 0
		} else {
			level = c.IOBit(m.port, m.bit) // pull-up reflected when PORT bit set on an input pin
		}
		c.SetIOBit(m.pin, m.bit, level)
	}
}

// DigitalPinLevel reports the current PINx bit for a protocol pin index.
func (c *Core) DigitalPinLevel(pin int) bool {
	table := pinTable(c.Profile.Family)
	if pin < 0 || pin >= len(table) {
		return false
	}
	m := table[pin]
	return c.IOBit(m.pin, m.bit)
}

// SetDigitalInput forces a protocol pin's external input level; pass -1 to
// release the forced level and let the internal pull-up/PORT state show
// through instead.
func (c *Core) SetDigitalInput(pin int, level int8) {
	if pin < 0 || pin >= len(c.PinInputs) {
		return
	}
	c.PinInputs[pin] = level
}

// LatchPinHistory snapshots the current PINB/PINC/PIND/PINE bytes so the
// pin-change/external-interrupt peripherals can diff against the prior step.
func (c *Core) LatchPinHistory() {
	c.PrevPINB = c.ReadIORaw(RegPINB)
	c.PrevPINC = c.ReadIORaw(RegPINC)
	c.PrevPIND = c.ReadIORaw(RegPIND)
	c.PrevPINE = c.ReadIORaw(RegPINE)
}
