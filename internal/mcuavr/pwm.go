package mcuavr

// pwmBinding names which timer compare channel, if any, can drive a given
// protocol pin when that timer is in a PWM waveform-generation mode and its
// COM bits connect the compare output to the physical pin. This table is
// the single source of truth the pin router's output-sampling path
// consults; no hard-coded port literals appear outside it.
type pwmBinding struct {
	TimerIndex int
	Channel    byte // 'A' or 'B'
	ComReg     uint16
	ComShift   uint // COMx1:0 occupies bits (ComShift+1, ComShift)
}

func pwmTable(family Family) map[int]pwmBinding {
	if family == FamilyM2560 {
		return megaPWMTable
	}
	return unoPWMTable
}

// unoPWMTable mirrors the 328P's six hardware PWM pins: OC0A/D6,
// OC0B/D5, OC1A/D9, OC1B/D10, OC2A/D11, OC2B/D3.
var unoPWMTable = map[int]pwmBinding{
	5:  {TimerIndex: 0, Channel: 'B', ComReg: RegTCCR0A, ComShift: 4},
	6:  {TimerIndex: 0, Channel: 'A', ComReg: RegTCCR0A, ComShift: 6},
	9:  {TimerIndex: 1, Channel: 'A', ComReg: RegTCCR1A, ComShift: 6},
	10: {TimerIndex: 1, Channel: 'B', ComReg: RegTCCR1A, ComShift: 4},
	3:  {TimerIndex: 2, Channel: 'B', ComReg: RegTCCR2A, ComShift: 4},
	11: {TimerIndex: 2, Channel: 'A', ComReg: RegTCCR2A, ComShift: 6},
}

// megaPWMTable covers the subset of the 2560's PWM-capable pins, keyed by
// the real silkscreen pin number from megaPinTable (see pins.go); it
// follows the same timer/channel/COM-bit shape as the Uno table.
var megaPWMTable = map[int]pwmBinding{
	4:  {TimerIndex: 0, Channel: 'B', ComReg: RegTCCR0A, ComShift: 4},
	13: {TimerIndex: 0, Channel: 'A', ComReg: RegTCCR0A, ComShift: 6},
	11: {TimerIndex: 1, Channel: 'A', ComReg: RegTCCR1A, ComShift: 6},
	12: {TimerIndex: 1, Channel: 'B', ComReg: RegTCCR1A, ComShift: 4},
	10: {TimerIndex: 2, Channel: 'A', ComReg: RegTCCR2A, ComShift: 6},
	9:  {TimerIndex: 2, Channel: 'B', ComReg: RegTCCR2A, ComShift: 4},
	5:  {TimerIndex: 3, Channel: 'A', ComReg: RegTCCR3A, ComShift: 6},
	2:  {TimerIndex: 3, Channel: 'B', ComReg: RegTCCR3A, ComShift: 4},
	6:  {TimerIndex: 4, Channel: 'A', ComReg: RegTCCR4A, ComShift: 6},
	7:  {TimerIndex: 4, Channel: 'B', ComReg: RegTCCR4A, ComShift: 4},
	46: {TimerIndex: 5, Channel: 'A', ComReg: RegTCCR5A, ComShift: 6},
	45: {TimerIndex: 5, Channel: 'B', ComReg: RegTCCR5A, ComShift: 4},
}

// PWMBinding reports the timer/channel bound to a protocol pin, if any.
func (c *Core) PWMBinding(pin int) (timerIndex int, channel byte, ok bool) {
	b, found := pwmTable(c.Profile.Family)[pin]
	if !found {
		return 0, 0, false
	}
	return b.TimerIndex, b.Channel, true
}

// PWMOutputConnected reports whether the COM bits for a pin's bound
// channel currently connect the compare output to the physical pin.
func (c *Core) PWMOutputConnected(pin int) bool {
	b, found := pwmTable(c.Profile.Family)[pin]
	if !found {
		return false
	}
	field := (c.ReadIORaw(b.ComReg) >> b.ComShift) & 0x03
	return field != 0
}

// IsPinOutput reports whether a protocol pin's DDR bit configures it as an
// output.
func (c *Core) IsPinOutput(pin int) bool {
	table := pinTable(c.Profile.Family)
	if pin < 0 || pin >= len(table) {
		return false
	}
	m := table[pin]
	return c.IOBit(m.ddr, m.bit)
}
