package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// PinChangeController evaluates the three PCINT pin-change groups and the
// INT0/INT1 (and, on the 2560, INT2-7) external interrupt lines once per
// cycle by diffing the current PINx snapshot against the one latched at
// the end of the previous cycle.
type PinChangeController struct {
	core *mcuavr.Core
}

// NewPinChangeController wires PCICR/PCIFR/PCMSKn/EICRA/EIFR/EIMSK into the
// core; the flag registers use the generic write-1-to-clear idiom.
func NewPinChangeController(core *mcuavr.Core) *PinChangeController {
	core.RegisterClearOnWrite1(mcuavr.RegPCIFR)
	core.RegisterClearOnWrite1(mcuavr.RegEIFR)
	return &PinChangeController{core: core}
}

type pcGroup struct {
	pcifrBit          uint
	pinReg, maskReg   uint16
	prev              func(c *mcuavr.Core) byte
}

func (p *PinChangeController) groups() []pcGroup {
	return []pcGroup{
		{0, mcuavr.RegPINB, mcuavr.RegPCMSK0, func(c *mcuavr.Core) byte { return c.PrevPINB }},
		{1, mcuavr.RegPINC, mcuavr.RegPCMSK1, func(c *mcuavr.Core) byte { return c.PrevPINC }},
		{2, mcuavr.RegPIND, mcuavr.RegPCMSK2, func(c *mcuavr.Core) byte { return c.PrevPIND }},
	}
}

// extLine describes one external-interrupt pin: which PINx bit it samples
// and which EIMSK/EIFR bit it raises.
type extLine struct {
	bit      uint
	pinReg   uint16
	pinBit   uint
	iscShift uint // bit offset of its two ISCn1:n0 mode bits within EICRA
}

func (p *PinChangeController) extLines() []extLine {
	if p.core.Profile.Family == mcuavr.FamilyM2560 {
		return []extLine{
			{0, mcuavr.RegPIND, 0, 0},
			{1, mcuavr.RegPIND, 1, 2},
			{2, mcuavr.RegPIND, 2, 4},
			{3, mcuavr.RegPIND, 3, 6},
			{4, mcuavr.RegPINE, 4, 0}, // INT4-7 modes live in EICRB; treated as any-edge here
			{5, mcuavr.RegPINE, 5, 2},
			{6, mcuavr.RegPINE, 6, 4},
			{7, mcuavr.RegPINE, 7, 6},
		}
	}
	return []extLine{
		{0, mcuavr.RegPIND, 2, 0},
		{1, mcuavr.RegPIND, 3, 2},
	}
}

// Tick evaluates every pin-change group and external-interrupt line against
// the snapshot latched by Core.LatchPinHistory at the end of the previous
// cycle, raising PCIFR/EIFR bits for any newly triggered line, then
// refreshes the snapshot for the next cycle.
func (p *PinChangeController) Tick() {
	c := p.core
	for _, g := range p.groups() {
		if !c.IOBit(mcuavr.RegPCICR, g.pcifrBit) {
			continue
		}
		cur := c.ReadIORaw(g.pinReg)
		mask := c.ReadIORaw(g.maskReg)
		if (cur^g.prev(c))&mask != 0 {
			c.SetIOBit(mcuavr.RegPCIFR, g.pcifrBit, true)
		}
	}

	var prevPort byte
	for _, l := range p.extLines() {
		switch l.pinReg {
		case mcuavr.RegPIND:
			prevPort = c.PrevPIND
		case mcuavr.RegPINE:
			prevPort = c.PrevPINE
		}
		cur := c.IOBit(l.pinReg, l.pinBit)
		prev := prevPort&(1<<l.pinBit) != 0

		if !c.IOBit(mcuavr.RegEIMSK, l.bit) {
			continue
		}
		mode := (c.ReadIORaw(mcuavr.RegEICRA) >> l.iscShift) & 0x03
		if l.pinReg == mcuavr.RegPINE { // INT4-7: any edge
			mode = 1
		}
		triggered := false
		switch mode {
		case 0: // low level
			triggered = !cur
		case 1: // any edge
			triggered = cur != prev
		case 2: // falling edge
			triggered = prev && !cur
		case 3: // rising edge
			triggered = !prev && cur
		}
		if triggered {
			c.SetIOBit(mcuavr.RegEIFR, l.bit, true)
		}
	}

	c.LatchPinHistory()
}
