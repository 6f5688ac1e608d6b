package mcuavr

// intSource is one entry in the priority-ordered interrupt table: a flag
// bit, the enable bit gating it, and the vector to dispatch to. Building
// this table once per profile and scanning it in priority order mirrors
// the dual-PIC's GetInterruptVector: scan low-to-high, first pending and
// enabled source wins, clearing its flag as it is taken.
type intSource struct {
	vector             uint32
	flagReg, enableReg uint16
	flagBit, enableBit uint
}

func (c *Core) interruptTable() []intSource {
	base := []intSource{
		{VecINT0, RegEIFR, RegEIMSK, 0, 0},
		{VecINT1, RegEIFR, RegEIMSK, 1, 1},
		{VecPCINT0, RegPCIFR, RegPCICR, 0, 0},
		{VecPCINT1, RegPCIFR, RegPCICR, 1, 1},
		{VecPCINT2, RegPCIFR, RegPCICR, 2, 2},
		{VecTimer2CompA, RegTIFR2, RegTIMSK2, 1, 1},
		{VecTimer2CompB, RegTIFR2, RegTIMSK2, 2, 2},
		{VecTimer2Ovf, RegTIFR2, RegTIMSK2, 0, 0},
		{VecTimer1CompA, RegTIFR1, RegTIMSK1, 1, 1},
		{VecTimer1CompB, RegTIFR1, RegTIMSK1, 2, 2},
		{VecTimer1Ovf, RegTIFR1, RegTIMSK1, 0, 0},
		{VecTimer0CompA, RegTIFR0, RegTIMSK0, 1, 1},
		{VecTimer0CompB, RegTIFR0, RegTIMSK0, 2, 2},
		{VecTimer0Ovf, RegTIFR0, RegTIMSK0, 0, 0},
		{VecSPI, RegSPSR, RegSPCR, 7, 7},
		{VecUSART0RXC, RegUCSR0A, RegUCSR0B, 7, 7},
		{VecUSART0DRE, RegUCSR0A, RegUCSR0B, 5, 5},
		{VecUSART0TXC, RegUCSR0A, RegUCSR0B, 6, 6},
		{VecADC, RegADCSRA, RegADCSRA, 4, 3},
		{VecWDT, RegWDTCSR, RegWDTCSR, 7, 6},
		{VecTWI, RegTWCR, RegTWCR, 7, 0},
	}
	if c.Profile.Family != FamilyM2560 {
		return base
	}
	return append(base,
		intSource{VecINT2, RegEIFR, RegEIMSK, 2, 2},
		intSource{VecINT3, RegEIFR, RegEIMSK, 3, 3},
		intSource{VecINT4, RegEIFR, RegEIMSK, 4, 4},
		intSource{VecINT5, RegEIFR, RegEIMSK, 5, 5},
		intSource{VecINT6, RegEIFR, RegEIMSK, 6, 6},
		intSource{VecINT7, RegEIFR, RegEIMSK, 7, 7},
		intSource{VecTimer3CompA, RegTIFR3, RegTIMSK3, 1, 1},
		intSource{VecTimer3CompB, RegTIFR3, RegTIMSK3, 2, 2},
		intSource{VecTimer3Ovf, RegTIFR3, RegTIMSK3, 0, 0},
		intSource{VecTimer4CompA, RegTIFR4, RegTIMSK4, 1, 1},
		intSource{VecTimer4CompB, RegTIFR4, RegTIMSK4, 2, 2},
		intSource{VecTimer4Ovf, RegTIFR4, RegTIMSK4, 0, 0},
		intSource{VecTimer5CompA, RegTIFR5, RegTIMSK5, 1, 1},
		intSource{VecTimer5CompB, RegTIFR5, RegTIMSK5, 2, 2},
		intSource{VecTimer5Ovf, RegTIFR5, RegTIMSK5, 0, 0},
		intSource{VecUSART1RXC, RegUCSR1A, RegUCSR1B, 7, 7},
		intSource{VecUSART1DRE, RegUCSR1A, RegUCSR1B, 5, 5},
		intSource{VecUSART1TXC, RegUCSR1A, RegUCSR1B, 6, 6},
		intSource{VecUSART2RXC, RegUCSR2A, RegUCSR2B, 7, 7},
		intSource{VecUSART2DRE, RegUCSR2A, RegUCSR2B, 5, 5},
		intSource{VecUSART2TXC, RegUCSR2A, RegUCSR2B, 6, 6},
		intSource{VecUSART3RXC, RegUCSR3A, RegUCSR3B, 7, 7},
		intSource{VecUSART3DRE, RegUCSR3A, RegUCSR3B, 5, 5},
		intSource{VecUSART3TXC, RegUCSR3A, RegUCSR3B, 6, 6},
	)
}

// PendingInterrupt reports the highest-priority pending and enabled
// interrupt's vector, or ok=false if none is pending. It does not mutate
// state; callers dispatch separately so diagnostics can inspect the
// pending vector before committing to it.
func (c *Core) PendingInterrupt() (vector uint32, ok bool) {
	for _, src := range c.interruptTable() {
		if c.IOBit(src.flagReg, src.flagBit) && c.IOBit(src.enableReg, src.enableBit) {
			return src.vector, true
		}
	}
	return 0, false
}

// levelSensitiveVectors holds the vectors whose flag is not cleared by
// dispatch: USART RXC and DRE are hardware-set/cleared by the UDR read/write
// side effects the UART peripheral installs (internal/peripherals/uart.go),
// not by taking the interrupt, unlike every edge-like source in the table.
var levelSensitiveVectors = map[uint32]bool{
	VecUSART0RXC: true, VecUSART0DRE: true,
	VecUSART1RXC: true, VecUSART1DRE: true,
	VecUSART2RXC: true, VecUSART2DRE: true,
	VecUSART3RXC: true, VecUSART3DRE: true,
}

// DispatchInterrupt pushes the return PC, clears the global interrupt
// enable bit, clears the source's flag bit, and sets PC to the vector
// constant itself, used directly as a flash word address (it is not scaled
// by a per-slot size). Callers must have already confirmed the global I-bit was
// set and PendingInterrupt returned a vector. Level-sensitive sources
// (USART RXC/DRE) are exempt: their flag only clears via its hardware-
// defined read/write side effect, never on dispatch.
func (c *Core) DispatchInterrupt(vector uint32) {
	c.PushPC(c.PC)
	c.setFlagBit(SREGBitI, false)
	if !levelSensitiveVectors[vector] {
		for _, src := range c.interruptTable() {
			if src.vector == vector {
				c.SetIOBit(src.flagReg, src.flagBit, false)
				break
			}
		}
	}
	c.PC = vector
}

// ServiceInterrupts checks for and, if the global interrupt flag is set,
// dispatches the highest-priority pending interrupt. Returns true if an
// interrupt was taken, letting the session step loop add the fixed entry
// cost to its cycle accounting.
func (c *Core) ServiceInterrupts() bool {
	if !c.flagBit(SREGBitI) {
		return false
	}
	vector, ok := c.PendingInterrupt()
	if !ok {
		return false
	}
	c.DispatchInterrupt(vector)
	return true
}
