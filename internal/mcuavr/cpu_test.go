package mcuavr

import "testing"

func newTestCore() *Core {
	return NewCore(DefaultBoardProfile())
}

func writeWord(c *Core, wordAddr uint32, word uint16) {
	c.Flash[wordAddr*2] = byte(word)
	c.Flash[wordAddr*2+1] = byte(word >> 8)
}

func TestLdiAndAdd(t *testing.T) {
	c := newTestCore()
	writeWord(c, 0, 0xE105) // LDI r16, 0x15
	writeWord(c, 1, 0xE022) // LDI r18, 0x02

	// ADD r18,r16: 0000 11rd dddd rrrr, d=18(10010) r=16(10000).
	d := uint16(18)
	r := uint16(16)
	op := uint16(0x0C00) | (d&0x10)<<4 | (d&0x0F)<<4 | (r&0x10)<<5 | (r & 0x0F)
	writeWord(c, 2, op)

	c.Step()
	c.Step()
	c.Step()

	if got := c.Regs[18]; got != 0x17 {
		t.Fatalf("expected r18=0x17, got 0x%02X", got)
	}
	if c.PC != 3 {
		t.Fatalf("expected PC=3, got %d", c.PC)
	}
}

func TestBranchLoop(t *testing.T) {
	c := newTestCore()
	// r16 = 3; loop: dec r16; brne loop; done.
	writeWord(c, 0, 0xE003)              // LDI r16, 3
	writeWord(c, 1, 0x9400|(16<<4)|0x0A) // DEC r16
	writeWord(c, 2, 0xF7F1)              // BRNE -2 (BRBC Z,-2)

	for i := 0; i < 1000 && c.PC != 3; i++ {
		c.Step()
	}
	if c.Regs[16] != 0 {
		t.Fatalf("expected r16=0 after loop, got %d", c.Regs[16])
	}
}

func TestStackPushPop(t *testing.T) {
	c := newTestCore()
	c.SetSP(uint16(c.Profile.IOBytes + len(c.SRAM) - 1))
	c.Regs[5] = 0xAB
	c.PushByte(c.Regs[5])
	c.Regs[5] = 0
	c.Regs[5] = c.PopByte()
	if c.Regs[5] != 0xAB {
		t.Fatalf("expected 0xAB after push/pop, got 0x%02X", c.Regs[5])
	}
}

func TestIOReadWriteHooks(t *testing.T) {
	c := newTestCore()
	var written byte
	c.RegisterWriteHook(RegUDR0, func(c *Core, addr uint16, v byte) byte {
		written = v
		return v
	})
	c.WriteData(RegUDR0, 0x42)
	if written != 0x42 {
		t.Fatalf("write hook did not observe value")
	}
}

func TestDispatchInterruptLeavesUSARTRXCSet(t *testing.T) {
	c := newTestCore()
	c.SetIOBit(RegUCSR0A, 7, true) // RXC0
	c.SetIOBit(RegUCSR0B, 7, true) // RXCIE0
	c.setFlagBit(SREGBitI, true)

	if !c.ServiceInterrupts() {
		t.Fatalf("expected USART0 RXC interrupt to be serviced")
	}
	if c.PC != VecUSART0RXC {
		t.Fatalf("expected PC at USART0 RXC vector, got 0x%02X", c.PC)
	}
	if !c.IOBit(RegUCSR0A, 7) {
		t.Fatalf("RXC0 must stay set after dispatch; it only clears on UDR0 read")
	}
}

func TestDispatchInterruptClearsEdgeLikeFlag(t *testing.T) {
	c := newTestCore()
	c.SetIOBit(RegTIFR0, 0, true) // TOV0
	c.SetIOBit(RegTIMSK0, 0, true)
	c.setFlagBit(SREGBitI, true)

	if !c.ServiceInterrupts() {
		t.Fatalf("expected Timer0 overflow interrupt to be serviced")
	}
	if c.IOBit(RegTIFR0, 0) {
		t.Fatalf("expected TOV0 cleared on dispatch, an edge-like source")
	}
}

func TestMegaPinTableNoAliasing(t *testing.T) {
	seen := map[pinMapping]int{}
	for i, m := range megaPinTable {
		if prev, ok := seen[m]; ok {
			t.Fatalf("pin %d aliases pin %d onto the same DDR/PORT/bit %+v", i, prev, m)
		}
		seen[m] = i
	}
	if len(megaPinTable) != 70 {
		t.Fatalf("expected 70 entries (54 digital + 16 analog), got %d", len(megaPinTable))
	}
}

func TestMegaPinTableCoversPortsACL(t *testing.T) {
	c := NewCore(LookupBoardProfile("mega2560"))

	c.SetIOBit(RegDDRA, 4, true) // D26 configured as output
	if !c.IsPinOutput(26) {
		t.Fatalf("expected D26 (PA4) to report as output")
	}
	if c.IsPinOutput(22) || c.IsPinOutput(29) {
		t.Fatalf("D22/D29 (other PORTA pins) must not alias D26's bit")
	}

	c.SetIOBit(RegDDRC, 3, true) // D33 configured as output
	if !c.IsPinOutput(33) {
		t.Fatalf("expected D33 (PC3) to report as output")
	}
	if c.IsPinOutput(30) {
		t.Fatalf("D30 (PC0) must not alias D33's bit")
	}

	c.SetIOBit(RegDDRL, 5, true) // D47 configured as output
	if !c.IsPinOutput(47) {
		t.Fatalf("expected D47 (PL5) to report as output")
	}
	if c.IsPinOutput(42) {
		t.Fatalf("D42 (PL0) must not alias D47's bit")
	}
}

func TestBoardProfileLookup(t *testing.T) {
	p := LookupBoardProfile("Arduino Mega 2560")
	if p.Family != FamilyM2560 {
		t.Fatalf("expected mega family")
	}
	p = LookupBoardProfile("nano")
	if p.Family != FamilyM328P {
		t.Fatalf("expected 328p family for nano")
	}
}
