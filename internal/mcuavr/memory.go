package mcuavr

// ReadData reads one byte from the unified data address space: general
// registers at 0..31, I/O space at 32..IOBytes-1, SRAM beyond that. Reads
// from I/O space run through any installed read hook.
func (c *Core) ReadData(addr uint16) byte {
	switch {
	case addr < 32:
		return c.Regs[addr]
	case int(addr) < c.Profile.IOBytes:
		v := c.IO[addr]
		if h, ok := c.readHooks[addr]; ok {
			return h(c, addr, v)
		}
		return v
	default:
		idx := int(addr) - c.Profile.IOBytes
		if idx < 0 || idx >= len(c.SRAM) {
			return 0
		}
		return c.SRAM[idx]
	}
}

// WriteData writes one byte into the unified data address space. Writes
// into I/O space run through any installed write hook, which may veto or
// transform the stored value (write-1-to-clear, busy-flag side effects).
func (c *Core) WriteData(addr uint16, value byte) {
	switch {
	case addr < 32:
		c.Regs[addr] = value
	case int(addr) < c.Profile.IOBytes:
		if h, ok := c.writeHooks[addr]; ok {
			c.IO[addr] = h(c, addr, value)
			return
		}
		c.IO[addr] = value
	default:
		idx := int(addr) - c.Profile.IOBytes
		if idx >= 0 && idx < len(c.SRAM) {
			c.SRAM[idx] = value
		}
	}
}

// WriteIORaw stores directly into the I/O backing array, bypassing any
// installed hook. Peripherals use this for hardware-driven updates (timer
// counting, UART shifting in a received byte) that must not re-trigger
// their own side-effect hooks.
func (c *Core) WriteIORaw(addr uint16, value byte) {
	if int(addr) >= 0 && int(addr) < len(c.IO) {
		c.IO[addr] = value
	}
}

// ReadIORaw loads directly from the I/O backing array, bypassing any
// installed read hook.
func (c *Core) ReadIORaw(addr uint16) byte {
	if int(addr) >= 0 && int(addr) < len(c.IO) {
		return c.IO[addr]
	}
	return 0
}

// SetIOBit sets or clears a single bit in the I/O backing array directly,
// bypassing hooks.
func (c *Core) SetIOBit(addr uint16, bit uint, v bool) {
	if v {
		c.IO[addr] |= 1 << bit
	} else {
		c.IO[addr] &^= 1 << bit
	}
}

// IOBit reads a single bit from the I/O backing array directly.
func (c *Core) IOBit(addr uint16, bit uint) bool {
	return c.IO[addr]&(1<<bit) != 0
}

// PushByte pushes one byte onto the stack, decrementing SP, matching the
// AVR convention that the stack grows downward and SP points at the next
// free byte.
func (c *Core) PushByte(v byte) {
	sp := c.SP()
	c.WriteData(sp, v)
	c.SetSP(sp - 1)
}

// PopByte pops one byte off the stack, incrementing SP first.
func (c *Core) PopByte() byte {
	sp := c.SP() + 1
	c.SetSP(sp)
	return c.ReadData(sp)
}

// PushPC pushes the return address (post-increment PC) onto the stack, low
// byte first then high then (on parts with flash over 128KiB) the extended
// byte, matching AVR CALL/interrupt entry order.
func (c *Core) PushPC(pc uint32) {
	c.PushByte(byte(pc))
	c.PushByte(byte(pc >> 8))
	if c.Profile.Family == FamilyM2560 {
		c.PushByte(byte(pc >> 16))
	}
}

// PopPC pops a return address off the stack in the mirror order PushPC used.
func (c *Core) PopPC() uint32 {
	var ext byte
	if c.Profile.Family == FamilyM2560 {
		ext = c.PopByte()
	}
	hi := c.PopByte()
	lo := c.PopByte()
	return uint32(ext)<<16 | uint32(hi)<<8 | uint32(lo)
}
