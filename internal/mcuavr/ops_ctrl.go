package mcuavr

// registerCtrlOps installs NOP, the generic SREG bit set/clear family (SEI/
// CLI/SEC/CLC/... all share one encoding), port IN/OUT, PUSH/POP, and the
// two MCU control instructions SLEEP and WDR.
func registerCtrlOps() {
	addOp(0xFFFF, 0x0000, "nop", func(c *Core, op uint16) int {
		return 1
	})
	addOp(0xFF8F, 0x9408, "bset", func(c *Core, op uint16) int {
		b := uint(op>>4) & 0x07
		c.setFlagBit(b, true)
		return 1
	})
	addOp(0xFF8F, 0x9488, "bclr", func(c *Core, op uint16) int {
		b := uint(op>>4) & 0x07
		c.setFlagBit(b, false)
		return 1
	})
	addOp(0xF800, 0xB000, "in", func(c *Core, op uint16) int {
		d := regD5(op)
		addr := 32 + ioAddr6(op)
		c.Regs[d] = c.ReadData(addr)
		return 1
	})
	addOp(0xF800, 0xB800, "out", func(c *Core, op uint16) int {
		d := regD5(op)
		addr := 32 + ioAddr6(op)
		c.WriteData(addr, c.Regs[d])
		return 1
	})
	addOp(0xFE0F, 0x920F, "push", func(c *Core, op uint16) int {
		d := regD5(op)
		c.PushByte(c.Regs[d])
		return 2
	})
	addOp(0xFE0F, 0x900F, "pop", func(c *Core, op uint16) int {
		d := regD5(op)
		c.Regs[d] = c.PopByte()
		return 2
	})
	addOp(0xFFFF, 0x9588, "sleep", func(c *Core, op uint16) int {
		if c.OnSleep != nil {
			c.OnSleep()
		}
		return 1
	})
	addOp(0xFFFF, 0x95A8, "wdr", func(c *Core, op uint16) int {
		if c.OnWatchdogReset != nil {
			c.OnWatchdogReset()
		}
		return 1
	})
}
