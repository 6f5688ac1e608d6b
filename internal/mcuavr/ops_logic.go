package mcuavr

// registerLogicOps installs AND/OR/EOR and their immediate-operand forms.
func registerLogicOps() {
	addOp(0xFC00, 0x2000, "and", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		res := c.Regs[d] & c.Regs[r]
		c.Regs[d] = res
		c.updateLogicFlags(res)
		return 1
	})
	addOp(0xF000, 0x7000, "andi", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		res := c.Regs[d] & k
		c.Regs[d] = res
		c.updateLogicFlags(res)
		return 1
	})
	addOp(0xFC00, 0x2800, "or", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		res := c.Regs[d] | c.Regs[r]
		c.Regs[d] = res
		c.updateLogicFlags(res)
		return 1
	})
	addOp(0xF000, 0x6000, "ori", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		res := c.Regs[d] | k
		c.Regs[d] = res
		c.updateLogicFlags(res)
		return 1
	})
	addOp(0xFC00, 0x2400, "eor", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		res := c.Regs[d] ^ c.Regs[r]
		c.Regs[d] = res
		c.updateLogicFlags(res)
		return 1
	})
}
