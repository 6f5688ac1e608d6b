package mcuavr

// registerBranchOps installs relative/absolute jumps and calls, return
// instructions, conditional branches, and the register-compare skips.
func registerBranchOps() {
	addOp(0xF000, 0xC000, "rjmp", func(c *Core, op uint16) int {
		k := signExtend12(op & 0x0FFF)
		c.PC = uint32(int32(c.PC) + int32(k))
		return 2
	})
	addOp(0xF000, 0xD000, "rcall", func(c *Core, op uint16) int {
		k := signExtend12(op & 0x0FFF)
		c.PushPC(c.PC)
		c.PC = uint32(int32(c.PC) + int32(k))
		return 3
	})
	addOp(0xFE0E, 0x940C, "jmp", func(c *Core, op uint16) int {
		lo := c.fetchWord(c.PC)
		hi := uint32(op>>3) & 0x3E
		hi |= uint32(op) & 0x01
		c.PC = hi<<16 | uint32(lo)
		return 3
	})
	addOp(0xFE0E, 0x940E, "call", func(c *Core, op uint16) int {
		lo := c.fetchWord(c.PC)
		next := c.PC + 1
		hi := uint32(op>>3) & 0x3E
		hi |= uint32(op) & 0x01
		c.PushPC(next)
		c.PC = hi<<16 | uint32(lo)
		return 4
	})
	addOp(0xFFFF, 0x9508, "ret", func(c *Core, op uint16) int {
		c.PC = c.PopPC()
		return 4
	})
	addOp(0xFFFF, 0x9518, "reti", func(c *Core, op uint16) int {
		c.PC = c.PopPC()
		c.setFlagBit(SREGBitI, true)
		return 4
	})
	addOp(0xFC00, 0x1000, "cpse", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		if c.Regs[d] == c.Regs[r] {
			return c.skipNextInstruction()
		}
		return 1
	})
	addOp(0xFE08, 0xFC00, "sbrc", func(c *Core, op uint16) int {
		d := regD5(op)
		b := bitNum(op)
		if c.Regs[d]&(1<<b) == 0 {
			return c.skipNextInstruction()
		}
		return 1
	})
	addOp(0xFE08, 0xFE00, "sbrs", func(c *Core, op uint16) int {
		d := regD5(op)
		b := bitNum(op)
		if c.Regs[d]&(1<<b) != 0 {
			return c.skipNextInstruction()
		}
		return 1
	})
	addOp(0xFC00, 0xF000, "brbs", func(c *Core, op uint16) int {
		b := uint(op & 0x07)
		k := signExtend7((op >> 3) & 0x7F)
		if c.flagBit(b) {
			c.PC = uint32(int32(c.PC) + int32(k))
			return 2
		}
		return 1
	})
	addOp(0xFC00, 0xF400, "brbc", func(c *Core, op uint16) int {
		b := uint(op & 0x07)
		k := signExtend7((op >> 3) & 0x7F)
		if !c.flagBit(b) {
			c.PC = uint32(int32(c.PC) + int32(k))
			return 2
		}
		return 1
	})
}
