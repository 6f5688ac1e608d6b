package mcuavr

// registerArithOps installs the ALU instruction family: 8-bit add/sub/
// compare variants, increment/decrement/negate/complement, multiply, and
// the 16-bit ADIW/SBIW word adjust pair.
func registerArithOps() {
	addOp(0xFC00, 0x0C00, "add", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		res := a + b
		c.Regs[d] = res
		c.updateAddFlags(a, b, res, false)
		return 1
	})
	addOp(0xFC00, 0x1C00, "adc", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		carry := byte(0)
		if c.flagBit(SREGBitC) {
			carry = 1
		}
		res := a + b + carry
		c.Regs[d] = res
		c.updateAddFlags(a, b, res, carry != 0)
		return 1
	})
	addOp(0xFC00, 0x1800, "sub", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		res := a - b
		c.Regs[d] = res
		c.updateSubFlags(a, b, res, false)
		return 1
	})
	addOp(0xFC00, 0x0800, "sbc", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		carry := byte(0)
		if c.flagBit(SREGBitC) {
			carry = 1
		}
		res := a - b - carry
		c.Regs[d] = res
		c.updateSubFlags(a, b, res, true)
		return 1
	})
	addOp(0xF000, 0x5000, "subi", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		a := c.Regs[d]
		res := a - k
		c.Regs[d] = res
		c.updateSubFlags(a, k, res, false)
		return 1
	})
	addOp(0xF000, 0x4000, "sbci", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		a := c.Regs[d]
		carry := byte(0)
		if c.flagBit(SREGBitC) {
			carry = 1
		}
		res := a - k - carry
		c.Regs[d] = res
		c.updateSubFlags(a, k, res, true)
		return 1
	})
	addOp(0xFC00, 0x1400, "cp", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		c.updateSubFlags(a, b, a-b, false)
		return 1
	})
	addOp(0xFC00, 0x0400, "cpc", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		a, b := c.Regs[d], c.Regs[r]
		carry := byte(0)
		if c.flagBit(SREGBitC) {
			carry = 1
		}
		c.updateSubFlags(a, b, a-b-carry, true)
		return 1
	})
	addOp(0xF000, 0x3000, "cpi", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		a := c.Regs[d]
		c.updateSubFlags(a, k, a-k, false)
		return 1
	})
	addOp(0xFE0F, 0x9403, "inc", func(c *Core, op uint16) int {
		d := regD5(op)
		a := c.Regs[d]
		r := a + 1
		c.Regs[d] = r
		c.updateIncDecFlags(r, a == 0x7F)
		return 1
	})
	addOp(0xFE0F, 0x940A, "dec", func(c *Core, op uint16) int {
		d := regD5(op)
		a := c.Regs[d]
		r := a - 1
		c.Regs[d] = r
		c.updateIncDecFlags(r, a == 0x80)
		return 1
	})
	addOp(0xFE0F, 0x9400, "com", func(c *Core, op uint16) int {
		d := regD5(op)
		r := ^c.Regs[d]
		c.Regs[d] = r
		c.updateLogicFlags(r)
		c.setFlagBit(SREGBitC, true)
		return 1
	})
	addOp(0xFE0F, 0x9401, "neg", func(c *Core, op uint16) int {
		d := regD5(op)
		a := c.Regs[d]
		r := byte(0) - a
		c.Regs[d] = r
		c.updateSubFlags(0, a, r, false)
		c.setFlagBit(SREGBitC, a != 0)
		return 1
	})
	addOp(0xFC00, 0x9C00, "mul", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		res := uint16(c.Regs[d]) * uint16(c.Regs[r])
		c.Regs[0] = byte(res)
		c.Regs[1] = byte(res >> 8)
		c.setFlagBit(SREGBitC, res&0x8000 != 0)
		c.setFlagBit(SREGBitZ, res == 0)
		return 2
	})
	pairRegs := [4]byte{24, 26, 28, 30}
	addOp(0xFF00, 0x9600, "adiw", func(c *Core, op uint16) int {
		pr := pairRegs[(op>>4)&0x03]
		k := uint16(op&0x0F) | uint16(op>>2)&0x30
		lo, hi := c.Regs[pr], c.Regs[pr+1]
		v := uint16(lo) | uint16(hi)<<8
		res := v + k
		c.Regs[pr] = byte(res)
		c.Regs[pr+1] = byte(res >> 8)
		c.setFlagBit(SREGBitC, res < v)
		c.setFlagBit(SREGBitN, res&0x8000 != 0)
		c.setFlagBit(SREGBitZ, res == 0)
		v16 := (res&0x8000 != 0) && (v&0x8000 == 0)
		c.setFlagBit(SREGBitV, v16)
		c.setFlagBit(SREGBitS, c.flagBit(SREGBitN) != v16)
		return 2
	})
	addOp(0xFF00, 0x9700, "sbiw", func(c *Core, op uint16) int {
		pr := pairRegs[(op>>4)&0x03]
		k := uint16(op&0x0F) | uint16(op>>2)&0x30
		lo, hi := c.Regs[pr], c.Regs[pr+1]
		v := uint16(lo) | uint16(hi)<<8
		res := v - k
		c.Regs[pr] = byte(res)
		c.Regs[pr+1] = byte(res >> 8)
		c.setFlagBit(SREGBitC, v < k)
		c.setFlagBit(SREGBitN, res&0x8000 != 0)
		c.setFlagBit(SREGBitZ, res == 0)
		v16 := (v&0x8000 != 0) && (res&0x8000 == 0)
		c.setFlagBit(SREGBitV, v16)
		c.setFlagBit(SREGBitS, c.flagBit(SREGBitN) != v16)
		return 2
	})
}
