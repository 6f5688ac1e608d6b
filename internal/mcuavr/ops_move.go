package mcuavr

// pairValue/setPairValue read and write the 16-bit X/Y/Z pointer registers,
// stored as consecutive low:high register pairs per the AVR convention.
func (c *Core) pairValue(lo byte) uint16 {
	return uint16(c.Regs[lo]) | uint16(c.Regs[lo+1])<<8
}

func (c *Core) setPairValue(lo byte, v uint16) {
	c.Regs[lo] = byte(v)
	c.Regs[lo+1] = byte(v >> 8)
}

// dispQ extracts the 6-bit displacement embedded in LDD/STD Y+q / Z+q
// opcodes, spread across bit13, bits11-10 and bits2-0 of the word.
func dispQ(op uint16) uint16 {
	return (op>>8)&0x20 | (op>>7)&0x18 | op&0x07
}

// registerMoveOps installs register-to-register moves, immediate loads,
// direct/indirect SRAM load-store (X/Y/Z with post-increment, pre-decrement
// and displacement addressing), and program-memory LPM reads.
func registerMoveOps() {
	addOp(0xFC00, 0x2C00, "mov", func(c *Core, op uint16) int {
		d, r := regD5(op), regR5(op)
		c.Regs[d] = c.Regs[r]
		return 1
	})
	addOp(0xFF00, 0x0100, "movw", func(c *Core, op uint16) int {
		d := byte(op>>4&0x0F) * 2
		r := byte(op&0x0F) * 2
		c.Regs[d] = c.Regs[r]
		c.Regs[d+1] = c.Regs[r+1]
		return 1
	})
	addOp(0xF000, 0xE000, "ldi", func(c *Core, op uint16) int {
		d, k := regD4(op), imm8(op)
		c.Regs[d] = k
		return 1
	})
	addOp(0xFE0F, 0x9000, "lds", func(c *Core, op uint16) int {
		d := regD5(op)
		addr := c.fetchWord(c.PC)
		c.PC++
		c.Regs[d] = c.ReadData(addr)
		return 2
	})
	addOp(0xFE0F, 0x9200, "sts", func(c *Core, op uint16) int {
		d := regD5(op)
		addr := c.fetchWord(c.PC)
		c.PC++
		c.WriteData(addr, c.Regs[d])
		return 2
	})
	// LD/ST via X (26:27), no displacement form exists for X.
	addOp(0xFE0F, 0x900C, "ld_x", func(c *Core, op uint16) int {
		d := regD5(op)
		c.Regs[d] = c.ReadData(c.pairValue(26))
		return 2
	})
	addOp(0xFE0F, 0x900D, "ld_x+", func(c *Core, op uint16) int {
		d := regD5(op)
		x := c.pairValue(26)
		c.Regs[d] = c.ReadData(x)
		c.setPairValue(26, x+1)
		return 2
	})
	addOp(0xFE0F, 0x900E, "ld_-x", func(c *Core, op uint16) int {
		d := regD5(op)
		x := c.pairValue(26) - 1
		c.setPairValue(26, x)
		c.Regs[d] = c.ReadData(x)
		return 3
	})
	addOp(0xFE0F, 0x920C, "st_x", func(c *Core, op uint16) int {
		r := regD5(op)
		c.WriteData(c.pairValue(26), c.Regs[r])
		return 2
	})
	addOp(0xFE0F, 0x920D, "st_x+", func(c *Core, op uint16) int {
		r := regD5(op)
		x := c.pairValue(26)
		c.WriteData(x, c.Regs[r])
		c.setPairValue(26, x+1)
		return 2
	})
	addOp(0xFE0F, 0x920E, "st_-x", func(c *Core, op uint16) int {
		r := regD5(op)
		x := c.pairValue(26) - 1
		c.setPairValue(26, x)
		c.WriteData(x, c.Regs[r])
		return 2
	})
	// Post-increment / pre-decrement Y and Z (q=0 plain forms collapse into
	// the displacement handlers registered below).
	addOp(0xFE0F, 0x9009, "ld_y+", func(c *Core, op uint16) int {
		d := regD5(op)
		y := c.pairValue(28)
		c.Regs[d] = c.ReadData(y)
		c.setPairValue(28, y+1)
		return 2
	})
	addOp(0xFE0F, 0x900A, "ld_-y", func(c *Core, op uint16) int {
		d := regD5(op)
		y := c.pairValue(28) - 1
		c.setPairValue(28, y)
		c.Regs[d] = c.ReadData(y)
		return 3
	})
	addOp(0xFE0F, 0x9209, "st_y+", func(c *Core, op uint16) int {
		r := regD5(op)
		y := c.pairValue(28)
		c.WriteData(y, c.Regs[r])
		c.setPairValue(28, y+1)
		return 2
	})
	addOp(0xFE0F, 0x920A, "st_-y", func(c *Core, op uint16) int {
		r := regD5(op)
		y := c.pairValue(28) - 1
		c.setPairValue(28, y)
		c.WriteData(y, c.Regs[r])
		return 2
	})
	addOp(0xFE0F, 0x9001, "ld_z+", func(c *Core, op uint16) int {
		d := regD5(op)
		z := c.pairValue(30)
		c.Regs[d] = c.ReadData(z)
		c.setPairValue(30, z+1)
		return 2
	})
	addOp(0xFE0F, 0x9002, "ld_-z", func(c *Core, op uint16) int {
		d := regD5(op)
		z := c.pairValue(30) - 1
		c.setPairValue(30, z)
		c.Regs[d] = c.ReadData(z)
		return 3
	})
	addOp(0xFE0F, 0x9201, "st_z+", func(c *Core, op uint16) int {
		r := regD5(op)
		z := c.pairValue(30)
		c.WriteData(z, c.Regs[r])
		c.setPairValue(30, z+1)
		return 2
	})
	addOp(0xFE0F, 0x9202, "st_-z", func(c *Core, op uint16) int {
		r := regD5(op)
		z := c.pairValue(30) - 1
		c.setPairValue(30, z)
		c.WriteData(z, c.Regs[r])
		return 2
	})
	// LDD/STD Y+q and Z+q (q=0 is the plain "LD Rd,Y"/"LD Rd,Z" form).
	addOp(0xD208, 0x8008, "ldd_y", func(c *Core, op uint16) int {
		d := regD5(op)
		c.Regs[d] = c.ReadData(c.pairValue(28) + dispQ(op))
		return 2
	})
	addOp(0xD208, 0x8000, "ldd_z", func(c *Core, op uint16) int {
		d := regD5(op)
		c.Regs[d] = c.ReadData(c.pairValue(30) + dispQ(op))
		return 2
	})
	addOp(0xD208, 0x8208, "std_y", func(c *Core, op uint16) int {
		r := regD5(op)
		c.WriteData(c.pairValue(28)+dispQ(op), c.Regs[r])
		return 2
	})
	addOp(0xD208, 0x8200, "std_z", func(c *Core, op uint16) int {
		r := regD5(op)
		c.WriteData(c.pairValue(30)+dispQ(op), c.Regs[r])
		return 2
	})
	addOp(0xFFFF, 0x95C8, "lpm", func(c *Core, op uint16) int {
		c.Regs[0] = c.lpmByte(c.pairValue(30))
		return 3
	})
	addOp(0xFE0F, 0x9004, "lpm_z", func(c *Core, op uint16) int {
		d := regD5(op)
		c.Regs[d] = c.lpmByte(c.pairValue(30))
		return 3
	})
	addOp(0xFE0F, 0x9005, "lpm_z+", func(c *Core, op uint16) int {
		d := regD5(op)
		z := c.pairValue(30)
		c.Regs[d] = c.lpmByte(z)
		c.setPairValue(30, z+1)
		return 3
	})
}

// lpmByte reads one byte from flash at a byte address, as addressed by the
// Z register for LPM.
func (c *Core) lpmByte(byteAddr uint16) byte {
	if int(byteAddr) >= len(c.Flash) {
		return 0xFF
	}
	return c.Flash[byteAddr]
}
