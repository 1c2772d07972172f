package emu

import (
	"github.com/sarchlab/gbacore/bitfield"
	"github.com/sarchlab/gbacore/insts"
)

// executeARM dispatches a 32-bit instruction whose condition passed.
func (c *CPU) executeARM(inst Slot) {
	w := inst.Word

	switch inst.Format {
	case insts.FormatDataProcessing:
		c.armDataProcessing(w)
	case insts.FormatMultiply:
		c.armMultiply(w)
	case insts.FormatMultiplyLong:
		c.armMultiplyLong(w)
	case insts.FormatSingleTransfer:
		c.armSingleTransfer(w)
	case insts.FormatHalfwordRegister, insts.FormatHalfwordImmediate:
		c.armHalfwordTransfer(inst)
	case insts.FormatSwap:
		c.armSwap(w)
	case insts.FormatBlockTransfer:
		c.armBlockTransfer(w)
	case insts.FormatBranch:
		c.armBranch(inst)
	case insts.FormatBranchExchange:
		c.branch.Exchange(c.readReg(w & 0xF))
	case insts.FormatStatusRead:
		c.armStatusRead(w)
	case insts.FormatStatusWrite:
		c.armStatusWrite(w)
	case insts.FormatSoftwareInterrupt:
		c.softwareInterrupt(bitfield.Field(w, 23, 16), inst.Addr+4)
	default:
		if inst.Format.IsCoprocessor() {
			c.unimplemented(inst)
			return
		}
		c.undefined(inst)
	}
}

// shifterOperand evaluates operand 2 of a data processing instruction.
func (c *CPU) shifterOperand(w uint32) (uint32, bool) {
	carry := c.regs.Flag(FlagC)

	if bitfield.Bit(w, 25) {
		return RotatedImmediate(w&0xFF, bitfield.Field(w, 11, 8), carry)
	}

	t := insts.ShiftType(bitfield.Field(w, 6, 5))
	rm := w & 0xF

	if !bitfield.Bit(w, 4) {
		return ShiftByImmediate(t, c.readReg(rm), bitfield.Field(w, 11, 7), carry)
	}

	// Register-specified shifts take an extra cycle, during which PC has
	// advanced another word.
	c.lsu.Internal(1)
	c.execPC += 4
	amount := c.readReg(bitfield.Field(w, 11, 8)) & 0xFF
	return ShiftByRegister(t, c.readReg(rm), amount, carry)
}

func (c *CPU) armDataProcessing(w uint32) {
	op := insts.DataOp(bitfield.Field(w, 24, 21))
	s := bitfield.Bit(w, 20)
	rn := bitfield.Field(w, 19, 16)
	rd := bitfield.Field(w, 15, 12)

	op2, shifterCarry := c.shifterOperand(w)
	op1 := c.readReg(rn)

	result, writes := c.alu.Data(op, op1, op2, shifterCarry, s && rd != 15)

	if s && rd == 15 {
		c.regs.SetCPSR(c.regs.SPSR())
	}
	if writes {
		c.writeReg(rd, result)
	}
}

func (c *CPU) armMultiply(w uint32) {
	accumulate := bitfield.Bit(w, 21)
	rd := bitfield.Field(w, 19, 16)
	rn := bitfield.Field(w, 15, 12)
	rs := c.readReg(bitfield.Field(w, 11, 8))
	rm := c.readReg(w & 0xF)

	result := c.alu.Multiply(rm, rs, c.readReg(rn), accumulate, bitfield.Bit(w, 20))

	cycles := MultiplyCycles(rs, true)
	if accumulate {
		cycles++
	}
	c.lsu.Internal(cycles)
	c.writeReg(rd, result)
}

func (c *CPU) armMultiplyLong(w uint32) {
	signed := bitfield.Bit(w, 22)
	accumulate := bitfield.Bit(w, 21)
	rdHi := bitfield.Field(w, 19, 16)
	rdLo := bitfield.Field(w, 15, 12)
	rs := c.readReg(bitfield.Field(w, 11, 8))
	rm := c.readReg(w & 0xF)

	hi, lo := c.alu.MultiplyLong(rm, rs, c.readReg(rdHi), c.readReg(rdLo),
		signed, accumulate, bitfield.Bit(w, 20))

	cycles := MultiplyCycles(rs, signed) + 1
	if accumulate {
		cycles++
	}
	c.lsu.Internal(cycles)
	c.writeReg(rdLo, lo)
	c.writeReg(rdHi, hi)
}

// transferAddress applies the P/U bits to base. It returns the address used
// by the access and the value written back to the base register.
func transferAddress(base, offset uint32, pre, up bool) (addr, writeback uint32) {
	target := base - offset
	if up {
		target = base + offset
	}
	if pre {
		return target, target
	}
	return base, target
}

func (c *CPU) armSingleTransfer(w uint32) {
	pre := bitfield.Bit(w, 24)
	up := bitfield.Bit(w, 23)
	byteWide := bitfield.Bit(w, 22)
	wb := bitfield.Bit(w, 21) || !pre
	load := bitfield.Bit(w, 20)
	rn := bitfield.Field(w, 19, 16)
	rd := bitfield.Field(w, 15, 12)

	offset := w & 0xFFF
	if bitfield.Bit(w, 25) {
		t := insts.ShiftType(bitfield.Field(w, 6, 5))
		offset, _ = ShiftByImmediate(t, c.readReg(w&0xF), bitfield.Field(w, 11, 7), c.regs.Flag(FlagC))
	}

	addr, newBase := transferAddress(c.readReg(rn), offset, pre, up)
	c.lsu.BeginTransfer()

	if load {
		var v uint32
		if byteWide {
			v = c.lsu.Load8(addr)
		} else {
			v = c.lsu.Load32(addr)
		}
		c.lsu.Internal(1)
		if wb && rn != rd {
			c.writeReg(rn, newBase)
		}
		c.writeReg(rd, v)
		return
	}

	v := c.readReg(rd)
	if rd == 15 {
		v += 4
	}
	if byteWide {
		c.lsu.Store8(addr, v)
	} else {
		c.lsu.Store32(addr, v)
	}
	if wb {
		c.writeReg(rn, newBase)
	}
}

func (c *CPU) armHalfwordTransfer(inst Slot) {
	w := inst.Word
	pre := bitfield.Bit(w, 24)
	up := bitfield.Bit(w, 23)
	wb := bitfield.Bit(w, 21) || !pre
	load := bitfield.Bit(w, 20)
	rn := bitfield.Field(w, 19, 16)
	rd := bitfield.Field(w, 15, 12)
	sh := bitfield.Field(w, 6, 5)

	if !load && sh != 1 {
		c.undefined(inst)
		return
	}

	var offset uint32
	if inst.Format == insts.FormatHalfwordImmediate {
		offset = bitfield.Field(w, 11, 8)<<4 | w&0xF
	} else {
		offset = c.readReg(w & 0xF)
	}

	addr, newBase := transferAddress(c.readReg(rn), offset, pre, up)
	c.lsu.BeginTransfer()

	if load {
		var v uint32
		switch sh {
		case 1:
			v = c.lsu.Load16(addr)
		case 2:
			v = c.lsu.LoadSigned8(addr)
		default:
			v = c.lsu.LoadSigned16(addr)
		}
		c.lsu.Internal(1)
		if wb && rn != rd {
			c.writeReg(rn, newBase)
		}
		c.writeReg(rd, v)
		return
	}

	v := c.readReg(rd)
	if rd == 15 {
		v += 4
	}
	c.lsu.Store16(addr, v)
	if wb {
		c.writeReg(rn, newBase)
	}
}

func (c *CPU) armSwap(w uint32) {
	byteWide := bitfield.Bit(w, 22)
	addr := c.readReg(bitfield.Field(w, 19, 16))
	rd := bitfield.Field(w, 15, 12)
	src := c.readReg(w & 0xF)

	c.lsu.BeginTransfer()
	var old uint32
	if byteWide {
		old = c.lsu.Load8(addr)
		c.lsu.Store8(addr, src)
	} else {
		old = c.lsu.Load32(addr)
		c.lsu.Store32(addr, src)
	}
	c.lsu.Internal(1)
	c.writeReg(rd, old)
}

// blockRange returns the lowest address touched by a block transfer of size
// bytes and the written-back base.
func blockRange(base, size uint32, pre, up bool) (start, newBase uint32) {
	switch {
	case up && !pre:
		return base, base + size
	case up && pre:
		return base + 4, base + size
	case !up && !pre:
		return base - size + 4, base - size
	}
	return base - size, base - size
}

func (c *CPU) armBlockTransfer(w uint32) {
	pre := bitfield.Bit(w, 24)
	up := bitfield.Bit(w, 23)
	psr := bitfield.Bit(w, 22)
	wb := bitfield.Bit(w, 21)
	load := bitfield.Bit(w, 20)
	rn := bitfield.Field(w, 19, 16)
	list := w & 0xFFFF

	// An empty list transfers R15 and moves the base by 16 words.
	size := uint32(bitfield.Count(list)) * 4
	if list == 0 {
		list = 1 << 15
		size = 0x40
	}

	base := c.readReg(rn)
	addr, newBase := blockRange(base, size, pre, up)
	withPC := bitfield.Bit(list, 15)
	userBank := psr && !(load && withPC)

	c.lsu.BeginTransfer()

	if load {
		var pc uint32
		for i := uint32(0); i < 16; i++ {
			if !bitfield.Bit(list, uint(i)) {
				continue
			}
			v := c.lsu.LoadAligned32(addr)
			addr += 4
			switch {
			case i == 15:
				pc = v
			case userBank:
				c.regs.SetUserReg(int(i), v)
			default:
				c.regs.R[i] = v
			}
		}
		c.lsu.Internal(1)

		if wb && !bitfield.Bit(list, uint(rn)) {
			c.writeReg(rn, newBase)
		}
		if withPC {
			if psr {
				c.regs.SetCPSR(c.regs.SPSR())
			}
			c.writeReg(15, pc)
		}
		return
	}

	first := true
	for i := uint32(0); i < 16; i++ {
		if !bitfield.Bit(list, uint(i)) {
			continue
		}
		var v uint32
		switch {
		case i == 15:
			v = c.execPC + 4
		case i == rn && wb && !first:
			v = newBase
		case userBank:
			v = c.regs.UserReg(int(i))
		default:
			v = c.regs.R[i]
		}
		c.lsu.Store32(addr, v)
		addr += 4
		first = false
	}
	if wb {
		c.writeReg(rn, newBase)
	}
}

func (c *CPU) armBranch(inst Slot) {
	offset := bitfield.SignExtend(inst.Word&0xFFFFFF, 24) << 2
	target := c.execPC + offset

	if bitfield.Bit(inst.Word, 24) {
		c.branch.BranchLink(target, inst.Addr+4)
		return
	}
	c.branch.Jump(target)
}

func (c *CPU) armStatusRead(w uint32) {
	psr := c.regs.CPSR()
	if bitfield.Bit(w, 22) {
		psr = c.regs.SPSR()
	}
	c.writeReg(bitfield.Field(w, 15, 12), uint32(psr))
}

// fieldMask expands the MSR field mask (bits 19:16, fsxc) to a byte mask.
func fieldMask(w uint32) StatusRegister {
	var mask StatusRegister
	for i, bytes := range [4]StatusRegister{0x000000FF, 0x0000FF00, 0x00FF0000, 0xFF000000} {
		if bitfield.Bit(w, uint(16+i)) {
			mask |= bytes
		}
	}
	return mask
}

func (c *CPU) armStatusWrite(w uint32) {
	var v uint32
	if bitfield.Bit(w, 25) {
		v, _ = RotatedImmediate(w&0xFF, bitfield.Field(w, 11, 8), false)
	} else {
		v = c.readReg(w & 0xF)
	}
	mask := fieldMask(w)

	if bitfield.Bit(w, 22) {
		old := c.regs.SPSR()
		c.regs.SetSPSR(old&^mask | StatusRegister(v)&mask)
		return
	}

	if !c.regs.Mode().Privileged() {
		mask &= 0xFF000000
	}
	mask &^= FlagT

	old := c.regs.CPSR()
	next := old&^mask | StatusRegister(v)&mask
	if !next.Mode().Valid() {
		next = next&^ModeMask | old&ModeMask
	}
	c.regs.SetCPSR(next)
}

// softwareInterrupt services SWI number through the configured handler or
// enters Supervisor mode with return address ret.
func (c *CPU) softwareInterrupt(number, ret uint32) {
	if c.swi != nil && c.swi(c, number) {
		return
	}
	c.raise(ExceptionSoftwareInterrupt, ret)
}
