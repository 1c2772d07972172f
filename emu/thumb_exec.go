package emu

import (
	"github.com/sarchlab/gbacore/bitfield"
	"github.com/sarchlab/gbacore/insts"
)

// executeThumb dispatches a 16-bit instruction.
func (c *CPU) executeThumb(inst Slot) {
	hw := inst.Word & 0xFFFF

	switch inst.Format {
	case insts.FormatThumbShiftImmediate:
		c.thumbShiftImmediate(hw)
	case insts.FormatThumbAddSubtract:
		c.thumbAddSubtract(hw)
	case insts.FormatThumbImmediate:
		c.thumbImmediate(hw)
	case insts.FormatThumbALU:
		c.thumbALU(hw)
	case insts.FormatThumbHiRegister:
		c.thumbHiRegister(hw)
	case insts.FormatThumbPCRelativeLoad:
		c.lsu.BeginTransfer()
		v := c.lsu.Load32(c.execPC&^3 + (hw&0xFF)*4)
		c.lsu.Internal(1)
		c.regs.R[bitfield.Field(hw, 10, 8)] = v
	case insts.FormatThumbRegisterOffset:
		c.thumbRegisterOffset(hw)
	case insts.FormatThumbSignExtended:
		c.thumbSignExtended(hw)
	case insts.FormatThumbImmediateOffset:
		c.thumbImmediateOffset(hw)
	case insts.FormatThumbHalfwordImmediate:
		c.thumbHalfwordImmediate(hw)
	case insts.FormatThumbStackRelative:
		c.thumbStackRelative(hw)
	case insts.FormatThumbLoadAddress:
		c.thumbLoadAddress(hw)
	case insts.FormatThumbAdjustStack:
		offset := (hw & 0x7F) * 4
		if bitfield.Bit(hw, 7) {
			c.regs.R[13] -= offset
		} else {
			c.regs.R[13] += offset
		}
	case insts.FormatThumbPushPop:
		c.thumbPushPop(hw)
	case insts.FormatThumbMultipleTransfer:
		c.thumbMultipleTransfer(hw)
	case insts.FormatThumbConditionalBranch:
		if CheckCondition(insts.Cond(bitfield.Field(hw, 11, 8)), c.regs.CPSR()) {
			c.branch.Jump(c.execPC + bitfield.SignExtend(hw&0xFF, 8)<<1)
		} else {
			c.last.ConditionPassed = false
		}
	case insts.FormatThumbSoftwareInterrupt:
		c.softwareInterrupt(hw&0xFF, inst.Addr+2)
	case insts.FormatThumbUnconditionalBranch:
		c.branch.Jump(c.execPC + bitfield.SignExtend(hw&0x7FF, 11)<<1)
	case insts.FormatThumbLongBranchLink:
		c.thumbLongBranchLink(inst)
	default:
		c.undefined(inst)
	}
}

// lowReg decodes a 3-bit low register field.
func lowReg(hw uint32, bit uint) uint32 {
	return bitfield.Field(hw, bit+2, bit)
}

func (c *CPU) thumbShiftImmediate(hw uint32) {
	t := insts.ShiftType(bitfield.Field(hw, 12, 11))
	rd := lowReg(hw, 0)
	v, carry := ShiftByImmediate(t, c.regs.R[lowReg(hw, 3)], bitfield.Field(hw, 10, 6), c.regs.Flag(FlagC))
	c.regs.R[rd], _ = c.alu.Data(insts.OpMOV, 0, v, carry, true)
}

func (c *CPU) thumbAddSubtract(hw uint32) {
	operand := bitfield.Field(hw, 8, 6)
	if !bitfield.Bit(hw, 10) {
		operand = c.regs.R[operand]
	}
	op := insts.OpADD
	if bitfield.Bit(hw, 9) {
		op = insts.OpSUB
	}
	c.regs.R[lowReg(hw, 0)], _ = c.alu.Data(op, c.regs.R[lowReg(hw, 3)], operand, false, true)
}

var thumbImmediateOps = [4]insts.DataOp{insts.OpMOV, insts.OpCMP, insts.OpADD, insts.OpSUB}

func (c *CPU) thumbImmediate(hw uint32) {
	op := thumbImmediateOps[bitfield.Field(hw, 12, 11)]
	rd := bitfield.Field(hw, 10, 8)
	result, writes := c.alu.Data(op, c.regs.R[rd], hw&0xFF, c.regs.Flag(FlagC), true)
	if writes {
		c.regs.R[rd] = result
	}
}

// thumbALUData maps the format 4 opcodes that are plain data processing
// operations with rd as the first operand.
var thumbALUData = map[insts.ThumbALUOp]insts.DataOp{
	insts.ThumbAND: insts.OpAND,
	insts.ThumbEOR: insts.OpEOR,
	insts.ThumbADC: insts.OpADC,
	insts.ThumbSBC: insts.OpSBC,
	insts.ThumbTST: insts.OpTST,
	insts.ThumbCMP: insts.OpCMP,
	insts.ThumbCMN: insts.OpCMN,
	insts.ThumbORR: insts.OpORR,
	insts.ThumbBIC: insts.OpBIC,
	insts.ThumbMVN: insts.OpMVN,
}

var thumbALUShifts = map[insts.ThumbALUOp]insts.ShiftType{
	insts.ThumbLSL: insts.ShiftLSL,
	insts.ThumbLSR: insts.ShiftLSR,
	insts.ThumbASR: insts.ShiftASR,
	insts.ThumbROR: insts.ShiftROR,
}

func (c *CPU) thumbALU(hw uint32) {
	op := insts.ThumbALUOp(bitfield.Field(hw, 9, 6))
	rs := c.regs.R[lowReg(hw, 3)]
	rd := lowReg(hw, 0)
	carry := c.regs.Flag(FlagC)

	if dp, ok := thumbALUData[op]; ok {
		result, writes := c.alu.Data(dp, c.regs.R[rd], rs, carry, true)
		if writes {
			c.regs.R[rd] = result
		}
		return
	}

	if t, ok := thumbALUShifts[op]; ok {
		v, shifterCarry := ShiftByRegister(t, c.regs.R[rd], rs&0xFF, carry)
		c.regs.R[rd], _ = c.alu.Data(insts.OpMOV, 0, v, shifterCarry, true)
		c.lsu.Internal(1)
		return
	}

	switch op {
	case insts.ThumbNEG:
		c.regs.R[rd], _ = c.alu.Data(insts.OpRSB, rs, 0, carry, true)
	case insts.ThumbMUL:
		c.lsu.Internal(MultiplyCycles(c.regs.R[rd], true))
		c.regs.R[rd] = c.alu.Multiply(c.regs.R[rd], rs, 0, false, true)
	}
}

func (c *CPU) thumbHiRegister(hw uint32) {
	rs := bitfield.Field(hw, 6, 3)
	rd := bitfield.Field(hw, 2, 0) | bitfield.Field(hw, 7, 7)<<3

	switch bitfield.Field(hw, 9, 8) {
	case 0:
		c.writeReg(rd, c.readReg(rd)+c.readReg(rs))
	case 1:
		c.alu.Data(insts.OpCMP, c.readReg(rd), c.readReg(rs), false, true)
	case 2:
		c.writeReg(rd, c.readReg(rs))
	case 3:
		c.branch.Exchange(c.readReg(rs))
	}
}

func (c *CPU) thumbRegisterOffset(hw uint32) {
	addr := c.regs.R[lowReg(hw, 3)] + c.regs.R[lowReg(hw, 6)]
	rd := lowReg(hw, 0)
	c.lsu.BeginTransfer()

	switch bitfield.Field(hw, 11, 10) {
	case 0:
		c.lsu.Store32(addr, c.regs.R[rd])
	case 1:
		c.lsu.Store8(addr, c.regs.R[rd])
	case 2:
		c.regs.R[rd] = c.lsu.Load32(addr)
		c.lsu.Internal(1)
	case 3:
		c.regs.R[rd] = c.lsu.Load8(addr)
		c.lsu.Internal(1)
	}
}

func (c *CPU) thumbSignExtended(hw uint32) {
	addr := c.regs.R[lowReg(hw, 3)] + c.regs.R[lowReg(hw, 6)]
	rd := lowReg(hw, 0)
	c.lsu.BeginTransfer()

	switch bitfield.Field(hw, 11, 10) {
	case 0:
		c.lsu.Store16(addr, c.regs.R[rd])
		return
	case 1:
		c.regs.R[rd] = c.lsu.LoadSigned8(addr)
	case 2:
		c.regs.R[rd] = c.lsu.Load16(addr)
	case 3:
		c.regs.R[rd] = c.lsu.LoadSigned16(addr)
	}
	c.lsu.Internal(1)
}

func (c *CPU) thumbImmediateOffset(hw uint32) {
	byteWide := bitfield.Bit(hw, 12)
	load := bitfield.Bit(hw, 11)
	offset := bitfield.Field(hw, 10, 6)
	if !byteWide {
		offset *= 4
	}
	addr := c.regs.R[lowReg(hw, 3)] + offset
	rd := lowReg(hw, 0)
	c.lsu.BeginTransfer()

	switch {
	case load && byteWide:
		c.regs.R[rd] = c.lsu.Load8(addr)
		c.lsu.Internal(1)
	case load:
		c.regs.R[rd] = c.lsu.Load32(addr)
		c.lsu.Internal(1)
	case byteWide:
		c.lsu.Store8(addr, c.regs.R[rd])
	default:
		c.lsu.Store32(addr, c.regs.R[rd])
	}
}

func (c *CPU) thumbHalfwordImmediate(hw uint32) {
	addr := c.regs.R[lowReg(hw, 3)] + bitfield.Field(hw, 10, 6)*2
	rd := lowReg(hw, 0)
	c.lsu.BeginTransfer()

	if bitfield.Bit(hw, 11) {
		c.regs.R[rd] = c.lsu.Load16(addr)
		c.lsu.Internal(1)
		return
	}
	c.lsu.Store16(addr, c.regs.R[rd])
}

func (c *CPU) thumbStackRelative(hw uint32) {
	addr := c.regs.R[13] + (hw&0xFF)*4
	rd := bitfield.Field(hw, 10, 8)
	c.lsu.BeginTransfer()

	if bitfield.Bit(hw, 11) {
		c.regs.R[rd] = c.lsu.Load32(addr)
		c.lsu.Internal(1)
		return
	}
	c.lsu.Store32(addr, c.regs.R[rd])
}

func (c *CPU) thumbLoadAddress(hw uint32) {
	base := c.execPC &^ 3
	if bitfield.Bit(hw, 11) {
		base = c.regs.R[13]
	}
	c.regs.R[bitfield.Field(hw, 10, 8)] = base + (hw&0xFF)*4
}

func (c *CPU) thumbPushPop(hw uint32) {
	load := bitfield.Bit(hw, 11)
	extra := bitfield.Bit(hw, 8)
	list := hw & 0xFF

	c.lsu.BeginTransfer()

	// An empty list with no extra register transfers PC and moves SP by 16
	// words.
	if list == 0 && !extra {
		if load {
			v := c.lsu.LoadAligned32(c.regs.R[13])
			c.regs.R[13] += 0x40
			c.lsu.Internal(1)
			c.branch.Jump(v)
		} else {
			c.regs.R[13] -= 0x40
			c.lsu.Store32(c.regs.R[13], c.execPC+2)
		}
		return
	}

	count := uint32(bitfield.Count(list))
	if extra {
		count++
	}

	if load {
		addr := c.regs.R[13]
		for i := uint32(0); i < 8; i++ {
			if bitfield.Bit(list, uint(i)) {
				c.regs.R[i] = c.lsu.LoadAligned32(addr)
				addr += 4
			}
		}
		var pc uint32
		if extra {
			pc = c.lsu.LoadAligned32(addr)
		}
		c.regs.R[13] += count * 4
		c.lsu.Internal(1)
		if extra {
			c.branch.Jump(pc)
		}
		return
	}

	addr := c.regs.R[13] - count*4
	c.regs.R[13] = addr
	for i := uint32(0); i < 8; i++ {
		if bitfield.Bit(list, uint(i)) {
			c.lsu.Store32(addr, c.regs.R[i])
			addr += 4
		}
	}
	if extra {
		c.lsu.Store32(addr, c.regs.R[14])
	}
}

func (c *CPU) thumbMultipleTransfer(hw uint32) {
	load := bitfield.Bit(hw, 11)
	rb := bitfield.Field(hw, 10, 8)
	list := hw & 0xFF
	base := c.regs.R[rb]

	c.lsu.BeginTransfer()

	if list == 0 {
		if load {
			c.regs.R[rb] = base + 0x40
			c.lsu.Internal(1)
			c.branch.Jump(c.lsu.LoadAligned32(base))
		} else {
			c.lsu.Store32(base, c.execPC+2)
			c.regs.R[rb] = base + 0x40
		}
		return
	}

	newBase := base + uint32(bitfield.Count(list))*4
	addr := base

	if load {
		for i := uint32(0); i < 8; i++ {
			if bitfield.Bit(list, uint(i)) {
				c.regs.R[i] = c.lsu.LoadAligned32(addr)
				addr += 4
			}
		}
		c.lsu.Internal(1)
		if !bitfield.Bit(list, uint(rb)) {
			c.regs.R[rb] = newBase
		}
		return
	}

	first := true
	for i := uint32(0); i < 8; i++ {
		if !bitfield.Bit(list, uint(i)) {
			continue
		}
		v := c.regs.R[i]
		if i == rb && !first {
			v = newBase
		}
		c.lsu.Store32(addr, v)
		addr += 4
		first = false
	}
	c.regs.R[rb] = newBase
}

func (c *CPU) thumbLongBranchLink(inst Slot) {
	offset := inst.Word & 0x7FF

	if !bitfield.Bit(inst.Word, 11) {
		c.regs.R[14] = c.execPC + bitfield.SignExtend(offset, 11)<<12
		return
	}

	target := c.regs.R[14] + offset<<1
	c.branch.BranchLink(target, (inst.Addr+2)|1)
}
