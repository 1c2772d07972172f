package emu

import (
	"math/bits"

	"github.com/sarchlab/gbacore/bitfield"
	"github.com/sarchlab/gbacore/insts"
)

// AddWithCarry returns a + b + carryIn together with the unsigned carry out
// and signed overflow of the 32-bit addition. Subtraction a - b is
// AddWithCarry(a, ^b, true); subtract-with-carry passes the current C flag.
func AddWithCarry(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	sum, out := bits.Add32(a, b, bitfield.Bool[uint32](carryIn))
	overflow = (^(a^b)&(a^sum))>>31 == 1
	return sum, out == 1, overflow
}

// ALU implements ARM data processing and multiply operations. All flag
// updates go through setLogicalFlags or setArithmeticFlags.
type ALU struct {
	regs *RegisterFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regs *RegisterFile) *ALU {
	return &ALU{regs: regs}
}

// setLogicalFlags updates N and Z from result and C from the shifter carry.
// V is preserved.
func (a *ALU) setLogicalFlags(result uint32, carry bool) {
	cpsr := a.regs.cpsr &^ (FlagN | FlagZ | FlagC)
	cpsr |= StatusRegister(result & uint32(FlagN))
	if result == 0 {
		cpsr |= FlagZ
	}
	if carry {
		cpsr |= FlagC
	}
	a.regs.cpsr = cpsr
}

// setArithmeticFlags updates N, Z, C and V.
func (a *ALU) setArithmeticFlags(result uint32, carry, overflow bool) {
	a.setLogicalFlags(result, carry)
	a.regs.cpsr = a.regs.cpsr.With(FlagV, overflow)
}

// Data performs a data processing operation. shifterCarry is the carry out
// of the operand-2 shifter, used by logical operations. It returns the result
// and whether the opcode writes a destination register.
func (a *ALU) Data(op insts.DataOp, op1, op2 uint32, shifterCarry, setFlags bool) (uint32, bool) {
	carryIn := a.regs.cpsr.Has(FlagC)

	var (
		result          uint32
		carry, overflow bool
	)

	switch op {
	case insts.OpAND, insts.OpTST:
		result = op1 & op2
	case insts.OpEOR, insts.OpTEQ:
		result = op1 ^ op2
	case insts.OpSUB, insts.OpCMP:
		result, carry, overflow = AddWithCarry(op1, ^op2, true)
	case insts.OpRSB:
		result, carry, overflow = AddWithCarry(op2, ^op1, true)
	case insts.OpADD, insts.OpCMN:
		result, carry, overflow = AddWithCarry(op1, op2, false)
	case insts.OpADC:
		result, carry, overflow = AddWithCarry(op1, op2, carryIn)
	case insts.OpSBC:
		result, carry, overflow = AddWithCarry(op1, ^op2, carryIn)
	case insts.OpRSC:
		result, carry, overflow = AddWithCarry(op2, ^op1, carryIn)
	case insts.OpORR:
		result = op1 | op2
	case insts.OpMOV:
		result = op2
	case insts.OpBIC:
		result = op1 &^ op2
	case insts.OpMVN:
		result = ^op2
	}

	if setFlags {
		if op.IsLogical() {
			a.setLogicalFlags(result, shifterCarry)
		} else {
			a.setArithmeticFlags(result, carry, overflow)
		}
	}

	return result, !op.IsTest()
}

// Multiply computes rm * rs (+ acc) truncated to 32 bits. Flags N and Z are
// updated when setFlags is true; C and V are left unchanged.
func (a *ALU) Multiply(rm, rs, acc uint32, accumulate, setFlags bool) uint32 {
	result := rm * rs
	if accumulate {
		result += acc
	}
	if setFlags {
		a.setLogicalFlags(result, a.regs.cpsr.Has(FlagC))
	}
	return result
}

// MultiplyLong computes the 64-bit product of rm and rs, signed or unsigned,
// optionally adding the accumulator formed by hi:lo.
func (a *ALU) MultiplyLong(rm, rs, hi, lo uint32, signed, accumulate, setFlags bool) (uint32, uint32) {
	var product uint64
	if signed {
		product = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		product = uint64(rm) * uint64(rs)
	}
	if accumulate {
		product += uint64(hi)<<32 | uint64(lo)
	}

	resHi, resLo := uint32(product>>32), uint32(product)
	if setFlags {
		// Fold the low word into bit 0 so Z reflects all 64 bits.
		folded := resHi | bitfield.Bool[uint32](resLo != 0)
		a.setLogicalFlags(folded, a.regs.cpsr.Has(FlagC))
	}
	return resHi, resLo
}

// MultiplyCycles returns the number of internal cycles the ARM7TDMI
// multiplier array needs for operand rs. Signed multiplies terminate early
// on leading ones as well as leading zeros.
func MultiplyCycles(rs uint32, signed bool) int {
	check := func(mask uint32) bool {
		top := rs & mask
		return top == 0 || (signed && top == mask)
	}
	switch {
	case check(0xFFFFFF00):
		return 1
	case check(0xFFFF0000):
		return 2
	case check(0xFF000000):
		return 3
	}
	return 4
}
