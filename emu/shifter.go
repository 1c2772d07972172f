package emu

import (
	"math/bits"

	"github.com/sarchlab/gbacore/bitfield"
	"github.com/sarchlab/gbacore/insts"
)

// LSL shifts v left by amount. An amount of zero leaves the carry unchanged.
func LSL(v, amount uint32, carry bool) (uint32, bool) {
	switch {
	case amount == 0:
		return v, carry
	case amount < 32:
		return v << amount, (v>>(32-amount))&1 == 1
	case amount == 32:
		return 0, v&1 == 1
	}
	return 0, false
}

// LSR shifts v right by amount, filling with zeros.
func LSR(v, amount uint32, carry bool) (uint32, bool) {
	switch {
	case amount == 0:
		return v, carry
	case amount < 32:
		return v >> amount, (v>>(amount-1))&1 == 1
	case amount == 32:
		return 0, v>>31 == 1
	}
	return 0, false
}

// ASR shifts v right by amount, filling with the sign bit.
func ASR(v, amount uint32, carry bool) (uint32, bool) {
	switch {
	case amount == 0:
		return v, carry
	case amount < 32:
		return uint32(int32(v) >> amount), (v>>(amount-1))&1 == 1
	}
	if v>>31 == 1 {
		return 0xFFFFFFFF, true
	}
	return 0, false
}

// ROR rotates v right by amount. Multiples of 32 leave the value unchanged
// and copy bit 31 into the carry.
func ROR(v, amount uint32, carry bool) (uint32, bool) {
	if amount == 0 {
		return v, carry
	}
	amount &= 31
	if amount == 0 {
		return v, v>>31 == 1
	}
	return bits.RotateLeft32(v, -int(amount)), (v>>(amount-1))&1 == 1
}

// RRX rotates v right by one bit through the carry.
func RRX(v uint32, carry bool) (uint32, bool) {
	return bitfield.Bool[uint32](carry)<<31 | v>>1, v&1 == 1
}

// ShiftByImmediate applies the immediate-shift encoding used by ARM
// operand 2 and Thumb format 1, where an amount of zero selects LSR #32,
// ASR #32 or RRX.
func ShiftByImmediate(t insts.ShiftType, v, amount uint32, carry bool) (uint32, bool) {
	switch t {
	case insts.ShiftLSL:
		return LSL(v, amount, carry)
	case insts.ShiftLSR:
		if amount == 0 {
			amount = 32
		}
		return LSR(v, amount, carry)
	case insts.ShiftASR:
		if amount == 0 {
			amount = 32
		}
		return ASR(v, amount, carry)
	}
	if amount == 0 {
		return RRX(v, carry)
	}
	return ROR(v, amount, carry)
}

// ShiftByRegister applies a shift whose amount comes from the bottom byte of
// a register. An amount of zero leaves both value and carry unchanged.
func ShiftByRegister(t insts.ShiftType, v, amount uint32, carry bool) (uint32, bool) {
	amount &= 0xFF
	switch t {
	case insts.ShiftLSL:
		return LSL(v, amount, carry)
	case insts.ShiftLSR:
		return LSR(v, amount, carry)
	case insts.ShiftASR:
		return ASR(v, amount, carry)
	}
	return ROR(v, amount, carry)
}

// RotatedImmediate decodes the 8-bit immediate rotated right by twice the
// 4-bit rotate field.
func RotatedImmediate(imm8, rotate uint32, carry bool) (uint32, bool) {
	if rotate == 0 {
		return imm8, carry
	}
	v := bits.RotateLeft32(imm8, -int(rotate*2))
	return v, v>>31 == 1
}
