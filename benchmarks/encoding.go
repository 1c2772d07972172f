package benchmarks

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/gbacore/insts"
)

// Helper functions for building ARM and Thumb programs. All ARM encoders
// produce unconditional instructions unless they take a condition.

const condAL = uint32(insts.CondAL) << 28

// EncodeImmediate returns the 12-bit rotated immediate field for v. It
// panics if v cannot be expressed as an 8-bit value rotated by an even
// amount.
func EncodeImmediate(v uint32) uint32 {
	for rot := uint32(0); rot < 16; rot++ {
		imm := bits.RotateLeft32(v, int(2*rot))
		if imm <= 0xFF {
			return rot<<8 | imm
		}
	}
	panic(fmt.Sprintf("immediate 0x%X cannot be encoded", v))
}

func encodeDataImm(op insts.DataOp, rd, rn uint32, imm uint32, setFlags bool) uint32 {
	inst := condAL | 1<<25 | uint32(op)<<21 | rn<<16 | rd<<12 | EncodeImmediate(imm)
	if setFlags {
		inst |= 1 << 20
	}
	return inst
}

func encodeDataReg(op insts.DataOp, rd, rn, rm uint32, setFlags bool) uint32 {
	inst := condAL | uint32(op)<<21 | rn<<16 | rd<<12 | rm
	if setFlags {
		inst |= 1 << 20
	}
	return inst
}

// EncodeMOVImm encodes MOV rd, #imm.
func EncodeMOVImm(rd, imm uint32) uint32 {
	return encodeDataImm(insts.OpMOV, rd, 0, imm, false)
}

// EncodeADDImm encodes ADD{S} rd, rn, #imm.
func EncodeADDImm(rd, rn, imm uint32, setFlags bool) uint32 {
	return encodeDataImm(insts.OpADD, rd, rn, imm, setFlags)
}

// EncodeSUBImm encodes SUB{S} rd, rn, #imm.
func EncodeSUBImm(rd, rn, imm uint32, setFlags bool) uint32 {
	return encodeDataImm(insts.OpSUB, rd, rn, imm, setFlags)
}

// EncodeCMPImm encodes CMP rn, #imm.
func EncodeCMPImm(rn, imm uint32) uint32 {
	return encodeDataImm(insts.OpCMP, 0, rn, imm, true)
}

// EncodeADDReg encodes ADD{S} rd, rn, rm.
func EncodeADDReg(rd, rn, rm uint32, setFlags bool) uint32 {
	return encodeDataReg(insts.OpADD, rd, rn, rm, setFlags)
}

// EncodeMUL encodes MUL rd, rm, rs.
func EncodeMUL(rd, rm, rs uint32) uint32 {
	return condAL | rd<<16 | rs<<8 | 0x9<<4 | rm
}

// EncodeMLA encodes MLA rd, rm, rs, rn.
func EncodeMLA(rd, rm, rs, rn uint32) uint32 {
	return condAL | 1<<21 | rd<<16 | rn<<12 | rs<<8 | 0x9<<4 | rm
}

// EncodeLDR encodes LDR rd, [rn, #imm12].
func EncodeLDR(rd, rn, imm12 uint32) uint32 {
	return condAL | 0x59<<20 | rn<<16 | rd<<12 | imm12&0xFFF
}

// EncodeSTR encodes STR rd, [rn, #imm12].
func EncodeSTR(rd, rn, imm12 uint32) uint32 {
	return condAL | 0x58<<20 | rn<<16 | rd<<12 | imm12&0xFFF
}

// EncodeLDMIA encodes LDMIA rn!, {list}.
func EncodeLDMIA(rn uint32, list uint16) uint32 {
	return condAL | 0x8B<<20 | rn<<16 | uint32(list)
}

// EncodeSTMIA encodes STMIA rn!, {list}.
func EncodeSTMIA(rn uint32, list uint16) uint32 {
	return condAL | 0x8A<<20 | rn<<16 | uint32(list)
}

// EncodeB encodes a conditional branch placed at from that jumps to to.
func EncodeB(cond insts.Cond, from, to uint32) uint32 {
	offset := (int32(to) - int32(from) - 8) >> 2
	return uint32(cond)<<28 | 0xA<<24 | uint32(offset)&0xFFFFFF
}

// EncodeBL encodes BL placed at from that calls to.
func EncodeBL(from, to uint32) uint32 {
	offset := (int32(to) - int32(from) - 8) >> 2
	return condAL | 0xB<<24 | uint32(offset)&0xFFFFFF
}

// EncodeBX encodes BX rm.
func EncodeBX(rm uint32) uint32 {
	return condAL | 0x012FFF10 | rm
}

// EncodeSWI encodes SWI with the BIOS call number in bits 23:16.
func EncodeSWI(number uint32) uint32 {
	return condAL | 0xF<<24 | (number&0xFF)<<16
}

// EncodeThumbMOVImm encodes MOV rd, #imm8.
func EncodeThumbMOVImm(rd, imm uint32) uint16 {
	return uint16(0x2000 | rd<<8 | imm&0xFF)
}

// EncodeThumbADDImm encodes ADD rd, #imm8.
func EncodeThumbADDImm(rd, imm uint32) uint16 {
	return uint16(0x3000 | rd<<8 | imm&0xFF)
}

// EncodeThumbSUBImm encodes SUB rd, #imm8.
func EncodeThumbSUBImm(rd, imm uint32) uint16 {
	return uint16(0x3800 | rd<<8 | imm&0xFF)
}

// EncodeThumbB encodes a conditional branch placed at from that jumps to to.
func EncodeThumbB(cond insts.Cond, from, to uint32) uint16 {
	offset := (int32(to) - int32(from) - 4) >> 1
	return uint16(0xD000 | uint32(cond)<<8 | uint32(offset)&0xFF)
}

// EncodeThumbSWI encodes SWI #number.
func EncodeThumbSWI(number uint32) uint16 {
	return uint16(0xDF00 | number&0xFF)
}
