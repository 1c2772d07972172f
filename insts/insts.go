// Package insts provides ARMv4T instruction definitions and decoding.
//
// This package classifies raw instruction words of the two ARM7TDMI
// instruction sets into format tags:
//   - ARM (32-bit): data processing, multiply, single and block transfers,
//     halfword transfers, swap, status register moves, branches, SWI and
//     coprocessor encodings
//   - Thumb (16-bit): the 19 Thumb formats, from move-shifted-register to
//     long branch with link
//
// Classification is table driven. Each instruction set has a prioritized list
// of bit patterns; the first matching pattern determines the format.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	format := decoder.Decode(0xE3A00005, insts.SetARM) // MOV R0, #5
//	fmt.Println(format, insts.Disassemble(0xE3A00005, insts.SetARM, 0x08000000))
package insts

// InstructionSet selects how fetched words are interpreted.
type InstructionSet uint8

// Instruction sets.
const (
	SetARM   InstructionSet = iota // 32-bit words
	SetThumb                       // 16-bit halfwords
)

// Width returns the size in bytes of one instruction of the set.
func (s InstructionSet) Width() uint32 {
	if s == SetThumb {
		return 2
	}
	return 4
}

func (s InstructionSet) String() string {
	if s == SetThumb {
		return "thumb"
	}
	return "arm"
}

// Cond represents an ARM condition code.
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Never (reserved on ARMv4)
)

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

func (c Cond) String() string {
	return condNames[c&0xF]
}

// ShiftType represents a barrel shifter operation.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right (RRX when the amount is zero)
)

func (s ShiftType) String() string {
	return [...]string{"lsl", "lsr", "asr", "ror"}[s&3]
}

// DataOp is the 4-bit opcode of an ARM data processing instruction.
type DataOp uint8

// Data processing opcodes.
const (
	OpAND DataOp = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
)

var dataOpNames = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

func (o DataOp) String() string {
	return dataOpNames[o&0xF]
}

// IsTest reports whether the opcode only updates flags (TST, TEQ, CMP, CMN).
func (o DataOp) IsTest() bool {
	return o >= OpTST && o <= OpCMN
}

// IsLogical reports whether the opcode takes its carry from the shifter.
func (o DataOp) IsLogical() bool {
	switch o {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	}
	return false
}

// ThumbALUOp is the 4-bit opcode of a Thumb ALU operation (format 4).
type ThumbALUOp uint8

// Thumb ALU opcodes.
const (
	ThumbAND ThumbALUOp = iota
	ThumbEOR
	ThumbLSL
	ThumbLSR
	ThumbASR
	ThumbADC
	ThumbSBC
	ThumbROR
	ThumbTST
	ThumbNEG
	ThumbCMP
	ThumbCMN
	ThumbORR
	ThumbMUL
	ThumbBIC
	ThumbMVN
)

var thumbALUNames = [16]string{
	"and", "eor", "lsl", "lsr", "asr", "adc", "sbc", "ror",
	"tst", "neg", "cmp", "cmn", "orr", "mul", "bic", "mvn",
}

func (o ThumbALUOp) String() string {
	return thumbALUNames[o&0xF]
}
