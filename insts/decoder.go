package insts

// Format is the closed set of instruction encodings the decoder can report.
type Format uint8

// Instruction formats.
const (
	// FormatEmpty marks a pipeline slot that holds no fetched word.
	FormatEmpty Format = iota
	// FormatPending marks a slot that was fetched but not yet decoded.
	FormatPending
	// FormatUndefined is reported when no pattern matches.
	FormatUndefined

	// ARM formats.
	FormatBranchExchange       // BX Rn
	FormatBlockTransfer        // LDM/STM
	FormatBranch               // B/BL
	FormatSoftwareInterrupt    // SWI
	FormatCoprocessorTransfer  // LDC/STC
	FormatCoprocessorOperation // CDP
	FormatCoprocessorRegister  // MRC/MCR
	FormatSingleTransfer       // LDR/STR/LDRB/STRB
	FormatSwap                 // SWP/SWPB
	FormatMultiply             // MUL/MLA
	FormatMultiplyLong         // UMULL/UMLAL/SMULL/SMLAL
	FormatHalfwordRegister     // LDRH/STRH/LDRSB/LDRSH, register offset
	FormatHalfwordImmediate    // LDRH/STRH/LDRSB/LDRSH, immediate offset
	FormatStatusRead           // MRS
	FormatStatusWrite          // MSR
	FormatDataProcessing       // AND..MVN

	// Thumb formats.
	FormatThumbShiftImmediate      // 1: LSL/LSR/ASR Rd, Rs, #imm
	FormatThumbAddSubtract         // 2: ADD/SUB Rd, Rs, Rn|#imm3
	FormatThumbImmediate           // 3: MOV/CMP/ADD/SUB Rd, #imm8
	FormatThumbALU                 // 4: ALU operations
	FormatThumbHiRegister          // 5: hi register operations and BX
	FormatThumbPCRelativeLoad      // 6: LDR Rd, [PC, #imm]
	FormatThumbRegisterOffset      // 7: LDR/STR{B} Rd, [Rb, Ro]
	FormatThumbSignExtended        // 8: STRH/LDRH/LDSB/LDSH Rd, [Rb, Ro]
	FormatThumbImmediateOffset     // 9: LDR/STR{B} Rd, [Rb, #imm]
	FormatThumbHalfwordImmediate   // 10: LDRH/STRH Rd, [Rb, #imm]
	FormatThumbStackRelative       // 11: LDR/STR Rd, [SP, #imm]
	FormatThumbLoadAddress         // 12: ADD Rd, PC|SP, #imm
	FormatThumbAdjustStack         // 13: ADD SP, #+/-imm
	FormatThumbPushPop             // 14: PUSH/POP
	FormatThumbMultipleTransfer    // 15: LDMIA/STMIA
	FormatThumbConditionalBranch   // 16: B<cond>
	FormatThumbSoftwareInterrupt   // 17: SWI
	FormatThumbUnconditionalBranch // 18: B
	FormatThumbLongBranchLink      // 19: BL prefix/suffix

	formatCount
)

var formatNames = [formatCount]string{
	FormatEmpty:                    "Empty",
	FormatPending:                  "Pending",
	FormatUndefined:                "Undefined",
	FormatBranchExchange:           "BranchExchange",
	FormatBlockTransfer:            "BlockTransfer",
	FormatBranch:                   "Branch",
	FormatSoftwareInterrupt:        "SoftwareInterrupt",
	FormatCoprocessorTransfer:      "CoprocessorTransfer",
	FormatCoprocessorOperation:     "CoprocessorOperation",
	FormatCoprocessorRegister:      "CoprocessorRegister",
	FormatSingleTransfer:           "SingleTransfer",
	FormatSwap:                     "Swap",
	FormatMultiply:                 "Multiply",
	FormatMultiplyLong:             "MultiplyLong",
	FormatHalfwordRegister:         "HalfwordRegister",
	FormatHalfwordImmediate:        "HalfwordImmediate",
	FormatStatusRead:               "StatusRead",
	FormatStatusWrite:              "StatusWrite",
	FormatDataProcessing:           "DataProcessing",
	FormatThumbShiftImmediate:      "ThumbShiftImmediate",
	FormatThumbAddSubtract:         "ThumbAddSubtract",
	FormatThumbImmediate:           "ThumbImmediate",
	FormatThumbALU:                 "ThumbALU",
	FormatThumbHiRegister:          "ThumbHiRegister",
	FormatThumbPCRelativeLoad:      "ThumbPCRelativeLoad",
	FormatThumbRegisterOffset:      "ThumbRegisterOffset",
	FormatThumbSignExtended:        "ThumbSignExtended",
	FormatThumbImmediateOffset:     "ThumbImmediateOffset",
	FormatThumbHalfwordImmediate:   "ThumbHalfwordImmediate",
	FormatThumbStackRelative:       "ThumbStackRelative",
	FormatThumbLoadAddress:         "ThumbLoadAddress",
	FormatThumbAdjustStack:         "ThumbAdjustStack",
	FormatThumbPushPop:             "ThumbPushPop",
	FormatThumbMultipleTransfer:    "ThumbMultipleTransfer",
	FormatThumbConditionalBranch:   "ThumbConditionalBranch",
	FormatThumbSoftwareInterrupt:   "ThumbSoftwareInterrupt",
	FormatThumbUnconditionalBranch: "ThumbUnconditionalBranch",
	FormatThumbLongBranchLink:      "ThumbLongBranchLink",
}

func (f Format) String() string {
	if f >= formatCount {
		return "Invalid"
	}
	return formatNames[f]
}

// Decoded reports whether the format is a real classification result rather
// than one of the pipeline sentinels.
func (f Format) Decoded() bool {
	return f > FormatPending && f < formatCount
}

// IsCoprocessor reports whether the format addresses a coprocessor.
func (f Format) IsCoprocessor() bool {
	return f == FormatCoprocessorTransfer ||
		f == FormatCoprocessorOperation ||
		f == FormatCoprocessorRegister
}

// Pattern is one entry of a classification table. A word matches when
// word&Mask == Value and the optional Guard accepts it.
type Pattern struct {
	Mask   uint32
	Value  uint32
	Format Format
	Guard  func(word uint32) bool
}

// Matches reports whether word is classified by this pattern.
func (p Pattern) Matches(word uint32) bool {
	if word&p.Mask != p.Value {
		return false
	}
	return p.Guard == nil || p.Guard(word)
}

// halfwordShape rejects SH=00, which encodes swap/multiply.
func halfwordShape(word uint32) bool {
	return (word>>5)&3 != 0
}

// dataProcessingShape rejects the register-shift encoding with bit 7 set
// (multiply/extension space) and flag-less test opcodes (status moves).
func dataProcessingShape(word uint32) bool {
	if word&(1<<25) == 0 && word&(1<<4) != 0 && word&(1<<7) != 0 {
		return false
	}
	op := DataOp((word >> 21) & 0xF)
	if op.IsTest() && word&(1<<20) == 0 {
		return false
	}
	return true
}

// conditionalBranchShape rejects cond=1110, undefined in Thumb format 16.
func conditionalBranchShape(word uint32) bool {
	return (word>>8)&0xF != 0xE
}

// armPatterns is ordered from the most specific mask to the generic
// data-processing fallback.
var armPatterns = []Pattern{
	{Mask: 0x0FFFFFF0, Value: 0x012FFF10, Format: FormatBranchExchange},
	{Mask: 0x0E000000, Value: 0x08000000, Format: FormatBlockTransfer},
	{Mask: 0x0E000000, Value: 0x0A000000, Format: FormatBranch},
	{Mask: 0x0F000000, Value: 0x0F000000, Format: FormatSoftwareInterrupt},
	{Mask: 0x0E000000, Value: 0x0C000000, Format: FormatCoprocessorTransfer},
	{Mask: 0x0F000010, Value: 0x0E000000, Format: FormatCoprocessorOperation},
	{Mask: 0x0F000010, Value: 0x0E000010, Format: FormatCoprocessorRegister},
	{Mask: 0x0E000010, Value: 0x06000010, Format: FormatUndefined},
	{Mask: 0x0C000000, Value: 0x04000000, Format: FormatSingleTransfer},
	{Mask: 0x0FB00FF0, Value: 0x01000090, Format: FormatSwap},
	{Mask: 0x0FC000F0, Value: 0x00000090, Format: FormatMultiply},
	{Mask: 0x0F8000F0, Value: 0x00800090, Format: FormatMultiplyLong},
	{Mask: 0x0E400F90, Value: 0x00000090, Format: FormatHalfwordRegister, Guard: halfwordShape},
	{Mask: 0x0E400090, Value: 0x00400090, Format: FormatHalfwordImmediate, Guard: halfwordShape},
	{Mask: 0x0FBF0FFF, Value: 0x010F0000, Format: FormatStatusRead},
	{Mask: 0x0DB0F000, Value: 0x0120F000, Format: FormatStatusWrite},
	{Mask: 0x0C000000, Value: 0x00000000, Format: FormatDataProcessing, Guard: dataProcessingShape},
}

var thumbPatterns = []Pattern{
	{Mask: 0xFF00, Value: 0xDF00, Format: FormatThumbSoftwareInterrupt},
	{Mask: 0xF800, Value: 0xE000, Format: FormatThumbUnconditionalBranch},
	{Mask: 0xF000, Value: 0xD000, Format: FormatThumbConditionalBranch, Guard: conditionalBranchShape},
	{Mask: 0xF000, Value: 0xC000, Format: FormatThumbMultipleTransfer},
	{Mask: 0xF000, Value: 0xF000, Format: FormatThumbLongBranchLink},
	{Mask: 0xFF00, Value: 0xB000, Format: FormatThumbAdjustStack},
	{Mask: 0xF600, Value: 0xB400, Format: FormatThumbPushPop},
	{Mask: 0xF000, Value: 0x8000, Format: FormatThumbHalfwordImmediate},
	{Mask: 0xF000, Value: 0x9000, Format: FormatThumbStackRelative},
	{Mask: 0xF000, Value: 0xA000, Format: FormatThumbLoadAddress},
	{Mask: 0xE000, Value: 0x6000, Format: FormatThumbImmediateOffset},
	{Mask: 0xF200, Value: 0x5000, Format: FormatThumbRegisterOffset},
	{Mask: 0xF200, Value: 0x5200, Format: FormatThumbSignExtended},
	{Mask: 0xF800, Value: 0x4800, Format: FormatThumbPCRelativeLoad},
	{Mask: 0xFC00, Value: 0x4400, Format: FormatThumbHiRegister},
	{Mask: 0xFC00, Value: 0x4000, Format: FormatThumbALU},
	{Mask: 0xE000, Value: 0x2000, Format: FormatThumbImmediate},
	{Mask: 0xF800, Value: 0x1800, Format: FormatThumbAddSubtract},
	{Mask: 0xE000, Value: 0x0000, Format: FormatThumbShiftImmediate},
}

// ARMPatterns returns a copy of the ARM classification table in priority
// order.
func ARMPatterns() []Pattern {
	return append([]Pattern(nil), armPatterns...)
}

// ThumbPatterns returns a copy of the Thumb classification table in priority
// order.
func ThumbPatterns() []Pattern {
	return append([]Pattern(nil), thumbPatterns...)
}

// Decoder classifies instruction words into formats.
type Decoder struct {
	arm   []Pattern
	thumb []Pattern
}

// NewDecoder creates a new decoder using the built-in classification tables.
func NewDecoder() *Decoder {
	return &Decoder{
		arm:   armPatterns,
		thumb: thumbPatterns,
	}
}

// Decode returns the format of word under the given instruction set. Thumb
// words use only the low 16 bits. Decode never fails: unmatched words are
// FormatUndefined.
func (d *Decoder) Decode(word uint32, set InstructionSet) Format {
	table := d.arm
	if set == SetThumb {
		table = d.thumb
		word &= 0xFFFF
	}

	for _, p := range table {
		if p.Matches(word) {
			return p.Format
		}
	}

	return FormatUndefined
}
