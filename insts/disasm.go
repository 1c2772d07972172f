package insts

import (
	"fmt"
	"strings"

	"github.com/sarchlab/gbacore/bitfield"
)

var defaultDecoder = NewDecoder()

// Disassemble renders word as assembly text. addr is the address the word
// was fetched from and is used to resolve PC-relative targets.
func Disassemble(word uint32, set InstructionSet, addr uint32) string {
	format := defaultDecoder.Decode(word, set)
	if set == SetThumb {
		return disassembleThumb(uint16(word), format, addr)
	}
	return disassembleARM(word, format, addr)
}

func regName(r uint32) string {
	switch r {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	}
	return fmt.Sprintf("r%d", r)
}

func regList(list uint32) string {
	var parts []string
	for i := uint32(0); i < 16; i++ {
		if list&(1<<i) != 0 {
			parts = append(parts, regName(i))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func disassembleARM(word uint32, format Format, addr uint32) string {
	cond := Cond(word >> 28).String()
	rn := (word >> 16) & 0xF
	rd := (word >> 12) & 0xF

	switch format {
	case FormatBranchExchange:
		return fmt.Sprintf("bx%s %s", cond, regName(word&0xF))

	case FormatBranch:
		offset := int32(word<<8) >> 6
		target := addr + 8 + uint32(offset)
		mn := "b"
		if word&(1<<24) != 0 {
			mn = "bl"
		}
		return fmt.Sprintf("%s%s 0x%08X", mn, cond, target)

	case FormatSoftwareInterrupt:
		return fmt.Sprintf("swi%s 0x%06X", cond, word&0x00FFFFFF)

	case FormatBlockTransfer:
		mn := "stm"
		if word&(1<<20) != 0 {
			mn = "ldm"
		}
		mode := [...]string{"da", "ia", "db", "ib"}[(word>>23)&3]
		wb := ""
		if word&(1<<21) != 0 {
			wb = "!"
		}
		user := ""
		if word&(1<<22) != 0 {
			user = "^"
		}
		return fmt.Sprintf("%s%s%s %s%s, %s%s", mn, cond, mode, regName(rn), wb, regList(word&0xFFFF), user)

	case FormatSingleTransfer:
		mn := "str"
		if word&(1<<20) != 0 {
			mn = "ldr"
		}
		if word&(1<<22) != 0 {
			mn += "b"
		}
		return fmt.Sprintf("%s%s %s, %s", mn, cond, regName(rd), armAddress(word, rn))

	case FormatHalfwordRegister, FormatHalfwordImmediate:
		mn := "str"
		if word&(1<<20) != 0 {
			mn = "ldr"
		}
		mn += [...]string{"", "h", "sb", "sh"}[(word>>5)&3]
		sign := "-"
		if word&(1<<23) != 0 {
			sign = ""
		}
		var off string
		if format == FormatHalfwordImmediate {
			off = fmt.Sprintf("#%s0x%X", sign, (word>>4)&0xF0|word&0xF)
		} else {
			off = sign + regName(word&0xF)
		}
		if word&(1<<24) != 0 {
			wb := ""
			if word&(1<<21) != 0 {
				wb = "!"
			}
			return fmt.Sprintf("%s%s %s, [%s, %s]%s", mn, cond, regName(rd), regName(rn), off, wb)
		}
		return fmt.Sprintf("%s%s %s, [%s], %s", mn, cond, regName(rd), regName(rn), off)

	case FormatSwap:
		mn := "swp"
		if word&(1<<22) != 0 {
			mn = "swpb"
		}
		return fmt.Sprintf("%s%s %s, %s, [%s]", mn, cond, regName(rd), regName(word&0xF), regName(rn))

	case FormatMultiply:
		rs := (word >> 8) & 0xF
		s := ""
		if word&(1<<20) != 0 {
			s = "s"
		}
		if word&(1<<21) != 0 {
			return fmt.Sprintf("mla%s%s %s, %s, %s, %s", cond, s, regName(rn), regName(word&0xF), regName(rs), regName(rd))
		}
		return fmt.Sprintf("mul%s%s %s, %s, %s", cond, s, regName(rn), regName(word&0xF), regName(rs))

	case FormatMultiplyLong:
		mn := [...]string{"umull", "umlal", "smull", "smlal"}[(word>>21)&3]
		s := ""
		if word&(1<<20) != 0 {
			s = "s"
		}
		return fmt.Sprintf("%s%s%s %s, %s, %s, %s", mn, cond, s, regName(rd), regName(rn),
			regName(word&0xF), regName((word>>8)&0xF))

	case FormatStatusRead:
		psr := "cpsr"
		if word&(1<<22) != 0 {
			psr = "spsr"
		}
		return fmt.Sprintf("mrs%s %s, %s", cond, regName(rd), psr)

	case FormatStatusWrite:
		psr := "cpsr"
		if word&(1<<22) != 0 {
			psr = "spsr"
		}
		fields := ""
		for i, f := range "cxsf" {
			if word&(1<<(16+uint(i))) != 0 {
				fields += string(f)
			}
		}
		if word&(1<<25) != 0 {
			rot := ((word >> 8) & 0xF) * 2
			imm := (word&0xFF)>>rot | (word&0xFF)<<((32-rot)&31)
			return fmt.Sprintf("msr%s %s_%s, #0x%X", cond, psr, fields, imm)
		}
		return fmt.Sprintf("msr%s %s_%s, %s", cond, psr, fields, regName(word&0xF))

	case FormatDataProcessing:
		return disassembleDataProcessing(word, cond)

	case FormatCoprocessorTransfer, FormatCoprocessorOperation, FormatCoprocessorRegister:
		return fmt.Sprintf("cop%s 0x%08X", cond, word)
	}

	return fmt.Sprintf(".word 0x%08X", word)
}

func armAddress(word uint32, rn uint32) string {
	sign := "-"
	if word&(1<<23) != 0 {
		sign = ""
	}

	var off string
	if word&(1<<25) == 0 {
		off = fmt.Sprintf("#%s0x%X", sign, word&0xFFF)
	} else {
		off = sign + shiftedRegister(word)
	}

	if word&(1<<24) == 0 {
		return fmt.Sprintf("[%s], %s", regName(rn), off)
	}
	wb := ""
	if word&(1<<21) != 0 {
		wb = "!"
	}
	return fmt.Sprintf("[%s, %s]%s", regName(rn), off, wb)
}

func shiftedRegister(word uint32) string {
	rm := regName(word & 0xF)
	st := ShiftType((word >> 5) & 3)
	if word&(1<<4) != 0 {
		return fmt.Sprintf("%s, %s %s", rm, st, regName((word>>8)&0xF))
	}
	amount := (word >> 7) & 0x1F
	switch {
	case amount == 0 && st == ShiftLSL:
		return rm
	case amount == 0 && st == ShiftROR:
		return rm + ", rrx"
	case amount == 0:
		amount = 32
	}
	return fmt.Sprintf("%s, %s #%d", rm, st, amount)
}

func disassembleDataProcessing(word uint32, cond string) string {
	op := DataOp((word >> 21) & 0xF)
	s := ""
	if word&(1<<20) != 0 && !op.IsTest() {
		s = "s"
	}

	var op2 string
	if word&(1<<25) != 0 {
		rot := ((word >> 8) & 0xF) * 2
		imm := (word&0xFF)>>rot | (word&0xFF)<<((32-rot)&31)
		op2 = fmt.Sprintf("#0x%X", imm)
	} else {
		op2 = shiftedRegister(word)
	}

	rn := regName((word >> 16) & 0xF)
	rd := regName((word >> 12) & 0xF)

	switch {
	case op.IsTest():
		return fmt.Sprintf("%s%s %s, %s", op, cond, rn, op2)
	case op == OpMOV || op == OpMVN:
		return fmt.Sprintf("%s%s%s %s, %s", op, cond, s, rd, op2)
	}
	return fmt.Sprintf("%s%s%s %s, %s, %s", op, cond, s, rd, rn, op2)
}

func lo(r uint16) string {
	return fmt.Sprintf("r%d", r&7)
}

func disassembleThumb(hw uint16, format Format, addr uint32) string {
	switch format {
	case FormatThumbShiftImmediate:
		st := ShiftType((hw >> 11) & 3)
		return fmt.Sprintf("%s %s, %s, #%d", st, lo(hw), lo(hw>>3), (hw>>6)&0x1F)

	case FormatThumbAddSubtract:
		mn := "add"
		if hw&(1<<9) != 0 {
			mn = "sub"
		}
		if hw&(1<<10) != 0 {
			return fmt.Sprintf("%s %s, %s, #%d", mn, lo(hw), lo(hw>>3), (hw>>6)&7)
		}
		return fmt.Sprintf("%s %s, %s, %s", mn, lo(hw), lo(hw>>3), lo(hw>>6))

	case FormatThumbImmediate:
		mn := [...]string{"mov", "cmp", "add", "sub"}[(hw>>11)&3]
		return fmt.Sprintf("%s %s, #0x%X", mn, lo(hw>>8), hw&0xFF)

	case FormatThumbALU:
		return fmt.Sprintf("%s %s, %s", ThumbALUOp((hw>>6)&0xF), lo(hw), lo(hw>>3))

	case FormatThumbHiRegister:
		rd := uint32(hw&7) | uint32(hw>>4)&8
		rs := uint32(hw>>3) & 0xF
		switch (hw >> 8) & 3 {
		case 0:
			return fmt.Sprintf("add %s, %s", regName(rd), regName(rs))
		case 1:
			return fmt.Sprintf("cmp %s, %s", regName(rd), regName(rs))
		case 2:
			return fmt.Sprintf("mov %s, %s", regName(rd), regName(rs))
		}
		return fmt.Sprintf("bx %s", regName(rs))

	case FormatThumbPCRelativeLoad:
		target := (addr+4)&^3 + uint32(hw&0xFF)*4
		return fmt.Sprintf("ldr %s, [pc, #0x%X] ; 0x%08X", lo(hw>>8), uint32(hw&0xFF)*4, target)

	case FormatThumbRegisterOffset:
		mn := [...]string{"str", "strb", "ldr", "ldrb"}[(hw>>10)&3]
		return fmt.Sprintf("%s %s, [%s, %s]", mn, lo(hw), lo(hw>>3), lo(hw>>6))

	case FormatThumbSignExtended:
		mn := [...]string{"strh", "ldsb", "ldrh", "ldsh"}[(hw>>10)&3]
		return fmt.Sprintf("%s %s, [%s, %s]", mn, lo(hw), lo(hw>>3), lo(hw>>6))

	case FormatThumbImmediateOffset:
		imm := uint32(hw>>6) & 0x1F
		mn := "str"
		if hw&(1<<12) != 0 {
			mn += "b"
		} else {
			imm *= 4
		}
		if hw&(1<<11) != 0 {
			mn = "ldr" + mn[3:]
		}
		return fmt.Sprintf("%s %s, [%s, #0x%X]", mn, lo(hw), lo(hw>>3), imm)

	case FormatThumbHalfwordImmediate:
		mn := "strh"
		if hw&(1<<11) != 0 {
			mn = "ldrh"
		}
		return fmt.Sprintf("%s %s, [%s, #0x%X]", mn, lo(hw), lo(hw>>3), uint32(hw>>6)&0x1F*2)

	case FormatThumbStackRelative:
		mn := "str"
		if hw&(1<<11) != 0 {
			mn = "ldr"
		}
		return fmt.Sprintf("%s %s, [sp, #0x%X]", mn, lo(hw>>8), uint32(hw&0xFF)*4)

	case FormatThumbLoadAddress:
		base := "pc"
		if hw&(1<<11) != 0 {
			base = "sp"
		}
		return fmt.Sprintf("add %s, %s, #0x%X", lo(hw>>8), base, uint32(hw&0xFF)*4)

	case FormatThumbAdjustStack:
		sign := ""
		if hw&(1<<7) != 0 {
			sign = "-"
		}
		return fmt.Sprintf("add sp, #%s0x%X", sign, uint32(hw&0x7F)*4)

	case FormatThumbPushPop:
		list := uint32(hw & 0xFF)
		extra := bitfield.Bit(hw, 8)
		if bitfield.Bit(hw, 11) {
			return "pop " + regList(bitfield.Set(list, 15, extra))
		}
		return "push " + regList(bitfield.Set(list, 14, extra))

	case FormatThumbMultipleTransfer:
		mn := "stmia"
		if hw&(1<<11) != 0 {
			mn = "ldmia"
		}
		return fmt.Sprintf("%s %s!, %s", mn, lo(hw>>8), regList(uint32(hw&0xFF)))

	case FormatThumbConditionalBranch:
		offset := int32(int8(hw&0xFF)) * 2
		return fmt.Sprintf("b%s 0x%08X", Cond((hw>>8)&0xF), addr+4+uint32(offset))

	case FormatThumbSoftwareInterrupt:
		return fmt.Sprintf("swi 0x%02X", hw&0xFF)

	case FormatThumbUnconditionalBranch:
		offset := int32(uint32(hw&0x7FF)<<21) >> 20
		return fmt.Sprintf("b 0x%08X", addr+4+uint32(offset))

	case FormatThumbLongBranchLink:
		if hw&(1<<11) != 0 {
			return fmt.Sprintf("bl.lo #0x%X", uint32(hw&0x7FF)<<1)
		}
		return fmt.Sprintf("bl.hi #0x%X", uint32(hw&0x7FF)<<12)
	}

	return fmt.Sprintf(".hword 0x%04X", hw)
}
