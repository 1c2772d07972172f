package emu

import (
	"fmt"
	"strings"

	"github.com/sarchlab/gbacore/insts"
)

// TraceEntry describes the last instruction that left the execute stage.
type TraceEntry struct {
	Address uint32
	Word    uint32
	Set     insts.InstructionSet
	Format  insts.Format

	// ConditionPassed is false when the condition field skipped the
	// instruction's effect.
	ConditionPassed bool

	// Executed is true once the instruction left the execute stage, skipped
	// or not. It is false when the instruction faulted.
	Executed bool
}

// Mnemonic disassembles the entry.
func (t TraceEntry) Mnemonic() string {
	if !t.Format.Decoded() {
		return ""
	}
	return insts.Disassemble(t.Word, t.Set, t.Address)
}

func (t TraceEntry) String() string {
	width := 8
	if t.Set == insts.SetThumb {
		width = 4
	}
	skipped := ""
	if !t.ConditionPassed {
		skipped = " (skipped)"
	}
	return fmt.Sprintf("%08X: %0*X  %s%s", t.Address, width, t.Word, t.Mnemonic(), skipped)
}

// LastExecuted returns the trace entry of the most recent execute stage.
func (c *CPU) LastExecuted() TraceEntry {
	return c.last
}

// RegisterDump is a read-only snapshot of the register file.
type RegisterDump struct {
	R    [16]uint32
	CPSR StatusRegister
	SPSR StatusRegister
	Mode Mode

	// Banked holds R13 and R14 of every bank.
	Banked [BankCount][2]uint32
	// SPSRs holds the saved status register of every bank. The user entry
	// is always zero.
	SPSRs [BankCount]StatusRegister
}

// Registers returns a snapshot of all registers, including the banks that
// are not currently visible.
func (c *CPU) Registers() RegisterDump {
	d := RegisterDump{
		R:    c.regs.R,
		CPSR: c.regs.CPSR(),
		SPSR: c.regs.SPSR(),
		Mode: c.regs.Mode(),
	}
	for b := Bank(0); b < BankCount; b++ {
		d.Banked[b][0] = c.regs.BankedReg(b, 13)
		d.Banked[b][1] = c.regs.BankedReg(b, 14)
		d.SPSRs[b] = c.regs.SPSRFor(b)
	}
	return d
}

func (d RegisterDump) String() string {
	var b strings.Builder
	for i, v := range d.R {
		fmt.Fprintf(&b, "r%-2d=%08X", i, v)
		if i%4 == 3 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	fmt.Fprintf(&b, "cpsr=%08X [%s] spsr=%08X", uint32(d.CPSR), d.CPSR, uint32(d.SPSR))
	return b.String()
}
