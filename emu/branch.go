package emu

import "github.com/sarchlab/gbacore/insts"

// CheckCondition evaluates an ARM condition field against the flags in
// cpsr. AL always passes; NV never does.
func CheckCondition(cond insts.Cond, cpsr StatusRegister) bool {
	n := cpsr.Has(FlagN)
	z := cpsr.Has(FlagZ)
	c := cpsr.Has(FlagC)
	v := cpsr.Has(FlagV)

	switch cond {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondCS:
		return c
	case insts.CondCC:
		return !c
	case insts.CondMI:
		return n
	case insts.CondPL:
		return !n
	case insts.CondVS:
		return v
	case insts.CondVC:
		return !v
	case insts.CondHI:
		return c && !z
	case insts.CondLS:
		return !c || z
	case insts.CondGE:
		return n == v
	case insts.CondLT:
		return n != v
	case insts.CondGT:
		return !z && n == v
	case insts.CondLE:
		return z || n != v
	case insts.CondAL:
		return true
	}
	return false
}

// BranchUnit owns every write to the program counter. Each write marks the
// pipeline for a flush, which the CPU performs at the end of the execute
// stage.
type BranchUnit struct {
	regs       *RegisterFile
	redirected bool
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regs *RegisterFile) *BranchUnit {
	return &BranchUnit{regs: regs}
}

// Jump sets PC to target, aligned for the current instruction set.
func (b *BranchUnit) Jump(target uint32) {
	if b.regs.cpsr.Thumb() {
		target &^= 1
	} else {
		target &^= 3
	}
	b.regs.R[15] = target
	b.redirected = true
}

// Exchange performs BX: bit 0 of target selects Thumb state.
func (b *BranchUnit) Exchange(target uint32) {
	b.regs.SetFlag(FlagT, target&1 == 1)
	b.Jump(target)
}

// BranchLink stores ret in LR and jumps to target.
func (b *BranchUnit) BranchLink(target, ret uint32) {
	b.regs.R[14] = ret
	b.Jump(target)
}

// Redirected reports whether PC was written since the last TakeRedirect.
func (b *BranchUnit) Redirected() bool {
	return b.redirected
}

// TakeRedirect returns and clears the pending flush request.
func (b *BranchUnit) TakeRedirect() bool {
	r := b.redirected
	b.redirected = false
	return r
}
