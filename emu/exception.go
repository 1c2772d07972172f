package emu

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/savestate"
)

// Exception is one of the ARM7TDMI exception classes.
type Exception uint8

// Exception classes.
const (
	ExceptionReset Exception = iota
	ExceptionUndefined
	ExceptionSoftwareInterrupt
	ExceptionPrefetchAbort
	ExceptionDataAbort
	ExceptionIRQ
	ExceptionFIQ
)

type exceptionEntry struct {
	name    string
	mode    Mode
	vector  uint32
	maskFIQ bool
}

var exceptionTable = [...]exceptionEntry{
	ExceptionReset:             {"reset", ModeSupervisor, 0x00, true},
	ExceptionUndefined:         {"undefined", ModeUndefined, 0x04, false},
	ExceptionSoftwareInterrupt: {"swi", ModeSupervisor, 0x08, false},
	ExceptionPrefetchAbort:     {"prefetch-abort", ModeAbort, 0x0C, false},
	ExceptionDataAbort:         {"data-abort", ModeAbort, 0x10, false},
	ExceptionIRQ:               {"irq", ModeIRQ, 0x18, false},
	ExceptionFIQ:               {"fiq", ModeFIQ, 0x1C, true},
}

func (e Exception) String() string {
	return exceptionTable[e].name
}

// Mode returns the mode the exception enters.
func (e Exception) Mode() Mode {
	return exceptionTable[e].mode
}

// Vector returns the address of the exception vector.
func (e Exception) Vector() uint32 {
	return exceptionTable[e].vector
}

// HLE interrupt dispatch addresses.
const (
	// SyntheticReturnAddress is loaded into LR before jumping to the game's
	// handler. Reaching it pops the shadow frame.
	SyntheticReturnAddress uint32 = 0x00000138

	// IRQHandlerPointer holds the address of the game's interrupt handler.
	IRQHandlerPointer uint32 = 0x03007FFC

	// IORegisterBase is passed to the handler in R0.
	IORegisterBase uint32 = 0x04000000
)

// shadowFrame holds the registers the BIOS dispatcher would have pushed on
// the IRQ stack.
type shadowFrame struct {
	regs [6]uint32 // R0-R3, R12, LR_irq
}

// raise enters exception e with return address lr. The caller flushes.
func (c *CPU) raise(e Exception, lr uint32) {
	old := c.regs.CPSR()
	entry := exceptionTable[e]

	c.regs.SwitchMode(entry.mode)
	c.regs.SetSPSR(old)
	c.regs.R[14] = lr
	c.regs.SetFlag(FlagI, true)
	if entry.maskFIQ {
		c.regs.SetFlag(FlagF, true)
	}
	c.regs.SetFlag(FlagT, false)
	c.branch.Jump(entry.vector)

	c.logger.WithFields(logrus.Fields{
		"exception": e.String(),
		"lr":        lr,
		"from":      old.Mode().String(),
	}).Debug("exception entry")
}

// interruptPending reports whether an IRQ would be taken at this step
// boundary. Any boundary where the execute slot holds a decoded instruction
// qualifies, including the first one after a flush, so a branch to itself
// can still be interrupted.
func (c *CPU) interruptPending() bool {
	if !c.pipeline.Execute().Format.Decoded() || c.regs.Flag(FlagI) {
		return false
	}
	return c.irq.IME() && c.irq.IE()&c.irq.IF() != 0
}

// enterInterrupt takes an IRQ before the instruction in the execute slot.
// That instruction is re-executed after the handler returns.
func (c *CPU) enterInterrupt() {
	ret := c.pipeline.Execute().Addr + 4
	c.raise(ExceptionIRQ, ret)
	c.stats.Interrupts++

	if c.hle {
		var f shadowFrame
		copy(f.regs[:4], c.regs.R[:4])
		f.regs[4] = c.regs.R[12]
		f.regs[5] = c.regs.R[14]
		c.shadow = append(c.shadow, f)

		c.regs.R[0] = IORegisterBase
		c.regs.R[14] = SyntheticReturnAddress
		c.branch.Jump(c.lsu.Peek(IRQHandlerPointer) &^ 3)
	}

	c.flush()
}

// atSyntheticReturn reports whether the game's handler has just returned to
// the synthetic address.
func (c *CPU) atSyntheticReturn() bool {
	return c.hle && len(c.shadow) > 0 && c.pipeline.Empty() &&
		c.regs.R[15]&^1 == SyntheticReturnAddress
}

// leaveInterrupt unwinds the shadow frame pushed by enterInterrupt.
func (c *CPU) leaveInterrupt() {
	f := c.shadow[len(c.shadow)-1]
	c.shadow = c.shadow[:len(c.shadow)-1]

	copy(c.regs.R[:4], f.regs[:4])
	c.regs.R[12] = f.regs[4]
	c.regs.R[14] = f.regs[5]

	c.regs.SetCPSR(c.regs.SPSR())
	c.branch.Jump(f.regs[5] - 4)
	c.flush()

	c.logger.WithField("pc", c.regs.R[15]).Debug("interrupt return")
}

func (f *shadowFrame) save(s *savestate.State) {
	for _, v := range f.regs {
		s.Write32(v)
	}
}

func (f *shadowFrame) load(s *savestate.State) {
	for i := range f.regs {
		f.regs[i] = s.Read32()
	}
}
