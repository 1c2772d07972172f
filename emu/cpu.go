package emu

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/insts"
	"github.com/sarchlab/gbacore/timing/waitstate"
)

// StepResult represents the result of a single pipeline step.
type StepResult struct {
	// Cycles is the number of bus cycles the step took, at least 1.
	Cycles int

	// Executed is true if an instruction left the execute stage, whether or
	// not its condition passed.
	Executed bool

	// Fault is set when the CPU stopped on an undefined or unimplemented
	// instruction. It stays set until Reset or Deserialize.
	Fault error
}

// Statistics holds execution counters.
type Statistics struct {
	// Cycles is the total number of cycles stepped.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Interrupts is the number of IRQs taken.
	Interrupts uint64
}

// CPI returns cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// SWIHandler services a software interrupt in place of the BIOS. It returns
// false to let the CPU take the SWI exception instead.
type SWIHandler func(c *CPU, number uint32) bool

// CPU is an ARM7TDMI core with a three-stage pipeline.
type CPU struct {
	regs     *RegisterFile
	pipeline Pipeline
	decoder  *insts.Decoder

	// Execution units
	alu    *ALU
	lsu    *LoadStoreUnit
	branch *BranchUnit

	bus    Bus
	timing Timing
	irq    IRQLines
	swi    SWIHandler
	logger *logrus.Logger

	ignoreIllegal bool
	hle           bool

	// execPC is the value R15 reads as during the current execute stage.
	execPC uint32

	halted bool
	fault  error
	shadow []shadowFrame
	last   TraceEntry
	stats  Statistics
}

// Option is a functional option for configuring the CPU.
type Option func(*CPU)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *CPU) {
		c.logger = logger
	}
}

// WithIgnoreIllegalOpcodes makes undefined instructions execute as no-ops
// instead of faulting.
func WithIgnoreIllegalOpcodes(ignore bool) Option {
	return func(c *CPU) {
		c.ignoreIllegal = ignore
	}
}

// WithHLEInterrupts dispatches IRQs straight to the handler stored at
// IRQHandlerPointer, for running without a BIOS image.
func WithHLEInterrupts(hle bool) Option {
	return func(c *CPU) {
		c.hle = hle
	}
}

// WithSWIHandler services software interrupts in Go. See HLEBIOS.
func WithSWIHandler(handler SWIHandler) Option {
	return func(c *CPU) {
		c.swi = handler
	}
}

// WithIRQLines attaches an interrupt controller.
func WithIRQLines(lines IRQLines) Option {
	return func(c *CPU) {
		c.irq = lines
	}
}

// WithWaitStates sets the bus timing. The default is the power-on
// wait-state table.
func WithWaitStates(timing Timing) Option {
	return func(c *CPU) {
		c.timing = timing
	}
}

// NewCPU creates a CPU in the reset state on top of bus.
func NewCPU(bus Bus, opts ...Option) *CPU {
	c := &CPU{
		regs:    NewRegisterFile(),
		decoder: insts.NewDecoder(),
		bus:     bus,
		irq:     noLines{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetOutput(io.Discard)
		c.logger.SetLevel(logrus.WarnLevel)
	}
	if c.timing == nil {
		c.timing = waitstate.NewTable()
	}

	c.alu = NewALU(c.regs)
	c.lsu = NewLoadStoreUnit(bus, c.timing)
	c.branch = NewBranchUnit(c.regs)

	return c
}

// RegFile returns the CPU's register file.
func (c *CPU) RegFile() *RegisterFile {
	return c.regs
}

// Pipeline returns the CPU's pipeline.
func (c *CPU) Pipeline() *Pipeline {
	return &c.pipeline
}

// Bus returns the bus the CPU is attached to.
func (c *CPU) Bus() Bus {
	return c.bus
}

// Logger returns the CPU's logger.
func (c *CPU) Logger() *logrus.Logger {
	return c.logger
}

// InstructionSet returns the set selected by CPSR.T.
func (c *CPU) InstructionSet() insts.InstructionSet {
	if c.regs.cpsr.Thumb() {
		return insts.SetThumb
	}
	return insts.SetARM
}

// Stats returns the execution counters.
func (c *CPU) Stats() Statistics {
	return c.stats
}

// Fault returns the fault that stopped the CPU, or nil.
func (c *CPU) Fault() error {
	return c.fault
}

// Halted reports whether the CPU is waiting for an interrupt.
func (c *CPU) Halted() bool {
	return c.halted
}

// Halt stops execution until an enabled interrupt is requested.
func (c *CPU) Halt() {
	c.halted = true
}

// Reset puts the CPU in the reset state: Supervisor mode, ARM state, IRQ and
// FIQ disabled, PC at the reset vector.
func (c *CPU) Reset() {
	*c.regs = *NewRegisterFile()
	c.flush()
	c.lsu.TakeCycles()
	c.halted = false
	c.fault = nil
	c.shadow = nil
	c.last = TraceEntry{}
	c.stats = Statistics{}
}

// SkipBIOS sets up the stacks and mode the BIOS leaves behind and starts
// execution at entry in System mode with IRQs enabled.
func (c *CPU) SkipBIOS(entry uint32) {
	c.regs.SetBankedReg(BankSupervisor, 13, 0x03007FE0)
	c.regs.SetBankedReg(BankIRQ, 13, 0x03007FA0)
	c.regs.SetCPSR(StatusRegister(ModeSystem))
	c.regs.R[13] = 0x03007F00
	c.SetPC(entry)
}

// SetPC redirects execution to addr in the current instruction set.
func (c *CPU) SetPC(addr uint32) {
	c.branch.Jump(addr)
	c.flush()
}

func (c *CPU) flush() {
	c.pipeline.Flush()
	c.branch.TakeRedirect()
	c.stats.Flushes++
}

// Step advances the pipeline by one stage: execute, then decode, then
// fetch. A step that writes PC flushes and skips decode and fetch.
func (c *CPU) Step() StepResult {
	if c.fault != nil {
		return StepResult{Fault: c.fault}
	}

	if c.halted {
		if c.irq.IE()&c.irq.IF() == 0 {
			c.stats.Cycles++
			return StepResult{Cycles: 1}
		}
		c.halted = false
	}

	if c.atSyntheticReturn() {
		c.leaveInterrupt()
		return c.finish(false)
	}

	if c.interruptPending() {
		c.enterInterrupt()
		return c.finish(false)
	}

	executed := c.executeStage()
	if c.fault != nil {
		res := c.finish(executed)
		res.Fault = c.fault
		return res
	}

	if c.branch.Redirected() {
		c.flush()
		return c.finish(executed)
	}

	c.decodeStage()
	c.fetchStage()

	return c.finish(executed)
}

func (c *CPU) finish(executed bool) StepResult {
	cycles, _ := c.lsu.TakeCycles()
	if cycles < 1 {
		cycles = 1
	}
	c.stats.Cycles += uint64(cycles)
	return StepResult{Cycles: cycles, Executed: executed}
}

func (c *CPU) executeStage() bool {
	slot := c.pipeline.Execute()
	if !slot.Format.Decoded() {
		return false
	}

	inst := *slot
	set := c.InstructionSet()
	c.execPC = inst.Addr + 2*set.Width()
	c.last = TraceEntry{
		Address:         inst.Addr,
		Word:            inst.Word,
		Set:             set,
		Format:          inst.Format,
		ConditionPassed: true,
	}

	if set == insts.SetARM {
		if !CheckCondition(insts.Cond(inst.Word>>28), c.regs.CPSR()) {
			c.last.ConditionPassed = false
			c.last.Executed = true
			c.stats.Instructions++
			return true
		}
		c.executeARM(inst)
	} else {
		c.executeThumb(inst)
	}

	if c.fault != nil {
		return false
	}

	// A status write that flips T without writing PC still refetches.
	if c.InstructionSet() != set && !c.branch.Redirected() {
		c.branch.Jump(inst.Addr + set.Width())
	}

	c.last.Executed = true
	c.stats.Instructions++
	return true
}

func (c *CPU) decodeStage() {
	slot := c.pipeline.Decode()
	if slot.Format == insts.FormatPending {
		slot.Format = c.decoder.Decode(slot.Word, c.InstructionSet())
	}
}

func (c *CPU) fetchStage() {
	width := c.InstructionSet().Width()
	pc := c.regs.R[15]
	sequential := !c.pipeline.Empty() && !c.lsu.Touched()

	slot := c.pipeline.Fetch()
	slot.Word = c.lsu.Fetch(pc, width, sequential)
	slot.Format = insts.FormatPending
	slot.Addr = pc

	c.regs.R[15] = pc + width
	c.pipeline.Advance()
}

// readReg reads a register as an operand of the executing instruction.
func (c *CPU) readReg(r uint32) uint32 {
	if r == 15 {
		return c.execPC
	}
	return c.regs.R[r]
}

// writeReg writes a register. Writes to R15 branch.
func (c *CPU) writeReg(r uint32, v uint32) {
	if r == 15 {
		c.branch.Jump(v)
		return
	}
	c.regs.R[r] = v
}

func (c *CPU) undefined(inst Slot) {
	if c.ignoreIllegal {
		return
	}
	c.setFault(inst, ErrUndefinedInstruction)
}

func (c *CPU) unimplemented(inst Slot) {
	c.setFault(inst, ErrUnimplementedInstruction)
}

func (c *CPU) setFault(inst Slot, class error) {
	set := c.InstructionSet()
	c.fault = fmt.Errorf("%s word 0x%08X at PC=0x%08X: %w", set, inst.Word, inst.Addr, class)

	c.logger.WithFields(logrus.Fields{
		"pc":     fmt.Sprintf("0x%08X", inst.Addr),
		"word":   fmt.Sprintf("0x%08X", inst.Word),
		"set":    set.String(),
		"format": inst.Format.String(),
	}).Error(class.Error())
}
