// Package core runs the CPU in lock-step with the rest of the machine.
// After every CPU step the peripherals are stepped by the cycles that step
// took, so timers and video see the same clock as the bus.
package core

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/emu"
)

// ErrStepLimit is returned by Run when the step budget runs out.
var ErrStepLimit = errors.New("step limit reached")

// Peripheral is a device clocked by the CPU, such as a timer, the video
// unit or a DMA channel.
type Peripheral interface {
	Step(cycles int)
}

// PeripheralFunc adapts a function to a Peripheral.
type PeripheralFunc func(cycles int)

// Step implements Peripheral.
func (f PeripheralFunc) Step(cycles int) {
	f(cycles)
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Steps is the number of pipeline steps.
	Steps uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Interrupts is the number of IRQs taken.
	Interrupts uint64
	// HaltedCycles is the number of cycles spent waiting for an interrupt.
	HaltedCycles uint64
}

// Core owns a CPU and the peripherals it clocks.
type Core struct {
	CPU *emu.CPU

	peripherals []Peripheral
	steps       uint64
	halted      uint64
}

// NewCore creates a new Core around cpu.
func NewCore(cpu *emu.CPU, peripherals ...Peripheral) *Core {
	return &Core{
		CPU:         cpu,
		peripherals: peripherals,
	}
}

// AddPeripheral attaches another clocked device.
func (c *Core) AddPeripheral(p Peripheral) {
	c.peripherals = append(c.peripherals, p)
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.CPU.SetPC(pc)
}

// Halted returns true if the CPU is waiting for an interrupt.
func (c *Core) Halted() bool {
	return c.CPU.Halted()
}

// Step performs one CPU step and clocks the peripherals by its cycles. The
// peripherals are not clocked after a fault.
func (c *Core) Step() emu.StepResult {
	halted := c.CPU.Halted()
	res := c.CPU.Step()
	if res.Fault != nil {
		return res
	}

	c.steps++
	if halted && c.CPU.Halted() {
		c.halted += uint64(res.Cycles)
	}
	for _, p := range c.peripherals {
		p.Step(res.Cycles)
	}
	return res
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.CPU.Stats()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Instructions,
		Steps:        c.steps,
		Flushes:      s.Flushes,
		Interrupts:   s.Interrupts,
		HaltedCycles: c.halted,
	}
}

// RunCycles steps until at least the given number of cycles has elapsed.
// It returns the cycles actually run, which may overshoot by the length of
// the last step, and the fault that stopped the CPU, if any.
func (c *Core) RunCycles(cycles uint64) (uint64, error) {
	var ran uint64
	for ran < cycles {
		res := c.Step()
		if res.Fault != nil {
			return ran, res.Fault
		}
		ran += uint64(res.Cycles)
	}
	return ran, nil
}

// Run steps until the CPU faults or maxSteps steps have been taken. A zero
// maxSteps runs until a fault.
func (c *Core) Run(maxSteps uint64) error {
	for i := uint64(0); maxSteps == 0 || i < maxSteps; i++ {
		if res := c.Step(); res.Fault != nil {
			return res.Fault
		}
	}

	c.CPU.Logger().WithFields(logrus.Fields{
		"steps":  maxSteps,
		"cycles": c.CPU.Stats().Cycles,
	}).Debug("step limit reached")
	return ErrStepLimit
}

// Reset resets the CPU and clears the core's counters.
func (c *Core) Reset() {
	c.CPU.Reset()
	c.steps = 0
	c.halted = 0
}
