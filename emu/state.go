package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/gbacore/savestate"
)

const (
	faultNone uint8 = iota
	faultUndefined
	faultUnimplemented
)

// Save implements savestate.Stater.
func (r *RegisterFile) Save(s *savestate.State) {
	for _, v := range r.R {
		s.Write32(v)
	}
	s.Write32(uint32(r.cpsr))
	for b := range r.banked {
		s.Write32(r.banked[b][0])
		s.Write32(r.banked[b][1])
		s.Write32(uint32(r.spsr[b]))
	}
	for i := range r.userHigh {
		s.Write32(r.userHigh[i])
		s.Write32(r.fiqHigh[i])
	}
}

// Load implements savestate.Stater. The active bank is derived from the
// loaded CPSR.
func (r *RegisterFile) Load(s *savestate.State) {
	for i := range r.R {
		r.R[i] = s.Read32()
	}
	r.cpsr = StatusRegister(s.Read32())
	r.active = BankOf(r.cpsr.Mode())
	for b := range r.banked {
		r.banked[b][0] = s.Read32()
		r.banked[b][1] = s.Read32()
		r.spsr[b] = StatusRegister(s.Read32())
	}
	for i := range r.userHigh {
		r.userHigh[i] = s.Read32()
		r.fiqHigh[i] = s.Read32()
	}
}

// Serialize captures the complete CPU state: all register banks, the
// pipeline, halt and fault status, counters and the HLE interrupt frames.
func (c *CPU) Serialize() ([]byte, error) {
	s := savestate.New()

	c.regs.Save(s)
	c.pipeline.Save(s)
	s.WriteBool(c.halted)

	switch {
	case c.fault == nil:
		s.Write8(faultNone)
	case errors.Is(c.fault, ErrUndefinedInstruction):
		s.Write8(faultUndefined)
		s.WriteString(c.fault.Error())
	default:
		s.Write8(faultUnimplemented)
		s.WriteString(c.fault.Error())
	}

	s.Write64(c.stats.Cycles)
	s.Write64(c.stats.Instructions)
	s.Write64(c.stats.Flushes)
	s.Write64(c.stats.Interrupts)

	s.Write32(uint32(len(c.shadow)))
	for i := range c.shadow {
		c.shadow[i].save(s)
	}

	return s.Seal(), nil
}

// Deserialize restores a state produced by Serialize. On error the CPU is
// left unchanged.
func (c *CPU) Deserialize(data []byte) error {
	s, err := savestate.Open(data)
	if err != nil {
		return fmt.Errorf("failed to open CPU state: %w", err)
	}

	regs := NewRegisterFile()
	regs.Load(s)
	var pipeline Pipeline
	pipeline.Load(s)
	halted := s.ReadBool()

	var fault error
	switch class := s.Read8(); class {
	case faultNone:
	case faultUndefined, faultUnimplemented:
		sentinel := ErrUndefinedInstruction
		if class == faultUnimplemented {
			sentinel = ErrUnimplementedInstruction
		}
		fault = restoredFault{msg: s.ReadString(), class: sentinel}
	default:
		return fmt.Errorf("%w: fault class %d", savestate.ErrCorrupt, class)
	}

	var stats Statistics
	stats.Cycles = s.Read64()
	stats.Instructions = s.Read64()
	stats.Flushes = s.Read64()
	stats.Interrupts = s.Read64()

	n := s.Read32()
	if s.Err() == nil && n > 1024 {
		return fmt.Errorf("%w: %d interrupt frames", savestate.ErrCorrupt, n)
	}
	var shadow []shadowFrame
	for i := uint32(0); i < n && s.Err() == nil; i++ {
		var f shadowFrame
		f.load(s)
		shadow = append(shadow, f)
	}

	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to read CPU state: %w", err)
	}
	if !regs.cpsr.Mode().Valid() {
		return fmt.Errorf("%w: invalid mode 0x%02X", savestate.ErrCorrupt, uint32(regs.cpsr.Mode()))
	}

	*c.regs = *regs
	c.pipeline = pipeline
	c.halted = halted
	c.fault = fault
	c.stats = stats
	c.shadow = shadow
	c.last = TraceEntry{}
	c.branch.TakeRedirect()
	c.lsu.TakeCycles()

	return nil
}

// restoredFault keeps the message of a serialized fault and its class for
// errors.Is.
type restoredFault struct {
	msg   string
	class error
}

func (f restoredFault) Error() string { return f.msg }

func (f restoredFault) Unwrap() error { return f.class }
