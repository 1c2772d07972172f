package main

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/loader"
	"github.com/sarchlab/gbacore/timing/cache"
	"github.com/sarchlab/gbacore/timing/core"
	"github.com/sarchlab/gbacore/timing/waitstate"
)

// machineConfig selects how the CPU and its bus are put together.
type machineConfig struct {
	program    *loader.Program
	bios       *loader.Program
	waitStates *waitstate.Config
	logger     *logrus.Logger

	ignoreIllegal bool
	cacheStudy    bool
}

type machine struct {
	memory *emu.Memory
	lines  *emu.Lines
	probe  *cache.Probe
	cpu    *emu.CPU
	core   *core.Core
}

// newMachine loads the images and builds a CPU ready to run. Without a BIOS
// image the CPU starts at the program entry with the stacks the BIOS would
// have set up, and BIOS calls and interrupt dispatch are emulated.
func newMachine(cfg machineConfig) (*machine, error) {
	m := &machine{
		memory: emu.NewMemory(),
		lines:  emu.NewLines(),
	}

	table := waitstate.NewTable()
	if cfg.waitStates != nil {
		if err := cfg.waitStates.Validate(); err != nil {
			return nil, err
		}
		table = waitstate.NewTableWithConfig(cfg.waitStates)
	}

	var bus emu.Bus = m.memory
	if cfg.cacheStudy {
		m.probe = cache.NewProbe(m.memory, cache.DefaultConfig())
		bus = m.probe
	}

	opts := []emu.Option{
		emu.WithIRQLines(m.lines),
		emu.WithWaitStates(table),
		emu.WithIgnoreIllegalOpcodes(cfg.ignoreIllegal),
	}
	if cfg.logger != nil {
		opts = append(opts, emu.WithLogger(cfg.logger))
	}
	if cfg.bios == nil {
		opts = append(opts,
			emu.WithHLEInterrupts(true),
			emu.WithSWIHandler(emu.HLEBIOS),
		)
	}

	cfg.program.LoadInto(m.memory)
	m.cpu = emu.NewCPU(bus, opts...)

	if cfg.bios != nil {
		cfg.bios.LoadInto(m.memory)
		m.cpu.Reset()
	} else {
		m.cpu.SkipBIOS(cfg.program.EntryPoint)
		if cfg.program.Thumb {
			m.cpu.RegFile().SetFlag(emu.FlagT, true)
			m.cpu.SetPC(cfg.program.EntryPoint)
		}
	}

	m.core = core.NewCore(m.cpu)
	return m, nil
}
