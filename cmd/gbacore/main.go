// Package main provides the command-line runner for gbacore.
// It loads a ROM or ELF image, runs the ARM7TDMI core and reports execution
// statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/loader"
	"github.com/sarchlab/gbacore/timing/core"
	"github.com/sarchlab/gbacore/timing/waitstate"
)

var (
	biosPath      = flag.String("bios", "", "Path to a 16KB BIOS image (default: emulate BIOS calls and interrupt dispatch)")
	maxSteps      = flag.Uint64("steps", 1000000, "Maximum number of pipeline steps (0 runs until a fault)")
	configPath    = flag.String("config", "", "Path to wait-state configuration JSON file")
	verbose       = flag.Bool("v", false, "Verbose output")
	ignoreIllegal = flag.Bool("ignore-illegal", false, "Execute undefined instructions as no-ops")
	cacheStudy    = flag.Bool("cache-study", false, "Route bus traffic through a cache model and report its hit rate")
	statsAddr     = flag.String("statsview", "", "Serve Go runtime statistics at this address (e.g. localhost:12600)")
	traceAddr     = flag.String("trace-addr", "", "Stream executed instructions over a websocket at this address")
	saveState     = flag.String("save-state", "", "Write the final CPU state to this file")
	loadState     = flag.String("load-state", "", "Restore the CPU state from this file before running")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: gbacore [options] <image.gba|image.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	os.Exit(run(flag.Arg(0), logger))
}

func run(imagePath string, logger *logrus.Logger) int {
	prog, err := loader.Load(imagePath)
	if err != nil {
		logger.WithError(err).Error("failed to load image")
		return 1
	}

	logger.WithFields(logrus.Fields{
		"image":    imagePath,
		"kind":     prog.Kind.String(),
		"entry":    fmt.Sprintf("0x%08X", prog.EntryPoint),
		"segments": len(prog.Segments),
		"title":    prog.Header.Title,
	}).Info("image loaded")

	cfg := machineConfig{
		program:       prog,
		logger:        logger,
		ignoreIllegal: *ignoreIllegal,
		cacheStudy:    *cacheStudy,
	}

	if *biosPath != "" {
		cfg.bios, err = loader.LoadBIOS(*biosPath)
		if err != nil {
			logger.WithError(err).Error("failed to load BIOS")
			return 1
		}
	}

	if *configPath != "" {
		cfg.waitStates, err = waitstate.LoadConfig(*configPath)
		if err != nil {
			logger.WithError(err).Error("failed to load wait-state config")
			return 1
		}
	}

	m, err := newMachine(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to build machine")
		return 1
	}

	if *loadState != "" {
		if err := restore(m.cpu, *loadState); err != nil {
			logger.WithError(err).Error("failed to restore state")
			return 1
		}
	}

	if *statsAddr != "" {
		launchStatsView(*statsAddr, logger)
	}

	if *traceAddr != "" {
		hub := newTraceHub(logger)
		if err := hub.listen(*traceAddr); err != nil {
			logger.WithError(err).Error("failed to start trace stream")
			return 1
		}
		m.core.AddPeripheral(newTracer(m.cpu, hub))
	}

	exit := 0
	if err := m.core.Run(*maxSteps); err != nil && !errors.Is(err, core.ErrStepLimit) {
		logger.WithError(err).Error("CPU stopped")
		exit = 2
	}

	report(m)

	if *saveState != "" {
		if err := snapshot(m.cpu, *saveState); err != nil {
			logger.WithError(err).Error("failed to save state")
			return 1
		}
	}

	return exit
}

func restore(cpu *emu.CPU, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}
	return cpu.Deserialize(data)
}

func snapshot(cpu *emu.CPU, path string) error {
	data, err := cpu.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

func launchStatsView(addr string, logger *logrus.Logger) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	logger.Infof("stats server available at http://%s/debug/statsview", addr)
}

func report(m *machine) {
	stats := m.core.Stats()

	fmt.Printf("\n")
	fmt.Printf("Steps:        %d\n", stats.Steps)
	fmt.Printf("Instructions: %d\n", stats.Instructions)
	fmt.Printf("Cycles:       %d\n", stats.Cycles)
	fmt.Printf("CPI:          %.2f\n", m.cpu.Stats().CPI())
	fmt.Printf("Flushes:      %d\n", stats.Flushes)
	fmt.Printf("Interrupts:   %d\n", stats.Interrupts)
	fmt.Printf("Halted:       %d cycles\n", stats.HaltedCycles)

	if m.probe != nil {
		cs := m.probe.Cache().Stats()
		fmt.Printf("\n")
		fmt.Printf("Cache study (%d KB, %d-way, %d B lines):\n",
			m.probe.Cache().Config().Size/1024,
			m.probe.Cache().Config().Associativity,
			m.probe.Cache().Config().BlockSize)
		fmt.Printf("  Reads:     %d\n", cs.Reads)
		fmt.Printf("  Writes:    %d\n", cs.Writes)
		fmt.Printf("  Hit rate:  %5.1f%%\n", 100*cs.HitRate())
		fmt.Printf("  Evictions: %d\n", cs.Evictions)
		fmt.Printf("  Uncached:  %d\n", m.probe.Bypassed())
	}

	if stats.Instructions > 0 {
		fmt.Printf("\nLast: %s\n", m.cpu.LastExecuted())
	}
	fmt.Printf("\n%s\n", m.cpu.Registers())
}
