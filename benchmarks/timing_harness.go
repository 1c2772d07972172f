// Package benchmarks provides timing benchmark infrastructure for gbacore
// calibration.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/timing/cache"
	"github.com/sarchlab/gbacore/timing/core"
	"github.com/sarchlab/gbacore/timing/waitstate"
)

// Load addresses for benchmark programs.
const (
	ROMBase   uint32 = 0x08000000
	IWRAMBase uint32 = 0x03000000
	EWRAMBase uint32 = 0x02000000
)

// ExitSWI is the software interrupt number that ends a benchmark. R0 holds
// the exit code.
const ExitSWI uint32 = 0xFF

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count including wait states
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// Steps is the number of pipeline steps
	Steps uint64 `json:"steps"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// CacheHits/Misses (if the cache study is enabled)
	CacheHits   uint64 `json:"cache_hits,omitempty"`
	CacheMisses uint64 `json:"cache_misses,omitempty"`

	// ExitCode is R0 when the program raised the exit SWI
	ExitCode int64 `json:"exit_code"`

	// Fault is the CPU fault that stopped the program, if any
	Fault string `json:"fault,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the emulator state (e.g., initialize registers, memory)
	Setup func(regs *emu.RegisterFile, memory *emu.Memory)

	// Program is the machine code to execute
	Program []byte

	// Base is the load and entry address. Zero means ROMBase.
	Base uint32

	// Thumb starts the program in Thumb state.
	Thumb bool

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableCache routes the bus through the cache model.
	EnableCache bool

	// CacheConfig is the cache geometry used when EnableCache is set.
	CacheConfig cache.Config

	// WaitStates overrides the power-on wait states.
	WaitStates *waitstate.Config

	// MaxSteps bounds each run. A program that has not exited by then
	// reports the step limit as its fault.
	MaxSteps uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives CPU and harness logs. Nil discards them.
	Logger *logrus.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableCache: false,
		CacheConfig: cache.DefaultConfig(),
		MaxSteps:    1_000_000,
		Output:      os.Stdout,
		Verbose:     false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxSteps == 0 {
		config.MaxSteps = DefaultConfig().MaxSteps
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory()

	base := bench.Base
	if base == 0 {
		base = ROMBase
	}
	memory.LoadProgram(base, bench.Program)

	table := waitstate.NewTable()
	if h.config.WaitStates != nil {
		table = waitstate.NewTableWithConfig(h.config.WaitStates)
	}

	var bus emu.Bus = memory
	var probe *cache.Probe
	if h.config.EnableCache {
		probe = cache.NewProbe(memory, h.config.CacheConfig)
		bus = probe
	}

	exited := false
	opts := []emu.Option{
		emu.WithWaitStates(table),
		emu.WithSWIHandler(func(c *emu.CPU, number uint32) bool {
			if number == ExitSWI {
				exited = true
				c.Halt()
				return true
			}
			return emu.HLEBIOS(c, number)
		}),
	}
	if h.config.Logger != nil {
		opts = append(opts, emu.WithLogger(h.config.Logger))
	}

	cpu := emu.NewCPU(bus, opts...)
	cpu.SkipBIOS(base)
	if bench.Setup != nil {
		bench.Setup(cpu.RegFile(), memory)
	}
	if bench.Thumb {
		cpu.RegFile().SetFlag(emu.FlagT, true)
		cpu.SetPC(base)
	}

	c := core.NewCore(cpu)

	// Run simulation and measure time
	var fault error
	start := time.Now()
	for !exited {
		if c.Stats().Steps >= h.config.MaxSteps {
			fault = core.ErrStepLimit
			break
		}
		if res := c.Step(); res.Fault != nil {
			fault = res.Fault
			break
		}
	}
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 cpu.Stats().CPI(),
		Steps:               stats.Steps,
		PipelineFlushes:     stats.Flushes,
		ExitCode:            int64(int32(cpu.RegFile().R[0])),
		WallTime:            wallTime,
	}
	if fault != nil {
		result.Fault = fault.Error()
	}

	if probe != nil {
		cs := probe.Cache().Stats()
		result.CacheHits = cs.Hits
		result.CacheMisses = cs.Misses
	}

	if h.config.Logger != nil {
		h.config.Logger.WithFields(logrus.Fields{
			"benchmark": bench.Name,
			"cycles":    result.SimulatedCycles,
			"cpi":       result.CPI,
		}).Debug("benchmark finished")
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== gbacore Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Fault != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Fault: %s\n", r.Fault)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Steps:       %d\n", r.Steps)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		if r.CacheHits > 0 || r.CacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.CacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.CacheMisses)
		}

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		}
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,steps,flushes,cache_hits,cache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.Steps,
			r.PipelineFlushes,
			r.CacheHits,
			r.CacheMisses,
			r.ExitCode,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	CacheEnabled bool   `json:"cache_enabled"`
	MaxSteps     uint64 `json:"max_steps"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is total cycles over total instructions
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				CacheEnabled: h.config.EnableCache,
				MaxSteps:     h.config.MaxSteps,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// BuildProgram assembles ARM instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// BuildThumbProgram assembles Thumb halfwords into a byte slice.
func BuildThumbProgram(instrs ...uint16) []byte {
	program := make([]byte, 0, len(instrs)*2)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint16(program, inst)
	}
	return program
}
