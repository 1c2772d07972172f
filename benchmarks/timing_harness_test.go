package benchmarks_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/benchmarks"
	"github.com/sarchlab/gbacore/insts"
	"github.com/sarchlab/gbacore/timing/core"
)

func byName(results []benchmarks.BenchmarkResult) map[string]benchmarks.BenchmarkResult {
	m := make(map[string]benchmarks.BenchmarkResult, len(results))
	for _, r := range results {
		m[r.Name] = r
	}
	return m
}

var _ = Describe("Harness", func() {
	var (
		out    *bytes.Buffer
		config benchmarks.HarnessConfig
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		config = benchmarks.DefaultConfig()
		config.Output = out
	})

	It("should run every microbenchmark to its expected exit code", func() {
		h := benchmarks.NewHarness(config)
		suite := benchmarks.GetMicrobenchmarks()
		h.AddBenchmarks(suite)

		results := h.RunAll()
		Expect(results).To(HaveLen(len(suite)))

		for i, r := range results {
			Expect(r.Fault).To(BeEmpty(), r.Name)
			Expect(r.ExitCode).To(Equal(suite[i].ExpectedExit), r.Name)
			Expect(r.SimulatedCycles).To(BeNumerically(">", r.InstructionsRetired), r.Name)
			Expect(r.CPI).To(BeNumerically(">", 1), r.Name)
		}
	})

	It("should charge ROM wait states on instruction fetch", func() {
		h := benchmarks.NewHarness(config)
		h.AddBenchmarks(benchmarks.GetMicrobenchmarks())
		results := byName(h.RunAll())

		rom := results["arithmetic_sequential"]
		iwram := results["arithmetic_iwram"]
		Expect(rom.InstructionsRetired).To(Equal(iwram.InstructionsRetired))
		Expect(rom.SimulatedCycles).To(BeNumerically(">", iwram.SimulatedCycles))
	})

	It("should flush once per taken loop branch", func() {
		h := benchmarks.NewHarness(config)
		h.AddBenchmarks(benchmarks.GetCoreBenchmarks())
		results := byName(h.RunAll())

		Expect(results["loop_countdown"].PipelineFlushes).To(BeNumerically(">=", 99))
		Expect(results["memory_sequential"].PipelineFlushes).To(BeNumerically("<", 3))
	})

	It("should report cache statistics when the cache study is on", func() {
		config.EnableCache = true
		h := benchmarks.NewHarness(config)
		h.AddBenchmarks(benchmarks.GetCoreBenchmarks())

		for _, r := range h.RunAll() {
			Expect(r.Fault).To(BeEmpty(), r.Name)
			Expect(r.CacheMisses).To(BeNumerically(">", 0), r.Name)
		}
		Expect(byName(h.RunAll())["loop_countdown"].CacheHits).To(BeNumerically(">", 100))
	})

	It("should stop a program that never exits", func() {
		config.MaxSteps = 100
		h := benchmarks.NewHarness(config)
		h.AddBenchmark(benchmarks.Benchmark{
			Name: "spin",
			Program: benchmarks.BuildProgram(
				benchmarks.EncodeB(insts.CondAL, benchmarks.ROMBase, benchmarks.ROMBase),
			),
		})

		results := h.RunAll()
		Expect(results[0].Fault).To(Equal(core.ErrStepLimit.Error()))
		Expect(results[0].Steps).To(Equal(uint64(100)))
	})

	It("should report an undefined instruction as a fault", func() {
		h := benchmarks.NewHarness(config)
		h.AddBenchmark(benchmarks.Benchmark{
			Name:    "undefined",
			Program: benchmarks.BuildProgram(0xE6000010),
		})

		results := h.RunAll()
		Expect(results[0].Fault).NotTo(BeEmpty())
	})

	Context("output", func() {
		var results []benchmarks.BenchmarkResult
		var h *benchmarks.Harness

		BeforeEach(func() {
			h = benchmarks.NewHarness(config)
			h.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			results = h.RunAll()
		})

		It("should print a readable report", func() {
			h.PrintResults(results)
			Expect(out.String()).To(ContainSubstring("Benchmark: loop_countdown"))
			Expect(out.String()).To(ContainSubstring("Exit Code: 200"))
		})

		It("should print one CSV row per benchmark", func() {
			h.PrintCSV(results)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(len(results) + 1))
			Expect(lines[0]).To(HavePrefix("name,cycles,instructions,cpi"))
			Expect(lines[1]).To(HavePrefix("loop_countdown,"))
		})

		It("should print a JSON report with a summary", func() {
			Expect(h.PrintJSON(results)).To(Succeed())

			var report benchmarks.BenchmarkReport
			Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
			Expect(report.Summary.TotalBenchmarks).To(Equal(len(results)))
			Expect(report.Results[2].ExitCode).To(Equal(int64(3)))

			var cycles uint64
			for _, r := range results {
				cycles += r.SimulatedCycles
			}
			Expect(report.Summary.TotalCycles).To(Equal(cycles))
		})
	})
})
