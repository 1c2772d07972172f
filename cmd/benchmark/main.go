// Command benchmark runs the gbacore timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv          Output results in CSV format (default: human-readable)
//	-json         Output results in JSON format
//	-cache        Route the bus through the cache model
//	-config       Path to a wait-state configuration JSON file
//	-core         Run only the quick core set
//
// Example:
//
//	# Compare the power-on wait states with a tuned WAITCNT setting
//	go run ./cmd/benchmark -csv > default.csv
//	go run ./cmd/benchmark -csv -config fast.json > fast.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/benchmarks"
	"github.com/sarchlab/gbacore/timing/waitstate"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	enableCache := flag.Bool("cache", false, "Route the bus through the cache model")
	configPath := flag.String("config", "", "Path to wait-state configuration JSON file")
	coreOnly := flag.Bool("core", false, "Run only the quick core set")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := benchmarks.DefaultConfig()
	config.EnableCache = *enableCache
	config.Output = os.Stdout
	config.Logger = logger
	config.Verbose = *verbose

	if *configPath != "" {
		ws, err := waitstate.LoadConfig(*configPath)
		if err == nil {
			err = ws.Validate()
		}
		if err != nil {
			logger.WithError(err).Error("failed to load wait-state config")
			os.Exit(1)
		}
		config.WaitStates = ws
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("gbacore Timing Benchmark Harness")
		fmt.Println("================================")
		fmt.Printf("Cache study: %v\n", config.EnableCache)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			logger.WithError(err).Error("failed to write JSON report")
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Fault != "" {
			logger.WithFields(logrus.Fields{
				"benchmark": r.Name,
				"fault":     r.Fault,
			}).Error("benchmark did not exit")
			os.Exit(2)
		}
	}
}
