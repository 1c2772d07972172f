// Package main provides the entry point for gbacore.
// gbacore is an ARM7TDMI interpreter core for a handheld console, with a
// three-stage pipeline, banked registers and ARM/Thumb decoding.
//
// For the full CLI, use: go run ./cmd/gbacore
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("gbacore - ARM7TDMI handheld CPU core")
	fmt.Println("")
	fmt.Println("Usage: gbacore [options] <image.gba|image.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -bios            Path to a 16KB BIOS image")
	fmt.Println("  -steps           Maximum number of pipeline steps")
	fmt.Println("  -config          Path to wait-state configuration JSON file")
	fmt.Println("  -ignore-illegal  Execute undefined instructions as no-ops")
	fmt.Println("  -cache-study     Report the hit rate of a cache model on the bus")
	fmt.Println("  -statsview       Serve Go runtime statistics at an address")
	fmt.Println("  -trace-addr      Stream executed instructions over a websocket")
	fmt.Println("  -save-state      Write the final CPU state to a file")
	fmt.Println("  -load-state      Restore the CPU state from a file")
	fmt.Println("  -v               Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/gbacore' for the full CLI, or 'go run ./cmd/benchmark' for the timing harness.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/gbacore' instead.")
	}
}
