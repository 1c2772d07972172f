// Package loader reads cartridge ROM images and ARM ELF executables into a
// Program that can be placed on the bus.
package loader

import (
	"fmt"
	"os"

	"github.com/sarchlab/gbacore/emu"
)

// Kind is the format an image was read from.
type Kind int

// Image kinds.
const (
	KindROM Kind = iota
	KindELF
)

func (k Kind) String() string {
	if k == KindELF {
		return "elf"
	}
	return "rom"
}

// Program represents a loaded image ready for execution.
type Program struct {
	// Kind is the format the image was read from.
	Kind Kind
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Thumb is true when execution begins in Thumb state.
	Thumb bool
	// Segments contains all loadable segments.
	Segments []Segment
	// Header is the cartridge header of a ROM image.
	Header Header
}

// Load reads an image from path. Compressed images (.gz, .zip, .7z) are
// unpacked first. ELF files are recognized by their magic number; anything
// else is a raw ROM mapped at ROMBase.
func Load(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return LoadBytes(path, raw)
}

// LoadBytes is Load for an image already in memory. The name selects the
// decompression by its extension.
func LoadBytes(name string, raw []byte) (*Program, error) {
	data, err := readImage(name, raw)
	if err != nil {
		return nil, err
	}

	if isELF(data) {
		return parseELF(data)
	}
	return parseROM(data)
}

func parseROM(data []byte) (*Program, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("ROM image is empty")
	}
	if len(data) > MaxROMSize {
		return nil, fmt.Errorf("ROM image is larger than %d bytes", MaxROMSize)
	}

	prog := &Program{
		Kind:       KindROM,
		EntryPoint: ROMBase,
		Segments: []Segment{{
			VirtAddr: ROMBase,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagExecute,
		}},
	}

	// Small test ROMs often carry no header.
	if h, err := ParseHeader(data); err == nil {
		prog.Header = h
	}

	return prog, nil
}

// LoadBIOS reads a system ROM image, which must be exactly BIOSSize bytes.
func LoadBIOS(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BIOS: %w", err)
	}
	data, err := readImage(path, raw)
	if err != nil {
		return nil, err
	}
	if len(data) != BIOSSize {
		return nil, fmt.Errorf("BIOS is %d bytes, expected %d", len(data), BIOSSize)
	}

	return &Program{
		Kind: KindROM,
		Segments: []Segment{{
			Data:    data,
			MemSize: BIOSSize,
			Flags:   SegmentFlagRead | SegmentFlagExecute,
		}},
	}, nil
}

// LoadInto writes every segment to bus and zero-fills the rest of each
// segment's memory size.
func (p *Program) LoadInto(bus emu.Bus) {
	for _, seg := range p.Segments {
		for i, b := range seg.Data {
			bus.Write8(seg.VirtAddr+uint32(i), b)
		}
		for i := uint32(len(seg.Data)); i < seg.MemSize; i++ {
			bus.Write8(seg.VirtAddr+i, 0)
		}
	}
}
