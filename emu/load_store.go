package emu

import (
	"math/bits"

	"github.com/sarchlab/gbacore/bitfield"
)

// Timing returns the number of cycles a bus access takes. width is the
// access size in bytes.
type Timing interface {
	Cycles(addr uint32, width uint32, sequential bool) int
}

// LoadStoreUnit performs all CPU bus accesses. It applies the ARM7TDMI
// misalignment rules and accumulates the cycle cost of every access made
// during the current step.
type LoadStoreUnit struct {
	bus    Bus
	timing Timing

	cycles     int
	sequential bool
	touched    bool
}

// NewLoadStoreUnit creates a new LoadStoreUnit on top of bus.
func NewLoadStoreUnit(bus Bus, timing Timing) *LoadStoreUnit {
	return &LoadStoreUnit{bus: bus, timing: timing}
}

// Bus returns the underlying bus.
func (lsu *LoadStoreUnit) Bus() Bus {
	return lsu.bus
}

func (lsu *LoadStoreUnit) charge(addr, width uint32) {
	lsu.cycles += lsu.timing.Cycles(addr, width, lsu.sequential)
	lsu.sequential = true
	lsu.touched = true
}

// BeginTransfer marks the next data access as non-sequential.
func (lsu *LoadStoreUnit) BeginTransfer() {
	lsu.sequential = false
}

// Internal adds n internal (I) cycles.
func (lsu *LoadStoreUnit) Internal(n int) {
	lsu.cycles += n
}

// Touched reports whether a data access happened since the last TakeCycles.
func (lsu *LoadStoreUnit) Touched() bool {
	return lsu.touched
}

// TakeCycles returns the cycles accumulated since the last call and whether
// any data access happened, then resets both.
func (lsu *LoadStoreUnit) TakeCycles() (int, bool) {
	c, t := lsu.cycles, lsu.touched
	lsu.cycles = 0
	lsu.touched = false
	lsu.sequential = false
	return c, t
}

// Fetch reads an instruction word (width 4) or halfword (width 2) at addr.
func (lsu *LoadStoreUnit) Fetch(addr, width uint32, sequential bool) uint32 {
	lsu.cycles += lsu.timing.Cycles(addr, width, sequential)
	if width == 2 {
		return uint32(lsu.bus.Read16(addr &^ 1))
	}
	return lsu.bus.Read32(addr &^ 3)
}

// Peek reads a word without charging cycles.
func (lsu *LoadStoreUnit) Peek(addr uint32) uint32 {
	return lsu.bus.Read32(addr &^ 3)
}

// Load32 reads a word. A misaligned address reads the enclosing aligned word
// rotated right by 8 bits per byte of misalignment.
func (lsu *LoadStoreUnit) Load32(addr uint32) uint32 {
	lsu.charge(addr, 4)
	v := lsu.bus.Read32(addr &^ 3)
	return bits.RotateLeft32(v, -int(addr&3)*8)
}

// LoadAligned32 reads a word ignoring the low address bits, as block
// transfers do.
func (lsu *LoadStoreUnit) LoadAligned32(addr uint32) uint32 {
	lsu.charge(addr, 4)
	return lsu.bus.Read32(addr &^ 3)
}

// Load16 reads an unsigned halfword. An odd address returns the aligned
// halfword rotated right by 8 bits.
func (lsu *LoadStoreUnit) Load16(addr uint32) uint32 {
	lsu.charge(addr, 2)
	v := uint32(lsu.bus.Read16(addr &^ 1))
	if addr&1 != 0 {
		return bits.RotateLeft32(v, -8)
	}
	return v
}

// LoadSigned16 reads a sign-extended halfword. An odd address loads the
// addressed byte sign-extended instead.
func (lsu *LoadStoreUnit) LoadSigned16(addr uint32) uint32 {
	if addr&1 != 0 {
		return lsu.LoadSigned8(addr)
	}
	lsu.charge(addr, 2)
	return bitfield.SignExtend(uint32(lsu.bus.Read16(addr)), 16)
}

// Load8 reads an unsigned byte.
func (lsu *LoadStoreUnit) Load8(addr uint32) uint32 {
	lsu.charge(addr, 1)
	return uint32(lsu.bus.Read8(addr))
}

// LoadSigned8 reads a sign-extended byte.
func (lsu *LoadStoreUnit) LoadSigned8(addr uint32) uint32 {
	lsu.charge(addr, 1)
	return bitfield.SignExtend(uint32(lsu.bus.Read8(addr)), 8)
}

// Store32 writes a word to the aligned address.
func (lsu *LoadStoreUnit) Store32(addr, value uint32) {
	lsu.charge(addr, 4)
	lsu.bus.Write32(addr&^3, value)
}

// Store16 writes a halfword to the aligned address.
func (lsu *LoadStoreUnit) Store16(addr, value uint32) {
	lsu.charge(addr, 2)
	lsu.bus.Write16(addr&^1, uint16(value))
}

// Store8 writes a byte.
func (lsu *LoadStoreUnit) Store8(addr, value uint32) {
	lsu.charge(addr, 1)
	lsu.bus.Write8(addr, uint8(value))
}
