package cache

import (
	"github.com/sarchlab/gbacore/emu"
)

// ioRegion is the address range of the memory-mapped I/O registers.
const (
	ioRegionStart uint32 = 0x04000000
	ioRegionEnd   uint32 = 0x05000000
)

// Probe is an emu.Bus that routes CPU accesses through a Cache. Accesses to
// the I/O registers bypass it. Call Flush before reading the underlying bus
// directly.
type Probe struct {
	bus   emu.Bus
	cache *Cache

	bypassed uint64
	latency  uint64
}

// NewProbe puts a cache with the given configuration in front of bus.
func NewProbe(bus emu.Bus, config Config) *Probe {
	return &Probe{
		bus:   bus,
		cache: New(config, NewBusBacking(bus)),
	}
}

// Cache returns the underlying cache model.
func (p *Probe) Cache() *Cache {
	return p.cache
}

// Bypassed returns the number of uncached I/O accesses.
func (p *Probe) Bypassed() uint64 {
	return p.bypassed
}

// Latency returns the total modelled latency of all cached accesses.
func (p *Probe) Latency() uint64 {
	return p.latency
}

// Flush writes all dirty lines back to the bus.
func (p *Probe) Flush() {
	p.cache.Flush()
}

func (p *Probe) uncached(addr uint32) bool {
	if addr >= ioRegionStart && addr < ioRegionEnd {
		p.bypassed++
		return true
	}
	return false
}

func (p *Probe) read(addr uint32, size int) uint32 {
	res := p.cache.Read(addr, size)
	p.latency += res.Latency
	return res.Data
}

func (p *Probe) write(addr uint32, size int, v uint32) {
	res := p.cache.Write(addr, size, v)
	p.latency += res.Latency
}

// Read8 implements emu.Bus.
func (p *Probe) Read8(addr uint32) uint8 {
	if p.uncached(addr) {
		return p.bus.Read8(addr)
	}
	return uint8(p.read(addr, 1))
}

// Read16 implements emu.Bus.
func (p *Probe) Read16(addr uint32) uint16 {
	if p.uncached(addr) {
		return p.bus.Read16(addr)
	}
	return uint16(p.read(addr, 2))
}

// Read32 implements emu.Bus.
func (p *Probe) Read32(addr uint32) uint32 {
	if p.uncached(addr) {
		return p.bus.Read32(addr)
	}
	return p.read(addr, 4)
}

// Write8 implements emu.Bus.
func (p *Probe) Write8(addr uint32, value uint8) {
	if p.uncached(addr) {
		p.bus.Write8(addr, value)
		return
	}
	p.write(addr, 1, uint32(value))
}

// Write16 implements emu.Bus.
func (p *Probe) Write16(addr uint32, value uint16) {
	if p.uncached(addr) {
		p.bus.Write16(addr, value)
		return
	}
	p.write(addr, 2, uint32(value))
}

// Write32 implements emu.Bus.
func (p *Probe) Write32(addr uint32, value uint32) {
	if p.uncached(addr) {
		p.bus.Write32(addr, value)
		return
	}
	p.write(addr, 4, value)
}
