package cache

import (
	"github.com/sarchlab/gbacore/emu"
)

// BusBacking wraps an emu.Bus as a BackingStore.
type BusBacking struct {
	bus emu.Bus
}

// NewBusBacking creates a new BusBacking adapter.
func NewBusBacking(bus emu.Bus) *BusBacking {
	return &BusBacking{bus: bus}
}

// Read fetches data from the bus byte by byte.
func (b *BusBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = b.bus.Read8(addr + uint32(i))
	}
	return data
}

// Write stores data to the bus byte by byte.
func (b *BusBacking) Write(addr uint32, data []byte) {
	for i, v := range data {
		b.bus.Write8(addr+uint32(i), v)
	}
}
