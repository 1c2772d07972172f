package emu

// Bus is the memory system seen by the CPU. Implementations decode the full
// 32-bit address space; the CPU performs alignment and rotation itself and
// always passes naturally aligned addresses for halfword and word accesses.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, value uint8)
	Write16(addr uint32, value uint16)
	Write32(addr uint32, value uint32)
}

const pageBits = 12

// Memory is a sparse little-endian byte store covering the full address
// space. Unwritten bytes read as zero.
type Memory struct {
	pages map[uint32]*[1 << pageBits]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[1 << pageBits]byte)}
}

func (m *Memory) page(addr uint32, create bool) *[1 << pageBits]byte {
	p, ok := m.pages[addr>>pageBits]
	if !ok && create {
		p = new([1 << pageBits]byte)
		m.pages[addr>>pageBits] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(1<<pageBits-1)]
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.page(addr, true)[addr&(1<<pageBits-1)] = value
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// LoadProgram copies program into memory starting at addr.
func (m *Memory) LoadProgram(addr uint32, program []byte) {
	for i, b := range program {
		m.Write8(addr+uint32(i), b)
	}
}
