package emu

import (
	"github.com/sarchlab/gbacore/bitfield"
	"github.com/sarchlab/gbacore/insts"
	"github.com/sarchlab/gbacore/savestate"
)

// Slot holds one in-flight instruction.
type Slot struct {
	// Word is the fetched instruction. Thumb halfwords use the low 16 bits.
	Word uint32

	// Format is FormatEmpty for an unfilled slot, FormatPending after fetch
	// and the decoded format after decode.
	Format insts.Format

	// Addr is the address the word was fetched from.
	Addr uint32
}

// Pipeline is the three-stage fetch/decode/execute buffer. The slots form a
// ring: head is the execute stage, head+1 decode and head+2 fetch.
type Pipeline struct {
	Slots  [3]Slot
	head   int
	filled int
}

// Execute returns the slot in the execute stage.
func (p *Pipeline) Execute() *Slot {
	return &p.Slots[p.head]
}

// Decode returns the slot in the decode stage.
func (p *Pipeline) Decode() *Slot {
	return &p.Slots[(p.head+1)%3]
}

// Fetch returns the slot the next fetch writes into.
func (p *Pipeline) Fetch() *Slot {
	return &p.Slots[(p.head+2)%3]
}

// Advance rotates the ring by one stage after a fetch.
func (p *Pipeline) Advance() {
	p.head = (p.head + 1) % 3
	if p.filled < 3 {
		p.filled++
	}
}

// Flush empties all slots. Flushing an empty pipeline is a no-op.
func (p *Pipeline) Flush() {
	for i := range p.Slots {
		p.Slots[i] = Slot{}
	}
	p.head = 0
	p.filled = 0
}

// Head returns the index of the execute slot.
func (p *Pipeline) Head() int {
	return p.head
}

// Filled returns the number of fetches since the last flush, capped at 3.
func (p *Pipeline) Filled() int {
	return p.filled
}

// Empty reports whether nothing has been fetched since the last flush.
func (p *Pipeline) Empty() bool {
	return p.filled == 0
}

// Steady reports whether all three stages hold instructions.
func (p *Pipeline) Steady() bool {
	return p.filled == 3
}

// Save implements savestate.Stater.
func (p *Pipeline) Save(s *savestate.State) {
	for _, slot := range p.Slots {
		s.Write32(slot.Word)
		s.Write8(uint8(slot.Format))
		s.Write32(slot.Addr)
	}
	s.Write8(uint8(p.head))
	s.Write8(uint8(p.filled))
}

// Load implements savestate.Stater.
func (p *Pipeline) Load(s *savestate.State) {
	for i := range p.Slots {
		p.Slots[i].Word = s.Read32()
		p.Slots[i].Format = insts.Format(s.Read8())
		p.Slots[i].Addr = s.Read32()
	}
	p.head = int(s.Read8()) % 3
	p.filled = bitfield.Clamp(0, int(s.Read8()), 3)
}
