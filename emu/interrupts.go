package emu

import "github.com/sarchlab/gbacore/savestate"

// Interrupt is a bit position in the IE and IF registers.
type Interrupt uint16

// Interrupt sources.
const (
	IntVBlank Interrupt = iota
	IntHBlank
	IntVCount
	IntTimer0
	IntTimer1
	IntTimer2
	IntTimer3
	IntSerial
	IntDMA0
	IntDMA1
	IntDMA2
	IntDMA3
	IntKeypad
	IntGamePak
)

// Mask returns the IE/IF bit of the interrupt.
func (i Interrupt) Mask() uint16 {
	return 1 << i
}

// IRQLines is the view of the interrupt controller the CPU polls at every
// step boundary.
type IRQLines interface {
	// IME is the master enable.
	IME() bool
	// IE is the set of enabled sources.
	IE() uint16
	// IF is the set of requested sources.
	IF() uint16
}

// Lines is a plain interrupt controller holding IME, IE and IF.
type Lines struct {
	ime bool
	ie  uint16
	irf uint16
}

// NewLines creates a controller with everything disabled.
func NewLines() *Lines {
	return &Lines{}
}

// IME implements IRQLines.
func (l *Lines) IME() bool { return l.ime }

// IE implements IRQLines.
func (l *Lines) IE() uint16 { return l.ie }

// IF implements IRQLines.
func (l *Lines) IF() uint16 { return l.irf }

// SetIME sets the master enable.
func (l *Lines) SetIME(on bool) {
	l.ime = on
}

// SetIE replaces the enabled set.
func (l *Lines) SetIE(mask uint16) {
	l.ie = mask
}

// Request raises the IF bit of i.
func (l *Lines) Request(i Interrupt) {
	l.irf |= i.Mask()
}

// Acknowledge clears the IF bits in mask, as a write of 1s to IF does.
func (l *Lines) Acknowledge(mask uint16) {
	l.irf &^= mask
}

// Raised reports whether any enabled source is requesting, ignoring IME.
func (l *Lines) Raised() bool {
	return l.ie&l.irf != 0
}

// Save implements savestate.Stater.
func (l *Lines) Save(s *savestate.State) {
	s.WriteBool(l.ime)
	s.Write16(l.ie)
	s.Write16(l.irf)
}

// Load implements savestate.Stater.
func (l *Lines) Load(s *savestate.State) {
	l.ime = s.ReadBool()
	l.ie = s.Read16()
	l.irf = s.Read16()
}

// noLines is used when the CPU has no interrupt controller attached.
type noLines struct{}

func (noLines) IME() bool  { return false }
func (noLines) IE() uint16 { return 0 }
func (noLines) IF() uint16 { return 0 }
