// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"fmt"
	"strings"
)

// Mode is the processor mode held in CPSR bits [4:0].
type Mode uint32

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// Valid reports whether m is one of the seven architectural modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem:
		return true
	}
	return false
}

// Privileged reports whether the mode can write the control byte of CPSR.
func (m Mode) Privileged() bool {
	return m != ModeUser
}

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "USR"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSupervisor:
		return "SVC"
	case ModeAbort:
		return "ABT"
	case ModeUndefined:
		return "UND"
	case ModeSystem:
		return "SYS"
	}
	return fmt.Sprintf("mode(0x%02X)", uint32(m))
}

// Bank indexes one physical copy of the banked registers.
type Bank int

// Register banks. User and System share BankUser.
const (
	BankUser Bank = iota
	BankFIQ
	BankSupervisor
	BankAbort
	BankIRQ
	BankUndefined

	BankCount
)

// BankOf returns the register bank used by mode m. Invalid modes use the
// user bank.
func BankOf(m Mode) Bank {
	switch m {
	case ModeFIQ:
		return BankFIQ
	case ModeSupervisor:
		return BankSupervisor
	case ModeAbort:
		return BankAbort
	case ModeIRQ:
		return BankIRQ
	case ModeUndefined:
		return BankUndefined
	}
	return BankUser
}

// StatusRegister is a packed program status register (CPSR or SPSR).
type StatusRegister uint32

// Status register bits.
const (
	FlagN StatusRegister = 1 << 31 // Negative
	FlagZ StatusRegister = 1 << 30 // Zero
	FlagC StatusRegister = 1 << 29 // Carry
	FlagV StatusRegister = 1 << 28 // Overflow
	FlagQ StatusRegister = 1 << 27 // Sticky saturation
	FlagI StatusRegister = 1 << 7  // IRQ disable
	FlagF StatusRegister = 1 << 6  // FIQ disable
	FlagT StatusRegister = 1 << 5  // Thumb state

	ModeMask StatusRegister = 0x1F
)

// Has reports whether all bits of f are set.
func (s StatusRegister) Has(f StatusRegister) bool {
	return s&f == f
}

// With returns s with the bits of f set or cleared.
func (s StatusRegister) With(f StatusRegister, on bool) StatusRegister {
	if on {
		return s | f
	}
	return s &^ f
}

// Mode returns the mode field.
func (s StatusRegister) Mode() Mode {
	return Mode(s & ModeMask)
}

// Thumb reports whether the T bit is set.
func (s StatusRegister) Thumb() bool {
	return s.Has(FlagT)
}

func (s StatusRegister) String() string {
	var b strings.Builder
	for _, f := range []struct {
		bit  StatusRegister
		name byte
	}{{FlagN, 'N'}, {FlagZ, 'Z'}, {FlagC, 'C'}, {FlagV, 'V'}, {FlagQ, 'Q'}, {FlagI, 'I'}, {FlagF, 'F'}, {FlagT, 'T'}} {
		if s.Has(f.bit) {
			b.WriteByte(f.name)
		} else {
			b.WriteByte(f.name + 'a' - 'A')
		}
	}
	b.WriteByte(' ')
	b.WriteString(s.Mode().String())
	return b.String()
}

// RegisterFile represents the ARM7TDMI register file.
//
// R is the active view of R0-R15. The physical copies of R8-R14 that are not
// currently visible live in the bank arrays and are swapped in whenever the
// mode field of CPSR changes.
type RegisterFile struct {
	// R holds the registers visible in the current mode.
	// R[13] is SP, R[14] is LR and R[15] is PC.
	R [16]uint32

	cpsr   StatusRegister
	active Bank

	// banked holds R13 and R14 for every bank. The entry of the active bank
	// is stale while that bank is active.
	banked [BankCount][2]uint32

	// userHigh and fiqHigh hold R8-R12 for non-FIQ and FIQ modes.
	userHigh [5]uint32
	fiqHigh  [5]uint32

	spsr [BankCount]StatusRegister
}

// NewRegisterFile creates a register file in the reset state: Supervisor
// mode, ARM state, IRQ and FIQ disabled.
func NewRegisterFile() *RegisterFile {
	r := &RegisterFile{}
	r.cpsr = StatusRegister(ModeSupervisor) | FlagI | FlagF
	r.active = BankSupervisor
	return r
}

// CPSR returns the current program status register.
func (r *RegisterFile) CPSR() StatusRegister {
	return r.cpsr
}

// SetCPSR replaces the current program status register, rebanking if the
// mode field changes.
func (r *RegisterFile) SetCPSR(v StatusRegister) {
	r.SwitchMode(v.Mode())
	r.cpsr = v
}

// Mode returns the current processor mode.
func (r *RegisterFile) Mode() Mode {
	return r.cpsr.Mode()
}

// ActiveBank returns the bank selected by the current mode.
func (r *RegisterFile) ActiveBank() Bank {
	return r.active
}

// SetFlag sets or clears status bits outside the mode field.
func (r *RegisterFile) SetFlag(f StatusRegister, on bool) {
	r.cpsr = r.cpsr.With(f&^ModeMask, on)
}

// Flag reports whether the status bits f are set in CPSR.
func (r *RegisterFile) Flag(f StatusRegister) bool {
	return r.cpsr.Has(f)
}

// SwitchMode changes the mode field, banking out the registers of the old
// mode and banking in those of the new one.
func (r *RegisterFile) SwitchMode(m Mode) {
	next := BankOf(m)
	if next != r.active {
		r.bankOut()
		r.active = next
		r.bankIn()
	}
	r.cpsr = r.cpsr&^ModeMask | StatusRegister(m)
}

func (r *RegisterFile) bankOut() {
	r.banked[r.active][0] = r.R[13]
	r.banked[r.active][1] = r.R[14]
	if r.active == BankFIQ {
		copy(r.fiqHigh[:], r.R[8:13])
	} else {
		copy(r.userHigh[:], r.R[8:13])
	}
}

func (r *RegisterFile) bankIn() {
	r.R[13] = r.banked[r.active][0]
	r.R[14] = r.banked[r.active][1]
	if r.active == BankFIQ {
		copy(r.R[8:13], r.fiqHigh[:])
	} else {
		copy(r.R[8:13], r.userHigh[:])
	}
}

// SPSR returns the saved status register of the current mode. User and
// System mode have none and return CPSR.
func (r *RegisterFile) SPSR() StatusRegister {
	if r.active == BankUser {
		return r.cpsr
	}
	return r.spsr[r.active]
}

// SetSPSR writes the saved status register of the current mode. Writes in
// User and System mode are ignored.
func (r *RegisterFile) SetSPSR(v StatusRegister) {
	if r.active == BankUser {
		return
	}
	r.spsr[r.active] = v
}

// SPSRFor returns the saved status register of bank b.
func (r *RegisterFile) SPSRFor(b Bank) StatusRegister {
	return r.spsr[b]
}

// BankedReg reads R13 (i=13) or R14 (i=14) of bank b without switching
// modes.
func (r *RegisterFile) BankedReg(b Bank, i int) uint32 {
	if b == r.active {
		return r.R[i]
	}
	return r.banked[b][i-13]
}

// SetBankedReg writes R13 (i=13) or R14 (i=14) of bank b without switching
// modes.
func (r *RegisterFile) SetBankedReg(b Bank, i int, v uint32) {
	if b == r.active {
		r.R[i] = v
		return
	}
	r.banked[b][i-13] = v
}

// UserReg reads register i as seen from User mode. It is used by block
// transfers with the S bit set.
func (r *RegisterFile) UserReg(i int) uint32 {
	switch {
	case i >= 8 && i <= 12 && r.active == BankFIQ:
		return r.userHigh[i-8]
	case i == 13 || i == 14:
		return r.BankedReg(BankUser, i)
	}
	return r.R[i]
}

// SetUserReg writes register i as seen from User mode.
func (r *RegisterFile) SetUserReg(i int, v uint32) {
	switch {
	case i >= 8 && i <= 12 && r.active == BankFIQ:
		r.userHigh[i-8] = v
	case i == 13 || i == 14:
		r.SetBankedReg(BankUser, i, v)
	default:
		r.R[i] = v
	}
}
