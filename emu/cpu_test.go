package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/insts"
)

const (
	nop       uint32 = 0xE1A00000 // mov r0, r0
	movR0Imm5 uint32 = 0xE3A00005 // mov r0, #5
	movR1Imm7 uint32 = 0xE3A01007 // mov r1, #7
)

var _ = Describe("CPU", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	Describe("Reset", func() {
		It("should enter Supervisor mode in ARM state at the reset vector", func() {
			h.regs().R[0] = 0xDEAD
			h.cpu.Reset()

			Expect(h.regs().Mode()).To(Equal(emu.ModeSupervisor))
			Expect(h.cpu.InstructionSet()).To(Equal(insts.SetARM))
			Expect(h.regs().R[15]).To(BeZero())
			Expect(h.cpu.Pipeline().Filled()).To(BeZero())
			Expect(h.cpu.Stats()).To(Equal(emu.Statistics{}))
		})

		It("should execute a move after the pipeline fills", func() {
			h.loadARM(base, movR0Imm5)
			h.cpu.Reset()
			h.cpu.SetPC(base)

			h.steps(2)
			Expect(h.regs().R[0]).To(BeZero())

			res := h.cpu.Step()
			Expect(res.Executed).To(BeTrue())
			Expect(h.regs().R[0]).To(Equal(uint32(5)))
		})
	})

	Describe("Pipeline", func() {
		It("should expose the instruction address plus 8 as PC in ARM state", func() {
			h.runARM(0xE1A0000F) // mov r0, pc
			Expect(h.regs().R[0]).To(Equal(base + 8))
		})

		It("should become steady after three steps", func() {
			h.loadARM(base, nop, nop, nop, nop)
			h.cpu.SetPC(base)

			for i := 1; i <= 3; i++ {
				Expect(h.cpu.Pipeline().Steady()).To(BeFalse())
				h.cpu.Step()
				Expect(h.cpu.Pipeline().Filled()).To(Equal(i))
			}
			Expect(h.cpu.Pipeline().Steady()).To(BeTrue())
		})

		It("should flush idempotently", func() {
			h.loadARM(base, nop, nop, nop)
			h.cpu.SetPC(base)
			h.steps(3)

			p := h.cpu.Pipeline()
			p.Flush()
			p.Flush()

			Expect(p.Filled()).To(BeZero())
			Expect(p.Head()).To(BeZero())
			for _, slot := range p.Slots {
				Expect(slot.Format).To(Equal(insts.FormatEmpty))
			}
		})

		It("should skip decode and fetch on the step that branches", func() {
			// b +0x20
			h.loadARM(base, 0xEA000006)
			h.loadARM(base+0x20, movR0Imm5)
			h.cpu.SetPC(base)
			h.steps(3)

			Expect(h.regs().R[15]).To(Equal(base + 0x20))
			Expect(h.cpu.Pipeline().Filled()).To(BeZero())

			h.steps(3)
			Expect(h.regs().R[0]).To(Equal(uint32(5)))
			Expect(h.cpu.LastExecuted().Address).To(Equal(base + 0x20))
		})

		It("should fall through a failed conditional branch without flushing", func() {
			h.loadARM(base, 0x0A00000E, movR1Imm7) // beq +0x40; mov r1, #7
			h.regs().SetFlag(emu.FlagZ, false)
			h.cpu.SetPC(base)
			h.steps(2)
			flushes := h.cpu.Stats().Flushes

			res := h.cpu.Step()
			Expect(res.Executed).To(BeTrue())
			Expect(h.cpu.LastExecuted().ConditionPassed).To(BeFalse())
			Expect(h.cpu.LastExecuted().Executed).To(BeTrue())
			Expect(h.cpu.Stats().Flushes).To(Equal(flushes))
			Expect(h.regs().R[15]).To(Equal(base + 12))
			Expect(h.cpu.Pipeline().Steady()).To(BeTrue())

			h.cpu.Step()
			Expect(h.regs().R[1]).To(Equal(uint32(7)))
			Expect(h.regs().R[15]).To(Equal(base + 16))
		})

		It("should refill for two steps after exchanging into Thumb state", func() {
			h.regs().R[0] = (base + 0x100) | 1
			h.loadARM(base, 0xE12FFF10) // bx r0
			h.loadThumb(base+0x100, 0x2107)
			h.cpu.SetPC(base)
			h.steps(3)

			Expect(h.cpu.InstructionSet()).To(Equal(insts.SetThumb))
			Expect(h.regs().R[15]).To(Equal(base + 0x100))

			for i := 0; i < 2; i++ {
				res := h.cpu.Step()
				Expect(res.Executed).To(BeFalse())
				Expect(h.cpu.Pipeline().Steady()).To(BeFalse())
			}

			res := h.cpu.Step()
			Expect(res.Executed).To(BeTrue())
			Expect(h.regs().R[1]).To(Equal(uint32(7)))
			Expect(h.cpu.LastExecuted().Set).To(Equal(insts.SetThumb))
		})
	})

	Describe("Cycles", func() {
		It("should charge a non-sequential fetch after a flush", func() {
			h.loadARM(base, nop, nop, nop)
			h.cpu.SetPC(base)

			// ROM word: N = 5 + 3, S = 3 + 3
			Expect(h.cpu.Step().Cycles).To(Equal(8))
			Expect(h.cpu.Step().Cycles).To(Equal(6))
		})

		It("should report at least one cycle per step", func() {
			h.cpu.Halt()
			Expect(h.cpu.Step().Cycles).To(Equal(1))
		})

		It("should accumulate statistics", func() {
			h.runARM(nop, nop, nop)
			stats := h.cpu.Stats()
			Expect(stats.Instructions).To(Equal(uint64(3)))
			Expect(stats.Cycles).To(BeNumerically(">", 0))
			Expect(stats.CPI()).To(BeNumerically(">", 1))
		})
	})

	Describe("Faults", func() {
		It("should stop on an undefined instruction", func() {
			h.loadARM(base, 0xE6000010)
			h.cpu.SetPC(base)
			h.steps(2)

			res := h.cpu.Step()
			Expect(errors.Is(res.Fault, emu.ErrUndefinedInstruction)).To(BeTrue())
			Expect(res.Fault.Error()).To(ContainSubstring("0x08000000"))

			pc := h.regs().R[15]
			again := h.cpu.Step()
			Expect(again.Fault).To(Equal(res.Fault))
			Expect(h.regs().R[15]).To(Equal(pc))
			Expect(h.cpu.Fault()).To(Equal(res.Fault))
		})

		It("should skip undefined instructions when told to", func() {
			h = newHarness(emu.WithIgnoreIllegalOpcodes(true))
			h.runARM(0xE6000010, movR1Imm7)
			Expect(h.regs().R[1]).To(Equal(uint32(7)))
			Expect(h.cpu.Fault()).NotTo(HaveOccurred())
		})

		It("should always stop on coprocessor instructions", func() {
			h = newHarness(emu.WithIgnoreIllegalOpcodes(true))
			h.loadARM(base, 0xEE000000)
			h.cpu.SetPC(base)
			h.steps(2)

			res := h.cpu.Step()
			Expect(errors.Is(res.Fault, emu.ErrUnimplementedInstruction)).To(BeTrue())
		})

		It("should stop on an undefined Thumb encoding", func() {
			h.loadThumb(base, 0xDE00)
			h.regs().SetFlag(emu.FlagT, true)
			h.cpu.SetPC(base)
			h.steps(2)

			Expect(errors.Is(h.cpu.Step().Fault, emu.ErrUndefinedInstruction)).To(BeTrue())
		})

		It("should clear the fault on reset", func() {
			h.loadARM(base, 0xE6000010)
			h.cpu.SetPC(base)
			for i := 0; i < 3; i++ {
				h.cpu.Step()
			}
			Expect(h.cpu.Fault()).To(HaveOccurred())

			h.cpu.Reset()
			Expect(h.cpu.Fault()).NotTo(HaveOccurred())
		})
	})

	Describe("Halt", func() {
		BeforeEach(func() {
			h.loadARM(base, movR0Imm5)
			h.cpu.SetPC(base)
			h.cpu.Halt()
		})

		It("should idle until an enabled interrupt is requested", func() {
			for i := 0; i < 5; i++ {
				res := h.cpu.Step()
				Expect(res.Cycles).To(Equal(1))
				Expect(res.Executed).To(BeFalse())
			}
			Expect(h.cpu.Halted()).To(BeTrue())
			Expect(h.cpu.Pipeline().Filled()).To(BeZero())
		})

		It("should wake without the master enable", func() {
			h.lines.SetIE(emu.IntTimer0.Mask())
			h.lines.Request(emu.IntTimer0)

			h.steps(3)
			Expect(h.cpu.Halted()).To(BeFalse())
			Expect(h.regs().R[0]).To(Equal(uint32(5)))
		})

		It("should ignore requests that are not enabled", func() {
			h.lines.Request(emu.IntVBlank)
			h.steps(3)
			Expect(h.cpu.Halted()).To(BeTrue())
		})
	})

	Describe("SkipBIOS", func() {
		It("should set up the stacks the BIOS leaves behind", func() {
			h.cpu.SkipBIOS(base)

			Expect(h.regs().Mode()).To(Equal(emu.ModeSystem))
			Expect(h.regs().Flag(emu.FlagI)).To(BeFalse())
			Expect(h.regs().R[13]).To(Equal(uint32(0x03007F00)))
			Expect(h.regs().BankedReg(emu.BankIRQ, 13)).To(Equal(uint32(0x03007FA0)))
			Expect(h.regs().BankedReg(emu.BankSupervisor, 13)).To(Equal(uint32(0x03007FE0)))
			Expect(h.regs().R[15]).To(Equal(base))
		})
	})

	Describe("Trace", func() {
		It("should describe the last executed instruction", func() {
			h.runARM(movR0Imm5)

			entry := h.cpu.LastExecuted()
			Expect(entry.Address).To(Equal(base))
			Expect(entry.Word).To(Equal(movR0Imm5))
			Expect(entry.Format).To(Equal(insts.FormatDataProcessing))
			Expect(entry.Executed).To(BeTrue())
			Expect(entry.Mnemonic()).To(Equal("mov r0, #0x5"))
			Expect(entry.String()).To(ContainSubstring("E3A00005"))
		})

		It("should dump every bank", func() {
			h.regs().SetBankedReg(emu.BankFIQ, 14, 0xF14)
			dump := h.cpu.Registers()

			Expect(dump.Mode).To(Equal(emu.ModeSupervisor))
			Expect(dump.Banked[emu.BankFIQ][1]).To(Equal(uint32(0xF14)))
			Expect(dump.String()).To(ContainSubstring("cpsr=000000D3"))
		})
	})
})
