package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/savestate"
)

var _ = Describe("CPU state", func() {
	// mov r0, #0; mov r1, #0x03000000
	// loop: add r0, r0, #1; str r0, [r1], #4; b loop
	program := []uint32{0xE3A00000, 0xE3A01403, 0xE2800001, 0xE4810004, 0xEAFFFFFC}

	words := func(m *emu.Memory) []uint32 {
		out := make([]uint32, 32)
		for i := range out {
			out[i] = m.Read32(iwram + uint32(i)*4)
		}
		return out
	}

	var h *harness

	BeforeEach(func() {
		h = newHarness()
		h.loadARM(base, program...)
		h.regs().SetBankedReg(emu.BankFIQ, 13, 0xF13)
		h.regs().SetBankedReg(emu.BankIRQ, 14, 0x1E)
		h.cpu.SetPC(base)
		h.steps(4)
	})

	It("should resume to the same state on another CPU", func() {
		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())

		other := newHarness()
		other.loadARM(base, program...)
		for i, w := range words(h.mem) {
			other.mem.Write32(iwram+uint32(i)*4, w)
		}

		h.steps(40)
		want := h.cpu.Registers()
		wantStats := h.cpu.Stats()
		Expect(h.mem.Read32(iwram)).To(Equal(uint32(1)))

		Expect(other.cpu.Deserialize(snapshot)).To(Succeed())
		Expect(other.cpu.Pipeline().Steady()).To(BeTrue())

		other.steps(40)
		Expect(other.cpu.Registers()).To(Equal(want))
		Expect(other.cpu.Stats()).To(Equal(wantStats))
		Expect(words(other.mem)).To(Equal(words(h.mem)))
	})

	It("should rewind the same CPU", func() {
		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())
		before := h.cpu.Registers()

		h.steps(7)
		Expect(h.cpu.LastExecuted().Executed).To(BeTrue())
		Expect(h.cpu.Deserialize(snapshot)).To(Succeed())
		Expect(h.cpu.Registers()).To(Equal(before))
		Expect(h.cpu.LastExecuted()).To(Equal(emu.TraceEntry{}))

		h.steps(1)
		Expect(h.cpu.LastExecuted().Address).To(Equal(base + 8))
	})

	It("should reject a damaged state and keep running", func() {
		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())
		snapshot[len(snapshot)-1] ^= 0xFF

		before := h.cpu.Registers()
		err = h.cpu.Deserialize(snapshot)
		Expect(errors.Is(err, savestate.ErrCorrupt)).To(BeTrue())
		Expect(h.cpu.Registers()).To(Equal(before))

		h.steps(1)
	})

	It("should reject a truncated state", func() {
		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())

		err = h.cpu.Deserialize(snapshot[:10])
		Expect(errors.Is(err, savestate.ErrTruncated)).To(BeTrue())
	})

	It("should keep the halt flag", func() {
		h.cpu.Halt()
		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())

		other := newHarness()
		Expect(other.cpu.Deserialize(snapshot)).To(Succeed())
		Expect(other.cpu.Halted()).To(BeTrue())
	})

	It("should keep the fault class", func() {
		h.loadARM(base+0x40, 0xE6000010)
		h.cpu.SetPC(base + 0x40)
		for i := 0; i < 3; i++ {
			h.cpu.Step()
		}
		Expect(h.cpu.Fault()).To(HaveOccurred())

		snapshot, err := h.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())

		other := newHarness()
		Expect(other.cpu.Deserialize(snapshot)).To(Succeed())
		Expect(errors.Is(other.cpu.Fault(), emu.ErrUndefinedInstruction)).To(BeTrue())
		Expect(other.cpu.Fault().Error()).To(Equal(h.cpu.Fault().Error()))
		Expect(other.cpu.Step().Fault).To(HaveOccurred())
	})

	It("should keep pending HLE interrupt frames", func() {
		const handler = iwram + 0x800

		hle := newHarness(emu.WithHLEInterrupts(true))
		hle.loadARM(base, 0xE1A00000, 0xE1A00000, 0xE1A00000, 0xE1A00000)
		hle.loadARM(handler, 0xE12FFF1E) // bx lr
		hle.mem.Write32(emu.IRQHandlerPointer, handler)
		hle.regs().SetCPSR(emu.StatusRegister(emu.ModeSystem))
		hle.regs().R[2] = 0x22
		hle.cpu.SetPC(base)
		hle.steps(3)

		hle.lines.SetIME(true)
		hle.lines.SetIE(emu.IntVBlank.Mask())
		hle.lines.Request(emu.IntVBlank)
		hle.cpu.Step()
		hle.lines.Acknowledge(emu.IntVBlank.Mask())

		snapshot, err := hle.cpu.Serialize()
		Expect(err).NotTo(HaveOccurred())

		other := newHarness(emu.WithHLEInterrupts(true))
		other.loadARM(base, 0xE1A00000, 0xE1A00000, 0xE1A00000, 0xE1A00000)
		other.loadARM(handler, 0xE12FFF1E)
		Expect(other.cpu.Deserialize(snapshot)).To(Succeed())

		other.execute(1)
		other.regs().R[2] = 0
		other.cpu.Step()
		Expect(other.regs().Mode()).To(Equal(emu.ModeSystem))
		Expect(other.regs().R[2]).To(Equal(uint32(0x22)))
		Expect(other.regs().R[15]).To(Equal(base + 4))
	})
})

var _ = Describe("Interrupt lines", func() {
	It("should round-trip through a save state", func() {
		l := emu.NewLines()
		l.SetIME(true)
		l.SetIE(emu.IntTimer2.Mask() | emu.IntKeypad.Mask())
		l.Request(emu.IntKeypad)

		s := savestate.New()
		l.Save(s)
		opened, err := savestate.Open(s.Seal())
		Expect(err).NotTo(HaveOccurred())

		restored := emu.NewLines()
		restored.Load(opened)
		Expect(opened.Close()).To(Succeed())
		Expect(restored).To(Equal(l))
		Expect(restored.Raised()).To(BeTrue())
	})

	It("should only report enabled requests as raised", func() {
		l := emu.NewLines()
		l.Request(emu.IntHBlank)
		Expect(l.Raised()).To(BeFalse())

		l.SetIE(emu.IntHBlank.Mask())
		Expect(l.Raised()).To(BeTrue())

		l.Acknowledge(emu.IntHBlank.Mask())
		Expect(l.Raised()).To(BeFalse())
		Expect(l.IF()).To(BeZero())
	})
})
