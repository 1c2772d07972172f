package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/timing/core"
)

const base uint32 = 0x08000000

type counter struct {
	calls  int
	cycles int
}

func (c *counter) Step(cycles int) {
	c.calls++
	c.cycles += cycles
}

var _ = Describe("Core", func() {
	var (
		memory *emu.Memory
		lines  *emu.Lines
		timer  *counter
		c      *core.Core
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		lines = emu.NewLines()
		timer = &counter{}
		cpu := emu.NewCPU(memory, emu.WithIRQLines(lines))
		c = core.NewCore(cpu, timer)
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through steps", func() {
		memory.Write32(base, 0xE3A0102A) // mov r1, #42
		c.SetPC(base)

		for i := 0; i < 3; i++ {
			c.Step()
		}

		Expect(c.CPU.RegFile().R[1]).To(Equal(uint32(42)))
	})

	It("should clock peripherals with the cycles of each step", func() {
		memory.Write32(base, 0xE3A0102A)
		c.SetPC(base)

		for i := 0; i < 4; i++ {
			c.Step()
		}

		stats := c.Stats()
		Expect(timer.calls).To(Equal(4))
		Expect(uint64(timer.cycles)).To(Equal(stats.Cycles))
		Expect(stats.Steps).To(Equal(uint64(4)))
		Expect(stats.Instructions).To(Equal(uint64(2)))
	})

	It("should run for a cycle budget", func() {
		memory.Write32(base, 0xEAFFFFFE) // b .
		c.SetPC(base)

		ran, err := c.RunCycles(1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).To(BeNumerically(">=", 1000))
		Expect(uint64(timer.cycles)).To(Equal(ran))
	})

	It("should stop on a fault", func() {
		memory.Write32(base, 0xE6000010)
		c.SetPC(base)

		err := c.Run(100)
		Expect(errors.Is(err, emu.ErrUndefinedInstruction)).To(BeTrue())
		Expect(c.Stats().Steps).To(Equal(uint64(2)))
	})

	It("should report the step limit", func() {
		memory.Write32(base, 0xEAFFFFFE)
		c.SetPC(base)

		Expect(c.Run(50)).To(MatchError(core.ErrStepLimit))
		Expect(c.Stats().Steps).To(Equal(uint64(50)))
	})

	It("should let a peripheral wake the CPU", func() {
		memory.Write32(base, 0xE3A0102A)
		c.SetPC(base)
		c.CPU.Halt()

		lines.SetIE(emu.IntTimer0.Mask())
		elapsed := 0
		c.AddPeripheral(core.PeripheralFunc(func(cycles int) {
			elapsed += cycles
			if elapsed >= 10 {
				lines.Request(emu.IntTimer0)
			}
		}))

		Expect(c.Run(20)).To(MatchError(core.ErrStepLimit))
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().HaltedCycles).To(Equal(uint64(10)))
		Expect(c.CPU.RegFile().R[1]).To(Equal(uint32(42)))
	})

	It("should reset the counters", func() {
		memory.Write32(base, 0xEAFFFFFE)
		c.SetPC(base)
		Expect(c.Run(10)).To(MatchError(core.ErrStepLimit))

		c.Reset()
		Expect(c.Stats()).To(Equal(core.Stats{}))
	})
})
