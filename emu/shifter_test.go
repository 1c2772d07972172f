package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/insts"
)

var _ = Describe("Barrel shifter", func() {
	DescribeTable("immediate shifts",
		func(t insts.ShiftType, v, amount uint32, carryIn bool, want uint32, carry bool) {
			got, c := emu.ShiftByImmediate(t, v, amount, carryIn)
			Expect(got).To(Equal(want))
			Expect(c).To(Equal(carry))
		},
		Entry("LSL #0 keeps carry", insts.ShiftLSL, uint32(0x80000001), uint32(0), true, uint32(0x80000001), true),
		Entry("LSL #1", insts.ShiftLSL, uint32(0x80000001), uint32(1), false, uint32(0x00000002), true),
		Entry("LSR #0 means #32", insts.ShiftLSR, uint32(0x80000000), uint32(0), false, uint32(0), true),
		Entry("LSR #4", insts.ShiftLSR, uint32(0x000000F8), uint32(4), false, uint32(0x0F), true),
		Entry("ASR #0 means #32", insts.ShiftASR, uint32(0x80000000), uint32(0), false, uint32(0xFFFFFFFF), true),
		Entry("ASR #4", insts.ShiftASR, uint32(0x80000000), uint32(4), false, uint32(0xF8000000), false),
		Entry("ROR #0 means RRX", insts.ShiftROR, uint32(0x00000003), uint32(0), true, uint32(0x80000001), true),
		Entry("ROR #8", insts.ShiftROR, uint32(0x000000FF), uint32(8), false, uint32(0xFF000000), true),
	)

	DescribeTable("register shifts",
		func(t insts.ShiftType, v, amount uint32, carryIn bool, want uint32, carry bool) {
			got, c := emu.ShiftByRegister(t, v, amount, carryIn)
			Expect(got).To(Equal(want))
			Expect(c).To(Equal(carry))
		},
		Entry("zero amount keeps value and carry", insts.ShiftLSR, uint32(0x1), uint32(0), true, uint32(0x1), true),
		Entry("only the bottom byte counts", insts.ShiftLSL, uint32(0x1), uint32(0x101), false, uint32(0x2), false),
		Entry("LSL #32", insts.ShiftLSL, uint32(0x1), uint32(32), false, uint32(0), true),
		Entry("LSL #33", insts.ShiftLSL, uint32(0x1), uint32(33), true, uint32(0), false),
		Entry("LSR #32", insts.ShiftLSR, uint32(0x80000000), uint32(32), false, uint32(0), true),
		Entry("LSR #40", insts.ShiftLSR, uint32(0x80000000), uint32(40), true, uint32(0), false),
		Entry("ASR #40 negative", insts.ShiftASR, uint32(0x80000000), uint32(40), false, uint32(0xFFFFFFFF), true),
		Entry("ROR #32", insts.ShiftROR, uint32(0x80000001), uint32(32), false, uint32(0x80000001), true),
		Entry("ROR #36", insts.ShiftROR, uint32(0x0000000F), uint32(36), false, uint32(0xF0000000), true),
	)

	It("should rotate immediates by twice the rotate field", func() {
		v, c := emu.RotatedImmediate(0xFF, 4, false)
		Expect(v).To(Equal(uint32(0xFF000000)))
		Expect(c).To(BeTrue())

		v, c = emu.RotatedImmediate(0x05, 0, true)
		Expect(v).To(Equal(uint32(5)))
		Expect(c).To(BeTrue())
	})
})
