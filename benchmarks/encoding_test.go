package benchmarks_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/benchmarks"
	"github.com/sarchlab/gbacore/insts"
)

var _ = Describe("Encoders", func() {
	const base = benchmarks.ROMBase

	It("should encode ARM data processing", func() {
		Expect(benchmarks.EncodeMOVImm(0, 0)).To(Equal(uint32(0xE3A00000)))
		Expect(benchmarks.EncodeADDImm(0, 0, 1, false)).To(Equal(uint32(0xE2800001)))
		Expect(benchmarks.EncodeSUBImm(1, 1, 1, true)).To(Equal(uint32(0xE2511001)))
		Expect(benchmarks.EncodeCMPImm(2, 10)).To(Equal(uint32(0xE352000A)))
		Expect(benchmarks.EncodeADDReg(0, 4, 5, false)).To(Equal(uint32(0xE0840005)))
	})

	It("should rotate wide immediates", func() {
		Expect(benchmarks.EncodeMOVImm(2, 0x03000000)).To(Equal(uint32(0xE3A02403)))
		Expect(benchmarks.EncodeImmediate(0x40000000)).To(Equal(uint32(0x101)))
		Expect(func() { benchmarks.EncodeImmediate(0x101) }).To(Panic())
	})

	It("should encode branches relative to PC+8", func() {
		Expect(benchmarks.EncodeB(insts.CondAL, base, base)).To(Equal(uint32(0xEAFFFFFE)))
		Expect(benchmarks.EncodeB(insts.CondNE, base+16, base+8)).To(Equal(uint32(0x1AFFFFFC)))
		Expect(benchmarks.EncodeBL(base+4, base+20)).To(Equal(uint32(0xEB000002)))
		Expect(benchmarks.EncodeBX(14)).To(Equal(uint32(0xE12FFF1E)))
	})

	It("should encode transfers", func() {
		Expect(benchmarks.EncodeLDR(3, 2, 4)).To(Equal(uint32(0xE5923004)))
		Expect(benchmarks.EncodeSTR(1, 2, 0)).To(Equal(uint32(0xE5821000)))
		Expect(benchmarks.EncodeSTMIA(8, 0x000F)).To(Equal(uint32(0xE8A8000F)))
		Expect(benchmarks.EncodeLDMIA(8, 0x00F0)).To(Equal(uint32(0xE8B800F0)))
		Expect(benchmarks.EncodeMUL(0, 1, 2)).To(Equal(uint32(0xE0000291)))
		Expect(benchmarks.EncodeSWI(0xFF)).To(Equal(uint32(0xEFFF0000)))
	})

	It("should encode Thumb instructions", func() {
		Expect(benchmarks.EncodeThumbMOVImm(1, 50)).To(Equal(uint16(0x2132)))
		Expect(benchmarks.EncodeThumbSUBImm(1, 1)).To(Equal(uint16(0x3901)))
		Expect(benchmarks.EncodeThumbB(insts.CondNE, base+8, base+4)).To(Equal(uint16(0xD1FC)))
		Expect(benchmarks.EncodeThumbSWI(0xFF)).To(Equal(uint16(0xDFFF)))
	})

	It("should lay programs out little-endian", func() {
		Expect(benchmarks.BuildProgram(0xE3A00000)).To(Equal([]byte{0x00, 0x00, 0xA0, 0xE3}))
		Expect(benchmarks.BuildThumbProgram(0x2132, 0xDFFF)).To(Equal([]byte{0x32, 0x21, 0xFF, 0xDF}))
	})
})
