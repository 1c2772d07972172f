package savestate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/savestate"
)

var _ = Describe("State", func() {
	var s *savestate.State

	BeforeEach(func() {
		s = savestate.New()
		s.Write8(0xAB)
		s.Write16(0xBEEF)
		s.Write32(0xDEADBEEF)
		s.Write64(0x0123456789ABCDEF)
		s.WriteBool(true)
		s.WriteString("r15")
		s.WriteData([]byte{1, 2, 3})
	})

	It("should read fields back in order", func() {
		r, err := savestate.Open(s.Seal())
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Read8()).To(Equal(uint8(0xAB)))
		Expect(r.Read16()).To(Equal(uint16(0xBEEF)))
		Expect(r.Read32()).To(Equal(uint32(0xDEADBEEF)))
		Expect(r.Read64()).To(Equal(uint64(0x0123456789ABCDEF)))
		Expect(r.ReadBool()).To(BeTrue())
		Expect(r.ReadString()).To(Equal("r15"))
		Expect(r.ReadData()).To(Equal([]byte{1, 2, 3}))
		Expect(r.Close()).To(Succeed())
	})

	It("should report reads past the end", func() {
		r, err := savestate.Open(s.Seal())
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 5; i++ {
			r.Read64()
		}
		Expect(r.Read32()).To(BeZero())
		Expect(r.Err()).To(MatchError(savestate.ErrTruncated))
		Expect(r.Close()).To(MatchError(savestate.ErrTruncated))
	})

	It("should report unread trailing bytes", func() {
		r, err := savestate.Open(s.Seal())
		Expect(err).NotTo(HaveOccurred())

		r.Read8()
		Expect(r.Close()).To(MatchError(savestate.ErrCorrupt))
	})

	Describe("Open", func() {
		It("should reject a flipped payload byte", func() {
			blob := s.Seal()
			blob[len(blob)-1] ^= 0xFF

			_, err := savestate.Open(blob)
			Expect(err).To(MatchError(savestate.ErrCorrupt))
		})

		It("should reject a bad magic", func() {
			blob := s.Seal()
			blob[0] = 'X'

			_, err := savestate.Open(blob)
			Expect(err).To(MatchError(savestate.ErrCorrupt))
		})

		It("should reject an unknown version", func() {
			blob := s.Seal()
			blob[4] = 0x7F

			_, err := savestate.Open(blob)
			Expect(err).To(MatchError(savestate.ErrCorrupt))
		})

		It("should reject a truncated blob", func() {
			blob := s.Seal()

			_, err := savestate.Open(blob[:len(blob)-2])
			Expect(err).To(MatchError(savestate.ErrTruncated))

			_, err = savestate.Open(blob[:6])
			Expect(err).To(MatchError(savestate.ErrTruncated))
		})
	})
})
