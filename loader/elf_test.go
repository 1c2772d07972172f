package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/loader"
)

const (
	emARM   = 40
	emX8664 = 62

	pfX = 1
	pfW = 2
	pfR = 4
)

type elfSegment struct {
	vaddr   uint32
	flags   uint32
	data    []byte
	memSize uint32
}

// buildELF32 lays out a little-endian ELF32 executable: header, program
// headers, then segment data back to back.
func buildELF32(machine uint16, entry uint32, segs ...elfSegment) []byte {
	const ehsize, phentsize = 52, 32

	header := make([]byte, ehsize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1 // 32-bit
	header[5] = 1 // little endian
	header[6] = 1 // version

	binary.LittleEndian.PutUint16(header[16:18], 2) // executable
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], entry)
	binary.LittleEndian.PutUint32(header[28:32], ehsize) // phoff
	binary.LittleEndian.PutUint16(header[40:42], ehsize)
	binary.LittleEndian.PutUint16(header[42:44], phentsize)
	binary.LittleEndian.PutUint16(header[44:46], uint16(len(segs)))
	binary.LittleEndian.PutUint16(header[46:48], 40) // shentsize

	out := header
	offset := uint32(ehsize + phentsize*len(segs))
	var body []byte
	for _, s := range segs {
		memSize := s.memSize
		if memSize == 0 {
			memSize = uint32(len(s.data))
		}

		ph := make([]byte, phentsize)
		binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.vaddr)
		binary.LittleEndian.PutUint32(ph[12:16], s.vaddr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], memSize)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)
		out = append(out, ph...)

		body = append(body, s.data...)
		offset += uint32(len(s.data))
	}

	return append(out, body...)
}

// buildELF64Header is a bare ELF64 header with no program headers.
func buildELF64Header() []byte {
	header := make([]byte, 64)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2 // 64-bit
	header[5] = 1
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2)
	binary.LittleEndian.PutUint16(header[18:20], emARM)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[32:40], 64)
	binary.LittleEndian.PutUint16(header[52:54], 64)
	binary.LittleEndian.PutUint16(header[54:56], 56)
	return header
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	code := []byte{
		0x05, 0x00, 0xA0, 0xE3, // mov r0, #5
		0xFE, 0xFF, 0xFF, 0xEA, // b .
	}

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Context("with a valid ARM ELF binary", func() {
		var prog *loader.Program

		BeforeEach(func() {
			path := write("test.elf", buildELF32(emARM, 0x08000000,
				elfSegment{vaddr: 0x08000000, flags: pfR | pfX, data: code}))

			var err error
			prog, err = loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should extract the entry point in ARM state", func() {
			Expect(prog.Kind).To(Equal(loader.KindELF))
			Expect(prog.EntryPoint).To(Equal(uint32(0x08000000)))
			Expect(prog.Thumb).To(BeFalse())
		})

		It("should load segment contents and permissions", func() {
			Expect(prog.Segments).To(HaveLen(1))
			seg := prog.Segments[0]
			Expect(seg.VirtAddr).To(Equal(uint32(0x08000000)))
			Expect(seg.Data).To(Equal(code))
			Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
			Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
		})

		It("should run on a CPU once placed in memory", func() {
			mem := emu.NewMemory()
			prog.LoadInto(mem)

			cpu := emu.NewCPU(mem)
			cpu.SetPC(prog.EntryPoint)
			for i := 0; i < 3; i++ {
				Expect(cpu.Step().Fault).NotTo(HaveOccurred())
			}
			Expect(cpu.RegFile().R[0]).To(Equal(uint32(5)))
		})
	})

	It("should select Thumb state from bit 0 of the entry point", func() {
		path := write("thumb.elf", buildELF32(emARM, 0x02000001,
			elfSegment{vaddr: 0x02000000, flags: pfR | pfX, data: []byte{0x05, 0x20}}))

		prog, err := loader.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.EntryPoint).To(Equal(uint32(0x02000000)))
		Expect(prog.Thumb).To(BeTrue())
	})

	It("should load code and zero-filled data segments", func() {
		data := []byte{0x01, 0x02, 0x03, 0x04}
		path := write("multi.elf", buildELF32(emARM, 0x08000000,
			elfSegment{vaddr: 0x08000000, flags: pfR | pfX, data: code},
			elfSegment{vaddr: 0x03000000, flags: pfR | pfW, data: data, memSize: 64}))

		prog, err := loader.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Segments).To(HaveLen(2))

		bss := prog.Segments[1]
		Expect(bss.Data).To(Equal(data))
		Expect(bss.MemSize).To(Equal(uint32(64)))
		Expect(bss.Flags & loader.SegmentFlagWrite).NotTo(BeZero())

		mem := emu.NewMemory()
		mem.Write32(0x03000010, 0xFFFFFFFF)
		prog.LoadInto(mem)
		Expect(mem.Read32(0x03000000)).To(Equal(uint32(0x04030201)))
		Expect(mem.Read32(0x03000010)).To(BeZero())
	})

	It("should return an empty segment list without PT_LOAD headers", func() {
		path := write("none.elf", buildELF32(emARM, 0x08000000))

		prog, err := loader.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Segments).To(BeEmpty())
	})

	It("should reject other machines", func() {
		path := write("x86.elf", buildELF32(emX8664, 0, elfSegment{vaddr: 0, data: code}))

		_, err := loader.Load(path)
		Expect(err).To(MatchError(ContainSubstring("not an ARM")))
	})

	It("should reject 64-bit files", func() {
		path := write("elf64.elf", buildELF64Header())

		_, err := loader.Load(path)
		Expect(err).To(MatchError(ContainSubstring("not a 32-bit")))
	})

	It("should report a missing file", func() {
		_, err := loader.Load("/nonexistent/path/to/file.elf")
		Expect(err).To(MatchError(ContainSubstring("failed to open")))
	})
})
