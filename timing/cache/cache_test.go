package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/timing/cache"
)

const iwram uint32 = 0x03000000

var _ = Describe("Cache", func() {
	var (
		c      *cache.Cache
		memory *emu.Memory
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		// 1KB, 4-way, 32B lines: 8 sets, one set every 256 bytes
		config := cache.Config{
			Size:          1024,
			Associativity: 4,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   10,
		}
		c = cache.New(config, cache.NewBusBacking(memory))
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			memory.Write32(iwram, 0xDEADBEEF)

			result := c.Read(iwram, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(BeZero())
		})

		It("should hit on different addresses in same cache line", func() {
			memory.Write32(iwram, 0x11111111)
			memory.Write16(iwram+0x1E, 0x2222)

			c.Read(iwram, 4)

			result := c.Read(iwram+0x1E, 2)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint32(0x2222)))
			Expect(c.Stats().HitRate()).To(Equal(0.5))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(iwram, 4, 0x12345678)
			Expect(result.Hit).To(BeFalse())

			readResult := c.Read(iwram+1, 1)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint32(0x56)))
		})

		It("should keep written data out of memory until flushed", func() {
			c.Write(iwram, 4, 0x11111111)
			c.Write(iwram+0x100, 4, 0x22222222)
			Expect(memory.Read32(iwram)).To(BeZero())

			c.Flush()

			Expect(memory.Read32(iwram)).To(Equal(uint32(0x11111111)))
			Expect(memory.Read32(iwram + 0x100)).To(Equal(uint32(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.Read(iwram, 4).Hit).To(BeFalse())
		})
	})

	Describe("Eviction", func() {
		fillSet := func() {
			for i := uint32(0); i < 4; i++ {
				c.Write(iwram+i*0x100, 4, 0x10+i)
			}
		}

		It("should evict the least recently used way", func() {
			fillSet()
			c.Read(iwram+0x100, 4)
			c.Read(iwram+0x200, 4)
			c.Read(iwram+0x300, 4)

			result := c.Read(iwram+0x400, 4)
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(iwram))
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back dirty evicted blocks", func() {
			fillSet()
			c.Read(iwram+0x100, 4)
			c.Read(iwram+0x200, 4)
			c.Read(iwram+0x300, 4)

			c.Write(iwram+0x400, 4, 0x55)

			Expect(memory.Read32(iwram)).To(Equal(uint32(0x10)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	It("should drop a line on invalidate", func() {
		c.Write(iwram, 4, 0x99)
		c.Invalidate(iwram)

		Expect(c.Read(iwram, 4).Data).To(BeZero())
		Expect(memory.Read32(iwram)).To(BeZero())
	})

	It("should forget everything on reset", func() {
		c.Read(iwram, 4)
		c.Reset()

		Expect(c.Stats()).To(Equal(cache.Statistics{}))
		Expect(c.Read(iwram, 4).Hit).To(BeFalse())
	})

	It("should provide a small unified default", func() {
		config := cache.DefaultConfig()
		Expect(config.Size).To(Equal(8 * 1024))
		Expect(config.Associativity).To(Equal(4))
		Expect(config.BlockSize).To(Equal(32))
	})
})
