package emu

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/bitfield"
)

// BIOS call numbers serviced by HLEBIOS.
const (
	SWIHalt       uint32 = 0x02
	SWIDiv        uint32 = 0x06
	SWIDivArm     uint32 = 0x07
	SWISqrt       uint32 = 0x08
	SWICpuSet     uint32 = 0x0B
	SWICpuFastSet uint32 = 0x0C
)

// HLEBIOS services the arithmetic and memory-copy BIOS calls in Go. Other
// calls fall through to the SWI exception.
func HLEBIOS(c *CPU, number uint32) bool {
	r := &c.regs.R

	switch number {
	case SWIHalt:
		c.Halt()
	case SWIDiv:
		return biosDivide(r, r[0], r[1])
	case SWIDivArm:
		return biosDivide(r, r[1], r[0])
	case SWISqrt:
		r[0] = uint32(math.Sqrt(float64(r[0])))
	case SWICpuSet:
		c.biosCpuSet(r[0], r[1], r[2])
	case SWICpuFastSet:
		c.biosCpuFastSet(r[0], r[1], r[2])
	default:
		c.logger.WithField("swi", number).Debug("unhandled BIOS call")
		return false
	}

	c.logger.WithFields(logrus.Fields{
		"swi": number,
		"r0":  r[0],
	}).Trace("BIOS call")
	return true
}

// biosDivide sets R0 = num / den, R1 = num % den and R3 = |R0|. Division by
// zero is left to the exception path.
func biosDivide(r *[16]uint32, num, den uint32) bool {
	if den == 0 {
		return false
	}
	n, d := int32(num), int32(den)
	q := n / d
	r[0] = uint32(q)
	r[1] = uint32(n % d)
	if q < 0 {
		q = -q
	}
	r[3] = uint32(q)
	return true
}

// biosCpuSet copies or fills count units of 16 or 32 bits. Control bit 24
// selects fill mode and bit 26 selects 32-bit units.
func (c *CPU) biosCpuSet(src, dst, control uint32) {
	count := bitfield.Field(control, 20, 0)
	fill := bitfield.Bit(control, 24)
	wide := bitfield.Bit(control, 26)

	c.lsu.BeginTransfer()

	if wide {
		src &^= 3
		dst &^= 3
		for i := uint32(0); i < count; i++ {
			v := c.lsu.Load32(src)
			c.lsu.Store32(dst, v)
			if !fill {
				src += 4
			}
			dst += 4
		}
		return
	}

	src &^= 1
	dst &^= 1
	for i := uint32(0); i < count; i++ {
		v := c.lsu.Load16(src)
		c.lsu.Store16(dst, v)
		if !fill {
			src += 2
		}
		dst += 2
	}
}

// biosCpuFastSet copies or fills 32-bit words in blocks of eight.
func (c *CPU) biosCpuFastSet(src, dst, control uint32) {
	count := bitfield.Field(control, 20, 0)
	count = (count + 7) &^ 7
	fill := bitfield.Bit(control, 24)

	src &^= 3
	dst &^= 3
	c.lsu.BeginTransfer()

	var v uint32
	if fill {
		v = c.lsu.Load32(src)
	}
	for i := uint32(0); i < count; i++ {
		if !fill {
			v = c.lsu.Load32(src)
			src += 4
		}
		c.lsu.Store32(dst, v)
		dst += 4
	}
}
