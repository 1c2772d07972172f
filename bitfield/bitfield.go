// Package bitfield provides generic helpers for extracting and packing bit
// fields out of instruction words and status registers.
package bitfield

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Bit reports whether bit n of v is set.
func Bit[T constraints.Unsigned](v T, n uint) bool {
	return (v>>n)&1 == 1
}

// Field extracts the inclusive bit range [hi:lo] of v, shifted down to bit 0.
func Field[T constraints.Unsigned](v T, hi, lo uint) T {
	// A shift by the full type width yields 0, so the mask wraps to all ones.
	mask := T(1)<<(hi-lo+1) - 1
	return (v >> lo) & mask
}

// Set returns v with bit n forced to on.
func Set[T constraints.Unsigned](v T, n uint, on bool) T {
	if on {
		return v | T(1)<<n
	}
	return v &^ (T(1) << n)
}

// SignExtend treats the low width bits of v as a two's-complement number and
// widens it to 32 bits.
func SignExtend(v uint32, width uint) uint32 {
	shift := 32 - width
	return uint32(int32(v<<shift) >> shift)
}

// Clamp limits value to the closed range [lo, hi].
func Clamp[T constraints.Integer](lo, value, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Count returns the number of set bits in a register list.
func Count[T constraints.Unsigned](v T) int {
	return bits.OnesCount64(uint64(v))
}

// Bool converts b to 0 or 1.
func Bool[T constraints.Integer](b bool) T {
	if b {
		return 1
	}
	return 0
}
