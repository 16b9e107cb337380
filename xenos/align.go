package xenos

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// AlignUp rounds v up to a multiple of alignment. Alignment must be a
// power of two.
func AlignUp[T constraints.Unsigned](v, alignment T) T {
	return (v + alignment - 1) &^ (alignment - 1)
}

// AlignDown rounds v down to a multiple of a power-of-two alignment.
func AlignDown[T constraints.Unsigned](v, alignment T) T {
	return v &^ (alignment - 1)
}

// DivRoundUp returns ceil(a / b).
func DivRoundUp[T constraints.Unsigned](a, b T) T {
	return (a + b - 1) / b
}

// Log2Floor returns floor(log2(v)), 0 for v <= 1.
func Log2Floor(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	return uint32(31 - bits.LeadingZeros32(v))
}

// Log2Ceil returns ceil(log2(v)), 0 for v <= 1.
func Log2Ceil(v uint32) uint32 {
	if v <= 1 {
		return 0
	}
	return uint32(32 - bits.LeadingZeros32(v-1))
}

// NextPow2 returns the smallest power of two >= v.
func NextPow2(v uint32) uint32 {
	return 1 << Log2Ceil(v)
}
