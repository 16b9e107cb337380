package software

import (
	"encoding/binary"
	"math"
)

func expand4(v uint16) uint8 { return uint8(v<<4 | v) }
func expand5(v uint16) uint8 { return uint8(v<<3 | v>>2) }
func expand6(v uint16) uint8 { return uint8(v<<2 | v>>4) }

// rgb565 unpacks a BC color endpoint.
func rgb565(c uint16) [4]uint8 {
	return [4]uint8{expand5(c >> 11 & 31), expand6(c >> 5 & 63), expand5(c & 31), 255}
}

// decodeBC1Colors decodes the color half of a BC1-BC3 block into 16
// texels in row-major order. BC2 and BC3 always use four colors.
func decodeBC1Colors(block []byte, out *[16][4]uint8, fourColor bool) {
	c0 := binary.LittleEndian.Uint16(block[0:])
	c1 := binary.LittleEndian.Uint16(block[2:])
	idx := binary.LittleEndian.Uint32(block[4:])
	var pal [4][4]uint8
	pal[0], pal[1] = rgb565(c0), rgb565(c1)
	if fourColor || c0 > c1 {
		for i := 0; i < 3; i++ {
			a, b := uint16(pal[0][i]), uint16(pal[1][i])
			pal[2][i] = uint8((2*a + b) / 3)
			pal[3][i] = uint8((a + 2*b) / 3)
		}
		pal[2][3], pal[3][3] = 255, 255
	} else {
		for i := 0; i < 3; i++ {
			pal[2][i] = uint8((uint16(pal[0][i]) + uint16(pal[1][i])) / 2)
		}
		pal[2][3] = 255
		// pal[3] stays transparent black.
	}
	for i := range out {
		out[i] = pal[idx>>(2*i)&3]
	}
}

// decodeBC4 decodes an 8-byte interpolated single-channel block into 16
// values in row-major order.
func decodeBC4(block []byte, out *[16]uint8) {
	a0, a1 := uint16(block[0]), uint16(block[1])
	var pal [8]uint8
	pal[0], pal[1] = block[0], block[1]
	if a0 > a1 {
		for k := uint16(2); k < 8; k++ {
			pal[k] = uint8(((8-k)*a0 + (k-1)*a1) / 7)
		}
	} else {
		for k := uint16(2); k < 6; k++ {
			pal[k] = uint8(((6-k)*a0 + (k-1)*a1) / 5)
		}
		pal[6], pal[7] = 0, 255
	}
	var idx uint64
	for i := 7; i >= 2; i-- {
		idx = idx<<8 | uint64(block[i])
	}
	for i := range out {
		out[i] = pal[idx>>(3*i)&7]
	}
}

// decodeBC2Alpha decodes 16 explicit 4-bit alphas.
func decodeBC2Alpha(block []byte, out *[16]uint8) {
	for i := range out {
		n := uint16(block[i/2] >> (4 * (i & 1)) & 15)
		out[i] = expand4(n)
	}
}

// decodeCTX1 decodes a two-channel block with 8-bit endpoints into 16 RG
// pairs.
func decodeCTX1(block []byte, out *[16][2]uint8) {
	var pal [4][2]uint8
	pal[0] = [2]uint8{block[0], block[1]}
	pal[1] = [2]uint8{block[2], block[3]}
	for i := 0; i < 2; i++ {
		a, b := uint16(pal[0][i]), uint16(pal[1][i])
		pal[2][i] = uint8((2*a + b) / 3)
		pal[3][i] = uint8((a + 2*b) / 3)
	}
	idx := binary.LittleEndian.Uint32(block[4:])
	for i := range out {
		out[i] = pal[idx>>(2*i)&3]
	}
}

// float32ToHalf converts to IEEE binary16 with round-to-nearest-even.
func float32ToHalf(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xFF) - 127 + 15
	mant := b & 0x7FFFFF
	switch {
	case b&0x7FFFFFFF > 0x7F800000:
		return sign | 0x7E00
	case exp >= 31:
		return sign | 0x7C00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || rem == mid && half&1 != 0 {
			half++
		}
		return sign | uint16(half)
	}
	half := uint32(exp)<<10 | mant>>13
	rem := mant & 0x1FFF
	if rem > 0x1000 || rem == 0x1000 && half&1 != 0 {
		half++
	}
	return sign | uint16(half)
}

// float24ToFloat32 expands the 20e4 depth format: 4 exponent bits with a
// bias of 15 and 20 mantissa bits, no sign.
func float24ToFloat32(v uint32) float32 {
	exp := v >> 20 & 15
	mant := v & 0xFFFFF
	if exp == 0 {
		return float32(mant) / (1 << 20) * float32(math.Ldexp(1, -14))
	}
	return (1 + float32(mant)/(1<<20)) * float32(math.Ldexp(1, int(exp)-15))
}

// unorm16 rescales an n-bit unsigned field to 16 bits.
func unorm16(v, bits uint32) uint16 {
	maxv := uint32(1)<<bits - 1
	return uint16((v*65535 + maxv/2) / maxv)
}

// snorm16 rescales an n-bit two's complement field to a 16-bit signed
// normalized value.
func snorm16(v, bits uint32) uint16 {
	s := int32(v<<(32-bits)) >> (32 - bits)
	maxv := int32(1)<<(bits-1) - 1
	s = max(s, -maxv)
	return uint16(int16(s * 32767 / maxv))
}
