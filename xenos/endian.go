package xenos

import (
	"encoding/binary"
	"math/bits"
)

// Swap32 applies the guest endian swap to one 32-bit word.
func Swap32(v uint32, e Endian) uint32 {
	switch e {
	case Endian8In16:
		return (v&0x00FF00FF)<<8 | (v>>8)&0x00FF00FF
	case Endian8In32:
		return bits.ReverseBytes32(v)
	case Endian16In32:
		return v<<16 | v>>16
	default:
		return v
	}
}

// SwapWords swaps every complete 32-bit word of buf in place. Words are
// read as little-endian, matching how the host views guest memory.
func SwapWords(buf []byte, e Endian) {
	if e == EndianNone {
		return
	}
	for i := 0; i+4 <= len(buf); i += 4 {
		w := binary.LittleEndian.Uint32(buf[i:])
		binary.LittleEndian.PutUint32(buf[i:], Swap32(w, e))
	}
}
