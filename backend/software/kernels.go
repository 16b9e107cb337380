package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
	"honnef.co/go/safeish"
)

// kernel converts one endian-swapped guest block into the patch of host
// blocks starting at dst, pitch bytes per row.
type kernel func(dst []byte, pitch int, src []byte)

// minParallelRows is the block row count below which loads stay serial.
const minParallelRows = 64

var kernels = [texture.LoadShaderCount]kernel{
	texture.LoadShader8bpb:                   copyBlock,
	texture.LoadShader16bpb:                  copyBlock,
	texture.LoadShader32bpb:                  copyBlock,
	texture.LoadShader64bpb:                  copyBlock,
	texture.LoadShader128bpb:                 copyBlock,
	texture.LoadShaderR5G5B5A1ToRGBA8:        loadR5G5B5A1,
	texture.LoadShaderR5G6B5ToRGBA8:          loadR5G6B5,
	texture.LoadShaderR6G5B5ToRGBA8:          loadR6G5B5,
	texture.LoadShaderRGBA4ToRGBA8:           loadRGBA4,
	texture.LoadShaderGBGR8ToRGBA8:           loadGBGR8,
	texture.LoadShaderBGRG8ToRGBA8:           loadBGRG8,
	texture.LoadShaderR10G11B11ToRGBA16:      packedToRGBA16(10, 11, 11, false),
	texture.LoadShaderR10G11B11ToRGBA16SNorm: packedToRGBA16(10, 11, 11, true),
	texture.LoadShaderR11G11B10ToRGBA16:      packedToRGBA16(11, 11, 10, false),
	texture.LoadShaderR11G11B10ToRGBA16SNorm: packedToRGBA16(11, 11, 10, true),
	texture.LoadShaderR16UNormToFloat:        norm16ToFloat(1, false),
	texture.LoadShaderR16SNormToFloat:        norm16ToFloat(1, true),
	texture.LoadShaderRG16UNormToFloat:       norm16ToFloat(2, false),
	texture.LoadShaderRG16SNormToFloat:       norm16ToFloat(2, true),
	texture.LoadShaderRGBA16UNormToFloat:     norm16ToFloat(4, false),
	texture.LoadShaderRGBA16SNormToFloat:     norm16ToFloat(4, true),
	texture.LoadShaderDXT1ToRGBA8:            loadDXT1,
	texture.LoadShaderDXT3ToRGBA8:            loadDXT3,
	texture.LoadShaderDXT5ToRGBA8:            loadDXT5,
	texture.LoadShaderDXNToRG8:               loadDXN,
	texture.LoadShaderDXT3A:                  loadDXT3A,
	texture.LoadShaderDXT3AAs1111ToRGBA8:     loadDXT3AAs1111,
	texture.LoadShaderDXT5AToR8:              loadDXT5A,
	texture.LoadShaderCTX1:                   loadCTX1,
	texture.LoadShaderDepthUnorm:             loadDepthUnorm,
	texture.LoadShaderDepthFloat:             loadDepthFloat,
}

func fromBytes[E any, T *E](b []byte) T {
	if uintptr(len(b)) < unsafe.Sizeof(*new(E)) {
		panic(fmt.Sprintf("buffer of size %d cannot represent object of size %d", len(b), unsafe.Sizeof(*new(E))))
	}
	return safeish.Cast[T](&b[0])
}

// runLoad executes a load shader over the whole dispatch. Scaled sources
// store the ScaleX*ScaleY samples of each guest block contiguously.
func (b *Backend) runLoad(shader texture.LoadShaderIndex, c *texture.LoadConstants, src *buffer, dst []byte) {
	k := kernels[shader]
	info := shader.Info()
	guestBpb := uint64(1) << info.GuestBytesPerBlockLog2
	hostBpb := 1 << info.HostBytesPerBlockLog2
	patchW, patchH := 1<<info.HostBlockWidthLog2, 1<<info.HostBlockHeightLog2
	sx, sy := max(c.ScaleX, 1), max(c.ScaleY, 1)
	area := uint64(sx * sy)
	endian := c.Endian()
	pitch := int(c.HostPitch)

	rowsPerSlice := c.SizeBlocks[1] * sy
	row := func(z, y uint32) {
		var block [16]byte
		for x := uint32(0); x < c.SizeBlocks[0]*sx; x++ {
			gx, gy := x/sx, y/sy
			var off uint32
			if c.Flags&texture.LoadFlagTiled != 0 {
				off = xenos.TiledOffset3D(gx, gy, z, c.GuestPitch, info.GuestBytesPerBlockLog2, c.GuestSliceStride)
			} else {
				off = xenos.LinearOffset(gx, gy, z, c.GuestPitch, c.GuestSliceStride, info.GuestBytesPerBlockLog2)
			}
			sample := uint64((y%sy)*sx + x%sx)
			addr := uint64(c.GuestOffset) + uint64(off)*area + sample*guestBpb
			in := block[:guestBpb]
			b.readBlock(src, addr, in, endian)

			at := int(c.HostOffset) + int(z*c.HostSliceSize) + int(y)*patchH*pitch + int(x)*patchW*hostBpb
			end := at + (patchH-1)*pitch + patchW*hostBpb
			if at < 0 || end > len(dst) {
				continue
			}
			k(dst[at:], pitch, in)
		}
	}

	rows := int(c.SizeBlocks[2] * rowsPerSlice)
	if b.pool == nil || rows < minParallelRows {
		for r := range rows {
			row(uint32(r)/rowsPerSlice, uint32(r)%rowsPerSlice)
		}
		return
	}
	// Rows write disjoint host blocks.
	b.pool.ForChunks(rows, minParallelRows/4, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			row(uint32(r)/rowsPerSlice, uint32(r)%rowsPerSlice)
		}
	})
}

// readBlock copies the guest block at addr into out and applies the
// endian swap, which works on whole 32-bit words of guest memory.
// Unbacked memory reads as zero.
func (b *Backend) readBlock(src *buffer, addr uint64, out []byte, e xenos.Endian) {
	n := uint64(len(out))
	if n >= 4 {
		raw := b.span(src, addr, n)
		if raw == nil {
			clear(out)
			return
		}
		copy(out, raw)
		xenos.SwapWords(out, e)
		return
	}
	word := addr &^ 3
	raw := b.span(src, word, 4)
	if raw == nil {
		clear(out)
		return
	}
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], xenos.Swap32(binary.LittleEndian.Uint32(raw), e))
	copy(out, w[addr-word:])
}

func copyBlock(dst []byte, _ int, src []byte) {
	copy(dst, src)
}

func putRGBA8(dst []byte, r, g, b, a uint8) {
	dst[0], dst[1], dst[2], dst[3] = r, g, b, a
}

func loadR5G5B5A1(dst []byte, _ int, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	putRGBA8(dst, expand5(v&31), expand5(v>>5&31), expand5(v>>10&31), uint8(v>>15)*255)
}

func loadR5G6B5(dst []byte, _ int, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	putRGBA8(dst, expand5(v&31), expand6(v>>5&63), expand5(v>>11&31), 255)
}

func loadR6G5B5(dst []byte, _ int, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	putRGBA8(dst, expand6(v&63), expand5(v>>6&31), expand5(v>>11&31), 255)
}

func loadRGBA4(dst []byte, _ int, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	putRGBA8(dst, expand4(v&15), expand4(v>>4&15), expand4(v>>8&15), expand4(v>>12&15))
}

// loadGBGR8 expands a pair of texels sharing R and B: bytes G0 B G1 R.
func loadGBGR8(dst []byte, _ int, src []byte) {
	putRGBA8(dst, src[3], src[0], src[1], 255)
	putRGBA8(dst[4:], src[3], src[2], src[1], 255)
}

// loadBGRG8 expands a pair of texels sharing R and B: bytes B G0 R G1.
func loadBGRG8(dst []byte, _ int, src []byte) {
	putRGBA8(dst, src[2], src[1], src[0], 255)
	putRGBA8(dst[4:], src[2], src[3], src[0], 255)
}

// packedToRGBA16 unpacks three fields of r, g and b bits, lowest first,
// to 16-bit normalized RGBA with opaque alpha.
func packedToRGBA16(r, g, b uint32, signed bool) kernel {
	return func(dst []byte, _ int, src []byte) {
		v := binary.LittleEndian.Uint32(src)
		fields := [3]uint32{v & (1<<r - 1), v >> r & (1<<g - 1), v >> (r + g) & (1<<b - 1)}
		widths := [3]uint32{r, g, b}
		for i, f := range fields {
			var c uint16
			if signed {
				c = snorm16(f, widths[i])
			} else {
				c = unorm16(f, widths[i])
			}
			binary.LittleEndian.PutUint16(dst[2*i:], c)
		}
		alpha := uint16(65535)
		if signed {
			alpha = 32767
		}
		binary.LittleEndian.PutUint16(dst[6:], alpha)
	}
}

// norm16ToFloat converts n 16-bit normalized components to half floats.
func norm16ToFloat(n int, signed bool) kernel {
	return func(dst []byte, _ int, src []byte) {
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint16(src[2*i:])
			var f float32
			if signed {
				f = max(float32(int16(v))/32767, -1)
			} else {
				f = float32(v) / 65535
			}
			binary.LittleEndian.PutUint16(dst[2*i:], float32ToHalf(f))
		}
	}
}

func storeRGBA8x16(dst []byte, pitch int, texels *[16][4]uint8) {
	for i, t := range texels {
		row := dst[(i/4)*pitch+(i%4)*4:]
		putRGBA8(row, t[0], t[1], t[2], t[3])
	}
}

func loadDXT1(dst []byte, pitch int, src []byte) {
	var texels [16][4]uint8
	decodeBC1Colors(src, &texels, false)
	storeRGBA8x16(dst, pitch, &texels)
}

func loadDXT3(dst []byte, pitch int, src []byte) {
	var texels [16][4]uint8
	var alpha [16]uint8
	decodeBC2Alpha(src[:8], &alpha)
	decodeBC1Colors(src[8:], &texels, true)
	for i := range texels {
		texels[i][3] = alpha[i]
	}
	storeRGBA8x16(dst, pitch, &texels)
}

func loadDXT5(dst []byte, pitch int, src []byte) {
	var texels [16][4]uint8
	var alpha [16]uint8
	decodeBC4(src[:8], &alpha)
	decodeBC1Colors(src[8:], &texels, true)
	for i := range texels {
		texels[i][3] = alpha[i]
	}
	storeRGBA8x16(dst, pitch, &texels)
}

func loadDXN(dst []byte, pitch int, src []byte) {
	var r, g [16]uint8
	decodeBC4(src[:8], &r)
	decodeBC4(src[8:], &g)
	for i := range r {
		at := (i/4)*pitch + (i%4)*2
		dst[at], dst[at+1] = r[i], g[i]
	}
}

func storeR8x16(dst []byte, pitch int, v *[16]uint8) {
	for i, c := range v {
		dst[(i/4)*pitch+i%4] = c
	}
}

func loadDXT3A(dst []byte, pitch int, src []byte) {
	var alpha [16]uint8
	decodeBC2Alpha(src, &alpha)
	storeR8x16(dst, pitch, &alpha)
}

// loadDXT3AAs1111 spreads the four bits of each explicit alpha over the
// four channels, lowest bit in red.
func loadDXT3AAs1111(dst []byte, pitch int, src []byte) {
	for i := 0; i < 16; i++ {
		n := src[i/2] >> (4 * (i & 1)) & 15
		row := dst[(i/4)*pitch+(i%4)*4:]
		putRGBA8(row, n&1*255, n>>1&1*255, n>>2&1*255, n>>3&1*255)
	}
}

func loadDXT5A(dst []byte, pitch int, src []byte) {
	var v [16]uint8
	decodeBC4(src, &v)
	storeR8x16(dst, pitch, &v)
}

func loadCTX1(dst []byte, pitch int, src []byte) {
	var texels [16][2]uint8
	decodeCTX1(src, &texels)
	for i, t := range texels {
		at := (i/4)*pitch + (i%4)*2
		dst[at], dst[at+1] = t[0], t[1]
	}
}

// loadDepthUnorm converts 24-bit normalized depth in the high bits to
// float.
func loadDepthUnorm(dst []byte, _ int, src []byte) {
	d := binary.LittleEndian.Uint32(src) >> 8
	binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(d)/0xFFFFFF))
}

// loadDepthFloat converts 20e4 float depth in the high bits to float.
func loadDepthFloat(dst []byte, _ int, src []byte) {
	d := binary.LittleEndian.Uint32(src) >> 8
	binary.LittleEndian.PutUint32(dst, math.Float32bits(float24ToFloat32(d)))
}
