package software

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/texcache/xenos"
)

func TestFloat32ToHalf(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-2, 0xC000},
		{0.5, 0x3800},
		{1.0 / 3, 0x3555},
		{65504, 0x7BFF},
		{1e6, 0x7C00},
		{float32(math.Ldexp(1, -24)), 0x0001},
		{float32(math.Ldexp(1, -14)), 0x0400},
		{float32(math.Ldexp(1, -30)), 0x0000},
		{float32(math.NaN()), 0x7E00},
	}
	for _, tt := range tests {
		if got := float32ToHalf(tt.in); got != tt.want {
			t.Errorf("float32ToHalf(%g) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestFloat24ToFloat32(t *testing.T) {
	tests := []struct {
		in   uint32
		want float32
	}{
		{0, 0},
		{15 << 20, 1},
		{14 << 20, 0.5},
		{15<<20 | 1<<19, 1.5},
		{1 << 19, float32(math.Ldexp(1, -15))},
	}
	for _, tt := range tests {
		if got := float24ToFloat32(tt.in); got != tt.want {
			t.Errorf("float24ToFloat32(%#x) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestNormRescale(t *testing.T) {
	tests := []struct {
		name string
		got  uint16
		want uint16
	}{
		{"unorm max", unorm16(1023, 10), 65535},
		{"unorm zero", unorm16(0, 10), 0},
		{"unorm half", unorm16(1024, 11), 32784},
		{"snorm max", snorm16(0x1FF, 10), 32767},
		{"snorm min clamps", snorm16(0x200, 10), 0x8001},
		{"snorm minus one", snorm16(0x3FF, 10), 0xFFFF - 63},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %#04x, want %#04x", tt.got, tt.want)
			}
		})
	}
}

// bc1Block builds a color block with endpoints c0 and c1 where texel i
// uses index i%4.
func bc1Block(c0, c1 uint16) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b[0:], c0)
	binary.LittleEndian.PutUint16(b[2:], c1)
	binary.LittleEndian.PutUint32(b[4:], 0xE4E4E4E4)
	return b
}

func TestDecodeBC1Colors(t *testing.T) {
	tests := []struct {
		name      string
		c0, c1    uint16
		fourColor bool
		want      [4][4]uint8
	}{
		{
			name: "four color",
			c0:   0xF800, c1: 0x001F,
			want: [4][4]uint8{{255, 0, 0, 255}, {0, 0, 255, 255}, {170, 0, 85, 255}, {85, 0, 170, 255}},
		},
		{
			name: "three color with transparent black",
			c0:   0x001F, c1: 0xF800,
			want: [4][4]uint8{{0, 0, 255, 255}, {255, 0, 0, 255}, {127, 0, 127, 255}, {0, 0, 0, 0}},
		},
		{
			name: "forced four color",
			c0:   0x001F, c1: 0xF800, fourColor: true,
			want: [4][4]uint8{{0, 0, 255, 255}, {255, 0, 0, 255}, {85, 0, 170, 255}, {170, 0, 85, 255}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out [16][4]uint8
			decodeBC1Colors(bc1Block(tt.c0, tt.c1), &out, tt.fourColor)
			for i, got := range out {
				if got != tt.want[i%4] {
					t.Errorf("texel %d = %v, want %v", i, got, tt.want[i%4])
				}
			}
		})
	}
}

func TestDecodeBC4(t *testing.T) {
	tests := []struct {
		name   string
		a0, a1 uint8
		index  byte // 0xFF selects index 7 everywhere, 0 selects index 0
		want   uint8
	}{
		{"endpoint", 255, 0, 0x00, 255},
		{"eight value interpolation", 255, 0, 0xFF, 36},
		{"six value mode constant", 0, 200, 0xFF, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := []byte{tt.a0, tt.a1, tt.index, tt.index, tt.index, tt.index, tt.index, tt.index}
			var out [16]uint8
			decodeBC4(block, &out)
			for i, got := range out {
				if got != tt.want {
					t.Fatalf("value %d = %d, want %d", i, got, tt.want)
				}
			}
		})
	}

	// Index 6 in six-value mode is zero.
	block := []byte{10, 200, 0b110, 0, 0, 0, 0, 0}
	var out [16]uint8
	decodeBC4(block, &out)
	if out[0] != 0 || out[1] != 10 {
		t.Errorf("got %d %d, want 0 10", out[0], out[1])
	}
}

func TestDecodeBC2Alpha(t *testing.T) {
	block := []byte{0xF0, 0x21, 0, 0, 0, 0, 0, 0}
	var out [16]uint8
	decodeBC2Alpha(block, &out)
	want := []uint8{0x00, 0xFF, 0x11, 0x22}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("alpha %d = %#x, want %#x", i, out[i], w)
		}
	}
}

func TestReadBlockEndian(t *testing.T) {
	b := New()
	id := b.CreateBuffer(16)
	if err := b.WriteBuffer(id, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	buf := b.buffers[id]

	tests := []struct {
		name   string
		addr   uint64
		n      int
		endian xenos.Endian
		want   []byte
	}{
		{"word none", 0, 4, xenos.EndianNone, []byte{1, 2, 3, 4}},
		{"word 8in32", 0, 4, xenos.Endian8In32, []byte{4, 3, 2, 1}},
		{"dword pair 8in32", 0, 8, xenos.Endian8In32, []byte{4, 3, 2, 1, 8, 7, 6, 5}},
		{"byte in swapped word", 1, 1, xenos.Endian8In32, []byte{3}},
		{"half in 8in16 word", 2, 2, xenos.Endian8In16, []byte{4, 3}},
		{"unbacked", 14, 4, xenos.EndianNone, []byte{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]byte, tt.n)
			for i := range out {
				out[i] = 0xAA
			}
			b.readBlock(buf, tt.addr, out, tt.endian)
			if string(out) != string(tt.want) {
				t.Errorf("got %v, want %v", out, tt.want)
			}
		})
	}
}

func TestPixelKernels(t *testing.T) {
	le16 := func(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
	tests := []struct {
		name string
		k    kernel
		src  []byte
		want []byte
	}{
		{"r5g6b5 red", loadR5G6B5, le16(0x001F), []byte{255, 0, 0, 255}},
		{"r5g6b5 white", loadR5G6B5, le16(0xFFFF), []byte{255, 255, 255, 255}},
		{"r5g5b5a1 alpha", loadR5G5B5A1, le16(0x8000), []byte{0, 0, 0, 255}},
		{"r6g5b5 green", loadR6G5B5, le16(0x07C0), []byte{0, 255, 0, 255}},
		{"rgba4", loadRGBA4, le16(0xF10A), []byte{0xAA, 0x00, 0x11, 0xFF}},
		{"gbgr8", loadGBGR8, []byte{10, 20, 30, 40}, []byte{40, 10, 20, 255, 40, 30, 20, 255}},
		{"bgrg8", loadBGRG8, []byte{10, 20, 30, 40}, []byte{30, 20, 10, 255, 30, 40, 10, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, len(tt.want))
			tt.k(dst, len(dst), tt.src)
			if string(dst) != string(tt.want) {
				t.Errorf("got %v, want %v", dst, tt.want)
			}
		})
	}
}

func TestPackedToRGBA16(t *testing.T) {
	dst := make([]byte, 8)
	packedToRGBA16(10, 11, 11, false)(dst, 8, binary.LittleEndian.AppendUint32(nil, 0x3FF))
	want := [4]uint16{65535, 0, 0, 65535}
	for i, w := range want {
		if got := binary.LittleEndian.Uint16(dst[2*i:]); got != w {
			t.Errorf("unsigned channel %d = %d, want %d", i, got, w)
		}
	}

	packedToRGBA16(10, 11, 11, true)(dst, 8, binary.LittleEndian.AppendUint32(nil, 0x200))
	if got := binary.LittleEndian.Uint16(dst); got != 0x8001 {
		t.Errorf("signed red = %#04x, want 0x8001", got)
	}
	if got := binary.LittleEndian.Uint16(dst[6:]); got != 32767 {
		t.Errorf("signed alpha = %d, want 32767", got)
	}
}

func TestNorm16ToFloat(t *testing.T) {
	dst := make([]byte, 4)
	norm16ToFloat(2, false)(dst, 4, []byte{0xFF, 0xFF, 0, 0})
	if a, b := binary.LittleEndian.Uint16(dst), binary.LittleEndian.Uint16(dst[2:]); a != 0x3C00 || b != 0 {
		t.Errorf("unsigned = %#04x %#04x, want 0x3c00 0", a, b)
	}
	norm16ToFloat(1, true)(dst, 4, []byte{0x00, 0x80})
	if got := binary.LittleEndian.Uint16(dst); got != 0xBC00 {
		t.Errorf("signed min = %#04x, want 0xbc00", got)
	}
}

func TestDepthKernels(t *testing.T) {
	dst := make([]byte, 4)
	loadDepthUnorm(dst, 4, binary.LittleEndian.AppendUint32(nil, 0xFFFFFF00))
	if got := math.Float32frombits(binary.LittleEndian.Uint32(dst)); got != 1 {
		t.Errorf("unorm depth = %g, want 1", got)
	}
	loadDepthFloat(dst, 4, binary.LittleEndian.AppendUint32(nil, 14<<28))
	if got := math.Float32frombits(binary.LittleEndian.Uint32(dst)); got != 0.5 {
		t.Errorf("float depth = %g, want 0.5", got)
	}
}

func TestBlockKernelsWritePatch(t *testing.T) {
	const pitch = 32
	dst := make([]byte, 4*pitch)
	loadDXT1(dst, pitch, bc1Block(0xF800, 0x001F))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			px := dst[y*pitch+x*4:]
			if x == 0 && (px[0] != 255 || px[2] != 0) {
				t.Errorf("texel (0,%d) = %v, want red", y, px[:4])
			}
		}
		if dst[y*pitch+16] != 0 {
			t.Errorf("row %d written past the patch", y)
		}
	}

	dst = make([]byte, 4*pitch)
	loadDXT3AAs1111(dst, pitch, []byte{0x05, 0, 0, 0, 0, 0, 0, 0})
	if got := dst[:4]; got[0] != 255 || got[1] != 0 || got[2] != 255 || got[3] != 0 {
		t.Errorf("1111 texel = %v, want [255 0 255 0]", got)
	}
}

func TestKernelTableComplete(t *testing.T) {
	for i, k := range kernels {
		if k == nil && i != 0 {
			t.Errorf("no kernel for shader %d", i)
		}
	}
}
