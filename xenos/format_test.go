package xenos

import "testing"

func TestFormatInfo(t *testing.T) {
	tests := []struct {
		f            TextureFormat
		bw, bh, bits uint32
		compressed   bool
	}{
		{Format8, 1, 1, 8, false},
		{Format8_8_8_8, 1, 1, 32, false},
		{FormatDXT1, 4, 4, 64, true},
		{FormatDXT4_5, 4, 4, 128, true},
		{FormatCTX1, 4, 4, 64, true},
		{FormatY1CrY0CbRep, 2, 1, 32, false},
		{Format32As8, 4, 1, 32, false},
		{Format32_32_32_32Float, 1, 1, 128, false},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			fi := tt.f.Info()
			if fi.BlockWidth != tt.bw || fi.BlockHeight != tt.bh || fi.BitsPerBlock != tt.bits {
				t.Errorf("Info() = %dx%d %d bits, want %dx%d %d bits",
					fi.BlockWidth, fi.BlockHeight, fi.BitsPerBlock, tt.bw, tt.bh, tt.bits)
			}
			if fi.Compressed != tt.compressed {
				t.Errorf("Compressed = %v, want %v", fi.Compressed, tt.compressed)
			}
		})
	}
}

func TestFormatTableComplete(t *testing.T) {
	for f := TextureFormat(0); f < FormatCount; f++ {
		fi := f.Info()
		if fi.Name == "" || fi.BlockWidth == 0 || fi.BitsPerBlock == 0 {
			t.Errorf("format %d has incomplete info %+v", f, fi)
		}
	}
	if got := TextureFormat(70).String(); got != "TextureFormat(70)" {
		t.Errorf("String() = %q", got)
	}
}

func TestComposeSwizzle(t *testing.T) {
	// Host stores BGRA, fetch asks for (Z, Y, X, 1).
	host := SwizzleZ | SwizzleY<<3 | SwizzleX<<6 | SwizzleW<<9
	fetch := SwizzleZ | SwizzleY<<3 | SwizzleX<<6 | SwizzleOne<<9
	got := ComposeSwizzle(host, fetch)
	want := SwizzleX | SwizzleY<<3 | SwizzleZ<<6 | SwizzleOne<<9
	if got != want {
		t.Errorf("ComposeSwizzle = %#o, want %#o", got, want)
	}
	if ComposeSwizzle(SwizzleXYZW, fetch) != fetch {
		t.Error("identity host swizzle must not change the fetch swizzle")
	}
}
