package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/backend/wgpu"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
)

func parseDwords(s string) ([xenos.FetchConstantStride]uint32, error) {
	var d [xenos.FetchConstantStride]uint32
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != len(d) {
		return d, fmt.Errorf("fetch constant needs %d dwords, got %d", len(d), len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return d, fmt.Errorf("dword %d: %w", i, err)
		}
		d[i] = uint32(v)
	}
	return d, nil
}

func parseFormat(name string) (xenos.TextureFormat, error) {
	want := strings.TrimPrefix(strings.ToLower(name), "k_")
	for f := xenos.TextureFormat(0); f < xenos.FormatCount; f++ {
		n := strings.ToLower(f.Info().Name)
		if n != "" && strings.TrimPrefix(n, "k_") == want {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown guest format %q", name)
}

func parseDimension(s string) (xenos.DataDimension, error) {
	switch strings.ToLower(s) {
	case "1d":
		return xenos.Dimension1D, nil
	case "2d", "stacked":
		return xenos.Dimension2DOrStacked, nil
	case "3d":
		return xenos.Dimension3D, nil
	case "cube":
		return xenos.DimensionCube, nil
	}
	return 0, fmt.Errorf("unknown dimension %q", s)
}

func parseEndian(s string) (xenos.Endian, error) {
	for e := xenos.EndianNone; e <= xenos.Endian16In32; e++ {
		if strings.EqualFold(e.String(), s) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown endian mode %q", s)
}

// report is everything texinfo prints about one fetch constant.
type report struct {
	fetch  *xenos.TextureFetch
	key    texture.Key
	layout texture.GuestLayout

	hostFormat   gputypes.TextureFormat
	signedFormat gputypes.TextureFormat
	decompress   bool
	shader       texture.LoadShaderIndex
	shaderInfo   texture.LoadShaderInfo
	plan         *texture.LoadPlan
	sampler      texture.SamplerParameters
	hostSampler  string
	signSeparate bool
	swizzle      uint32
}

func describe(fetch *xenos.TextureFetch, caps gpucore.Capabilities) (*report, error) {
	key, ok := texture.KeyFromFetch(fetch)
	if !ok {
		return nil, fmt.Errorf("fetch constant does not describe a texture (type %d)", fetch.Type)
	}
	r := &report{
		fetch:      fetch,
		key:        key,
		layout:     texture.GuestLayoutFor(key),
		hostFormat: texture.HostTextureFormat(key, caps),
		decompress: texture.IsDecompressionNeeded(key.Format, key.Width(), key.Height(), caps),
		shader:     texture.GetLoadShaderIndex(key, caps),
		swizzle:    texture.GetHostFormatSwizzle(key.Format),
	}
	r.shaderInfo = r.shader.Info()
	if fetch.IsSigned() {
		r.signSeparate = texture.IsSignedVersionSeparate(key.Format)
		r.signedFormat = texture.HostTextureFormat(key.Signed(), caps)
	}
	if plan, err := texture.PlanLoad(key, true, key.MipMaxLevel > 0, caps, texture.Scale{X: 1, Y: 1}); err == nil {
		r.plan = plan
	}
	r.sampler = texture.SamplerParametersFor(fetch, texture.SamplerBinding{
		MagFilter:   xenos.FilterUseFetchConst,
		MinFilter:   xenos.FilterUseFetchConst,
		MipFilter:   xenos.FilterUseFetchConst,
		AnisoFilter: xenos.AnisoUseFetchConst,
	})
	d := wgpu.SamplerDescriptorFor(r.sampler)
	r.hostSampler = fmt.Sprintf("address %v/%v/%v  filter %v/%v/%v  lod [%g, %g]  anisotropy %d",
		d.AddressModeU, d.AddressModeV, d.AddressModeW,
		d.MagFilter, d.MinFilter, d.MipmapFilter,
		d.LodMinClamp, d.LodMaxClamp, d.Anisotropy)
	return r, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (r *report) print(w io.Writer) {
	f := r.fetch
	width, height, depth := f.Size()
	fmt.Fprintf(w, "fetch     %08X %08X %08X %08X %08X %08X\n",
		f.Raw[0], f.Raw[1], f.Raw[2], f.Raw[3], f.Raw[4], f.Raw[5])
	fmt.Fprintf(w, "format    %s (%s, endian %s)\n", f.Format, f.Dimension, f.Endianness)
	fmt.Fprintf(w, "size      %dx%dx%d\n", width, height, depth)
	fmt.Fprintf(w, "key       %s\n", r.key)
	fmt.Fprintln(w)

	l := &r.layout
	fmt.Fprintf(w, "guest layout: %d bytes at base, %d at mips", l.BaseSize, l.MipsSize)
	if l.PackedTail {
		fmt.Fprintf(w, ", packed tail from level %d", l.PackedLevel)
		if l.TailInBase {
			fmt.Fprint(w, " (in base)")
		}
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "level\tblocks\tpitch\tstorage h\tslice\toffset\tsize\tpacked")
	for i, lv := range l.Levels {
		packed := "-"
		if lv.Packed {
			packed = fmt.Sprintf("(%d,%d)", lv.OffsetX, lv.OffsetY)
		}
		fmt.Fprintf(tw, "%d\t%dx%dx%d\t%d\t%d\t%#x\t%#x\t%#x\t%s\n",
			i, lv.WidthBlocks, lv.HeightBlocks, lv.Depth, lv.PitchBlocks,
			lv.StorageHeight, lv.SliceStride, lv.Offset, lv.Size, packed)
	}
	tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintf(w, "host format   %v (decompress %s, swizzle %03o)\n", r.hostFormat, yesNo(r.decompress), r.swizzle)
	if r.fetch.IsSigned() {
		fmt.Fprintf(w, "signed        %v (separate %s)\n", r.signedFormat, yesNo(r.signSeparate))
	}
	fmt.Fprintf(w, "load shader   %s (guest 2^%d B/block, host 2^%d B/block)\n",
		r.shader, r.shaderInfo.GuestBytesPerBlockLog2, r.shaderInfo.HostBytesPerBlockLog2)
	if r.plan != nil {
		fmt.Fprintf(w, "load plan     %d dispatches, %d copies, %d bytes scratch\n",
			len(r.plan.Dispatches), len(r.plan.Copies), r.plan.ScratchSize)
	}
	fmt.Fprintln(w)

	s := r.sampler
	fmt.Fprintf(w, "sampler       clamp %v/%v/%v  mag %s min %s mip %s  levels %d-%d  lod bias %g",
		s.ClampX, s.ClampY, s.ClampZ,
		filterName(s.MagLinear), filterName(s.MinLinear), mipName(&s),
		s.MipMinLevel, s.MipMaxLevel, s.LODBiasFloat())
	if n := s.Aniso.MaxAnisotropy(); n > 1 {
		fmt.Fprintf(w, "  aniso %dx", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "host sampler  %s\n", r.hostSampler)
}

func filterName(linear bool) string {
	if linear {
		return "linear"
	}
	return "point"
}

func mipName(s *texture.SamplerParameters) string {
	if s.MipBaseMap {
		return "basemap"
	}
	return filterName(s.MipLinear)
}
