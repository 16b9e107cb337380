// Command texinfo decodes a guest texture fetch constant and prints how the
// texture cache stores, loads and samples it.
//
// Usage:
//
//	texinfo -fetch 0x80000002,0x00100086,0x003FE03F,0x00000D10,0x00000000,0x00000200
//	texinfo -format 8_8_8_8 -width 256 -height 256 -tiled -base 0x100000
//	texinfo -format DXT1 -width 128 -height 128 -tiled -dump tex.bin -out tex.tiff
//
// With -dump, the file is loaded into guest memory at -dump-addr (the base
// address by default), the texture is loaded through the selected backend
// and level 0 of the software backend result is written with -out as TIFF
// or BMP.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"

	// Register the wgpu backend for -backend wgpu.
	_ "github.com/gogpu/texcache/backend/wgpu"
)

type options struct {
	fetch string

	format  string
	dim     string
	width   uint
	height  uint
	depth   uint
	pitch   uint
	tiled   bool
	endian  string
	base    uint
	mipAddr uint
	mips    uint
	packed  bool
	signed  bool

	bc bool

	dump     string
	dumpAddr int64
	out      string
	backend  string
	verbose  bool
}

func main() {
	var o options
	flag.StringVar(&o.fetch, "fetch", "", "six fetch constant dwords, comma or space separated")
	flag.StringVar(&o.format, "format", "8_8_8_8", "guest format name (when -fetch is not given)")
	flag.StringVar(&o.dim, "dim", "2d", "dimension: 1d, 2d, 3d or cube")
	flag.UintVar(&o.width, "width", 64, "width in texels")
	flag.UintVar(&o.height, "height", 64, "height in texels")
	flag.UintVar(&o.depth, "depth", 1, "depth or array size")
	flag.UintVar(&o.pitch, "pitch", 0, "row pitch in texels (0: width)")
	flag.BoolVar(&o.tiled, "tiled", false, "tiled guest layout")
	flag.StringVar(&o.endian, "endian", "none", "endian swap: none, 8in16, 8in32 or 16in32")
	flag.UintVar(&o.base, "base", 0x100000, "base address")
	flag.UintVar(&o.mipAddr, "mip-addr", 0, "mip address (0: no mip chain)")
	flag.UintVar(&o.mips, "mips", 0, "highest mip level")
	flag.BoolVar(&o.packed, "packed", false, "packed mip tail")
	flag.BoolVar(&o.signed, "signed", false, "sample all components as signed")
	flag.BoolVar(&o.bc, "bc", false, "report host layout for a host that samples BC textures")
	flag.StringVar(&o.dump, "dump", "", "guest memory dump to load")
	flag.Int64Var(&o.dumpAddr, "dump-addr", -1, "guest address of the dump (-1: base address)")
	flag.StringVar(&o.out, "out", "", "write level 0 as .tiff or .bmp")
	flag.StringVar(&o.backend, "backend", backend.BackendSoftware, "backend used with -dump")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	if o.verbose {
		texcache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(os.Stdout, &o); err != nil {
		log.Fatalf("texinfo: %v", err)
	}
}

func run(w io.Writer, o *options) error {
	dwords, err := o.fetchDwords()
	if err != nil {
		return err
	}
	fetch := xenos.DecodeTextureFetch(dwords)
	caps := gpucore.Capabilities{BCTextures: o.bc, UnalignedBCTextures: o.bc, Unorm16: true, Snorm16: true}.WithDefaults()

	r, err := describe(&fetch, caps)
	if err != nil {
		return err
	}
	r.print(w)

	if o.dump == "" {
		return nil
	}
	data, err := os.ReadFile(o.dump)
	if err != nil {
		return err
	}
	addr := uint32(fetch.BaseAddress << 12)
	if o.dumpAddr >= 0 {
		addr = uint32(o.dumpAddr)
	}
	img, err := untile(o.backend, dwords, addr, data)
	if err != nil {
		return err
	}
	if img == nil || o.out == "" {
		return nil
	}
	if err := writeImage(o.out, img); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s (%dx%d)\n", o.out, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

func (o *options) fetchDwords() ([xenos.FetchConstantStride]uint32, error) {
	if o.fetch != "" {
		return parseDwords(o.fetch)
	}
	format, err := parseFormat(o.format)
	if err != nil {
		return [xenos.FetchConstantStride]uint32{}, err
	}
	dim, err := parseDimension(o.dim)
	if err != nil {
		return [xenos.FetchConstantStride]uint32{}, err
	}
	endian, err := parseEndian(o.endian)
	if err != nil {
		return [xenos.FetchConstantStride]uint32{}, err
	}
	b := xenos.FetchBuilder{
		Format:      format,
		Dimension:   dim,
		Width:       uint32(o.width),
		Height:      uint32(o.height),
		Depth:       uint32(o.depth),
		Pitch:       uint32(o.pitch),
		Tiled:       o.tiled,
		Stacked:     dim == xenos.Dimension2DOrStacked && o.depth > 1,
		Endianness:  endian,
		BaseAddress: uint32(o.base >> 12),
		MipAddress:  uint32(o.mipAddr >> 12),
		MipMaxLevel: uint32(o.mips),
		PackedMips:  o.packed,
		MagFilter:   xenos.FilterLinear,
		MinFilter:   xenos.FilterLinear,
		MipFilter:   xenos.FilterLinear,
	}
	if o.signed {
		b.Signs = [4]xenos.TextureSign{xenos.SignSigned, xenos.SignSigned, xenos.SignSigned, xenos.SignSigned}
	}
	return b.Build(), nil
}
