package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/backend/software"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// untile loads the texture of dwords from a guest memory dump through the
// named backend. The image is nil when the backend cannot read textures
// back.
func untile(name string, dwords [xenos.FetchConstantStride]uint32, addr uint32, data []byte) (image.Image, error) {
	d := backend.Get(name)
	if d == nil {
		return nil, fmt.Errorf("%w: %q (registered: %s)", backend.ErrBackendNotAvailable, name,
			strings.Join(backend.Available(), ", "))
	}
	if err := d.Init(); err != nil {
		return nil, fmt.Errorf("%s backend: %w", name, err)
	}
	defer d.Close()

	if err := d.WriteGuest(addr, data); err != nil {
		return nil, fmt.Errorf("dump at %#x: %w", addr, err)
	}
	regs := xenos.NewRegisterArray()
	c, err := texcache.NewCache(texture.DefaultConfig(), d, regs)
	if err != nil {
		return nil, err
	}
	defer c.Shutdown()

	regs.SetFetch(0, dwords)
	c.OnFetchConstantWritten(0)
	c.BeginSubmission(d.Commands().CurrentSubmission())
	c.RequestTextures(1)
	if err := d.EndSubmission(); err != nil {
		return nil, err
	}
	bnd := c.Binding(0)
	if bnd.Texture == nil || !bnd.Texture.IsLoaded() {
		return nil, errors.New("texture did not load")
	}

	sd, ok := d.(*backend.SoftwareDevice)
	if !ok {
		fmt.Fprintf(os.Stderr, "texinfo: loaded on %s, only the software backend reads textures back\n", d.Name())
		return nil, nil
	}
	host := sd.Unwrap().Texture(bnd.Texture.ID())
	if host == nil {
		return nil, errors.New("no host texture")
	}
	return toImage(host)
}

// toImage converts level 0, slice 0 of a host texture.
func toImage(t *software.Texture) (image.Image, error) {
	desc := t.Descriptor()
	w, h := t.LevelSize(0)
	pitch := int(t.RowPitch(0))
	src := t.Image(0, 0)
	rect := image.Rect(0, 0, int(w), int(h))
	row := func(y int) []byte { return src[y*pitch:] }

	switch desc.Format {
	case gputypes.TextureFormatRGBA8Unorm:
		img := image.NewNRGBA(rect)
		for y := range int(h) {
			copy(img.Pix[y*img.Stride:][:w*4], row(y))
		}
		return img, nil
	case gputypes.TextureFormatR8Unorm:
		img := image.NewGray(rect)
		for y := range int(h) {
			copy(img.Pix[y*img.Stride:][:w], row(y))
		}
		return img, nil
	case gputypes.TextureFormatRG8Unorm:
		img := image.NewNRGBA(rect)
		for y := range int(h) {
			r := row(y)
			for x := range int(w) {
				img.SetNRGBA(x, y, color.NRGBA{R: r[x*2], G: r[x*2+1], A: 0xFF})
			}
		}
		return img, nil
	case gputypes.TextureFormatR16Unorm:
		img := image.NewGray16(rect)
		for y := range int(h) {
			r := row(y)
			for x := range int(w) {
				img.SetGray16(x, y, color.Gray16{Y: binary.LittleEndian.Uint16(r[x*2:])})
			}
		}
		return img, nil
	case gputypes.TextureFormatRGBA16Unorm:
		img := image.NewNRGBA64(rect)
		for y := range int(h) {
			r := row(y)
			for x := range int(w) {
				p := r[x*8:]
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: binary.LittleEndian.Uint16(p),
					G: binary.LittleEndian.Uint16(p[2:]),
					B: binary.LittleEndian.Uint16(p[4:]),
					A: binary.LittleEndian.Uint16(p[6:]),
				})
			}
		}
		return img, nil
	case gputypes.TextureFormatRGB10A2Unorm:
		img := image.NewNRGBA64(rect)
		expand10 := func(v uint32) uint16 { return uint16((v&0x3FF)*0xFFFF/0x3FF) }
		for y := range int(h) {
			r := row(y)
			for x := range int(w) {
				v := binary.LittleEndian.Uint32(r[x*4:])
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: expand10(v),
					G: expand10(v >> 10),
					B: expand10(v >> 20),
					A: uint16((v >> 30) * 0xFFFF / 3),
				})
			}
		}
		return img, nil
	case gputypes.TextureFormatR32Float:
		img := image.NewGray16(rect)
		for y := range int(h) {
			r := row(y)
			for x := range int(w) {
				f := math.Float32frombits(binary.LittleEndian.Uint32(r[x*4:]))
				img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(float64(min(max(f, 0), 1)) * 0xFFFF))})
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("host format %v cannot be exported", desc.Format)
}

func writeImage(path string, img image.Image) (err error) {
	var encode func(f *os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		encode = func(f *os.File) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}
	case ".bmp":
		encode = func(f *os.File) error { return bmp.Encode(f, img) }
	default:
		return fmt.Errorf("unsupported output %q: use .tiff or .bmp", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return encode(f)
}
