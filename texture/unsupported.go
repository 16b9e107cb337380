package texture

import (
	"strings"

	"github.com/gogpu/texcache/xenos"
)

// UnsupportedFeature is a set of unsupported paths a guest format hit.
type UnsupportedFeature uint8

// Unsupported paths.
const (
	// UnsupportedResource means no host texture could be created.
	UnsupportedResource UnsupportedFeature = 1 << iota
	// UnsupportedUnorm means unsigned sampling has no host format.
	UnsupportedUnorm
	// UnsupportedSnorm means signed sampling has no host format.
	UnsupportedSnorm
)

func (f UnsupportedFeature) String() string {
	var parts []string
	if f&UnsupportedResource != 0 {
		parts = append(parts, "resource")
	}
	if f&UnsupportedUnorm != 0 {
		parts = append(parts, "unorm")
	}
	if f&UnsupportedSnorm != 0 {
		parts = append(parts, "snorm")
	}
	return strings.Join(parts, ", ")
}

func (c *Cache) recordUnsupported(format xenos.TextureFormat, f UnsupportedFeature) {
	if !format.IsValid() {
		return
	}
	c.unsupported[format] |= f
}

// UnsupportedFormatFeatures returns the unsupported paths format hit since
// the frame began.
func (c *Cache) UnsupportedFormatFeatures(format xenos.TextureFormat) UnsupportedFeature {
	if !format.IsValid() {
		return 0
	}
	return c.unsupported[format]
}

// reportUnsupported logs one line per format and clears the accumulator.
func (c *Cache) reportUnsupported() int {
	n := 0
	for i, f := range c.unsupported {
		if f == 0 {
			continue
		}
		slogger().Warn("texture: unsupported guest format",
			"format", xenos.TextureFormat(i).String(),
			"features", f.String())
		n++
	}
	clear(c.unsupported[:])
	return n
}
