package texcache

import (
	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
)

// NewCache creates a texture cache on an initialized device.
func NewCache(cfg texture.Config, d backend.Device, regs xenos.RegisterFile) (*texture.Cache, error) {
	if d == nil || d.Backend() == nil {
		return nil, backend.ErrNotInitialized
	}
	return texture.New(cfg, d.Backend(), d.Commands(), d.Memory(), regs)
}
