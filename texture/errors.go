package texture

import "errors"

// Errors produced inside the cache. Public operations log them and report
// failure through their boolean or nil results.
var (
	// ErrUnsupportedFormat is returned when a guest format has no host
	// resource or view format.
	ErrUnsupportedFormat = errors.New("texture: unsupported format")

	// ErrNoLoadShader is returned when no load shader handles a key.
	ErrNoLoadShader = errors.New("texture: no load shader for format")

	// ErrScratchUnavailable is returned when no scratch buffer could be
	// acquired for a load.
	ErrScratchUnavailable = errors.New("texture: scratch buffer unavailable")

	// ErrConstantsUnavailable is returned when the constant upload pool is
	// full.
	ErrConstantsUnavailable = errors.New("texture: constant upload space unavailable")

	// ErrDescriptorsExhausted is returned when no view descriptor could be
	// allocated.
	ErrDescriptorsExhausted = errors.New("texture: descriptors exhausted")

	// ErrGuestRange is returned when guest memory backing a texture could
	// not be made resident.
	ErrGuestRange = errors.New("texture: guest range unavailable")

	// ErrInvalidKey is returned for keys that describe no texture.
	ErrInvalidKey = errors.New("texture: invalid key")
)
