package wgpu

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/texcache/texture"
)

//go:embed shaders/load_common.wgsl
var loadCommonWGSL string

//go:embed shaders/load_copy.wgsl
var loadCopyWGSL string

//go:embed shaders/load_rgb16.wgsl
var loadRGB16WGSL string

//go:embed shaders/load_yuv.wgsl
var loadYUVWGSL string

//go:embed shaders/load_packed.wgsl
var loadPackedWGSL string

//go:embed shaders/load_norm16.wgsl
var loadNorm16WGSL string

//go:embed shaders/load_bc.wgsl
var loadBCWGSL string

//go:embed shaders/load_depth.wgsl
var loadDepthWGSL string

// kernelSource selects the body of a load shader and its VARIANT.
type kernelSource struct {
	body    *string
	variant uint32
}

var kernelSources = [texture.LoadShaderCount]kernelSource{
	texture.LoadShader8bpb:                   {&loadCopyWGSL, 0},
	texture.LoadShader16bpb:                  {&loadCopyWGSL, 0},
	texture.LoadShader32bpb:                  {&loadCopyWGSL, 0},
	texture.LoadShader64bpb:                  {&loadCopyWGSL, 0},
	texture.LoadShader128bpb:                 {&loadCopyWGSL, 0},
	texture.LoadShaderR5G5B5A1ToRGBA8:        {&loadRGB16WGSL, 0},
	texture.LoadShaderR5G6B5ToRGBA8:          {&loadRGB16WGSL, 1},
	texture.LoadShaderR6G5B5ToRGBA8:          {&loadRGB16WGSL, 2},
	texture.LoadShaderRGBA4ToRGBA8:           {&loadRGB16WGSL, 3},
	texture.LoadShaderGBGR8ToRGBA8:           {&loadYUVWGSL, 0},
	texture.LoadShaderBGRG8ToRGBA8:           {&loadYUVWGSL, 1},
	texture.LoadShaderR10G11B11ToRGBA16:      {&loadPackedWGSL, 0},
	texture.LoadShaderR10G11B11ToRGBA16SNorm: {&loadPackedWGSL, 1},
	texture.LoadShaderR11G11B10ToRGBA16:      {&loadPackedWGSL, 2},
	texture.LoadShaderR11G11B10ToRGBA16SNorm: {&loadPackedWGSL, 3},
	texture.LoadShaderR16UNormToFloat:        {&loadNorm16WGSL, 0},
	texture.LoadShaderR16SNormToFloat:        {&loadNorm16WGSL, 1},
	texture.LoadShaderRG16UNormToFloat:       {&loadNorm16WGSL, 0},
	texture.LoadShaderRG16SNormToFloat:       {&loadNorm16WGSL, 1},
	texture.LoadShaderRGBA16UNormToFloat:     {&loadNorm16WGSL, 0},
	texture.LoadShaderRGBA16SNormToFloat:     {&loadNorm16WGSL, 1},
	texture.LoadShaderDXT1ToRGBA8:            {&loadBCWGSL, 0},
	texture.LoadShaderDXT3ToRGBA8:            {&loadBCWGSL, 1},
	texture.LoadShaderDXT5ToRGBA8:            {&loadBCWGSL, 2},
	texture.LoadShaderDXNToRG8:               {&loadBCWGSL, 3},
	texture.LoadShaderDXT3A:                  {&loadBCWGSL, 4},
	texture.LoadShaderDXT3AAs1111ToRGBA8:     {&loadBCWGSL, 5},
	texture.LoadShaderDXT5AToR8:              {&loadBCWGSL, 6},
	texture.LoadShaderCTX1:                   {&loadBCWGSL, 7},
	texture.LoadShaderDepthUnorm:             {&loadDepthWGSL, 0},
	texture.LoadShaderDepthFloat:             {&loadDepthWGSL, 1},
}

// hasKernel reports whether shader has WGSL source.
func hasKernel(shader texture.LoadShaderIndex) bool {
	return shader < texture.LoadShaderCount && kernelSources[shader].body != nil
}

// LoadShaderWGSL returns the complete WGSL source of a load shader.
func LoadShaderWGSL(shader texture.LoadShaderIndex) (string, error) {
	if !hasKernel(shader) {
		return "", fmt.Errorf("%w: %s", ErrNoKernel, shader)
	}
	k := kernelSources[shader]
	info := shader.Info()
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n", shader)
	fmt.Fprintf(&sb, "const GUEST_BPB_LOG2: u32 = %du;\n", info.GuestBytesPerBlockLog2)
	fmt.Fprintf(&sb, "const HOST_BPB_LOG2: u32 = %du;\n", info.HostBytesPerBlockLog2)
	fmt.Fprintf(&sb, "const BLOCKS_PER_THREAD_LOG2: u32 = %du;\n", info.GuestBlocksPerThreadLog2)
	fmt.Fprintf(&sb, "const HOST_BLOCK_W_LOG2: u32 = %du;\n", info.HostBlockWidthLog2)
	fmt.Fprintf(&sb, "const HOST_BLOCK_H_LOG2: u32 = %du;\n", info.HostBlockHeightLog2)
	fmt.Fprintf(&sb, "const VARIANT: u32 = %du;\n\n", k.variant)
	sb.WriteString(loadCommonWGSL)
	sb.WriteString("\n")
	sb.WriteString(*k.body)
	return sb.String(), nil
}

// CompileShaderToSPIRV compiles WGSL source to SPIR-V words.
func CompileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}
