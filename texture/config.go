package texture

// Default cache limits.
const (
	// DefaultDescriptorArenaSize is the bindless descriptor array size.
	DefaultDescriptorArenaSize = 65536

	// DefaultDescriptorPageSize is the bindful heap page size.
	DefaultDescriptorPageSize = 2048

	// DefaultMemoryBudgetMB is the host texture memory budget.
	DefaultMemoryBudgetMB = 1024

	// DefaultEvictionThreshold is the budget fraction that starts eviction.
	DefaultEvictionThreshold = 0.8
)

// Config holds texture cache configuration.
type Config struct {
	// Bindless selects the global descriptor arena instead of the paged
	// bindful heap. Ignored when the backend does not support bindless.
	Bindless bool

	// DescriptorArenaSize is the capacity of the bindless arena, including
	// the reserved null descriptors.
	DescriptorArenaSize uint32

	// DescriptorPageSize is the number of descriptors per bindful page.
	DescriptorPageSize uint32

	// MaxDescriptorPages caps bindful heap growth. Zero means unlimited.
	MaxDescriptorPages int

	// MemoryBudgetMB is the host texture memory budget in megabytes.
	MemoryBudgetMB int

	// EvictionThreshold is the fraction of the budget (0..1] above which
	// BeginSubmission evicts unused textures.
	EvictionThreshold float64

	// ScaleX and ScaleY are the draw-resolution scale factors. Zero means 1.
	ScaleX, ScaleY uint32
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DescriptorArenaSize: DefaultDescriptorArenaSize,
		DescriptorPageSize:  DefaultDescriptorPageSize,
		MemoryBudgetMB:      DefaultMemoryBudgetMB,
		EvictionThreshold:   DefaultEvictionThreshold,
		ScaleX:              1,
		ScaleY:              1,
	}
}

func (c Config) withDefaults() Config {
	if c.DescriptorArenaSize == 0 {
		c.DescriptorArenaSize = DefaultDescriptorArenaSize
	}
	c.DescriptorArenaSize = max(c.DescriptorArenaSize, nullDescriptorCount+1)
	if c.DescriptorPageSize == 0 {
		c.DescriptorPageSize = DefaultDescriptorPageSize
	}
	if c.MemoryBudgetMB <= 0 {
		c.MemoryBudgetMB = DefaultMemoryBudgetMB
	}
	if c.EvictionThreshold <= 0 || c.EvictionThreshold > 1 {
		c.EvictionThreshold = DefaultEvictionThreshold
	}
	c.ScaleX = max(c.ScaleX, 1)
	c.ScaleY = max(c.ScaleY, 1)
	return c
}

// evictionLimit returns the byte count above which eviction runs.
func (c Config) evictionLimit() uint64 {
	return uint64(float64(uint64(c.MemoryBudgetMB)<<20) * c.EvictionThreshold)
}
