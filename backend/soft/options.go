package soft

// Options configures a Device. The YAML keys are used by LoadProfiles.
type Options struct {
	// Name identifies the device in logs and statistics.
	Name string `yaml:"name"`

	// UnifiedMemory makes normal resources CPU visible.
	UnifiedMemory bool `yaml:"unified_memory"`

	// TiledTextures stores normal textures in 4x4 texel tiles.
	TiledTextures bool `yaml:"tiled_textures"`

	// UserMemory allows ResourceUser resources that wrap caller memory.
	UserMemory bool `yaml:"user_memory"`

	// Deferred queues commands until Finish or a synchronizing map.
	Deferred bool `yaml:"deferred"`

	// MemoryBudget limits the bytes of device and staging allocations.
	// Zero means unlimited.
	MemoryBudget uint64 `yaml:"memory_budget"`

	// RowAlignment aligns the row pitch of linear textures. Zero or one
	// means tightly packed rows.
	RowAlignment uint32 `yaml:"row_alignment"`
}

// Option configures a Device.
type Option func(*Options)

// WithName sets the device name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithUnifiedMemory makes the device share memory with the host.
func WithUnifiedMemory(unified bool) Option {
	return func(o *Options) { o.UnifiedMemory = unified }
}

// WithTiledTextures stores normal textures tiled.
func WithTiledTextures(tiled bool) Option {
	return func(o *Options) { o.TiledTextures = tiled }
}

// WithUserMemory enables user resources.
func WithUserMemory(enabled bool) Option {
	return func(o *Options) { o.UserMemory = enabled }
}

// WithDeferred makes the command stream deferred.
func WithDeferred(deferred bool) Option {
	return func(o *Options) { o.Deferred = deferred }
}

// WithMemoryBudget limits device allocations to budget bytes.
func WithMemoryBudget(budget uint64) Option {
	return func(o *Options) { o.MemoryBudget = budget }
}

// WithRowAlignment aligns linear texture rows to align bytes.
func WithRowAlignment(align uint32) Option {
	return func(o *Options) { o.RowAlignment = align }
}

func defaultOptions() Options {
	return Options{Name: "soft", RowAlignment: 1}
}
