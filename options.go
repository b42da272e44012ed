package clmem

// ContextOption configures a Context during creation.
//
// Example:
//
//	ctx, err := clmem.NewContext(devices,
//	    clmem.WithMaxAllocSize(1<<30),
//	    clmem.WithRealizeConcurrency(2))
type ContextOption func(*contextOptions)

type contextOptions struct {
	maxAllocSize       uint64
	realizeConcurrency int
}

func defaultOptions() contextOptions {
	return contextOptions{
		maxAllocSize:       0, // unlimited
		realizeConcurrency: 0, // one goroutine per device
	}
}

// WithMaxAllocSize limits the size of a single memory object. Zero means
// no limit beyond what the devices enforce.
func WithMaxAllocSize(n uint64) ContextOption {
	return func(o *contextOptions) {
		o.maxAllocSize = n
	}
}

// WithRealizeConcurrency limits how many devices allocate the resources of
// a new object at the same time. Zero or negative means all of them.
func WithRealizeConcurrency(n int) ContextOption {
	return func(o *contextOptions) {
		o.realizeConcurrency = n
	}
}
