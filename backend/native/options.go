package native

import "time"

const (
	defaultSubmitTimeout = 5 * time.Second
	defaultRowAlignment  = 256
)

type config struct {
	label         string
	unified       bool
	submitTimeout time.Duration
	rowAlignment  uint32
}

// Option configures a Device.
type Option func(*config)

// WithLabel names the device in logs and resource labels.
func WithLabel(label string) Option {
	return func(c *config) { c.label = label }
}

// WithUnifiedMemory overrides the unified-memory detection of Open and
// FromProvider.
func WithUnifiedMemory(unified bool) Option {
	return func(c *config) { c.unified = unified }
}

// WithSubmitTimeout bounds the wait for each submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *config) { c.submitTimeout = d }
}

// WithRowAlignment sets the row pitch alignment of staging textures and
// bounce buffers. It must match the buffer copy pitch of the adapter.
func WithRowAlignment(align uint32) Option {
	return func(c *config) { c.rowAlignment = align }
}

func newConfig(label string, unified bool, opts []Option) config {
	c := config{
		label:         label,
		unified:       unified,
		submitTimeout: defaultSubmitTimeout,
		rowAlignment:  defaultRowAlignment,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.label == "" {
		c.label = "native"
	}
	if c.rowAlignment == 0 {
		c.rowAlignment = 1
	}
	if c.submitTimeout <= 0 {
		c.submitTimeout = defaultSubmitTimeout
	}
	return c
}
