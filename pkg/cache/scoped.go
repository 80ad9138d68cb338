package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects or users can
// share one backend without key collisions.
//
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "proj:alpha:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every generated
// key. A nil inner keyer falls back to the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ExtentKey generates a prefixed key for a cutout extent.
func (k *ScopedKeyer) ExtentKey(cell string, opts ExtentKeyOpts) string {
	return k.prefix + k.inner.ExtentKey(cell, opts)
}
