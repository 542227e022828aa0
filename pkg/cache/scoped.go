package cache

// ScopedKeyer wraps a Keyer with a prefix so that different report
// configurations (for example two products tracked in the same bug
// tracker) keep separate cache namespaces.
//
// Example usage:
//
//	// Product-specific keys
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "product:mailclient:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// SnapshotKey generates a prefixed key for snapshot caching.
func (k *ScopedKeyer) SnapshotKey(source string, opts SnapshotKeyOpts) string {
	return k.prefix + k.inner.SnapshotKey(source, opts)
}

// ReportKey generates a prefixed key for report document caching.
func (k *ScopedKeyer) ReportKey(snapshotHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(snapshotHash, opts)
}
