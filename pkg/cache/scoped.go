package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis server without seeing each other's entries.
//
// Example usage:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
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

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(communityID string) string {
	return k.prefix + k.inner.LayoutKey(communityID)
}

// WidgetsKey generates a prefixed widget records key.
func (k *ScopedKeyer) WidgetsKey(communityID string) string {
	return k.prefix + k.inner.WidgetsKey(communityID)
}

// GenerationKey generates a prefixed generation key.
func (k *ScopedKeyer) GenerationKey(communityID string) string {
	return k.prefix + k.inner.GenerationKey(communityID)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
