package cache

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey is the key of a community's stored layout.
	LayoutKey(communityID string) string

	// WidgetsKey is the key of a community's widget records.
	WidgetsKey(communityID string) string

	// GenerationKey is the key of a community's cache generation token.
	// Writes replace the token; entries tagged with an older token are stale.
	GenerationKey(communityID string) string

	// ArtifactKey is the key of a rendered artifact.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	Template   bool   `json:"template"`
	Standalone bool   `json:"standalone,omitempty"`
	Detailed   bool   `json:"detailed,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(communityID string) string {
	return "layout:" + communityID
}

// WidgetsKey implements Keyer.
func (DefaultKeyer) WidgetsKey(communityID string) string {
	return "widgets:" + communityID
}

// GenerationKey implements Keyer.
func (DefaultKeyer) GenerationKey(communityID string) string {
	return "gen:" + communityID
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
