package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/observability"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Cached is a read-through cache in front of another Store. Stored positions
// and widget lists are cached per community. Cache hits are hydrated the same
// way the inner store hydrates. Cache failures fall through to the inner
// store.
//
// Every community has a generation token in the cache. Entries are tagged
// with the token read before the inner store was, and writes replace the
// token after committing. A read that raced a write therefore fills an entry
// with an old token, which later reads ignore.
type Cached struct {
	inner Store
	cache cache.Cache
	keyer cache.Keyer
}

// entry is the cached envelope of a layout or a widget list.
type entry struct {
	Gen  string          `json:"gen"`
	Data json.RawMessage `json:"data"`
}

// NewCached wraps inner. A nil keyer uses cache.NewDefaultKeyer.
func NewCached(inner Store, c cache.Cache, keyer cache.Keyer) *Cached {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cached{inner: inner, cache: c, keyer: keyer}
}

func (c *Cached) Load(ctx context.Context, communityID string) (*layout.Layout, error) {
	gen := c.generation(ctx, communityID)
	key := c.keyer.LayoutKey(communityID)
	if data, ok := c.get(ctx, key, gen); ok {
		if stored, err := layout.Unmarshal(data); err == nil {
			records, err := c.widgets(ctx, communityID, gen)
			if err != nil {
				return nil, err
			}
			return Assemble(communityID, &stored, records), nil
		}
	}

	l, err := c.inner.Load(ctx, communityID)
	if err != nil {
		return nil, err
	}
	stored := layout.Layout{
		CommunityID: l.CommunityID,
		Background:  l.Background,
		Version:     l.Version,
		UpdatedAt:   l.UpdatedAt,
		Widgets:     layout.StripData(l.Widgets),
	}
	if data, err := layout.Marshal(stored); err == nil {
		c.set(ctx, key, gen, data, cache.TTLLayout)
	}
	return l, nil
}

func (c *Cached) Save(ctx context.Context, l *layout.Layout) (*layout.Layout, error) {
	saved, err := c.inner.Save(ctx, l)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, l.CommunityID)
	return saved, nil
}

func (c *Cached) Widgets(ctx context.Context, communityID string) ([]widget.Template, error) {
	return c.widgets(ctx, communityID, c.generation(ctx, communityID))
}

func (c *Cached) widgets(ctx context.Context, communityID, gen string) ([]widget.Template, error) {
	key := c.keyer.WidgetsKey(communityID)
	if data, ok := c.get(ctx, key, gen); ok {
		var ts []widget.Template
		if err := json.Unmarshal(data, &ts); err == nil {
			return ts, nil
		}
	}

	ts, err := c.inner.Widgets(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(ts); err == nil {
		c.set(ctx, key, gen, data, cache.TTLWidgets)
	}
	return ts, nil
}

func (c *Cached) PutWidget(ctx context.Context, communityID string, t widget.Template) (widget.Template, error) {
	t, err := c.inner.PutWidget(ctx, communityID, t)
	if err != nil {
		return widget.Template{}, err
	}
	c.invalidate(ctx, communityID)
	return t, nil
}

func (c *Cached) DeleteWidget(ctx context.Context, communityID string, k widget.Key) error {
	if err := c.inner.DeleteWidget(ctx, communityID, k); err != nil {
		return err
	}
	c.invalidate(ctx, communityID)
	return nil
}

// Close closes the inner store. The cache is owned by the caller.
func (c *Cached) Close() error {
	return c.inner.Close()
}

// generation returns the community's current token, creating one when the
// cache has none. It returns "" when the cache cannot hold a token, which
// disables caching for the call.
func (c *Cached) generation(ctx context.Context, communityID string) string {
	key := c.keyer.GenerationKey(communityID)
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return ""
	}
	if ok && len(data) > 0 {
		return string(data)
	}
	return c.bump(ctx, communityID)
}

// bump stores a fresh token for the community.
func (c *Cached) bump(ctx context.Context, communityID string) string {
	gen := uuid.NewString()
	if err := c.cache.Set(ctx, c.keyer.GenerationKey(communityID), []byte(gen), cache.TTLGeneration); err != nil {
		return ""
	}
	return gen
}

func (c *Cached) get(ctx context.Context, key, gen string) ([]byte, bool) {
	if gen == "" {
		return nil, false
	}
	data, ok, err := c.cache.Get(ctx, key)
	var e entry
	if err != nil || !ok || json.Unmarshal(data, &e) != nil || e.Gen != gen {
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, key)
	return e.Data, true
}

func (c *Cached) set(ctx context.Context, key, gen string, data []byte, ttl time.Duration) {
	if gen == "" {
		return
	}
	raw, err := json.Marshal(entry{Gen: gen, Data: data})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, key, len(raw))
	}
}

// invalidate retires the community's generation and drops its entries.
// Failures are ignored; entries still expire with their TTL.
func (c *Cached) invalidate(ctx context.Context, communityID string) {
	if c.bump(ctx, communityID) == "" {
		c.cache.Delete(ctx, c.keyer.GenerationKey(communityID))
	}
	c.cache.Delete(ctx, c.keyer.LayoutKey(communityID))
	c.cache.Delete(ctx, c.keyer.WidgetsKey(communityID))
}

var _ Store = (*Cached)(nil)
