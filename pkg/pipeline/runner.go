package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/observability"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options; every run builds its own engine.
type Runner struct {
	Store    store.Store // Optional; required by Load, Execute and Save
	Registry *widget.Registry
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner with the given registry, cache and keyer.
// If registry is nil, the built-in widgets are used.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(registry *widget.Registry, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if registry == nil {
		registry = widget.Builtin()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Registry: registry,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs the complete load → build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.CommunityID)

	// Stage 1: Load
	loadStart := time.Now()
	l, err := r.Load(ctx, opts)
	if err != nil {
		hooks.OnLoadComplete(ctx, opts.CommunityID, 0, time.Since(loadStart), err)
		return nil, fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(loadStart)

	r.Logger.Info("loaded layout",
		"community", l.CommunityID,
		"version", l.Version,
		"descriptors", len(l.Widgets),
		"duration", loadTime)

	// Stages 2 and 3
	result, err := r.Process(ctx, l, opts)
	if err != nil {
		hooks.OnLoadComplete(ctx, opts.CommunityID, 0, time.Since(loadStart), err)
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	hooks.OnLoadComplete(ctx, opts.CommunityID, result.Stats.Placed, time.Since(loadStart), nil)
	return result, nil
}

// Process builds and renders a layout that is already in hand, such as one
// read from a file.
func (r *Runner) Process(ctx context.Context, l *layout.Layout, opts Options) (*Result, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Layout:     l,
		LayoutHash: LayoutHash(l),
		Artifacts:  make(map[string][]byte),
	}
	result.Stats.Descriptors = len(l.Widgets)

	if !opts.Refresh {
		if artifacts, ok := r.cachedArtifacts(ctx, result.LayoutHash, opts); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			r.Logger.Debug("artifacts from cache", "formats", opts.Formats)
			return result, nil
		}
	}

	// Stage 2: Build
	buildStart := time.Now()
	engine, warnings, err := r.Build(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Summary = engine.Summarize()
	result.Warnings = warnings
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Placed = len(engine.Active())
	result.Stats.Skipped = len(l.Widgets) - result.Stats.Placed

	// Stage 3: Render
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	artifacts, err := RenderEngine(ctx, engine, l, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts

	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(result.LayoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
	}

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"placed", result.Stats.Placed,
		"skipped", result.Stats.Skipped,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads the community layout from the store.
func (r *Runner) Load(ctx context.Context, opts Options) (*layout.Layout, error) {
	if r.Store == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no layout store configured")
	}
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	return r.Store.Load(ctx, opts.CommunityID)
}

// Build creates an engine for l and replays its descriptors. In template
// mode the layout's available widgets are added to the palette. Skipped
// descriptors and templates are returned as warnings; unknown widget types
// among them are reported to the pipeline hooks.
func (r *Runner) Build(ctx context.Context, l *layout.Layout, opts Options) (*layout.Engine, []error, error) {
	r.applyLogger(&opts)

	engine, err := layout.New(r.Registry, layout.Options{
		Template:     opts.Template,
		Background:   l.Background,
		SaveCallback: opts.SaveCallback,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	warnings := engine.Load(l.Widgets)
	if opts.Template {
		for _, t := range l.Available {
			if _, err := engine.AddAvailableWidget(t); err != nil {
				warnings = append(warnings, err)
			}
		}
	}
	ReportWarnings(ctx, l.CommunityID, warnings)

	if len(warnings) > 0 {
		opts.Logger.Warn("skipped widgets", "community", l.CommunityID, "count", len(warnings))
	}
	return engine, warnings, nil
}

// Save stores l through the runner's store and reports the outcome to the
// pipeline hooks.
func (r *Runner) Save(ctx context.Context, l *layout.Layout) (*layout.Layout, error) {
	if r.Store == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no layout store configured")
	}

	start := time.Now()
	saved, err := r.Store.Save(ctx, l)
	version := l.Version
	if saved != nil {
		version = saved.Version
	}
	observability.Pipeline().OnSave(ctx, l.CommunityID, version, time.Since(start), err)
	if err != nil {
		r.Logger.Warn("save failed", "community", l.CommunityID, "base_version", l.Version, "err", err)
		return nil, err
	}

	r.Logger.Info("saved layout",
		"community", saved.CommunityID,
		"version", saved.Version,
		"descriptors", len(saved.Widgets))
	return saved, nil
}

// ReportWarnings passes unknown widget types found in warnings to the
// pipeline hooks.
func ReportWarnings(ctx context.Context, communityID string, warnings []error) {
	for _, w := range warnings {
		var unknown *widget.UnknownTypeError
		if errors.As(w, &unknown) {
			observability.Pipeline().OnUnknownWidgetType(ctx, communityID, unknown.Type)
		}
	}
}

// LayoutHash returns the content hash of a layout, payloads included.
func LayoutHash(l *layout.Layout) string {
	data, _ := json.Marshal(l)
	return cache.Hash(data)
}

// Close releases resources held by the runner (store and cache).
func (r *Runner) Close() error {
	var err error
	if r.Store != nil {
		err = r.Store.Close()
	}
	if r.Cache != nil {
		if cerr := r.Cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Runner) cachedArtifacts(ctx context.Context, hash string, opts Options) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
