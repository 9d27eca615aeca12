// Package pipeline provides the load, build and render pipeline for fourbar.
//
// This package implements the path from a stored layout to rendered output
// that the CLI and the HTTP server share. Centralizing it keeps caching,
// logging and hook reporting identical across entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the community layout from a store (or take one from a file)
//  2. Build: Replay the descriptors into a layout engine
//  3. Render: Generate output in the requested formats (HTML, JSON, SVG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(widget.Builtin(), cache, nil, logger)
//	runner.Store = st
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    CommunityID: "smash",
//	    Formats:     []string{"html"},
//	})
//	page := result.Artifacts["html"]
//
// Run individual stages:
//
//	l, err := runner.Load(ctx, opts)
//	engine, warnings, err := runner.Build(ctx, l, opts)
//	artifacts, err := pipeline.RenderEngine(ctx, engine, l, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
)

// Format constants for output formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatHTML: true,
	FormatJSON: true,
	FormatSVG:  true,
}

// ContentTypes maps formats to HTTP content types.
var ContentTypes = map[string]string{
	FormatHTML: "text/html; charset=utf-8",
	FormatJSON: "application/json",
	FormatSVG:  "image/svg+xml",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	CommunityID string `json:"community_id,omitempty"`

	// Build options
	Template bool `json:"template,omitempty"` // Edit mode: controls and palette

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Standalone bool     `json:"standalone,omitempty"` // Wrap HTML in a full document
	Detailed   bool     `json:"detailed,omitempty"`   // Widget ids in the SVG preview
	Refresh    bool     `json:"refresh,omitempty"`    // Bypass the artifact cache

	// Runtime options (not serialized)
	Logger       *log.Logger     `json:"-"`
	SaveCallback layout.SaveFunc `json:"-"` // Passed to engines built in template mode

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the loaded layout.
	Layout *layout.Layout

	// LayoutHash is the content hash of the loaded layout.
	LayoutHash string

	// Summary is the descriptor list of what was actually placed.
	Summary []layout.Descriptor

	// Warnings are the descriptors and templates skipped while building.
	Warnings []error

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Descriptors int
	Placed      int
	Skipped     int
	LoadTime    time.Duration
	BuildTime   time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: html, json, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the fields needed to load from a store.
func (o *Options) ValidateForLoad() error {
	if err := errors.ValidateCommunityID(o.CommunityID); err != nil {
		return fmt.Errorf("community_id: %w", err)
	}
	o.setLogger()
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatHTML}
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Template:   o.Template,
		Standalone: o.Standalone && format == FormatHTML,
		Detailed:   o.Detailed && format == FormatSVG,
	}
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
