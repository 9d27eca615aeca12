// Package pkg provides the libraries behind fourbar community page layouts.
//
// # Overview
//
// A community page is a grid: rows of equal-width columns, each column a
// stack of widgets. The grid is a live HTML tree that can be rebuilt from a
// flat list of positioned descriptors and summarized back into one.
//
//  1. [widget] - Widget types, templates and the registry that renders them
//  2. [layout] - The grid engine, descriptors and the persisted document
//  3. [dom] and [dragdrop] - HTML tree helpers and drop-target bookkeeping
//  4. [store], [cache], [session] - Persistence, caching and edit sessions
//  5. [pipeline] - Orchestration (load → build → render)
//  6. [realtime] - Live events for editors and viewers
//
// # Data Flow
//
//	widget records + stored descriptors
//	         ↓
//	    [store] (hydrate payloads, list unplaced records)
//	         ↓
//	    [layout] engine (grow rows and columns, mount widgets)
//	         ↓
//	    HTML page, JSON summary or [render/preview] SVG
//
// Editing runs the same engine in template mode: control rows, a palette of
// unplaced widgets and drop targets on every column. Saving summarizes the
// grid and stores it with an optimistic version check.
//
// # Quick Start
//
//	engine, _ := layout.New(widget.Builtin(), layout.Options{})
//	warnings := engine.Load(descriptors)
//	engine.Render(os.Stdout)
//	summary := engine.Summarize()
//
// [widget]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/widget
// [layout]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/layout
// [dom]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/dom
// [dragdrop]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/dragdrop
// [store]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/store
// [cache]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/cache
// [session]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/pipeline
// [realtime]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/realtime
// [render/preview]: https://pkg.go.dev/github.com/fourbar/fourbar/pkg/render/preview
package pkg
