// Package preview draws a layout as a wireframe diagram.
//
// # Overview
//
// The preview is a Graphviz graph with one node per grid row. Each row node
// is an HTML-like table whose cells are the row's columns; the widgets of a
// column are listed top to bottom in stacking order. Rows are chained with
// invisible edges so Graphviz stacks them vertically.
//
// # Usage
//
//	dot := preview.ToDOT(descriptors, preview.Options{Detailed: true})
//	svg, err := preview.RenderSVG(ctx, dot)
//
// Only positions are used; widget payloads are ignored, so both stored
// layouts and editor summaries can be previewed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package preview
