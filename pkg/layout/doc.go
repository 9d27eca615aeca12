// Package layout implements the widget layout engine: a grid of rows,
// columns and stacked widget containers kept as a live HTML tree.
//
// # Grid
//
// The grid root holds rows; each row holds columns; each column holds widget
// containers stamped with data-widget-type and data-widget-id. Columns of a
// row share the width equally (floor(100/N) percent). In edit mode a control
// row precedes each row and a palette holds widgets that are available but
// not placed.
//
//	div.layout-engine
//	  div.layout
//	    div.layout-controls[data-controls-for=0]     (edit mode)
//	    div.layout-row[data-row=0]
//	      div.layout-column[style="width: 50%"]
//	        div.widget[data-widget-type=youtube][data-widget-id=7]
//	  div.widget-palette                             (edit mode)
//
// # Descriptors
//
// A [Descriptor] records one widget and its (y, x, z) position plus the row
// width and cell depth at capture time. [Engine.Load] replays descriptors to
// rebuild a grid and [Engine.Summarize] walks the grid to capture it again:
//
//	eng, _ := layout.New(widget.Builtin(), layout.Options{})
//	warnings := eng.Load(descriptors) // unknown types and bad payloads are skipped
//	captured := eng.Summarize()
//
// Removing a row or column never loses widgets: they move to the palette.
//
// # Documents
//
// [Layout] is the persisted document (community, version, descriptors) with
// JSON and BSON tags. [ReadFile]/[WriteFile] handle layout files for the CLI.
package layout
