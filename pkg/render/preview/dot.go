package preview

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/fourbar/fourbar/pkg/layout"
)

// Options configures preview rendering.
type Options struct {
	// Detailed adds widget ids and cell coordinates to the labels.
	// When false, only widget types are shown.
	Detailed bool

	// Title is drawn above the grid when set.
	Title string
}

// cellWidth is the drawn width of a full-width row, in points.
const cellWidth = 480

var typeColors = map[string]string{
	"youtube":     "#fde2e2",
	"twitter":     "#e0f0fd",
	"markdown":    "#f2f2f2",
	"tournaments": "#e6f5e1",
}

// Grid is the row, column and stack structure of a list of descriptors.
// Grid[y][x] lists the widgets of cell (y, x) in z order.
type Grid [][][]layout.Descriptor

// GridOf arranges descriptors by position. Rows with no descriptors are kept
// empty and a row is as wide as the largest of its x_length and x+1.
func GridOf(ds []layout.Descriptor) Grid {
	var g Grid
	for _, d := range layout.Sorted(ds) {
		for len(g) <= d.Y {
			g = append(g, nil)
		}
		for width := max(d.X+1, d.XLength); len(g[d.Y]) < width; {
			g[d.Y] = append(g[d.Y], nil)
		}
		g[d.Y][d.X] = append(g[d.Y][d.X], d)
	}
	return g
}

// ToDOT converts descriptors to Graphviz DOT source.
// The result can be rendered with [RenderSVG].
func ToDOT(ds []layout.Descriptor, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph layout {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  edge [style=invis];\n")
	buf.WriteString("  ranksep=0.1;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  labelloc=t;\n  label=%q;\n", opts.Title)
	}
	buf.WriteString("\n")

	grid := GridOf(ds)
	if len(grid) == 0 {
		buf.WriteString("  empty [label=\"empty layout\", shape=box, style=dashed];\n")
	}
	for y, row := range grid {
		fmt.Fprintf(&buf, "  row%d [label=<%s>];\n", y, rowTable(y, row, opts))
	}

	if len(grid) > 1 {
		buf.WriteString("\n")
		for y := 1; y < len(grid); y++ {
			fmt.Fprintf(&buf, "  row%d -> row%d;\n", y-1, y)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func rowTable(y int, row [][]layout.Descriptor, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(`<TABLE BORDER="1" CELLBORDER="1" CELLSPACING="4" CELLPADDING="6">`)
	buf.WriteString("<TR>")
	if len(row) == 0 {
		fmt.Fprintf(&buf, `<TD WIDTH="%d" BORDER="0"><I>row %d: no columns</I></TD>`, cellWidth, y)
	}
	width := 0
	if len(row) > 0 {
		width = cellWidth / len(row)
	}
	for x, stack := range row {
		fmt.Fprintf(&buf, `<TD WIDTH="%d" VALIGN="TOP">`, width)
		buf.WriteString(cellTable(y, x, stack, opts))
		buf.WriteString("</TD>")
	}
	buf.WriteString("</TR></TABLE>")
	return buf.String()
}

func cellTable(y, x int, stack []layout.Descriptor, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(`<TABLE BORDER="0" CELLSPACING="2">`)
	if opts.Detailed {
		fmt.Fprintf(&buf, `<TR><TD><FONT POINT-SIZE="9">%d,%d</FONT></TD></TR>`, y, x)
	}
	if len(stack) == 0 {
		buf.WriteString(`<TR><TD><FONT COLOR="grey">empty</FONT></TD></TR>`)
	}
	for _, d := range stack {
		fmt.Fprintf(&buf, `<TR><TD BGCOLOR="%s" BORDER="1">%s</TD></TR>`, fill(d.Type), label(d, opts.Detailed))
	}
	buf.WriteString("</TABLE>")
	return buf.String()
}

func label(d layout.Descriptor, detailed bool) string {
	if !detailed {
		return html.EscapeString(d.Type)
	}
	return "<B>" + html.EscapeString(d.Type) + "</B><BR/>" + html.EscapeString(string(d.ID))
}

func fill(typ string) string {
	if c, ok := typeColors[typ]; ok {
		return c
	}
	return "#ffffff"
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// viewBox starts at the origin, so the image scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
