package layout

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
)

// =============================================================================
// Rows
// =============================================================================

// AddRow appends an empty row tagged with its index. In edit mode a control
// row holding the add/remove column buttons is inserted right before it.
func (e *Engine) AddRow() *html.Node {
	y := strconv.Itoa(len(e.Rows()))
	if e.opts.Template {
		e.root.AppendChild(newControls(y))
	}
	row := dom.Element("div", "class", ClassRow, AttrRow, y)
	e.root.AppendChild(row)
	return row
}

// RemoveRow removes the last row and its control row. Widgets in the row are
// moved to the palette. It is a no-op on an empty grid.
func (e *Engine) RemoveRow() {
	rows := e.Rows()
	if len(rows) == 0 {
		return
	}
	last := rows[len(rows)-1]
	for _, col := range e.Columns(last) {
		e.evacuate(col)
		e.drake.Unregister(col)
	}

	y, _ := dom.Attr(last, AttrRow)
	for _, c := range dom.ChildrenWhere(e.root, isControls) {
		if v, _ := dom.Attr(c, AttrControlsFor); v == y {
			e.root.RemoveChild(c)
		}
	}
	e.root.RemoveChild(last)
}

// Rows returns the grid rows in order. Control rows are excluded.
func (e *Engine) Rows() []*html.Node {
	return dom.ChildrenWhere(e.root, isRow)
}

// Row returns row y, or nil when out of range.
func (e *Engine) Row(y int) *html.Node {
	rows := e.Rows()
	if y < 0 || y >= len(rows) {
		return nil
	}
	return rows[y]
}

// RowIndex returns the index tagged on a row, or -1 for nodes that are not rows.
func RowIndex(row *html.Node) int {
	v, ok := dom.Attr(row, AttrRow)
	if !ok {
		return -1
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return y
}

func isRow(n *html.Node) bool {
	_, ok := dom.Attr(n, AttrRow)
	return ok && dom.HasClass(n, ClassRow)
}

func isControls(n *html.Node) bool {
	return dom.HasClass(n, ClassControls)
}

func newControls(y string) *html.Node {
	c := dom.Element("div", "class", ClassControls, AttrControlsFor, y)
	for _, b := range []struct{ action, label string }{
		{"add-column", "+"},
		{"remove-column", "-"},
	} {
		btn := dom.Element("button", "type", "button", AttrAction, b.action, AttrRow, y)
		btn.AppendChild(dom.Text(b.label))
		c.AppendChild(btn)
	}
	return c
}

// =============================================================================
// Columns
// =============================================================================

// AddColumn appends a column to row and resizes every column of the row to
// floor(100/N) percent. In edit mode the column becomes a drop target.
func (e *Engine) AddColumn(row *html.Node) *html.Node {
	col := dom.Element("div", "class", ClassColumn)
	row.AppendChild(col)
	if e.opts.Template {
		e.drake.Register(col)
	}
	resize(e.Columns(row))
	return col
}

// RemoveColumn removes the last column of row, moving its widgets to the
// palette, and resizes the remaining columns. It is a no-op on an empty row.
func (e *Engine) RemoveColumn(row *html.Node) {
	cols := e.Columns(row)
	if len(cols) == 0 {
		return
	}
	last := cols[len(cols)-1]
	e.evacuate(last)
	e.drake.Unregister(last)
	row.RemoveChild(last)
	resize(cols[:len(cols)-1])
}

// Columns returns the columns of row in order.
func (e *Engine) Columns(row *html.Node) []*html.Node {
	if row == nil {
		return nil
	}
	return dom.ChildrenWhere(row, isColumn)
}

// Column returns the column at (y, x), or nil when out of range.
func (e *Engine) Column(y, x int) *html.Node {
	cols := e.Columns(e.Row(y))
	if x < 0 || x >= len(cols) {
		return nil
	}
	return cols[x]
}

// Widgets returns the widget containers of a column in stacking order.
func (e *Engine) Widgets(col *html.Node) []*html.Node {
	return dom.ChildrenWhere(col, isWidget)
}

// ColumnWidth returns the width percentage stamped on a column, or 0.
func ColumnWidth(col *html.Node) int {
	style, _ := dom.Attr(col, "style")
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(k) != "width" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if err == nil {
			return n
		}
	}
	return 0
}

func isColumn(n *html.Node) bool {
	return dom.HasClass(n, ClassColumn)
}

func resize(cols []*html.Node) {
	if len(cols) == 0 {
		return
	}
	width := fmt.Sprintf("width: %d%%", 100/len(cols))
	for _, c := range cols {
		dom.SetAttr(c, "style", width)
	}
}

// evacuate moves every widget container of col to the end of the palette.
func (e *Engine) evacuate(col *html.Node) {
	for _, w := range e.Widgets(col) {
		col.RemoveChild(w)
		e.palette.AppendChild(w)
		e.unmarkActive(w)
	}
}
