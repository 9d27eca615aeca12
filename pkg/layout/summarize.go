package layout

import (
	"github.com/fourbar/fourbar/pkg/widget"
)

// Summarize walks the grid and returns one descriptor per placed widget, in
// (y, x, z) order. Y comes from the row tag, X from the column position and
// Z from the position within the column. Descriptors carry no data. Widgets
// marked deleted are skipped.
func (e *Engine) Summarize() []Descriptor {
	var out []Descriptor
	for _, row := range e.Rows() {
		y := RowIndex(row)
		cols := e.Columns(row)
		for x, col := range cols {
			var stack []widget.Key
			for _, c := range e.Widgets(col) {
				if isDeleted(c) {
					continue
				}
				stack = append(stack, KeyOf(c))
			}
			for z, k := range stack {
				out = append(out, Descriptor{
					Type:    k.Type,
					ID:      k.ID,
					Y:       y,
					X:       x,
					Z:       z,
					XLength: len(cols),
					ZLength: len(stack),
				})
			}
		}
	}
	return out
}
