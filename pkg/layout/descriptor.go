package layout

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Descriptor is the persisted unit of a layout: one widget and its position.
//
// Y is the row, X the column within the row, Z the stacking index within the
// cell. XLength is the column count of the row and ZLength the number of
// widgets in the cell at the time the layout was captured.
type Descriptor struct {
	Type    string      `json:"type" bson:"type"`
	ID      widget.ID   `json:"id" bson:"id"`
	Data    widget.Data `json:"data,omitempty" bson:"data,omitempty"`
	Y       int         `json:"y" bson:"y"`
	X       int         `json:"x" bson:"x"`
	Z       int         `json:"z" bson:"z"`
	XLength int         `json:"x_length" bson:"x_length"`
	ZLength int         `json:"z_length" bson:"z_length"`
}

// Key returns the (type, id) identity of the described widget.
func (d Descriptor) Key() widget.Key {
	return widget.Key{Type: d.Type, ID: d.ID}
}

// Template returns the placeable part of the descriptor.
func (d Descriptor) Template() widget.Template {
	return widget.Template{Type: d.Type, ID: d.ID, Data: d.Data}
}

// Position formats the coordinates as "y,x,z".
func (d Descriptor) Position() string {
	return fmt.Sprintf("%d,%d,%d", d.Y, d.X, d.Z)
}

// checkPlaceable rejects descriptors that cannot be placed at all.
func (d Descriptor) checkPlaceable() error {
	if d.Type == "" {
		return errors.New(errors.ErrCodeInvalidDescriptor, "descriptor at %s has no type", d.Position())
	}
	if d.ID == "" {
		return errors.New(errors.ErrCodeInvalidDescriptor, "%s descriptor at %s has no id", d.Type, d.Position())
	}
	if d.Data == nil {
		return errors.New(errors.ErrCodeInvalidDescriptor, "%s descriptor at %s has no data", d.Key(), d.Position())
	}
	if d.Y < 0 || d.X < 0 || d.Z < 0 {
		return errors.New(errors.ErrCodeInvalidDescriptor, "%s has negative coordinates %s", d.Key(), d.Position())
	}
	return nil
}

// Sort orders descriptors by row, then column, then stacking index. It is
// stable, so widgets with equal coordinates keep their relative order.
func Sort(ds []Descriptor) {
	slices.SortStableFunc(ds, func(a, b Descriptor) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z))
	})
}

// Sorted returns a sorted copy of ds.
func Sorted(ds []Descriptor) []Descriptor {
	out := slices.Clone(ds)
	Sort(out)
	return out
}

// ValidationError lists every structural problem found in a descriptor list.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid layout: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid layout: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() errors.Code {
	return errors.ErrCodeInvalidLayout
}

// Validate checks the invariants of a captured layout:
//   - coordinates are non-negative, x < x_length and z < z_length
//   - every descriptor of a row agrees on x_length
//   - every descriptor of a cell agrees on z_length and z covers 0..z_length-1
//   - no widget appears twice
//
// Rows and columns may be missing entirely; empty rows and columns are not
// captured. Data is not inspected. Returns nil or a *ValidationError.
func Validate(ds []Descriptor) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	type cell struct{ y, x int }
	rowWidth := make(map[int]int)
	cellDepth := make(map[cell]int)
	cellZ := make(map[cell][]int)
	seen := make(map[widget.Key]string)

	for i, d := range ds {
		if d.Type == "" || d.ID == "" {
			addf("descriptor %d: missing type or id", i)
			continue
		}
		if d.Y < 0 || d.X < 0 || d.Z < 0 {
			addf("%s: negative coordinates %s", d.Key(), d.Position())
			continue
		}
		if d.X >= d.XLength {
			addf("%s: x %d outside x_length %d", d.Key(), d.X, d.XLength)
		}
		if d.Z >= d.ZLength {
			addf("%s: z %d outside z_length %d", d.Key(), d.Z, d.ZLength)
		}
		if at, ok := seen[d.Key()]; ok {
			addf("%s: placed twice (%s and %s)", d.Key(), at, d.Position())
		}
		seen[d.Key()] = d.Position()

		if w, ok := rowWidth[d.Y]; ok && w != d.XLength {
			addf("row %d: x_length %d disagrees with %d", d.Y, d.XLength, w)
		} else {
			rowWidth[d.Y] = d.XLength
		}

		c := cell{d.Y, d.X}
		if n, ok := cellDepth[c]; ok && n != d.ZLength {
			addf("cell %d,%d: z_length %d disagrees with %d", d.Y, d.X, d.ZLength, n)
		} else {
			cellDepth[c] = d.ZLength
		}
		cellZ[c] = append(cellZ[c], d.Z)
	}

	cells := make([]cell, 0, len(cellZ))
	for c := range cellZ {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(a, b cell) int {
		return cmp.Or(cmp.Compare(a.y, b.y), cmp.Compare(a.x, b.x))
	})
	for _, c := range cells {
		zs := slices.Clone(cellZ[c])
		slices.Sort(zs)
		for i, z := range zs {
			if z != i {
				addf("cell %d,%d: stacking indices %v are not contiguous from 0", c.y, c.x, zs)
				break
			}
		}
		if len(zs) != cellDepth[c] && !slices.ContainsFunc(problems, func(p string) bool {
			return strings.HasPrefix(p, fmt.Sprintf("cell %d,%d:", c.y, c.x))
		}) {
			addf("cell %d,%d: %d widgets but z_length %d", c.y, c.x, len(zs), cellDepth[c])
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
