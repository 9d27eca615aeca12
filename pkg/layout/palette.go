package layout

import (
	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/dragdrop"
	"github.com/fourbar/fourbar/pkg/widget"
)

// AddAvailableWidget renders t into the palette so it can be dragged onto
// the grid. It returns false without error when a widget with the same
// (type, id) is already in the palette or on the grid. A container of the
// same widget hidden by MarkDeleted is replaced. Malformed templates fail
// with INVALID_TEMPLATE and unknown types with *widget.UnknownTypeError.
func (e *Engine) AddAvailableWidget(t widget.Template) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if e.Find(t.Key()) != nil {
		return false, nil
	}

	c, err := e.mount(t)
	if err != nil {
		return false, err
	}
	if stale := e.findDeleted(t.Key()); stale != nil {
		e.unmarkActive(stale)
		dom.Detach(stale)
	}
	e.palette.AppendChild(c)
	return true, nil
}

// UpdateWidget re-renders the widget identified by t with t.Data, keeping
// its position on the grid or in the palette. A widget the engine does not
// show yet is offered in the palette. It reports whether the tree changed.
func (e *Engine) UpdateWidget(t widget.Template) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	old := e.Find(t.Key())
	if old == nil {
		return e.AddAvailableWidget(t)
	}

	c, err := e.mount(t)
	if err != nil {
		return false, err
	}
	old.Parent.InsertBefore(c, old)
	old.Parent.RemoveChild(old)
	for i, a := range e.active {
		if a == old {
			e.active[i] = c
		}
	}
	return true, nil
}

// Available returns the widget containers waiting in the palette.
func (e *Engine) Available() []*html.Node {
	return dom.ChildrenWhere(e.palette, isWidget)
}

// Palette returns the palette node.
func (e *Engine) Palette() *html.Node {
	return e.palette
}

// ReturnToPalette moves a placed widget back to the end of the palette. It
// reports whether the widget was found on the grid.
func (e *Engine) ReturnToPalette(k widget.Key) bool {
	c := e.Find(k)
	if c == nil || c.Parent == e.palette {
		return false
	}
	c.Parent.RemoveChild(c)
	e.palette.AppendChild(c)
	e.unmarkActive(c)
	return true
}

// handleDrop keeps the active list in step with drag-and-drop moves.
func (e *Engine) handleDrop(ev dragdrop.DropEvent) {
	if ev.Target == e.palette {
		e.unmarkActive(ev.Element)
		return
	}
	if dom.Contains(e.root, ev.Target) {
		e.markActive(ev.Element)
	}
}
