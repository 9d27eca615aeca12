// Package dragdrop moves widget containers between registered drop targets.
//
// A [Drake] tracks a set of container nodes (grid columns and the widget
// palette). [Drake.Move] relocates an element from one registered container
// to another and notifies drop listeners, which is how the layout engine
// learns that a palette entry has been placed.
package dragdrop

import (
	"errors"
	"slices"

	"golang.org/x/net/html"
)

var (
	// ErrNotContainer is returned when a drop target is not registered.
	ErrNotContainer = errors.New("dragdrop: target is not a registered container")

	// ErrNotDraggable is returned when the element does not sit directly in a
	// registered container.
	ErrNotDraggable = errors.New("dragdrop: element is not inside a registered container")

	// ErrBadSibling is returned when the sibling is not a child of the target.
	ErrBadSibling = errors.New("dragdrop: sibling is not a child of the target")

	// ErrRejected is returned when the Accepts predicate vetoes a move.
	ErrRejected = errors.New("dragdrop: move rejected")
)

// DropEvent describes a completed move.
type DropEvent struct {
	Element *html.Node // moved element
	Target  *html.Node // container it now sits in
	Source  *html.Node // container it came from
	Sibling *html.Node // element it was inserted before, nil when appended
}

// Drake is the drag-and-drop collaborator. It is not safe for concurrent use.
type Drake struct {
	// Accepts, when set, may veto a move before it happens.
	Accepts func(el, target, source, sibling *html.Node) bool

	containers []*html.Node
	listeners  []func(DropEvent)
}

// New returns a Drake with no containers.
func New() *Drake {
	return &Drake{}
}

// Register adds a container. Registering twice is a no-op.
func (d *Drake) Register(c *html.Node) {
	if c == nil || d.IsContainer(c) {
		return
	}
	d.containers = append(d.containers, c)
}

// Unregister removes a container.
func (d *Drake) Unregister(c *html.Node) {
	d.containers = slices.DeleteFunc(d.containers, func(n *html.Node) bool { return n == c })
}

// IsContainer reports whether c is registered.
func (d *Drake) IsContainer(c *html.Node) bool {
	return slices.Contains(d.containers, c)
}

// Containers returns the registered containers in registration order.
func (d *Drake) Containers() []*html.Node {
	return slices.Clone(d.containers)
}

// OnDrop adds a listener called after every successful move.
func (d *Drake) OnDrop(fn func(DropEvent)) {
	d.listeners = append(d.listeners, fn)
}

// Move places el into target before sibling, or at the end when sibling is
// nil, then emits a DropEvent.
func (d *Drake) Move(el, target, sibling *html.Node) error {
	if el == nil || el.Parent == nil || !d.IsContainer(el.Parent) {
		return ErrNotDraggable
	}
	if !d.IsContainer(target) {
		return ErrNotContainer
	}
	if sibling == el {
		sibling = el.NextSibling
	}
	if sibling != nil && sibling.Parent != target {
		return ErrBadSibling
	}

	source := el.Parent
	if d.Accepts != nil && !d.Accepts(el, target, source, sibling) {
		return ErrRejected
	}

	source.RemoveChild(el)
	target.InsertBefore(el, sibling)

	ev := DropEvent{Element: el, Target: target, Source: source, Sibling: sibling}
	for _, fn := range d.listeners {
		fn(ev)
	}
	return nil
}
