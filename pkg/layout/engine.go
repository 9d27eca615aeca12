package layout

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/dragdrop"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Class names and attributes stamped on the grid.
const (
	ClassEngine   = "layout-engine"
	ClassRoot     = "layout"
	ClassControls = "layout-controls"
	ClassRow      = "layout-row"
	ClassColumn   = "layout-column"
	ClassWidget   = "widget"
	ClassPalette  = "widget-palette"

	AttrRow         = "data-row"
	AttrControlsFor = "data-controls-for"
	AttrWidgetType  = "data-widget-type"
	AttrWidgetID    = "data-widget-id"
	AttrDeleted     = "data-deleted"
	AttrAction      = "data-action"
)

// SaveFunc persists a captured layout.
type SaveFunc func(ctx context.Context, widgets []Descriptor) error

// Options configure an Engine at construction time.
type Options struct {
	// Template enables edit mode: control rows, a rendered palette and
	// drag-and-drop registration of every column.
	Template bool

	// Background is an optional image URL for the grid root.
	Background string

	// SaveCallback receives the summary when Save is called.
	SaveCallback SaveFunc

	// Drake is the drag-and-drop collaborator. A new one is created when nil.
	Drake *dragdrop.Drake

	// Logger receives placement warnings. Discarded when nil.
	Logger *log.Logger
}

// Engine owns one layout grid. It is not safe for concurrent use; callers
// that share an engine across goroutines must serialize access.
type Engine struct {
	registry *widget.Registry
	opts     Options
	drake    *dragdrop.Drake
	logger   *log.Logger

	doc     *html.Node // div.layout-engine
	root    *html.Node // div.layout
	palette *html.Node // div.widget-palette, attached to doc in edit mode
	active  []*html.Node
}

// New creates an engine with an empty grid.
func New(registry *widget.Registry, opts Options) (*Engine, error) {
	if registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "widget registry is required")
	}
	if opts.Background != "" {
		if err := errors.ValidateURL(opts.Background); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "background")
		}
	}

	e := &Engine{
		registry: registry,
		opts:     opts,
		drake:    opts.Drake,
		logger:   opts.Logger,
	}
	if e.drake == nil {
		e.drake = dragdrop.New()
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}

	e.doc = dom.Element("div", "class", ClassEngine)
	e.root = dom.Element("div", "class", ClassRoot)
	if opts.Background != "" {
		dom.SetAttr(e.root, "style", `background-image: url("`+opts.Background+`")`)
	}
	e.doc.AppendChild(e.root)

	e.palette = dom.Element("div", "class", ClassPalette)
	if opts.Template {
		dom.SetAttr(e.doc, "data-mode", "edit")
		e.doc.AppendChild(e.palette)
		e.drake.Register(e.palette)
	}

	e.drake.OnDrop(e.handleDrop)
	return e, nil
}

// Editing reports whether the engine runs in edit mode.
func (e *Engine) Editing() bool {
	return e.opts.Template
}

// Registry returns the widget registry the engine renders with.
func (e *Engine) Registry() *widget.Registry {
	return e.registry
}

// Drake returns the drag-and-drop collaborator.
func (e *Engine) Drake() *dragdrop.Drake {
	return e.drake
}

// Root returns the grid root node.
func (e *Engine) Root() *html.Node {
	return e.root
}

// Node returns the engine's top-level node. In edit mode it also holds the palette.
func (e *Engine) Node() *html.Node {
	return e.doc
}

// Render writes the engine's HTML.
func (e *Engine) Render(w io.Writer) error {
	return dom.Render(w, e.doc)
}

// Save captures the grid and hands the descriptors to the save callback.
func (e *Engine) Save(ctx context.Context) error {
	if e.opts.SaveCallback == nil {
		return errors.New(errors.ErrCodeUnsupported, "no save callback configured")
	}
	return e.opts.SaveCallback(ctx, e.Summarize())
}

// BuildWidget places one descriptor, growing rows and columns as needed.
//
// Rows up to and including d.Y and columns up to max(d.X, d.XLength-1) are
// created first, so a descriptor of an unknown type still shapes the grid.
// Unknown types return *widget.UnknownTypeError and place nothing. Widgets
// land in arrival order within a cell, so callers replay in Z order.
func (e *Engine) BuildWidget(d Descriptor) error {
	if err := d.checkPlaceable(); err != nil {
		return err
	}

	for len(e.Rows()) <= d.Y {
		e.AddRow()
	}
	row := e.Row(d.Y)
	for width := max(d.X+1, d.XLength); len(e.Columns(row)) < width; {
		e.AddColumn(row)
	}

	c, err := e.mount(d.Template())
	if err != nil {
		var unknown *widget.UnknownTypeError
		if errors.As(err, &unknown) {
			e.logger.Warn("unknown widget type", "type", d.Type, "id", d.ID, "at", d.Position())
		}
		return err
	}

	e.Columns(row)[d.X].AppendChild(c)
	e.markActive(c)
	return nil
}

// Load replays descriptors in (y, x, z) order and returns the errors of the
// descriptors it skipped. The input slice is not modified.
func (e *Engine) Load(ds []Descriptor) []error {
	var warnings []error
	for _, d := range Sorted(ds) {
		if err := e.BuildWidget(d); err != nil {
			e.logger.Debug("skipped descriptor", "type", d.Type, "id", d.ID, "err", err)
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// mount creates a widget container for t and renders the widget into it.
func (e *Engine) mount(t widget.Template) (*html.Node, error) {
	w, ok := e.registry.Lookup(t.Type)
	if !ok {
		return nil, &widget.UnknownTypeError{Type: t.Type}
	}

	c := dom.Element("div",
		"class", ClassWidget+" "+ClassWidget+"-"+t.Type,
		AttrWidgetType, t.Type,
		AttrWidgetID, string(t.ID),
	)
	el, err := w.Render(t.Data, c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "render %s", t.Key())
	}
	if el != nil {
		c.AppendChild(el)
	}
	return c, nil
}

// Find returns the live container of the widget with the given identity,
// searching the grid and then the palette. Containers marked deleted are not
// returned.
func (e *Engine) Find(k widget.Key) *html.Node {
	return e.lookup(k, "not(@"+AttrDeleted+")")
}

// findDeleted returns a container of k hidden by MarkDeleted.
func (e *Engine) findDeleted(k widget.Key) *html.Node {
	return e.lookup(k, "@"+AttrDeleted)
}

func (e *Engine) lookup(k widget.Key, cond string) *html.Node {
	expr := fmt.Sprintf("//div[@%s=%s and @%s=%s and %s]",
		AttrWidgetType, dom.Literal(k.Type), AttrWidgetID, dom.Literal(string(k.ID)), cond)
	for _, n := range []*html.Node{e.root, e.palette} {
		c, err := dom.FindOne(n, expr)
		if err != nil {
			e.logger.Error("widget lookup", "widget", k, "err", err)
			return nil
		}
		if c != nil {
			return c
		}
	}
	return nil
}

// Active returns the containers placed on the grid, in placement order.
func (e *Engine) Active() []*html.Node {
	return append([]*html.Node(nil), e.active...)
}

// MarkDeleted hides the container of a widget whose record was deleted.
// Hidden containers are left in place but excluded from summaries. It reports
// whether the widget was found.
func (e *Engine) MarkDeleted(k widget.Key) bool {
	c := e.Find(k)
	if c == nil {
		return false
	}
	dom.SetAttr(c, "hidden", "")
	dom.SetAttr(c, AttrDeleted, "true")
	return true
}

func (e *Engine) markActive(c *html.Node) {
	for _, a := range e.active {
		if a == c {
			return
		}
	}
	e.active = append(e.active, c)
}

func (e *Engine) unmarkActive(c *html.Node) {
	for i, a := range e.active {
		if a == c {
			e.active = append(e.active[:i], e.active[i+1:]...)
			return
		}
	}
}

func isWidget(n *html.Node) bool {
	_, ok := dom.Attr(n, AttrWidgetType)
	return ok
}

func isDeleted(n *html.Node) bool {
	_, ok := dom.Attr(n, AttrDeleted)
	return ok
}

// KeyOf returns the (type, id) stamped on a widget container.
func KeyOf(c *html.Node) widget.Key {
	t, _ := dom.Attr(c, AttrWidgetType)
	id, _ := dom.Attr(c, AttrWidgetID)
	return widget.Key{Type: t, ID: widget.ID(id)}
}

// containers yields every widget container below n.
func containers(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(p *html.Node) bool {
			for c := p.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				if isWidget(c) {
					if !yield(c) {
						return false
					}
					continue
				}
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}
