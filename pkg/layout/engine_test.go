package layout

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/widget"
)

// stubRegistry renders every payload as a span so tests do not depend on
// the built-in widgets' payload rules.
func stubRegistry(types ...string) *widget.Registry {
	reg := widget.NewRegistry()
	for _, typ := range types {
		reg.Register(typ, widget.Func(func(d widget.Data, _ *html.Node) (*html.Node, error) {
			span := dom.Element("span", "class", "stub")
			span.AppendChild(dom.Text(d.String("url")))
			return span, nil
		}))
	}
	return reg
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(stubRegistry("youtube", "markdown", "twitter"), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func desc(typ, id string, y, x, z, xl, zl int) Descriptor {
	return Descriptor{
		Type: typ, ID: widget.ID(id), Data: widget.Data{"url": "https://x"},
		Y: y, X: x, Z: z, XLength: xl, ZLength: zl,
	}
}

// positions drops payloads so summaries compare by identity and coordinates.
func positions(ds []Descriptor) []Descriptor {
	return StripData(ds)
}

func TestBuildWidgetSingle(t *testing.T) {
	e := newEngine(t, Options{})

	if err := e.BuildWidget(desc("youtube", "7", 0, 0, 0, 1, 1)); err != nil {
		t.Fatalf("BuildWidget: %v", err)
	}

	if got := len(e.Rows()); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
	cols := e.Columns(e.Row(0))
	if len(cols) != 1 {
		t.Fatalf("columns = %d, want 1", len(cols))
	}
	if w := ColumnWidth(cols[0]); w != 100 {
		t.Errorf("column width = %d, want 100", w)
	}

	ws := e.Widgets(cols[0])
	if len(ws) != 1 {
		t.Fatalf("widgets = %d, want 1", len(ws))
	}
	if typ, _ := dom.Attr(ws[0], AttrWidgetType); typ != "youtube" {
		t.Errorf("data-widget-type = %q, want youtube", typ)
	}
	if id, _ := dom.Attr(ws[0], AttrWidgetID); id != "7" {
		t.Errorf("data-widget-id = %q, want 7", id)
	}

	want := []Descriptor{{Type: "youtube", ID: "7", Y: 0, X: 0, Z: 0, XLength: 1, ZLength: 1}}
	if got := e.Summarize(); !reflect.DeepEqual(got, want) {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestBuildWidgetTwoColumns(t *testing.T) {
	e := newEngine(t, Options{})
	for _, d := range []Descriptor{
		desc("youtube", "1", 0, 0, 0, 2, 1),
		desc("markdown", "2", 0, 1, 0, 2, 1),
	} {
		if err := e.BuildWidget(d); err != nil {
			t.Fatalf("BuildWidget(%s): %v", d.Key(), err)
		}
	}

	cols := e.Columns(e.Row(0))
	if len(cols) != 2 {
		t.Fatalf("columns = %d, want 2", len(cols))
	}
	for i, c := range cols {
		if w := ColumnWidth(c); w != 50 {
			t.Errorf("column %d width = %d, want 50", i, w)
		}
	}
}

func TestBuildWidgetGrowsRowsLazily(t *testing.T) {
	e := newEngine(t, Options{})
	if err := e.BuildWidget(desc("youtube", "1", 2, 1, 0, 2, 1)); err != nil {
		t.Fatalf("BuildWidget: %v", err)
	}

	if got := len(e.Rows()); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	for y := range 2 {
		if n := len(e.Columns(e.Row(y))); n != 0 {
			t.Errorf("row %d has %d columns, want 0", y, n)
		}
	}
	if n := len(e.Columns(e.Row(2))); n != 2 {
		t.Errorf("row 2 has %d columns, want 2", n)
	}
	for y, row := range e.Rows() {
		if RowIndex(row) != y {
			t.Errorf("row %d tagged %d", y, RowIndex(row))
		}
	}
}

func TestBuildWidgetRestoresRowWidth(t *testing.T) {
	e := newEngine(t, Options{})
	if err := e.BuildWidget(desc("youtube", "1", 0, 0, 0, 3, 1)); err != nil {
		t.Fatalf("BuildWidget: %v", err)
	}

	cols := e.Columns(e.Row(0))
	if len(cols) != 3 {
		t.Fatalf("columns = %d, want 3 from x_length", len(cols))
	}
	if w := ColumnWidth(cols[2]); w != 33 {
		t.Errorf("width = %d, want 33", w)
	}
	if got := e.Summarize(); len(got) != 1 || got[0].XLength != 3 {
		t.Errorf("Summarize() = %+v, want one descriptor with x_length 3", got)
	}
}

func TestBuildWidgetUnknownType(t *testing.T) {
	e := newEngine(t, Options{})

	err := e.BuildWidget(desc("twitch", "1", 0, 0, 0, 1, 1))
	var unknown *widget.UnknownTypeError
	if !errors.As(err, &unknown) || unknown.Type != "twitch" {
		t.Fatalf("BuildWidget() = %v, want UnknownTypeError{twitch}", err)
	}
	if !errors.Is(err, errors.ErrCodeUnknownWidgetType) {
		t.Errorf("code = %q, want UNKNOWN_WIDGET_TYPE", errors.GetCode(err))
	}
	if got := e.Summarize(); len(got) != 0 {
		t.Errorf("Summarize() = %+v, want empty", got)
	}
	if len(e.Active()) != 0 {
		t.Error("unknown widget must not be recorded as active")
	}
}

func TestBuildWidgetMalformed(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"missing type", Descriptor{ID: "1", Data: widget.Data{}}},
		{"missing id", Descriptor{Type: "youtube", Data: widget.Data{}}},
		{"missing data", Descriptor{Type: "youtube", ID: "1"}},
		{"negative y", Descriptor{Type: "youtube", ID: "1", Data: widget.Data{}, Y: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{})
			err := e.BuildWidget(tt.d)
			if !errors.Is(err, errors.ErrCodeInvalidDescriptor) {
				t.Errorf("BuildWidget() = %v, want INVALID_DESCRIPTOR", err)
			}
			if len(e.Rows()) != 0 {
				t.Error("malformed descriptor must not touch the grid")
			}
		})
	}
}

func TestBuildWidgetRenderFailure(t *testing.T) {
	reg := widget.NewRegistry()
	reg.Register("broken", widget.Func(func(widget.Data, *html.Node) (*html.Node, error) {
		return nil, fmt.Errorf("boom")
	}))
	e, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	err = e.BuildWidget(Descriptor{Type: "broken", ID: "1", Data: widget.Data{}, XLength: 1, ZLength: 1})
	if !errors.Is(err, errors.ErrCodeRenderFailed) {
		t.Errorf("BuildWidget() = %v, want RENDER_FAILED", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []Descriptor
	}{
		{"single", []Descriptor{desc("youtube", "7", 0, 0, 0, 1, 1)}},
		{"two rows", []Descriptor{
			desc("youtube", "1", 0, 0, 0, 2, 1),
			desc("markdown", "2", 0, 1, 0, 2, 1),
			desc("twitter", "3", 1, 0, 0, 1, 1),
		}},
		{"stacked cell", []Descriptor{
			desc("markdown", "1", 0, 0, 0, 1, 3),
			desc("markdown", "2", 0, 0, 1, 1, 3),
			desc("youtube", "3", 0, 0, 2, 1, 3),
		}},
		{"gaps", []Descriptor{
			desc("youtube", "1", 0, 2, 0, 3, 1),
			desc("markdown", "2", 2, 0, 0, 1, 2),
			desc("twitter", "3", 2, 0, 1, 1, 2),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{})
			if warnings := e.Load(tt.in); len(warnings) != 0 {
				t.Fatalf("Load warnings: %v", warnings)
			}
			got := e.Summarize()
			if want := positions(tt.in); !reflect.DeepEqual(got, want) {
				t.Errorf("Summarize() =\n%+v\nwant\n%+v", got, want)
			}
			if err := Validate(got); err != nil {
				t.Errorf("summary fails validation: %v", err)
			}
		})
	}
}

func TestLoadSortsAndIsDeterministic(t *testing.T) {
	in := []Descriptor{
		desc("youtube", "3", 1, 0, 0, 1, 1),
		desc("markdown", "2", 0, 0, 1, 1, 2),
		desc("markdown", "1", 0, 0, 0, 1, 2),
	}

	var summaries [][]Descriptor
	for range 2 {
		e := newEngine(t, Options{})
		if warnings := e.Load(in); len(warnings) != 0 {
			t.Fatalf("Load warnings: %v", warnings)
		}
		summaries = append(summaries, e.Summarize())
	}

	if !reflect.DeepEqual(summaries[0], summaries[1]) {
		t.Errorf("summaries differ:\n%+v\n%+v", summaries[0], summaries[1])
	}
	if got := summaries[0][0].ID; got != "1" {
		t.Errorf("first widget = %s, want 1 (z order)", got)
	}
	if in[0].ID != "3" {
		t.Error("Load must not reorder the caller's slice")
	}
}

func TestLoadCollectsWarnings(t *testing.T) {
	e := newEngine(t, Options{})
	warnings := e.Load([]Descriptor{
		desc("youtube", "1", 0, 0, 0, 1, 1),
		desc("twitch", "2", 1, 0, 0, 1, 1),
		{Type: "youtube", ID: "3", Y: 2, XLength: 1, ZLength: 1},
	})
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	if got := e.Summarize(); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Summarize() = %+v, want only widget 1", got)
	}
}

func TestColumnWidths(t *testing.T) {
	e := newEngine(t, Options{})
	row := e.AddRow()

	for n := 1; n <= 7; n++ {
		e.AddColumn(row)
		for i, c := range e.Columns(row) {
			if w := ColumnWidth(c); w != 100/n {
				t.Fatalf("after %d adds, column %d width = %d, want %d", n, i, w, 100/n)
			}
		}
	}
	for n := 6; n >= 1; n-- {
		e.RemoveColumn(row)
		for i, c := range e.Columns(row) {
			if w := ColumnWidth(c); w != 100/n {
				t.Fatalf("after removal to %d, column %d width = %d, want %d", n, i, w, 100/n)
			}
		}
	}
}

func TestRemoveRowRecoversWidgets(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.Load([]Descriptor{
		desc("youtube", "1", 0, 0, 0, 1, 1),
		desc("youtube", "2", 1, 0, 0, 2, 2),
		desc("markdown", "3", 1, 0, 1, 2, 2),
		desc("twitter", "4", 1, 1, 0, 2, 1),
	})
	before := len(e.Available())

	e.RemoveRow()

	if got := len(e.Available()) - before; got != 3 {
		t.Errorf("palette gained %d widgets, want 3", got)
	}
	if got := len(e.Rows()); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
	if got := len(e.Active()); got != 1 {
		t.Errorf("active = %d, want 1", got)
	}
	if controls := dom.ChildrenWhere(e.Root(), isControls); len(controls) != 1 {
		t.Errorf("control rows = %d, want 1", len(controls))
	}
	for _, k := range []string{"2", "3", "4"} {
		c := e.Find(widget.Key{Type: typeOf(e, k), ID: widget.ID(k)})
		if c == nil || c.Parent != e.Palette() {
			t.Errorf("widget %s is not in the palette", k)
		}
	}
}

func typeOf(e *Engine, id string) string {
	for c := range containers(e.Node()) {
		if KeyOf(c).ID == widget.ID(id) {
			return KeyOf(c).Type
		}
	}
	return ""
}

func TestRemoveColumnRecoversWidgets(t *testing.T) {
	e := newEngine(t, Options{})
	e.Load([]Descriptor{
		desc("youtube", "1", 0, 0, 0, 2, 1),
		desc("markdown", "2", 0, 1, 0, 2, 2),
		desc("twitter", "3", 0, 1, 1, 2, 2),
	})

	e.RemoveColumn(e.Row(0))

	if got := len(e.Available()); got != 2 {
		t.Errorf("palette = %d widgets, want 2", got)
	}
	cols := e.Columns(e.Row(0))
	if len(cols) != 1 || ColumnWidth(cols[0]) != 100 {
		t.Errorf("remaining columns = %d, want one at 100%%", len(cols))
	}
}

func TestRemoveOnEmptyIsNoop(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.RemoveRow()
	if len(e.Rows()) != 0 {
		t.Fatal("RemoveRow on empty grid changed the grid")
	}

	row := e.AddRow()
	e.RemoveColumn(row)
	if len(e.Columns(row)) != 0 {
		t.Fatal("RemoveColumn on empty row changed the row")
	}
	e.RemoveColumn(nil)
}

func TestEditModeControls(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.AddRow()
	e.AddRow()

	kids := dom.Children(e.Root())
	if len(kids) != 4 {
		t.Fatalf("root children = %d, want 4 (control, row, control, row)", len(kids))
	}
	for i, k := range kids {
		if wantControls := i%2 == 0; isControls(k) != wantControls {
			t.Errorf("child %d: controls = %v, want %v", i, isControls(k), wantControls)
		}
	}
	if v, _ := dom.Attr(kids[2], AttrControlsFor); v != "1" {
		t.Errorf("second control row targets %q, want 1", v)
	}

	col := e.AddColumn(e.Row(0))
	if !e.Drake().IsContainer(col) {
		t.Error("edit mode columns must be drop targets")
	}
	if !e.Drake().IsContainer(e.Palette()) {
		t.Error("palette must be a drop target in edit mode")
	}
	if e.Palette().Parent != e.Node() {
		t.Error("palette must be rendered in edit mode")
	}
}

func TestViewModeHasNoControls(t *testing.T) {
	e := newEngine(t, Options{})
	col := e.AddColumn(e.AddRow())

	if len(dom.ChildrenWhere(e.Root(), isControls)) != 0 {
		t.Error("view mode must not render control rows")
	}
	if e.Drake().IsContainer(col) {
		t.Error("view mode columns must not be drop targets")
	}
	if e.Palette().Parent != nil {
		t.Error("view mode must not render the palette")
	}
}

func TestAddAvailableWidget(t *testing.T) {
	e := newEngine(t, Options{Template: true})

	added, err := e.AddAvailableWidget(widget.Template{Type: "youtube", ID: "1", Data: widget.Data{"url": "a"}})
	if err != nil || !added {
		t.Fatalf("first add = %v, %v; want true, nil", added, err)
	}
	added, err = e.AddAvailableWidget(widget.Template{Type: "youtube", ID: "1", Data: widget.Data{"url": "b"}})
	if err != nil || added {
		t.Fatalf("duplicate add = %v, %v; want false, nil", added, err)
	}
	if got := len(e.Available()); got != 1 {
		t.Errorf("palette = %d entries, want 1", got)
	}

	// A widget already on the grid is not offered again.
	if err := e.BuildWidget(desc("markdown", "2", 0, 0, 0, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if added, _ := e.AddAvailableWidget(widget.Template{Type: "markdown", ID: "2", Data: widget.Data{}}); added {
		t.Error("placed widget was added to the palette")
	}

	// Same id, different type is a different widget.
	if added, _ := e.AddAvailableWidget(widget.Template{Type: "markdown", ID: "1", Data: widget.Data{}}); !added {
		t.Error("markdown:1 should be distinct from youtube:1")
	}
}

func TestAddAvailableWidgetErrors(t *testing.T) {
	e := newEngine(t, Options{Template: true})

	_, err := e.AddAvailableWidget(widget.Template{Type: "youtube", ID: "1"})
	if !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("missing data = %v, want INVALID_TEMPLATE", err)
	}
	_, err = e.AddAvailableWidget(widget.Template{Type: "twitch", ID: "1", Data: widget.Data{}})
	if !errors.Is(err, errors.ErrCodeUnknownWidgetType) {
		t.Errorf("unknown type = %v, want UNKNOWN_WIDGET_TYPE", err)
	}
	if len(e.Available()) != 0 {
		t.Error("failed adds must not touch the palette")
	}
}

func TestDropUpdatesActive(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	col := e.AddColumn(e.AddRow())
	if _, err := e.AddAvailableWidget(widget.Template{Type: "youtube", ID: "9", Data: widget.Data{}}); err != nil {
		t.Fatal(err)
	}
	el := e.Available()[0]

	if err := e.Drake().Move(el, col, nil); err != nil {
		t.Fatalf("Move to column: %v", err)
	}
	if active := e.Active(); len(active) != 1 || active[0] != el {
		t.Errorf("active = %v, want the dropped widget", active)
	}
	want := []Descriptor{{Type: "youtube", ID: "9", XLength: 1, ZLength: 1}}
	if got := e.Summarize(); !reflect.DeepEqual(got, want) {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}

	// Dropping into a second column keeps one active entry.
	col2 := e.AddColumn(e.Row(0))
	if err := e.Drake().Move(el, col2, nil); err != nil {
		t.Fatal(err)
	}
	if len(e.Active()) != 1 {
		t.Errorf("active = %d entries, want 1", len(e.Active()))
	}

	if err := e.Drake().Move(el, e.Palette(), nil); err != nil {
		t.Fatalf("Move to palette: %v", err)
	}
	if len(e.Active()) != 0 {
		t.Error("widget returned to the palette is still active")
	}
	if len(e.Summarize()) != 0 {
		t.Error("widget in the palette must not be summarized")
	}
}

func TestReturnToPalette(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.Load([]Descriptor{desc("youtube", "1", 0, 0, 0, 1, 1)})

	k := widget.Key{Type: "youtube", ID: "1"}
	if !e.ReturnToPalette(k) {
		t.Fatal("ReturnToPalette = false, want true")
	}
	if e.ReturnToPalette(k) {
		t.Error("second ReturnToPalette should report false")
	}
	if len(e.Available()) != 1 || len(e.Summarize()) != 0 {
		t.Error("widget was not moved to the palette")
	}
}

func TestMarkDeleted(t *testing.T) {
	e := newEngine(t, Options{})
	e.Load([]Descriptor{
		desc("youtube", "1", 0, 0, 0, 1, 2),
		desc("markdown", "2", 0, 0, 1, 1, 2),
	})

	if !e.MarkDeleted(widget.Key{Type: "youtube", ID: "1"}) {
		t.Fatal("MarkDeleted = false, want true")
	}
	if e.MarkDeleted(widget.Key{Type: "youtube", ID: "404"}) {
		t.Error("MarkDeleted on a missing widget should report false")
	}

	want := []Descriptor{{Type: "markdown", ID: "2", XLength: 1, ZLength: 1}}
	if got := e.Summarize(); !reflect.DeepEqual(got, want) {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
	if !strings.Contains(dom.String(e.Root()), `hidden=""`) {
		t.Error("deleted widget container is not hidden")
	}
}

func TestFindQuotedIdentity(t *testing.T) {
	e := newEngine(t, Options{})
	id := `a"b'c`
	if err := e.BuildWidget(desc("youtube", id, 0, 0, 0, 1, 1)); err != nil {
		t.Fatalf("BuildWidget: %v", err)
	}
	k := widget.Key{Type: "youtube", ID: widget.ID(id)}
	c := e.Find(k)
	if c == nil || KeyOf(c) != k {
		t.Fatalf("Find(%s) = %v, want the container", k, c)
	}
	if e.Find(widget.Key{Type: "markdown", ID: widget.ID(id)}) != nil {
		t.Error("Find matched a widget of another type")
	}

	e.MarkDeleted(k)
	if e.Find(k) != nil {
		t.Error("Find should not return a deleted container")
	}
}

func TestReofferDeletedWidget(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.Load([]Descriptor{desc("youtube", "1", 0, 0, 0, 1, 1)})
	k := widget.Key{Type: "youtube", ID: "1"}
	e.MarkDeleted(k)

	added, err := e.AddAvailableWidget(widget.Template{Type: "youtube", ID: "1", Data: widget.Data{"url": "https://y"}})
	if err != nil || !added {
		t.Fatalf("AddAvailableWidget = %v, %v, want true, nil", added, err)
	}
	if av := e.Available(); len(av) != 1 || dom.InnerText(av[0]) != "https://y" {
		t.Errorf("palette should hold the re-created widget, got %d entries", len(av))
	}
	if got := e.Summarize(); len(got) != 0 {
		t.Errorf("Summarize() = %+v, want empty", got)
	}
	if len(e.Active()) != 0 {
		t.Errorf("stale container still active: %d", len(e.Active()))
	}
	if strings.Contains(dom.String(e.Node()), AttrDeleted) {
		t.Error("deleted container was not removed")
	}
}

func TestUpdateWidget(t *testing.T) {
	e := newEngine(t, Options{Template: true})
	e.Load([]Descriptor{
		desc("youtube", "1", 0, 0, 0, 1, 2),
		desc("youtube", "2", 0, 0, 1, 1, 2),
	})
	before := e.Summarize()

	changed, err := e.UpdateWidget(widget.Template{Type: "youtube", ID: "1", Data: widget.Data{"url": "https://new"}})
	if err != nil || !changed {
		t.Fatalf("UpdateWidget = %v, %v, want true, nil", changed, err)
	}
	ws := e.Widgets(e.Column(0, 0))
	if len(ws) != 2 || KeyOf(ws[0]).ID != "1" || dom.InnerText(ws[0]) != "https://new" {
		t.Fatalf("updated widget should keep its place with the new payload, got %q", dom.String(e.Column(0, 0)))
	}
	if got := e.Summarize(); !reflect.DeepEqual(got, before) {
		t.Errorf("Summarize() = %+v, want %+v", got, before)
	}
	if act := e.Active(); len(act) != 2 || act[0] != ws[0] {
		t.Error("active list should point at the re-rendered container")
	}

	changed, err = e.UpdateWidget(widget.Template{Type: "twitter", ID: "9", Data: widget.Data{"url": "https://t"}})
	if err != nil || !changed {
		t.Fatalf("UpdateWidget on a new widget = %v, %v, want true, nil", changed, err)
	}
	if len(e.Available()) != 1 {
		t.Errorf("new widget should be offered in the palette, got %d entries", len(e.Available()))
	}

	if _, err := e.UpdateWidget(widget.Template{Type: "youtube", Data: widget.Data{}}); err == nil {
		t.Error("UpdateWidget without id should fail")
	}
}

func TestSave(t *testing.T) {
	var saved []Descriptor
	e := newEngine(t, Options{
		Template: true,
		SaveCallback: func(_ context.Context, ds []Descriptor) error {
			saved = ds
			return nil
		},
	})
	e.Load([]Descriptor{desc("youtube", "1", 0, 0, 0, 1, 1)})

	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !reflect.DeepEqual(saved, e.Summarize()) {
		t.Errorf("saved %+v, want the summary", saved)
	}

	noCallback := newEngine(t, Options{})
	if err := noCallback.Save(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Save without callback = %v, want UNSUPPORTED", err)
	}
}

func TestRender(t *testing.T) {
	e := newEngine(t, Options{Template: true, Background: "https://cdn.example/bg.png"})
	e.Load([]Descriptor{desc("youtube", "7", 0, 0, 0, 1, 1)})

	var buf bytes.Buffer
	if err := e.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`class="layout-engine"`,
		`data-mode="edit"`,
		`background-image: url(&#34;https://cdn.example/bg.png&#34;)`,
		`data-widget-type="youtube"`,
		`data-widget-id="7"`,
		`style="width: 100%"`,
		`class="widget-palette"`,
		`data-action="add-column"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("New(nil registry) should fail")
	}
	if _, err := New(widget.NewRegistry(), Options{Background: "javascript:alert(1)"}); err == nil {
		t.Error("New with unsafe background should fail")
	}
}
