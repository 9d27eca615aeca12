package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestElementAttributes(t *testing.T) {
	n := Element("div", "class", "layout-row", "data-row", "0", "dangling")

	if got, ok := Attr(n, "data-row"); !ok || got != "0" {
		t.Errorf("Attr(data-row) = %q, %v, want \"0\", true", got, ok)
	}
	if _, ok := Attr(n, "dangling"); ok {
		t.Error("dangling key without value should be ignored")
	}

	SetAttr(n, "data-row", "3")
	if got, _ := Attr(n, "data-row"); got != "3" {
		t.Errorf("after SetAttr, data-row = %q, want 3", got)
	}
	if len(n.Attr) != 2 {
		t.Errorf("SetAttr on existing key should replace, got %d attrs", len(n.Attr))
	}

	RemoveAttr(n, "data-row")
	if _, ok := Attr(n, "data-row"); ok {
		t.Error("RemoveAttr did not remove data-row")
	}
}

func TestHasClass(t *testing.T) {
	tests := []struct {
		class string
		check string
		want  bool
	}{
		{"widget", "widget", true},
		{"widget hidden", "hidden", true},
		{"widget-palette", "widget", false},
		{"", "widget", false},
	}

	for _, tt := range tests {
		t.Run(tt.class+"/"+tt.check, func(t *testing.T) {
			n := Element("div", "class", tt.class)
			if got := HasClass(n, tt.check); got != tt.want {
				t.Errorf("HasClass(%q, %q) = %v, want %v", tt.class, tt.check, got, tt.want)
			}
		})
	}
}

func TestChildrenSkipsText(t *testing.T) {
	parent := Element("div")
	a := Element("span")
	b := Element("p")
	parent.AppendChild(Text("hello"))
	parent.AppendChild(a)
	parent.AppendChild(Text(" "))
	parent.AppendChild(b)

	got := Children(parent)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("Children = %v, want [span p]", got)
	}

	ps := ChildrenWhere(parent, func(n *html.Node) bool { return n.Data == "p" })
	if len(ps) != 1 || ps[0] != b {
		t.Errorf("ChildrenWhere = %v, want [p]", ps)
	}
}

func TestDetachAndContains(t *testing.T) {
	root := Element("div")
	mid := Element("div")
	leaf := Element("span")
	root.AppendChild(mid)
	mid.AppendChild(leaf)

	if !Contains(root, leaf) {
		t.Error("root should contain leaf")
	}

	Detach(mid)
	if Contains(root, leaf) {
		t.Error("root should not contain leaf after detaching mid")
	}
	if mid.Parent != nil {
		t.Error("mid still has a parent")
	}

	// Detaching again is a no-op.
	Detach(mid)
	Detach(nil)
}

func TestStringAndFind(t *testing.T) {
	root := Element("div", "class", "layout")
	row := Element("div", "class", "layout-row", "data-row", "0")
	w := Element("div", "class", "widget", "data-widget-type", "youtube", "data-widget-id", "7")
	root.AppendChild(row)
	row.AppendChild(w)

	out := String(root)
	if !strings.Contains(out, `data-widget-id="7"`) {
		t.Errorf("String() = %q, missing widget id", out)
	}

	found, err := FindOne(root, `//div[@data-widget-type="youtube"]`)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if found != w {
		t.Errorf("FindOne = %v, want the widget container", found)
	}

	one, err := FindOne(root, `//div[@data-row="1"]`)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if one != nil {
		t.Errorf("FindOne on missing row = %v, want nil", one)
	}

	if _, err := FindOne(root, `//div[`); err == nil {
		t.Error("FindOne with invalid expression should fail")
	}
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment("<p>hi <em>there</em></p>")
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Data != "p" {
		t.Fatalf("ParseFragment = %v, want one <p>", nodes)
	}
	if got := InnerText(nodes[0]); got != "hi there" {
		t.Errorf("InnerText = %q, want %q", got, "hi there")
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"youtube", `"youtube"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat("it's ", '"', "x", '"')`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Literal(tt.in); got != tt.want {
				t.Errorf("Literal(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	root := Element("div")
	w := Element("div", "data-widget-id", `it's "x"`)
	root.AppendChild(w)
	got, err := FindOne(root, `//div[@data-widget-id=`+Literal(`it's "x"`)+`]`)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got != w {
		t.Errorf("FindOne with quoted literal = %v, want the widget", got)
	}
}
