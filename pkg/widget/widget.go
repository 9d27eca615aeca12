// Package widget defines the widget contract used by the layout engine and
// the registry that maps widget type names to renderers.
//
// A widget renders its data payload into an HTML element. The engine never
// inspects the payload; it mounts a container, asks the widget registered
// for the descriptor's type to render, and appends the result.
//
// # Built-in widgets
//
// [Builtin] returns a registry with the widget types the community pages ship
// with:
//
//	youtube       {"url": "https://www.youtube.com/watch?v=..."}
//	twitter       {"handle": "@fourbar", "color": "#1da1f2"}
//	markdown      {"text": "# Rules", "background": "#222", "color": "white"}
//	tournaments   {"title": "Upcoming", "limit": 5, "tournaments": [...]}
//
// # Custom widgets
//
// Any type implementing [Widget] can be registered. Plain functions can be
// adapted with [Func]:
//
//	reg := widget.NewRegistry()
//	reg.Register("banner", widget.Func(func(d widget.Data, c *html.Node) (*html.Node, error) {
//	    return dom.Element("img", "src", d.String("src")), nil
//	}))
package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/errors"
)

// Widget renders a payload into an element that the engine appends to the
// widget container. The container is passed for widgets that style it.
type Widget interface {
	Render(data Data, container *html.Node) (*html.Node, error)
}

// Validator is implemented by widgets that can check a payload before it is
// stored or rendered.
type Validator interface {
	Validate(data Data) error
}

// Func adapts a plain render function to the [Widget] interface.
type Func func(data Data, container *html.Node) (*html.Node, error)

// Render calls f.
func (f Func) Render(data Data, container *html.Node) (*html.Node, error) {
	return f(data, container)
}

// ID is an opaque widget identifier.
//
// IDs decode from JSON numbers or strings. Integer-like IDs encode back as
// JSON numbers so that {"id": 7} survives a round trip unchanged.
type ID string

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if isInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("widget id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func isInteger(s string) bool {
	if s == "" || len(s) > 18 {
		return false
	}
	if s != "0" && s[0] == '0' {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// Template is a widget that can be placed: its type, identity and payload.
// Templates are the palette's unit and the stored widget record.
type Template struct {
	Type string `json:"type" bson:"type"`
	ID   ID     `json:"id" bson:"id"`
	Data Data   `json:"data" bson:"data"`
}

// Key returns the (type, id) identity of the template.
func (t Template) Key() Key {
	return Key{Type: t.Type, ID: t.ID}
}

// Validate checks that the template carries a type, an id and a payload.
func (t Template) Validate() error {
	if err := errors.ValidateWidgetType(t.Type); err != nil {
		return err
	}
	if t.ID == "" {
		return errors.New(errors.ErrCodeInvalidTemplate, "%s widget has no id", t.Type)
	}
	if t.Data == nil {
		return errors.New(errors.ErrCodeInvalidTemplate, "%s widget %s has no data", t.Type, t.ID)
	}
	return nil
}

// Key identifies one underlying widget.
type Key struct {
	Type string
	ID   ID
}

// String returns "type:id".
func (k Key) String() string {
	return k.Type + ":" + string(k.ID)
}

// UnknownTypeError reports a widget type with no registered renderer.
type UnknownTypeError struct {
	Type string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown widget type %q", e.Type)
}

// Code returns the error code for this error type.
func (e *UnknownTypeError) Code() errors.Code {
	return errors.ErrCodeUnknownWidgetType
}
