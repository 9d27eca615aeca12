package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fourbar/fourbar/pkg/widget"
)

// =============================================================================
// Layout - Persisted Document
// =============================================================================

// Layout is the persisted form of a community page.
//
// Widgets holds the captured descriptors. Version increases by one on every
// successful save and is the token for optimistic concurrency: a save based
// on a stale version is rejected. Available is only used by layout files
// edited offline and lists the widgets offered in the palette.
type Layout struct {
	CommunityID string            `json:"community_id" bson:"_id"`
	Background  string            `json:"background,omitempty" bson:"background,omitempty"`
	Version     int64             `json:"version" bson:"version"`
	UpdatedAt   time.Time         `json:"updated_at,omitzero" bson:"updated_at"`
	Widgets     []Descriptor      `json:"widgets" bson:"widgets"`
	Available   []widget.Template `json:"available,omitempty" bson:"-"`
}

// Marshal serializes a Layout to pretty-printed JSON bytes.
func Marshal(l Layout) ([]byte, error) {
	if l.Widgets == nil {
		l.Widgets = []Descriptor{}
	}
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal deserializes a Layout. A bare JSON array is accepted as the
// widget list of an anonymous layout.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &l.Widgets); err != nil {
			return Layout{}, fmt.Errorf("unmarshal descriptors: %w", err)
		}
		return l, nil
	}
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Version < 0 {
		return Layout{}, fmt.Errorf("layout version must not be negative")
	}
	return l, nil
}

// WriteFile writes a Layout to a JSON file.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Hydrate fills the Data of each descriptor from the widget records with the
// same (type, id). Descriptors without a record keep nil Data, which makes
// placement skip them. The input slice is not modified.
func Hydrate(ds []Descriptor, records []widget.Template) []Descriptor {
	byKey := make(map[widget.Key]widget.Data, len(records))
	for _, r := range records {
		byKey[r.Key()] = r.Data
	}
	out := make([]Descriptor, len(ds))
	for i, d := range ds {
		if data, ok := byKey[d.Key()]; ok {
			d.Data = data
		}
		out[i] = d
	}
	return out
}

// Unplaced returns the records that no descriptor references, in input order.
func Unplaced(ds []Descriptor, records []widget.Template) []widget.Template {
	placed := make(map[widget.Key]bool, len(ds))
	for _, d := range ds {
		placed[d.Key()] = true
	}
	var out []widget.Template
	for _, r := range records {
		if !placed[r.Key()] {
			out = append(out, r)
		}
	}
	return out
}

// StripData returns a copy of ds without payloads. Payloads live in widget
// records, so stored layouts keep positions only.
func StripData(ds []Descriptor) []Descriptor {
	out := make([]Descriptor, len(ds))
	for i, d := range ds {
		d.Data = nil
		out[i] = d
	}
	return out
}
