// Package storetest is a conformance suite for store.Store implementations.
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store { return store.NewMemory() })
//	}
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises every Store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"LoadEmpty", testLoadEmpty},
		{"PutWidgetAssignsID", testPutWidgetAssignsID},
		{"PutWidgetReplaces", testPutWidgetReplaces},
		{"WidgetsSorted", testWidgetsSorted},
		{"NestedPayload", testNestedPayload},
		{"SaveAndLoad", testSaveAndLoad},
		{"SaveConflict", testSaveConflict},
		{"SaveInvalid", testSaveInvalid},
		{"DeleteWidget", testDeleteWidget},
		{"Isolation", testIsolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

const community = "smash"

func put(t *testing.T, s store.Store, typ, id string, data widget.Data) widget.Template {
	t.Helper()
	got, err := s.PutWidget(context.Background(), community, widget.Template{Type: typ, ID: widget.ID(id), Data: data})
	if err != nil {
		t.Fatalf("PutWidget(%s:%s): %v", typ, id, err)
	}
	return got
}

func cell(typ, id string, y, x, z, xl, zl int) layout.Descriptor {
	return layout.Descriptor{Type: typ, ID: widget.ID(id), Y: y, X: x, Z: z, XLength: xl, ZLength: zl}
}

func testLoadEmpty(t *testing.T, s store.Store) {
	l, err := s.Load(context.Background(), community)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.CommunityID != community || l.Version != 0 || len(l.Widgets) != 0 || len(l.Available) != 0 {
		t.Errorf("Load() = %+v, want empty layout at version 0", l)
	}
}

func testPutWidgetAssignsID(t *testing.T, s store.Store) {
	got := put(t, s, "markdown", "", widget.Data{"text": "hi"})
	if _, err := uuid.Parse(string(got.ID)); err != nil {
		t.Errorf("assigned id %q is not a UUID", got.ID)
	}

	if _, err := s.PutWidget(context.Background(), community, widget.Template{Type: "Bad Type", ID: "1", Data: widget.Data{}}); !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("bad type: err = %v, want INVALID_TEMPLATE", err)
	}
}

func testPutWidgetReplaces(t *testing.T, s store.Store) {
	put(t, s, "markdown", "rules", widget.Data{"text": "v1"})
	put(t, s, "markdown", "rules", widget.Data{"text": "v2"})

	ts, err := s.Widgets(context.Background(), community)
	if err != nil {
		t.Fatalf("Widgets: %v", err)
	}
	if len(ts) != 1 || ts[0].Data.String("text") != "v2" {
		t.Errorf("Widgets() = %+v, want one record with v2", ts)
	}
}

func testWidgetsSorted(t *testing.T, s store.Store) {
	put(t, s, "youtube", "b", widget.Data{"url": "https://youtu.be/dQw4w9WgXcQ"})
	put(t, s, "markdown", "z", widget.Data{"text": "z"})
	put(t, s, "youtube", "a", widget.Data{"url": "https://youtu.be/dQw4w9WgXcQ"})

	ts, err := s.Widgets(context.Background(), community)
	if err != nil {
		t.Fatalf("Widgets: %v", err)
	}
	var keys []string
	for _, w := range ts {
		keys = append(keys, w.Key().String())
	}
	want := []string{"markdown:z", "youtube:a", "youtube:b"}
	if len(keys) != len(want) {
		t.Fatalf("Widgets() keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Widgets() keys = %v, want %v", keys, want)
			break
		}
	}
}

func testNestedPayload(t *testing.T, s store.Store) {
	put(t, s, "tournaments", "t", widget.Data{
		"title": "Upcoming",
		"limit": 2,
		"tournaments": []any{
			map[string]any{"name": "Genesis"},
			map[string]any{"name": "Evo", "url": "https://evo.gg"},
		},
	})

	ts, err := s.Widgets(context.Background(), community)
	if err != nil || len(ts) != 1 {
		t.Fatalf("Widgets() = %v, %v", ts, err)
	}
	if n, ok := ts[0].Data.Int("limit"); !ok || n != 2 {
		t.Errorf("limit = %v, %v; want 2", n, ok)
	}
	list := ts[0].Data.List("tournaments")
	if len(list) != 2 || list[1].String("name") != "Evo" {
		t.Errorf("tournaments = %+v", list)
	}
}

func testSaveAndLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	put(t, s, "youtube", "1", widget.Data{"url": "https://youtu.be/dQw4w9WgXcQ"})
	put(t, s, "markdown", "2", widget.Data{"text": "# Rules"})
	put(t, s, "markdown", "spare", widget.Data{"text": "unused"})

	in := &layout.Layout{
		CommunityID: community,
		Widgets: []layout.Descriptor{
			cell("markdown", "2", 0, 1, 0, 2, 1),
			cell("youtube", "1", 0, 0, 0, 2, 1),
		},
	}
	saved, err := s.Save(ctx, in)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version != 1 || saved.UpdatedAt.IsZero() {
		t.Errorf("Save() = %+v, want version 1 with timestamp", saved)
	}

	got, err := s.Load(ctx, community)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != 1 || len(got.Widgets) != 2 {
		t.Fatalf("Load() = %+v", got)
	}
	if got.Widgets[0].ID != "1" || got.Widgets[0].Data.String("url") == "" {
		t.Errorf("first descriptor = %+v, want hydrated youtube:1", got.Widgets[0])
	}
	if got.Widgets[1].Data.String("text") != "# Rules" {
		t.Errorf("second descriptor = %+v, want hydrated markdown:2", got.Widgets[1])
	}
	if len(got.Available) != 1 || got.Available[0].ID != "spare" {
		t.Errorf("Available = %+v, want markdown:spare", got.Available)
	}
}

func testSaveConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := &layout.Layout{CommunityID: community}
	if _, err := s.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	_, err := s.Save(ctx, &layout.Layout{CommunityID: community})
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Fatalf("stale create: err = %v, want CONFLICT", err)
	}
	var conflict *errors.ConflictError
	if !errors.As(err, &conflict) || conflict.Actual != 1 || conflict.Expected != 0 {
		t.Errorf("conflict = %+v, want expected 0 actual 1", conflict)
	}

	if saved, err := s.Save(ctx, &layout.Layout{CommunityID: community, Version: 1}); err != nil || saved.Version != 2 {
		t.Fatalf("Save at version 1 = %+v, %v", saved, err)
	}
	if _, err := s.Save(ctx, &layout.Layout{CommunityID: community, Version: 1}); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("stale update: err = %v, want CONFLICT", err)
	}
	if _, err := s.Save(ctx, &layout.Layout{CommunityID: "other", Version: 3}); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("update of missing layout: err = %v, want CONFLICT", err)
	}
}

func testSaveInvalid(t *testing.T, s store.Store) {
	ctx := context.Background()
	bad := &layout.Layout{
		CommunityID: community,
		Widgets:     []layout.Descriptor{cell("youtube", "1", 0, 3, 0, 2, 1)},
	}
	if _, err := s.Save(ctx, bad); !errors.Is(err, errors.ErrCodeInvalidLayout) {
		t.Errorf("invalid layout: err = %v, want INVALID_LAYOUT", err)
	}
	if _, err := s.Save(ctx, &layout.Layout{CommunityID: "../etc"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad community id: err = %v, want INVALID_INPUT", err)
	}
	for _, bg := range []string{"javascript:alert(1)", "ftp://files/bg.png", `https://x/"bg".png`} {
		if _, err := s.Save(ctx, &layout.Layout{CommunityID: community, Background: bg}); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("background %q: err = %v, want INVALID_INPUT", bg, err)
		}
	}
	if l, err := s.Load(ctx, community); err != nil || l.Version != 0 {
		t.Errorf("rejected saves must not be stored: %+v, %v", l, err)
	}

	bg := "https://cdn.example.com/bg.png"
	if _, err := s.Save(ctx, &layout.Layout{CommunityID: community, Background: bg}); err != nil {
		t.Fatalf("http background: %v", err)
	}
	if l, err := s.Load(ctx, community); err != nil || l.Background != bg {
		t.Errorf("Load() background = %+v, %v, want %q", l, err, bg)
	}
}

func testDeleteWidget(t *testing.T, s store.Store) {
	ctx := context.Background()
	put(t, s, "youtube", "1", widget.Data{"url": "https://youtu.be/dQw4w9WgXcQ"})
	if _, err := s.Save(ctx, &layout.Layout{
		CommunityID: community,
		Widgets:     []layout.Descriptor{cell("youtube", "1", 0, 0, 0, 1, 1)},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	k := widget.Key{Type: "youtube", ID: "1"}
	if err := s.DeleteWidget(ctx, community, k); err != nil {
		t.Fatalf("DeleteWidget: %v", err)
	}
	if err := s.DeleteWidget(ctx, community, k); !errors.Is(err, errors.ErrCodeWidgetNotFound) {
		t.Errorf("second delete: err = %v, want WIDGET_NOT_FOUND", err)
	}

	l, err := s.Load(ctx, community)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l.Widgets) != 1 || l.Widgets[0].Data != nil {
		t.Errorf("descriptor of a deleted widget should load without data: %+v", l.Widgets)
	}
}

func testIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	put(t, s, "markdown", "rules", widget.Data{"text": "smash"})
	if _, err := s.PutWidget(ctx, "melee", widget.Template{Type: "markdown", ID: "rules", Data: widget.Data{"text": "melee"}}); err != nil {
		t.Fatalf("PutWidget: %v", err)
	}

	ts, err := s.Widgets(ctx, "melee")
	if err != nil || len(ts) != 1 || ts[0].Data.String("text") != "melee" {
		t.Errorf("Widgets(melee) = %+v, %v", ts, err)
	}
	if err := s.DeleteWidget(ctx, "melee", widget.Key{Type: "markdown", ID: "rules"}); err != nil {
		t.Fatalf("DeleteWidget: %v", err)
	}
	if ts, _ := s.Widgets(ctx, community); len(ts) != 1 {
		t.Errorf("deleting in one community must not touch another: %+v", ts)
	}
}
