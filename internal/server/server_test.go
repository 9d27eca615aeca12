package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/widget"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(widget.Builtin(), nil, nil, logger)
	runner.Store = st
	return New(Options{Runner: runner, Logger: logger}), st
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) {
	t.Helper()
	wantStatus(t, rec, status)
	if got := decode[errorResponse](t, rec); got.Error != code {
		t.Errorf("error = %q, want %q", got.Error, code)
	}
}

func seed(t *testing.T, st *store.Memory, community string, ts ...widget.Template) {
	t.Helper()
	for _, tmpl := range ts {
		if _, err := st.PutWidget(context.Background(), community, tmpl); err != nil {
			t.Fatalf("PutWidget: %v", err)
		}
	}
}

var rules = widget.Template{Type: widget.TypeMarkdown, ID: "rules", Data: widget.Data{"text": "# Rules"}}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}
}

func TestWidgetRecords(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/communities/smash/widgets",
		`{"type":"markdown","id":"rules","data":{"text":"hi"}}`)
	wantStatus(t, rec, http.StatusCreated)

	rec = do(t, s, http.MethodPost, "/api/communities/smash/widgets",
		`{"type":"markdown","data":{"text":"generated id"}}`)
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[widget.Template](t, rec); got.ID == "" {
		t.Error("created record should get an id")
	}

	rec = do(t, s, http.MethodGet, "/api/communities/smash/widgets", "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]widget.Template](t, rec); len(got) != 2 {
		t.Errorf("listed %d records, want 2", len(got))
	}

	t.Run("invalid payload", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/communities/smash/widgets", `{"type":"markdown","id":"x","data":{}}`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidTemplate)
	})
	t.Run("unknown type", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/communities/smash/widgets", `{"type":"poll","id":"x","data":{}}`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeUnknownWidgetType)
	})
	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/communities/smash/widgets", `{`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})
	t.Run("delete", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/api/communities/smash/widgets/markdown/rules", "")
		wantStatus(t, rec, http.StatusNoContent)
		rec = do(t, s, http.MethodDelete, "/api/communities/smash/widgets/markdown/rules", "")
		wantError(t, rec, http.StatusNotFound, errors.ErrCodeWidgetNotFound)
	})
}

func TestLayoutSave(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st, "smash", rules)

	body := `{"version":0,"widgets":[{"type":"markdown","id":"rules","y":0,"x":0,"z":0,"x_length":1,"z_length":1}]}`
	rec := do(t, s, http.MethodPut, "/api/communities/smash/layout", body)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[layout.Layout](t, rec); got.Version != 1 || got.CommunityID != "smash" {
		t.Errorf("saved = %+v, want version 1 for smash", got)
	}

	rec = do(t, s, http.MethodPut, "/api/communities/smash/layout", body)
	wantError(t, rec, http.StatusConflict, errors.ErrCodeConflict)

	rec = do(t, s, http.MethodGet, "/api/communities/smash/layout", "")
	wantStatus(t, rec, http.StatusOK)
	got := decode[layout.Layout](t, rec)
	if len(got.Widgets) != 1 || got.Widgets[0].Data.String("text") != "# Rules" {
		t.Errorf("loaded = %+v, want hydrated rules widget", got)
	}

	t.Run("community mismatch", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/communities/smash/layout", `{"community_id":"melee","version":1,"widgets":[]}`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})
	t.Run("invalid layout", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/communities/smash/layout",
			`{"version":1,"widgets":[{"type":"markdown","id":"rules","y":0,"x":3,"z":0,"x_length":1,"z_length":1}]}`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidLayout)
	})
	t.Run("unsafe background", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/communities/smash/layout",
			`{"version":1,"background":"javascript:alert(1)","widgets":[]}`)
		wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})
}

func TestViewAndPreview(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st, "smash", rules)
	_, err := st.Save(context.Background(), &layout.Layout{
		CommunityID: "smash",
		Widgets:     []layout.Descriptor{{Type: widget.TypeMarkdown, ID: "rules", XLength: 1, ZLength: 1}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := do(t, s, http.MethodGet, "/communities/smash", "")
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	page := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "layout-engine", `data-widget-id="rules"`, "Rules"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("view should carry an ETag")
	}

	rec = do(t, s, http.MethodGet, "/communities/Not%20Valid!", "")
	wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestEditorFlow(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st, "smash", rules)

	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	sid := decode[openResponse](t, rec).Session.ID
	base := "/api/editor/" + sid

	rec = do(t, s, http.MethodGet, base+"/summary", "")
	wantStatus(t, rec, http.StatusOK)
	sum := decode[summaryResponse](t, rec)
	if len(sum.Available) != 1 || sum.Available[0].ID != "rules" {
		t.Fatalf("available = %+v, want the unplaced rules record", sum.Available)
	}

	rec = do(t, s, http.MethodPost, base+"/rows", "")
	wantStatus(t, rec, http.StatusOK)
	rec = do(t, s, http.MethodPost, base+"/rows/0/columns", "")
	wantStatus(t, rec, http.StatusOK)
	rec = do(t, s, http.MethodPost, base+"/rows/0/columns", "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[gridResponse](t, rec); got.Rows != 1 || got.Columns[0] != 2 {
		t.Errorf("grid = %+v, want 1 row of 2 columns", got)
	}

	rec = do(t, s, http.MethodPost, base+"/rows/5/columns", "")
	wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = do(t, s, http.MethodPost, base+"/drop", `{"type":"markdown","id":"rules","y":0,"x":1}`)
	wantStatus(t, rec, http.StatusOK)

	rec = do(t, s, http.MethodGet, base, "")
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `data-mode="edit"`) {
		t.Error("editor HTML should be in edit mode")
	}

	rec = do(t, s, http.MethodPost, base+"/save", "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec); got["base_version"] != float64(1) {
		t.Errorf("session after save = %v, want base_version 1", got)
	}

	l, err := st.Load(context.Background(), "smash")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Widgets) != 1 {
		t.Fatalf("stored widgets = %+v", l.Widgets)
	}
	if d := l.Widgets[0]; d.X != 1 || d.XLength != 2 || d.Data.String("text") != "# Rules" {
		t.Errorf("stored descriptor = %+v, want x=1 of 2", d)
	}

	// A second save builds on the rebased version.
	rec = do(t, s, http.MethodPost, base+"/save", "")
	wantStatus(t, rec, http.StatusOK)

	rec = do(t, s, http.MethodPost, base+"/drop", `{"type":"markdown","id":"rules","palette":true}`)
	wantStatus(t, rec, http.StatusOK)
	rec = do(t, s, http.MethodGet, base+"/summary", "")
	if got := decode[summaryResponse](t, rec); len(got.Widgets) != 0 || len(got.Available) != 1 {
		t.Errorf("after return to palette: %+v", got)
	}

	rec = do(t, s, http.MethodDelete, base, "")
	wantStatus(t, rec, http.StatusNoContent)
	rec = do(t, s, http.MethodGet, base+"/summary", "")
	wantError(t, rec, http.StatusNotFound, errors.ErrCodeSessionNotFound)
}

func TestEditorPalette(t *testing.T) {
	s, st := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	base := "/api/editor/" + decode[openResponse](t, rec).Session.ID

	rec = do(t, s, http.MethodPost, base+"/palette", `{"type":"markdown","id":"rules"}`)
	wantError(t, rec, http.StatusNotFound, errors.ErrCodeWidgetNotFound)

	seed(t, st, "smash", rules)
	rec = do(t, s, http.MethodPost, base+"/palette", `{"type":"markdown","id":"rules"}`)
	wantStatus(t, rec, http.StatusCreated)
	rec = do(t, s, http.MethodPost, base+"/palette", `{"type":"markdown","id":"rules"}`)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]bool](t, rec); got["added"] {
		t.Error("second add should be a no-op")
	}

	rec = do(t, s, http.MethodPost, base+"/palette", `{"type":"youtube","id":"v","data":{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}}`)
	wantStatus(t, rec, http.StatusCreated)

	rec = do(t, s, http.MethodPost, base+"/drop", `{"type":"youtube","id":"v","y":0,"x":0}`)
	wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	rec = do(t, s, http.MethodPost, base+"/drop", `{"type":"youtube","id":"nope","palette":true}`)
	wantError(t, rec, http.StatusNotFound, errors.ErrCodeWidgetNotFound)
}

func TestEditorConflict(t *testing.T) {
	s, st := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	base := "/api/editor/" + decode[openResponse](t, rec).Session.ID

	if _, err := st.Save(context.Background(), &layout.Layout{CommunityID: "smash"}); err != nil {
		t.Fatal(err)
	}

	rec = do(t, s, http.MethodPost, base+"/save", "")
	wantError(t, rec, http.StatusConflict, errors.ErrCodeConflict)
}

func TestEditorSeesDeletedWidgets(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st, "smash", rules)
	_, err := st.Save(context.Background(), &layout.Layout{
		CommunityID: "smash",
		Widgets:     []layout.Descriptor{{Type: widget.TypeMarkdown, ID: "rules", XLength: 1, ZLength: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	base := "/api/editor/" + decode[openResponse](t, rec).Session.ID

	rec = do(t, s, http.MethodGet, base+"/summary", "")
	if got := decode[summaryResponse](t, rec); len(got.Widgets) != 1 {
		t.Fatalf("summary before delete = %+v", got.Widgets)
	}

	rec = do(t, s, http.MethodDelete, "/api/communities/smash/widgets/markdown/rules", "")
	wantStatus(t, rec, http.StatusNoContent)

	rec = do(t, s, http.MethodGet, base+"/summary", "")
	if got := decode[summaryResponse](t, rec); len(got.Widgets) != 0 {
		t.Errorf("deleted widget still summarized: %+v", got.Widgets)
	}
}

func TestEditorSeesSavedWidgets(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st, "smash", rules)
	_, err := st.Save(context.Background(), &layout.Layout{
		CommunityID: "smash",
		Widgets:     []layout.Descriptor{{Type: widget.TypeMarkdown, ID: "rules", XLength: 1, ZLength: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	base := "/api/editor/" + decode[openResponse](t, rec).Session.ID

	rec = do(t, s, http.MethodPost, "/api/communities/smash/widgets",
		`{"type":"markdown","id":"rules","data":{"text":"# Updated rules"}}`)
	wantStatus(t, rec, http.StatusCreated)

	rec = do(t, s, http.MethodGet, base, "")
	wantStatus(t, rec, http.StatusOK)
	if page := rec.Body.String(); !strings.Contains(page, "Updated rules") {
		t.Errorf("editor still shows the old payload:\n%s", page)
	}
	rec = do(t, s, http.MethodGet, base+"/summary", "")
	if got := decode[summaryResponse](t, rec); len(got.Widgets) != 1 {
		t.Errorf("updated widget should stay placed: %+v", got.Widgets)
	}

	t.Run("recreated after delete", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/api/communities/smash/widgets/markdown/rules", "")
		wantStatus(t, rec, http.StatusNoContent)
		rec = do(t, s, http.MethodPost, "/api/communities/smash/widgets",
			`{"type":"markdown","id":"rules","data":{"text":"# Back"}}`)
		wantStatus(t, rec, http.StatusCreated)

		rec = do(t, s, http.MethodGet, base+"/summary", "")
		got := decode[summaryResponse](t, rec)
		if len(got.Widgets) != 0 {
			t.Errorf("recreated widget should not reappear on the grid: %+v", got.Widgets)
		}
		if len(got.Available) != 1 || got.Available[0].ID != "rules" {
			t.Errorf("recreated widget should be offered in the palette: %+v", got.Available)
		}
	})
}

func TestEditorCleanup(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/communities/smash/editor", "")
	wantStatus(t, rec, http.StatusCreated)
	sid := decode[openResponse](t, rec).Session.ID

	if n, err := s.Editors().Cleanup(context.Background()); err != nil || n != 0 {
		t.Fatalf("Cleanup() = %d, %v; want nothing expired", n, err)
	}
	if err := s.Editors().sessions.Delete(context.Background(), sid); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Editors().Cleanup(context.Background()); n != 1 || s.Editors().Len() != 0 {
		t.Errorf("Cleanup() = %d with %d editors left, want 1 and 0", n, s.Editors().Len())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidLayout, http.StatusBadRequest},
		{errors.ErrCodeUnknownWidgetType, http.StatusBadRequest},
		{errors.ErrCodeSessionNotFound, http.StatusNotFound},
		{errors.ErrCodeConflict, http.StatusConflict},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeRenderFailed, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := statusFor(tt.code); got != tt.want {
				t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
