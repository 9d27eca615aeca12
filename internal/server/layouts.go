package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/realtime"
	"github.com/fourbar/fourbar/pkg/widget"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.runner.Load(r.Context(), pipeline.Options{CommunityID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var l layout.Layout
	if err := decodeJSON(w, r, &l); err != nil {
		s.writeError(w, r, err)
		return
	}
	if l.CommunityID != "" && l.CommunityID != id {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput,
			"community_id %q does not match path %q", l.CommunityID, id))
		return
	}
	l.CommunityID = id

	saved, err := s.runner.Save(r.Context(), &l)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Broadcast(r.Context(), realtime.Event{
		Type:        realtime.EventLayoutSaved,
		CommunityID: id,
		Data:        realtime.LayoutSaved{Version: saved.Version, Widgets: len(saved.Widgets)},
	})
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateCommunityID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.runner.Store.Widgets(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []widget.Template{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePutWidget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var t widget.Template
	if err := decodeJSON(w, r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	if t.Data == nil {
		t.Data = widget.Data{}
	}
	// The store assigns missing ids; validate with a placeholder.
	check := t
	if check.ID == "" {
		check.ID = "new"
	}
	if err := s.runner.Registry.Validate(check); err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.runner.Store.PutWidget(r.Context(), id, t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Broadcast(r.Context(), realtime.Event{
		Type:        realtime.EventWidgetSaved,
		CommunityID: id,
		Data:        saved,
	})
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := widget.Key{Type: chi.URLParam(r, "type"), ID: widget.ID(chi.URLParam(r, "widgetID"))}
	if err := s.runner.Store.DeleteWidget(r.Context(), id, key); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Broadcast(r.Context(), realtime.Event{
		Type:        realtime.EventWidgetDeleted,
		CommunityID: id,
		Data:        realtime.WidgetRef{Type: key.Type, ID: key.ID},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateCommunityID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.ServeWS(w, r, id)
}

// handleView serves the rendered view-mode page. ?refresh=1 bypasses the
// artifact cache.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, pipeline.FormatHTML, pipeline.Options{Standalone: true})
}

// handlePreview serves the wireframe preview. ?detailed=1 lists widgets per cell.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, pipeline.FormatSVG, pipeline.Options{Detailed: queryBool(r, "detailed")})
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, format string, opts pipeline.Options) {
	opts.CommunityID = chi.URLParam(r, "id")
	opts.Formats = []string{format}
	opts.Refresh = queryBool(r, "refresh")

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("ETag", strconv.Quote(result.LayoutHash))
	w.Write(result.Artifacts[format])
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
