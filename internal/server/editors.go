package server

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dragdrop"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/realtime"
	"github.com/fourbar/fourbar/pkg/session"
	"github.com/fourbar/fourbar/pkg/widget"
)

type openResponse struct {
	Session  *session.Session `json:"session"`
	Warnings []string         `json:"warnings,omitempty"`
}

type gridResponse struct {
	Rows    int   `json:"rows"`
	Columns []int `json:"columns"`
}

type summaryResponse struct {
	SessionID   string               `json:"session_id"`
	CommunityID string               `json:"community_id"`
	BaseVersion int64                `json:"base_version"`
	Widgets     []layout.Descriptor  `json:"widgets"`
	Available   []realtime.WidgetRef `json:"available"`
}

// dropRequest moves a widget to cell (y, x), or to the palette when Palette
// is set. Before names the widget to insert in front of; the widget is
// appended when it is nil.
type dropRequest struct {
	Type    string              `json:"type"`
	ID      widget.ID           `json:"id"`
	Palette bool                `json:"palette,omitempty"`
	Y       int                 `json:"y"`
	X       int                 `json:"x"`
	Before  *realtime.WidgetRef `json:"before,omitempty"`
}

func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	sess, warnings, err := s.editors.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := openResponse{Session: sess}
	for _, warn := range warnings {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleEditorHTML(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.editors.With(r.Context(), chi.URLParam(r, "sid"), func(ed *editor) error {
		return ed.engine.Render(&buf)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleEditorSummary(w http.ResponseWriter, r *http.Request) {
	var resp summaryResponse
	err := s.editors.With(r.Context(), chi.URLParam(r, "sid"), func(ed *editor) error {
		resp = summaryResponse{
			SessionID:   ed.session.ID,
			CommunityID: ed.session.CommunityID,
			BaseVersion: ed.session.BaseVersion,
			Widgets:     ed.engine.Summarize(),
			Available:   []realtime.WidgetRef{},
		}
		for _, c := range ed.engine.Available() {
			k := layout.KeyOf(c)
			resp.Available = append(resp.Available, realtime.WidgetRef{Type: k.Type, ID: k.ID})
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.Widgets == nil {
		resp.Widgets = []layout.Descriptor{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// gridOp runs op against the session's engine and answers with the grid shape.
func (s *Server) gridOp(w http.ResponseWriter, r *http.Request, op func(e *layout.Engine) error) {
	var resp gridResponse
	err := s.editors.With(r.Context(), chi.URLParam(r, "sid"), func(ed *editor) error {
		if err := op(ed.engine); err != nil {
			return err
		}
		resp = shape(ed.engine)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *layout.Engine) error {
		e.AddRow()
		return nil
	})
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *layout.Engine) error {
		e.RemoveRow()
		return nil
	})
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *layout.Engine) error {
		row, err := rowParam(r, e)
		if err != nil {
			return err
		}
		e.AddColumn(row)
		return nil
	})
}

func (s *Server) handleRemoveColumn(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *layout.Engine) error {
		row, err := rowParam(r, e)
		if err != nil {
			return err
		}
		e.RemoveColumn(row)
		return nil
	})
}

// handleAddAvailable offers a widget in the palette. A template without data
// takes the payload of the stored widget record.
func (s *Server) handleAddAvailable(w http.ResponseWriter, r *http.Request) {
	var t widget.Template
	if err := decodeJSON(w, r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}

	var added bool
	err := s.editors.With(r.Context(), chi.URLParam(r, "sid"), func(ed *editor) error {
		if t.Data == nil {
			data, err := s.recordData(r, ed.session.CommunityID, t.Key())
			if err != nil {
				return err
			}
			t.Data = data
		}
		var err error
		added, err = ed.engine.AddAvailableWidget(t)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"added": added})
}

func (s *Server) recordData(r *http.Request, communityID string, k widget.Key) (widget.Data, error) {
	records, err := s.runner.Store.Widgets(r.Context(), communityID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Key() == k {
			return rec.Data, nil
		}
	}
	return nil, errors.New(errors.ErrCodeWidgetNotFound, "widget %s not found", k)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var resp gridResponse
	err := s.editors.With(r.Context(), chi.URLParam(r, "sid"), func(ed *editor) error {
		e := ed.engine
		key := widget.Key{Type: req.Type, ID: req.ID}
		el := e.Find(key)
		if el == nil {
			return errors.New(errors.ErrCodeWidgetNotFound, "widget %s not found", key)
		}

		target := e.Palette()
		if !req.Palette {
			target = e.Column(req.Y, req.X)
			if target == nil {
				return errors.New(errors.ErrCodeInvalidInput, "no column at y=%d x=%d", req.Y, req.X)
			}
		}
		var sibling *html.Node
		if req.Before != nil {
			sibling = e.Find(req.Before.Key())
			if sibling == nil {
				return errors.New(errors.ErrCodeWidgetNotFound, "widget %s not found", req.Before.Key())
			}
		}

		if err := e.Drake().Move(el, target, sibling); err != nil {
			return dropError(err)
		}
		resp = shape(e)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, err := s.editors.Save(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	if err := s.editors.Close(r.Context(), chi.URLParam(r, "sid")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func rowParam(r *http.Request, e *layout.Engine) (*html.Node, error) {
	y, err := strconv.Atoi(chi.URLParam(r, "y"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "row index")
	}
	row := e.Row(y)
	if row == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no row %d", y)
	}
	return row, nil
}

func shape(e *layout.Engine) gridResponse {
	rows := e.Rows()
	resp := gridResponse{Rows: len(rows), Columns: make([]int, len(rows))}
	for i, row := range rows {
		resp.Columns[i] = len(e.Columns(row))
	}
	return resp
}

func dropError(err error) error {
	switch {
	case stderrors.Is(err, dragdrop.ErrNotContainer),
		stderrors.Is(err, dragdrop.ErrNotDraggable),
		stderrors.Is(err, dragdrop.ErrBadSibling),
		stderrors.Is(err, dragdrop.ErrRejected):
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "drop")
	}
	return err
}
