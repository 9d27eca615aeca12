package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/realtime"
	"github.com/fourbar/fourbar/pkg/session"
	"github.com/fourbar/fourbar/pkg/widget"
)

// editor is one open edit session: a template-mode engine and the session
// it belongs to. mu serializes every engine call.
type editor struct {
	mu      sync.Mutex
	engine  *layout.Engine
	session *session.Session
	unsub   func()
}

// EditorManager owns the engines of open edit sessions. Session metadata
// and expiry live in a session.Store; engines live here, keyed by session id.
type EditorManager struct {
	runner   *pipeline.Runner
	hub      *realtime.Hub
	sessions session.Store
	ttl      time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	editors map[string]*editor
}

// NewEditorManager creates a manager. A zero ttl uses session.DefaultTTL.
func NewEditorManager(runner *pipeline.Runner, hub *realtime.Hub, sessions session.Store, ttl time.Duration, logger *log.Logger) *EditorManager {
	return &EditorManager{
		runner:   runner,
		hub:      hub,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		editors:  make(map[string]*editor),
	}
}

// Open loads the community layout into a new template-mode engine and
// starts a session based on the loaded version. Widget records no
// descriptor places are offered in the palette.
func (m *EditorManager) Open(ctx context.Context, communityID string) (*session.Session, []error, error) {
	l, err := m.runner.Load(ctx, pipeline.Options{CommunityID: communityID})
	if err != nil {
		return nil, nil, err
	}

	ed := &editor{session: session.New(communityID, l.Version, m.ttl)}
	engine, warnings, err := m.runner.Build(ctx, l, pipeline.Options{
		Template:     true,
		SaveCallback: m.saveFunc(ed, l.Background),
	})
	if err != nil {
		return nil, nil, err
	}
	ed.engine = engine

	if err := m.sessions.Set(ctx, ed.session); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "store session")
	}
	ed.unsub = m.hub.Subscribe(communityID, func(ev realtime.Event) {
		m.handleEvent(ed, ev)
	})

	m.mu.Lock()
	m.editors[ed.session.ID] = ed
	m.mu.Unlock()

	m.logger.Info("opened editor", "session", ed.session.ID, "community", communityID, "version", l.Version)
	sess := *ed.session
	return &sess, warnings, nil
}

// With runs fn with the session's editor locked. Unknown and expired
// sessions fail with SESSION_NOT_FOUND. Every call extends the session.
func (m *EditorManager) With(ctx context.Context, sessionID string, fn func(ed *editor) error) error {
	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "read session")
	}
	m.mu.Lock()
	ed := m.editors[sessionID]
	m.mu.Unlock()
	if sess == nil || ed == nil {
		return errors.Wrap(errors.ErrCodeSessionNotFound, session.ErrNotFound, "edit session %s", sessionID)
	}

	ed.mu.Lock()
	defer ed.mu.Unlock()

	ed.session.Touch()
	if err := m.sessions.Set(ctx, ed.session); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store session")
	}
	return fn(ed)
}

// Save summarizes the session's grid and stores it. On success the session
// is rebased onto the new version.
func (m *EditorManager) Save(ctx context.Context, sessionID string) (*session.Session, error) {
	var out session.Session
	err := m.With(ctx, sessionID, func(ed *editor) error {
		if err := ed.engine.Save(ctx); err != nil {
			return err
		}
		out = *ed.session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// saveFunc is the engine's save callback. It runs with ed.mu held.
func (m *EditorManager) saveFunc(ed *editor, background string) layout.SaveFunc {
	return func(ctx context.Context, widgets []layout.Descriptor) error {
		communityID := ed.session.CommunityID
		saved, err := m.runner.Save(ctx, &layout.Layout{
			CommunityID: communityID,
			Background:  background,
			Version:     ed.session.BaseVersion,
			Widgets:     widgets,
		})
		if err != nil {
			m.hub.Broadcast(ctx, realtime.Event{
				Type:        realtime.EventSaveFailed,
				CommunityID: communityID,
				Data:        realtime.SaveFailed{Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)},
			})
			return err
		}

		ed.session.BaseVersion = saved.Version
		if err := m.sessions.Set(ctx, ed.session); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "store session")
		}
		m.hub.Broadcast(ctx, realtime.Event{
			Type:        realtime.EventLayoutSaved,
			CommunityID: communityID,
			Data:        realtime.LayoutSaved{Version: saved.Version, Widgets: len(saved.Widgets)},
		})
		return nil
	}
}

// handleEvent applies widget record changes to an open editor. Other events
// are broadcast while the editor is locked and must be ignored here.
func (m *EditorManager) handleEvent(ed *editor, ev realtime.Event) {
	switch ev.Type {
	case realtime.EventWidgetDeleted:
		ref, ok := ev.Data.(realtime.WidgetRef)
		if !ok {
			return
		}
		ed.mu.Lock()
		defer ed.mu.Unlock()
		if ed.engine.MarkDeleted(ref.Key()) {
			m.logger.Debug("marked widget deleted", "session", ed.session.ID, "widget", ref.Key())
		}

	case realtime.EventWidgetSaved:
		t, ok := ev.Data.(widget.Template)
		if !ok {
			return
		}
		ed.mu.Lock()
		defer ed.mu.Unlock()
		changed, err := ed.engine.UpdateWidget(t)
		if err != nil {
			m.logger.Warn("refresh widget", "session", ed.session.ID, "widget", t.Key(), "err", err)
			return
		}
		if changed {
			m.logger.Debug("refreshed widget", "session", ed.session.ID, "widget", t.Key())
		}
	}
}

// Close ends a session. Closing an unknown session is not an error.
func (m *EditorManager) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	ed := m.editors[sessionID]
	delete(m.editors, sessionID)
	m.mu.Unlock()

	if ed != nil {
		ed.unsub()
	}
	return m.sessions.Delete(ctx, sessionID)
}

// Cleanup drops expired sessions and their engines.
func (m *EditorManager) Cleanup(ctx context.Context) (int, error) {
	expired, err := m.sessions.Cleanup(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range expired {
		if ed, ok := m.editors[id]; ok {
			ed.unsub()
			delete(m.editors, id)
		}
	}
	// Engines whose session vanished from the store without expiring.
	for id, ed := range m.editors {
		if sess, err := m.sessions.Get(ctx, id); err == nil && sess == nil {
			ed.unsub()
			delete(m.editors, id)
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		m.logger.Info("closed expired editors", "count", len(expired))
	}
	return len(expired), nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *EditorManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Cleanup(ctx); err != nil {
				m.logger.Warn("editor cleanup failed", "err", err)
			}
		}
	}
}

// Len returns the number of open editors.
func (m *EditorManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.editors)
}
