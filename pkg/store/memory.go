package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Memory is a Store backed by in-process maps.
type Memory struct {
	mu      sync.RWMutex
	layouts map[string]layout.Layout
	widgets map[string]map[widget.Key]widget.Template
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		layouts: make(map[string]layout.Layout),
		widgets: make(map[string]map[widget.Key]widget.Template),
	}
}

func (m *Memory) Load(ctx context.Context, communityID string) (*layout.Layout, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stored *layout.Layout
	if l, ok := m.layouts[communityID]; ok {
		stored = &l
	}
	return Assemble(communityID, stored, m.records(communityID)), nil
}

func (m *Memory) Save(ctx context.Context, l *layout.Layout) (*layout.Layout, error) {
	next, err := PrepareSave(l)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.layouts[l.CommunityID].Version
	if current != l.Version {
		return nil, Conflict(l.CommunityID, l.Version, current)
	}
	m.layouts[l.CommunityID] = *next
	return next, nil
}

func (m *Memory) Widgets(ctx context.Context, communityID string) ([]widget.Template, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records(communityID), nil
}

func (m *Memory) PutWidget(ctx context.Context, communityID string, t widget.Template) (widget.Template, error) {
	t, err := PrepareWidget(communityID, t)
	if err != nil {
		return widget.Template{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.widgets[communityID]
	if !ok {
		byKey = make(map[widget.Key]widget.Template)
		m.widgets[communityID] = byKey
	}
	byKey[t.Key()] = t
	return t, nil
}

func (m *Memory) DeleteWidget(ctx context.Context, communityID string, k widget.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.widgets[communityID][k]; !ok {
		return WidgetNotFound(communityID, k)
	}
	delete(m.widgets[communityID], k)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// records returns the community's records sorted by key. Callers hold mu.
func (m *Memory) records(communityID string) []widget.Template {
	var out []widget.Template
	for _, t := range m.widgets[communityID] {
		out = append(out, t)
	}
	SortWidgets(out)
	return out
}

// SortWidgets orders records by type, then id.
func SortWidgets(ts []widget.Template) {
	slices.SortFunc(ts, func(a, b widget.Template) int {
		return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.ID, b.ID))
	})
}

var _ Store = (*Memory)(nil)
