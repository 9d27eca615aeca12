package realtime

import "github.com/fourbar/fourbar/pkg/widget"

// Event types.
const (
	EventLayoutSaved   = "layout_saved"
	EventWidgetDeleted = "widget_deleted"
	EventWidgetSaved   = "widget_saved"
	EventSaveFailed    = "save_failed"
)

// Event is one message on a topic.
type Event struct {
	Type        string `json:"type"`
	CommunityID string `json:"community_id"`
	Data        any    `json:"data,omitempty"`
}

// LayoutSaved is the payload of EventLayoutSaved.
type LayoutSaved struct {
	Version int64 `json:"version"`
	Widgets int   `json:"widgets"`
}

// WidgetRef is the payload of EventWidgetDeleted. EventWidgetSaved carries
// the stored widget.Template.
type WidgetRef struct {
	Type string    `json:"type"`
	ID   widget.ID `json:"id"`
}

// Key returns the widget identity.
func (r WidgetRef) Key() widget.Key {
	return widget.Key{Type: r.Type, ID: r.ID}
}

// SaveFailed is the payload of EventSaveFailed.
type SaveFailed struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
