// Package store persists community layouts and widget records.
//
// A community owns one [layout.Layout] (descriptor positions plus a version)
// and any number of widget records ([widget.Template]). Records carry the
// widget payloads; stored layouts keep positions only and are hydrated from
// the records on [Store.Load]. A layout descriptor whose record was deleted
// comes back without data and is skipped at placement.
//
// Saves use optimistic concurrency: the caller passes the version its change
// is based on and the store rejects the write with [errors.ConflictError]
// when another save got there first.
//
// Implementations:
//   - [Memory]: in-process maps (tests, single-process demos)
//   - sqlstore: database/sql with postgres or sqlite
//   - mongostore: MongoDB collections
//   - [Cached]: a read-through cache in front of another store
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Store is the persistence API for layouts and widget records.
type Store interface {
	// Load returns the community's layout with descriptor data hydrated from
	// the widget records and Available set to the records no descriptor
	// places. A community without a stored layout yields version 0.
	Load(ctx context.Context, communityID string) (*layout.Layout, error)

	// Save stores l if l.Version equals the stored version (0 for a new
	// community) and returns the stored layout with the incremented version.
	Save(ctx context.Context, l *layout.Layout) (*layout.Layout, error)

	// Widgets returns the community's widget records ordered by type and id.
	Widgets(ctx context.Context, communityID string) ([]widget.Template, error)

	// PutWidget creates or replaces a record. An empty id gets a new UUID.
	PutWidget(ctx context.Context, communityID string, t widget.Template) (widget.Template, error)

	// DeleteWidget removes a record. A missing record is WIDGET_NOT_FOUND.
	DeleteWidget(ctx context.Context, communityID string, k widget.Key) error

	// Close releases the store's resources.
	Close() error
}

// PrepareSave validates l for storage and returns the copy to write: data
// stripped, descriptors sorted, version incremented and timestamp set.
// Backends call it before checking the stored version.
func PrepareSave(l *layout.Layout) (*layout.Layout, error) {
	if l == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout is required")
	}
	if err := errors.ValidateCommunityID(l.CommunityID); err != nil {
		return nil, err
	}
	if l.Version < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "version must not be negative")
	}
	if l.Background != "" {
		if err := errors.ValidateURL(l.Background); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "background")
		}
	}
	if err := layout.Validate(l.Widgets); err != nil {
		return nil, err
	}

	out := &layout.Layout{
		CommunityID: l.CommunityID,
		Background:  l.Background,
		Version:     l.Version + 1,
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Widgets:     layout.Sorted(layout.StripData(l.Widgets)),
	}
	return out, nil
}

// PrepareWidget validates a record for storage and assigns an id when empty.
func PrepareWidget(communityID string, t widget.Template) (widget.Template, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return widget.Template{}, err
	}
	if t.ID == "" {
		t.ID = widget.ID(uuid.NewString())
	}
	if t.Data == nil {
		t.Data = widget.Data{}
	}
	if err := t.Validate(); err != nil {
		return widget.Template{}, err
	}
	return t, nil
}

// Conflict builds the error for a stale save.
func Conflict(communityID string, expected, actual int64) error {
	return &errors.ConflictError{
		Resource: "layout " + communityID,
		Expected: expected,
		Actual:   actual,
	}
}

// WidgetNotFound builds the error for a missing record.
func WidgetNotFound(communityID string, k widget.Key) error {
	return errors.New(errors.ErrCodeWidgetNotFound, "community %s: widget %s not found", communityID, k)
}

// Assemble builds the loaded form of a stored layout.
func Assemble(communityID string, stored *layout.Layout, records []widget.Template) *layout.Layout {
	out := &layout.Layout{CommunityID: communityID}
	if stored != nil {
		out.Background = stored.Background
		out.Version = stored.Version
		out.UpdatedAt = stored.UpdatedAt
		out.Widgets = layout.Hydrate(stored.Widgets, records)
	}
	out.Available = layout.Unplaced(out.Widgets, records)
	return out
}
