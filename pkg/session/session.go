// Package session tracks layout edit sessions.
//
// An edit session is opened when a moderator starts editing a community's
// layout. It records the layout version the edit is based on, so the final
// save can be checked for conflicts, and expires after a period without
// activity. The engine holding the grid lives with the caller; this package
// only keeps the metadata and its lifetime.
//
// # Usage
//
//	store := session.NewMemoryStore()
//	sess := session.New("smash", layout.Version, session.DefaultTTL)
//	store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, id) // nil, nil when unknown or expired
//	expired, err := store.Cleanup(ctx)
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist or has expired.
	ErrNotFound = errors.New("session not found")
)

// Session stores edit session metadata.
type Session struct {
	ID          string        `json:"id"`
	CommunityID string        `json:"community_id"`
	BaseVersion int64         `json:"base_version"`
	TTL         time.Duration `json:"ttl"`
	ExpiresAt   time.Time     `json:"expires_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session by its TTL from now.
func (s *Session) Touch() {
	s.ExpiresAt = time.Now().Add(s.TTL)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions and returns their IDs.
	Cleanup(ctx context.Context) ([]string, error)
}

// DefaultTTL is the default idle lifetime of an edit session.
const DefaultTTL = 2 * time.Hour

// GenerateID creates a random session ID.
func GenerateID() string {
	return uuid.NewString()
}

// New creates a session for editing a community's layout at baseVersion.
func New(communityID string, baseVersion int64, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:          GenerateID(),
		CommunityID: communityID,
		BaseVersion: baseVersion,
		TTL:         ttl,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
}
