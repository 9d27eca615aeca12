// Package sqlstore implements store.Store on database/sql.
//
// Two drivers are supported: "postgres" (github.com/lib/pq) and "sqlite"
// (modernc.org/sqlite, pure Go). Queries are written with ? placeholders and
// rebound to $n for postgres. Descriptor lists and widget payloads are stored
// as JSON text.
//
//	s, err := sqlstore.Open(ctx, "sqlite", "file:fourbar.db")
//	defer s.Close()
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is a SQL-backed store.Store.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, waits for it to answer and creates the
// schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", driver)
	}
	if driver == DriverSQLite {
		// One writer at a time.
		db.SetMaxOpenConns(1)
	}

	err = cache.RetryWithBackoff(ctx, func() error {
		return cache.Retryable(db.PingContext(ctx))
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s", driver)
	}
	return New(ctx, db, driver)
}

// New wraps an open database and creates the schema.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	if err := CreateSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Load(ctx context.Context, communityID string) (*layout.Layout, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}

	var (
		stored    layout.Layout
		widgets   string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT background, version, widgets, updated_at FROM layout WHERE community_id = ?`),
		communityID,
	).Scan(&stored.Background, &stored.Version, &widgets, &updatedAt)

	var found *layout.Layout
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, s.wrap(err, "load layout %s", communityID)
	default:
		if err := json.Unmarshal([]byte(widgets), &stored.Widgets); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode layout %s", communityID)
		}
		stored.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		found = &stored
	}

	records, err := s.Widgets(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return store.Assemble(communityID, found, records), nil
}

func (s *Store) Save(ctx context.Context, l *layout.Layout) (*layout.Layout, error) {
	next, err := store.PrepareSave(l)
	if err != nil {
		return nil, err
	}
	widgets, err := json.Marshal(next.Widgets)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode layout %s", l.CommunityID)
	}

	var res sql.Result
	if l.Version == 0 {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO layout (community_id, background, version, widgets, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (community_id) DO NOTHING`),
			next.CommunityID, next.Background, next.Version, string(widgets), next.UpdatedAt.UnixMilli())
	} else {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE layout SET background = ?, version = ?, widgets = ?, updated_at = ?
			WHERE community_id = ? AND version = ?`),
			next.Background, next.Version, string(widgets), next.UpdatedAt.UnixMilli(),
			next.CommunityID, l.Version)
	}
	if err != nil {
		return nil, s.wrap(err, "save layout %s", l.CommunityID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, s.wrap(err, "save layout %s", l.CommunityID)
	}
	if n == 0 {
		return nil, store.Conflict(l.CommunityID, l.Version, s.version(ctx, l.CommunityID))
	}
	return next, nil
}

// version returns the stored version, 0 when absent or unreadable.
func (s *Store) version(ctx context.Context, communityID string) int64 {
	var v int64
	s.db.QueryRowContext(ctx, s.rebind(`SELECT version FROM layout WHERE community_id = ?`), communityID).Scan(&v)
	return v
}

func (s *Store) Widgets(ctx context.Context, communityID string) ([]widget.Template, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT type, id, data FROM widget WHERE community_id = ? ORDER BY type, id`),
		communityID)
	if err != nil {
		return nil, s.wrap(err, "list widgets of %s", communityID)
	}
	defer rows.Close()

	var out []widget.Template
	for rows.Next() {
		var (
			t    widget.Template
			id   string
			data string
		)
		if err := rows.Scan(&t.Type, &id, &data); err != nil {
			return nil, s.wrap(err, "scan widget")
		}
		t.ID = widget.ID(id)
		if err := json.Unmarshal([]byte(data), &t.Data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode widget %s", t.Key())
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err, "list widgets of %s", communityID)
	}
	store.SortWidgets(out)
	return out, nil
}

func (s *Store) PutWidget(ctx context.Context, communityID string, t widget.Template) (widget.Template, error) {
	t, err := store.PrepareWidget(communityID, t)
	if err != nil {
		return widget.Template{}, err
	}
	data, err := json.Marshal(t.Data)
	if err != nil {
		return widget.Template{}, errors.Wrap(errors.ErrCodeInvalidTemplate, err, "encode widget %s", t.Key())
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO widget (community_id, type, id, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (community_id, type, id) DO UPDATE SET data = excluded.data`),
		communityID, t.Type, string(t.ID), string(data))
	if err != nil {
		return widget.Template{}, s.wrap(err, "put widget %s", t.Key())
	}
	return t, nil
}

func (s *Store) DeleteWidget(ctx context.Context, communityID string, k widget.Key) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM widget WHERE community_id = ? AND type = ? AND id = ?`),
		communityID, k.Type, string(k.ID))
	if err != nil {
		return s.wrap(err, "delete widget %s", k)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.WidgetNotFound(communityID, k)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) wrap(err error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeInternal, err, "%s: %s", s.driver, fmt.Sprintf(format, args...))
}

var _ store.Store = (*Store)(nil)
