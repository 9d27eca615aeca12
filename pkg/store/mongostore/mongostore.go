// Package mongostore implements store.Store on MongoDB.
//
// Layouts live in the "layouts" collection keyed by community id (_id) and
// widget records in the "widgets" collection with a unique index on
// (community_id, type, id).
package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/widget"
)

// Collection names.
const (
	LayoutsCollection = "layouts"
	WidgetsCollection = "widgets"
)

// Store is a MongoDB-backed store.Store.
type Store struct {
	client  *mongo.Client
	layouts *mongo.Collection
	widgets *mongo.Collection
}

type widgetDoc struct {
	CommunityID string `bson:"community_id"`
	Type        string `bson:"type"`
	ID          string `bson:"id"`
	Data        bson.M `bson:"data"`
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "mongo uri")
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		return cache.Retryable(client.Ping(ctx, nil))
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}

	s, err := New(ctx, client.Database(database))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.client = client
	return s, nil
}

// New uses an existing database handle. Close does not disconnect its client.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		layouts: db.Collection(LayoutsCollection),
		widgets: db.Collection(WidgetsCollection),
	}
	_, err := s.widgets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "community_id", Value: 1}, {Key: "type", Value: 1}, {Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "create widget index")
	}
	return s, nil
}

func (s *Store) Load(ctx context.Context, communityID string) (*layout.Layout, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}

	var stored layout.Layout
	found := &stored
	err := s.layouts.FindOne(ctx, bson.M{"_id": communityID}).Decode(&stored)
	switch {
	case err == mongo.ErrNoDocuments:
		found = nil
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "load layout %s", communityID)
	default:
		stored.UpdatedAt = stored.UpdatedAt.UTC()
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

	if l.Version == 0 {
		_, err := s.layouts.InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.Conflict(l.CommunityID, l.Version, s.version(ctx, l.CommunityID))
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "save layout %s", l.CommunityID)
		}
		return next, nil
	}

	res, err := s.layouts.ReplaceOne(ctx, bson.M{"_id": l.CommunityID, "version": l.Version}, next)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "save layout %s", l.CommunityID)
	}
	if res.MatchedCount == 0 {
		return nil, store.Conflict(l.CommunityID, l.Version, s.version(ctx, l.CommunityID))
	}
	return next, nil
}

func (s *Store) version(ctx context.Context, communityID string) int64 {
	var doc struct {
		Version int64 `bson:"version"`
	}
	s.layouts.FindOne(ctx, bson.M{"_id": communityID}).Decode(&doc)
	return doc.Version
}

func (s *Store) Widgets(ctx context.Context, communityID string) ([]widget.Template, error) {
	if err := errors.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	cur, err := s.widgets.Find(ctx,
		bson.M{"community_id": communityID},
		options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list widgets of %s", communityID)
	}
	defer cur.Close(ctx)

	var docs []widgetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decode widgets of %s", communityID)
	}
	out := make([]widget.Template, 0, len(docs))
	for _, d := range docs {
		data, _ := normalize(d.Data).(map[string]any)
		if data == nil {
			data = map[string]any{}
		}
		out = append(out, widget.Template{Type: d.Type, ID: widget.ID(d.ID), Data: widget.Data(data)})
	}
	store.SortWidgets(out)
	return out, nil
}

func (s *Store) PutWidget(ctx context.Context, communityID string, t widget.Template) (widget.Template, error) {
	t, err := store.PrepareWidget(communityID, t)
	if err != nil {
		return widget.Template{}, err
	}
	filter := bson.M{"community_id": communityID, "type": t.Type, "id": string(t.ID)}
	update := bson.M{"$set": bson.M{"data": map[string]any(t.Data)}}
	if _, err := s.widgets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return widget.Template{}, errors.Wrap(errors.ErrCodeNetwork, err, "put widget %s", t.Key())
	}
	return t, nil
}

func (s *Store) DeleteWidget(ctx context.Context, communityID string, k widget.Key) error {
	res, err := s.widgets.DeleteOne(ctx, bson.M{"community_id": communityID, "type": k.Type, "id": string(k.ID)})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete widget %s", k)
	}
	if res.DeletedCount == 0 {
		return store.WidgetNotFound(communityID, k)
	}
	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// normalize converts decoded BSON containers to plain maps and slices, the
// shapes widget payloads have when they come from JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	}
	return v
}

func normalizeMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, x := range in {
		m[k] = normalize(x)
	}
	return m
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, x := range in {
		out[i] = normalize(x)
	}
	return out
}

var _ store.Store = (*Store)(nil)
