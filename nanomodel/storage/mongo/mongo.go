// Package mongo is a storage.Backend over MongoDB. Each collection path
// maps to one MongoDB collection, with the path separator replaced by a
// dot: the documents at users/u1/posts/* live in the "users.u1.posts"
// collection under their id as _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/nanomodel/nanomodel/storage"
	"github.com/arthur-debert/nanomodel/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// Reserved MongoDB document fields.
const (
	IDField         = "_id"
	CreateTimeField = "_create_time"
	UpdateTimeField = "_update_time"

	defaultConnectTimeout = 3 * time.Second
)

// Config holds the connection settings.
type Config struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Open connects to MongoDB and pings it.
func Open(ctx context.Context, cfg Config, l *zap.Logger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	if l == nil {
		l = zap.NewNop()
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	l.Info("open mongodb success",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
	)
	return client, nil
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock sets the time source used for document timestamps.
func WithClock(fn func() time.Time) Option {
	return func(b *Backend) { b.now = fn }
}

// WithClient hands the client to the backend: Close disconnects it.
func WithClient(c *mongo.Client) Option {
	return func(b *Backend) { b.client = c }
}

// Backend implements storage.Backend.
type Backend struct {
	db     *mongo.Database
	client *mongo.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ storage.Backend = (*Backend)(nil)

// New creates a backend over db.
func New(db *mongo.Database, opts ...Option) *Backend {
	b := &Backend{db: db, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// CollectionName maps a collection path to its MongoDB collection name.
func CollectionName(collectionPath string) string {
	return strings.ReplaceAll(types.JoinPath(collectionPath), types.Separator, ".")
}

func (b *Backend) locate(path string) (*mongo.Collection, string, error) {
	path = types.JoinPath(path)
	if !types.IsDocumentPath(path) || types.IsPlaceholderKey(path) {
		return nil, "", fmt.Errorf("%w: %q", storage.ErrInvalidPath, path)
	}
	if b.db == nil {
		return nil, "", errors.New("mongodb database is nil")
	}
	coll := b.db.Collection(CollectionName(types.CollectionPathFromKey(path)))
	return coll, types.IDFromKey(path), nil
}

// Get implements storage.Backend.Get.
func (b *Backend) Get(ctx context.Context, path string) (*types.StoredDoc, error) {
	coll, id, err := b.locate(path)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	err = coll.FindOne(ctx, bson.M{IDField: id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", path, err)
	}
	return storedFromBSON(types.JoinPath(path), raw), nil
}

// Set implements storage.Backend.Set. A merge becomes a $set upsert of the
// body flattened against the stored document, a full write a ReplaceOne
// upsert that keeps the creation time.
func (b *Backend) Set(ctx context.Context, path string, data types.Doc, merge bool) (*types.StoredDoc, error) {
	coll, id, err := b.locate(path)
	if err != nil {
		return nil, err
	}
	now := b.now().UTC()

	if merge {
		var current types.Doc
		existing, err := b.Get(ctx, path)
		switch {
		case err == nil:
			current = existing.Data
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
		set := flatten("", data, current)
		set[UpdateTimeField] = now
		update := bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{CreateTimeField: now},
		}
		if _, err := coll.UpdateOne(ctx, bson.M{IDField: id}, update, options.UpdateOne().SetUpsert(true)); err != nil {
			return nil, fmt.Errorf("merge %s: %w", path, err)
		}
		return b.Get(ctx, path)
	}

	created := now
	existing, err := b.Get(ctx, path)
	switch {
	case err == nil:
		created = existing.CreateTime
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	doc := toBSON(data)
	doc[IDField] = id
	doc[CreateTimeField] = created
	doc[UpdateTimeField] = now
	if _, err := coll.ReplaceOne(ctx, bson.M{IDField: id}, doc, options.Replace().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("replace %s: %w", path, err)
	}
	b.logger.Debug("replaced document", zap.String("path", path))
	return b.Get(ctx, path)
}

// Update implements storage.Backend.Update. Each named column is replaced
// whole, so nested maps shrink with the update.
func (b *Backend) Update(ctx context.Context, path string, data types.Doc) (*types.StoredDoc, error) {
	coll, id, err := b.locate(path)
	if err != nil {
		return nil, err
	}
	set := toBSON(data)
	set[UpdateTimeField] = b.now().UTC()
	res, err := coll.UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return b.Get(ctx, path)
}

// Delete implements storage.Backend.Delete.
func (b *Backend) Delete(ctx context.Context, path string) error {
	coll, id, err := b.locate(path)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.M{IDField: id}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Collections implements storage.Backend.Collections. Sub-collections are
// found by collection name prefix.
func (b *Backend) Collections(ctx context.Context, docPath string) ([]string, error) {
	if b.db == nil {
		return nil, errors.New("mongodb database is nil")
	}
	docPath = types.JoinPath(docPath)
	filter := bson.M{}
	prefix := ""
	if docPath != "" {
		if !types.IsDocumentPath(docPath) {
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidPath, docPath)
		}
		prefix = CollectionName(docPath) + "."
		filter = bson.M{"name": bson.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}
	}
	names, err := b.db.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return subcollections(prefix, names), nil
}

// subcollections picks the first name segment after prefix.
func subcollections(prefix string, names []string) []string {
	seen := make(map[string]struct{})
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		first, _, _ := strings.Cut(strings.TrimPrefix(name, prefix), ".")
		if first != "" {
			seen[first] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewID implements storage.Backend.NewID.
func (b *Backend) NewID() string {
	return bson.NewObjectID().Hex()
}

// Close implements storage.Backend.Close.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Disconnect(context.Background())
}
