package testutil

import (
	"context"
	_ "embed"
	"encoding/json"
	"testing"
	"time"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/nanomodel/manager"
	"github.com/arthur-debert/nanomodel/nanomodel/storage"
	"github.com/arthur-debert/nanomodel/types"
	"go.uber.org/zap/zaptest"
)

//go:embed testdata/universe.json
var universeJSON []byte

// FixedTime is the instant every fixture clock returns.
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// FixedClock returns FixedTime.
func FixedClock() time.Time { return FixedTime }

// Models are the model types the fixture data is written in. Build a fresh
// set per test: a Meta carries the manager it is attached to.
type Models struct {
	Address *nanomodel.Meta // nested only
	User    *nanomodel.Meta // users/{id}
	Post    *nanomodel.Meta // users/{id}/posts/{id}
	Draft   *nanomodel.Meta // users/{id}/drafts/{id}, drops unknown columns
}

// NewModels builds the fixture model types.
func NewModels() *Models {
	address := nanomodel.Define("Address").Fields(
		nanomodel.Text("street"),
		nanomodel.Text("city"),
		nanomodel.Text("zip", nanomodel.Column("postal_code")),
	).MustBuild()

	user := nanomodel.Define("User").Collection("users").Fields(
		nanomodel.ID("user_id"),
		nanomodel.Text("name", nanomodel.Required()),
		nanomodel.Number("age"),
		nanomodel.Boolean("active", nanomodel.Default(true)),
		nanomodel.Nested("address", address),
		nanomodel.List("tags", nanomodel.Element(nanomodel.Text("tag"))),
		nanomodel.Map("prefs"),
		nanomodel.DateTime("joined", nanomodel.Auto(), nanomodel.Clock(FixedClock)),
	).MustBuild()

	post := nanomodel.Define("Post").Collection("posts").Fields(
		nanomodel.ID("post_id", nanomodel.UUID()),
		nanomodel.Text("title", nanomodel.Required()),
		nanomodel.Text("body"),
		nanomodel.Boolean("published"),
		nanomodel.DateTime("edited", nanomodel.AutoUpdate(), nanomodel.Clock(FixedClock)),
	).MustBuild()

	draft := nanomodel.Define("Draft").Collection("drafts").
		ExtraFields(nanomodel.ExtraIgnore).
		Fields(nanomodel.Text("title")).
		MustBuild()

	return &Models{Address: address, User: user, Post: post, Draft: draft}
}

// Universe holds the keys of the fixture documents.
type Universe struct {
	Ada        string
	Grace      string
	AdaNotes   string
	AdaLetter  string
	AdaDraft   string
	Keys       []string
	Collection map[string][]string
}

type fixtureDocument struct {
	Path string    `json:"path"`
	Data types.Doc `json:"data"`
}

type fixtureData struct {
	Documents []fixtureDocument `json:"documents"`
}

// LoadUniverse writes the fixture documents to a memory backend and returns
// a manager over it, with the fixture models attached.
func LoadUniverse(t *testing.T) (*manager.Manager, *Models, *Universe) {
	t.Helper()

	backend := storage.NewMemory(storage.WithMemoryClock(FixedClock))
	t.Cleanup(func() { _ = backend.Close() })

	var fixture fixtureData
	if err := json.Unmarshal(universeJSON, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	u := &Universe{Collection: make(map[string][]string)}
	for _, doc := range fixture.Documents {
		if _, err := backend.Set(context.Background(), doc.Path, normalize(doc.Data), false); err != nil {
			t.Fatalf("failed to store %s: %v", doc.Path, err)
		}
		u.Keys = append(u.Keys, doc.Path)
		coll := types.CollectionPathFromKey(doc.Path)
		u.Collection[coll] = append(u.Collection[coll], doc.Path)
	}
	u.Ada = "users/ada"
	u.Grace = "users/grace"
	u.AdaNotes = "users/ada/posts/notes"
	u.AdaLetter = "users/ada/posts/letter"
	u.AdaDraft = "users/ada/drafts/d1"

	mgr := manager.New(backend, manager.WithLogger(zaptest.NewLogger(t)))
	models := NewModels()
	for _, meta := range []*nanomodel.Meta{models.User, models.Post, models.Draft} {
		meta.SetManager(mgr)
	}
	return mgr, models, u
}

// normalize turns the float64 numbers encoding/json produces into int64
// where they are integral, matching what the backends hand out.
func normalize(d types.Doc) types.Doc {
	for k, v := range d {
		switch t := v.(type) {
		case float64:
			if t == float64(int64(t)) {
				d[k] = int64(t)
			}
		case map[string]any:
			d[k] = normalize(t)
		}
	}
	return d
}
