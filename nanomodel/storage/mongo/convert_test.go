package mongo

import (
	"testing"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFlatten(t *testing.T) {
	body := types.Doc{
		"name":    "Ada",
		"address": map[string]any{"city": "London", "geo": map[string]any{"lat": 51.5}},
		"prefs":   map[string]any{},
		"tags":    []any{"math"},
	}

	t.Run("into stored sub-documents", func(t *testing.T) {
		stored := types.Doc{
			"address": map[string]any{"city": "Paris", "geo": map[string]any{"lat": 48.8}},
			"prefs":   map[string]any{"theme": "dark"},
		}
		assert.Equal(t, bson.M{
			"name":            "Ada",
			"address.city":    "London",
			"address.geo.lat": 51.5,
			"prefs":           map[string]any{},
			"tags":            []any{"math"},
		}, flatten("", body, stored))
	})

	t.Run("null or scalar stored values are replaced", func(t *testing.T) {
		stored := types.Doc{
			"address": map[string]any{"city": "Paris", "geo": nil},
			"name":    map[string]any{"first": "A"},
		}
		assert.Equal(t, bson.M{
			"name":         "Ada",
			"address.city": "London",
			"address.geo":  map[string]any{"lat": 51.5},
			"prefs":        map[string]any{},
			"tags":         []any{"math"},
		}, flatten("", body, stored))
	})

	t.Run("missing document", func(t *testing.T) {
		got := flatten("", body, nil)
		assert.Equal(t, body["address"], got["address"])
		assert.NotContains(t, got, "address.city")
	})
}

func TestFromBSON(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	oid := bson.NewObjectID()
	dec, err := bson.ParseDecimal128("1.5")
	require.NoError(t, err)

	got := fromBSON(bson.M{
		"count":  int32(3),
		"big":    int64(1 << 40),
		"when":   bson.NewDateTimeFromTime(when),
		"ref":    oid,
		"amount": dec,
		"nested": bson.D{{Key: "n", Value: int32(1)}},
		"list":   bson.A{int32(1), "x", bson.M{"k": "v"}},
	})
	assert.Equal(t, map[string]any{
		"count":  int64(3),
		"big":    int64(1 << 40),
		"when":   when,
		"ref":    oid.Hex(),
		"amount": "1.5",
		"nested": map[string]any{"n": int64(1)},
		"list":   []any{int64(1), "x", map[string]any{"k": "v"}},
	}, got)
}

func TestStoredFromBSON(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	doc := storedFromBSON("users/ada/posts/p1", bson.M{
		IDField:         "p1",
		CreateTimeField: bson.NewDateTimeFromTime(created),
		UpdateTimeField: bson.NewDateTimeFromTime(updated),
		"title":         "Notes",
	})
	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, "users/ada/posts/p1", doc.Path)
	assert.Equal(t, created, doc.CreateTime)
	assert.Equal(t, updated, doc.UpdateTime)
	assert.Equal(t, types.Doc{"title": "Notes"}, doc.Data)

	empty := storedFromBSON("users/ada", bson.M{IDField: "ada", CreateTimeField: "not a time"})
	assert.True(t, empty.CreateTime.IsZero())
	assert.Empty(t, empty.Data)
}
