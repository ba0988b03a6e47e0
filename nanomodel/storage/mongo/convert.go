package mongo

import (
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// flatten turns nested maps into dotted $set paths, so a merge only
// touches the leaves it names. It descends only where stored already holds
// a sub-document; a null, scalar or missing value is replaced whole, since
// MongoDB can not $set a path through it. Empty maps are set as is.
func flatten(prefix string, d, stored types.Doc) bson.M {
	out := bson.M{}
	for k, v := range d {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		m, ok := v.(map[string]any)
		inner, storedMap := stored[k].(map[string]any)
		if ok && len(m) > 0 && storedMap {
			for fk, fv := range flatten(path, m, inner) {
				out[fk] = fv
			}
			continue
		}
		out[path] = v
	}
	return out
}

func toBSON(d types.Doc) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// storedFromBSON splits the reserved fields off a raw MongoDB document.
func storedFromBSON(path string, raw bson.M) *types.StoredDoc {
	doc := &types.StoredDoc{
		Path: path,
		ID:   types.IDFromKey(path),
		Data: types.Doc{},
	}
	for k, v := range raw {
		switch k {
		case IDField:
		case CreateTimeField:
			doc.CreateTime = timeValue(v)
		case UpdateTimeField:
			doc.UpdateTime = timeValue(v)
		default:
			doc.Data[k] = fromBSON(v)
		}
	}
	return doc
}

// fromBSON converts decoded BSON values to the plain Go values documents
// carry: maps, []any, int64, float64, string, bool, time.Time.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSONMap(t)
	case map[string]any:
		return fromBSONMap(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		return fromBSONSlice(t)
	case []any:
		return fromBSONSlice(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case bson.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case bson.ObjectID:
		return t.Hex()
	case bson.Decimal128:
		return t.String()
	default:
		return v
	}
}

func fromBSONMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromBSON(v)
	}
	return out
}

func fromBSONSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = fromBSON(v)
	}
	return out
}

func timeValue(v any) time.Time {
	switch t := fromBSON(v).(type) {
	case time.Time:
		return t
	default:
		return time.Time{}
	}
}
