package live

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustRaw(t *testing.T, doc bson.M) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshaling document key: %v", err)
	}
	return raw
}

func TestObjectIDKey(t *testing.T) {
	id := primitive.NewObjectID()

	got, ok := objectIDKey(mustRaw(t, bson.M{"_id": id}))
	if !ok || got != id {
		t.Errorf("objectIDKey() = (%s, %v), want (%s, true)", got.Hex(), ok, id.Hex())
	}

	if _, ok := objectIDKey(mustRaw(t, bson.M{"_id": "a-string-id"})); ok {
		t.Error("string _id should not parse as an ObjectID")
	}
	if _, ok := objectIDKey(mustRaw(t, bson.M{"other": id})); ok {
		t.Error("missing _id should not parse")
	}
}

func TestStringKey(t *testing.T) {
	composite := primitive.NewObjectID().Hex() + "/" + primitive.NewObjectID().Hex()

	got, ok := stringKey(mustRaw(t, bson.M{"_id": composite}))
	if !ok || got != composite {
		t.Errorf("stringKey() = (%q, %v), want (%q, true)", got, ok, composite)
	}

	if _, ok := stringKey(mustRaw(t, bson.M{"_id": primitive.NewObjectID()})); ok {
		t.Error("ObjectID _id should not parse as a string")
	}
}

func TestHexIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	got := hexIDs([]primitive.ObjectID{a, b})
	if len(got) != 2 || got[0] != a.Hex() || got[1] != b.Hex() {
		t.Errorf("hexIDs() = %v", got)
	}

	if got := hexIDs(nil); len(got) != 0 {
		t.Errorf("hexIDs(nil) = %v, want empty", got)
	}
}
