package document

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sickbeasts-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func seedProducts(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	for _, d := range []Document{
		{"_id": "p1", "_type": "product", "title": "Toxic Waste", "featured": true, "createdAt": "2024-01-01T00:00:00Z", "price": 29.99, "slug": map[string]interface{}{"current": "toxic-waste"}},
		{"_id": "p2", "_type": "product", "title": "Skate or Die", "featured": false, "createdAt": "2024-02-01T00:00:00Z", "price": 29.99},
		{"_id": "p3", "_type": "product", "title": "Recycle Your Politicians", "featured": true, "createdAt": "2024-03-01T00:00:00Z", "price": 32.99},
		{"_id": "p4", "_type": "product", "title": "No Date", "featured": true},
		{"_id": "n1", "_type": "newsletter", "email": "a@example.com"},
	} {
		_, err := m.Create(ctx, d)
		require.NoError(t, err)
	}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func TestMemory_CreateAssignsSystemFields(t *testing.T) {
	m := NewMemory().WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	doc, err := m.Create(context.Background(), Document{"_type": "newsletter", "email": "x@example.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID())
	assert.Equal(t, "2024-01-01T00:00:01Z", doc[FieldCreatedAt])
	assert.Equal(t, "newsletter", doc.Type())
}

func TestMemory_CreateRejectsDuplicatesAndMissingType(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Document{"_id": "a", "_type": "product"})
	require.NoError(t, err)

	_, err = m.Create(ctx, Document{"_id": "a", "_type": "product"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = m.Create(ctx, Document{"title": "untyped"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemory_FetchFiltersSortsAndLimits(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	docs, err := m.Fetch(context.Background(), Query{
		Type:    "product",
		Filters: []Filter{{Field: "featured", Value: true}},
		Sort:    &Sort{Field: "createdAt", Desc: true},
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, ids(docs))
}

func TestMemory_FetchMissingSortValuesLast(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	for _, desc := range []bool{true, false} {
		docs, err := m.Fetch(context.Background(), Query{
			Type:    "product",
			Filters: []Filter{{Field: "featured", Value: true}},
			Sort:    &Sort{Field: "createdAt", Desc: desc},
		})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "p4", docs[2].ID())
	}
}

func TestMemory_FetchTiesFollowSortDirection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Create(ctx, Document{"_id": id, "_type": "product", "createdAt": "2024-01-01T00:00:00Z"})
		require.NoError(t, err)
	}

	desc, err := m.Fetch(ctx, Query{Type: "product", Sort: &Sort{Field: "createdAt", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(desc))

	asc, err := m.Fetch(ctx, Query{Type: "product", Sort: &Sort{Field: "createdAt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(asc))
}

func TestMemory_FetchNestedFilterAndProjection(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	doc, err := m.FetchOne(context.Background(), Query{
		Type:    "product",
		Filters: []Filter{{Field: "slug.current", Value: "toxic-waste"}},
		Fields:  []string{"title"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ID())
	assert.Equal(t, "Toxic Waste", doc["title"])
	_, hasPrice := doc["price"]
	assert.False(t, hasPrice)
}

func TestMemory_FetchOneNotFound(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	_, err := m.FetchOne(context.Background(), Query{
		Type:    "product",
		Filters: []Filter{{Field: "_id", Value: "missing"}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_FetchOffsetPastEnd(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	docs, err := m.Fetch(context.Background(), Query{Type: "product", Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_FetchRejectsUnsafeSortField(t *testing.T) {
	m := NewMemory()
	_, err := m.Fetch(context.Background(), Query{Type: "product", Sort: &Sort{Field: "createdAt; DROP TABLE documents"}})
	assert.Error(t, err)
}

func TestMemory_NumbersComeBackAsJSONNumbers(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)

	doc, err := m.FetchOne(context.Background(), Query{Type: "product", Filters: []Filter{{Field: "_id", Value: "p1"}}})
	require.NoError(t, err)
	assert.Equal(t, json.Number("29.99"), doc["price"])
}

func TestMemory_PatchSetUnsetCommit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Document{"_id": "n1", "_type": "newsletter", "email": "a@example.com", "status": "subscribed", "unsubscribedAt": "x"})
	require.NoError(t, err)

	updated, err := m.Patch("n1").
		Set(map[string]interface{}{"status": "unsubscribed", "_type": "hijack"}).
		Unset("unsubscribedAt").
		Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unsubscribed", updated["status"])
	assert.Equal(t, "newsletter", updated.Type())
	_, still := updated["unsubscribedAt"]
	assert.False(t, still)

	_, err = m.Patch("missing").Set(map[string]interface{}{"a": 1}).Commit(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_ReturnedDocumentsAreCopies(t *testing.T) {
	m := NewMemory()
	seedProducts(t, m)
	ctx := context.Background()

	doc, err := m.FetchOne(ctx, Query{Type: "product", Filters: []Filter{{Field: "_id", Value: "p1"}}})
	require.NoError(t, err)
	doc["title"] = "mutated"
	doc["slug"].(map[string]interface{})["current"] = "mutated"

	again, err := m.FetchOne(ctx, Query{Type: "product", Filters: []Filter{{Field: "_id", Value: "p1"}}})
	require.NoError(t, err)
	assert.Equal(t, "Toxic Waste", again["title"])
	v, _ := again.Lookup("slug.current")
	assert.Equal(t, "toxic-waste", v)
}

func TestBuildSelect(t *testing.T) {
	sql, args, err := buildSelect(Query{
		Type:    "product",
		Filters: []Filter{{Field: "featured", Value: true}, {Field: "slug.current", Value: "x"}},
		Sort:    &Sort{Field: "createdAt", Desc: true},
		Limit:   2,
		Offset:  4,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT body FROM documents WHERE doc_type = $1 AND body @> $2::jsonb AND body @> $3::jsonb ORDER BY body #> $4::text[] DESC NULLS LAST, created_at DESC, id DESC LIMIT $5 OFFSET $6", sql)
	assert.Equal(t, []interface{}{"product", `{"featured":true}`, `{"slug":{"current":"x"}}`, []string{"createdAt"}, 2, 4}, args)
}
