package catalog

import (
	"context"
	"errors"
	"testing"

	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededClient(t *testing.T) *Client {
	t.Helper()
	store := document.NewMemory()
	ctx := context.Background()
	for _, d := range []document.Document{
		{"_id": "p1", "_type": "product", "title": "Toxic Waste", "featured": true, "price": 29.99, "createdAt": "2024-01-01T00:00:00Z", "slug": map[string]interface{}{"current": "toxic-waste"}},
		{"_id": "p2", "_type": "product", "title": "Skate or Die", "featured": false, "price": 29.99, "createdAt": "2024-02-01T00:00:00Z"},
		{"_id": "p3", "_type": "product", "title": "Recycle Your Politicians", "featured": true, "price": 32.99, "createdAt": "2024-03-01T00:00:00Z"},
		{"_id": "p4", "_type": "product", "title": "Apocalypse Skater", "featured": true, "price": 29.99, "createdAt": "2024-04-01T00:00:00Z"},
		{"_id": "p5", "_type": "product", "title": "Broken", "featured": true, "price": -5, "createdAt": "2024-05-01T00:00:00Z"},
		{"_id": "n1", "_type": "newsletter", "email": "a@example.com"},
	} {
		_, err := store.Create(ctx, d)
		require.NoError(t, err)
	}
	return NewClient(store, nil, nil)
}

func productIDs(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestListProducts_FeaturedLimitNewestFirst(t *testing.T) {
	c := seededClient(t)
	featured := true

	got, err := c.ListProducts(context.Background(), ListOptions{Featured: &featured, Limit: 2})
	require.NoError(t, err)
	require.LessOrEqual(t, len(got), 2)
	for _, p := range got {
		assert.True(t, p.Featured)
	}
	// p5 is newest but invalid; the next valid product takes its place.
	assert.Equal(t, []string{"p4", "p3"}, productIDs(got))

	got, err = c.ListProducts(context.Background(), ListOptions{Featured: &featured, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p1"}, productIDs(got))

	got, err = c.ListProducts(context.Background(), ListOptions{Featured: &featured, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p1"}, productIDs(got))
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt))
	}
}

func TestListProducts_DefaultsAndSort(t *testing.T) {
	c := seededClient(t)

	got, err := c.ListProducts(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p2", "p1"}, productIDs(got))

	notFeatured := false
	got, err = c.ListProducts(context.Background(), ListOptions{Featured: &notFeatured})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, productIDs(got))

	got, err = c.ListProducts(context.Background(), ListOptions{Sort: "title asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p2", "p1"}, productIDs(got))

	got, err = c.ListProducts(context.Background(), ListOptions{Sort: "createdAt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, productIDs(got))
}

func TestListProducts_InvalidSort(t *testing.T) {
	c := seededClient(t)
	for _, s := range []string{"createdAt sideways", "price desc extra", "price;drop"} {
		_, err := c.ListProducts(context.Background(), ListOptions{Sort: s})
		assert.ErrorIs(t, err, ErrInvalidSort, s)
	}
}

func TestGetProduct(t *testing.T) {
	c := seededClient(t)
	ctx := context.Background()

	p, err := c.GetProductByID(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, "Recycle Your Politicians", p.Name)
	assert.Equal(t, "32.99", p.Price.String())

	p, err = c.GetProductBySlug(ctx, "toxic-waste")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = c.GetProductByID(ctx, "n1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.GetProductBySlug(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.GetProductByID(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetProductByID(ctx, "p5")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestListProducts_RefillStopsWhenStoreIsExhausted(t *testing.T) {
	store := document.NewMemory()
	ctx := context.Background()
	for _, d := range []document.Document{
		{"_id": "b1", "_type": "product", "title": "Broken", "price": -1, "createdAt": "2024-03-01T00:00:00Z"},
		{"_id": "b2", "_type": "product", "title": "Also Broken", "price": -2, "createdAt": "2024-02-01T00:00:00Z"},
		{"_id": "ok", "_type": "product", "title": "Fine", "price": 10, "createdAt": "2024-01-01T00:00:00Z"},
	} {
		_, err := store.Create(ctx, d)
		require.NoError(t, err)
	}
	c := NewClient(store, nil, nil)

	got, err := c.ListProducts(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, productIDs(got))

	got, err = c.ListProducts(ctx, ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, productIDs(got))
}

type failingReader struct{ err error }

func (f failingReader) Fetch(context.Context, document.Query) ([]document.Document, error) {
	return nil, f.err
}

func (f failingReader) FetchOne(context.Context, document.Query) (document.Document, error) {
	return nil, f.err
}

func TestClient_UpstreamErrorsAreDistinguishable(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewClient(failingReader{err: boom}, nil, nil)

	_, err := c.ListProducts(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, boom)

	_, err = c.GetProductBySlug(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, document.Sort{Field: "createdAt", Desc: true}, s)

	s, err = ParseSort("  price  ASC ")
	require.NoError(t, err)
	assert.Equal(t, document.Sort{Field: "price"}, s)
}
