package seed

import (
	"context"
	"testing"
	"time"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/repository/document"

	"github.com/shopspring/decimal"
)

func TestLaunchCatalog(t *testing.T) {
	products, err := LaunchCatalog()
	if err != nil {
		t.Fatalf("LaunchCatalog: %v", err)
	}
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			t.Fatalf("%s: %v", p.Title, err)
		}
	}
	if got := products[3].SlugOrDerived(); got != "404-planet-not-found" {
		t.Fatalf("unexpected slug %q", got)
	}
	if !products[2].Price.Equal(decimal.RequireFromString("32.99")) {
		t.Fatalf("unexpected price %s", products[2].Price)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemory()

	sum, err := Apply(ctx, store, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sum.Created != 6 || sum.Updated != 0 {
		t.Fatalf("unexpected first summary %+v", sum)
	}

	sum, err = Apply(ctx, store, nil)
	if err != nil {
		t.Fatalf("Apply again: %v", err)
	}
	if sum.Created != 0 || sum.Updated != 6 {
		t.Fatalf("unexpected second summary %+v", sum)
	}

	client := catalog.NewClient(store, catalog.NewNormalizer(catalog.ImageConfig{}), nil)
	products, err := client.ListProducts(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 6 {
		t.Fatalf("expected 6 products after reseed, got %d", len(products))
	}

	featured := true
	products, err = client.ListProducts(ctx, catalog.ListOptions{Featured: &featured})
	if err != nil {
		t.Fatalf("ListProducts featured: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 featured products, got %d", len(products))
	}

	p, err := client.GetProductBySlug(ctx, "toxic-waste")
	if err != nil {
		t.Fatalf("GetProductBySlug: %v", err)
	}
	if p.Name != "Toxic Waste" || p.Price.String() != "29.99" || len(p.SustainabilityInfo.Certifications) != 2 {
		t.Fatalf("unexpected product %+v", p)
	}
}

func TestUpsertPatchesBySlugAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemory()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Product{Title: "Skate or Die", Price: decimal.RequireFromString("29.99"), Sizes: []string{"M"}, InStock: true}
	if outcome, err := Upsert(ctx, store, p, first); err != nil || outcome != Created {
		t.Fatalf("first upsert: %v %v", outcome, err)
	}

	p.Price = decimal.RequireFromString("24.99")
	p.Image = "https://images.example/skate.png"
	if outcome, err := Upsert(ctx, store, p, first.Add(time.Hour)); err != nil || outcome != Updated {
		t.Fatalf("second upsert: %v %v", outcome, err)
	}

	doc, err := store.FetchOne(ctx, document.Query{Type: catalog.ProductType, Filters: []document.Filter{{Field: "slug.current", Value: "skate-or-die"}}})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if doc["createdAt"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("createdAt overwritten: %v", doc["createdAt"])
	}
	norm := catalog.NewNormalizer(catalog.ImageConfig{})
	product, err := norm.Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if product.Price.String() != "24.99" || product.ImageURL != "https://images.example/skate.png" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestUpsertClearsRemovedOptionalFields(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Product{
		Title:              "Toxic Waste",
		Price:              decimal.NewFromInt(30),
		Image:              "https://images.example/toxic.png",
		SustainabilityInfo: SustainabilityInfo{Materials: "Recycled Poly"},
	}
	if _, err := Upsert(ctx, store, p, now); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	p.Image = ""
	p.SustainabilityInfo = SustainabilityInfo{}
	if outcome, err := Upsert(ctx, store, p, now); err != nil || outcome != Updated {
		t.Fatalf("second upsert: %v %v", outcome, err)
	}

	doc, err := store.FetchOne(ctx, document.Query{Type: catalog.ProductType, Filters: []document.Filter{{Field: "slug.current", Value: "toxic-waste"}}})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if _, ok := doc["sustainabilityInfo"]; ok {
		t.Fatalf("sustainabilityInfo not cleared: %v", doc["sustainabilityInfo"])
	}
	if _, ok := doc["mainImage"]; ok {
		t.Fatalf("mainImage not cleared: %v", doc["mainImage"])
	}
	product, err := catalog.NewNormalizer(catalog.ImageConfig{}).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if product.SustainabilityInfo.Materials != "100% Organic Cotton" {
		t.Fatalf("expected default materials, got %+v", product.SustainabilityInfo)
	}
}

func TestUpsertRejectsInvalidProducts(t *testing.T) {
	store := document.NewMemory()
	for _, p := range []Product{
		{Price: decimal.NewFromInt(10)},
		{Title: "Bad", Price: decimal.NewFromInt(-1)},
		{Title: "!!!", Price: decimal.NewFromInt(1)},
	} {
		if _, err := Upsert(context.Background(), store, p, time.Now()); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
	}
}
