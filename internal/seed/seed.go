// Package seed loads product documents into the content store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"
	productsvc "sickbeasts-storefront/internal/service/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var launchCatalog []byte

// Product is one catalog entry as written by a seed file or an import.
type Product struct {
	Title              string             `yaml:"title"`
	Slug               string             `yaml:"slug"`
	Description        string             `yaml:"description"`
	ShortDescription   string             `yaml:"shortDescription"`
	Price              decimal.Decimal    `yaml:"price"`
	Sizes              []string           `yaml:"sizes"`
	InStock            bool               `yaml:"inStock"`
	Featured           bool               `yaml:"featured"`
	SustainabilityInfo SustainabilityInfo `yaml:"sustainabilityInfo"`
	// Image is an asset reference ("image-<id>-<w>x<h>-<fmt>") or an absolute URL.
	Image            string   `yaml:"image"`
	AdditionalImages []string `yaml:"additionalImages"`
}

type SustainabilityInfo struct {
	Materials       string   `yaml:"materials"`
	Certifications  []string `yaml:"certifications"`
	CarbonFootprint string   `yaml:"carbonFootprint"`
}

func (s SustainabilityInfo) empty() bool {
	return s.Materials == "" && len(s.Certifications) == 0 && s.CarbonFootprint == ""
}

// optionalFields are left out of Fields when unset and cleared on update.
var optionalFields = []string{"sustainabilityInfo", "mainImage", "additionalImages"}

// Outcome reports what Upsert did with one product.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
)

// Summary counts the outcomes of a batch.
type Summary struct {
	Created int
	Updated int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case Created:
		s.Created++
	case Updated:
		s.Updated++
	}
}

type store interface {
	document.Reader
	document.Writer
}

// LaunchCatalog returns the embedded launch products.
func LaunchCatalog() ([]Product, error) {
	var file struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(launchCatalog, &file); err != nil {
		return nil, fmt.Errorf("parse launch catalog: %w", err)
	}
	return file.Products, nil
}

// Apply upserts the launch catalog. It is idempotent: products are matched
// by slug and patched in place.
func Apply(ctx context.Context, docs store, logger *zap.Logger) (Summary, error) {
	products, err := LaunchCatalog()
	if err != nil {
		return Summary{}, err
	}
	return UpsertAll(ctx, docs, products, logger)
}

// UpsertAll upserts products in order and stops at the first failure.
func UpsertAll(ctx context.Context, docs store, products []Product, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sum Summary
	now := time.Now().UTC()
	for _, p := range products {
		outcome, err := Upsert(ctx, docs, p, now)
		if err != nil {
			return sum, fmt.Errorf("upsert product %q: %w", p.Title, err)
		}
		sum.add(outcome)
		logger.Debug("seeded product", zap.String("slug", p.SlugOrDerived()), zap.Bool("created", outcome == Created))
	}
	logger.Info("seed complete", zap.Int("created", sum.Created), zap.Int("updated", sum.Updated))
	return sum, nil
}

// SlugOrDerived returns the explicit slug, or one derived from the title.
func (p Product) SlugOrDerived() string {
	if s := productsvc.Slugify(p.Slug); s != "" {
		return s
	}
	return productsvc.Slugify(p.Title)
}

// Validate checks the fields every product document needs.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title required", domain.ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price", domain.ErrInvalidInput)
	}
	if p.SlugOrDerived() == "" {
		return fmt.Errorf("%w: title %q yields an empty slug", domain.ErrInvalidInput, p.Title)
	}
	return nil
}

// Fields renders the product as content-store fields, without createdAt.
// Empty sustainability info is omitted so readers apply their defaults.
func (p Product) Fields() map[string]interface{} {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	fields := map[string]interface{}{
		"title":            strings.TrimSpace(p.Title),
		"slug":             map[string]interface{}{"_type": "slug", "current": p.SlugOrDerived()},
		"description":      p.Description,
		"shortDescription": p.ShortDescription,
		"price":            json.Number(p.Price.String()),
		"sizes":            sizes,
		"inStock":          p.InStock,
		"featured":         p.Featured,
	}
	if info := p.SustainabilityInfo; !info.empty() {
		certs := info.Certifications
		if certs == nil {
			certs = []string{}
		}
		fields["sustainabilityInfo"] = map[string]interface{}{
			"materials":       info.Materials,
			"certifications":  certs,
			"carbonFootprint": info.CarbonFootprint,
		}
	}
	if p.Image != "" {
		fields["mainImage"] = imageField(p.Image)
	}
	if len(p.AdditionalImages) > 0 {
		images := make([]interface{}, 0, len(p.AdditionalImages))
		for _, img := range p.AdditionalImages {
			images = append(images, imageField(img))
		}
		fields["additionalImages"] = images
	}
	return fields
}

func imageField(src string) map[string]interface{} {
	asset := map[string]interface{}{"_type": "reference", "_ref": src}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		asset = map[string]interface{}{"url": src}
	}
	return map[string]interface{}{"_type": "image", "asset": asset}
}

// Upsert patches the product with the same slug, or creates it stamped with now.
func Upsert(ctx context.Context, docs store, p Product, now time.Time) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	fields := p.Fields()
	existing, err := docs.FetchOne(ctx, document.Query{
		Type:    catalog.ProductType,
		Filters: []document.Filter{{Field: "slug.current", Value: p.SlugOrDerived()}},
		Fields:  []string{document.FieldID},
	})
	switch {
	case err == nil:
		var unset []string
		for _, f := range optionalFields {
			if _, ok := fields[f]; !ok {
				unset = append(unset, f)
			}
		}
		if _, err := docs.Patch(existing.ID()).Set(fields).Unset(unset...).Commit(ctx); err != nil {
			return 0, fmt.Errorf("patch %s: %w", existing.ID(), err)
		}
		return Updated, nil
	case !errors.Is(err, domain.ErrNotFound):
		return 0, fmt.Errorf("lookup slug: %w", err)
	}

	doc := document.Document(fields)
	doc[document.FieldType] = catalog.ProductType
	doc["createdAt"] = now.Format(time.RFC3339)
	if _, err := docs.Create(ctx, doc); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	return Created, nil
}

// Writer upserts products into a content store. CSV imports use it.
type Writer struct {
	docs store
	now  func() time.Time
}

func NewWriter(docs store) *Writer {
	return &Writer{docs: docs, now: func() time.Time { return time.Now().UTC() }}
}

func (w *Writer) Upsert(ctx context.Context, p Product) (Outcome, error) {
	return Upsert(ctx, w.docs, p, w.now())
}
