package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"

	"go.uber.org/zap"
)

const (
	ProductType  = "product"
	DefaultLimit = 50
	DefaultSort  = "createdAt desc"
)

var (
	// ErrUpstream wraps any content-store failure.
	ErrUpstream = errors.New("content store unavailable")
	// ErrInvalidSort rejects sort expressions other than "<field> [asc|desc]".
	ErrInvalidSort = errors.New("invalid sort expression")
)

var productFields = []string{
	"title", "slug", "description", "shortDescription", "price", "sizes",
	"inStock", "featured", "mainImage", "sustainabilityInfo", "createdAt",
}

// ListOptions narrows a product listing. Zero values mean defaults.
type ListOptions struct {
	Featured *bool
	Limit    int
	Sort     string
}

// Client reads products from the content store.
type Client struct {
	docs   document.Reader
	norm   *Normalizer
	logger *zap.Logger
}

func NewClient(docs document.Reader, norm *Normalizer, logger *zap.Logger) *Client {
	if norm == nil {
		norm = NewNormalizer(ImageConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{docs: docs, norm: norm, logger: logger.Named("catalog")}
}

// ListProducts returns at most opts.Limit products in the requested order.
func (c *Client) ListProducts(ctx context.Context, opts ListOptions) ([]domain.Product, error) {
	sort, err := ParseSort(opts.Sort)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := document.Query{
		Type:   ProductType,
		Sort:   &sort,
		Fields: productFields,
	}
	if opts.Featured != nil {
		q.Filters = append(q.Filters, document.Filter{Field: "featured", Value: *opts.Featured})
	}

	// Invalid documents are skipped, so keep paging until limit valid
	// products are found or the store runs out.
	out := make([]domain.Product, 0, limit)
	for {
		q.Limit = limit - len(out)
		docs, err := c.docs.Fetch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%w: list products: %w", ErrUpstream, err)
		}
		for _, d := range docs {
			p, err := c.norm.Normalize(d)
			if err != nil {
				c.logger.Warn("skip product document", zap.String("id", d.ID()), zap.Error(err))
				continue
			}
			out = append(out, p)
		}
		if len(out) == limit || len(docs) < q.Limit {
			return out, nil
		}
		q.Offset += len(docs)
	}
}

// GetProductByID returns domain.ErrNotFound when no product has the id.
func (c *Client) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	return c.getOne(ctx, document.FieldID, id)
}

// GetProductBySlug returns domain.ErrNotFound when no product has the slug.
func (c *Client) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return c.getOne(ctx, "slug.current", slug)
}

func (c *Client) getOne(ctx context.Context, field, value string) (domain.Product, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Product{}, domain.ErrNotFound
	}
	doc, err := c.docs.FetchOne(ctx, document.Query{
		Type:    ProductType,
		Filters: []document.Filter{{Field: field, Value: value}},
		Fields:  productFields,
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: get product: %w", ErrUpstream, err)
	}
	return c.norm.Normalize(doc)
}

// ParseSort reads "<field> [asc|desc]". An empty string yields DefaultSort.
func ParseSort(expr string) (document.Sort, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultSort
	}
	parts := strings.Fields(expr)
	if len(parts) > 2 || !document.ValidFieldPath(parts[0]) {
		return document.Sort{}, fmt.Errorf("%w: %q", ErrInvalidSort, expr)
	}
	s := document.Sort{Field: parts[0]}
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
		case "desc":
			s.Desc = true
		default:
			return document.Sort{}, fmt.Errorf("%w: %q", ErrInvalidSort, expr)
		}
	}
	return s, nil
}
