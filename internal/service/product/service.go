package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrMissingFields is returned when title or price is absent.
	ErrMissingFields = errors.New("missing required fields: title and price are required")
	// ErrInvalidPrice is returned for non-numeric or negative prices.
	ErrInvalidPrice = errors.New("price must be a non-negative number")
	// ErrSlugTaken is returned when another product already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
)

type catalogReader interface {
	ListProducts(ctx context.Context, opts catalog.ListOptions) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
}

// Service reads products through the catalog and writes new product documents.
type Service struct {
	catalog catalogReader
	docs    document.Writer
	norm    *catalog.Normalizer
	logger  *zap.Logger
	now     func() time.Time
}

func New(cat catalogReader, docs document.Writer, norm *catalog.Normalizer, logger *zap.Logger) *Service {
	if norm == nil {
		norm = catalog.NewNormalizer(catalog.ImageConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog: cat,
		docs:    docs,
		norm:    norm,
		logger:  logger.Named("product"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, opts catalog.ListOptions) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx, opts)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.catalog.GetProductByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return s.catalog.GetProductBySlug(ctx, slug)
}

// Create stores a product document built from fields. Unknown fields are kept
// as given; system fields are dropped. A slug is derived from the title when
// absent.
func (s *Service) Create(ctx context.Context, fields map[string]interface{}) (domain.Product, error) {
	title, _ := fields["title"].(string)
	title = strings.TrimSpace(title)
	rawPrice, hasPrice := fields["price"]
	if title == "" || !hasPrice || rawPrice == nil {
		return domain.Product{}, ErrMissingFields
	}
	price, err := parsePrice(rawPrice)
	if err != nil {
		return domain.Product{}, err
	}

	doc := document.Document{}
	for k, v := range fields {
		if strings.HasPrefix(k, "_") {
			continue
		}
		doc[k] = v
	}
	slug := slugValue(fields["slug"])
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return domain.Product{}, fmt.Errorf("%w: title %q yields an empty slug", domain.ErrInvalidInput, title)
	}
	doc[document.FieldType] = catalog.ProductType
	doc["title"] = title
	doc["price"] = json.Number(price.String())
	doc["slug"] = map[string]interface{}{"_type": "slug", "current": slug}
	doc["createdAt"] = s.now().Format(time.RFC3339)

	switch _, err := s.catalog.GetProductBySlug(ctx, slug); {
	case err == nil, errors.Is(err, catalog.ErrInvalidDocument):
		return domain.Product{}, ErrSlugTaken
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Product{}, err
	}

	created, err := s.docs.Create(ctx, doc)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.Product{}, ErrSlugTaken
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: create product: %w", catalog.ErrUpstream, err)
	}
	s.logger.Info("product created", zap.String("id", created.ID()), zap.String("slug", slug))
	return s.norm.Normalize(created)
}

func parsePrice(v interface{}) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch p := v.(type) {
	case json.Number:
		parsed, err := decimal.NewFromString(p.String())
		if err != nil {
			return decimal.Decimal{}, ErrInvalidPrice
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	default:
		return decimal.Decimal{}, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return d, nil
}

// slugValue accepts "x" or {"current": "x"}.
func slugValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return Slugify(s)
	case map[string]interface{}:
		if cur, ok := s["current"].(string); ok {
			return Slugify(cur)
		}
	}
	return ""
}

// Slugify lower-cases s, folds accents, turns whitespace into dashes and drops
// everything except letters, digits, underscores and dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
