// Package catalog turns content-store product documents into storefront
// products and serves filtered product listings.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"

	"github.com/shopspring/decimal"
)

// ErrInvalidDocument marks a product document the storefront cannot serve.
var ErrInvalidDocument = errors.New("invalid product document")

// DefaultImageHost is the CDN host used for asset references.
const DefaultImageHost = "cdn.sanity.io"

// ImageConfig locates uploaded image assets on the CDN.
type ImageConfig struct {
	Host      string
	ProjectID string
	Dataset   string
}

// RawProduct is a product document as stored. Pointer fields are optional.
type RawProduct struct {
	ID                 string             `json:"_id"`
	SystemCreatedAt    string             `json:"_createdAt"`
	Title              string             `json:"title"`
	Slug               slugField          `json:"slug"`
	Description        string             `json:"description"`
	ShortDescription   *string            `json:"shortDescription"`
	Price              *decimal.Decimal   `json:"price"`
	Sizes              []string           `json:"sizes"`
	InStock            *bool              `json:"inStock"`
	Featured           *bool              `json:"featured"`
	MainImage          *rawImage          `json:"mainImage"`
	SustainabilityInfo *rawSustainability `json:"sustainabilityInfo"`
	CreatedAt          string             `json:"createdAt"`
}

type rawImage struct {
	Asset struct {
		Ref string `json:"_ref"`
		URL string `json:"url"`
	} `json:"asset"`
}

type rawSustainability struct {
	Materials       string   `json:"materials"`
	Certifications  []string `json:"certifications"`
	CarbonFootprint string   `json:"carbonFootprint"`
}

// slugField accepts either a bare string or the {"current": "..."} object.
type slugField string

func (s *slugField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = slugField(v)
		return nil
	}
	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("slug: %w", err)
	}
	*s = slugField(obj.Current)
	return nil
}

// Normalizer maps raw product documents onto domain.Product.
type Normalizer struct {
	images ImageConfig
}

func NewNormalizer(images ImageConfig) *Normalizer {
	if images.Host == "" {
		images.Host = DefaultImageHost
	}
	return &Normalizer{images: images}
}

// Normalize decodes doc and applies the product defaults.
func (n *Normalizer) Normalize(doc document.Document) (domain.Product, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var rp RawProduct
	if err := json.Unmarshal(raw, &rp); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return n.FromRaw(rp)
}

// FromRaw applies the defaulting table:
//
//	shortDescription   ""
//	sizes              []
//	inStock            true
//	featured           false
//	imageUrl           ""
//	sustainabilityInfo {"100% Organic Cotton", [], ""}
func (n *Normalizer) FromRaw(rp RawProduct) (domain.Product, error) {
	if rp.ID == "" {
		return domain.Product{}, fmt.Errorf("%w: missing _id", ErrInvalidDocument)
	}
	price := decimal.Zero
	if rp.Price != nil {
		if rp.Price.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: %s has negative price", ErrInvalidDocument, rp.ID)
		}
		price = *rp.Price
	}

	p := domain.Product{
		ID:                 rp.ID,
		Name:               rp.Title,
		Slug:               string(rp.Slug),
		Description:        rp.Description,
		ShortDescription:   "",
		Price:              price,
		Sizes:              canonicalSizes(rp.Sizes),
		InStock:            true,
		Featured:           false,
		ImageURL:           n.imageURL(rp.MainImage),
		SustainabilityInfo: domain.DefaultSustainabilityInfo(),
		CreatedAt:          parseTime(rp.CreatedAt, rp.SystemCreatedAt),
	}
	if rp.ShortDescription != nil {
		p.ShortDescription = *rp.ShortDescription
	}
	if rp.InStock != nil {
		p.InStock = *rp.InStock
	}
	if rp.Featured != nil {
		p.Featured = *rp.Featured
	}
	if si := rp.SustainabilityInfo; si != nil {
		certs := make([]string, len(si.Certifications))
		copy(certs, si.Certifications)
		p.SustainabilityInfo = domain.SustainabilityInfo{
			Materials:       si.Materials,
			Certifications:  certs,
			CarbonFootprint: si.CarbonFootprint,
		}
	}
	return p, nil
}

// image-<id>-<w>x<h>-<format>
var assetRefRe = regexp.MustCompile(`^image-([A-Za-z0-9]+)-(\d+x\d+)-([a-z0-9]+)$`)

func (n *Normalizer) imageURL(img *rawImage) string {
	if img == nil {
		return ""
	}
	if img.Asset.URL != "" {
		return img.Asset.URL
	}
	m := assetRefRe.FindStringSubmatch(img.Asset.Ref)
	if m == nil || n.images.ProjectID == "" || n.images.Dataset == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/images/%s/%s/%s-%s.%s", n.images.Host, n.images.ProjectID, n.images.Dataset, m[1], m[2], m[3])
}

func canonicalSizes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func parseTime(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, c); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
