// Package importer bulk-loads products from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sickbeasts-storefront/internal/seed"

	"github.com/shopspring/decimal"
)

// Columns understood by the importer. Unknown columns are ignored.
const (
	colTitle            = "title"
	colSlug             = "slug"
	colDescription      = "description"
	colShortDescription = "shortDescription"
	colPrice            = "price"
	colSizes            = "sizes"
	colInStock          = "inStock"
	colFeatured         = "featured"
	colMaterials        = "materials"
	colCertifications   = "certifications"
	colCarbonFootprint  = "carbonFootprint"
	colImage            = "image"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product seed.Product) (seed.Outcome, error)
}

// CSVImporter reads product CSV files and upserts products by slug.
type CSVImporter struct {
	reader *csv.Reader
	writer ProductWriter
}

func NewCSVImporter(r io.Reader, writer ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		writer: writer,
	}
}

// Parse reads every row. A row with an empty title and an image continues
// the previous product and appends to its additional images.
func (i *CSVImporter) Parse() ([]seed.Product, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index[colTitle]; !ok {
		return nil, fmt.Errorf("read headers: missing %q column", colTitle)
	}
	if _, ok := index[colPrice]; !ok {
		return nil, fmt.Errorf("read headers: missing %q column", colPrice)
	}

	var (
		products []seed.Product
		current  *seed.Product
	)
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		title := pick(record, index, colTitle)
		image := pick(record, index, colImage)
		if title == "" {
			if image == "" {
				continue
			}
			if current == nil {
				return nil, fmt.Errorf("line %d: image row before any product", line)
			}
			current.AdditionalImages = append(current.AdditionalImages, image)
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, p)
		current = &products[len(products)-1]
	}
	return products, nil
}

// Run parses the file and upserts each product, stopping at the first error.
func (i *CSVImporter) Run(ctx context.Context) (seed.Summary, error) {
	products, err := i.Parse()
	if err != nil {
		return seed.Summary{}, err
	}
	var sum seed.Summary
	for _, p := range products {
		outcome, err := i.writer.Upsert(ctx, p)
		if err != nil {
			return sum, fmt.Errorf("upsert product %q: %w", p.SlugOrDerived(), err)
		}
		switch outcome {
		case seed.Created:
			sum.Created++
		case seed.Updated:
			sum.Updated++
		}
	}
	return sum, nil
}

func parseRow(record []string, index map[string]int) (seed.Product, error) {
	p := seed.Product{
		Title:              pick(record, index, colTitle),
		Slug:               pick(record, index, colSlug),
		Description:        pick(record, index, colDescription),
		ShortDescription:   pick(record, index, colShortDescription),
		Sizes:              splitList(pick(record, index, colSizes)),
		Image:              pick(record, index, colImage),
		SustainabilityInfo: seed.SustainabilityInfo{
			Materials:       pick(record, index, colMaterials),
			Certifications:  splitList(pick(record, index, colCertifications)),
			CarbonFootprint: pick(record, index, colCarbonFootprint),
		},
	}

	rawPrice := pick(record, index, colPrice)
	if rawPrice == "" {
		return p, fmt.Errorf("product %q: price required", p.Title)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil || price.IsNegative() {
		return p, fmt.Errorf("product %q: invalid price %q", p.Title, rawPrice)
	}
	p.Price = price

	if p.InStock, err = parseBool(pick(record, index, colInStock), true); err != nil {
		return p, fmt.Errorf("product %q: inStock: %w", p.Title, err)
	}
	if p.Featured, err = parseBool(pick(record, index, colFeatured), false); err != nil {
		return p, fmt.Errorf("product %q: featured: %w", p.Title, err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func parseBool(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
