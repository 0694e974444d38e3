package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaterials is reported when a product document carries no sustainability info.
const DefaultMaterials = "100% Organic Cotton"

type SustainabilityInfo struct {
	Materials       string   `json:"materials"`
	Certifications  []string `json:"certifications"`
	CarbonFootprint string   `json:"carbonFootprint"`
}

// DefaultSustainabilityInfo returns a fresh copy of the fallback sustainability block.
func DefaultSustainabilityInfo() SustainabilityInfo {
	return SustainabilityInfo{
		Materials:      DefaultMaterials,
		Certifications: []string{},
	}
}

// Product is the normalized catalog entry served to storefront clients.
type Product struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug"`
	Description        string             `json:"description"`
	ShortDescription   string             `json:"shortDescription"`
	Price              decimal.Decimal    `json:"price"`
	Sizes              []string           `json:"sizes"`
	InStock            bool               `json:"inStock"`
	Featured           bool               `json:"featured"`
	ImageURL           string             `json:"imageUrl"`
	SustainabilityInfo SustainabilityInfo `json:"sustainabilityInfo"`
	CreatedAt          time.Time          `json:"createdAt,omitzero"`
}

// HasSize reports whether size is one of the product's offered sizes.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
