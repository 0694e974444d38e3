package httpserver

import (
	"encoding/json"
	"time"

	"sickbeasts-storefront/internal/domain"
	cartsvc "sickbeasts-storefront/internal/service/cart"

	"github.com/shopspring/decimal"
)

// Prices are rendered as JSON numbers with their exact decimal digits.

type productView struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Slug               string                    `json:"slug"`
	Description        string                    `json:"description"`
	ShortDescription   string                    `json:"shortDescription"`
	Price              json.Number               `json:"price"`
	Sizes              []string                  `json:"sizes"`
	InStock            bool                      `json:"inStock"`
	Featured           bool                      `json:"featured"`
	ImageURL           string                    `json:"imageUrl"`
	SustainabilityInfo domain.SustainabilityInfo `json:"sustainabilityInfo"`
	CreatedAt          *time.Time                `json:"createdAt,omitempty"`
}

type lineItemView struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Size     string      `json:"size"`
	Quantity int         `json:"quantity"`
}

type cartView struct {
	Items       []lineItemView `json:"items"`
	CartOpen    bool           `json:"cartOpen"`
	TotalItems  int            `json:"totalItems"`
	TotalPrice  json.Number    `json:"totalPrice"`
	AddedToCart bool           `json:"addedToCart"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toProductView(p domain.Product) productView {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	info := p.SustainabilityInfo
	if info.Certifications == nil {
		info.Certifications = []string{}
	}
	v := productView{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		Description:        p.Description,
		ShortDescription:   p.ShortDescription,
		Price:              number(p.Price),
		Sizes:              sizes,
		InStock:            p.InStock,
		Featured:           p.Featured,
		ImageURL:           p.ImageURL,
		SustainabilityInfo: info,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		v.CreatedAt = &created
	}
	return v
}

func toProductViews(ps []domain.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductView(p))
	}
	return out
}

func toCartView(v cartsvc.View) cartView {
	items := make([]lineItemView, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, lineItemView{
			ID:       string(it.ID),
			Name:     it.Name,
			Price:    number(it.Price),
			Size:     it.Size,
			Quantity: it.Quantity,
		})
	}
	return cartView{
		Items:       items,
		CartOpen:    v.CartOpen,
		TotalItems:  v.TotalItems,
		TotalPrice:  number(v.TotalPrice),
		AddedToCart: v.AddedToCart,
	}
}
