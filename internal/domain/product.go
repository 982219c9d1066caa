// Package domain holds the Purriosity entities shared by services, backends and the API.
package domain

import "time"

// DefaultCurrency is used when a product row carries no currency.
const DefaultCurrency = "EUR"

// Product is a cat product shown in the catalog. Every field is populated
// once a row has passed through the catalog mapper.
type Product struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	Images           []string  `json:"images"`
	Price            float64   `json:"price"`
	Currency         string    `json:"currency"`
	AffiliateURL     string    `json:"affiliate_url"`
	PurrCount        int       `json:"purr_count"`
	ViewCount        int       `json:"view_count"`
	StarRating       float64   `json:"star_rating"`
	Tags             []string  `json:"tags"`
	Categories       []string  `json:"categories"`
	CreatedAt        time.Time `json:"created_at"`
	IsActive         bool      `json:"is_active"`
}

// PrimaryImage returns the first image, or "" when the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// FilterLabels returns the labels used for category filtering:
// categories when set, otherwise tags.
func (p *Product) FilterLabels() []string {
	if len(p.Categories) > 0 {
		return p.Categories
	}
	return p.Tags
}

// ActiveOnly returns the active products, preserving order.
func ActiveOnly(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

// ProductInput is the admin-editable part of a product.
type ProductInput struct {
	Title            string   `json:"title" validate:"notblank,max=200"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description" validate:"max=300"`
	Images           []string `json:"images" validate:"max=20,dive,notblank"`
	Price            float64  `json:"price" validate:"gte=0"`
	Currency         string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	AffiliateURL     string   `json:"affiliate_url,omitempty" validate:"omitempty,url"`
	StarRating       float64  `json:"star_rating" validate:"gte=0,lte=5"`
	Tags             []string `json:"tags" validate:"max=30,dive,notblank"`
	Categories       []string `json:"categories,omitempty" validate:"max=30,dive,notblank"`
	IsActive         *bool    `json:"is_active,omitempty"`
}
