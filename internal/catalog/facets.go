package catalog

import (
	"sort"
	"strings"
)

// FilterMetadata summarizes the catalog for building a filter sidebar
type FilterMetadata struct {
	Categories   []FacetCount     `json:"categories"`
	Brands       []FacetCount     `json:"brands"`
	PriceRange   PriceRange       `json:"priceRange"`
	Availability AvailabilityData `json:"availability"`
}

// FacetCount is a distinct value and how many products carry it
type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceRange is the lowest and highest base price
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AvailabilityData counts products by stock status
type AvailabilityData struct {
	InStock    int `json:"inStock"`
	OutOfStock int `json:"outOfStock"`
}

// Facets computes filter metadata over products. Category and brand values are
// grouped case-insensitively, keeping the first spelling seen, and sorted by name.
func Facets(products []Product) FilterMetadata {
	meta := FilterMetadata{
		Categories: []FacetCount{},
		Brands:     []FacetCount{},
	}

	categories := newCounter()
	brands := newCounter()
	for i, p := range products {
		categories.add(p.Category)
		brands.add(p.Brand)

		if i == 0 || p.BasePrice < meta.PriceRange.Min {
			meta.PriceRange.Min = p.BasePrice
		}
		if i == 0 || p.BasePrice > meta.PriceRange.Max {
			meta.PriceRange.Max = p.BasePrice
		}

		if p.InStock {
			meta.Availability.InStock++
		} else {
			meta.Availability.OutOfStock++
		}
	}

	meta.Categories = categories.counts()
	meta.Brands = brands.counts()
	return meta
}

type counter struct {
	order []string
	names map[string]string
	n     map[string]int
}

func newCounter() *counter {
	return &counter{names: map[string]string{}, n: map[string]int{}}
}

func (c *counter) add(value string) {
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if _, ok := c.names[key]; !ok {
		c.names[key] = value
		c.order = append(c.order, key)
	}
	c.n[key]++
}

func (c *counter) counts() []FacetCount {
	out := make([]FacetCount, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, FacetCount{Name: c.names[key], Count: c.n[key]})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
