package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

//go:embed data/products.json
var seed embed.FS

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidCatalog is returned when product data violates catalog invariants
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the read-only product list. It is safe for concurrent use.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a catalog from the given products, rejecting duplicate ids and
// negative prices. The slice is copied.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(c.products, products)

	for i, p := range c.products {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: product at index %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		if p.BasePrice < 0 {
			return nil, fmt.Errorf("%w: product %q has negative price", ErrInvalidCatalog, p.ID)
		}
		c.byID[p.ID] = i
	}

	return c, nil
}

// Load reads a JSON array of products from path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parse(data)
}

// LoadDefault loads the product data bundled with the binary
func LoadDefault() (*Catalog, error) {
	data, err := seed.ReadFile("data/products.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read bundled catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(products)
}

// Products returns the full product list. Callers must not modify it.
func (c *Catalog) Products() []Product {
	return c.products
}

// Get returns the product with the given id
func (c *Catalog) Get(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}
