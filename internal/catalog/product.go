package catalog

// Product is a purchasable catalog item. Products are loaded once at startup and
// never mutated afterwards.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	BasePrice   float64  `json:"basePrice"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	KeyFeatures []string `json:"keyFeatures,omitempty"`
	Featured    bool     `json:"featured"`
	OnSale      bool     `json:"onSale"`
	InStock     bool     `json:"inStock"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty"`
}

// RatingOrZero returns the rating, or 0 when the product has none
func (p Product) RatingOrZero() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewCountOrZero returns the review count, or 0 when the product has none
func (p Product) ReviewCountOrZero() int {
	if p.ReviewCount == nil {
		return 0
	}
	return *p.ReviewCount
}
