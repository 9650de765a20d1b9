package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Defaults applied when page or limit are not supplied
const (
	DefaultPage  = 1
	DefaultLimit = 12
)

// Sort keys understood by RunQuery. Anything else sorts by numeric id.
const (
	SortByPrice       = "price"
	SortByName        = "name"
	SortByRating      = "rating"
	SortByReviewCount = "reviewCount"
	SortByFeatured    = "featured"
	SortByID          = "id"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Query holds the filter, sort and pagination parameters of one listing request.
// Numeric fields may hold NaN when the wire value could not be parsed; every
// comparison against NaN is false, so such a filter matches nothing.
type Query struct {
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	// Featured and OnSale only ever narrow to true; there is no false mode.
	Featured bool
	OnSale   bool
	InStock  *bool

	SortBy    string
	SortOrder string

	Page  float64
	Limit float64
}

// NewQuery returns a query with default pagination and no filters
func NewQuery() Query {
	return Query{Page: DefaultPage, Limit: DefaultLimit}
}

// AppliedFilters echoes the filters that took part in a query
type AppliedFilters struct {
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	Search   string   `json:"search,omitempty"`
	Featured *bool    `json:"featured,omitempty"`
	OnSale   *bool    `json:"onSale,omitempty"`
	InStock  *bool    `json:"inStock,omitempty"`
}

// Result is one page of a listing plus pagination metadata
type Result struct {
	Products   []Product      `json:"products"`
	Total      int            `json:"total"`
	Page       Number         `json:"page"`
	Limit      Number         `json:"limit"`
	TotalPages Number         `json:"totalPages"`
	Filters    AppliedFilters `json:"filters"`
}

// Number is a float that encodes NaN and infinities as JSON null
type Number float64

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// RunQuery filters, sorts and paginates products. It never mutates its input
// and never fails: malformed numeric input degrades to an empty page.
func RunQuery(products []Product, q Query) Result {
	filtered, applied := filter(products, q)
	sortProducts(filtered, q.SortBy, q.SortOrder)

	total := len(filtered)
	start := (q.Page - 1) * q.Limit
	page := slice(filtered, start, start+q.Limit)

	return Result{
		Products:   page,
		Total:      total,
		Page:       Number(q.Page),
		Limit:      Number(q.Limit),
		TotalPages: Number(math.Ceil(float64(total) / q.Limit)),
		Filters:    applied,
	}
}

func filter(products []Product, q Query) ([]Product, AppliedFilters) {
	var applied AppliedFilters
	preds := make([]func(Product) bool, 0, 8)

	if q.Category != "" {
		applied.Category = q.Category
		preds = append(preds, func(p Product) bool {
			return strings.EqualFold(p.Category, q.Category)
		})
	}

	if q.Brand != "" {
		applied.Brand = q.Brand
		preds = append(preds, func(p Product) bool {
			return p.Brand != "" && strings.EqualFold(p.Brand, q.Brand)
		})
	}

	if q.MinPrice != nil {
		lo := *q.MinPrice
		if !math.IsNaN(lo) {
			applied.MinPrice = &lo
		}
		preds = append(preds, func(p Product) bool { return p.BasePrice >= lo })
	}

	if q.MaxPrice != nil {
		hi := *q.MaxPrice
		if !math.IsNaN(hi) {
			applied.MaxPrice = &hi
		}
		preds = append(preds, func(p Product) bool { return p.BasePrice <= hi })
	}

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		applied.Search = q.Search
		preds = append(preds, func(p Product) bool { return matchesSearch(p, term) })
	}

	if q.Featured {
		applied.Featured = boolPtr(true)
		preds = append(preds, func(p Product) bool { return p.Featured })
	}

	if q.OnSale {
		applied.OnSale = boolPtr(true)
		preds = append(preds, func(p Product) bool { return p.OnSale })
	}

	if q.InStock != nil {
		want := *q.InStock
		applied.InStock = boolPtr(want)
		preds = append(preds, func(p Product) bool { return p.InStock == want })
	}

	out := make([]Product, 0, len(products))
next:
	for _, p := range products {
		for _, pred := range preds {
			if !pred(p) {
				continue next
			}
		}
		out = append(out, p)
	}
	return out, applied
}

// matchesSearch expects term to be trimmed and lowercased already
func matchesSearch(p Product, term string) bool {
	if containsFold(p.Name, term) ||
		containsFold(p.Description, term) ||
		containsFold(p.Brand, term) ||
		containsFold(p.Category, term) {
		return true
	}
	for _, tag := range p.Tags {
		if containsFold(tag, term) {
			return true
		}
	}
	for _, feature := range p.KeyFeatures {
		if containsFold(feature, term) {
			return true
		}
	}
	return false
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

func sortProducts(products []Product, sortBy, sortOrder string) {
	cmp := comparator(sortBy)
	desc := sortOrder == SortOrderDesc

	// no tiebreaker exists, so stability is what keeps equal keys in filter order
	sort.SliceStable(products, func(i, j int) bool {
		c := cmp(products[i], products[j])
		if desc {
			c = -c
		}
		return c < 0
	})
}

func comparator(sortBy string) func(a, b Product) int {
	switch sortBy {
	case SortByPrice:
		return func(a, b Product) int { return compareFloat(a.BasePrice, b.BasePrice) }
	case SortByName:
		return func(a, b Product) int {
			return compareString(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByRating:
		return func(a, b Product) int { return compareFloat(a.RatingOrZero(), b.RatingOrZero()) }
	case SortByReviewCount:
		return func(a, b Product) int {
			return compareFloat(float64(a.ReviewCountOrZero()), float64(b.ReviewCountOrZero()))
		}
	case SortByFeatured:
		return func(a, b Product) int { return compareFloat(boolKey(a.Featured), boolKey(b.Featured)) }
	default:
		return func(a, b Product) int { return compareFloat(numericID(a.ID), numericID(b.ID)) }
	}
}

// compareFloat treats NaN as equal to everything
func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolKey(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func numericID(id string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(id), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// slice returns products[start:end] with array slice semantics: NaN bounds
// count as 0, fractions truncate, negative bounds count back from the end and
// everything is clamped to the slice length.
func slice(products []Product, start, end float64) []Product {
	n := len(products)
	from := relativeIndex(start, n)
	to := relativeIndex(end, n)
	if to <= from {
		return []Product{}
	}
	out := make([]Product, to-from)
	copy(out, products[from:to])
	return out
}

func relativeIndex(x float64, n int) int {
	if math.IsNaN(x) {
		return 0
	}
	x = math.Trunc(x)
	if x < 0 {
		x += float64(n)
		if x < 0 {
			return 0
		}
		return int(x)
	}
	if x > float64(n) {
		return n
	}
	return int(x)
}

func boolPtr(b bool) *bool {
	return &b
}
