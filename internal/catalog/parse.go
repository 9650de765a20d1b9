package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ParseQuery maps listing query-string parameters onto a Query. Empty values are
// treated as absent. Unparsable numbers become NaN instead of an error.
func ParseQuery(values url.Values) Query {
	q := NewQuery()

	q.Category = values.Get("category")
	q.Brand = values.Get("brand")
	q.Search = values.Get("search")

	if v := values.Get("minPrice"); v != "" {
		f := parseFloat(v)
		q.MinPrice = &f
	}
	if v := values.Get("maxPrice"); v != "" {
		f := parseFloat(v)
		q.MaxPrice = &f
	}

	q.Featured = values.Get("featured") == "true"
	q.OnSale = values.Get("onSale") == "true"

	switch values.Get("inStock") {
	case "true":
		q.InStock = boolPtr(true)
	case "false":
		q.InStock = boolPtr(false)
	}

	q.SortBy = values.Get("sortBy")
	q.SortOrder = values.Get("sortOrder")

	if v := values.Get("page"); v != "" {
		q.Page = parseInt(v)
	}
	if v := values.Get("limit"); v != "" {
		q.Limit = parseInt(v)
	}

	return q
}

// CacheKey returns a stable key for the listing parameters in values
func CacheKey(values url.Values) string {
	// Encode sorts by key
	return "products:" + values.Encode()
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseInt(s string) float64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return math.NaN()
	}
	return float64(n)
}
