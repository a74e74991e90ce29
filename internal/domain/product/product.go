package product

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a single catalog record as returned by the API.
// The identifier and both timestamps are assigned by the server and are
// never set by the client.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    *string         `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateProduct is the payload for creating a new catalog record.
// Server-assigned fields (id, timestamps) are absent.
type CreateProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    *string         `json:"category,omitempty"`
}

// UpdateProduct is a partial update payload. Nil fields are omitted from the
// request body and left unchanged by the server.
type UpdateProduct struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

// Filters narrows a catalog listing. All fields are optional; empty values
// are omitted from both the query string and the cache key.
type Filters struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// DefaultCacheKey is the cache key used when no filters are active.
const DefaultCacheKey = "default"

// pairs returns the non-empty filter fields as name/value string pairs.
func (f *Filters) pairs() [][2]string {
	if f == nil {
		return nil
	}
	var out [][2]string
	if f.Category != "" {
		out = append(out, [2]string{"category", f.Category})
	}
	if f.MinPrice != nil {
		out = append(out, [2]string{"minPrice", f.MinPrice.String()})
	}
	if f.MaxPrice != nil {
		out = append(out, [2]string{"maxPrice", f.MaxPrice.String()})
	}
	if f.Search != "" {
		out = append(out, [2]string{"search", f.Search})
	}
	return out
}

// CacheKey derives the canonical cache key for this filter set: non-empty
// fields sorted by name and joined as "name:value" pairs with "|". A nil or
// empty filter set yields DefaultCacheKey.
func (f *Filters) CacheKey() string {
	pairs := f.pairs()
	if len(pairs) == 0 {
		return DefaultCacheKey
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p[0] + ":" + p[1]
	}
	return strings.Join(parts, "|")
}

// Query renders the filter set as URL query parameters.
func (f *Filters) Query() url.Values {
	q := url.Values{}
	for _, p := range f.pairs() {
		q.Set(p[0], p[1])
	}
	return q
}
