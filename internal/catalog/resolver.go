package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/finexus/catalog-console/internal/domain/product"
)

// ErrInvalidID is returned for ids that cannot name an existing record.
var ErrInvalidID = errors.New("invalid product id")

// Resolver prepares a detail view: it validates the requested id, warms the
// published list when it is still empty, and fetches the record itself.
type Resolver struct {
	coordinator *Coordinator
}

// NewResolver creates a Resolver on top of the given Coordinator.
func NewResolver(c *Coordinator) *Resolver {
	return &Resolver{coordinator: c}
}

// Ensure returns the product with the given id, fetching the surrounding
// list first when nothing is published yet. Non-positive ids fail fast
// without any network activity. The list warm-up is best effort; a failure
// there does not block the detail fetch.
func (r *Resolver) Ensure(ctx context.Context, id int64) (*product.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	if len(r.coordinator.Snapshot()) == 0 {
		_, _ = r.coordinator.FetchAll(ctx, nil, false)
	}

	return r.coordinator.FetchByID(ctx, id)
}
