package repository

import (
	"context"

	"product-catalog/internal/model"
)

// ProductRepository defines the interface for product data access operations.
// Implementations must be safe for concurrent use.
type ProductRepository interface {
	// GetAll returns a snapshot of every product in insertion order.
	// The returned slice is owned by the caller.
	GetAll(ctx context.Context) ([]model.Product, error)

	// Add assigns a fresh identifier and appends the product.
	Add(ctx context.Context, p model.NewProduct) (model.Product, error)

	// Count returns the number of stored products.
	Count(ctx context.Context) (int, error)
}
