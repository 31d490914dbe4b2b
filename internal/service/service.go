package service

import (
	"context"

	"product-catalog/internal/model"

	"github.com/shopspring/decimal"
)

// ProductService defines operations for product management.
type ProductService interface {
	// GetAll returns a snapshot of every product.
	GetAll(ctx context.Context) ([]model.Product, error)

	// GenerateDummyProduct is the body of the scheduled generation job. It
	// blocks on the long-running task and then hands the write to the async
	// writer without waiting for it.
	GenerateDummyProduct(ctx context.Context) error
}

// ProductWriter appends products asynchronously.
type ProductWriter interface {
	// Dispatch queues a product write and returns before it is applied.
	Dispatch(ctx context.Context, name string, price decimal.Decimal) error
}
