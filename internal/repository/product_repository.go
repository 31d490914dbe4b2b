package repository

import (
	"context"
	"sync"

	"product-catalog/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultSeedProducts returns the products loaded at process start.
func DefaultSeedProducts() []model.NewProduct {
	return []model.NewProduct{
		{Name: "Macbook Pro 16 inch", Price: decimal.NewFromInt(63000000)},
		{Name: "Iphone 14 Pro Max", Price: decimal.NewFromInt(53000000)},
	}
}

// productRepository implements ProductRepository as an append-only,
// process-scoped slice guarded by a RWMutex.
type productRepository struct {
	mu       sync.RWMutex
	products []model.Product
	newID    func() string
	logger   zerolog.Logger
}

// Option configures a product repository.
type Option func(*productRepository)

// WithIDGenerator overrides uuid-based identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *productRepository) {
		r.newID = fn
	}
}

// NewProductRepository creates an in-memory product repository holding seed.
func NewProductRepository(logger zerolog.Logger, seed []model.NewProduct, opts ...Option) ProductRepository {
	r := &productRepository{
		products: make([]model.Product, 0, len(seed)),
		newID:    uuid.NewString,
		logger:   logger.With().Str("repository", "product").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, p := range seed {
		r.products = append(r.products, r.build(p))
	}

	r.logger.Info().Int("count", len(r.products)).Msg("product repository seeded")

	return r
}

// GetAll returns a copy of the products taken under the read lock.
func (r *productRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Product, len(r.products))
	copy(out, r.products)

	return out, nil
}

// Add appends a new product. The product is fully built before the write
// lock is taken, so readers never observe a partial entry.
func (r *productRepository) Add(ctx context.Context, p model.NewProduct) (model.Product, error) {
	product := r.build(p)

	r.mu.Lock()
	r.products = append(r.products, product)
	r.mu.Unlock()

	r.logger.Info().
		Str("product_id", product.ID).
		Str("name", product.Name).
		Msg("Add new product successfully")

	return product, nil
}

// Count returns the number of stored products.
func (r *productRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}

func (r *productRepository) build(p model.NewProduct) model.Product {
	return model.Product{
		ID:    r.newID(),
		Name:  p.Name,
		Price: p.Price,
	}
}
