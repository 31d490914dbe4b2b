package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"product-catalog/internal/model"
	"product-catalog/internal/repository"
	"product-catalog/internal/simulation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// GeneratedNamePrefix prefixes the name of every generated product.
const GeneratedNamePrefix = "Generated Product - "

// maxGeneratedPrice bounds generated prices, exclusive.
const maxGeneratedPrice = 100_000_000

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	longTask    simulation.LongRunningTask
	writer      ProductWriter
	now         func() time.Time
	price       func() decimal.Decimal
	logger      zerolog.Logger
}

// ProductServiceOption configures the product service.
type ProductServiceOption func(*productService)

// WithClock overrides the time source used to name generated products.
func WithClock(now func() time.Time) ProductServiceOption {
	return func(s *productService) {
		s.now = now
	}
}

// WithPriceGenerator overrides the random price of generated products.
func WithPriceGenerator(fn func() decimal.Decimal) ProductServiceOption {
	return func(s *productService) {
		s.price = fn
	}
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	longTask simulation.LongRunningTask,
	writer ProductWriter,
	logger zerolog.Logger,
	opts ...ProductServiceOption,
) ProductService {
	s := &productService{
		productRepo: productRepo,
		longTask:    longTask,
		writer:      writer,
		now:         time.Now,
		price:       randomPrice,
		logger:      logger.With().Str("service", "product").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns a snapshot of every product.
func (s *productService) GetAll(ctx context.Context) ([]model.Product, error) {
	s.logger.Info().Msg("Get product list from database")

	products, err := s.productRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get all products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Msg("retrieved products")

	return products, nil
}

// GenerateDummyProduct runs one generation job invocation. The invocation is
// complete once the write is dispatched; the write itself may still be queued.
func (s *productService) GenerateDummyProduct(ctx context.Context) error {
	s.logger.Info().Msg("Begin generate new products to store in memory...")

	name := fmt.Sprintf("%s%d", GeneratedNamePrefix, s.now().UnixMilli())
	price := s.price()

	s.logger.Info().
		Str("name", name).
		Str("price", price.String()).
		Msg("Request add new product")

	if _, err := s.longTask.Run(ctx); err != nil {
		return fmt.Errorf("long-running task failed: %w", err)
	}

	if err := s.writer.Dispatch(ctx, name, price); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to dispatch product write")
		return fmt.Errorf("failed to dispatch product write: %w", err)
	}

	return nil
}

func randomPrice() decimal.Decimal {
	return decimal.NewFromInt(rand.Int64N(maxGeneratedPrice))
}
