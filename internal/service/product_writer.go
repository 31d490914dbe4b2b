package service

import (
	"context"
	"fmt"

	"product-catalog/internal/model"
	"product-catalog/internal/repository"
	"product-catalog/internal/worker"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TaskSubmitter queues tasks for asynchronous execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task worker.Task) error
}

// asyncProductWriter implements ProductWriter on top of a worker pool.
type asyncProductWriter struct {
	pool        TaskSubmitter
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewAsyncProductWriter creates a writer that appends products on pool.
func NewAsyncProductWriter(pool TaskSubmitter, productRepo repository.ProductRepository, logger zerolog.Logger) ProductWriter {
	return &asyncProductWriter{
		pool:        pool,
		productRepo: productRepo,
		logger:      logger.With().Str("component", "async-product-writer").Logger(),
	}
}

// Dispatch queues the append. Saturation and shutdown are reported through
// the pool's model.ErrQueueFull and model.ErrPoolClosed.
func (w *asyncProductWriter) Dispatch(ctx context.Context, name string, price decimal.Decimal) error {
	p := model.NewProduct{Name: name, Price: price}

	err := w.pool.Submit(ctx, func(taskCtx context.Context) {
		created, err := w.productRepo.Add(taskCtx, p)
		if err != nil {
			w.logger.Error().Err(err).Str("name", p.Name).Msg("failed to add product")
			return
		}
		w.logger.Debug().Str("product_id", created.ID).Msg("async product write applied")
	})
	if err != nil {
		return fmt.Errorf("failed to submit product write: %w", err)
	}

	w.logger.Debug().Str("name", name).Msg("product write dispatched")
	return nil
}
