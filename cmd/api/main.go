package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-catalog/internal/config"
	"product-catalog/internal/handler"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository"
	"product-catalog/internal/router"
	"product-catalog/internal/scheduler"
	"product-catalog/internal/service"
	"product-catalog/internal/simulation"
	"product-catalog/internal/worker"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	generateJobName = "generate-dummy-product"
	writerPoolName  = "product-writer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// productFeature groups the components that exist only when the product
// feature is enabled.
type productFeature struct {
	handler      *handler.ProductHandler
	pool         *worker.Pool
	scheduler    *scheduler.Scheduler
	drainTimeout time.Duration
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting product-catalog API server")

	// Create context for application lifecycle, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var feature *productFeature
	if cfg.Product.Enabled {
		feature, err = newProductFeature(cfg, m, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize product feature: %w", err)
		}
	} else {
		logger.Info().Msg("product feature disabled, generation job and product routes are not registered")
	}

	var productHandler *handler.ProductHandler
	if feature != nil {
		productHandler = feature.handler
	}

	// Initialize router
	mux := router.New(productHandler, m, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if feature != nil {
		feature.pool.Start()
		if err := feature.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("failed to start generation job: %w", err)
		}
	}

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer shutdownCancel()

		return shutdown(shutdownCtx, server, feature, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

func newProductFeature(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*productFeature, error) {
	policy, err := worker.ParsePolicy(cfg.Async.SaturationPolicy)
	if err != nil {
		return nil, err
	}
	mode, err := scheduler.ParseMode(cfg.Product.Mode)
	if err != nil {
		return nil, err
	}

	// Initialize repository
	productRepo := repository.NewProductRepository(logger, repository.DefaultSeedProducts())

	// Initialize async writer pool
	var poolOpts []worker.PoolOption
	if m != nil {
		poolOpts = append(poolOpts, worker.WithObserver(m.PoolObserver(writerPoolName)))
	}
	pool, err := worker.NewPool(worker.Config{
		Name:          writerPoolName,
		Size:          cfg.Async.PoolSize,
		QueueCapacity: cfg.Async.QueueCapacity,
		Policy:        policy,
	}, logger, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	// Initialize service
	longTask := simulation.NewLongRunningTask(cfg.Product.LongRunningMin, cfg.Product.LongRunningMax, logger)
	writer := service.NewAsyncProductWriter(pool, productRepo, logger)
	productService := service.NewProductService(productRepo, longTask, writer, logger)

	// Initialize generation job
	var schedOpts []scheduler.Option
	if m != nil {
		schedOpts = append(schedOpts, scheduler.WithObserver(m.SchedulerObserver(generateJobName)))
		m.RegisterPoolGauges(writerPoolName, pool.Stats)
		m.RegisterProductCount(func() int {
			n, _ := productRepo.Count(context.Background())
			return n
		})
	}
	sched, err := scheduler.New(scheduler.Config{
		Name:         generateJobName,
		InitialDelay: cfg.Product.InitialDelay,
		Interval:     cfg.Product.GenerateInterval,
		Mode:         mode,
	}, productService.GenerateDummyProduct, logger, schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &productFeature{
		handler:      handler.NewProductHandler(productService, logger),
		pool:         pool,
		scheduler:    sched,
		drainTimeout: cfg.Async.DrainTimeout,
	}, nil
}

// shutdown stops the generation job, drains pending writes and then stops the
// HTTP server, all within ctx.
func shutdown(ctx context.Context, server *http.Server, feature *productFeature, logger zerolog.Logger) error {
	var errs []error

	if feature != nil {
		if err := feature.scheduler.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("generation job did not stop in time")
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}

		drainCtx, cancel := context.WithTimeout(ctx, feature.drainTimeout)
		abandoned, err := feature.pool.Shutdown(drainCtx)
		cancel()
		if err != nil {
			logger.Warn().
				Err(err).
				Int("abandoned", abandoned).
				Msg("pending product writes abandoned at shutdown")
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
		// Force close
		if closeErr := server.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close server")
		}
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	return errors.Join(errs...)
}
