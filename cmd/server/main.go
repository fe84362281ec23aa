package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/recipebox/backend/config"
	httpDelivery "github.com/recipebox/backend/internal/delivery/http"
	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/infrastructure/cache"
	"github.com/recipebox/backend/internal/infrastructure/logging"
	"github.com/recipebox/backend/internal/infrastructure/store"
	"github.com/recipebox/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// repositories is the store the services run on
type repositories interface {
	Recipes() domain.RecipeRepository
	Ingredients() domain.IngredientRepository
	Tags() domain.TagRepository
}

type closableCache interface {
	domain.CacheRepository
	Close() error
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting RecipeBox backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("cache", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL))

	// Initialize infrastructure dependencies
	repos, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	suggestionCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer suggestionCache.Close()

	// Initialize usecase layer
	recipeService := usecase.NewRecipeService(
		repos.Recipes(),
		repos.Ingredients(),
		repos.Tags(),
		logger.Named("recipes"),
	)
	ingredientService := usecase.NewIngredientService(
		repos.Ingredients(),
		suggestionCache,
		usecase.IngredientServiceConfig{
			Limit:    cfg.Autocomplete.Limit,
			CacheTTL: cfg.Cache.TTL,
		},
		logger.Named("ingredients"),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(recipeService, ingredientService, logger.Named("http"))
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named("http"))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (repositories, func(), error) {
	if cfg.Driver != "postgres" {
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := store.NewConnection(ctx, cfg.DSN, store.ConnectionOptions{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgresStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (closableCache, error) {
	if cfg.Type != "redis" {
		return cache.NewMemoryCache(), nil
	}
	return cache.NewRedisCache(ctx, cfg.RedisURL)
}
