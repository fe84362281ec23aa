package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/infrastructure/logging"
)

const (
	// DefaultSuggestionLimit caps the names returned for one query
	DefaultSuggestionLimit = 10

	defaultSuggestionTTL = 5 * time.Minute
)

// IngredientServiceConfig holds configuration for the ingredient service
type IngredientServiceConfig struct {
	Limit    int
	CacheTTL time.Duration
}

// IngredientService answers ingredient autocomplete lookups
type IngredientService struct {
	ingredients domain.IngredientRepository
	cache       domain.CacheRepository
	limit       int
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewIngredientService creates an ingredient service. cache may be nil.
func NewIngredientService(
	ingredients domain.IngredientRepository,
	cache domain.CacheRepository,
	config IngredientServiceConfig,
	logger *zap.Logger,
) *IngredientService {
	limit := config.Limit
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultSuggestionTTL
	}

	return &IngredientService{
		ingredients: ingredients,
		cache:       cache,
		limit:       limit,
		cacheTTL:    ttl,
		logger:      logging.OrNop(logger),
	}
}

// Suggest returns up to the configured limit of ingredient names matching
// query. An empty query lists the first names. The result is never nil.
// Flow: check cache -> search store -> cache -> return
func (s *IngredientService) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	key := suggestionCacheKey(query)

	if names, ok := s.getFromCache(ctx, key); ok {
		return names, nil
	}

	names, err := s.ingredients.SearchNames(ctx, query, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	if names == nil {
		names = []string{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, names, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache suggestions", zap.String("key", key), zap.Error(err))
		}
	}
	return names, nil
}

func suggestionCacheKey(query string) string {
	return "autocomplete:" + strings.ToLower(query)
}

// getFromCache accepts both the []string a fake cache hands back and the
// []interface{} the JSON backed caches produce.
func (s *IngredientService) getFromCache(ctx context.Context, key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("suggestion cache unavailable", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, false
			}
			names = append(names, name)
		}
		return names, true
	}
	return nil, false
}
