package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecipeRepository defines persistence for recipes and their ingredient lines
type RecipeRepository interface {
	Create(ctx context.Context, recipe *Recipe) error
	Update(ctx context.Context, recipe *Recipe) error
	Get(ctx context.Context, id int64) (*Recipe, error)
	List(ctx context.Context) ([]Recipe, error)
	Delete(ctx context.Context, id int64) error
}

// IngredientRepository defines persistence and lookup for ingredients
type IngredientRepository interface {
	// GetOrCreate returns the ingredient with the given name, creating it
	// when it does not exist yet. The name is expected to be normalised.
	GetOrCreate(ctx context.Context, name string) (*Ingredient, error)
	List(ctx context.Context) ([]Ingredient, error)
	// SearchNames returns at most limit ingredient names for the query,
	// ordered as described by MatchNames.
	SearchNames(ctx context.Context, query string, limit int) ([]string, error)
}

// TagRepository defines persistence for tags
type TagRepository interface {
	GetOrCreate(ctx context.Context, name string) (*Tag, error)
	Get(ctx context.Context, id int64) (*Tag, error)
	List(ctx context.Context) ([]Tag, error)
}
