package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/recipebox/backend/internal/domain"
)

// MemoryStore keeps recipes, ingredients and tags in process memory. It
// implements the recipe, ingredient and tag repositories and is used when no
// database is configured.
type MemoryStore struct {
	mu sync.RWMutex

	recipes     map[int64]domain.Recipe
	ingredients map[int64]domain.Ingredient
	tags        map[int64]domain.Tag

	ingredientByName map[string]int64
	tagByName        map[string]int64

	nextRecipeID     int64
	nextIngredientID int64
	nextTagID        int64

	now func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes:          make(map[int64]domain.Recipe),
		ingredients:      make(map[int64]domain.Ingredient),
		tags:             make(map[int64]domain.Tag),
		ingredientByName: make(map[string]int64),
		tagByName:        make(map[string]int64),
		now:              time.Now,
	}
}

// Recipes returns the store as a RecipeRepository
func (s *MemoryStore) Recipes() domain.RecipeRepository { return memoryRecipes{s} }

// Ingredients returns the store as an IngredientRepository
func (s *MemoryStore) Ingredients() domain.IngredientRepository { return memoryIngredients{s} }

// Tags returns the store as a TagRepository
func (s *MemoryStore) Tags() domain.TagRepository { return memoryTags{s} }

type memoryRecipes struct{ s *MemoryStore }

func (r memoryRecipes) Create(ctx context.Context, recipe *domain.Recipe) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recipeNameTaken(recipe.Name, 0) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRecipe, recipe.Name)
	}

	s.nextRecipeID++
	now := s.now().UTC()
	recipe.ID = s.nextRecipeID
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	s.recipes[recipe.ID] = cloneRecipe(*recipe)
	return nil
}

func (r memoryRecipes) Update(ctx context.Context, recipe *domain.Recipe) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.recipes[recipe.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, recipe.ID)
	}
	if s.recipeNameTaken(recipe.Name, recipe.ID) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRecipe, recipe.Name)
	}

	recipe.CreatedAt = existing.CreatedAt
	recipe.UpdatedAt = s.now().UTC()
	s.recipes[recipe.ID] = cloneRecipe(*recipe)
	return nil
}

func (r memoryRecipes) Get(ctx context.Context, id int64) (*domain.Recipe, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, id)
	}
	out := cloneRecipe(recipe)
	return &out, nil
}

func (r memoryRecipes) List(ctx context.Context) ([]domain.Recipe, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Recipe, 0, len(s.recipes))
	for _, recipe := range s.recipes {
		out = append(out, cloneRecipe(recipe))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memoryRecipes) Delete(ctx context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, id)
	}
	delete(s.recipes, id)
	return nil
}

// recipeNameTaken must be called with mu held
func (s *MemoryStore) recipeNameTaken(name string, except int64) bool {
	for id, recipe := range s.recipes {
		if id != except && strings.EqualFold(recipe.Name, name) {
			return true
		}
	}
	return false
}

type memoryIngredients struct{ s *MemoryStore }

func (r memoryIngredients) GetOrCreate(ctx context.Context, name string) (*domain.Ingredient, error) {
	s := r.s
	name = domain.TitleCase(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty ingredient name", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ingredientByName[name]; ok {
		ing := s.ingredients[id]
		return &ing, nil
	}

	s.nextIngredientID++
	ing := domain.Ingredient{ID: s.nextIngredientID, Name: name}
	s.ingredients[ing.ID] = ing
	s.ingredientByName[name] = ing.ID
	return &ing, nil
}

func (r memoryIngredients) List(ctx context.Context) ([]domain.Ingredient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memoryIngredients) SearchNames(ctx context.Context, query string, limit int) ([]string, error) {
	s := r.s
	s.mu.RLock()
	names := make([]string, 0, len(s.ingredientByName))
	for name := range s.ingredientByName {
		names = append(names, name)
	}
	s.mu.RUnlock()

	return domain.MatchNames(names, query, limit), nil
}

type memoryTags struct{ s *MemoryStore }

func (r memoryTags) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	s := r.s
	name = domain.TitleCase(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty tag name", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tagByName[name]; ok {
		tag := s.tags[id]
		return &tag, nil
	}

	s.nextTagID++
	tag := domain.Tag{ID: s.nextTagID, Name: name}
	s.tags[tag.ID] = tag
	s.tagByName[name] = tag.ID
	return &tag, nil
}

func (r memoryTags) Get(ctx context.Context, id int64) (*domain.Tag, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrTagNotFound, id)
	}
	return &tag, nil
}

func (r memoryTags) List(ctx context.Context) ([]domain.Tag, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneRecipe(r domain.Recipe) domain.Recipe {
	r.Ingredients = append([]domain.RecipeIngredient(nil), r.Ingredients...)
	r.Tags = append([]domain.Tag(nil), r.Tags...)
	return r
}
