package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/recipebox/backend/internal/domain"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS ingredients (
    id   BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS tags (
    id   BIGSERIAL PRIMARY KEY,
    name VARCHAR(250) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS recipes (
    id         BIGSERIAL PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    directions TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS recipes_name_lower_idx ON recipes (LOWER(name));
CREATE TABLE IF NOT EXISTS recipe_ingredients (
    recipe_id     BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    ingredient_id BIGINT NOT NULL REFERENCES ingredients(id),
    measurement   VARCHAR(255) NOT NULL DEFAULT '',
    position      INT NOT NULL,
    PRIMARY KEY (recipe_id, position)
);
CREATE TABLE IF NOT EXISTS recipe_tags (
    recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    tag_id    BIGINT NOT NULL REFERENCES tags(id),
    PRIMARY KEY (recipe_id, tag_id)
);
`

// PostgresStore persists recipes, ingredients and tags in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables the store needs when they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Recipes returns the store as a RecipeRepository
func (s *PostgresStore) Recipes() domain.RecipeRepository { return pgRecipes{s.db} }

// Ingredients returns the store as an IngredientRepository
func (s *PostgresStore) Ingredients() domain.IngredientRepository { return pgIngredients{s.db} }

// Tags returns the store as a TagRepository
func (s *PostgresStore) Tags() domain.TagRepository { return pgTags{s.db} }

type pgRecipes struct{ db *sql.DB }

func (r pgRecipes) Create(ctx context.Context, recipe *domain.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const q = `
INSERT INTO recipes (name, directions)
VALUES ($1, $2)
RETURNING id, created_at, updated_at;
`
	err = tx.QueryRowContext(ctx, q, recipe.Name, recipe.Directions).
		Scan(&recipe.ID, &recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return recipeWriteError(err, recipe.Name)
	}

	if err := insertRecipeLinks(ctx, tx, recipe); err != nil {
		return err
	}
	return tx.Commit()
}

func (r pgRecipes) Update(ctx context.Context, recipe *domain.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const q = `
UPDATE recipes SET name = $1, directions = $2, updated_at = NOW()
WHERE id = $3
RETURNING created_at, updated_at;
`
	err = tx.QueryRowContext(ctx, q, recipe.Name, recipe.Directions, recipe.ID).
		Scan(&recipe.CreatedAt, &recipe.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, recipe.ID)
	}
	if err != nil {
		return recipeWriteError(err, recipe.Name)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	if err := insertRecipeLinks(ctx, tx, recipe); err != nil {
		return err
	}
	return tx.Commit()
}

func (r pgRecipes) Get(ctx context.Context, id int64) (*domain.Recipe, error) {
	const q = `
SELECT id, name, directions, created_at, updated_at
FROM recipes
WHERE id = $1;
`
	var recipe domain.Recipe
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&recipe.ID, &recipe.Name, &recipe.Directions, &recipe.CreatedAt, &recipe.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	byRecipe := map[int64]*domain.Recipe{recipe.ID: &recipe}
	if err := loadLines(ctx, r.db, byRecipe, `WHERE ri.recipe_id = $1`, id); err != nil {
		return nil, err
	}
	if err := loadTags(ctx, r.db, byRecipe, `WHERE rt.recipe_id = $1`, id); err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r pgRecipes) List(ctx context.Context) ([]domain.Recipe, error) {
	const q = `
SELECT id, name, directions, created_at, updated_at
FROM recipes
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	byRecipe := make(map[int64]*domain.Recipe)
	for rows.Next() {
		var recipe domain.Recipe
		if err := rows.Scan(&recipe.ID, &recipe.Name, &recipe.Directions, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
			return nil, err
		}
		recipes = append(recipes, &recipe)
		byRecipe[recipe.ID] = &recipe
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(recipes) > 0 {
		if err := loadLines(ctx, r.db, byRecipe, ""); err != nil {
			return nil, err
		}
		if err := loadTags(ctx, r.db, byRecipe, ""); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Recipe, 0, len(recipes))
	for _, recipe := range recipes {
		out = append(out, *recipe)
	}
	return out, nil
}

func (r pgRecipes) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrRecipeNotFound, id)
	}
	return nil
}

func insertRecipeLinks(ctx context.Context, tx *sql.Tx, recipe *domain.Recipe) error {
	const lineQ = `
INSERT INTO recipe_ingredients (recipe_id, ingredient_id, measurement, position)
VALUES ($1, $2, $3, $4);
`
	for i, line := range recipe.Ingredients {
		if _, err := tx.ExecContext(ctx, lineQ, recipe.ID, line.Ingredient.ID, line.Measurement, i); err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", line.Ingredient.Name, err)
		}
	}

	const tagQ = `
INSERT INTO recipe_tags (recipe_id, tag_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;
`
	for _, tag := range recipe.Tags {
		if _, err := tx.ExecContext(ctx, tagQ, recipe.ID, tag.ID); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

func loadLines(ctx context.Context, db *sql.DB, byRecipe map[int64]*domain.Recipe, where string, args ...interface{}) error {
	q := `
SELECT ri.recipe_id, i.id, i.name, ri.measurement
FROM recipe_ingredients ri
JOIN ingredients i ON i.id = ri.ingredient_id
` + where + `
ORDER BY ri.recipe_id, ri.position;
`
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		var line domain.RecipeIngredient
		if err := rows.Scan(&recipeID, &line.Ingredient.ID, &line.Ingredient.Name, &line.Measurement); err != nil {
			return err
		}
		if recipe, ok := byRecipe[recipeID]; ok {
			recipe.Ingredients = append(recipe.Ingredients, line)
		}
	}
	return rows.Err()
}

func loadTags(ctx context.Context, db *sql.DB, byRecipe map[int64]*domain.Recipe, where string, args ...interface{}) error {
	q := `
SELECT rt.recipe_id, t.id, t.name
FROM recipe_tags rt
JOIN tags t ON t.id = rt.tag_id
` + where + `
ORDER BY rt.recipe_id, t.name;
`
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		var tag domain.Tag
		if err := rows.Scan(&recipeID, &tag.ID, &tag.Name); err != nil {
			return err
		}
		if recipe, ok := byRecipe[recipeID]; ok {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	return rows.Err()
}

func recipeWriteError(err error, name string) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRecipe, name)
	}
	return fmt.Errorf("failed to save recipe: %w", err)
}

type pgIngredients struct{ db *sql.DB }

func (r pgIngredients) GetOrCreate(ctx context.Context, name string) (*domain.Ingredient, error) {
	name = domain.TitleCase(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty ingredient name", domain.ErrInvalidRequest)
	}

	// the no-op update makes RETURNING yield the existing row on conflict
	const q = `
INSERT INTO ingredients (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name;
`
	var ing domain.Ingredient
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&ing.ID, &ing.Name); err != nil {
		return nil, fmt.Errorf("failed to get or create ingredient %q: %w", name, err)
	}
	return &ing, nil
}

func (r pgIngredients) List(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM ingredients ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Ingredient{}
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// SearchNames orders matches like domain.MatchNames: names starting with the
// query first, then byte order.
func (r pgIngredients) SearchNames(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	escaped := likeEscaper.Replace(strings.TrimSpace(query))
	const q = `
SELECT name
FROM ingredients
WHERE name ILIKE $1 ESCAPE '\'
ORDER BY (name ILIKE $2 ESCAPE '\') DESC, name COLLATE "C"
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, "%"+escaped+"%", escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type pgTags struct{ db *sql.DB }

func (r pgTags) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	name = domain.TitleCase(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty tag name", domain.ErrInvalidRequest)
	}

	const q = `
INSERT INTO tags (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name;
`
	var tag domain.Tag
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&tag.ID, &tag.Name); err != nil {
		return nil, fmt.Errorf("failed to get or create tag %q: %w", name, err)
	}
	return &tag, nil
}

func (r pgTags) Get(ctx context.Context, id int64) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE id = $1;`, id).Scan(&tag.ID, &tag.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrTagNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r pgTags) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}
