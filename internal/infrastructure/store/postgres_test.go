package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebox/backend/internal/domain"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStore(db), mock
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	s, mock := setupPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ingredients`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecipes_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts recipe, lines and tags in one transaction", func(t *testing.T) {
		s, mock := setupPostgresStore(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO recipes`).
			WithArgs("Bread", "Bake it.").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(1), now, now))
		mock.ExpectExec(`INSERT INTO recipe_ingredients`).
			WithArgs(int64(1), int64(7), "500 g", int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO recipe_ingredients`).
			WithArgs(int64(1), int64(8), "", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO recipe_tags`).
			WithArgs(int64(1), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		recipe := &domain.Recipe{
			Name:       "Bread",
			Directions: "Bake it.",
			Ingredients: []domain.RecipeIngredient{
				{Ingredient: domain.Ingredient{ID: 7, Name: "Flour"}, Measurement: "500 g"},
				{Ingredient: domain.Ingredient{ID: 8, Name: "Salt"}},
			},
			Tags: []domain.Tag{{ID: 3, Name: "Baking"}},
		}
		require.NoError(t, s.Recipes().Create(ctx, recipe))
		assert.Equal(t, int64(1), recipe.ID)
		assert.False(t, recipe.CreatedAt.IsZero())

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate recipe", func(t *testing.T) {
		s, mock := setupPostgresStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO recipes`).
			WithArgs("Bread", "").
			WillReturnError(&pq.Error{Code: uniqueViolation})
		mock.ExpectRollback()

		err := s.Recipes().Create(ctx, &domain.Recipe{Name: "Bread"})
		assert.ErrorIs(t, err, domain.ErrDuplicateRecipe)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed line insert rolls back", func(t *testing.T) {
		s, mock := setupPostgresStore(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO recipes`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(2), now, now))
		mock.ExpectExec(`INSERT INTO recipe_ingredients`).
			WillReturnError(errors.New("foreign key violation"))
		mock.ExpectRollback()

		err := s.Recipes().Create(ctx, &domain.Recipe{
			Name:        "Soup",
			Ingredients: []domain.RecipeIngredient{{Ingredient: domain.Ingredient{ID: 99, Name: "Ghost"}}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Ghost")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRecipes_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces lines and tags", func(t *testing.T) {
		s, mock := setupPostgresStore(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE recipes SET`).
			WithArgs("Sourdough", "Wait a day.", int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`DELETE FROM recipe_ingredients`).
			WithArgs(int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM recipe_tags`).
			WithArgs(int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO recipe_ingredients`).
			WithArgs(int64(4), int64(7), "1 kg", int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		recipe := &domain.Recipe{
			ID:          4,
			Name:        "Sourdough",
			Directions:  "Wait a day.",
			Ingredients: []domain.RecipeIngredient{{Ingredient: domain.Ingredient{ID: 7}, Measurement: "1 kg"}},
		}
		require.NoError(t, s.Recipes().Update(ctx, recipe))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing recipe", func(t *testing.T) {
		s, mock := setupPostgresStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE recipes SET`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
		mock.ExpectRollback()

		err := s.Recipes().Update(ctx, &domain.Recipe{ID: 9, Name: "Ghost"})
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRecipes_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("loads lines in position order and tags", func(t *testing.T) {
		s, mock := setupPostgresStore(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT id, name, directions, created_at, updated_at`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "directions", "created_at", "updated_at"}).
				AddRow(int64(1), "Bread", "Bake it.", now, now))
		mock.ExpectQuery(`FROM recipe_ingredients ri`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "id", "name", "measurement"}).
				AddRow(int64(1), int64(7), "Flour", "500 g").
				AddRow(int64(1), int64(8), "Salt", "1 tsp"))
		mock.ExpectQuery(`FROM recipe_tags rt`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "id", "name"}).
				AddRow(int64(1), int64(3), "Baking"))

		recipe, err := s.Recipes().Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Bread", recipe.Name)
		require.Len(t, recipe.Ingredients, 2)
		assert.Equal(t, "Flour", recipe.Ingredients[0].Ingredient.Name)
		assert.Equal(t, "1 tsp", recipe.Ingredients[1].Measurement)
		assert.Equal(t, []domain.Tag{{ID: 3, Name: "Baking"}}, recipe.Tags)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := setupPostgresStore(t)

		mock.ExpectQuery(`SELECT id, name, directions, created_at, updated_at`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "directions", "created_at", "updated_at"}))

		_, err := s.Recipes().Get(ctx, 5)
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRecipes_List(t *testing.T) {
	s, mock := setupPostgresStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM recipes`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "directions", "created_at", "updated_at"}).
			AddRow(int64(1), "Bread", "", now, now).
			AddRow(int64(2), "Soup", "", now, now))
	mock.ExpectQuery(`FROM recipe_ingredients ri`).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "id", "name", "measurement"}).
			AddRow(int64(1), int64(7), "Flour", "").
			AddRow(int64(2), int64(9), "Leek", "2"))
	mock.ExpectQuery(`FROM recipe_tags rt`).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "id", "name"}))

	recipes, err := s.Recipes().List(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Flour", recipes[0].Ingredients[0].Ingredient.Name)
	assert.Equal(t, "Leek", recipes[1].Ingredients[0].Ingredient.Name)
	assert.Empty(t, recipes[1].Tags)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecipes_Delete(t *testing.T) {
	s, mock := setupPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM recipes`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipes`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Recipes().Delete(ctx, 1))
	assert.ErrorIs(t, s.Recipes().Delete(ctx, 2), domain.ErrRecipeNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIngredients_GetOrCreate(t *testing.T) {
	s, mock := setupPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO ingredients`).
		WithArgs("Brown Sugar").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(12), "Brown Sugar"))

	ing, err := s.Ingredients().GetOrCreate(context.Background(), " brown sugar")
	require.NoError(t, err)
	assert.Equal(t, domain.Ingredient{ID: 12, Name: "Brown Sugar"}, *ing)

	_, err = s.Ingredients().GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIngredients_SearchNames(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantContain string
		wantPrefix  string
	}{
		{"plain", "egg", "%egg%", "egg%"},
		{"trimmed", "  egg ", "%egg%", "egg%"},
		{"empty matches all", "", "%%", "%"},
		{"wildcards escaped", "50%_off", `%50\%\_off%`, `50\%\_off%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupPostgresStore(t)

			mock.ExpectQuery(`SELECT name`).
				WithArgs(tt.wantContain, tt.wantPrefix, int64(10)).
				WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Egg").AddRow("Eggplant"))

			names, err := s.Ingredients().SearchNames(context.Background(), tt.query, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"Egg", "Eggplant"}, names)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("zero limit skips the query", func(t *testing.T) {
		s, mock := setupPostgresStore(t)

		names, err := s.Ingredients().SearchNames(context.Background(), "egg", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{}, names)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTags(t *testing.T) {
	s, mock := setupPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("Quick Meals").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "Quick Meals"))
	mock.ExpectQuery(`SELECT id, name FROM tags WHERE id`).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, name FROM tags ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "Quick Meals"))

	tag, err := s.Tags().GetOrCreate(ctx, "quick meals")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tag.ID)

	_, err = s.Tags().Get(ctx, 4)
	assert.ErrorIs(t, err, domain.ErrTagNotFound)

	tags, err := s.Tags().List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
