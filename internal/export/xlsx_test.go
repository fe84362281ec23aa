package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/recipebox/backend/internal/domain"
)

func TestWriteRecipes(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	recipes := []domain.Recipe{
		{
			ID:   1,
			Name: "Bread",
			Ingredients: []domain.RecipeIngredient{
				{Ingredient: domain.Ingredient{ID: 1, Name: "Flour"}, Measurement: "500 g"},
				{Ingredient: domain.Ingredient{ID: 2, Name: "Salt"}, Measurement: "1 tsp"},
			},
			Tags:      []domain.Tag{{ID: 1, Name: "Baking"}, {ID: 2, Name: "Weekend"}},
			CreatedAt: created,
		},
		{ID: 2, Name: "Toast", Directions: "Toast it."},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecipes(&buf, recipes))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"recipe_id", "recipe", "tags", "measurement", "ingredient", "created_at"}, rows[0])
	assert.Equal(t, []string{"1", "Bread", "Baking, Weekend", "500 g", "Flour", "2024-03-01T12:00:00Z"}, rows[1])
	assert.Equal(t, []string{"1", "Bread", "Baking, Weekend", "1 tsp", "Salt", "2024-03-01T12:00:00Z"}, rows[2])
	require.GreaterOrEqual(t, len(rows[3]), 2)
	assert.Equal(t, []string{"2", "Toast"}, rows[3][:2])
	for _, cell := range rows[3][2:] {
		assert.Empty(t, cell)
	}
}

func TestWriteRecipes_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecipes(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
