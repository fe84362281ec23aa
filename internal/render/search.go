package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/formset"
)

const (
	searchTitle = "Search recipes"
	searchPath  = "/recipes/search"
)

type searchView struct {
	Title               string
	Action              string
	InclusionManagement []hiddenField
	InclusionRows       []template.HTML
	TagSelectManagement []hiddenField
	TagSelectRows       []template.HTML
}

// SearchForm renders the search page: a name filter, one inclusion row per
// ingredient in alphabetical order and the tag selection rows.
func SearchForm(ingredients []domain.Ingredient, tags []domain.Tag) (string, error) {
	sorted := make([]domain.Ingredient, len(ingredients))
	copy(sorted, ingredients)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	view := searchView{Title: searchTitle, Action: searchPath}
	for i, ing := range sorted {
		html, err := formset.RenderRow(formset.InclusionKind, i, map[string]string{
			"id":   strconv.FormatInt(ing.ID, 10),
			"name": ing.Name,
		})
		if err != nil {
			return "", err
		}
		view.InclusionRows = append(view.InclusionRows, template.HTML(html))
	}
	view.InclusionManagement = management(formset.IngredientInclusionPrefix, len(sorted), len(sorted))

	rows, err := tagSelectRows(tagOptions(tags, nil))
	if err != nil {
		return "", err
	}
	view.TagSelectRows = rows
	if len(tags) > 0 {
		view.TagSelectManagement = management(formset.TagSelectPrefix, len(tags), len(tags))
	}

	var buf bytes.Buffer
	if err := searchPage.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render search form: %w", err)
	}
	return buf.String(), nil
}

type listView struct {
	Title   string
	Recipes []domain.Recipe
}

// RecipeList renders recipes as a list of links under title
func RecipeList(title string, recipes []domain.Recipe) (string, error) {
	var buf bytes.Buffer
	if err := listPage.Execute(&buf, listView{Title: title, Recipes: recipes}); err != nil {
		return "", fmt.Errorf("render recipe list: %w", err)
	}
	return buf.String(), nil
}
