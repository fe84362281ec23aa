package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/export"
	"github.com/recipebox/backend/internal/formset"
	"github.com/recipebox/backend/internal/render"
	"github.com/recipebox/backend/internal/usecase"
)

const (
	newRecipeTitle  = "New recipe"
	newRecipePath   = "/recipes/new"
	editRecipeTitle = "Edit recipe"
	htmlContentType = "text/html; charset=utf-8"
	exportFilename  = "recipes.xlsx"
	indexTitle      = "Recipes"
	resultsTitle    = "Search results"

	// MsgRowLimit is shown when an add button would push a formset past
	// formset.DefaultMaxForms, which the save would then reject
	MsgRowLimit = "Ensure this form has at most %d rows"
)

func recipePath(id int64) string     { return fmt.Sprintf("/recipes/%d", id) }
func editRecipePath(id int64) string { return fmt.Sprintf("/recipes/%d/edit", id) }

type saveFunc func(ctx context.Context, input usecase.RecipeInput) (*domain.Recipe, error)

// NewRecipeForm shows a blank recipe form
func (h *Handler) NewRecipeForm(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}

	tags, err := h.recipes.Tags(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, render.NewFormData(newRecipeTitle, newRecipePath, tags))
}

// CreateRecipe handles the posted recipe form. The add buttons re-render the
// form with one more row; the save button stores the recipe.
func (h *Handler) CreateRecipe(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	h.submitRecipe(c, newRecipeTitle, newRecipePath, h.recipes.Create)
}

// EditRecipeForm shows the form for an existing recipe
func (h *Handler) EditRecipeForm(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	recipe, err := h.recipes.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	tags, err := h.recipes.Tags(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, render.FormDataFromRecipe(editRecipeTitle, editRecipePath(id), recipe, tags))
}

// UpdateRecipe handles the posted edit form
func (h *Handler) UpdateRecipe(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.submitRecipe(c, editRecipeTitle, editRecipePath(id), func(ctx context.Context, input usecase.RecipeInput) (*domain.Recipe, error) {
		return h.recipes.Update(ctx, id, input)
	})
}

// RecipeDetail shows one recipe
func (h *Handler) RecipeDetail(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := render.RecipeDetail(recipe)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(page))
}

func (h *Handler) submitRecipe(c *gin.Context, title, action string, save saveFunc) {
	ctx := c.Request.Context()
	if err := c.Request.ParseForm(); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	values := c.Request.PostForm

	tags, err := h.recipes.Tags(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	data := render.FormDataFromValues(title, action, values, tags)

	switch values.Get(render.ActionField) {
	case render.ActionAddIngredient:
		h.renderFormWithRow(c, data, formset.IngredientKind, usecase.FieldIngredients, len(data.Ingredients))
		return
	case render.ActionAddTag:
		h.renderFormWithRow(c, data, formset.TagKind, usecase.FieldTags, len(data.NewTags))
		return
	}

	input, err := usecase.InputFromForm(values)
	if err != nil {
		data.SetErrors(err)
		h.renderForm(c, http.StatusBadRequest, data)
		return
	}

	recipe, err := save(ctx, input)
	if err != nil {
		if !isFormError(err) {
			h.fail(c, err)
			return
		}
		data.SetErrors(err)
		h.renderForm(c, statusFor(err), data)
		return
	}

	h.logger.Info("recipe saved",
		zap.String("request_id", RequestID(c)),
		zap.Int64("recipe_id", recipe.ID),
		zap.String("name", recipe.Name))
	c.Redirect(http.StatusSeeOther, recipePath(recipe.ID))
}

// isFormError reports whether err is shown on the form rather than as an
// error response
func isFormError(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, domain.ErrDuplicateRecipe) ||
		errors.Is(err, domain.ErrTagNotFound)
}

func (h *Handler) renderForm(c *gin.Context, status int, data render.FormData) {
	page, err := render.RecipeForm(data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(status, htmlContentType, []byte(page))
}

func (h *Handler) renderFormWithRow(c *gin.Context, data render.FormData, kind formset.Kind, field string, rows int) {
	if rows >= formset.DefaultMaxForms {
		verr := domain.NewValidationError()
		verr.Add(field, fmt.Sprintf(MsgRowLimit, formset.DefaultMaxForms))
		data.SetErrors(verr)
		h.renderForm(c, http.StatusUnprocessableEntity, data)
		return
	}

	page, err := render.RecipeForm(data)
	if err == nil {
		page, err = render.AddRow(page, kind)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(page))
}

// RecipeIndex lists every recipe by name
func (h *Handler) RecipeIndex(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, indexTitle, recipes)
}

// SearchForm shows the search page with one inclusion row per ingredient
func (h *Handler) SearchForm(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}

	ctx := c.Request.Context()
	ingredients, err := h.recipes.Ingredients(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	tags, err := h.recipes.Tags(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := render.SearchForm(ingredients, tags)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(page))
}

// SearchResults handles the posted search page and lists the matches
func (h *Handler) SearchResults(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	q, err := usecase.SearchQueryFromForm(c.Request.PostForm)
	if err != nil {
		h.fail(c, err)
		return
	}
	recipes, err := h.recipes.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, resultsTitle, recipes)
}

func (h *Handler) renderList(c *gin.Context, title string, recipes []domain.Recipe) {
	page, err := render.RecipeList(title, recipes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(page))
}

// ListRecipes returns every recipe as JSON
func (h *Handler) ListRecipes(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "count": len(recipes)})
}

// GetRecipe returns one recipe as JSON
func (h *Handler) GetRecipe(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// SearchRecipes filters recipes by name, ingredients and tags
func (h *Handler) SearchRecipes(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}

	var q usecase.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	recipes, err := h.recipes.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "count": len(recipes)})
}

// DeleteRecipe removes a recipe
func (h *Handler) DeleteRecipe(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportRecipes downloads every recipe as a spreadsheet
func (h *Handler) ExportRecipes(c *gin.Context) {
	if h.recipes == nil {
		notConfigured(c, "recipe storage")
		return
	}
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRecipes(&buf, recipes); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
