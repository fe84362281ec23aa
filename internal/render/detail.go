package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/recipebox/backend/internal/domain"
)

var (
	directionsMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	directionsPolicy = newDirectionsPolicy()
)

func newDirectionsPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Directions converts markdown directions to sanitized HTML
func Directions(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := directionsMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render directions: %w", err)
	}
	sanitized := strings.TrimSpace(directionsPolicy.Sanitize(buf.String()))
	return template.HTML(sanitized), nil
}

type detailView struct {
	Title       string
	ID          int64
	Tags        []domain.Tag
	Ingredients []domain.RecipeIngredient
	Directions  template.HTML
	EditURL     string
}

// RecipeDetail renders the page showing one recipe
func RecipeDetail(recipe *domain.Recipe) (string, error) {
	directions, err := Directions(recipe.Directions)
	if err != nil {
		return "", err
	}

	view := detailView{
		Title:       recipe.Name,
		ID:          recipe.ID,
		Tags:        recipe.Tags,
		Ingredients: recipe.Ingredients,
		Directions:  directions,
		EditURL:     fmt.Sprintf("/recipes/%d/edit", recipe.ID),
	}

	var buf bytes.Buffer
	if err := detailPage.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render recipe detail: %w", err)
	}
	return buf.String(), nil
}
