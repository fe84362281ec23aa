package domain

import (
	"strings"
	"time"
	"unicode"
)

// Ingredient is a named ingredient shared between recipes. Names are unique
// after TitleCase normalisation.
type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag labels a recipe. Names are unique after TitleCase normalisation.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecipeIngredient is one line of a recipe's ingredient list
type RecipeIngredient struct {
	Ingredient  Ingredient `json:"ingredient"`
	Measurement string     `json:"measurement"`
}

// Recipe is a stored recipe with its ingredient lines and tags
type Recipe struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Directions  string             `json:"directions"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Tags        []Tag              `json:"tags"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// HasIngredient reports whether the recipe uses the ingredient with id
func (r *Recipe) HasIngredient(id int64) bool {
	for _, ri := range r.Ingredients {
		if ri.Ingredient.ID == id {
			return true
		}
	}
	return false
}

// HasTag reports whether the recipe carries the tag with id
func (r *Recipe) HasTag(id int64) bool {
	for _, t := range r.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// TitleCase normalises a name the way stored names are compared: surrounding
// space is trimmed, the first letter of every word is upper-cased and every
// other letter lower-cased. A word starts after any non-letter, so
// "o'brien's" becomes "O'Brien'S".
func TitleCase(name string) string {
	name = strings.TrimSpace(name)

	var b strings.Builder
	b.Grow(len(name))

	prevLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
