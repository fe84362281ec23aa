package usecase

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/formset"
	"github.com/recipebox/backend/internal/infrastructure/logging"
)

const (
	maxNameLength       = 255
	maxDirectionsLength = 10000
	maxTagNameLength    = 250
)

// Validation messages shown next to the offending fields
const (
	MsgNameRequired           = "Recipe name is required"
	MsgNameTooLong            = "Ensure the recipe name has at most 255 characters"
	MsgDirectionsTooLong      = "Ensure the directions have at most 10000 characters"
	MsgIngredientNameRequired = "Ingredient name must be entered when measurement is provided"
	MsgInvalidIngredient      = "Invalid ingredient format"
	MsgTagNameTooLong         = "Ensure tag names have at most 250 characters"
	MsgNoContent              = "A recipe needs directions or at least one ingredient"
)

// Field keys used in validation errors
const (
	FieldName        = "name"
	FieldDirections  = "directions"
	FieldIngredients = "ingredients"
	FieldTags        = "tags"

	// FieldRecipeName is the name filter on the search page
	FieldRecipeName = "recipe_name"
)

// IngredientInput is one submitted ingredient line
type IngredientInput struct {
	Name        string `json:"name"`
	Measurement string `json:"measurement"`
}

// RecipeInput is a recipe as submitted by a form or the API
type RecipeInput struct {
	Name        string            `json:"name"`
	Directions  string            `json:"directions"`
	Ingredients []IngredientInput `json:"ingredients"`
	NewTags     []string          `json:"newTags"`
	TagIDs      []int64           `json:"tagIds"`
}

// SearchQuery filters recipes. Ingredient ids in And must all be present,
// at least one of Or must be present when Or is not empty, and none of
// Exclude may be present. Every tag in TagIDs is required.
type SearchQuery struct {
	Name    string  `json:"name"`
	And     []int64 `json:"and"`
	Or      []int64 `json:"or"`
	Exclude []int64 `json:"exclude"`
	TagIDs  []int64 `json:"tagIds"`
}

// RecipeService handles recipe creation, editing and search
type RecipeService struct {
	recipes     domain.RecipeRepository
	ingredients domain.IngredientRepository
	tags        domain.TagRepository
	logger      *zap.Logger
}

// NewRecipeService creates a new recipe service with dependencies
func NewRecipeService(
	recipes domain.RecipeRepository,
	ingredients domain.IngredientRepository,
	tags domain.TagRepository,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:     recipes,
		ingredients: ingredients,
		tags:        tags,
		logger:      logging.OrNop(logger),
	}
}

// Validate checks input and returns a *domain.ValidationError listing every
// problem, or nil.
func (s *RecipeService) Validate(input RecipeInput) error {
	verr := domain.NewValidationError()

	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		verr.Add(FieldName, MsgNameRequired)
	case utf8.RuneCountInString(name) > maxNameLength:
		verr.Add(FieldName, MsgNameTooLong)
	}

	if utf8.RuneCountInString(input.Directions) > maxDirectionsLength {
		verr.Add(FieldDirections, MsgDirectionsTooLong)
	}

	lines := 0
	for _, in := range input.Ingredients {
		ingName := strings.TrimSpace(in.Name)
		measurement := strings.TrimSpace(in.Measurement)
		switch {
		case ingName == "" && measurement == "":
			continue
		case ingName == "":
			verr.Add(FieldIngredients, MsgIngredientNameRequired)
		case utf8.RuneCountInString(ingName) > maxNameLength,
			utf8.RuneCountInString(measurement) > maxNameLength:
			verr.Add(FieldIngredients, MsgInvalidIngredient)
		default:
			lines++
		}
	}

	for _, tag := range input.NewTags {
		if utf8.RuneCountInString(strings.TrimSpace(tag)) > maxTagNameLength {
			verr.Add(FieldTags, MsgTagNameTooLong)
			break
		}
	}

	if strings.TrimSpace(input.Directions) == "" && lines == 0 && !verr.HasErrors() {
		verr.Add(domain.NonFieldErrors, MsgNoContent)
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Create validates input and stores a new recipe, creating ingredients and
// tags it names that do not exist yet.
func (s *RecipeService) Create(ctx context.Context, input RecipeInput) (*domain.Recipe, error) {
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	recipe, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, err
	}

	s.logger.Info("recipe created",
		zap.Int64("id", recipe.ID),
		zap.String("name", recipe.Name),
		zap.Int("ingredients", len(recipe.Ingredients)),
		zap.Int("tags", len(recipe.Tags)),
	)
	return recipe, nil
}

// Update replaces the recipe with id, including its ingredient lines and tags
func (s *RecipeService) Update(ctx context.Context, id int64, input RecipeInput) (*domain.Recipe, error) {
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	if _, err := s.recipes.Get(ctx, id); err != nil {
		return nil, err
	}

	recipe, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}
	recipe.ID = id

	if err := s.recipes.Update(ctx, recipe); err != nil {
		return nil, err
	}

	s.logger.Info("recipe updated", zap.Int64("id", id), zap.String("name", recipe.Name))
	return recipe, nil
}

// Get returns the recipe with id
func (s *RecipeService) Get(ctx context.Context, id int64) (*domain.Recipe, error) {
	return s.recipes.Get(ctx, id)
}

// List returns every recipe sorted by name
func (s *RecipeService) List(ctx context.Context) ([]domain.Recipe, error) {
	recipes, err := s.recipes.List(ctx)
	if err != nil {
		return nil, err
	}
	sortByName(recipes)
	return recipes, nil
}

// Delete removes the recipe with id
func (s *RecipeService) Delete(ctx context.Context, id int64) error {
	if err := s.recipes.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("recipe deleted", zap.Int64("id", id))
	return nil
}

// Tags lists every tag, used to render the tag selection formset
func (s *RecipeService) Tags(ctx context.Context) ([]domain.Tag, error) {
	return s.tags.List(ctx)
}

// Ingredients lists every ingredient. The search page renders one
// inclusion row for each.
func (s *RecipeService) Ingredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.ingredients.List(ctx)
}

// Search returns the recipes matching q sorted by name. The name filter is
// a case-insensitive substring match.
func (s *RecipeService) Search(ctx context.Context, q SearchQuery) ([]domain.Recipe, error) {
	all, err := s.recipes.List(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(q.Name))
	out := make([]domain.Recipe, 0, len(all))
	for i := range all {
		r := &all[i]
		if name != "" && !strings.Contains(strings.ToLower(r.Name), name) {
			continue
		}
		if !matchesIngredients(r, q) || !hasAllTags(r, q.TagIDs) {
			continue
		}
		out = append(out, *r)
	}

	sortByName(out)
	return out, nil
}

func matchesIngredients(r *domain.Recipe, q SearchQuery) bool {
	for _, id := range q.Exclude {
		if r.HasIngredient(id) {
			return false
		}
	}
	for _, id := range q.And {
		if !r.HasIngredient(id) {
			return false
		}
	}
	if len(q.Or) == 0 {
		return true
	}
	for _, id := range q.Or {
		if r.HasIngredient(id) {
			return true
		}
	}
	return false
}

func hasAllTags(r *domain.Recipe, ids []int64) bool {
	for _, id := range ids {
		if !r.HasTag(id) {
			return false
		}
	}
	return true
}

func sortByName(recipes []domain.Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		return strings.ToLower(recipes[i].Name) < strings.ToLower(recipes[j].Name)
	})
}

// build resolves input into a recipe. Input must already be valid.
func (s *RecipeService) build(ctx context.Context, input RecipeInput) (*domain.Recipe, error) {
	recipe := &domain.Recipe{
		Name:       strings.TrimSpace(input.Name),
		Directions: strings.TrimSpace(input.Directions),
	}

	for _, in := range input.Ingredients {
		if strings.TrimSpace(in.Name) == "" {
			continue
		}
		ing, err := s.ingredients.GetOrCreate(ctx, in.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve ingredient %q: %w", in.Name, err)
		}
		recipe.Ingredients = append(recipe.Ingredients, domain.RecipeIngredient{
			Ingredient:  *ing,
			Measurement: strings.TrimSpace(in.Measurement),
		})
	}

	seen := make(map[int64]bool)
	addTag := func(tag *domain.Tag) {
		if seen[tag.ID] {
			return
		}
		seen[tag.ID] = true
		recipe.Tags = append(recipe.Tags, *tag)
	}

	for _, name := range input.NewTags {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		addTag(tag)
	}

	for _, id := range input.TagIDs {
		tag, err := s.tags.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		addTag(tag)
	}

	return recipe, nil
}

// InputFromForm reads a posted recipe form: the name and directions fields
// plus the ingredient, tag creation and tag selection formsets. Deleted and
// blank rows are skipped. Malformed formset management data is reported as
// domain.ErrInvalidRequest.
func InputFromForm(values url.Values) (RecipeInput, error) {
	input := RecipeInput{
		Name:       values.Get(FieldName),
		Directions: values.Get(FieldDirections),
	}

	ingredients, err := formset.Parse(values, formset.IngredientPrefix)
	if err != nil {
		return input, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	for _, row := range ingredients.Active() {
		input.Ingredients = append(input.Ingredients, IngredientInput{
			Name:        row.Get("name"),
			Measurement: row.Get("measurement"),
		})
	}

	created, err := formset.Parse(values, formset.TagCreatePrefix, formset.AllowMissingManagement())
	if err != nil {
		return input, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	for _, row := range created.Active() {
		input.NewTags = append(input.NewTags, row.Get("tag_name"))
	}

	input.TagIDs, err = selectedTags(values)
	if err != nil {
		return input, err
	}

	return input, nil
}

func selectedTags(values url.Values) ([]int64, error) {
	selected, err := formset.Parse(values, formset.TagSelectPrefix, formset.AllowMissingManagement())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	var ids []int64
	for _, row := range selected.Rows {
		if !row.Checked("include") {
			continue
		}
		id, err := strconv.ParseInt(row.Get("id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: tag selection row %d has id %q", domain.ErrInvalidRequest, row.Index, row.Get("id"))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SearchQueryFromForm reads a posted search page: the recipe_name filter,
// the ingredient inclusion formset and the tag selection formset. Rows left
// on the blank choice are ignored.
func SearchQueryFromForm(values url.Values) (SearchQuery, error) {
	q := SearchQuery{Name: values.Get(FieldRecipeName)}

	inclusion, err := formset.Parse(values, formset.IngredientInclusionPrefix, formset.AllowMissingManagement())
	if err != nil {
		return q, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	for _, row := range inclusion.Rows {
		choice := row.Get(formset.InclusionField)
		if choice == "" {
			continue
		}
		id, err := strconv.ParseInt(row.Get("id"), 10, 64)
		if err != nil {
			return q, fmt.Errorf("%w: inclusion row %d has id %q", domain.ErrInvalidRequest, row.Index, row.Get("id"))
		}
		switch choice {
		case formset.InclusionAnd:
			q.And = append(q.And, id)
		case formset.InclusionOr:
			q.Or = append(q.Or, id)
		case formset.InclusionExclude:
			q.Exclude = append(q.Exclude, id)
		default:
			return q, fmt.Errorf("%w: inclusion row %d has choice %q", domain.ErrInvalidRequest, row.Index, choice)
		}
	}

	q.TagIDs, err = selectedTags(values)
	if err != nil {
		return q, err
	}
	return q, nil
}
