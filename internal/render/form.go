// Package render produces the server-rendered recipe pages. Formset rows go
// through the formset package so a page rendered here and a row added later
// share the same markup and naming.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/recipebox/backend/internal/autocomplete"
	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/formset"
)

// Values of the submit button named "action"
const (
	ActionField         = "action"
	ActionAddIngredient = "add-ingredient"
	ActionAddTag        = "add-tag"
	ActionSave          = "save"
)

// IngredientRow is one ingredient line of the form
type IngredientRow struct {
	Measurement string
	Name        string
	Deleted     bool
}

// TagRow is one new-tag line of the form
type TagRow struct {
	Name    string
	Deleted bool
}

// TagOption is an existing tag offered for selection
type TagOption struct {
	ID       int64
	Name     string
	Selected bool
}

// FormData is everything the recipe form shows
type FormData struct {
	Title              string
	Action             string
	Name               string
	Directions         string
	Ingredients        []IngredientRow
	InitialIngredients int
	NewTags            []TagRow
	Tags               []TagOption
	Errors             map[string][]string
}

// NewFormData returns a blank form with one empty ingredient row and one
// empty tag row.
func NewFormData(title, action string, tags []domain.Tag) FormData {
	return FormData{
		Title:       title,
		Action:      action,
		Ingredients: []IngredientRow{{}},
		NewTags:     []TagRow{{}},
		Tags:        tagOptions(tags, nil),
	}
}

// FormDataFromRecipe fills the form from a stored recipe, with the recipe's
// tags selected and one empty row after the existing ingredients.
func FormDataFromRecipe(title, action string, recipe *domain.Recipe, tags []domain.Tag) FormData {
	data := FormData{
		Title:              title,
		Action:             action,
		Name:               recipe.Name,
		Directions:         recipe.Directions,
		InitialIngredients: len(recipe.Ingredients),
		NewTags:            []TagRow{{}},
	}
	for _, ri := range recipe.Ingredients {
		data.Ingredients = append(data.Ingredients, IngredientRow{
			Measurement: ri.Measurement,
			Name:        ri.Ingredient.Name,
		})
	}
	data.Ingredients = append(data.Ingredients, IngredientRow{})

	selected := make(map[int64]bool, len(recipe.Tags))
	for _, t := range recipe.Tags {
		selected[t.ID] = true
	}
	data.Tags = tagOptions(tags, selected)
	return data
}

// FormDataFromValues rebuilds the form from a submission so it can be shown
// again. Every submitted row is kept, deleted and blank ones included, so
// row indices stay stable. Formsets whose management data is unusable fall
// back to a single blank row.
func FormDataFromValues(title, action string, values url.Values, tags []domain.Tag) FormData {
	data := FormData{
		Title:      title,
		Action:     action,
		Name:       values.Get("name"),
		Directions: values.Get("directions"),
	}

	if sub, err := formset.Parse(values, formset.IngredientPrefix); err == nil {
		data.InitialIngredients = sub.Initial
		for _, row := range sub.Rows {
			data.Ingredients = append(data.Ingredients, IngredientRow{
				Measurement: row.Fields["measurement"],
				Name:        row.Fields["name"],
				Deleted:     row.Deleted,
			})
		}
	}
	if len(data.Ingredients) == 0 {
		data.Ingredients = []IngredientRow{{}}
	}

	if sub, err := formset.Parse(values, formset.TagCreatePrefix, formset.AllowMissingManagement()); err == nil {
		for _, row := range sub.Rows {
			data.NewTags = append(data.NewTags, TagRow{Name: row.Fields["tag_name"], Deleted: row.Deleted})
		}
	}
	if len(data.NewTags) == 0 {
		data.NewTags = []TagRow{{}}
	}

	selected := make(map[int64]bool)
	if sub, err := formset.Parse(values, formset.TagSelectPrefix, formset.AllowMissingManagement()); err == nil {
		for _, row := range sub.Rows {
			if !row.Checked("include") {
				continue
			}
			if id, err := strconv.ParseInt(row.Get("id"), 10, 64); err == nil {
				selected[id] = true
			}
		}
	}
	data.Tags = tagOptions(tags, selected)
	return data
}

// SetErrors shows err on the form. Validation errors keep their field keys;
// anything else becomes a form-wide message.
func (d *FormData) SetErrors(err error) {
	if err == nil {
		return
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		d.Errors = verr.Fields
		return
	}
	d.Errors = map[string][]string{domain.NonFieldErrors: {err.Error()}}
}

func tagOptions(tags []domain.Tag, selected map[int64]bool) []TagOption {
	out := make([]TagOption, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagOption{ID: t.ID, Name: t.Name, Selected: selected[t.ID]})
	}
	return out
}

type hiddenField struct {
	Name  string
	ID    string
	Value string
}

type formView struct {
	FormData
	AutocompletePath     string
	AutocompleteParam    string
	IngredientManagement []hiddenField
	IngredientRows       []template.HTML
	TagManagement        []hiddenField
	TagRows              []template.HTML
	TagSelectManagement  []hiddenField
	TagSelectRows        []template.HTML
}

// RecipeForm renders the create/edit page for data
func RecipeForm(data FormData) (string, error) {
	view := formView{
		FormData:          data,
		AutocompletePath:  autocomplete.Path,
		AutocompleteParam: autocomplete.QueryParam,
	}

	for i, row := range data.Ingredients {
		html, err := formset.RenderRow(formset.IngredientKind, i, map[string]string{
			"measurement":       row.Measurement,
			"name":              row.Name,
			formset.DeleteField: checkedValue(row.Deleted),
		})
		if err != nil {
			return "", err
		}
		view.IngredientRows = append(view.IngredientRows, template.HTML(html))
	}
	view.IngredientManagement = management(formset.IngredientPrefix, len(data.Ingredients), data.InitialIngredients)

	for i, row := range data.NewTags {
		html, err := formset.RenderRow(formset.TagKind, i, map[string]string{
			"tag_name":          row.Name,
			formset.DeleteField: checkedValue(row.Deleted),
		})
		if err != nil {
			return "", err
		}
		view.TagRows = append(view.TagRows, template.HTML(html))
	}
	view.TagManagement = management(formset.TagCreatePrefix, len(data.NewTags), 0)

	rows, err := tagSelectRows(data.Tags)
	if err != nil {
		return "", err
	}
	view.TagSelectRows = rows
	if len(data.Tags) > 0 {
		view.TagSelectManagement = management(formset.TagSelectPrefix, len(data.Tags), len(data.Tags))
	}

	var buf bytes.Buffer
	if err := formPage.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render recipe form: %w", err)
	}
	return buf.String(), nil
}

// AddRow appends one empty row of kind to a rendered page, the way the
// "add" buttons do in the browser, and returns the updated page.
func AddRow(page string, kind formset.Kind) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	ctrl, err := formset.NewController(doc, kind)
	if err != nil {
		return "", err
	}
	if _, err := ctrl.AddRow(); err != nil {
		return "", err
	}
	return goquery.OuterHtml(doc.Selection)
}

func management(prefix string, total, initial int) []hiddenField {
	values := formset.Management(prefix, total, initial)
	fields := []string{formset.TotalForms, formset.InitialForms, formset.MinNumForms, formset.MaxNumForms}

	out := make([]hiddenField, 0, len(fields))
	for _, f := range fields {
		name := formset.ManagementName(prefix, f)
		out = append(out, hiddenField{Name: name, ID: formset.ManagementID(prefix, f), Value: values[name]})
	}
	return out
}

func tagSelectRows(tags []TagOption) ([]template.HTML, error) {
	out := make([]template.HTML, 0, len(tags))
	for i, opt := range tags {
		html, err := formset.RenderRow(formset.TagSelectKind, i, map[string]string{
			"id":       strconv.FormatInt(opt.ID, 10),
			"tag_name": opt.Name,
			"include":  checkedValue(opt.Selected),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, template.HTML(html))
	}
	return out, nil
}

func checkedValue(checked bool) string {
	if checked {
		return "on"
	}
	return ""
}
