package formset

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Formset prefixes used by the recipe pages.
const (
	IngredientPrefix = "ingredient-form"
	TagCreatePrefix  = "tag-create-form"
	TagSelectPrefix  = "tag-select-form"

	IngredientInclusionPrefix = "ingredient-list-form"
)

// Values of an inclusion row's "inclusion" select. An empty value leaves the
// ingredient out of the search.
const (
	InclusionField   = "inclusion"
	InclusionAnd     = "and"
	InclusionOr      = "or"
	InclusionExclude = "exclude"
)

// Row markup hooks shared by the templates and the controller.
const (
	RowClass     = "formset-row"
	RemovedClass = "formset-row--removed"
	DeleteClass  = "formset-delete"
)

const ingredientRowTemplate = `<p class="formset-row" data-formset="{{.Prefix}}" data-index="{{.Index}}">
  <input type="text" name="{{.Name "measurement"}}" placeholder="Amount" maxlength="255" id="{{.ID "measurement"}}" value="{{.Value "measurement"}}">
  -
  <input type="text" name="{{.Name "name"}}" class="ingredient-input" placeholder="Ingredient" maxlength="255" id="{{.ID "name"}}" value="{{.Value "name"}}" autocomplete="off">
  <input type="checkbox" name="{{.Name "DELETE"}}" class="formset-delete" onclick="hideParent(this)" id="{{.ID "DELETE"}}" style="display: none">
  <label for="{{.ID "DELETE"}}" class="delete-label"><img src="/static/icons/icons8-minus-48.png" alt="Remove ingredient"></label>
</p>`

const tagRowTemplate = `<p class="formset-row" data-formset="{{.Prefix}}" data-index="{{.Index}}">
  <label for="{{.ID "tag_name"}}">Tag name:</label>
  <input type="text" name="{{.Name "tag_name"}}" maxlength="250" id="{{.ID "tag_name"}}" value="{{.Value "tag_name"}}">
  <input type="checkbox" name="{{.Name "DELETE"}}" class="formset-delete" onclick="hideParent(this)" id="{{.ID "DELETE"}}">
</p>`

const tagSelectRowTemplate = `<p class="formset-row" data-formset="{{.Prefix}}" data-index="{{.Index}}">
  <input type="hidden" name="{{.Name "id"}}" id="{{.ID "id"}}" value="{{.Value "id"}}">
  <input type="hidden" name="{{.Name "tag_name"}}" id="{{.ID "tag_name"}}" value="{{.Value "tag_name"}}">
  <input type="checkbox" name="{{.Name "include"}}" id="{{.ID "include"}}"{{if .Value "include"}} checked{{end}}>
  <label for="{{.ID "include"}}">{{.Value "tag_name"}}</label>
</p>`

const inclusionRowTemplate = `<p class="formset-row" data-formset="{{.Prefix}}" data-index="{{.Index}}">
  <input type="hidden" name="{{.Name "id"}}" id="{{.ID "id"}}" value="{{.Value "id"}}">
  <input type="hidden" name="{{.Name "name"}}" id="{{.ID "name"}}" value="{{.Value "name"}}">
  <label for="{{.ID "inclusion"}}">{{.Value "name"}}</label>
  <select name="{{.Name "inclusion"}}" id="{{.ID "inclusion"}}">
    <option value=""{{if eq (.Value "inclusion") ""}} selected{{end}}>---------</option>
    <option value="and"{{if eq (.Value "inclusion") "and"}} selected{{end}}>And</option>
    <option value="or"{{if eq (.Value "inclusion") "or"}} selected{{end}}>Or</option>
    <option value="exclude"{{if eq (.Value "inclusion") "exclude"}} selected{{end}}>Exclude</option>
  </select>
</p>`

var (
	// IngredientKind rows hold a measurement, an ingredient name wired for
	// autocomplete and a hidden delete checkbox behind an icon label.
	IngredientKind = MustKind(IngredientPrefix, ".ingredients-pane",
		[]string{"measurement", "name", DeleteField}, ingredientRowTemplate)

	// TagKind rows hold a single tag name and a delete checkbox.
	TagKind = MustKind(TagCreatePrefix, ".tag-create-pane",
		[]string{"tag_name", DeleteField}, tagRowTemplate)

	// TagSelectKind rows offer an existing tag behind an include checkbox.
	// They are rendered server side only; no control adds them.
	TagSelectKind = MustKind(TagSelectPrefix, ".tag-select-pane",
		[]string{"id", "tag_name", "include"}, tagSelectRowTemplate)

	// InclusionKind rows put one existing ingredient into a search as and,
	// or or exclude. Like tag selection they are rendered server side only.
	InclusionKind = MustKind(IngredientInclusionPrefix, ".ingredient-list-pane",
		[]string{"id", "name", InclusionField}, inclusionRowTemplate)
)

// Kind describes one formset: its prefix, the element rows are appended to
// and the markup of a single row.
type Kind struct {
	Prefix    string
	Container string
	Fields    []string
	row       *template.Template
}

// NewKind compiles a row template for the formset with the given prefix.
// The template is executed with a value exposing .Prefix, .Index and the
// .Name, .ID and .Value methods, each taking a field name.
func NewKind(prefix, container string, fields []string, rowTemplate string) (Kind, error) {
	if !ValidPrefix(prefix) {
		return Kind{}, fmt.Errorf("formset: invalid prefix %q", prefix)
	}
	if container == "" {
		return Kind{}, fmt.Errorf("formset: empty container selector for %q", prefix)
	}

	tmpl, err := template.New(prefix).Parse(rowTemplate)
	if err != nil {
		return Kind{}, fmt.Errorf("formset: parse row template for %q: %w", prefix, err)
	}

	return Kind{
		Prefix:    prefix,
		Container: container,
		Fields:    append([]string(nil), fields...),
		row:       tmpl,
	}, nil
}

// MustKind is like NewKind but panics on error
func MustKind(prefix, container string, fields []string, rowTemplate string) Kind {
	k, err := NewKind(prefix, container, fields, rowTemplate)
	if err != nil {
		panic(err)
	}
	return k
}

// Render returns the HTML of the row at index, pre-filled with values keyed
// by field name. Missing values render empty.
func (k Kind) Render(index int, values map[string]string) (string, error) {
	if k.row == nil {
		return "", fmt.Errorf("formset: kind %q has no row template", k.Prefix)
	}

	var buf bytes.Buffer
	if err := k.row.Execute(&buf, rowData{Prefix: k.Prefix, Index: index, values: values}); err != nil {
		return "", fmt.Errorf("formset: render %s row %d: %w", k.Prefix, index, err)
	}
	return buf.String(), nil
}

type rowData struct {
	Prefix string
	Index  int
	values map[string]string
}

func (d rowData) Name(field string) string  { return FieldName(d.Prefix, d.Index, field) }
func (d rowData) ID(field string) string    { return FieldID(d.Prefix, d.Index, field) }
func (d rowData) Value(field string) string { return d.values[field] }

// RenderRow renders the row at index like Kind.Render. A row whose DELETE
// value is checked comes back already in the removed state, so a re-rendered
// form keeps rows the user deleted hidden but submitted.
func RenderRow(kind Kind, index int, values map[string]string) (string, error) {
	out, err := kind.Render(index, values)
	if err != nil {
		return "", err
	}
	if !isChecked(values[DeleteField]) {
		return out, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	if err != nil {
		return "", fmt.Errorf("formset: reparse %s row %d: %w", kind.Prefix, index, err)
	}
	checkbox := doc.Find(`input[id="` + FieldID(kind.Prefix, index, DeleteField) + `"]`)
	if _, err := MarkRowForDeletion(checkbox); err != nil {
		return "", err
	}
	return doc.Find("body").Html()
}
