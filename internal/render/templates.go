package render

import "html/template"

const layoutTemplate = `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | RecipeBox</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{end}}
{{define "foot"}}</body>
</html>
{{end}}
{{define "errors"}}{{if .}}<ul class="errorlist">{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}
{{define "management"}}{{range .}}<input type="hidden" name="{{.Name}}" value="{{.Value}}" id="{{.ID}}">
{{end}}{{end}}`

const formTemplate = `{{template "head" .}}
<form method="post" action="{{.Action}}" class="recipe-form" data-autocomplete="{{.AutocompletePath}}" data-autocomplete-param="{{.AutocompleteParam}}">
{{template "errors" index .Errors "__all__"}}
<p>
  <label for="id_name">Name:</label>
  <input type="text" name="name" maxlength="255" required id="id_name" value="{{.Name}}">
  {{template "errors" index .Errors "name"}}
</p>
<p>
  <label for="id_directions">Directions:</label>
  <textarea name="directions" cols="40" rows="10" maxlength="10000" id="id_directions">{{.Directions}}</textarea>
  {{template "errors" index .Errors "directions"}}
</p>

<h2>Ingredients</h2>
{{template "errors" index .Errors "ingredients"}}
{{template "management" .IngredientManagement}}<div class="ingredients-pane">
{{range .IngredientRows}}{{.}}
{{end}}</div>
<button type="submit" name="action" value="add-ingredient" id="add-ingredient" class="add-row">Add ingredient</button>

<h2>Tags</h2>
{{template "errors" index .Errors "tags"}}
{{template "management" .TagManagement}}<div class="tag-create-pane">
{{range .TagRows}}{{.}}
{{end}}</div>
<button type="submit" name="action" value="add-tag" id="add-tag" class="add-row">Add tag</button>
{{if .TagSelectRows}}
{{template "management" .TagSelectManagement}}<div class="tag-select-pane">
{{range .TagSelectRows}}{{.}}
{{end}}</div>
{{end}}
<button type="submit" name="action" value="save" id="save">Save</button>
</form>
{{template "foot"}}`

const detailTemplate = `{{template "head" .}}
<article class="recipe" data-recipe-id="{{.ID}}">
{{if .Tags}}<ul class="tags">{{range .Tags}}<li class="tag">{{.Name}}</li>{{end}}</ul>{{end}}
<h2>Ingredients</h2>
<ul class="ingredients">
{{range .Ingredients}}<li>{{if .Measurement}}<span class="measurement">{{.Measurement}}</span> - {{end}}<span class="ingredient">{{.Ingredient.Name}}</span></li>
{{end}}</ul>
<h2>Directions</h2>
<div class="directions">{{.Directions}}</div>
<p><a href="{{.EditURL}}" class="edit-link">Edit</a></p>
</article>
{{template "foot"}}`

const searchTemplate = `{{template "head" .}}
<form method="post" action="{{.Action}}" class="search-form">
<p>
  <label for="id_recipe_name">Recipe name:</label>
  <input type="text" name="recipe_name" maxlength="255" id="id_recipe_name">
</p>
<h2>Ingredients</h2>
{{template "management" .InclusionManagement}}<div class="ingredient-list-pane">
{{range .InclusionRows}}{{.}}
{{end}}</div>
{{if .TagSelectRows}}
<h2>Tags</h2>
{{template "management" .TagSelectManagement}}<div class="tag-select-pane">
{{range .TagSelectRows}}{{.}}
{{end}}</div>
{{end}}
<button type="submit" id="search">Search</button>
</form>
{{template "foot"}}`

const listTemplate = `{{template "head" .}}
{{if .Recipes}}<ul class="recipes">
{{range .Recipes}}<li><a href="/recipes/{{.ID}}" class="recipe-link">{{.Name}}</a></li>
{{end}}</ul>{{else}}<p class="empty">No recipes found.</p>{{end}}
<p><a href="/recipes/new">New recipe</a> <a href="/recipes/search">Search</a></p>
{{template "foot"}}`

var (
	formPage   = mustPage("form", formTemplate)
	detailPage = mustPage("detail", detailTemplate)
	searchPage = mustPage("search", searchTemplate)
	listPage   = mustPage("list", listTemplate)
)

func mustPage(name, body string) *template.Template {
	t := template.Must(template.New(name).Parse(layoutTemplate))
	return template.Must(t.Parse(body))
}
