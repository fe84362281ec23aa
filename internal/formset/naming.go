// Package formset implements the repeated-row form protocol shared by the
// recipe pages: rows are numbered <prefix>-<index>-<field> and a hidden
// <prefix>-TOTAL_FORMS field tells the server how many rows to parse.
package formset

import (
	"fmt"
	"regexp"
)

// Management field suffixes.
const (
	TotalForms   = "TOTAL_FORMS"
	InitialForms = "INITIAL_FORMS"
	MinNumForms  = "MIN_NUM_FORMS"
	MaxNumForms  = "MAX_NUM_FORMS"

	// DeleteField is the per-row checkbox that marks a row as removed.
	DeleteField = "DELETE"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// RowIndex is the ordinal of a row inside its formset
type RowIndex int

// FieldName returns the submitted name of a row field: <prefix>-<index>-<field>
func FieldName(prefix string, index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, index, field)
}

// FieldID returns the element id of a row field: id_<prefix>-<index>-<field>
func FieldID(prefix string, index int, field string) string {
	return "id_" + FieldName(prefix, index, field)
}

// ManagementName returns the submitted name of a management field, e.g.
// ingredient-form-TOTAL_FORMS.
func ManagementName(prefix, field string) string {
	return prefix + "-" + field
}

// ManagementID returns the element id of a management field
func ManagementID(prefix, field string) string {
	return "id_" + ManagementName(prefix, field)
}

// TotalFormsID returns the id of the hidden total-forms field: id_<prefix>-TOTAL_FORMS
func TotalFormsID(prefix string) string {
	return ManagementID(prefix, TotalForms)
}

// ValidPrefix reports whether prefix can be safely used in names, ids and
// attribute selectors.
func ValidPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}
