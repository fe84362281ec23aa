package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrRecipeNotFound is returned when a recipe id does not exist
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrTagNotFound is returned when a tag id does not exist
	ErrTagNotFound = errors.New("tag not found")

	// ErrDuplicateRecipe is returned when a recipe name is already taken
	ErrDuplicateRecipe = errors.New("recipe with this name already exists")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// NonFieldErrors is the ValidationError key for errors that belong to a whole
// form rather than one of its fields.
const NonFieldErrors = "__all__"

// ValidationError collects per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message against field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any message was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap lets callers match validation failures with errors.Is(err, ErrInvalidRequest)
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
