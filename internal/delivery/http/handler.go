package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipebox/backend/internal/autocomplete"
	"github.com/recipebox/backend/internal/domain"
	"github.com/recipebox/backend/internal/infrastructure/logging"
	"github.com/recipebox/backend/internal/usecase"
)

// RecipeService is the recipe usecase as seen by the HTTP layer
type RecipeService interface {
	Create(ctx context.Context, input usecase.RecipeInput) (*domain.Recipe, error)
	Update(ctx context.Context, id int64, input usecase.RecipeInput) (*domain.Recipe, error)
	Get(ctx context.Context, id int64) (*domain.Recipe, error)
	List(ctx context.Context) ([]domain.Recipe, error)
	Delete(ctx context.Context, id int64) error
	Tags(ctx context.Context) ([]domain.Tag, error)
	Ingredients(ctx context.Context) ([]domain.Ingredient, error)
	Search(ctx context.Context, q usecase.SearchQuery) ([]domain.Recipe, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recipes     RecipeService
	ingredients autocomplete.Suggester
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. Either service may be nil, in which
// case its endpoints answer 501.
func NewHandler(recipes RecipeService, ingredients autocomplete.Suggester, logger *zap.Logger) *Handler {
	return &Handler{
		recipes:     recipes,
		ingredients: ingredients,
		logger:      logging.OrNop(logger),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "recipebox-backend",
		"version": "1.0.0",
	})
}

// IngredientAutocomplete answers the ingredient input's lookups with a JSON
// array of names
func (h *Handler) IngredientAutocomplete(c *gin.Context) {
	if h.ingredients == nil {
		notConfigured(c, "ingredient autocomplete")
		return
	}

	names, err := h.ingredients.Suggest(c.Request.Context(), c.Query(autocomplete.QueryParam))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": fmt.Sprintf("%s is not configured", what),
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateRecipe):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTagNotFound), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Internal errors are logged and
// hidden from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", RequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	c.JSON(status, body)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid recipe id %q", domain.ErrInvalidRequest, c.Param("id"))
	}
	return id, nil
}
