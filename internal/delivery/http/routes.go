package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipebox/backend/config"
	"github.com/recipebox/backend/internal/autocomplete"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Lookups behind the ingredient inputs
	router.GET(autocomplete.Path,
		RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst),
		handler.IngredientAutocomplete)

	// Server-rendered pages
	pages := router.Group("/recipes")
	{
		pages.GET("", handler.RecipeIndex)
		pages.GET("/search", handler.SearchForm)
		pages.POST("/search", handler.SearchResults)
		pages.GET("/new", handler.NewRecipeForm)
		pages.POST("/new", handler.CreateRecipe)
		pages.GET("/:id", handler.RecipeDetail)
		pages.GET("/:id/edit", handler.EditRecipeForm)
		pages.POST("/:id/edit", handler.UpdateRecipe)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		recipes := v1.Group("/recipes")
		{
			recipes.GET("", handler.ListRecipes)
			recipes.GET("/export", handler.ExportRecipes)
			recipes.POST("/search", handler.SearchRecipes)
			recipes.GET("/:id", handler.GetRecipe)
			recipes.DELETE("/:id", handler.DeleteRecipe)
		}
	}

	return router
}
