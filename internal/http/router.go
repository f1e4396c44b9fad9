package http

import (
	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/category"
	"github.com/carrelhq/carrel/internal/inventory"
	"github.com/carrelhq/carrel/internal/isbn"
	"github.com/carrelhq/carrel/internal/lending"
	"github.com/carrelhq/carrel/internal/settings"
	"github.com/carrelhq/carrel/internal/store"
)

// RouterConfig carries every dependency the router needs.
type RouterConfig struct {
	Store      *store.Store
	Inventory  *inventory.Service
	Categories *category.Service
	Lending    *lending.Service
	Settings   *settings.Service
	ISBNClient *isbn.Client
	Version    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	health := NewHealthController(cfg.Store, cfg.Version)
	booksController := NewBooksController(cfg.Inventory)
	categoriesController := NewCategoriesController(cfg.Categories)
	loansController := NewLoansController(cfg.Lending)
	settingsController := NewSettingsController(cfg.Settings, cfg.Version)
	var isbnController *ISBNController
	if cfg.ISBNClient != nil {
		isbnController = NewISBNController(cfg.ISBNClient)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	// Book catalog endpoints
	api.GET("/books", booksController.ListBooks)
	api.GET("/books/search", booksController.SearchBooks)
	api.POST("/books", booksController.CreateBook)
	api.POST("/books/batch", booksController.BatchCreateBooks)
	api.GET("/books/:id", booksController.GetBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	api.DELETE("/books/:id", booksController.DeleteBook)

	// Category endpoints
	api.GET("/categories", categoriesController.ListCategories)
	api.GET("/categories/statistics/overview", categoriesController.GetCategoryStatistics)
	api.POST("/categories", categoriesController.CreateCategory)
	api.GET("/categories/:id", categoriesController.GetCategory)
	api.PUT("/categories/:id", categoriesController.UpdateCategory)
	api.DELETE("/categories/:id", categoriesController.DeleteCategory)

	// Circulation endpoints
	api.GET("/loans", loansController.ListLoans)
	api.POST("/loans", loansController.BorrowBook)
	api.GET("/loans/overdue", loansController.ListOverdueLoans)
	api.GET("/loans/due-soon", loansController.ListDueSoonLoans)
	api.GET("/loans/recent-activities", loansController.GetRecentActivity)
	api.GET("/loans/statistics", loansController.GetLoanStatistics)
	api.GET("/loans/trend", loansController.GetLoanTrend)
	api.GET("/loans/popular-books", loansController.GetPopularBooks)
	api.POST("/loans/reconcile", loansController.ReconcileLoans)
	api.GET("/loans/book/:bookId", loansController.ListLoansForBook)
	api.PUT("/loans/:id/return", loansController.ReturnBook)

	// Settings endpoints
	api.GET("/settings", settingsController.ListSettings)
	api.PUT("/settings/batch", settingsController.BatchUpdateSettings)
	api.POST("/settings/reset", settingsController.ResetSettings)
	api.GET("/settings/:key", settingsController.GetSetting)
	api.PUT("/settings/:key", settingsController.UpdateSetting)
	api.GET("/system/info", settingsController.GetSystemInfo)

	// ISBN lookup endpoints
	if isbnController != nil {
		api.GET("/isbn/:isbn", isbnController.LookupISBN)
		api.POST("/isbn/batch", isbnController.LookupISBNBatch)
	}

	return router
}
