package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/category"
	"github.com/carrelhq/carrel/internal/config"
	"github.com/carrelhq/carrel/internal/entities"
	http_controllers "github.com/carrelhq/carrel/internal/http"
	"github.com/carrelhq/carrel/internal/inventory"
	"github.com/carrelhq/carrel/internal/isbn"
	"github.com/carrelhq/carrel/internal/lending"
	"github.com/carrelhq/carrel/internal/settings"
	"github.com/carrelhq/carrel/internal/store"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	// Close the store last so in-flight requests finish first.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Carrel v%s", version)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	settingsService := settings.NewService(st)
	inventoryService := inventory.NewService(st)
	categoryService := category.NewService(st)
	lendingService := lending.NewService(st, settingsService)

	var isbnClient *isbn.Client
	if cfg.ISBN.APIURL != "" {
		// A key stored in settings overrides the environment value.
		apiKey := cfg.ISBN.APIKey
		if setting, err := settingsService.Get(entities.SettingKeyISBNAPIKey); err == nil && setting.Value != "" {
			apiKey = setting.Value
		}
		isbnClient = isbn.NewClient(cfg.ISBN.APIURL, apiKey)
	} else {
		log.Printf("WARNING: ISBN_API_URL is not set. ISBN lookup endpoints will be disabled.")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Store:      st,
		Inventory:  inventoryService,
		Categories: categoryService,
		Lending:    lendingService,
		Settings:   settingsService,
		ISBNClient: isbnClient,
		Version:    version,
	})

	onShutdown := func(_ context.Context) {
		if err := st.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}

	Serve(router, cfg, onShutdown)
}
