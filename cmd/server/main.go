package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"Skylight/internal/api/middleware"
	"Skylight/internal/api/routes"
	"Skylight/internal/atproto/appview"
	"Skylight/internal/core/feed"
	"Skylight/internal/core/feedcache"
	"Skylight/internal/core/preferences"
)

func main() {
	// AppView configuration
	appviewURL := os.Getenv("APPVIEW_URL")
	if appviewURL == "" {
		appviewURL = "https://public.api.bsky.app"
	}

	clientOpts := []appview.ClientOption{}
	if searchURL := os.Getenv("SEARCH_URL"); searchURL != "" {
		clientOpts = append(clientOpts, appview.WithSearchHost(searchURL))
	}
	client := appview.NewClient(appviewURL, clientOpts...)

	// Preference store (in-memory; external stores plug in behind the
	// preferences.Store interface)
	prefStore := preferences.NewMemoryStore(slog.Default())

	serviceOpts := []feed.ServiceOption{}
	if langs := os.Getenv("SYSTEM_LANGUAGES"); langs != "" {
		serviceOpts = append(serviceOpts, feed.WithSystemLanguages(strings.Split(langs, ",")))
	}
	feedService := feed.NewFeedService(client, client, prefStore, serviceOpts...)

	sessions := feedcache.New(0, slog.Default())

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.ViewerContext)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.ViewerHeader},
		MaxAge:         300,
	}))

	// Rate limiting: 300 requests per minute per viewer (or IP)
	rateLimiter := middleware.NewRateLimiter(300, 1*time.Minute)
	r.Use(rateLimiter.Middleware)

	routes.RegisterFeedRoutes(r, feedService, sessions)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	port := os.Getenv("SKYLIGHT_PORT")
	if port == "" {
		port = "8082"
	}

	fmt.Printf("Skylight feed pipeline starting on port %s\n", port)
	fmt.Printf("AppView URL: %s\n", appviewURL)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
