package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/dmehra-dev/pigeon/internal/config"
	"github.com/dmehra-dev/pigeon/internal/handlers"
	"github.com/dmehra-dev/pigeon/internal/server"
	"github.com/dmehra-dev/pigeon/internal/store"
	"github.com/dmehra-dev/pigeon/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()

	// Open the durable message store
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Telemetry
	metrics := telemetry.New(prometheus.DefaultRegisterer)

	// Realtime relay hub
	hub := server.NewHub(metrics)
	go hub.Run()
	wsHandler := server.NewHandler(hub)

	// HTTP handlers
	messageHandler := handlers.NewMessageHandler(db, metrics)
	roomHandler := handlers.NewRoomHandler(db)

	// Set up router with middleware
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS configuration - reads from CORS_ORIGINS env var
	// Format: comma-separated list of origins, e.g., "http://localhost:5173,https://chat.example.com"
	corsOrigins := getCorsOrigins()
	log.Printf("CORS allowed origins: %v", corsOrigins)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and metrics endpoints
	r.Get("/health", handlers.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", messageHandler.CreateMessage)
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", roomHandler.CreateRoom)
			r.Get("/{id}", roomHandler.GetRoom)
			r.Get("/{id}/messages", messageHandler.ListMessages)
		})
	})

	// Realtime channel endpoint
	r.Get("/ws/{id}", wsHandler.ServeWS)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("🚀 pigeon server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// getCorsOrigins returns allowed CORS origins from environment or defaults
func getCorsOrigins() []string {
	originsEnv := os.Getenv("CORS_ORIGINS")
	if originsEnv == "" {
		// Default to localhost for development
		return []string{"http://localhost:5173", "http://localhost:3000"}
	}

	// Split comma-separated origins and trim whitespace
	origins := strings.Split(originsEnv, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}
