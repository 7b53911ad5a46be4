package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sheetsync-core-pipedrive-layer/internal/application"
	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/infrastructure/cache"
	"sheetsync-core-pipedrive-layer/internal/infrastructure/grid"
	appmetrics "sheetsync-core-pipedrive-layer/internal/infrastructure/metrics"
	"sheetsync-core-pipedrive-layer/internal/infrastructure/pipedrive"
	"sheetsync-core-pipedrive-layer/internal/infrastructure/pubsub"
	"sheetsync-core-pipedrive-layer/internal/infrastructure/repository"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	apiToken := os.Getenv("PIPEDRIVE_API_TOKEN")
	if apiToken == "" {
		logger.Fatal().Msg("PIPEDRIVE_API_TOKEN environment variable is required")
	}
	apiBaseURL := os.Getenv("PIPEDRIVE_BASE_URL")

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(os.Getenv("MONGODB_DATABASE"))

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer redisClient.Close()

	// Initialize infrastructure (implementations)
	kvStore := repository.NewMongoKVRepository(db)
	fieldCache := cache.NewRedisFieldCache(redisClient, logger)
	gridSurface := grid.NewMemoryGrid()
	syncMetrics := appmetrics.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	// Initialize rate limiter and retry config for the Pipedrive API
	rateLimiter := pipedrive.NewRateLimiter(logger)
	retryConfig := pipedrive.DefaultRetryConfig()
	crmClient := pipedrive.NewClientWithOptions(apiBaseURL, apiToken, rateLimiter, retryConfig, logger)

	// Initialize progress pub/sub for the sidebar's streaming endpoint
	progressPubSub := pubsub.NewProgressPubSub(logger)

	// Initialize application services
	prefService := application.NewPreferenceService(kvStore, logger)
	gridWriter := application.NewGridWriter(gridSurface, logger)
	rowTracker := application.NewRowTracker(gridSurface, kvStore, logger)
	fieldRegistry := application.NewFieldRegistry(crmClient, fieldCache, logger)
	syncService := application.NewSyncService(
		crmClient,
		prefService,
		gridWriter,
		rowTracker,
		fieldRegistry,
		kvStore,
		syncMetrics,
		progressPubSub,
		logger,
	)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Add caller scope middleware (extracts user and team from headers)
	// This middleware will skip public routes like /health and /swagger/*
	r.Use(callerScopeMiddleware(logger))

	// Public routes (no caller scope required)
	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics - public
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Sync routes
	r.Post("/api/v1/sheets/{sheetId}/pull", pullHandler(syncService, logger))
	r.Post("/api/v1/sheets/{sheetId}/push", pushHandler(syncService, logger))
	r.Post("/api/v1/sheets/{sheetId}/edits", editHandler(rowTracker, logger))
	r.Post("/api/v1/sheets/{sheetId}/statuses/reset", resetStatusesHandler(rowTracker, logger))

	// Column preference routes
	r.Get("/api/v1/sheets/{sheetId}/columns", getColumnsHandler(prefService, logger))
	r.Put("/api/v1/sheets/{sheetId}/columns", saveColumnsHandler(prefService, logger))

	// Field metadata route
	r.Get("/api/v1/fields/{entity}", fieldsHandler(fieldRegistry, logger))

	// Progress stream: GET /api/v1/runs/{runId}/events
	r.Get("/api/v1/runs/{runId}/events", progressHandler(progressPubSub, logger))
	r.Get("/api/v1/runs/stats", runStatsHandler(progressPubSub))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// pullHandler fetches remote records into the sheet
func pullHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		var body struct {
			Entity   string `json:"entity"`
			FilterID int    `json:"filterId"`
			Limit    int    `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		entity, err := domain.ParseEntityType(body.Entity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := syncService.Pull(r.Context(), application.PullInput{
			SheetID:  sheetID,
			Entity:   entity,
			FilterID: body.FilterID,
			Limit:    body.Limit,
		})
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// pushHandler sends modified rows back to the remote
func pushHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		var body struct {
			Entity string `json:"entity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		entity, err := domain.ParseEntityType(body.Entity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		summary, err := syncService.Push(r.Context(), application.PushInput{
			SheetID: sheetID,
			Entity:  entity,
		})
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// editHandler records a user cell edit reported by the spreadsheet host
func editHandler(tracker *application.RowTracker, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		var body struct {
			Row int `json:"row"`
			Col int `json:"col"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := tracker.MarkEdited(r.Context(), sheetID, body.Row, body.Col); err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// resetStatusesHandler sets every data row back to a uniform status
func resetStatusesHandler(tracker *application.RowTracker, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		status, ok := domain.ParseSyncStatus(body.Status)
		if !ok {
			http.Error(w, "Unknown status", http.StatusBadRequest)
			return
		}

		if err := tracker.ResetAll(r.Context(), sheetID, status); err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// getColumnsHandler returns the active column preference for a sheet
func getColumnsHandler(prefService *application.PreferenceService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		entity, err := domain.ParseEntityType(r.URL.Query().Get("entity"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		cols, stored, err := prefService.Load(r.Context(), entity, sheetID)
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"columns": cols,
			"stored":  stored,
		})
	}
}

// saveColumnsHandler persists a column preference for a sheet
func saveColumnsHandler(prefService *application.PreferenceService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheetID := chi.URLParam(r, "sheetId")

		var body struct {
			Entity  string                    `json:"entity"`
			Columns []domain.ColumnDescriptor `json:"columns"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		entity, err := domain.ParseEntityType(body.Entity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := prefService.Save(r.Context(), entity, sheetID, body.Columns); err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// fieldsHandler returns the remote field definitions for an entity type
func fieldsHandler(registry *application.FieldRegistry, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := domain.ParseEntityType(chi.URLParam(r, "entity"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		defs, err := registry.Definitions(r.Context(), entity)
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(defs)
	}
}

// progressHandler streams progress events for a run as server-sent events
func progressHandler(progressPubSub *pubsub.ProgressPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runId")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		channel := progressPubSub.Subscribe(r.Context(), &pubsub.ProgressFilter{RunID: runID})
		defer progressPubSub.Unsubscribe(channel.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case event, open := <-channel.Events:
				if !open {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode progress event")
					continue
				}
				if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}

// runStatsHandler reports counts from the progress stream fan-out, mainly
// for checking that finished runs release their subscriptions
func runStatsHandler(progressPubSub *pubsub.ProgressPubSub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(progressPubSub.GetStats())
	}
}

// writeServiceError maps service errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var cfgErr *domain.ConfigError
	var remoteErr *domain.RemoteError

	switch {
	case errors.As(err, &cfgErr):
		logger.Warn().Err(err).Msg("Configuration error")
		http.Error(w, cfgErr.Error(), http.StatusBadRequest)
	case errors.As(err, &remoteErr):
		logger.Error().Err(err).Msg("Remote API error")
		status := http.StatusBadGateway
		if remoteErr.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		http.Error(w, remoteErr.Error(), status)
	default:
		logger.Error().Err(err).Msg("Internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// callerScopeMiddleware extracts the caller's user and team from headers
func callerScopeMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware for public routes
			path := r.URL.Path
			if path == "/health" ||
				path == "/metrics" ||
				path == "/swagger/doc.json" ||
				(len(path) > 8 && path[:9] == "/swagger/") {
				next.ServeHTTP(w, r)
				return
			}

			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				http.Error(w, "X-User-ID header is required", http.StatusBadRequest)
				return
			}

			ctx := domain.WithUserID(r.Context(), userID)
			if teamID := r.Header.Get("X-Team-ID"); teamID != "" {
				ctx = domain.WithTeamID(ctx, teamID)
			}

			logger.Debug().
				Str("userId", userID).
				Str("path", path).
				Msg("Authenticated request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
