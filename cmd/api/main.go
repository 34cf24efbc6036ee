package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	datafeed "github.com/fazecat/signalmaker/Internal/database"
	"github.com/fazecat/signalmaker/Internal/utils/logging"
	"github.com/fazecat/signalmaker/cmd/api/internal"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	log := logging.New(os.Getenv("LOG_LEVEL"))

	store, err := datafeed.Open(datafeed.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer store.Close()

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		log.Warn().Msg("JWT_SECRET_KEY not set, using an insecure development secret")
		secret = "dev-secret-not-for-production"
	}
	issuer := internal.NewTokenIssuer(secret, internal.DefaultTokenTTL)

	apiServer := &internal.API{
		Store:  store,
		Issuer: issuer,
		Log:    log,
	}

	var corsOrigins []string
	if v := os.Getenv("API_CORS_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(internal.CORS(corsOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "database unreachable",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    "healthy",
		})
	})

	// Public routes
	r.Get("/api/signals", apiServer.HandleGetSignals)
	r.Get("/api/orders", apiServer.HandleGetOrders)
	r.Get("/api/pending", apiServer.HandleGetPending)
	r.Get("/api/watchlist", apiServer.HandleGetWatchlist)
	r.Get("/api/settings", apiServer.HandleGetSetting)
	r.Post("/api/token", apiServer.HandleGenerateToken)

	// Mutations require a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(internal.RequireToken(issuer))
		r.Post("/api/watchlist", apiServer.HandleAddToWatchlist)
		r.Delete("/api/watchlist", apiServer.HandleRemoveFromWatchlist)
		r.Post("/api/settings", apiServer.HandleUpdateSetting)
	})

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Info().Str("addr", addr).Msg("starting API server")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
