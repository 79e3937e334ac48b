package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/memorygame/internal/api/apierr"
	"github.com/mcoot/memorygame/internal/api/handler"
	apimiddleware "github.com/mcoot/memorygame/internal/api/middleware"
	"github.com/mcoot/memorygame/internal/api/response"
	"github.com/mcoot/memorygame/internal/metrics"
	"github.com/mcoot/memorygame/internal/middleware"
	"github.com/mcoot/memorygame/internal/services/auth"
	"github.com/mcoot/memorygame/internal/services/leaderboard"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *auth.Service
	LeaderboardService *leaderboard.Service

	// WriteLimiter throttles account and score writes per client; nil disables it
	WriteLimiter *middleware.IPRateLimiter
	// AllowedOrigins lists origins allowed to call the API from a browser
	AllowedOrigins []string
	// ExposeMetrics serves Prometheus metrics at /metrics
	ExposeMetrics bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	scoreHandler := handler.NewScoreHandler(cfg.LeaderboardService)

	// Create middleware
	authMiddleware := apimiddleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)
	metricsMiddleware := middleware.Metrics()

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(metricsMiddleware)

	// Public reads
	api.HandleFunc("/scores", scoreHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Writes, rate limited per client when configured
	writes := api.NewRoute().Subrouter()
	if cfg.WriteLimiter != nil {
		writes.Use(apimiddleware.RateLimit(cfg.WriteLimiter))
	}
	writes.HandleFunc("/scores", scoreHandler.Submit).Methods(http.MethodPost)
	writes.HandleFunc("/register", playerHandler.Register).Methods(http.MethodPost)
	writes.HandleFunc("/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	players.HandleFunc("/me", playerHandler.DeleteMe).Methods(http.MethodDelete)

	if cfg.ExposeMetrics {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	// CORS wraps the router so preflight requests are answered before
	// method matching rejects them
	return middleware.CORS(cfg.AllowedOrigins)(r)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
