package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/globaldex/internal/api/handler"
	"github.com/mcoot/globaldex/internal/api/middleware"
	"github.com/mcoot/globaldex/internal/api/response"
	"github.com/mcoot/globaldex/internal/services/dex"
	"github.com/mcoot/globaldex/internal/services/intake"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AdminUserAgent string
	Intake         *intake.Service
	Dex            *dex.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	intakeHandler := handler.NewIntakeHandler(cfg.Intake)
	dexHandler := handler.NewDexHandler(cfg.Dex)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.AdminAudit(cfg.Logger, cfg.AdminUserAgent))

	// Write intents
	api.HandleFunc("/register", intakeHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/capture", intakeHandler.Capture).Methods(http.MethodPost)
	api.HandleFunc("/uncapture", intakeHandler.Uncapture).Methods(http.MethodPost)

	// Read views
	api.HandleFunc("/dex/{id}", dexHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", dexHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/completion", dexHandler.Completion).Methods(http.MethodGet)
	api.HandleFunc("/player/search", dexHandler.SearchPlayer).Methods(http.MethodGet)
	api.HandleFunc("/species/search", dexHandler.SearchSpecies).Methods(http.MethodGet)
	api.HandleFunc("/species/{name}/caught", dexHandler.SpeciesCaught).Methods(http.MethodGet)

	api.HandleFunc("/health", healthHandler(cfg.Intake)).Methods(http.MethodGet)

	return r
}

func healthHandler(intakeService *intake.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := intakeService.Stats()
		queues := make([]response.QueueStats, 0, len(stats))
		for _, s := range stats {
			queues = append(queues, response.QueueStats{
				Name:      s.Name,
				Depth:     s.Depth,
				Capacity:  s.Capacity,
				Workers:   s.Workers,
				Processed: s.Processed,
				Failed:    s.Failed,
				Rejected:  s.Rejected,
			})
		}
		response.JSON(w, http.StatusOK, response.HealthResponse{OK: true, Queues: queues})
	}
}
