package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/combattracker/internal/api/handler"
	"github.com/mcoot/combattracker/internal/api/middleware"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/api/sse"
	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/markdown"
	"github.com/mcoot/combattracker/internal/services/library"
	"github.com/mcoot/combattracker/internal/services/tracker"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Clock      clock.Clock
	Random     random.Random
	Library    *library.Service
	Tracker    *tracker.Controller
	Sync       *cloudsync.Adapter // nil when sync is not configured
	Renderer   *markdown.Renderer
	HubManager *sse.HubManager
	APIKeyHash string // bcrypt hash; empty disables auth
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	libraryHandler := handler.NewLibraryHandler(cfg.Library)
	combatHandler := handler.NewCombatHandler(cfg.Tracker, cfg.HubManager, cfg.Clock, cfg.Logger)
	syncHandler := handler.NewSyncHandler(cfg.Sync)
	toolsHandler := handler.NewToolsHandler(cfg.Renderer, cfg.Random)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Common(cfg.Logger)...)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.APIKey(cfg.APIKeyHash))

	// Library
	protected.HandleFunc("/players", libraryHandler.ListPlayers).Methods(http.MethodGet)
	protected.HandleFunc("/players", libraryHandler.CreatePlayer).Methods(http.MethodPost)
	protected.HandleFunc("/players/{id}", libraryHandler.GetPlayer).Methods(http.MethodGet)
	protected.HandleFunc("/players/{id}", libraryHandler.UpdatePlayer).Methods(http.MethodPut)
	protected.HandleFunc("/players/{id}", libraryHandler.DeletePlayer).Methods(http.MethodDelete)
	protected.HandleFunc("/monsters", libraryHandler.ListMonsters).Methods(http.MethodGet)
	protected.HandleFunc("/monsters", libraryHandler.CreateMonster).Methods(http.MethodPost)
	protected.HandleFunc("/monsters/{id}", libraryHandler.GetMonster).Methods(http.MethodGet)
	protected.HandleFunc("/monsters/{id}", libraryHandler.UpdateMonster).Methods(http.MethodPut)
	protected.HandleFunc("/monsters/{id}", libraryHandler.DeleteMonster).Methods(http.MethodDelete)

	// Combats
	protected.HandleFunc("/combats", combatHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/combats", combatHandler.Create).Methods(http.MethodPost)
	combats := protected.PathPrefix("/combats/{id}").Subrouter()
	combats.HandleFunc("", combatHandler.Get).Methods(http.MethodGet)
	combats.HandleFunc("", combatHandler.Update).Methods(http.MethodPut)
	combats.HandleFunc("", combatHandler.Delete).Methods(http.MethodDelete)
	combats.HandleFunc("/events", combatHandler.Events).Methods(http.MethodGet)
	combats.HandleFunc("/next", combatHandler.NextTurn).Methods(http.MethodPost)
	combats.HandleFunc("/prev", combatHandler.PrevTurn).Methods(http.MethodPost)
	combats.HandleFunc("/reset", combatHandler.Reset).Methods(http.MethodPost)

	// Combatants
	combats.HandleFunc("/combatants", combatHandler.AddCombatant).Methods(http.MethodPost)
	combats.HandleFunc("/combatants/{cid}", combatHandler.RemoveCombatant).Methods(http.MethodDelete)
	combats.HandleFunc("/combatants/{cid}/hp", combatHandler.ChangeHP).Methods(http.MethodPost)
	combats.HandleFunc("/combatants/{cid}/temp-hp", combatHandler.SetTempHP).Methods(http.MethodPut)
	combats.HandleFunc("/combatants/{cid}/max-hp", combatHandler.SetMaxHP).Methods(http.MethodPut)
	combats.HandleFunc("/combatants/{cid}/conditions", combatHandler.ToggleCondition).Methods(http.MethodPost)
	combats.HandleFunc("/combatants/{cid}/death-saves", combatHandler.SetDeathSaves).Methods(http.MethodPut)
	combats.HandleFunc("/combatants/{cid}/concentration", combatHandler.ToggleConcentration).Methods(http.MethodPost)
	combats.HandleFunc("/combatants/{cid}/initiative", combatHandler.SetInitiative).Methods(http.MethodPut)

	// Parked groups
	combats.HandleFunc("/parked", combatHandler.Park).Methods(http.MethodPost)
	combats.HandleFunc("/parked/{gid}/activate", combatHandler.Activate).Methods(http.MethodPost)
	combats.HandleFunc("/parked/{gid}", combatHandler.DiscardParked).Methods(http.MethodDelete)

	// Cloud sync
	protected.HandleFunc("/sync", syncHandler.Sync).Methods(http.MethodPost)
	protected.HandleFunc("/sync/status", syncHandler.Status).Methods(http.MethodGet)
	protected.HandleFunc("/sync/authorize", syncHandler.AuthorizationURL).Methods(http.MethodGet)
	protected.HandleFunc("/sync/authorize", syncHandler.Authorize).Methods(http.MethodPost)
	protected.HandleFunc("/sync/revoke", syncHandler.Revoke).Methods(http.MethodPost)
	protected.HandleFunc("/sync/upload", syncHandler.Upload).Methods(http.MethodPost)
	protected.HandleFunc("/sync/download", syncHandler.Download).Methods(http.MethodPost)

	// Tools
	protected.HandleFunc("/markdown", toolsHandler.Markdown).Methods(http.MethodPost)
	protected.HandleFunc("/dice/roll", toolsHandler.Roll).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
