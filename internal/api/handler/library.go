package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/services/library"
)

// LibraryHandler handles player and monster template endpoints
type LibraryHandler struct {
	library *library.Service
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library *library.Service) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// ListPlayers handles GET /api/v1/players
func (h *LibraryHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.library.ListPlayers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, players)
}

// GetPlayer handles GET /api/v1/players/{id}
func (h *LibraryHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.library.GetPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, player)
}

// CreatePlayer handles POST /api/v1/players
func (h *LibraryHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.library.CreatePlayer(r.Context(), req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, player)
}

// UpdatePlayer handles PUT /api/v1/players/{id}
func (h *LibraryHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.library.UpdatePlayer(r.Context(), mux.Vars(r)["id"], req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, player)
}

// DeletePlayer handles DELETE /api/v1/players/{id}
func (h *LibraryHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeletePlayer(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ListMonsters handles GET /api/v1/monsters
func (h *LibraryHandler) ListMonsters(w http.ResponseWriter, r *http.Request) {
	monsters, err := h.library.ListMonsters(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, monsters)
}

// GetMonster handles GET /api/v1/monsters/{id}
func (h *LibraryHandler) GetMonster(w http.ResponseWriter, r *http.Request) {
	monster, err := h.library.GetMonster(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, monster)
}

// CreateMonster handles POST /api/v1/monsters
func (h *LibraryHandler) CreateMonster(w http.ResponseWriter, r *http.Request) {
	var req request.MonsterRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	monster, err := h.library.CreateMonster(r.Context(), req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, monster)
}

// UpdateMonster handles PUT /api/v1/monsters/{id}
func (h *LibraryHandler) UpdateMonster(w http.ResponseWriter, r *http.Request) {
	var req request.MonsterRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	monster, err := h.library.UpdateMonster(r.Context(), mux.Vars(r)["id"], req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, monster)
}

// DeleteMonster handles DELETE /api/v1/monsters/{id}
func (h *LibraryHandler) DeleteMonster(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteMonster(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}
