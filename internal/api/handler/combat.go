package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/api/sse"
	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/services/tracker"
)

// CombatHandler handles combat endpoints and their live event streams
type CombatHandler struct {
	tracker    *tracker.Controller
	hubManager *sse.HubManager
	clock      clock.Clock
	logger     *slog.Logger
}

// NewCombatHandler creates a new combat handler
func NewCombatHandler(tracker *tracker.Controller, hubManager *sse.HubManager, clock clock.Clock, logger *slog.Logger) *CombatHandler {
	return &CombatHandler{
		tracker:    tracker,
		hubManager: hubManager,
		clock:      clock,
		logger:     logger,
	}
}

// List handles GET /api/v1/combats
func (h *CombatHandler) List(w http.ResponseWriter, r *http.Request) {
	combats, err := h.tracker.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.CombatSummaries(combats))
}

// Create handles POST /api/v1/combats
func (h *CombatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CombatRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	saved, err := h.tracker.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, saved)
}

// Get handles GET /api/v1/combats/{id}
func (h *CombatHandler) Get(w http.ResponseWriter, r *http.Request) {
	saved, err := h.tracker.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// Update handles PUT /api/v1/combats/{id}
func (h *CombatHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.CombatRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	saved, err := h.tracker.UpdateDetails(r.Context(), mux.Vars(r)["id"], req.Name, req.Description)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/v1/combats/{id}
func (h *CombatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.tracker.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	h.hubManager.RemoveHub(id)
	response.NoContent(w)
}

// AddCombatant handles POST /api/v1/combats/{id}/combatants
func (h *CombatHandler) AddCombatant(w http.ResponseWriter, r *http.Request) {
	var draft request.CombatantRequest
	if err := decode(r, &draft); err != nil {
		WriteError(w, err)
		return
	}
	if draft.Quantity == 0 {
		draft.Quantity = 1
	}

	saved, added, err := h.tracker.AddCombatant(r.Context(), mux.Vars(r)["id"], draft)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.CombatantsAdded{Combat: saved, Added: added})
}

// RemoveCombatant handles DELETE /api/v1/combats/{id}/combatants/{cid}
func (h *CombatHandler) RemoveCombatant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	saved, err := h.tracker.RemoveCombatant(r.Context(), vars["id"], vars["cid"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// ChangeHP handles POST /api/v1/combats/{id}/combatants/{cid}/hp.
// A delta damages or heals; hp sets the value directly.
func (h *CombatHandler) ChangeHP(w http.ResponseWriter, r *http.Request) {
	var req request.HPRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	vars := mux.Vars(r)

	switch {
	case req.Delta != nil && req.HP == nil:
		saved, change, err := h.tracker.ApplyHPDelta(r.Context(), vars["id"], vars["cid"], *req.Delta)
		if err != nil {
			WriteError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, response.HPChangedFromModel(saved, change))
	case req.HP != nil && req.Delta == nil:
		saved, err := h.tracker.SetHP(r.Context(), vars["id"], vars["cid"], *req.HP)
		if err != nil {
			WriteError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, response.HPChanged{Combat: saved})
	default:
		WriteError(w, NewInvalidRequestError("Exactly one of delta or hp is required"))
	}
}

// SetTempHP handles PUT /api/v1/combats/{id}/combatants/{cid}/temp-hp
func (h *CombatHandler) SetTempHP(w http.ResponseWriter, r *http.Request) {
	h.withValue(w, r, h.tracker.SetTempHP)
}

// SetMaxHP handles PUT /api/v1/combats/{id}/combatants/{cid}/max-hp
func (h *CombatHandler) SetMaxHP(w http.ResponseWriter, r *http.Request) {
	h.withValue(w, r, h.tracker.SetMaxHP)
}

// SetInitiative handles PUT /api/v1/combats/{id}/combatants/{cid}/initiative
func (h *CombatHandler) SetInitiative(w http.ResponseWriter, r *http.Request) {
	h.withValue(w, r, h.tracker.SetInitiative)
}

// ToggleCondition handles POST /api/v1/combats/{id}/combatants/{cid}/conditions
func (h *CombatHandler) ToggleCondition(w http.ResponseWriter, r *http.Request) {
	var req request.ConditionRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	vars := mux.Vars(r)

	saved, err := h.tracker.ToggleCondition(r.Context(), vars["id"], vars["cid"], req.Condition)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// SetDeathSaves handles PUT /api/v1/combats/{id}/combatants/{cid}/death-saves
func (h *CombatHandler) SetDeathSaves(w http.ResponseWriter, r *http.Request) {
	var req request.DeathSavesRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	vars := mux.Vars(r)

	saved, err := h.tracker.SetDeathSaves(r.Context(), vars["id"], vars["cid"], req.Successes, req.Failures)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// ToggleConcentration handles POST /api/v1/combats/{id}/combatants/{cid}/concentration
func (h *CombatHandler) ToggleConcentration(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	saved, err := h.tracker.ToggleConcentration(r.Context(), vars["id"], vars["cid"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// NextTurn handles POST /api/v1/combats/{id}/next
func (h *CombatHandler) NextTurn(w http.ResponseWriter, r *http.Request) {
	h.withCombat(w, r, h.tracker.NextTurn)
}

// PrevTurn handles POST /api/v1/combats/{id}/prev
func (h *CombatHandler) PrevTurn(w http.ResponseWriter, r *http.Request) {
	h.withCombat(w, r, h.tracker.PrevTurn)
}

// Reset handles POST /api/v1/combats/{id}/reset
func (h *CombatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.withCombat(w, r, h.tracker.Reset)
}

// Park handles POST /api/v1/combats/{id}/parked
func (h *CombatHandler) Park(w http.ResponseWriter, r *http.Request) {
	var draft request.CombatantRequest
	if err := decode(r, &draft); err != nil {
		WriteError(w, err)
		return
	}
	if draft.Quantity == 0 {
		draft.Quantity = 1
	}

	saved, group, err := h.tracker.Park(r.Context(), mux.Vars(r)["id"], draft)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.GroupParked{Combat: saved, Group: group})
}

// Activate handles POST /api/v1/combats/{id}/parked/{gid}/activate
func (h *CombatHandler) Activate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	saved, added, err := h.tracker.Unpark(r.Context(), vars["id"], vars["gid"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.CombatantsAdded{Combat: saved, Added: added})
}

// DiscardParked handles DELETE /api/v1/combats/{id}/parked/{gid}
func (h *CombatHandler) DiscardParked(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	saved, err := h.tracker.DiscardParked(r.Context(), vars["id"], vars["gid"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// Events handles GET /api/v1/combats/{id}/events.
// The stream opens with the current snapshot so clients need no extra fetch.
func (h *CombatHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	saved, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	initial, err := sse.EncodeEvent(model.Event{
		Type:      model.EventCombatUpdated,
		Timestamp: h.clock.Now(),
		CombatID:  id,
		Payload:   saved,
	})
	if err != nil {
		h.logger.Error("failed to encode initial snapshot", slog.String("combat_id", id), slog.Any("error", err))
		WriteError(w, NewInternalError())
		return
	}

	sse.ServeSSE(w, r, h.hubManager, id, initial)
}

func (h *CombatHandler) withCombat(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*model.SavedCombat, error)) {
	saved, err := fn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

func (h *CombatHandler) withValue(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, combatantID string, value int) (*model.SavedCombat, error)) {
	var req request.ValueRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Value == nil {
		WriteError(w, NewInvalidRequestError("value is required"))
		return
	}
	vars := mux.Vars(r)

	saved, err := fn(r.Context(), vars["id"], vars["cid"], *req.Value)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}
