package handler

import (
	"net/http"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/model"
)

// SyncHandler handles cloud sync endpoints. A nil adapter means sync is off.
type SyncHandler struct {
	adapter *cloudsync.Adapter
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(adapter *cloudsync.Adapter) *SyncHandler {
	return &SyncHandler{adapter: adapter}
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		response.JSON(w, http.StatusOK, response.SyncStatus{Enabled: false})
		return
	}

	authorized, err := h.adapter.IsAuthorized(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	lastSynced, err := h.adapter.LastSyncTime(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SyncStatus{
		Enabled:    true,
		Provider:   h.adapter.Provider(),
		Authorized: authorized,
		LastSynced: lastSynced,
	})
}

// AuthorizationURL handles GET /api/v1/sync/authorize
func (h *SyncHandler) AuthorizationURL(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	url, err := h.adapter.AuthorizationURL(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.AuthorizationURL{URL: url})
}

// Authorize handles POST /api/v1/sync/authorize
func (h *SyncHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	var req request.AuthorizeRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Code == "" {
		WriteError(w, NewInvalidRequestError("code is required"))
		return
	}

	if err := h.adapter.Authorize(r.Context(), req.Code); err != nil {
		WriteError(w, err)
		return
	}
	h.Status(w, r)
}

// Revoke handles POST /api/v1/sync/revoke
func (h *SyncHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	if err := h.adapter.Revoke(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Sync handles POST /api/v1/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	result, err := h.adapter.Sync(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Upload handles POST /api/v1/sync/upload
func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	ts, err := h.adapter.Upload(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Transfer{LastSynced: ts})
}

// Download handles POST /api/v1/sync/download
func (h *SyncHandler) Download(w http.ResponseWriter, r *http.Request) {
	if h.adapter == nil {
		WriteError(w, model.ErrSyncDisabled)
		return
	}

	ts, err := h.adapter.Download(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Transfer{LastSynced: ts})
}
