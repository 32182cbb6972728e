package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/combattracker/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidCombat       = "INVALID_COMBAT"
	CodeInvalidCombatant    = "INVALID_COMBATANT"
	CodeInvalidTemplate     = "INVALID_TEMPLATE"
	CodeInvalidValue        = "INVALID_VALUE"
	CodeInvalidDice         = "INVALID_DICE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeMonsterNotFound     = "MONSTER_NOT_FOUND"
	CodeCombatNotFound      = "COMBAT_NOT_FOUND"
	CodeCombatantNotFound   = "COMBATANT_NOT_FOUND"
	CodeParkedGroupNotFound = "PARKED_GROUP_NOT_FOUND"
	CodeSyncDisabled        = "SYNC_DISABLED"
	CodeSyncInProgress      = "SYNC_IN_PROGRESS"
	CodeSyncNotAuthorized   = "SYNC_NOT_AUTHORIZED"
	CodeNoRemoteData        = "NO_REMOTE_DATA"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Validation errors carry the detail the user needs, so the message is kept
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMonsterNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMonsterNotFound, "Monster not found"}}
	case errors.Is(err, model.ErrCombatNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCombatNotFound, "Combat not found"}}
	case errors.Is(err, model.ErrCombatantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCombatantNotFound, "Combatant not found"}}
	case errors.Is(err, model.ErrParkedGroupNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParkedGroupNotFound, "Parked group not found"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
	case errors.Is(err, model.ErrInvalidDice):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDice, err.Error()}}
	case errors.Is(err, model.ErrInvalidCombatant):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCombatant, err.Error()}}
	case errors.Is(err, model.ErrInvalidCombat):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCombat, err.Error()}}
	case errors.Is(err, model.ErrInvalidTemplate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTemplate, err.Error()}}
	case errors.Is(err, model.ErrInvalidValue):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidValue, err.Error()}}

	// Sync errors
	case errors.Is(err, model.ErrSyncDisabled):
		return &httpError{http.StatusNotImplemented, APIError{CodeSyncDisabled, "Cloud sync is not configured"}}
	case errors.Is(err, model.ErrSyncInProgress):
		return &httpError{http.StatusConflict, APIError{CodeSyncInProgress, "A sync is already in progress"}}
	case errors.Is(err, model.ErrNotAuthorized):
		return &httpError{http.StatusForbidden, APIError{CodeSyncNotAuthorized, "Sync provider is not authorized"}}
	case errors.Is(err, model.ErrNoRemoteData):
		return &httpError{http.StatusNotFound, APIError{CodeNoRemoteData, "No remote data to download"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
