package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/combattracker/internal/api/apierr"
	"github.com/mcoot/combattracker/internal/middleware"
)

// Common returns the middleware every /api/v1 route runs behind, outermost
// first. Panics surface as INTERNAL_ERROR envelopes.
func Common(logger *slog.Logger) []mux.MiddlewareFunc {
	writeInternal := func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	}
	return []mux.MiddlewareFunc{
		middleware.Recovery(logger, writeInternal),
		middleware.Logging(logger),
	}
}
