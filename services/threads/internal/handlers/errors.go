package handlers

import (
	"errors"
	"net/http"

	"github.com/example/forum-platform/internal/platform/api"
	"github.com/example/forum-platform/internal/platform/httpserver"
	"github.com/example/forum-platform/services/threads/internal/store"
)

// writeStoreError maps the store's sentinel errors onto the API envelope.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrValidation):
		api.BadRequest(w, "VALIDATION", err.Error(), rid, nil)
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", err.Error(), rid)
	case errors.Is(err, store.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", err.Error(), rid)
	case errors.Is(err, store.ErrConflict):
		api.Conflict(w, "CONFLICT", err.Error(), rid, nil)
	default:
		api.Internal(w, rid)
	}
}
