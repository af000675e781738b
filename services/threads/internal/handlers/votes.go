package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/forum-platform/internal/platform/api"
	"github.com/example/forum-platform/internal/platform/auth"
	"github.com/example/forum-platform/services/threads/internal/events"
	"github.com/example/forum-platform/services/threads/internal/store"
)

type voteRequest struct {
	Type string `json:"type"` // "up" or "down"
}

// Vote handles POST /v1/votes/{target_type}/{target_id}
func Vote(vl store.VoteLedger, pub *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}

		target := store.TargetType(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "target_type"))))
		targetID := strings.TrimSpace(chi.URLParam(r, "target_id"))
		if target != store.TargetPost && target != store.TargetComment {
			api.BadRequest(w, "INVALID_TARGET", "target_type must be post or comment", "", nil)
			return
		}
		if targetID == "" {
			api.BadRequest(w, "MISSING_ID", "target_id is required", "", nil)
			return
		}

		var req voteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		var value store.VoteValue
		switch strings.ToLower(strings.TrimSpace(req.Type)) {
		case "up":
			value = store.VoteUp
		case "down":
			value = store.VoteDown
		default:
			api.BadRequest(w, "INVALID_VOTE", "type must be up or down", "", nil)
			return
		}

		if err := vl.Vote(r.Context(), target, targetID, userID, value); err != nil {
			writeStoreError(w, r, err)
			return
		}

		pub.Publish(events.SubjectVoteCast, "vote_cast", userID, map[string]any{
			"target_type": string(target),
			"target_id":   targetID,
			"value":       int(value),
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
