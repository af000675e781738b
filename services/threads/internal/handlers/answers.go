package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/forum-platform/internal/platform/api"
	"github.com/example/forum-platform/internal/platform/auth"
	"github.com/example/forum-platform/services/threads/internal/events"
	"github.com/example/forum-platform/services/threads/internal/store"
)

// MarkAnswer handles POST /v1/comments/{comment_id}/answer
func MarkAnswer(as store.AnswerStore, pub *events.Publisher) http.HandlerFunc {
	return answerHandler(as.MarkAnswer, pub, events.SubjectAnswerMarked, "answer_marked")
}

// UnmarkAnswer handles DELETE /v1/comments/{comment_id}/answer
func UnmarkAnswer(as store.AnswerStore, pub *events.Publisher) http.HandlerFunc {
	return answerHandler(as.UnmarkAnswer, pub, events.SubjectAnswerUnmarked, "answer_unmarked")
}

func answerHandler(op func(ctx context.Context, commentID, requesterID string) error, pub *events.Publisher, subject, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}

		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", "", nil)
			return
		}

		if err := op(r.Context(), commentID, userID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		pub.Publish(subject, name, userID, map[string]any{
			"comment_id": commentID,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
