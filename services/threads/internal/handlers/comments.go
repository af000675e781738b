package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/forum-platform/internal/platform/api"
	"github.com/example/forum-platform/internal/platform/auth"
	"github.com/example/forum-platform/services/threads/internal/events"
	"github.com/example/forum-platform/services/threads/internal/store"
	"github.com/example/forum-platform/services/threads/internal/thread"
)

type createCommentRequest struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parent_id,omitempty"`
}

type repliesResponse struct {
	Comments []*thread.Node `json:"comments"`
}

// CreateComment handles POST /v1/posts/{post_id}/comments
func CreateComment(cs store.CommentStore, pub *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}

		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if postID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", "", nil)
			return
		}

		var req createCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			api.BadRequest(w, "EMPTY_TEXT", "text must not be empty", "", nil)
			return
		}

		created, err := cs.Create(r.Context(), store.Comment{
			PostID:   postID,
			AuthorID: userID,
			ParentID: req.ParentID,
			Text:     req.Text,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		pub.Publish(events.SubjectCommentCreated, "comment_created", userID, map[string]any{
			"comment_id": created.ID,
			"post_id":    created.PostID,
			"parent_id":  created.ParentID,
		})
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(cs store.CommentStore, pub *events.Publisher) http.HandlerFunc {
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

		if err := cs.SoftDelete(r.Context(), commentID, userID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		pub.Publish(events.SubjectCommentDeleted, "comment_deleted", userID, map[string]any{
			"comment_id": commentID,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetThread handles GET /v1/posts/{post_id}/comments
func GetThread(asm *thread.Assembler, ps store.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if postID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", "", nil)
			return
		}

		if _, err := ps.GetPost(r.Context(), postID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		limit := queryInt(r, "limit", 0)
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := asm.FetchTopLevel(r.Context(), postID, limit, cursor)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// LoadMoreReplies handles GET /v1/posts/{post_id}/comments/{comment_id}/replies
func LoadMoreReplies(asm *thread.Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		parentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if postID == "" || parentID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id and comment_id are required", "", nil)
			return
		}

		limit := queryInt(r, "limit", 0)
		skip := queryInt(r, "skip", 0)

		nodes, err := asm.LoadMoreReplies(r.Context(), postID, parentID, limit, skip)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, repliesResponse{Comments: nodes})
	}
}

// ResolveComment handles GET /v1/comments/{comment_id}
func ResolveComment(asm *thread.Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", "", nil)
			return
		}

		requesterID, _ := auth.UserIDFromContext(r.Context())
		contextWindow := queryInt(r, "context", 0)

		node, err := asm.ResolveComment(r.Context(), commentID, requesterID, contextWindow)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, node)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
