// Package store persists the threaded-discussion state: comment nodes,
// the per-user vote ledger, and the accepted-answer flag on question posts.
package store

import (
	"context"
	"errors"
	"time"
)

// Comment is a single node in a post's discussion tree. ParentID is nil for
// top-level comments. Deleted comments keep their place in the tree but
// their text is cleared.
type Comment struct {
	ID             string     `json:"id"`
	PostID         string     `json:"post_id"`
	AuthorID       string     `json:"author_id"`
	ParentID       *string    `json:"parent_id,omitempty"`
	Text           string     `json:"text"`
	Deleted        bool       `json:"deleted"`
	AcceptedAnswer bool       `json:"accepted_answer"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Post is the slice of the external post entity this service reads and
// writes: ownership, question-ness, and the answered flag.
type Post struct {
	ID         string `json:"id"`
	AuthorID   string `json:"author_id"`
	IsQuestion bool   `json:"is_question"`
	IsAnswered *bool  `json:"is_answered,omitempty"`
}

// TargetType names what a vote is attached to.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// VoteValue is +1 for an upvote, -1 for a downvote. Score is the sum of
// values over all live ledger rows for a target.
type VoteValue int16

const (
	VoteUp   VoteValue = 1
	VoteDown VoteValue = -1
)

// CommentStore is the persistence contract for comment nodes. The List and
// Count methods are the read primitives the thread assembler drives.
type CommentStore interface {
	// Create validates the post and parent, inserts the comment, and
	// registers the author's automatic upvote in the same transaction.
	Create(ctx context.Context, c Comment) (Comment, error)
	Get(ctx context.Context, commentID string) (Comment, error)
	// SoftDelete marks the comment deleted and clears its text. Only the
	// comment's author may delete it. Descendants are untouched.
	SoftDelete(ctx context.Context, commentID, requesterID string) error

	// ListTopLevel returns up to limit top-level comments of a post, newest
	// first (created_at desc, id desc), starting after the comment named by
	// cursor when non-empty.
	ListTopLevel(ctx context.Context, postID string, limit int, cursor string) ([]Comment, error)
	// ListReplies returns up to limit direct children of a comment in the
	// same stable order, skipping the first skip of them.
	ListReplies(ctx context.Context, parentID string, limit, skip int) ([]Comment, error)
	// CountReplies returns direct-child counts for each given id. Absent
	// keys mean zero.
	CountReplies(ctx context.Context, parentIDs []string) (map[string]int, error)
	// Depth returns the number of ancestors above a comment (0 = top-level).
	Depth(ctx context.Context, commentID string) (int, error)
}

// VoteLedger records at most one vote per (user, target). Vote toggles:
// a repeated identical vote removes the row, an opposite vote flips it.
type VoteLedger interface {
	Vote(ctx context.Context, target TargetType, targetID, userID string, value VoteValue) error
	Score(ctx context.Context, target TargetType, targetID string) (int, error)
	Scores(ctx context.Context, target TargetType, targetIDs []string) (map[string]int, error)
}

// PostStore reads the external post entity.
type PostStore interface {
	GetPost(ctx context.Context, postID string) (Post, error)
}

// AnswerStore is the accepted-answer state machine. Both operations are
// restricted to the post's author, question posts, and top-level comments,
// and run as one transaction across the comment and post rows.
type AnswerStore interface {
	MarkAnswer(ctx context.Context, commentID, requesterID string) error
	UnmarkAnswer(ctx context.Context, commentID, requesterID string) error
}

// Sentinel errors. Implementations wrap these with context; callers match
// with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)
