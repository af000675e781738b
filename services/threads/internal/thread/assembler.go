// Package thread turns flat comment rows into bounded, score-annotated
// discussion trees: first-page assembly, incremental reply expansion, and
// single-comment resolution.
package thread

import (
	"context"
	"fmt"

	"github.com/example/forum-platform/internal/platform/markup"
	"github.com/example/forum-platform/services/threads/internal/store"
)

// Node is one hydrated comment: the stored row plus rendered text, its
// current score, eagerly loaded replies, and how many direct replies were
// left behind by the fanout policy.
type Node struct {
	store.Comment
	BodyHTML         string  `json:"body_html"`
	Score            int     `json:"score"`
	HiddenReplyCount int     `json:"hidden_reply_count"`
	Replies          []*Node `json:"replies"`
}

// Page is one page of top-level comments. NextCursor is empty on the last
// page; otherwise it is the id of the last comment returned.
type Page struct {
	Comments   []*Node `json:"comments"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Assembler builds pages of discussion trees from the store's read
// primitives, one level at a time, bounded by its Policy.
type Assembler struct {
	comments store.CommentStore
	votes    store.VoteLedger
	policy   Policy
}

func New(comments store.CommentStore, votes store.VoteLedger, policy Policy) *Assembler {
	if policy.MaxDepth <= 0 {
		policy = DefaultPolicy
	}
	return &Assembler{comments: comments, votes: votes, policy: policy}
}

// FetchTopLevel returns one page of a post's top-level comments, newest
// first, each hydrated with its bounded eager subtree. cursor is the id of
// the last comment of the previous page.
func (a *Assembler) FetchTopLevel(ctx context.Context, postID string, limit int, cursor string) (Page, error) {
	limit = clampLimit(limit)

	// Over-fetch one row to learn whether another page exists.
	roots, err := a.comments.ListTopLevel(ctx, postID, limit+1, cursor)
	if err != nil {
		return Page{}, err
	}

	var nextCursor string
	if len(roots) > limit {
		roots = roots[:limit]
		nextCursor = roots[limit-1].ID
	}

	nodes, err := a.assemble(ctx, roots, 0, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Comments: nodes, NextCursor: nextCursor}, nil
}

// LoadMoreReplies returns the next limit direct children of parentID after
// the skip already held by the caller, hydrated with the same policy shifted
// to the parent's depth. Repeated calls with growing skip never repeat an id
// as long as no sibling is created in between.
func (a *Assembler) LoadMoreReplies(ctx context.Context, postID, parentID string, limit, skip int) ([]*Node, error) {
	limit = clampLimit(limit)
	if skip < 0 {
		skip = 0
	}

	parent, err := a.comments.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.PostID != postID {
		return nil, fmt.Errorf("comment %s does not belong to post %s: %w", parentID, postID, store.ErrNotFound)
	}

	depth, err := a.comments.Depth(ctx, parentID)
	if err != nil {
		return nil, err
	}

	children, err := a.comments.ListReplies(ctx, parentID, limit, skip)
	if err != nil {
		return nil, err
	}
	return a.assemble(ctx, children, depth+1, limit)
}

// ResolveComment returns one comment without its subtree, for deep links.
// contextWindow is reserved and currently ignored; requesterID is carried
// for parity with the mutating operations but reads are not restricted.
func (a *Assembler) ResolveComment(ctx context.Context, commentID, requesterID string, contextWindow int) (*Node, error) {
	_ = requesterID
	_ = contextWindow

	c, err := a.comments.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	score, err := a.votes.Score(ctx, store.TargetComment, commentID)
	if err != nil {
		return nil, err
	}
	counts, err := a.comments.CountReplies(ctx, []string{commentID})
	if err != nil {
		return nil, err
	}

	n := newNode(c)
	n.Score = score
	n.HiddenReplyCount = counts[commentID]
	return n, nil
}

// assemble hydrates one generation of comments sitting at the given depth
// and recurses into their children while the policy allows. Nodes are held
// in an arena keyed by id so counts and scores fetched in bulk can be
// attached in place.
func (a *Assembler) assemble(ctx context.Context, comments []store.Comment, depth, topLimit int) ([]*Node, error) {
	if len(comments) == 0 {
		return []*Node{}, nil
	}

	nodes := make([]*Node, len(comments))
	arena := make(map[string]*Node, len(comments))
	ids := make([]string, len(comments))
	for i, c := range comments {
		nodes[i] = newNode(c)
		arena[c.ID] = nodes[i]
		ids[i] = c.ID
	}

	counts, err := a.comments.CountReplies(ctx, ids)
	if err != nil {
		return nil, err
	}
	scores, err := a.votes.Scores(ctx, store.TargetComment, ids)
	if err != nil {
		return nil, err
	}
	for id, n := range arena {
		n.Score = scores[id]
		n.HiddenReplyCount = counts[id]
	}

	if depth >= a.policy.MaxDepth {
		return nodes, nil
	}

	width := a.policy.Width(depth+1, topLimit)
	for _, n := range nodes {
		if counts[n.ID] == 0 {
			continue
		}
		children, err := a.comments.ListReplies(ctx, n.ID, width, 0)
		if err != nil {
			return nil, err
		}
		replies, err := a.assemble(ctx, children, depth+1, topLimit)
		if err != nil {
			return nil, err
		}
		n.Replies = replies
		n.HiddenReplyCount = counts[n.ID] - len(children)
	}
	return nodes, nil
}

func newNode(c store.Comment) *Node {
	n := &Node{Comment: c, Replies: []*Node{}}
	if !c.Deleted {
		n.BodyHTML = markup.Render(c.Text)
	}
	return n
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
