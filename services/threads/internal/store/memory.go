package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a development and test implementation of all store
// contracts. A single mutex stands in for the database's transaction
// isolation.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
	posts    map[string]Post
	votes    map[voteKey]VoteValue
	lastTS   time.Time
}

type voteKey struct {
	target   TargetType
	targetID string
	userID   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		comments: make(map[string]Comment),
		posts:    make(map[string]Post),
		votes:    make(map[voteKey]VoteValue),
	}
}

// PutPost seeds a post. The post entity is owned by an external service; in
// memory mode callers provision the slice of it this service reads.
func (s *MemoryStore) PutPost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

// now returns a strictly increasing timestamp so created_at is a total
// order even when calls land within clock resolution.
func (s *MemoryStore) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

func (s *MemoryStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(c.Text) == "" {
		return Comment{}, fmt.Errorf("empty text: %w", ErrValidation)
	}
	if c.PostID == "" || c.AuthorID == "" {
		return Comment{}, fmt.Errorf("post id and author id are required: %w", ErrValidation)
	}
	if _, ok := s.posts[c.PostID]; !ok {
		return Comment{}, fmt.Errorf("post %s: %w", c.PostID, ErrValidation)
	}
	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.PostID != c.PostID {
			return Comment{}, fmt.Errorf("parent comment %s: %w", *c.ParentID, ErrNotFound)
		}
	}

	c.ID = uuid.New().String()
	c.CreatedAt = s.now()
	c.Deleted = false
	c.AcceptedAnswer = false
	c.UpdatedAt = nil
	s.comments[c.ID] = c

	// Authors start their own comment at a score of 1.
	s.votes[voteKey{TargetComment, c.ID, c.AuthorID}] = VoteUp
	return c, nil
}

func (s *MemoryStore) Get(_ context.Context, commentID string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, commentID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if c.AuthorID != requesterID {
		return fmt.Errorf("only the author may delete a comment: %w", ErrForbidden)
	}
	c.Deleted = true
	c.Text = ""
	now := s.now()
	c.UpdatedAt = &now
	s.comments[commentID] = c
	return nil
}

func (s *MemoryStore) ListTopLevel(_ context.Context, postID string, limit int, cursor string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []Comment
	for _, c := range s.comments {
		if c.PostID == postID && c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	sortNewestFirst(roots)

	start := 0
	if cursor != "" {
		start = -1
		for i, c := range roots {
			if c.ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("unknown cursor %s: %w", cursor, ErrValidation)
		}
	}
	if start >= len(roots) {
		return []Comment{}, nil
	}
	roots = roots[start:]
	if limit > 0 && len(roots) > limit {
		roots = roots[:limit]
	}
	return roots, nil
}

func (s *MemoryStore) ListReplies(_ context.Context, parentID string, limit, skip int) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.childrenOf(parentID)
	if skip >= len(children) {
		return []Comment{}, nil
	}
	children = children[skip:]
	if limit > 0 && len(children) > limit {
		children = children[:limit]
	}
	return children, nil
}

func (s *MemoryStore) CountReplies(_ context.Context, parentIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	counts := make(map[string]int)
	for _, c := range s.comments {
		if c.ParentID != nil && want[*c.ParentID] {
			counts[*c.ParentID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) Depth(_ context.Context, commentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return 0, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	depth := 0
	for c.ParentID != nil {
		c, ok = s.comments[*c.ParentID]
		if !ok {
			break
		}
		depth++
	}
	return depth, nil
}

func (s *MemoryStore) childrenOf(parentID string) []Comment {
	var out []Comment
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(comments []Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
}

func (s *MemoryStore) Vote(_ context.Context, target TargetType, targetID, userID string, value VoteValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.targetExistsLocked(target, targetID); err != nil {
		return err
	}

	key := voteKey{target, targetID, userID}
	old, ok := s.votes[key]
	switch {
	case !ok:
		s.votes[key] = value
	case old == value:
		delete(s.votes, key)
	default:
		s.votes[key] = value
	}
	return nil
}

func (s *MemoryStore) Score(_ context.Context, target TargetType, targetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score := 0
	for k, v := range s.votes {
		if k.target == target && k.targetID == targetID {
			score += int(v)
		}
	}
	return score, nil
}

func (s *MemoryStore) Scores(_ context.Context, target TargetType, targetIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		want[id] = true
	}
	scores := make(map[string]int)
	for k, v := range s.votes {
		if k.target == target && want[k.targetID] {
			scores[k.targetID] += int(v)
		}
	}
	return scores, nil
}

func (s *MemoryStore) targetExistsLocked(target TargetType, targetID string) error {
	switch target {
	case TargetComment:
		if _, ok := s.comments[targetID]; !ok {
			return fmt.Errorf("comment %s: %w", targetID, ErrNotFound)
		}
	case TargetPost:
		if _, ok := s.posts[targetID]; !ok {
			return fmt.Errorf("post %s: %w", targetID, ErrNotFound)
		}
	default:
		return fmt.Errorf("target type %q: %w", target, ErrValidation)
	}
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, postID string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return Post{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) MarkAnswer(_ context.Context, commentID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, post, err := s.answerTargetLocked(commentID, requesterID)
	if err != nil {
		return err
	}

	for id, other := range s.comments {
		if other.PostID == c.PostID && other.AcceptedAnswer {
			other.AcceptedAnswer = false
			s.comments[id] = other
		}
	}
	c.AcceptedAnswer = true
	s.comments[commentID] = c

	answered := true
	post.IsAnswered = &answered
	s.posts[post.ID] = post
	return nil
}

func (s *MemoryStore) UnmarkAnswer(_ context.Context, commentID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, post, err := s.answerTargetLocked(commentID, requesterID)
	if err != nil {
		return err
	}

	c.AcceptedAnswer = false
	s.comments[commentID] = c

	answered := false
	for _, other := range s.comments {
		if other.PostID == c.PostID && other.AcceptedAnswer {
			answered = true
			break
		}
	}
	post.IsAnswered = &answered
	s.posts[post.ID] = post
	return nil
}

// answerTargetLocked loads the comment and its post and applies the shared
// answer-marking authorization: post author only, question posts only,
// top-level comments only.
func (s *MemoryStore) answerTargetLocked(commentID, requesterID string) (Comment, Post, error) {
	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, Post{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	post, ok := s.posts[c.PostID]
	if !ok {
		return Comment{}, Post{}, fmt.Errorf("post %s: %w", c.PostID, ErrNotFound)
	}
	if post.AuthorID != requesterID {
		return Comment{}, Post{}, fmt.Errorf("only the post author may manage answers: %w", ErrForbidden)
	}
	if !post.IsQuestion {
		return Comment{}, Post{}, fmt.Errorf("post %s is not a question: %w", post.ID, ErrForbidden)
	}
	if c.ParentID != nil {
		return Comment{}, Post{}, fmt.Errorf("only top-level comments can be answers: %w", ErrForbidden)
	}
	return c, post, nil
}
