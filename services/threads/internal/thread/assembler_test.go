package thread

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/forum-platform/services/threads/internal/store"
)

func newFixture(t *testing.T) (*Assembler, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	s.PutPost(store.Post{ID: "post-1", AuthorID: "alice", IsQuestion: true})
	return New(s, s, DefaultPolicy), s
}

func seedComment(t *testing.T, s *store.MemoryStore, postID, authorID, text string, parentID *string) store.Comment {
	t.Helper()
	c, err := s.Create(context.Background(), store.Comment{PostID: postID, AuthorID: authorID, Text: text, ParentID: parentID})
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func TestFetchTopLevelPagesWithCursor(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		seedComment(t, s, "post-1", "alice", "root", nil)
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := asm.FetchTopLevel(ctx, "post-1", 3, cursor)
		if err != nil {
			t.Fatalf("FetchTopLevel: %v", err)
		}
		pages++
		for _, n := range page.Comments {
			if seen[n.ID] {
				t.Fatalf("comment %s returned twice", n.ID)
			}
			seen[n.ID] = true
		}
		if page.NextCursor == "" {
			if len(page.Comments) != 1 {
				t.Fatalf("last page len = %d, want 1", len(page.Comments))
			}
			break
		}
		if page.NextCursor != page.Comments[len(page.Comments)-1].ID {
			t.Fatalf("next cursor %s is not the last returned id", page.NextCursor)
		}
		cursor = page.NextCursor
	}
	if pages != 3 || len(seen) != 7 {
		t.Fatalf("walked %d pages over %d comments, want 3 pages over 7", pages, len(seen))
	}
}

func TestFetchTopLevelHidesOverflowingReplies(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	root := seedComment(t, s, "post-1", "alice", "root", nil)
	for i := 0; i < 20; i++ {
		seedComment(t, s, "post-1", "bob", "reply", &root.ID)
	}

	page, err := asm.FetchTopLevel(ctx, "post-1", 5, "")
	if err != nil {
		t.Fatalf("FetchTopLevel: %v", err)
	}
	if len(page.Comments) != 1 {
		t.Fatalf("top-level len = %d, want 1", len(page.Comments))
	}
	n := page.Comments[0]
	// topLimit 5 narrows to the floor at the first reply level.
	if len(n.Replies) != 5 {
		t.Fatalf("eager replies = %d, want 5", len(n.Replies))
	}
	if n.HiddenReplyCount != 15 {
		t.Fatalf("hidden reply count = %d, want 15", n.HiddenReplyCount)
	}
}

func TestFetchTopLevelStopsAtMaxDepth(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	// A straight chain two levels deeper than the policy allows.
	parent := seedComment(t, s, "post-1", "alice", "level 0", nil)
	chain := []store.Comment{parent}
	for i := 1; i <= DefaultPolicy.MaxDepth+2; i++ {
		parent = seedComment(t, s, "post-1", "bob", "deeper", &parent.ID)
		chain = append(chain, parent)
	}

	page, err := asm.FetchTopLevel(ctx, "post-1", 10, "")
	if err != nil {
		t.Fatalf("FetchTopLevel: %v", err)
	}

	n := page.Comments[0]
	depth := 0
	for len(n.Replies) > 0 {
		if len(n.Replies) != 1 {
			t.Fatalf("depth %d: replies = %d, want 1", depth, len(n.Replies))
		}
		n = n.Replies[0]
		depth++
	}
	if depth != DefaultPolicy.MaxDepth {
		t.Fatalf("hydrated depth = %d, want %d", depth, DefaultPolicy.MaxDepth)
	}
	// The frontier node advertises its unloaded child.
	if n.HiddenReplyCount != 1 {
		t.Fatalf("frontier hidden reply count = %d, want 1", n.HiddenReplyCount)
	}
}

func TestLoadMoreRepliesWindowsAreDisjoint(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	root := seedComment(t, s, "post-1", "alice", "root", nil)
	for i := 0; i < 12; i++ {
		seedComment(t, s, "post-1", "bob", "reply", &root.ID)
	}

	first, err := asm.LoadMoreReplies(ctx, "post-1", root.ID, 5, 0)
	if err != nil {
		t.Fatalf("LoadMoreReplies: %v", err)
	}
	second, err := asm.LoadMoreReplies(ctx, "post-1", root.ID, 5, 5)
	if err != nil {
		t.Fatalf("LoadMoreReplies skip 5: %v", err)
	}
	third, err := asm.LoadMoreReplies(ctx, "post-1", root.ID, 5, 10)
	if err != nil {
		t.Fatalf("LoadMoreReplies skip 10: %v", err)
	}
	if len(first) != 5 || len(second) != 5 || len(third) != 2 {
		t.Fatalf("window sizes = %d, %d, %d, want 5, 5, 2", len(first), len(second), len(third))
	}

	seen := map[string]bool{}
	for _, batch := range [][]*Node{first, second, third} {
		for _, n := range batch {
			if seen[n.ID] {
				t.Fatalf("comment %s returned in two windows", n.ID)
			}
			seen[n.ID] = true
		}
	}
}

func TestLoadMoreRepliesChecksPostMembership(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	root := seedComment(t, s, "post-1", "alice", "root", nil)

	if _, err := asm.LoadMoreReplies(ctx, "post-other", root.ID, 5, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("wrong post: err = %v, want ErrNotFound", err)
	}
	if _, err := asm.LoadMoreReplies(ctx, "post-1", "missing", 5, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing parent: err = %v, want ErrNotFound", err)
	}
}

func TestLoadMoreRepliesHydratesBelowParentDepth(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	root := seedComment(t, s, "post-1", "alice", "root", nil)
	child := seedComment(t, s, "post-1", "bob", "child", &root.ID)
	seedComment(t, s, "post-1", "carol", "grandchild", &child.ID)

	nodes, err := asm.LoadMoreReplies(ctx, "post-1", root.ID, 5, 0)
	if err != nil {
		t.Fatalf("LoadMoreReplies: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != child.ID {
		t.Fatalf("nodes = %+v, want the direct child", nodes)
	}
	if len(nodes[0].Replies) != 1 {
		t.Fatalf("child replies = %d, want the grandchild hydrated", len(nodes[0].Replies))
	}
}

func TestResolveComment(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	c := seedComment(t, s, "post-1", "alice", "**bold** claim", nil)
	seedComment(t, s, "post-1", "bob", "reply one", &c.ID)
	seedComment(t, s, "post-1", "carol", "reply two", &c.ID)

	n, err := asm.ResolveComment(ctx, c.ID, "whoever", 0)
	if err != nil {
		t.Fatalf("ResolveComment: %v", err)
	}
	if n.Score != 1 {
		t.Fatalf("score = %d, want 1", n.Score)
	}
	if n.HiddenReplyCount != 2 {
		t.Fatalf("hidden reply count = %d, want 2", n.HiddenReplyCount)
	}
	if len(n.Replies) != 0 {
		t.Fatalf("resolve should not hydrate the subtree, got %d replies", len(n.Replies))
	}
	if !strings.Contains(n.BodyHTML, "<strong>bold</strong>") {
		t.Fatalf("body html %q missing rendered markup", n.BodyHTML)
	}

	if _, err := asm.ResolveComment(ctx, "missing", "", 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing comment: err = %v, want ErrNotFound", err)
	}
}

func TestDeletedCommentsRenderEmpty(t *testing.T) {
	asm, s := newFixture(t)
	ctx := context.Background()

	root := seedComment(t, s, "post-1", "alice", "going away", nil)
	reply := seedComment(t, s, "post-1", "bob", "survivor", &root.ID)
	if err := s.SoftDelete(ctx, root.ID, "alice"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	page, err := asm.FetchTopLevel(ctx, "post-1", 10, "")
	if err != nil {
		t.Fatalf("FetchTopLevel: %v", err)
	}
	n := page.Comments[0]
	if !n.Deleted || n.BodyHTML != "" {
		t.Fatalf("deleted node = %+v, want Deleted with empty body", n)
	}
	// The deleted node still anchors its subtree.
	if len(n.Replies) != 1 || n.Replies[0].ID != reply.ID {
		t.Fatalf("replies under deleted node = %+v, want the survivor", n.Replies)
	}
}

func TestClampLimit(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	} {
		if got := clampLimit(tc.in); got != tc.want {
			t.Fatalf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
