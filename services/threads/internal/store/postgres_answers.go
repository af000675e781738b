package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, author_id, is_question, is_answered FROM posts WHERE id = $1`,
		postID).Scan(&p.ID, &p.AuthorID, &p.IsQuestion, &p.IsAnswered)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return p, err
}

// MarkAnswer moves the accepted-answer flag to commentID and sets the post
// answered, all in one transaction. The post row is locked so concurrent
// markers serialize and the at-most-one invariant holds at every commit.
func (s *PostgresStore) MarkAnswer(ctx context.Context, commentID, requesterID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	postID, err := answerTarget(ctx, tx, commentID, requesterID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE comments SET accepted_answer = FALSE WHERE post_id = $1 AND accepted_answer`, postID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE comments SET accepted_answer = TRUE WHERE id = $1`, commentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE posts SET is_answered = TRUE WHERE id = $1`, postID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UnmarkAnswer clears the flag on commentID and recomputes is_answered from
// what remains, which keeps the post flag consistent even if the target was
// not the accepted comment.
func (s *PostgresStore) UnmarkAnswer(ctx context.Context, commentID, requesterID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	postID, err := answerTarget(ctx, tx, commentID, requesterID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE comments SET accepted_answer = FALSE WHERE id = $1`, commentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE posts
		 SET is_answered = EXISTS(SELECT 1 FROM comments WHERE post_id = $1 AND accepted_answer)
		 WHERE id = $1`, postID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// answerTarget loads the comment and row-locks its post, then applies the
// shared authorization rules: post author only, question posts only,
// top-level comments only.
func answerTarget(ctx context.Context, tx pgx.Tx, commentID, requesterID string) (string, error) {
	var postID string
	var parentID *string
	err := tx.QueryRow(ctx,
		`SELECT post_id, parent_id FROM comments WHERE id = $1`, commentID).Scan(&postID, &parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	var authorID string
	var isQuestion bool
	err = tx.QueryRow(ctx,
		`SELECT author_id, is_question FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&authorID, &isQuestion)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	if authorID != requesterID {
		return "", fmt.Errorf("only the post author may manage answers: %w", ErrForbidden)
	}
	if !isQuestion {
		return "", fmt.Errorf("post %s is not a question: %w", postID, ErrForbidden)
	}
	if parentID != nil {
		return "", fmt.Errorf("only top-level comments can be answers: %w", ErrForbidden)
	}
	return postID, nil
}
